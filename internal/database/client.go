// Package database wraps the relational backend behind typed, parameterized
// CRUD primitives and a reference-counted transaction scope. Raw interpolated
// queries never cross this boundary; every call uses bound parameters.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" //nolint:blankimports // PostgreSQL driver
	"github.com/jonesrussell/gomonitor/internal/config"
	"github.com/jonesrussell/gomonitor/internal/logger"
)

const pingTimeout = 5 * time.Second

// executor is satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Client provides store primitives executed outside any transaction scope.
// Use Scope for operations that must commit or roll back together.
type Client struct {
	db  *sql.DB
	log logger.Logger
}

// Open connects to PostgreSQL using the given configuration.
func Open(cfg *config.Config, log logger.Logger) (*Client, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	log.Info("Database connection established",
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
		logger.String("dbname", cfg.Database.DBName),
	)

	return NewClient(db, log), nil
}

// NewClient wraps an existing connection. Used directly by tests.
func NewClient(db *sql.DB, log logger.Logger) *Client {
	return &Client{db: db, log: log}
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies store reachability. Used by the health store probe.
func (c *Client) Ping(ctx context.Context) error {
	var one int
	if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// Scope returns a new, unopened transaction scope bound to this client.
func (c *Client) Scope() *Scope {
	return &Scope{client: c}
}

func (c *Client) Select(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return doSelect(ctx, c.db, c.log, query, args...)
}

func (c *Client) SelectOne(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

func (c *Client) SelectScalar(ctx context.Context, dest any, query string, args ...any) error {
	return doSelectScalar(ctx, c.db, c.log, dest, query, args...)
}

func (c *Client) Insert(ctx context.Context, table string, fields map[string]any) (int64, error) {
	return doInsert(ctx, c.db, c.log, table, fields)
}

func (c *Client) Update(ctx context.Context, table string, fields, criteria map[string]any) (int64, error) {
	return doUpdate(ctx, c.db, c.log, table, fields, criteria)
}

func (c *Client) Delete(ctx context.Context, table string, criteria map[string]any) (int64, error) {
	return doDelete(ctx, c.db, c.log, table, criteria)
}

func doSelect(ctx context.Context, ex executor, log logger.Logger, query string, args ...any) (*sql.Rows, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("Select failed", logger.Error(err))
		return nil, storeErr("select", err)
	}
	return rows, nil
}

func doSelectScalar(ctx context.Context, ex executor, log logger.Logger, dest any, query string, args ...any) error {
	if err := ex.QueryRowContext(ctx, query, args...).Scan(dest); err != nil {
		log.Error("SelectScalar failed", logger.Error(err))
		return storeErr("select scalar", err)
	}
	return nil
}

func doInsert(ctx context.Context, ex executor, log logger.Logger, table string, fields map[string]any) (int64, error) {
	columns := sortedKeys(fields)
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = fields[col]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	var id int64
	if err := ex.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		log.Error("Insert failed",
			logger.String("table", table),
			logger.Error(err),
		)
		return 0, storeErr("insert into "+table, err)
	}

	log.Debug("Insert",
		logger.String("table", table),
		logger.Int64("id", id),
	)
	return id, nil
}

func doUpdate(ctx context.Context, ex executor, log logger.Logger, table string, fields, criteria map[string]any) (int64, error) {
	if len(fields) == 0 {
		return 0, storeErr("update "+table, errNoFields)
	}
	if len(criteria) == 0 {
		return 0, storeErr("update "+table, errNoCriteria)
	}

	setCols := sortedKeys(fields)
	whereCols := sortedKeys(criteria)

	assignments := make([]string, len(setCols))
	args := make([]any, 0, len(setCols)+len(whereCols))
	pos := 1
	for i, col := range setCols {
		assignments[i] = col + " = $" + strconv.Itoa(pos)
		args = append(args, fields[col])
		pos++
	}
	conditions := make([]string, len(whereCols))
	for i, col := range whereCols {
		conditions[i] = col + " = $" + strconv.Itoa(pos)
		args = append(args, criteria[col])
		pos++
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s",
		table,
		strings.Join(assignments, ", "),
		strings.Join(conditions, " AND "),
	)

	result, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("Update failed",
			logger.String("table", table),
			logger.Error(err),
		)
		return 0, storeErr("update "+table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, storeErr("update "+table+": rows affected", err)
	}

	log.Debug("Update",
		logger.String("table", table),
		logger.Any("criteria", criteria),
		logger.Int64("affected", affected),
	)
	return affected, nil
}

func doDelete(ctx context.Context, ex executor, log logger.Logger, table string, criteria map[string]any) (int64, error) {
	if len(criteria) == 0 {
		return 0, storeErr("delete from "+table, errNoCriteria)
	}

	whereCols := sortedKeys(criteria)
	conditions := make([]string, len(whereCols))
	args := make([]any, len(whereCols))
	for i, col := range whereCols {
		conditions[i] = col + " = $" + strconv.Itoa(i+1)
		args[i] = criteria[col]
	}

	query := fmt.Sprintf(
		"DELETE FROM %s WHERE %s",
		table,
		strings.Join(conditions, " AND "),
	)

	result, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("Delete failed",
			logger.String("table", table),
			logger.Error(err),
		)
		return 0, storeErr("delete from "+table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, storeErr("delete from "+table+": rows affected", err)
	}

	log.Debug("Delete",
		logger.String("table", table),
		logger.Any("criteria", criteria),
		logger.Int64("affected", affected),
	)
	return affected, nil
}

// sortedKeys returns map keys in a stable order so generated SQL is
// deterministic for a given field set.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
