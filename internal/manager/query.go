package manager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jonesrussell/gomonitor/internal/models"
)

// ListFilter holds pagination and filter params for List.
type ListFilter struct {
	Platform *models.Platform
	Search   string // ILIKE on source_url or catalog title
	Limit    int
	Offset   int
}

// listedColumns joins record columns with read-only catalog display fields.
const listedColumns = `r.id, r.external_product_id, r.platform, r.source_url, r.source_product_id,
	r.current_stock, r.current_price, r.url_status, r.monitoring_enabled,
	r.title_hash, r.last_verified_at, r.created_at, r.updated_at,
	c.title, c.image_url`

const listedJoin = ` FROM monitored_records r
	LEFT JOIN catalog_items c
	ON c.external_product_id = r.external_product_id AND c.platform = r.platform`

// List returns enabled records ordered by most-recently updated, joined with
// any available catalog title/image. The total count is computed from the
// same predicate as the page query so the two never disagree.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]models.ListedRecord, int, error) {
	whereClause, whereArgs := buildListWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*)" + listedJoin + " WHERE r.monitoring_enabled = TRUE" + whereClause
	if err := m.client.SelectScalar(ctx, &total, countQuery, whereArgs...); err != nil {
		return nil, 0, err
	}

	limitPlaceholder := strconv.Itoa(len(whereArgs) + 1)
	offsetPlaceholder := strconv.Itoa(len(whereArgs) + 2)
	query := "SELECT " + listedColumns + listedJoin +
		" WHERE r.monitoring_enabled = TRUE" + whereClause +
		" ORDER BY r.updated_at DESC LIMIT $" + limitPlaceholder + " OFFSET $" + offsetPlaceholder

	args := append(append([]any{}, whereArgs...), filter.Limit, filter.Offset)

	rows, err := m.client.Select(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := make([]models.ListedRecord, 0)
	for rows.Next() {
		record, scanErr := scanListedRow(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		records = append(records, *record)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, fmt.Errorf("iterate records: %w", rowsErr)
	}

	return records, total, nil
}

func buildListWhere(filter ListFilter) (whereClause string, args []any) {
	var clauses []string
	args = make([]any, 0)
	pos := 1

	if filter.Platform != nil {
		clauses = append(clauses, fmt.Sprintf("r.platform = $%d", pos))
		args = append(args, string(*filter.Platform))
		pos++
	}
	if filter.Search != "" {
		clauses = append(clauses, fmt.Sprintf("(r.source_url ILIKE $%d OR c.title ILIKE $%d)", pos, pos))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

func scanListedRow(rows *sql.Rows) (*models.ListedRecord, error) {
	var r models.ListedRecord
	err := rows.Scan(
		&r.ID,
		&r.ExternalProductID,
		&r.Platform,
		&r.SourceURL,
		&r.SourceProductID,
		&r.CurrentStock,
		&r.CurrentPrice,
		&r.URLStatus,
		&r.MonitoringEnabled,
		&r.TitleHash,
		&r.LastVerifiedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.Title,
		&r.ImageURL,
	)
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	return &r, nil
}

// Detail returns one record by its internal id, with catalog display fields.
func (m *Manager) Detail(ctx context.Context, recordID int64) (*models.ListedRecord, error) {
	query := "SELECT " + listedColumns + listedJoin + " WHERE r.id = $1"

	var r models.ListedRecord
	err := m.client.SelectOne(ctx, query, recordID).Scan(
		&r.ID,
		&r.ExternalProductID,
		&r.Platform,
		&r.SourceURL,
		&r.SourceProductID,
		&r.CurrentStock,
		&r.CurrentPrice,
		&r.URLStatus,
		&r.MonitoringEnabled,
		&r.TitleHash,
		&r.LastVerifiedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.Title,
		&r.ImageURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, recordID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	return &r, nil
}

// HistoryFilter narrows a history query.
type HistoryFilter struct {
	Limit      int
	ChangeType *models.ChangeType
	DateFrom   *time.Time
	DateTo     *time.Time
}

// History returns the audit trail for a record, newest first. An unknown or
// removed record yields an empty set, not an error.
func (m *Manager) History(ctx context.Context, recordID int64, filter HistoryFilter) ([]models.HistoryEntry, error) {
	query := `SELECT id, record_id, previous_stock, new_stock, previous_price, new_price,
		change_type, change_source, created_at
		FROM record_history WHERE record_id = $1`
	args := []any{recordID}
	pos := 2

	if filter.ChangeType != nil {
		query += fmt.Sprintf(" AND change_type = $%d", pos)
		args = append(args, string(*filter.ChangeType))
		pos++
	}
	if filter.DateFrom != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *filter.DateFrom)
		pos++
	}
	if filter.DateTo != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *filter.DateTo)
		pos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", pos)
	args = append(args, filter.Limit)

	rows, err := m.client.Select(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.HistoryEntry, 0)
	for rows.Next() {
		var e models.HistoryEntry
		var prevPrice, newPrice decimal.NullDecimal
		scanErr := rows.Scan(
			&e.ID,
			&e.RecordID,
			&e.PreviousStock,
			&e.NewStock,
			&prevPrice,
			&newPrice,
			&e.ChangeType,
			&e.ChangeSource,
			&e.CreatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("scan history entry: %w", scanErr)
		}
		if prevPrice.Valid {
			e.PreviousPrice = &prevPrice.Decimal
		}
		if newPrice.Valid {
			e.NewPrice = &newPrice.Decimal
		}
		entries = append(entries, e)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate history entries: %w", rowsErr)
	}

	return entries, nil
}

// PlatformCount is one per-platform bucket in the system stats.
type PlatformCount struct {
	Platform models.Platform `json:"platform"`
	Count    int             `json:"count"`
}

// StatusCount is one per-url-status bucket in the system stats.
type StatusCount struct {
	Status models.URLStatus `json:"url_status"`
	Count  int              `json:"count"`
}

// SystemStats holds dashboard-grade aggregate counts. The counts are as of
// call time and not transactionally consistent with concurrent writers.
type SystemStats struct {
	MonitoredCount    int             `json:"monitored_count"`
	TotalCount        int             `json:"total_count"`
	ByPlatform        []PlatformCount `json:"by_platform"`
	TodayStockChanges int             `json:"today_stock_changes"`
	TodayPriceChanges int             `json:"today_price_changes"`
	ByURLStatus       []StatusCount   `json:"by_url_status"`
}

// Stats returns read-only aggregate counts over records and today's history.
func (m *Manager) Stats(ctx context.Context) (*SystemStats, error) {
	var stats SystemStats

	err := m.client.SelectScalar(ctx, &stats.MonitoredCount,
		"SELECT COUNT(*) FROM monitored_records WHERE monitoring_enabled = TRUE")
	if err != nil {
		return nil, err
	}

	err = m.client.SelectScalar(ctx, &stats.TotalCount,
		"SELECT COUNT(*) FROM monitored_records")
	if err != nil {
		return nil, err
	}

	stats.ByPlatform, err = m.platformCounts(ctx)
	if err != nil {
		return nil, err
	}

	todayStart := time.Now().UTC().Truncate(24 * time.Hour)

	err = m.client.SelectScalar(ctx, &stats.TodayStockChanges,
		"SELECT COUNT(*) FROM record_history WHERE created_at >= $1 AND change_type IN ($2, $3)",
		todayStart, string(models.ChangeTypeStock), string(models.ChangeTypeBoth))
	if err != nil {
		return nil, err
	}

	err = m.client.SelectScalar(ctx, &stats.TodayPriceChanges,
		"SELECT COUNT(*) FROM record_history WHERE created_at >= $1 AND change_type IN ($2, $3)",
		todayStart, string(models.ChangeTypePrice), string(models.ChangeTypeBoth))
	if err != nil {
		return nil, err
	}

	stats.ByURLStatus, err = m.statusCounts(ctx)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (m *Manager) platformCounts(ctx context.Context) ([]PlatformCount, error) {
	rows, err := m.client.Select(ctx,
		"SELECT platform, COUNT(*) FROM monitored_records GROUP BY platform ORDER BY platform")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]PlatformCount, 0)
	for rows.Next() {
		var pc PlatformCount
		if scanErr := rows.Scan(&pc.Platform, &pc.Count); scanErr != nil {
			return nil, fmt.Errorf("scan platform count: %w", scanErr)
		}
		counts = append(counts, pc)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate platform counts: %w", rowsErr)
	}
	return counts, nil
}

func (m *Manager) statusCounts(ctx context.Context) ([]StatusCount, error) {
	rows, err := m.client.Select(ctx,
		"SELECT url_status, COUNT(*) FROM monitored_records GROUP BY url_status ORDER BY url_status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]StatusCount, 0)
	for rows.Next() {
		var sc StatusCount
		if scanErr := rows.Scan(&sc.Status, &sc.Count); scanErr != nil {
			return nil, fmt.Errorf("scan status count: %w", scanErr)
		}
		counts = append(counts, sc)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate status counts: %w", rowsErr)
	}
	return counts, nil
}

// EnabledCount counts records with monitoring enabled. Used by the health
// coverage probe.
func (m *Manager) EnabledCount(ctx context.Context) (int, error) {
	var count int
	err := m.client.SelectScalar(ctx, &count,
		"SELECT COUNT(*) FROM monitored_records WHERE monitoring_enabled = TRUE")
	if err != nil {
		return 0, err
	}
	return count, nil
}
