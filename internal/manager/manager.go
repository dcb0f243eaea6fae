// Package manager owns every mutation of monitored-record state. It composes
// the store client and audit writer inside transaction scopes so that a
// record mutation and its history entry commit together or not at all.
package manager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jonesrussell/gomonitor/internal/audit"
	"github.com/jonesrussell/gomonitor/internal/database"
	"github.com/jonesrussell/gomonitor/internal/events"
	"github.com/jonesrussell/gomonitor/internal/logger"
	"github.com/jonesrussell/gomonitor/internal/models"
)

// RecordsTable is the backing table for monitored records.
const RecordsTable = "monitored_records"

// priceEpsilon is the tolerance for treating a price update as unchanged.
// Repeated polling that observes the same price must not grow the history table.
var priceEpsilon = decimal.New(1, -2) // 0.01

// Manager is the only component permitted to mutate MonitoredRecord and
// HistoryEntry state. Readers never mutate.
type Manager struct {
	client    *database.Client
	audit     *audit.Writer
	publisher *events.Publisher
	log       logger.Logger
}

// New creates a Manager. publisher may be nil, which disables change events.
func New(client *database.Client, auditWriter *audit.Writer, publisher *events.Publisher, log logger.Logger) *Manager {
	return &Manager{
		client:    client,
		audit:     auditWriter,
		publisher: publisher,
		log:       log,
	}
}

// RegisterInput describes one registration request.
type RegisterInput struct {
	ExternalID      int64
	SourceURL       string
	Platform        models.Platform
	SourceProductID *string
}

// RegisterResult carries the generated record id.
type RegisterResult struct {
	ID int64 `json:"id"`
}

// Register creates a new monitored record with zero stock and price.
// The (externalID, platform) pair must not already exist.
func (m *Manager) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	scope := m.client.Scope()
	if err := scope.Begin(ctx); err != nil {
		return nil, err
	}

	result, err := m.registerInScope(ctx, scope, input)
	if err != nil {
		_ = scope.Rollback()
		return nil, err
	}

	if err := scope.Commit(); err != nil {
		_ = scope.Rollback()
		return nil, err
	}

	m.publishEvent(ctx, events.RecordEvent{
		EventType:  events.EventRecordRegistered,
		RecordID:   result.ID,
		ExternalID: input.ExternalID,
		Platform:   input.Platform,
	})

	m.log.Info("Record registered",
		logger.Int64("record_id", result.ID),
		logger.Int64("external_id", input.ExternalID),
		logger.String("platform", string(input.Platform)),
	)
	return result, nil
}

// registerInScope performs the registration inside an already-open scope.
// Bulk registration reuses it so a whole batch can share one transaction.
func (m *Manager) registerInScope(ctx context.Context, scope *database.Scope, input RegisterInput) (*RegisterResult, error) {
	if !input.Platform.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlatform, input.Platform)
	}

	parsed, err := models.ValidateSourceURL(input.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, input.SourceURL)
	}

	// Fast-path rejection. The unique constraint on
	// (external_product_id, platform) remains the real guarantee against
	// a concurrent registration slipping between this check and the insert.
	var existing int
	err = scope.SelectScalar(ctx, &existing,
		"SELECT COUNT(*) FROM monitored_records WHERE external_product_id = $1 AND platform = $2",
		input.ExternalID, input.Platform,
	)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: external id %d on %s", ErrAlreadyMonitored, input.ExternalID, input.Platform)
	}

	now := time.Now().UTC()
	fields := map[string]any{
		"external_product_id": input.ExternalID,
		"platform":            string(input.Platform),
		"source_url":          input.SourceURL,
		"source_product_id":   input.SourceProductID,
		"current_stock":       0,
		"current_price":       decimal.Zero,
		"url_status":          string(models.URLStatusActive),
		"monitoring_enabled":  true,
		"created_at":          now,
		"updated_at":          now,
	}
	if hash, ok := models.DeriveTitleHash(parsed); ok {
		fields["title_hash"] = hash
		fields["last_verified_at"] = now
	}

	id, err := scope.Insert(ctx, RecordsTable, fields)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: external id %d on %s", ErrAlreadyMonitored, input.ExternalID, input.Platform)
		}
		return nil, err
	}

	return &RegisterResult{ID: id}, nil
}

// StockUpdateResult reports a stock mutation. Changed is false when the new
// value matched the current one and nothing was written.
type StockUpdateResult struct {
	PreviousStock int  `json:"previous_stock"`
	NewStock      int  `json:"new_stock"`
	Changed       bool `json:"changed"`
}

// UpdateStock applies a stock mutation to the record identified by
// externalID (and platform, when given). Equal values are a no-op: no store
// mutation and no history entry.
func (m *Manager) UpdateStock(ctx context.Context, externalID int64, newStock int, platform *models.Platform) (*StockUpdateResult, error) {
	record, err := m.findByExternalID(ctx, externalID, platform)
	if err != nil {
		return nil, err
	}

	if record.CurrentStock == newStock {
		m.log.Debug("Stock unchanged, skipping update",
			logger.Int64("record_id", record.ID),
			logger.Int("stock", newStock),
		)
		return &StockUpdateResult{
			PreviousStock: record.CurrentStock,
			NewStock:      newStock,
			Changed:       false,
		}, nil
	}

	previous := record.CurrentStock
	err = m.mutateInScope(ctx, record, map[string]any{"current_stock": newStock}, func(scope *database.Scope) error {
		_, auditErr := m.audit.Record(ctx, scope, record.ID, &previous, &newStock, nil, nil, string(record.Platform))
		return auditErr
	})
	if err != nil {
		return nil, err
	}

	m.publishEvent(ctx, events.RecordEvent{
		EventType:  events.EventStockChanged,
		RecordID:   record.ID,
		ExternalID: record.ExternalProductID,
		Platform:   record.Platform,
		Payload:    map[string]any{"previous_stock": previous, "new_stock": newStock},
	})

	m.log.Info("Stock updated",
		logger.Int64("record_id", record.ID),
		logger.Int("previous_stock", previous),
		logger.Int("new_stock", newStock),
	)
	return &StockUpdateResult{PreviousStock: previous, NewStock: newStock, Changed: true}, nil
}

// PriceUpdateResult reports a price mutation.
type PriceUpdateResult struct {
	PreviousPrice decimal.Decimal `json:"previous_price"`
	NewPrice      decimal.Decimal `json:"new_price"`
	Changed       bool            `json:"changed"`
}

// UpdatePrice applies a price mutation. Prices within 0.01 of the current
// value are treated as unchanged.
func (m *Manager) UpdatePrice(ctx context.Context, externalID int64, newPrice decimal.Decimal, platform *models.Platform) (*PriceUpdateResult, error) {
	record, err := m.findByExternalID(ctx, externalID, platform)
	if err != nil {
		return nil, err
	}

	if newPrice.Sub(record.CurrentPrice).Abs().LessThan(priceEpsilon) {
		m.log.Debug("Price unchanged, skipping update",
			logger.Int64("record_id", record.ID),
			logger.String("price", newPrice.String()),
		)
		return &PriceUpdateResult{
			PreviousPrice: record.CurrentPrice,
			NewPrice:      newPrice,
			Changed:       false,
		}, nil
	}

	previous := record.CurrentPrice
	err = m.mutateInScope(ctx, record, map[string]any{"current_price": newPrice}, func(scope *database.Scope) error {
		_, auditErr := m.audit.Record(ctx, scope, record.ID, nil, nil, &previous, &newPrice, string(record.Platform))
		return auditErr
	})
	if err != nil {
		return nil, err
	}

	m.publishEvent(ctx, events.RecordEvent{
		EventType:  events.EventPriceChanged,
		RecordID:   record.ID,
		ExternalID: record.ExternalProductID,
		Platform:   record.Platform,
		Payload:    map[string]any{"previous_price": previous.String(), "new_price": newPrice.String()},
	})

	m.log.Info("Price updated",
		logger.Int64("record_id", record.ID),
		logger.String("previous_price", previous.String()),
		logger.String("new_price", newPrice.String()),
	)
	return &PriceUpdateResult{PreviousPrice: previous, NewPrice: newPrice, Changed: true}, nil
}

// mutateInScope updates the record row and runs recordHistory inside one
// transaction scope. Both writes commit together or neither does.
func (m *Manager) mutateInScope(ctx context.Context, record *models.MonitoredRecord, fields map[string]any, recordHistory func(*database.Scope) error) error {
	scope := m.client.Scope()
	if err := scope.Begin(ctx); err != nil {
		return err
	}

	fields["updated_at"] = time.Now().UTC()
	if _, err := scope.Update(ctx, RecordsTable, fields, map[string]any{"id": record.ID}); err != nil {
		_ = scope.Rollback()
		return err
	}

	if err := recordHistory(scope); err != nil {
		_ = scope.Rollback()
		return err
	}

	if err := scope.Commit(); err != nil {
		_ = scope.Rollback()
		return err
	}
	return nil
}

// Toggle enables or disables monitoring for every record with the given
// external id. Returns the number of affected rows; zero means not found.
func (m *Manager) Toggle(ctx context.Context, externalID int64, enabled bool) (int64, error) {
	affected, err := m.client.Update(ctx, RecordsTable,
		map[string]any{
			"monitoring_enabled": enabled,
			"updated_at":         time.Now().UTC(),
		},
		map[string]any{"external_product_id": externalID},
	)
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, fmt.Errorf("%w: external id %d", ErrNotFound, externalID)
	}

	m.log.Info("Monitoring toggled",
		logger.Int64("external_id", externalID),
		logger.Bool("enabled", enabled),
		logger.Int64("affected", affected),
	)
	return affected, nil
}

// RemoveResult reports what a removal deleted.
type RemoveResult struct {
	DeletedHistoryCount int64 `json:"deleted_history_count"`
	DeletedRecordCount  int64 `json:"deleted_record_count"`
}

// Remove deletes every record with the given external id together with its
// history entries, history first, inside one transaction scope. The caller
// must pass confirm=true; this is the safeguard against accidental
// destructive calls.
func (m *Manager) Remove(ctx context.Context, externalID int64, confirm bool) (*RemoveResult, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}

	scope := m.client.Scope()
	if err := scope.Begin(ctx); err != nil {
		return nil, err
	}

	result, err := m.removeInScope(ctx, scope, externalID)
	if err != nil {
		_ = scope.Rollback()
		return nil, err
	}

	if err := scope.Commit(); err != nil {
		_ = scope.Rollback()
		return nil, err
	}

	m.publishEvent(ctx, events.RecordEvent{
		EventType:  events.EventRecordRemoved,
		ExternalID: externalID,
		Payload: map[string]any{
			"deleted_history_count": result.DeletedHistoryCount,
			"deleted_record_count":  result.DeletedRecordCount,
		},
	})

	m.log.Info("Record removed",
		logger.Int64("external_id", externalID),
		logger.Int64("deleted_history", result.DeletedHistoryCount),
		logger.Int64("deleted_records", result.DeletedRecordCount),
	)
	return result, nil
}

func (m *Manager) removeInScope(ctx context.Context, scope *database.Scope, externalID int64) (*RemoveResult, error) {
	rows, err := scope.Select(ctx,
		"SELECT id FROM monitored_records WHERE external_product_id = $1",
		externalID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("scan record id: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate record ids: %w", rowsErr)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: external id %d", ErrNotFound, externalID)
	}

	var result RemoveResult
	for _, id := range ids {
		historyDeleted, delErr := scope.Delete(ctx, audit.HistoryTable, map[string]any{"record_id": id})
		if delErr != nil {
			return nil, delErr
		}
		recordDeleted, delErr := scope.Delete(ctx, RecordsTable, map[string]any{"id": id})
		if delErr != nil {
			return nil, delErr
		}
		result.DeletedHistoryCount += historyDeleted
		result.DeletedRecordCount += recordDeleted
	}

	return &result, nil
}

// recordColumns is the canonical column list for scanning monitored records.
const recordColumns = `id, external_product_id, platform, source_url, source_product_id,
	current_stock, current_price, url_status, monitoring_enabled,
	title_hash, last_verified_at, created_at, updated_at`

// findByExternalID loads the current record for (externalID[, platform]).
func (m *Manager) findByExternalID(ctx context.Context, externalID int64, platform *models.Platform) (*models.MonitoredRecord, error) {
	query := "SELECT " + recordColumns + " FROM monitored_records WHERE external_product_id = $1"
	args := []any{externalID}
	if platform != nil {
		query += " AND platform = $2"
		args = append(args, string(*platform))
	}
	query += " ORDER BY id LIMIT 1"

	record, err := scanRecord(m.client.SelectOne(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: external id %d", ErrNotFound, externalID)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func scanRecord(row *sql.Row) (*models.MonitoredRecord, error) {
	var r models.MonitoredRecord
	err := row.Scan(
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
	)
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	return &r, nil
}

// publishEvent sends a change event if a publisher is configured. Events are
// best-effort and never fail the mutation that produced them.
func (m *Manager) publishEvent(ctx context.Context, event events.RecordEvent) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.log.Warn("Change event not published", logger.Error(err))
	}
}
