// Package audit appends immutable history entries documenting record
// state transitions.
package audit

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jonesrussell/gomonitor/internal/database"
	"github.com/jonesrussell/gomonitor/internal/logger"
	"github.com/jonesrussell/gomonitor/internal/models"
)

// HistoryTable is the backing table for history entries.
const HistoryTable = "record_history"

// Writer translates a mutation's before/after values into one history insert.
// It performs no reads and holds no business logic beyond change-type
// derivation; deciding whether anything actually changed is the record
// manager's job, and Record must not be called for a no-op transition.
type Writer struct {
	log logger.Logger
}

func NewWriter(log logger.Logger) *Writer {
	return &Writer{log: log}
}

// Record inserts one history entry inside the caller's transaction scope and
// returns the generated history id. Nil stock or price pairs mean that
// dimension did not participate in the transition.
func (w *Writer) Record(
	ctx context.Context,
	scope *database.Scope,
	recordID int64,
	previousStock, newStock *int,
	previousPrice, newPrice *decimal.Decimal,
	changeSource string,
) (int64, error) {
	changeType := models.DeriveChangeType(previousStock, newStock, previousPrice, newPrice)

	id, err := scope.Insert(ctx, HistoryTable, map[string]any{
		"record_id":      recordID,
		"previous_stock": previousStock,
		"new_stock":      newStock,
		"previous_price": previousPrice,
		"new_price":      newPrice,
		"change_type":    string(changeType),
		"change_source":  changeSource,
		"created_at":     time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}

	w.log.Debug("History entry recorded",
		logger.Int64("record_id", recordID),
		logger.Int64("history_id", id),
		logger.String("change_type", string(changeType)),
		logger.String("change_source", changeSource),
	)
	return id, nil
}
