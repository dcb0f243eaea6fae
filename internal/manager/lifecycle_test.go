package manager_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gomonitor/internal/manager"
	"github.com/jonesrussell/gomonitor/internal/models"
)

// TestRecordLifecycle walks one record from registration through stock and
// price transitions to removal, asserting that only real transitions touch
// the store and grow the history.
func TestRecordLifecycle(t *testing.T) {
	m, mock := newTestManager(t)
	ctx := context.Background()

	const externalID = int64(42)
	const sourceURL = "https://shop.example.com/item/42"

	// Registration: new record at zero stock and price.
	mock.ExpectBegin()
	expectRegister(mock, externalID, "yahoo", 7)
	mock.ExpectCommit()

	registered, err := m.Register(ctx, manager.RegisterInput{
		ExternalID: externalID,
		SourceURL:  sourceURL,
		Platform:   models.PlatformYahoo,
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), registered.ID)

	// First poll observes stock 3: a real transition with a history entry.
	mock.ExpectQuery(findRecordSQL).
		WithArgs(externalID).
		WillReturnRows(recordRow(7, externalID, "yahoo", sourceURL, 0, "0"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE monitored_records SET current_stock`).
		WithArgs(3, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO record_history`).
		WithArgs("yahoo", "stock_change", sqlmock.AnyArg(), nil, 3, nil, 0, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	stockResult, err := m.UpdateStock(ctx, externalID, 3, nil)
	require.NoError(t, err)
	assert.True(t, stockResult.Changed)

	// Second poll observes the same stock: only the lookup runs.
	mock.ExpectQuery(findRecordSQL).
		WithArgs(externalID).
		WillReturnRows(recordRow(7, externalID, "yahoo", sourceURL, 3, "0"))

	stockResult, err = m.UpdateStock(ctx, externalID, 3, nil)
	require.NoError(t, err)
	assert.False(t, stockResult.Changed)

	// A price appears: second history entry.
	mock.ExpectQuery(findRecordSQL).
		WithArgs(externalID).
		WillReturnRows(recordRow(7, externalID, "yahoo", sourceURL, 3, "0"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE monitored_records SET current_price`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO record_history`).
		WithArgs("yahoo", "price_change", sqlmock.AnyArg(), "19.99", nil, "0", nil, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectCommit()

	priceResult, err := m.UpdatePrice(ctx, externalID, decimal.RequireFromString("19.99"), nil)
	require.NoError(t, err)
	assert.True(t, priceResult.Changed)

	// The audit trail reflects both transitions, newest first.
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM record_history WHERE record_id = \$1`).
		WithArgs(int64(7), 50).
		WillReturnRows(sqlmock.NewRows(historyColumns).
			AddRow(2, 7, nil, nil, "0", "19.99", "price_change", "yahoo", now).
			AddRow(1, 7, 0, 3, nil, nil, "stock_change", "yahoo", now.Add(-time.Minute)))

	entries, err := m.History(ctx, 7, manager.HistoryFilter{Limit: 50})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ChangeTypePrice, entries[0].ChangeType)
	assert.Equal(t, models.ChangeTypeStock, entries[1].ChangeType)

	// Removal deletes the record with its whole history in one scope.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM monitored_records WHERE external_product_id = \$1`).
		WithArgs(externalID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`DELETE FROM record_history`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM monitored_records`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := m.Remove(ctx, externalID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed.DeletedHistoryCount)
	assert.Equal(t, int64(1), removed.DeletedRecordCount)
}
