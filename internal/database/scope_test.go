package database_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gomonitor/internal/database"
	"github.com/jonesrussell/gomonitor/internal/testhelpers"
)

func TestScopeNestedBeginCommitsOnce(t *testing.T) {
	client, mock := testhelpers.NewMockClient(t)
	ctx := context.Background()

	// One real transaction for two nested Begin calls.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"INSERT INTO widgets (alpha) VALUES ($1) RETURNING id",
	)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	scope := client.Scope()
	require.NoError(t, scope.Begin(ctx))
	require.NoError(t, scope.Begin(ctx))
	assert.True(t, scope.InTransaction())

	_, err := scope.Insert(ctx, "widgets", map[string]any{"alpha": 1})
	require.NoError(t, err)

	// Inner commit only decrements; the transaction stays open.
	require.NoError(t, scope.Commit())
	assert.True(t, scope.InTransaction())

	require.NoError(t, scope.Commit())
	assert.False(t, scope.InTransaction())
}

func TestScopeRollbackAbortsWholeScope(t *testing.T) {
	client, mock := testhelpers.NewMockClient(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	scope := client.Scope()
	require.NoError(t, scope.Begin(ctx))
	require.NoError(t, scope.Begin(ctx))

	// A rollback at any depth aborts immediately.
	require.NoError(t, scope.Rollback())
	assert.False(t, scope.InTransaction())

	// The outer level cannot commit what was rolled back.
	err := scope.Commit()
	assert.ErrorIs(t, err, database.ErrScopeNotOpen)
}

func TestScopeCommitWithoutBegin(t *testing.T) {
	client, _ := testhelpers.NewMockClient(t)

	scope := client.Scope()
	assert.ErrorIs(t, scope.Commit(), database.ErrScopeNotOpen)
}

func TestScopeRollbackWithoutBeginIsNoop(t *testing.T) {
	client, _ := testhelpers.NewMockClient(t)

	scope := client.Scope()
	assert.NoError(t, scope.Rollback())
}

func TestScopeRollbackAfterCommitIsNoop(t *testing.T) {
	client, mock := testhelpers.NewMockClient(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()

	scope := client.Scope()
	require.NoError(t, scope.Begin(ctx))
	require.NoError(t, scope.Commit())

	// Deferred rollback on a committed scope must not fail.
	assert.NoError(t, scope.Rollback())
}

func TestScopeRoutesOutsideTransactionWhenUnopened(t *testing.T) {
	client, mock := testhelpers.NewMockClient(t)

	// No ExpectBegin: the statement runs on the bare connection.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE widgets SET alpha = $1 WHERE id = $2")).
		WithArgs(1, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	scope := client.Scope()
	affected, err := scope.Update(context.Background(), "widgets",
		map[string]any{"alpha": 1},
		map[string]any{"id": int64(2)},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestScopeBeginFailure(t *testing.T) {
	client, mock := testhelpers.NewMockClient(t)

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	scope := client.Scope()
	err := scope.Begin(context.Background())
	require.Error(t, err)

	var storeErr *database.StoreError
	assert.ErrorAs(t, err, &storeErr)
	assert.False(t, scope.InTransaction())
}
