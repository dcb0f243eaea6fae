package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jonesrussell/gomonitor/internal/logger"
)

// ErrScopeNotOpen is returned by Commit when no matching Begin is pending.
var ErrScopeNotOpen = errors.New("commit outside an open scope")

// Scope is a reference-counted transaction scope. The first Begin opens a
// real transaction; nested Begins only increment the counter. Commit
// decrements and issues the real commit when the counter reaches zero.
// Rollback always performs the real rollback and zeroes the counter, so an
// inner failure can never be undone by an outer commit.
//
// A Scope serves one logical operation handled by one worker; it is not
// safe for concurrent use.
type Scope struct {
	client *Client
	tx     *sql.Tx
	depth  int
}

// Begin enters the scope, opening the underlying transaction on first entry.
func (s *Scope) Begin(ctx context.Context) error {
	if s.depth == 0 {
		tx, err := s.client.db.BeginTx(ctx, nil)
		if err != nil {
			s.client.log.Error("Begin transaction failed", logger.Error(err))
			return storeErr("begin transaction", err)
		}
		s.tx = tx
		s.client.log.Debug("Transaction begun")
	}
	s.depth++
	return nil
}

// Commit leaves the scope, committing the underlying transaction when the
// outermost level is released.
func (s *Scope) Commit() error {
	if s.depth == 0 {
		return ErrScopeNotOpen
	}
	s.depth--
	if s.depth > 0 {
		return nil
	}

	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		s.client.log.Error("Commit failed", logger.Error(err))
		return storeErr("commit transaction", err)
	}
	s.client.log.Debug("Transaction committed")
	return nil
}

// Rollback aborts the whole scope immediately, regardless of nesting depth.
// It is a no-op when no transaction is open, so it is safe to defer on
// error paths that may already have committed.
func (s *Scope) Rollback() error {
	if s.tx == nil {
		s.depth = 0
		return nil
	}

	err := s.tx.Rollback()
	s.tx = nil
	s.depth = 0
	if err != nil {
		s.client.log.Error("Rollback failed", logger.Error(err))
		return storeErr("rollback transaction", err)
	}
	s.client.log.Debug("Transaction rolled back")
	return nil
}

// InTransaction reports whether the scope currently holds an open transaction.
func (s *Scope) InTransaction() bool {
	return s.tx != nil
}

// executor routes through the open transaction, or the bare connection when
// the scope has not been begun.
func (s *Scope) executor() executor {
	if s.tx != nil {
		return s.tx
	}
	return s.client.db
}

func (s *Scope) Select(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return doSelect(ctx, s.executor(), s.client.log, query, args...)
}

func (s *Scope) SelectOne(ctx context.Context, query string, args ...any) *sql.Row {
	return s.executor().QueryRowContext(ctx, query, args...)
}

func (s *Scope) SelectScalar(ctx context.Context, dest any, query string, args ...any) error {
	return doSelectScalar(ctx, s.executor(), s.client.log, dest, query, args...)
}

func (s *Scope) Insert(ctx context.Context, table string, fields map[string]any) (int64, error) {
	return doInsert(ctx, s.executor(), s.client.log, table, fields)
}

func (s *Scope) Update(ctx context.Context, table string, fields, criteria map[string]any) (int64, error) {
	return doUpdate(ctx, s.executor(), s.client.log, table, fields, criteria)
}

func (s *Scope) Delete(ctx context.Context, table string, criteria map[string]any) (int64, error) {
	return doDelete(ctx, s.executor(), s.client.log, table, criteria)
}
