package manager

import (
	"context"
	"fmt"
)

// BulkError reports why one item in a bulk registration failed.
type BulkError struct {
	Index      int    `json:"index"`
	ExternalID int64  `json:"external_id"`
	Error      string `json:"error"`
}

// BulkResult summarizes a bulk registration.
type BulkResult struct {
	Registered int         `json:"registered"`
	Errors     []BulkError `json:"errors,omitempty"`
}

// BulkRegister registers a batch of records. With skipErrors=false the whole
// batch shares one transaction scope and any failure rolls everything back.
// With skipErrors=true each item is registered independently and failures
// are collected per item.
func (m *Manager) BulkRegister(ctx context.Context, items []RegisterInput, skipErrors bool) (*BulkResult, error) {
	if skipErrors {
		return m.bulkRegisterLenient(ctx, items), nil
	}
	return m.bulkRegisterAtomic(ctx, items)
}

func (m *Manager) bulkRegisterAtomic(ctx context.Context, items []RegisterInput) (*BulkResult, error) {
	scope := m.client.Scope()
	if err := scope.Begin(ctx); err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for i, item := range items {
		if _, err := m.registerInScope(ctx, scope, item); err != nil {
			_ = scope.Rollback()
			return nil, fmt.Errorf("item %d (external id %d): %w", i, item.ExternalID, err)
		}
		result.Registered++
	}

	if err := scope.Commit(); err != nil {
		_ = scope.Rollback()
		return nil, err
	}
	return result, nil
}

func (m *Manager) bulkRegisterLenient(ctx context.Context, items []RegisterInput) *BulkResult {
	result := &BulkResult{}
	for i, item := range items {
		if _, err := m.Register(ctx, item); err != nil {
			result.Errors = append(result.Errors, BulkError{
				Index:      i,
				ExternalID: item.ExternalID,
				Error:      err.Error(),
			})
			continue
		}
		result.Registered++
	}
	return result
}
