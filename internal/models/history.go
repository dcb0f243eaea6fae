package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChangeType classifies what a history entry documents.
type ChangeType string

const (
	ChangeTypeStock ChangeType = "stock_change"
	ChangeTypePrice ChangeType = "price_change"
	ChangeTypeBoth  ChangeType = "both"
)

// Valid reports whether t is a known change type.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeTypeStock, ChangeTypePrice, ChangeTypeBoth:
		return true
	}
	return false
}

// HistoryEntry is an immutable audit record of one state transition.
// Entries are only ever inserted; they are removed solely as a cascade
// of their parent record's deletion.
type HistoryEntry struct {
	ID            int64            `json:"id" db:"id"`
	RecordID      int64            `json:"record_id" db:"record_id"`
	PreviousStock *int             `json:"previous_stock,omitempty" db:"previous_stock"`
	NewStock      *int             `json:"new_stock,omitempty" db:"new_stock"`
	PreviousPrice *decimal.Decimal `json:"previous_price,omitempty" db:"previous_price"`
	NewPrice      *decimal.Decimal `json:"new_price,omitempty" db:"new_price"`
	ChangeType    ChangeType       `json:"change_type" db:"change_type"`
	ChangeSource  string           `json:"change_source" db:"change_source"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// DeriveChangeType classifies a transition from its before/after pairs.
// A nil pair means that dimension did not participate in the transition.
func DeriveChangeType(prevStock, newStock *int, prevPrice, newPrice *decimal.Decimal) ChangeType {
	stockChanged := prevStock != nil && newStock != nil && *prevStock != *newStock
	priceChanged := prevPrice != nil && newPrice != nil && !prevPrice.Equal(*newPrice)

	switch {
	case stockChanged && priceChanged:
		return ChangeTypeBoth
	case priceChanged:
		return ChangeTypePrice
	default:
		return ChangeTypeStock
	}
}
