package stock

import (
	"time"

	"github.com/inventra/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LedgerEntry represents an immutable record of a signed quantity change
// for one item at one warehouse on one posting date, together with the
// valuation rate that priced the movement. Once created, entries are never
// modified - cancellation soft-deletes them via the IsCancelled flag, and
// every balance computation excludes cancelled entries.
//
// The chronologically ordered, non-cancelled entries for an (item, warehouse)
// pair fully determine the running balance and average rate at every point
// in time; no other state is authoritative.
type LedgerEntry struct {
	shared.BaseEntity
	Item                string          `gorm:"type:varchar(140);not null;index:idx_sle_item_warehouse,priority:1"`
	Warehouse           string          `gorm:"type:varchar(140);not null;index:idx_sle_item_warehouse,priority:2"`
	PostingDate         time.Time       `gorm:"type:date;not null;index:idx_sle_posting_date"`
	QtyChange           decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Signed: positive = inbound, negative = outbound, never zero
	ValuationRate       decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Monetary value per unit at recording time
	StockEntryReference string          `gorm:"type:varchar(140);not null;index:idx_sle_reference"`
	IsCancelled         bool            `gorm:"not null;default:false;index:idx_sle_cancelled"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "stock_ledger_entries"
}

// NewLedgerEntry creates a new ledger entry
func NewLedgerEntry(item, warehouse string, postingDate time.Time, qtyChange, valuationRate decimal.Decimal, reference string) (*LedgerEntry, error) {
	if item == "" {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item cannot be empty")
	}
	if warehouse == "" {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse cannot be empty")
	}
	if postingDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_POSTING_DATE", "Posting date is required")
	}
	if qtyChange.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity change cannot be zero")
	}
	if valuationRate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_RATE", "Valuation rate cannot be negative")
	}
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Stock entry reference cannot be empty")
	}

	return &LedgerEntry{
		BaseEntity:          shared.NewBaseEntity(),
		Item:                item,
		Warehouse:           warehouse,
		PostingDate:         postingDate,
		QtyChange:           qtyChange,
		ValuationRate:       valuationRate,
		StockEntryReference: reference,
	}, nil
}

// IsInbound returns true if the entry increases stock
func (e *LedgerEntry) IsInbound() bool {
	return e.QtyChange.IsPositive()
}

// IsOutbound returns true if the entry decreases stock
func (e *LedgerEntry) IsOutbound() bool {
	return e.QtyChange.IsNegative()
}

// QtyIn returns the positive component of the quantity change, zero otherwise
func (e *LedgerEntry) QtyIn() decimal.Decimal {
	if e.QtyChange.IsPositive() {
		return e.QtyChange
	}
	return decimal.Zero
}

// QtyOut returns the negative-or-zero component of the quantity change
func (e *LedgerEntry) QtyOut() decimal.Decimal {
	if e.QtyChange.IsNegative() {
		return e.QtyChange
	}
	return decimal.Zero
}

// ValueChange returns qty_change * valuation_rate
func (e *LedgerEntry) ValueChange() decimal.Decimal {
	return e.QtyChange.Mul(e.ValuationRate)
}
