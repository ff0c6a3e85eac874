package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerQuery filters the ledger entry stream. Results are always restricted
// to non-cancelled entries and ordered by posting_date ascending; set
// OrderByWarehouse for a secondary warehouse ascending sort (stock ledger
// report contract).
type LedgerQuery struct {
	Item                string
	Warehouse           string
	FromDate            *time.Time
	ToDate              *time.Time
	StockEntryReference string
	OrderByWarehouse    bool
}

// ValuationAggregate holds the two running aggregates that determine the
// weighted-average cost of an (item, warehouse) pair.
type ValuationAggregate struct {
	TotalQty   decimal.Decimal
	TotalValue decimal.Decimal
}

// AverageRate returns total value over total quantity, or zero when the
// summed quantity is zero. Zero is a defined zero-cost state, not an error.
func (a ValuationAggregate) AverageRate() decimal.Decimal {
	if a.TotalQty.IsZero() {
		return decimal.Zero
	}
	return a.TotalValue.Div(a.TotalQty)
}

// LedgerEntryRepository defines persistence operations for ledger entries.
// Entries are append-only: there is no update, and removal happens only as
// a bulk soft-cancel by document reference.
type LedgerEntryRepository interface {
	// CreateBatch appends entries atomically within the current transaction
	CreateBatch(ctx context.Context, entries []*LedgerEntry) error

	// Find returns the non-cancelled entries matching the query, ordered by
	// posting date ascending (then warehouse ascending when requested)
	Find(ctx context.Context, query LedgerQuery) ([]LedgerEntry, error)

	// CancelByReference soft-cancels all entries for a document reference and
	// returns the number of entries affected. A zero count is not an error.
	CancelByReference(ctx context.Context, reference string) (int64, error)

	// SumForValuation returns SUM(qty_change) and SUM(qty_change * valuation_rate)
	// over all non-cancelled entries for the key
	SumForValuation(ctx context.Context, item, warehouse string) (ValuationAggregate, error)

	// LockKey serializes concurrent postings that touch the same
	// (item, warehouse) pair for the remainder of the current transaction
	LockKey(ctx context.Context, item, warehouse string) error
}

// StockEntryRepository defines persistence operations for stock entry documents
type StockEntryRepository interface {
	Create(ctx context.Context, entry *StockEntry) error
	Save(ctx context.Context, entry *StockEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*StockEntry, error)
	FindByName(ctx context.Context, name string) (*StockEntry, error)
	// NextSequence returns the next value of the document naming sequence
	NextSequence(ctx context.Context) (int64, error)
}
