package persistence

import (
	"context"

	"github.com/inventra/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerEntryRepository implements LedgerEntryRepository using GORM
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// CreateBatch inserts the given ledger entries (append-only, no update allowed)
func (r *GormLedgerEntryRepository) CreateBatch(ctx context.Context, entries []*stock.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// Find returns the non-cancelled entries matching the query, ordered by
// posting date ascending and optionally by warehouse within the same date.
func (r *GormLedgerEntryRepository) Find(ctx context.Context, query stock.LedgerQuery) ([]stock.LedgerEntry, error) {
	q := r.db.WithContext(ctx).
		Model(&stock.LedgerEntry{}).
		Where("is_cancelled = ?", false)

	if query.Item != "" {
		q = q.Where("item = ?", query.Item)
	}
	if query.Warehouse != "" {
		q = q.Where("warehouse = ?", query.Warehouse)
	}
	if query.StockEntryReference != "" {
		q = q.Where("stock_entry_reference = ?", query.StockEntryReference)
	}
	if query.FromDate != nil {
		q = q.Where("posting_date >= ?", *query.FromDate)
	}
	if query.ToDate != nil {
		q = q.Where("posting_date <= ?", *query.ToDate)
	}

	if query.OrderByWarehouse {
		q = q.Order("posting_date ASC, warehouse ASC")
	} else {
		q = q.Order("posting_date ASC")
	}

	var entries []stock.LedgerEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CancelByReference flags every active entry carrying the reference as
// cancelled and returns how many entries were affected. Flagging zero
// entries is not an error.
func (r *GormLedgerEntryRepository) CancelByReference(ctx context.Context, reference string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&stock.LedgerEntry{}).
		Where("stock_entry_reference = ? AND is_cancelled = ?", reference, false).
		Update("is_cancelled", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SumForValuation returns the quantity and value totals over all
// non-cancelled entries for the (item, warehouse) key.
func (r *GormLedgerEntryRepository) SumForValuation(ctx context.Context, item, warehouse string) (stock.ValuationAggregate, error) {
	var result struct {
		TotalQty   decimal.Decimal
		TotalValue decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&stock.LedgerEntry{}).
		Select("COALESCE(SUM(qty_change), 0) as total_qty, COALESCE(SUM(qty_change * valuation_rate), 0) as total_value").
		Where("item = ? AND warehouse = ? AND is_cancelled = ?", item, warehouse, false).
		Scan(&result).Error
	if err != nil {
		return stock.ValuationAggregate{}, err
	}
	return stock.ValuationAggregate{
		TotalQty:   result.TotalQty,
		TotalValue: result.TotalValue,
	}, nil
}

// LockKey serializes postings on one (item, warehouse) key for the rest of
// the current transaction. On PostgreSQL this takes a transaction-scoped
// advisory lock; other dialects fall through to their inherent write
// serialization.
func (r *GormLedgerEntryRepository) LockKey(ctx context.Context, item, warehouse string) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", item+"/"+warehouse).Error
}

// Ensure GormLedgerEntryRepository implements LedgerEntryRepository
var _ stock.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)
