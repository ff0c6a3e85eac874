package stock

import (
	"context"

	"github.com/shopspring/decimal"
)

// ValuationService computes the current weighted-average cost of an
// (item, warehouse) pair from the ledger. The average reflects the cost
// basis at call time, not as of a historical date; it is what prices
// outbound movements during the pre-submit valuation pass.
type ValuationService struct {
	ledgerRepo LedgerEntryRepository
}

// NewValuationService creates a new ValuationService
func NewValuationService(ledgerRepo LedgerEntryRepository) *ValuationService {
	return &ValuationService{ledgerRepo: ledgerRepo}
}

// AverageCost returns SUM(qty_change * valuation_rate) / SUM(qty_change)
// over all non-cancelled ledger entries for the key. Returns zero when no
// stock is held. Pure read; never mutates the ledger.
//
// Recomputing the two aggregates from the full entry history on each call is
// correctness-first: any incremental cache must stay exactly equivalent to
// this computation.
func (s *ValuationService) AverageCost(ctx context.Context, item, warehouse string) (decimal.Decimal, error) {
	agg, err := s.ledgerRepo.SumForValuation(ctx, item, warehouse)
	if err != nil {
		return decimal.Zero, err
	}
	return agg.AverageRate(), nil
}
