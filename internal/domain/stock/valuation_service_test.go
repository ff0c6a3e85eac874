package stock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLedgerRepo returns canned valuation aggregates keyed by item|warehouse
type stubLedgerRepo struct {
	LedgerEntryRepository
	aggregates map[string]ValuationAggregate
}

func (s *stubLedgerRepo) SumForValuation(_ context.Context, item, warehouse string) (ValuationAggregate, error) {
	return s.aggregates[item+"|"+warehouse], nil
}

func TestValuationAggregate_AverageRate(t *testing.T) {
	t.Run("divides value by quantity", func(t *testing.T) {
		agg := ValuationAggregate{
			TotalQty:   decimal.NewFromInt(16),
			TotalValue: decimal.NewFromInt(110),
		}

		assert.Equal(t, "6.875", agg.AverageRate().String())
	})

	t.Run("zero quantity resolves to zero rate", func(t *testing.T) {
		agg := ValuationAggregate{
			TotalQty:   decimal.Zero,
			TotalValue: decimal.NewFromInt(50),
		}

		assert.True(t, agg.AverageRate().IsZero())
	})
}

func TestValuationService_AverageCost(t *testing.T) {
	repo := &stubLedgerRepo{aggregates: map[string]ValuationAggregate{
		"ITEM-A|WH-MAIN": {
			// Receipt 10 @ 5, Consume 4 @ 5, Receipt 10 @ 8
			TotalQty:   decimal.NewFromInt(16),
			TotalValue: decimal.NewFromInt(110),
		},
		"ITEM-B|WH-MAIN": {
			// Fully consumed
			TotalQty:   decimal.Zero,
			TotalValue: decimal.Zero,
		},
	}}
	svc := NewValuationService(repo)

	t.Run("weighted average over ledger history", func(t *testing.T) {
		rate, err := svc.AverageCost(context.Background(), "ITEM-A", "WH-MAIN")

		require.NoError(t, err)
		assert.Equal(t, "6.875", rate.String())
	})

	t.Run("empty ledger yields zero", func(t *testing.T) {
		rate, err := svc.AverageCost(context.Background(), "ITEM-UNKNOWN", "WH-MAIN")

		require.NoError(t, err)
		assert.True(t, rate.IsZero())
	})

	t.Run("zero net stock yields zero", func(t *testing.T) {
		rate, err := svc.AverageCost(context.Background(), "ITEM-B", "WH-MAIN")

		require.NoError(t, err)
		assert.True(t, rate.IsZero())
	})
}
