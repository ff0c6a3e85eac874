package report

import (
	"context"

	"github.com/inventra/backend/internal/domain/shared"
	"github.com/inventra/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// zeroResidue is the magnitude below which a running quantity is snapped
// to exact zero after an outbound movement, so fully consumed stock never
// carries a rounding residue into the balance or value columns.
var zeroResidue = decimal.New(1, -9)

// StockBalanceService replays the non-cancelled ledger up to a cutoff date
// and aggregates it into one opening/in/out/closing row per (item,
// warehouse) key.
type StockBalanceService struct {
	ledgerRepo stock.LedgerEntryRepository
	logger     *zap.Logger
}

// NewStockBalanceService creates a new StockBalanceService
func NewStockBalanceService(ledgerRepo stock.LedgerEntryRepository, logger *zap.Logger) *StockBalanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockBalanceService{
		ledgerRepo: ledgerRepo,
		logger:     logger.Named("stock-balance"),
	}
}

// balanceState is the running aggregation for one (item, warehouse) key
type balanceState struct {
	qty   decimal.Decimal
	value decimal.Decimal

	openingQty   decimal.Decimal
	openingValue decimal.Decimal

	inQty    decimal.Decimal
	inValue  decimal.Decimal
	outQty   decimal.Decimal
	outValue decimal.Decimal
}

func newBalanceState() *balanceState {
	return &balanceState{
		qty: decimal.Zero, value: decimal.Zero,
		openingQty: decimal.Zero, openingValue: decimal.Zero,
		inQty: decimal.Zero, inValue: decimal.Zero,
		outQty: decimal.Zero, outValue: decimal.Zero,
	}
}

// Compute builds the stock balance report. Entries dated before FromDate
// fold into the opening snapshot; entries inside the window accumulate
// into the in/out movement totals. Row order is stable by first-seen key.
func (s *StockBalanceService) Compute(ctx context.Context, filters BalanceFilters) ([]BalanceRow, error) {
	if filters.ToDate == nil {
		return nil, shared.NewDomainError("MISSING_TO_DATE", "Stock balance report requires a to_date filter")
	}

	entries, err := s.ledgerRepo.Find(ctx, stock.LedgerQuery{
		Item:      filters.Item,
		Warehouse: filters.Warehouse,
		ToDate:    filters.ToDate,
	})
	if err != nil {
		return nil, err
	}

	states := make(map[balanceKey]*balanceState)
	keyOrder := make([]balanceKey, 0)

	for i := range entries {
		entry := &entries[i]
		key := balanceKey{entry.Item, entry.Warehouse}
		state, ok := states[key]
		if !ok {
			state = newBalanceState()
			states[key] = state
			keyOrder = append(keyOrder, key)
		}

		// Entries before the window move the opening snapshot instead
		// of the period totals.
		if filters.FromDate != nil && entry.PostingDate.Before(*filters.FromDate) {
			state.qty = state.qty.Add(entry.QtyChange)
			state.value = state.value.Add(entry.QtyChange.Mul(entry.ValuationRate))
			state.openingQty = state.qty
			state.openingValue = state.value
			continue
		}

		if entry.QtyChange.IsPositive() {
			valueIn := entry.QtyChange.Mul(entry.ValuationRate)
			state.qty = state.qty.Add(entry.QtyChange)
			state.value = state.value.Add(valueIn)
			state.inQty = state.inQty.Add(entry.QtyChange)
			state.inValue = state.inValue.Add(valueIn)
		} else if entry.QtyChange.IsNegative() {
			qtyOut := entry.QtyChange.Abs()
			avgRate := decimal.Zero
			if !state.qty.IsZero() {
				avgRate = state.value.Div(state.qty)
			}
			valueOut := qtyOut.Mul(avgRate)
			state.qty = state.qty.Sub(qtyOut)
			state.value = state.value.Sub(valueOut)

			if state.qty.Abs().LessThan(zeroResidue) {
				state.qty = decimal.Zero
				state.value = decimal.Zero
			}

			state.outQty = state.outQty.Add(qtyOut)
			state.outValue = state.outValue.Add(valueOut)
		}
	}

	rows := make([]BalanceRow, 0, len(keyOrder))
	for _, key := range keyOrder {
		state := states[key]
		valuationRate := decimal.Zero
		if !state.qty.IsZero() {
			valuationRate = state.value.Div(state.qty)
		}
		rows = append(rows, BalanceRow{
			Item:          key.item,
			Warehouse:     key.warehouse,
			OpeningQty:    state.openingQty,
			OpeningValue:  state.openingValue,
			InQty:         state.inQty,
			InValue:       state.inValue,
			OutQty:        state.outQty,
			OutValue:      state.outValue,
			BalanceQty:    state.qty,
			BalanceValue:  state.value,
			ValuationRate: valuationRate,
		})
	}

	s.logger.Debug("stock balance computed",
		zap.Int("entries", len(entries)),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

// balanceKey identifies one (item, warehouse) aggregation key
type balanceKey struct {
	item      string
	warehouse string
}
