package report

import (
	"context"

	"github.com/inventra/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockLedgerService projects the non-cancelled ledger into one row per
// entry, each annotated with its key's running balance and running moving
// average as of that entry.
type StockLedgerService struct {
	ledgerRepo stock.LedgerEntryRepository
	logger     *zap.Logger
}

// NewStockLedgerService creates a new StockLedgerService
func NewStockLedgerService(ledgerRepo stock.LedgerEntryRepository, logger *zap.Logger) *StockLedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockLedgerService{
		ledgerRepo: ledgerRepo,
		logger:     logger.Named("stock-ledger"),
	}
}

// Compute builds the stock ledger report, ordered by posting date then
// warehouse. The running average for a key moves only on inbound rows;
// outbound rows consume at the standing average and leave it unchanged.
func (s *StockLedgerService) Compute(ctx context.Context, filters LedgerFilters) ([]LedgerRow, error) {
	entries, err := s.ledgerRepo.Find(ctx, stock.LedgerQuery{
		Item:                filters.Item,
		Warehouse:           filters.Warehouse,
		FromDate:            filters.FromDate,
		ToDate:              filters.ToDate,
		StockEntryReference: filters.StockEntryReference,
		OrderByWarehouse:    true,
	})
	if err != nil {
		return nil, err
	}

	balances := make(map[balanceKey]decimal.Decimal)
	avgRates := make(map[balanceKey]decimal.Decimal)

	rows := make([]LedgerRow, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		key := balanceKey{entry.Item, entry.Warehouse}

		balance, ok := balances[key]
		if !ok {
			balance = decimal.Zero
			avgRates[key] = decimal.Zero
		}
		avgRate := avgRates[key]

		qtyIn := decimal.Zero
		qtyOut := decimal.Zero
		if entry.QtyChange.IsPositive() {
			qtyIn = entry.QtyChange
		} else if entry.QtyChange.IsNegative() {
			qtyOut = entry.QtyChange
		}

		if qtyIn.IsPositive() {
			totalValue := balance.Mul(avgRate).Add(qtyIn.Mul(entry.ValuationRate))
			newQty := balance.Add(qtyIn)
			if newQty.IsZero() {
				avgRate = decimal.Zero
			} else {
				avgRate = totalValue.Div(newQty)
			}
			avgRates[key] = avgRate
		}

		balance = balance.Add(entry.QtyChange)
		balances[key] = balance

		rows = append(rows, LedgerRow{
			PostingDate:         entry.PostingDate.Format("2006-01-02"),
			Item:                entry.Item,
			Warehouse:           entry.Warehouse,
			QtyIn:               qtyIn,
			QtyOut:              qtyOut,
			Balance:             balance,
			AvgRate:             avgRate,
			BalanceValue:        balance.Mul(avgRate),
			ValuationRate:       entry.ValuationRate,
			StockEntryReference: entry.StockEntryReference,
		})
	}

	s.logger.Debug("stock ledger computed", zap.Int("rows", len(rows)))
	return rows, nil
}
