package stock

import (
	"time"

	"github.com/inventra/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// CreateStockEntryRequest carries the fields needed to open a draft
// stock movement document.
type CreateStockEntryRequest struct {
	EntryType       string
	PostingDate     time.Time
	SourceWarehouse string
	TargetWarehouse string
	Lines           []CreateStockEntryLine
}

// CreateStockEntryLine is a single requested line item. Rate is only
// honored for Receipts; other types have it derived at submit time.
type CreateStockEntryLine struct {
	Item          string
	Qty           decimal.Decimal
	ValuationRate decimal.Decimal
}

// StockEntryLineResponse represents a line item in service responses
type StockEntryLineResponse struct {
	Item          string          `json:"item"`
	Qty           decimal.Decimal `json:"qty"`
	ValuationRate decimal.Decimal `json:"valuation_rate"`
}

// StockEntryResponse represents a stock entry document in service responses
type StockEntryResponse struct {
	ID              string                   `json:"id"`
	Name            string                   `json:"name"`
	EntryType       string                   `json:"entry_type"`
	Status          string                   `json:"status"`
	PostingDate     string                   `json:"posting_date"`
	SourceWarehouse string                   `json:"source_warehouse,omitempty"`
	TargetWarehouse string                   `json:"target_warehouse,omitempty"`
	Lines           []StockEntryLineResponse `json:"lines"`
}

// toStockEntryResponse maps a domain document to its response form
func toStockEntryResponse(entry *stock.StockEntry) *StockEntryResponse {
	lines := make([]StockEntryLineResponse, len(entry.Lines))
	for i, line := range entry.Lines {
		lines[i] = StockEntryLineResponse{
			Item:          line.Item,
			Qty:           line.Qty,
			ValuationRate: line.ValuationRate,
		}
	}
	return &StockEntryResponse{
		ID:              entry.ID.String(),
		Name:            entry.Name,
		EntryType:       entry.EntryType.String(),
		Status:          entry.Status.String(),
		PostingDate:     entry.PostingDate.Format("2006-01-02"),
		SourceWarehouse: entry.SourceWarehouse,
		TargetWarehouse: entry.TargetWarehouse,
		Lines:           lines,
	}
}
