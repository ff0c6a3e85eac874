package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceFilters narrows the ledger slice fed to the stock balance report.
// ToDate is required; everything dated after it never reaches the
// aggregation. FromDate splits the remaining entries into the opening
// period and the movement period.
type BalanceFilters struct {
	Item      string
	Warehouse string
	FromDate  *time.Time
	ToDate    *time.Time
}

// BalanceRow is one (item, warehouse) row of the stock balance report
type BalanceRow struct {
	Item          string          `json:"item"`
	Warehouse     string          `json:"warehouse"`
	OpeningQty    decimal.Decimal `json:"opening_qty"`
	OpeningValue  decimal.Decimal `json:"opening_value"`
	InQty         decimal.Decimal `json:"in_qty"`
	InValue       decimal.Decimal `json:"in_value"`
	OutQty        decimal.Decimal `json:"out_qty"`
	OutValue      decimal.Decimal `json:"out_value"`
	BalanceQty    decimal.Decimal `json:"balance_qty"`
	BalanceValue  decimal.Decimal `json:"balance_value"`
	ValuationRate decimal.Decimal `json:"valuation_rate"`
}

// LedgerFilters narrows the ledger slice fed to the stock ledger report
type LedgerFilters struct {
	Item                string
	Warehouse           string
	FromDate            *time.Time
	ToDate              *time.Time
	StockEntryReference string
}

// LedgerRow is one per-entry row of the stock ledger report. Balance and
// AvgRate are the running values for the row's (item, warehouse) key as of
// and including this entry; QtyOut carries the signed (non-positive)
// outbound component.
type LedgerRow struct {
	PostingDate         string          `json:"posting_date"`
	Item                string          `json:"item"`
	Warehouse           string          `json:"warehouse"`
	QtyIn               decimal.Decimal `json:"qty_in"`
	QtyOut              decimal.Decimal `json:"qty_out"`
	Balance             decimal.Decimal `json:"balance"`
	AvgRate             decimal.Decimal `json:"avg_rate"`
	BalanceValue        decimal.Decimal `json:"balance_value"`
	ValuationRate       decimal.Decimal `json:"valuation_rate"`
	StockEntryReference string          `json:"stock_entry_reference"`
}
