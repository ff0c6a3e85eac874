package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inventra/backend/internal/application/report"
	"github.com/inventra/backend/internal/domain/stock"
)

// ReportHandler exposes the stock reports and the valuation rate lookup
type ReportHandler struct {
	BaseHandler
	balanceService *report.StockBalanceService
	ledgerService  *report.StockLedgerService
	valuation      *stock.ValuationService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(
	balanceService *report.StockBalanceService,
	ledgerService *report.StockLedgerService,
	valuation *stock.ValuationService,
) *ReportHandler {
	return &ReportHandler{
		balanceService: balanceService,
		ledgerService:  ledgerService,
		valuation:      valuation,
	}
}

// balanceQuery is the query string for GET /reports/stock-balance
type balanceQuery struct {
	Item      string `form:"item"`
	Warehouse string `form:"warehouse"`
	FromDate  string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate    string `form:"to_date" binding:"required,datetime=2006-01-02"`
}

// StockBalance handles GET /reports/stock-balance
func (h *ReportHandler) StockBalance(c *gin.Context) {
	var query balanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid stock balance filters: to_date is required as YYYY-MM-DD")
		return
	}

	filters := report.BalanceFilters{
		Item:      query.Item,
		Warehouse: query.Warehouse,
	}
	if date, ok := parseDate(query.FromDate); ok {
		filters.FromDate = date
	}
	if date, ok := parseDate(query.ToDate); ok {
		filters.ToDate = date
	}

	rows, err := h.balanceService.Compute(c.Request.Context(), filters)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}

// ledgerQuery is the query string for GET /reports/stock-ledger
type ledgerQuery struct {
	Item                string `form:"item"`
	Warehouse           string `form:"warehouse"`
	FromDate            string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate              string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
	StockEntryReference string `form:"stock_entry_reference"`
}

// StockLedger handles GET /reports/stock-ledger
func (h *ReportHandler) StockLedger(c *gin.Context) {
	var query ledgerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid stock ledger filters: dates must be YYYY-MM-DD")
		return
	}

	filters := report.LedgerFilters{
		Item:                query.Item,
		Warehouse:           query.Warehouse,
		StockEntryReference: query.StockEntryReference,
	}
	if date, ok := parseDate(query.FromDate); ok {
		filters.FromDate = date
	}
	if date, ok := parseDate(query.ToDate); ok {
		filters.ToDate = date
	}

	rows, err := h.ledgerService.Compute(c.Request.Context(), filters)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}

// valuationQuery is the query string for GET /valuation-rate
type valuationQuery struct {
	Item      string `form:"item" binding:"required"`
	Warehouse string `form:"warehouse" binding:"required"`
}

// valuationRateResponse is the payload for GET /valuation-rate
type valuationRateResponse struct {
	Item          string `json:"item"`
	Warehouse     string `json:"warehouse"`
	ValuationRate string `json:"valuation_rate"`
}

// ValuationRate handles GET /valuation-rate
func (h *ReportHandler) ValuationRate(c *gin.Context) {
	var query valuationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "item and warehouse are required")
		return
	}

	rate, err := h.valuation.AverageCost(c.Request.Context(), query.Item, query.Warehouse)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, valuationRateResponse{
		Item:          query.Item,
		Warehouse:     query.Warehouse,
		ValuationRate: rate.String(),
	})
}

// parseDate parses a YYYY-MM-DD string, returning ok=false when empty
func parseDate(value string) (*time.Time, bool) {
	if value == "" {
		return nil, false
	}
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, false
	}
	return &date, true
}
