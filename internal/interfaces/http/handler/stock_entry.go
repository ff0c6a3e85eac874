package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appstock "github.com/inventra/backend/internal/application/stock"
	"github.com/inventra/backend/internal/interfaces/http/dto"
	"github.com/inventra/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// StockEntryHandler exposes the stock entry document lifecycle over HTTP
type StockEntryHandler struct {
	BaseHandler
	service *appstock.PostingService
}

// NewStockEntryHandler creates a new StockEntryHandler
func NewStockEntryHandler(service *appstock.PostingService) *StockEntryHandler {
	return &StockEntryHandler{service: service}
}

// createStockEntryRequest is the JSON payload for creating a draft document
type createStockEntryRequest struct {
	EntryType       string                  `json:"entry_type" binding:"required,oneof=Receipt Consume Transfer"`
	PostingDate     string                  `json:"posting_date" binding:"required,datetime=2006-01-02"`
	SourceWarehouse string                  `json:"source_warehouse"`
	TargetWarehouse string                  `json:"target_warehouse"`
	Lines           []stockEntryLinePayload `json:"lines" binding:"required,min=1,dive"`
}

// stockEntryLinePayload is one requested line item
type stockEntryLinePayload struct {
	Item          string          `json:"item" binding:"required"`
	Qty           decimal.Decimal `json:"qty"`
	ValuationRate decimal.Decimal `json:"valuation_rate"`
}

// Create handles POST /stock-entries
func (h *StockEntryHandler) Create(c *gin.Context) {
	var req createStockEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	postingDate, err := time.Parse("2006-01-02", req.PostingDate)
	if err != nil {
		h.BadRequest(c, "Invalid posting_date, expected YYYY-MM-DD")
		return
	}

	lines := make([]appstock.CreateStockEntryLine, len(req.Lines))
	for i, line := range req.Lines {
		lines[i] = appstock.CreateStockEntryLine{
			Item:          line.Item,
			Qty:           line.Qty,
			ValuationRate: line.ValuationRate,
		}
	}

	entry, err := h.service.CreateDraft(c.Request.Context(), appstock.CreateStockEntryRequest{
		EntryType:       req.EntryType,
		PostingDate:     postingDate,
		SourceWarehouse: req.SourceWarehouse,
		TargetWarehouse: req.TargetWarehouse,
		Lines:           lines,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, entry)
}

// Get handles GET /stock-entries/:id
func (h *StockEntryHandler) Get(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	entry, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// Submit handles POST /stock-entries/:id/submit
func (h *StockEntryHandler) Submit(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	entry, err := h.service.Submit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// Cancel handles POST /stock-entries/:id/cancel
func (h *StockEntryHandler) Cancel(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	entry, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// bindID parses the :id path parameter
func (h *StockEntryHandler) bindID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid stock entry ID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid stock entry ID")
		return uuid.Nil, false
	}
	return id, true
}
