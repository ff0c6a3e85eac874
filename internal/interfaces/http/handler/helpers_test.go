package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/inventra/backend/internal/application/report"
	appstock "github.com/inventra/backend/internal/application/stock"
	"github.com/inventra/backend/internal/domain/shared"
	"github.com/inventra/backend/internal/domain/stock"
	"github.com/inventra/backend/internal/interfaces/http/dto"
	"github.com/inventra/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// fakeLedgerRepo is an in-memory stock.LedgerEntryRepository
type fakeLedgerRepo struct {
	entries []stock.LedgerEntry
}

func (f *fakeLedgerRepo) CreateBatch(_ context.Context, entries []*stock.LedgerEntry) error {
	for _, entry := range entries {
		f.entries = append(f.entries, *entry)
	}
	return nil
}

func (f *fakeLedgerRepo) Find(_ context.Context, query stock.LedgerQuery) ([]stock.LedgerEntry, error) {
	var result []stock.LedgerEntry
	for _, e := range f.entries {
		if e.IsCancelled {
			continue
		}
		if query.Item != "" && e.Item != query.Item {
			continue
		}
		if query.Warehouse != "" && e.Warehouse != query.Warehouse {
			continue
		}
		if query.StockEntryReference != "" && e.StockEntryReference != query.StockEntryReference {
			continue
		}
		if query.FromDate != nil && e.PostingDate.Before(*query.FromDate) {
			continue
		}
		if query.ToDate != nil && e.PostingDate.After(*query.ToDate) {
			continue
		}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].PostingDate.Equal(result[j].PostingDate) {
			return result[i].PostingDate.Before(result[j].PostingDate)
		}
		if query.OrderByWarehouse {
			return result[i].Warehouse < result[j].Warehouse
		}
		return false
	})
	return result, nil
}

func (f *fakeLedgerRepo) CancelByReference(_ context.Context, reference string) (int64, error) {
	var count int64
	for i := range f.entries {
		if f.entries[i].StockEntryReference == reference && !f.entries[i].IsCancelled {
			f.entries[i].IsCancelled = true
			count++
		}
	}
	return count, nil
}

func (f *fakeLedgerRepo) SumForValuation(_ context.Context, item, warehouse string) (stock.ValuationAggregate, error) {
	var agg stock.ValuationAggregate
	for _, e := range f.entries {
		if e.IsCancelled || e.Item != item || e.Warehouse != warehouse {
			continue
		}
		agg.TotalQty = agg.TotalQty.Add(e.QtyChange)
		agg.TotalValue = agg.TotalValue.Add(e.ValueChange())
	}
	return agg, nil
}

func (f *fakeLedgerRepo) LockKey(_ context.Context, _, _ string) error {
	return nil
}

// fakeEntryRepo is an in-memory stock.StockEntryRepository
type fakeEntryRepo struct {
	docs map[uuid.UUID]*stock.StockEntry
	seq  int64
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{docs: make(map[uuid.UUID]*stock.StockEntry)}
}

func (f *fakeEntryRepo) Create(_ context.Context, entry *stock.StockEntry) error {
	f.docs[entry.ID] = entry
	return nil
}

func (f *fakeEntryRepo) Save(_ context.Context, entry *stock.StockEntry) error {
	f.docs[entry.ID] = entry
	return nil
}

func (f *fakeEntryRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.StockEntry, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return doc, nil
}

func (f *fakeEntryRepo) FindByName(_ context.Context, name string) (*stock.StockEntry, error) {
	for _, doc := range f.docs {
		if doc.Name == name {
			return doc, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeEntryRepo) NextSequence(_ context.Context) (int64, error) {
	f.seq++
	return f.seq, nil
}

// testEnv wires real services over in-memory repositories behind a gin engine
type testEnv struct {
	engine     *gin.Engine
	ledgerRepo *fakeLedgerRepo
	entryRepo  *fakeEntryRepo
}

func newTestEnv() *testEnv {
	ledgerRepo := &fakeLedgerRepo{}
	entryRepo := newFakeEntryRepo()
	scope := appstock.NewNoOpTransactionScope(ledgerRepo, entryRepo)

	postingService := appstock.NewPostingService(scope, zap.NewNop())
	balanceService := report.NewStockBalanceService(ledgerRepo, zap.NewNop())
	ledgerService := report.NewStockLedgerService(ledgerRepo, zap.NewNop())
	valuationService := stock.NewValuationService(ledgerRepo)

	stockHandler := NewStockEntryHandler(postingService)
	reportHandler := NewReportHandler(balanceService, ledgerService, valuationService)

	engine := gin.New()
	engine.Use(middleware.RequestID())

	api := engine.Group("/api/v1")
	api.POST("/stock-entries", stockHandler.Create)
	api.GET("/stock-entries/:id", stockHandler.Get)
	api.POST("/stock-entries/:id/submit", stockHandler.Submit)
	api.POST("/stock-entries/:id/cancel", stockHandler.Cancel)
	api.GET("/reports/stock-balance", reportHandler.StockBalance)
	api.GET("/reports/stock-ledger", reportHandler.StockLedger)
	api.GET("/valuation-rate", reportHandler.ValuationRate)

	return &testEnv{
		engine:     engine,
		ledgerRepo: ledgerRepo,
		entryRepo:  entryRepo,
	}
}

// do performs a request against the test engine and decodes the envelope
func (env *testEnv) do(t *testing.T, method, path string, body any) (int, dto.Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

// createEntry creates a draft document and returns its response data
func (env *testEnv) createEntry(t *testing.T, body map[string]any) map[string]any {
	t.Helper()

	code, resp := env.do(t, http.MethodPost, "/api/v1/stock-entries", body)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, resp.Success)
	return resp.Data.(map[string]any)
}

// submitEntry submits a draft by ID and returns its response data
func (env *testEnv) submitEntry(t *testing.T, id string) map[string]any {
	t.Helper()

	code, resp := env.do(t, http.MethodPost, "/api/v1/stock-entries/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)
	return resp.Data.(map[string]any)
}

// receiptBody builds a Receipt creation payload with a single line
func receiptBody(item, warehouse string, qty, rate float64) map[string]any {
	return map[string]any{
		"entry_type":       "Receipt",
		"posting_date":     "2025-03-01",
		"target_warehouse": warehouse,
		"lines": []map[string]any{
			{"item": item, "qty": qty, "valuation_rate": rate},
		},
	}
}
