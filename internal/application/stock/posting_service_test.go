package stock

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inventra/backend/internal/domain/shared"
	"github.com/inventra/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryLedgerRepo is an in-memory LedgerEntryRepository for tests
type memoryLedgerRepo struct {
	entries    []stock.LedgerEntry
	failCreate error // returned by CreateBatch when set
}

func (m *memoryLedgerRepo) CreateBatch(_ context.Context, entries []*stock.LedgerEntry) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	for _, e := range entries {
		m.entries = append(m.entries, *e)
	}
	return nil
}

func (m *memoryLedgerRepo) Find(_ context.Context, query stock.LedgerQuery) ([]stock.LedgerEntry, error) {
	result := make([]stock.LedgerEntry, 0)
	for _, e := range m.entries {
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

func (m *memoryLedgerRepo) CancelByReference(_ context.Context, reference string) (int64, error) {
	var n int64
	for i := range m.entries {
		if m.entries[i].StockEntryReference == reference && !m.entries[i].IsCancelled {
			m.entries[i].IsCancelled = true
			n++
		}
	}
	return n, nil
}

func (m *memoryLedgerRepo) SumForValuation(_ context.Context, item, warehouse string) (stock.ValuationAggregate, error) {
	agg := stock.ValuationAggregate{TotalQty: decimal.Zero, TotalValue: decimal.Zero}
	for _, e := range m.entries {
		if e.IsCancelled || e.Item != item || e.Warehouse != warehouse {
			continue
		}
		agg.TotalQty = agg.TotalQty.Add(e.QtyChange)
		agg.TotalValue = agg.TotalValue.Add(e.QtyChange.Mul(e.ValuationRate))
	}
	return agg, nil
}

func (m *memoryLedgerRepo) LockKey(_ context.Context, _, _ string) error {
	return nil
}

// memoryEntryRepo is an in-memory StockEntryRepository for tests
type memoryEntryRepo struct {
	docs map[uuid.UUID]*stock.StockEntry
	seq  int64
}

func newMemoryEntryRepo() *memoryEntryRepo {
	return &memoryEntryRepo{docs: make(map[uuid.UUID]*stock.StockEntry)}
}

func (m *memoryEntryRepo) Create(_ context.Context, entry *stock.StockEntry) error {
	m.docs[entry.ID] = entry
	return nil
}

func (m *memoryEntryRepo) Save(_ context.Context, entry *stock.StockEntry) error {
	m.docs[entry.ID] = entry
	return nil
}

func (m *memoryEntryRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.StockEntry, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return doc, nil
}

func (m *memoryEntryRepo) FindByName(_ context.Context, name string) (*stock.StockEntry, error) {
	for _, doc := range m.docs {
		if doc.Name == name {
			return doc, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryEntryRepo) NextSequence(_ context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

// memoryTransactionScope emulates transactional rollback by restoring
// repository snapshots when the scoped function fails.
type memoryTransactionScope struct {
	ledgerRepo *memoryLedgerRepo
	entryRepo  *memoryEntryRepo
}

func (s *memoryTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	ledgerSnapshot := make([]stock.LedgerEntry, len(s.ledgerRepo.entries))
	copy(ledgerSnapshot, s.ledgerRepo.entries)

	docSnapshot := make(map[uuid.UUID]*stock.StockEntry, len(s.entryRepo.docs))
	for id, doc := range s.entryRepo.docs {
		clone := *doc
		clone.Lines = make([]stock.StockEntryLine, len(doc.Lines))
		copy(clone.Lines, doc.Lines)
		docSnapshot[id] = &clone
	}
	seqSnapshot := s.entryRepo.seq

	if err := fn(s); err != nil {
		s.ledgerRepo.entries = ledgerSnapshot
		s.entryRepo.docs = docSnapshot
		s.entryRepo.seq = seqSnapshot
		return err
	}
	return nil
}

func (s *memoryTransactionScope) LedgerRepo() stock.LedgerEntryRepository { return s.ledgerRepo }
func (s *memoryTransactionScope) EntryRepo() stock.StockEntryRepository  { return s.entryRepo }

func newTestPostingService() (*PostingService, *memoryLedgerRepo, *memoryEntryRepo) {
	ledgerRepo := &memoryLedgerRepo{}
	entryRepo := newMemoryEntryRepo()
	scope := &memoryTransactionScope{ledgerRepo: ledgerRepo, entryRepo: entryRepo}
	return NewPostingService(scope, nil), ledgerRepo, entryRepo
}

func marchDay(day int) time.Time {
	return time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC)
}

func submitEntry(t *testing.T, svc *PostingService, req CreateStockEntryRequest) *StockEntryResponse {
	t.Helper()
	draft, err := svc.CreateDraft(context.Background(), req)
	require.NoError(t, err)

	submitted, err := svc.Submit(context.Background(), uuid.MustParse(draft.ID))
	require.NoError(t, err)
	return submitted
}

func TestPostingService_CreateDraft(t *testing.T) {
	t.Run("names documents sequentially", func(t *testing.T) {
		svc, _, _ := newTestPostingService()

		first, err := svc.CreateDraft(context.Background(), CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(1),
			TargetWarehouse: "WH-MAIN",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(10), ValuationRate: decimal.NewFromInt(5)}},
		})
		require.NoError(t, err)
		assert.Equal(t, "STE-2025-00001", first.Name)
		assert.Equal(t, "Draft", first.Status)

		second, err := svc.CreateDraft(context.Background(), CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(2),
			TargetWarehouse: "WH-MAIN",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(1), ValuationRate: decimal.NewFromInt(5)}},
		})
		require.NoError(t, err)
		assert.Equal(t, "STE-2025-00002", second.Name)
	})

	t.Run("rejects unknown entry type", func(t *testing.T) {
		svc, _, _ := newTestPostingService()

		_, err := svc.CreateDraft(context.Background(), CreateStockEntryRequest{
			EntryType:   "Repack",
			PostingDate: marchDay(1),
			Lines:       []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(1)}},
		})
		require.Error(t, err)
	})

	t.Run("rejects empty line list", func(t *testing.T) {
		svc, _, _ := newTestPostingService()

		_, err := svc.CreateDraft(context.Background(), CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(1),
			TargetWarehouse: "WH-MAIN",
		})
		require.Error(t, err)
	})

	t.Run("rejects non-positive quantity without side effects", func(t *testing.T) {
		svc, _, entryRepo := newTestPostingService()

		_, err := svc.CreateDraft(context.Background(), CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(1),
			TargetWarehouse: "WH-MAIN",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.Zero, ValuationRate: decimal.NewFromInt(5)}},
		})
		require.Error(t, err)
		assert.Empty(t, entryRepo.docs)
	})
}

func TestPostingService_Submit(t *testing.T) {
	t.Run("receipt keeps the supplied rate", func(t *testing.T) {
		svc, ledgerRepo, _ := newTestPostingService()

		submitEntry(t, svc, CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(1),
			TargetWarehouse: "WH-MAIN",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(10), ValuationRate: decimal.NewFromInt(5)}},
		})

		require.Len(t, ledgerRepo.entries, 1)
		assert.Equal(t, "10", ledgerRepo.entries[0].QtyChange.String())
		assert.Equal(t, "5", ledgerRepo.entries[0].ValuationRate.String())

		rate, err := stock.NewValuationService(ledgerRepo).AverageCost(context.Background(), "ITEM-A", "WH-MAIN")
		require.NoError(t, err)
		assert.Equal(t, "5", rate.String())
	})

	t.Run("consume derives the rate and leaves the average unchanged", func(t *testing.T) {
		svc, ledgerRepo, _ := newTestPostingService()

		submitEntry(t, svc, CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(1),
			TargetWarehouse: "WH-MAIN",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(10), ValuationRate: decimal.NewFromInt(5)}},
		})
		submitEntry(t, svc, CreateStockEntryRequest{
			EntryType:       "Consume",
			PostingDate:     marchDay(2),
			SourceWarehouse: "WH-MAIN",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(4)}},
		})

		require.Len(t, ledgerRepo.entries, 2)
		consumed := ledgerRepo.entries[1]
		assert.Equal(t, "-4", consumed.QtyChange.String())
		assert.Equal(t, "5", consumed.ValuationRate.String())

		agg, err := ledgerRepo.SumForValuation(context.Background(), "ITEM-A", "WH-MAIN")
		require.NoError(t, err)
		assert.Equal(t, "6", agg.TotalQty.String())
		assert.Equal(t, "5", agg.AverageRate().String())
	})

	t.Run("subsequent receipt shifts the weighted average", func(t *testing.T) {
		svc, ledgerRepo, _ := newTestPostingService()

		submitEntry(t, svc, CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(1),
			TargetWarehouse: "WH-MAIN",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(10), ValuationRate: decimal.NewFromInt(5)}},
		})
		submitEntry(t, svc, CreateStockEntryRequest{
			EntryType:       "Consume",
			PostingDate:     marchDay(2),
			SourceWarehouse: "WH-MAIN",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(4)}},
		})
		submitEntry(t, svc, CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(3),
			TargetWarehouse: "WH-MAIN",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(10), ValuationRate: decimal.NewFromInt(8)}},
		})

		// (6*5 + 10*8) / 16 = 6.875
		rate, err := stock.NewValuationService(ledgerRepo).AverageCost(context.Background(), "ITEM-A", "WH-MAIN")
		require.NoError(t, err)
		assert.Equal(t, "6.875", rate.String())
	})

	t.Run("transfer derives outbound rate and writes a symmetric pair", func(t *testing.T) {
		svc, ledgerRepo, _ := newTestPostingService()

		submitEntry(t, svc, CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(1),
			TargetWarehouse: "WH-A",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(10), ValuationRate: decimal.NewFromInt(5)}},
		})
		transfer := submitEntry(t, svc, CreateStockEntryRequest{
			EntryType:       "Transfer",
			PostingDate:     marchDay(2),
			SourceWarehouse: "WH-A",
			TargetWarehouse: "WH-B",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(3)}},
		})

		pair, err := ledgerRepo.Find(context.Background(), stock.LedgerQuery{StockEntryReference: transfer.Name})
		require.NoError(t, err)
		require.Len(t, pair, 2)
		assert.Equal(t, "WH-A", pair[0].Warehouse)
		assert.Equal(t, "-3", pair[0].QtyChange.String())
		assert.Equal(t, "WH-B", pair[1].Warehouse)
		assert.Equal(t, "3", pair[1].QtyChange.String())
		assert.Equal(t, "5", pair[0].ValuationRate.String())
		assert.Equal(t, "5", pair[1].ValuationRate.String())
	})

	t.Run("rejects double submit", func(t *testing.T) {
		svc, _, _ := newTestPostingService()

		submitted := submitEntry(t, svc, CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(1),
			TargetWarehouse: "WH-MAIN",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(10), ValuationRate: decimal.NewFromInt(5)}},
		})

		_, err := svc.Submit(context.Background(), uuid.MustParse(submitted.ID))
		require.Error(t, err)
	})

	t.Run("failed persistence leaves no ledger entries behind", func(t *testing.T) {
		svc, ledgerRepo, entryRepo := newTestPostingService()

		draft, err := svc.CreateDraft(context.Background(), CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(1),
			TargetWarehouse: "WH-MAIN",
			Lines: []CreateStockEntryLine{
				{Item: "ITEM-A", Qty: decimal.NewFromInt(10), ValuationRate: decimal.NewFromInt(5)},
				{Item: "ITEM-B", Qty: decimal.NewFromInt(2), ValuationRate: decimal.NewFromInt(7)},
			},
		})
		require.NoError(t, err)

		ledgerRepo.failCreate = errors.New("connection reset")
		_, err = svc.Submit(context.Background(), uuid.MustParse(draft.ID))
		require.Error(t, err)

		assert.Empty(t, ledgerRepo.entries)
		doc, err := entryRepo.FindByID(context.Background(), uuid.MustParse(draft.ID))
		require.NoError(t, err)
		assert.Equal(t, stock.StatusDraft, doc.Status)
	})
}

func TestPostingService_Cancel(t *testing.T) {
	t.Run("removes all entries for the reference", func(t *testing.T) {
		svc, ledgerRepo, _ := newTestPostingService()

		submitEntry(t, svc, CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(1),
			TargetWarehouse: "WH-A",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(10), ValuationRate: decimal.NewFromInt(5)}},
		})
		transfer := submitEntry(t, svc, CreateStockEntryRequest{
			EntryType:       "Transfer",
			PostingDate:     marchDay(2),
			SourceWarehouse: "WH-A",
			TargetWarehouse: "WH-B",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(3)}},
		})

		cancelled, err := svc.Cancel(context.Background(), uuid.MustParse(transfer.ID))
		require.NoError(t, err)
		assert.Equal(t, "Cancelled", cancelled.Status)

		remaining, err := ledgerRepo.Find(context.Background(), stock.LedgerQuery{StockEntryReference: transfer.Name})
		require.NoError(t, err)
		assert.Empty(t, remaining)

		// The receipt's entry is untouched
		receipts, err := ledgerRepo.Find(context.Background(), stock.LedgerQuery{Item: "ITEM-A", Warehouse: "WH-A"})
		require.NoError(t, err)
		assert.Len(t, receipts, 1)
	})

	t.Run("cancel twice is a no-op", func(t *testing.T) {
		svc, _, _ := newTestPostingService()

		submitted := submitEntry(t, svc, CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(1),
			TargetWarehouse: "WH-MAIN",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(10), ValuationRate: decimal.NewFromInt(5)}},
		})

		_, err := svc.Cancel(context.Background(), uuid.MustParse(submitted.ID))
		require.NoError(t, err)

		again, err := svc.Cancel(context.Background(), uuid.MustParse(submitted.ID))
		require.NoError(t, err)
		assert.Equal(t, "Cancelled", again.Status)
	})

	t.Run("cannot cancel a draft", func(t *testing.T) {
		svc, _, _ := newTestPostingService()

		draft, err := svc.CreateDraft(context.Background(), CreateStockEntryRequest{
			EntryType:       "Receipt",
			PostingDate:     marchDay(1),
			TargetWarehouse: "WH-MAIN",
			Lines:           []CreateStockEntryLine{{Item: "ITEM-A", Qty: decimal.NewFromInt(10), ValuationRate: decimal.NewFromInt(5)}},
		})
		require.NoError(t, err)

		_, err = svc.Cancel(context.Background(), uuid.MustParse(draft.ID))
		require.Error(t, err)
	})
}
