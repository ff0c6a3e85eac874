package stock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/inventra/backend/internal/domain/shared"
	"github.com/inventra/backend/internal/domain/stock"
	"go.uber.org/zap"
)

// PostingService drives the stock entry lifecycle: draft creation, the
// pre-submit valuation pass, ledger entry creation on submit, and ledger
// entry removal on cancel. Each mutation runs inside a single transaction
// scope so a document's ledger footprint is always all-or-nothing.
type PostingService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewPostingService creates a new PostingService
func NewPostingService(scope TransactionScope, logger *zap.Logger) *PostingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostingService{
		scope:  scope,
		logger: logger.Named("posting"),
	}
}

// CreateDraft opens a new draft stock entry document. The document name is
// generated from the naming sequence and later doubles as the ledger entry
// reference.
func (s *PostingService) CreateDraft(ctx context.Context, req CreateStockEntryRequest) (*StockEntryResponse, error) {
	entryType := stock.EntryType(req.EntryType)
	if !entryType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTRY_TYPE", "Invalid stock entry type: "+req.EntryType)
	}
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_ENTRY", "Stock entry must have at least one line item")
	}

	var resp *StockEntryResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		seq, err := repos.EntryRepo().NextSequence(ctx)
		if err != nil {
			return fmt.Errorf("failed to allocate stock entry name: %w", err)
		}
		name := formatEntryName(req.PostingDate, seq)

		doc, err := stock.NewStockEntry(name, entryType, req.PostingDate, req.SourceWarehouse, req.TargetWarehouse)
		if err != nil {
			return err
		}
		for _, line := range req.Lines {
			if err := doc.AddLine(line.Item, line.Qty, line.ValuationRate); err != nil {
				return err
			}
		}

		if err := repos.EntryRepo().Create(ctx, doc); err != nil {
			return fmt.Errorf("failed to create stock entry: %w", err)
		}

		resp = toStockEntryResponse(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock entry drafted",
		zap.String("name", resp.Name),
		zap.String("entry_type", resp.EntryType),
		zap.Int("lines", len(resp.Lines)),
	)
	return resp, nil
}

// Get returns a stock entry document by ID
func (s *PostingService) Get(ctx context.Context, id uuid.UUID) (*StockEntryResponse, error) {
	var resp *StockEntryResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.EntryRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		resp = toStockEntryResponse(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Submit transitions a draft document to Submitted and appends its derived
// ledger entries. Before the transition commits, every non-Receipt line is
// priced at the current weighted-average cost of its source warehouse;
// Receipts keep the caller-supplied rate, which is the only place new value
// enters the system.
func (s *PostingService) Submit(ctx context.Context, id uuid.UUID) (*StockEntryResponse, error) {
	var resp *StockEntryResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.EntryRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if doc.Status != stock.StatusDraft {
			return shared.NewDomainError("INVALID_STATE", "Only draft stock entries can be submitted")
		}
		if err := doc.Validate(); err != nil {
			return err
		}

		ledgerRepo := repos.LedgerRepo()

		// Serialize against concurrent postings touching the same keys.
		// Keys are locked in sorted order to avoid lock-order inversion.
		for _, key := range postingKeys(doc) {
			if err := ledgerRepo.LockKey(ctx, key.item, key.warehouse); err != nil {
				return fmt.Errorf("failed to lock ledger key %s/%s: %w", key.item, key.warehouse, err)
			}
		}

		if doc.EntryType != stock.EntryTypeReceipt {
			valuation := stock.NewValuationService(ledgerRepo)
			for i := range doc.Lines {
				line := &doc.Lines[i]
				rate, err := valuation.AverageCost(ctx, line.Item, doc.SourceWarehouseFor(line))
				if err != nil {
					return fmt.Errorf("failed to compute valuation rate for %s: %w", line.Item, err)
				}
				line.ValuationRate = rate
			}
		}

		if err := doc.MarkSubmitted(); err != nil {
			return err
		}

		entries, err := doc.LedgerEntries()
		if err != nil {
			return err
		}
		if err := ledgerRepo.CreateBatch(ctx, entries); err != nil {
			return fmt.Errorf("failed to create ledger entries: %w", err)
		}
		if err := repos.EntryRepo().Save(ctx, doc); err != nil {
			return fmt.Errorf("failed to save stock entry: %w", err)
		}

		resp = toStockEntryResponse(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock entry submitted",
		zap.String("name", resp.Name),
		zap.String("entry_type", resp.EntryType),
	)
	return resp, nil
}

// Cancel transitions a submitted document to Cancelled and soft-deletes all
// ledger entries carrying its reference. Cancelling a document that has no
// remaining entries, or one that is already cancelled, is a no-op rather
// than an error so retries stay safe.
func (s *PostingService) Cancel(ctx context.Context, id uuid.UUID) (*StockEntryResponse, error) {
	var resp *StockEntryResponse
	var removed int64
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.EntryRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if doc.Status == stock.StatusCancelled {
			resp = toStockEntryResponse(doc)
			return nil
		}
		if err := doc.MarkCancelled(); err != nil {
			return err
		}

		removed, err = repos.LedgerRepo().CancelByReference(ctx, doc.Name)
		if err != nil {
			return fmt.Errorf("failed to cancel ledger entries: %w", err)
		}
		if err := repos.EntryRepo().Save(ctx, doc); err != nil {
			return fmt.Errorf("failed to save stock entry: %w", err)
		}

		resp = toStockEntryResponse(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock entry cancelled",
		zap.String("name", resp.Name),
		zap.Int64("ledger_entries_removed", removed),
	)
	return resp, nil
}

// ledgerKey identifies one (item, warehouse) costing key
type ledgerKey struct {
	item      string
	warehouse string
}

// postingKeys returns the distinct ledger keys a document will touch,
// sorted for a deterministic locking order.
func postingKeys(doc *stock.StockEntry) []ledgerKey {
	seen := make(map[ledgerKey]struct{})
	for i := range doc.Lines {
		line := &doc.Lines[i]
		if doc.EntryType.RequiresSourceWarehouse() {
			seen[ledgerKey{line.Item, doc.SourceWarehouseFor(line)}] = struct{}{}
		}
		if doc.EntryType.RequiresTargetWarehouse() {
			seen[ledgerKey{line.Item, doc.TargetWarehouseFor(line)}] = struct{}{}
		}
	}

	keys := make([]ledgerKey, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].item != keys[j].item {
			return keys[i].item < keys[j].item
		}
		return keys[i].warehouse < keys[j].warehouse
	})
	return keys
}

// formatEntryName builds a document name like STE-2025-00042
func formatEntryName(postingDate time.Time, seq int64) string {
	return fmt.Sprintf("STE-%d-%05d", postingDate.Year(), seq)
}
