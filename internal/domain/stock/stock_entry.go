package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/inventra/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// EntryType represents the type of stock movement document
type EntryType string

const (
	// EntryTypeReceipt brings new stock into the target warehouse at a caller-supplied rate
	EntryTypeReceipt EntryType = "Receipt"
	// EntryTypeConsume removes stock from the source warehouse at the derived average rate
	EntryTypeConsume EntryType = "Consume"
	// EntryTypeTransfer moves stock from the source to the target warehouse at the derived average rate
	EntryTypeTransfer EntryType = "Transfer"
)

// String returns the string representation of EntryType
func (t EntryType) String() string {
	return string(t)
}

// IsValid returns true if the entry type is valid
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeReceipt, EntryTypeConsume, EntryTypeTransfer:
		return true
	}
	return false
}

// RequiresSourceWarehouse returns true if the type consumes stock from a source warehouse
func (t EntryType) RequiresSourceWarehouse() bool {
	return t == EntryTypeConsume || t == EntryTypeTransfer
}

// RequiresTargetWarehouse returns true if the type delivers stock to a target warehouse
func (t EntryType) RequiresTargetWarehouse() bool {
	return t == EntryTypeReceipt || t == EntryTypeTransfer
}

// EntryStatus represents the lifecycle state of a stock entry document
type EntryStatus string

const (
	// StatusDraft is the initial, editable state
	StatusDraft EntryStatus = "Draft"
	// StatusSubmitted means ledger entries have been created for the document
	StatusSubmitted EntryStatus = "Submitted"
	// StatusCancelled is terminal; the document's ledger entries have been removed
	StatusCancelled EntryStatus = "Cancelled"
)

// String returns the string representation of EntryStatus
func (s EntryStatus) String() string {
	return string(s)
}

// StockEntryLine is a single line item on a stock entry document.
// ValuationRate is caller-supplied for Receipts and derived from the
// source warehouse's average cost for all other types.
type StockEntryLine struct {
	shared.BaseEntity
	StockEntryID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_entry_line_entry"`
	Item          string          `gorm:"type:varchar(140);not null"`
	Qty           decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Always positive, direction determined by the document type
	ValuationRate decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (StockEntryLine) TableName() string {
	return "stock_entry_lines"
}

// StockEntry is a stock movement document. It is the aggregate root for the
// posting lifecycle: Draft -> Submitted (creates ledger entries) -> Cancelled
// (removes them). The document name doubles as the ledger entry reference,
// which is what makes submission and cancellation idempotent as a pair.
type StockEntry struct {
	shared.BaseEntity
	Name            string      `gorm:"type:varchar(140);not null;uniqueIndex:idx_stock_entry_name"`
	EntryType       EntryType   `gorm:"type:varchar(20);not null"`
	Status          EntryStatus `gorm:"type:varchar(20);not null;default:'Draft'"`
	PostingDate     time.Time   `gorm:"type:date;not null"`
	SourceWarehouse string      `gorm:"type:varchar(140)"`
	TargetWarehouse string      `gorm:"type:varchar(140)"`

	Lines []StockEntryLine `gorm:"foreignKey:StockEntryID;references:ID"`
}

// TableName returns the table name for GORM
func (StockEntry) TableName() string {
	return "stock_entries"
}

// NewStockEntry creates a new draft stock entry document
func NewStockEntry(name string, entryType EntryType, postingDate time.Time, sourceWarehouse, targetWarehouse string) (*StockEntry, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Stock entry name cannot be empty")
	}
	if !entryType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTRY_TYPE", "Invalid stock entry type")
	}
	if postingDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_POSTING_DATE", "Posting date is required")
	}
	if entryType.RequiresSourceWarehouse() && sourceWarehouse == "" {
		return nil, shared.NewDomainError("MISSING_SOURCE_WAREHOUSE", "Source warehouse is required for "+entryType.String())
	}
	if entryType.RequiresTargetWarehouse() && targetWarehouse == "" {
		return nil, shared.NewDomainError("MISSING_TARGET_WAREHOUSE", "Target warehouse is required for "+entryType.String())
	}

	return &StockEntry{
		BaseEntity:      shared.NewBaseEntity(),
		Name:            name,
		EntryType:       entryType,
		Status:          StatusDraft,
		PostingDate:     postingDate,
		SourceWarehouse: sourceWarehouse,
		TargetWarehouse: targetWarehouse,
		Lines:           make([]StockEntryLine, 0),
	}, nil
}

// AddLine appends a line item to a draft document.
// The valuation rate is only meaningful for Receipts; for other types it is
// overwritten by the pre-submit valuation pass.
func (s *StockEntry) AddLine(item string, qty, valuationRate decimal.Decimal) error {
	if s.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Lines can only be added to draft stock entries")
	}
	if item == "" {
		return shared.NewDomainError("INVALID_ITEM", "Item cannot be empty")
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if valuationRate.IsNegative() {
		return shared.NewDomainError("INVALID_RATE", "Valuation rate cannot be negative")
	}

	s.Lines = append(s.Lines, StockEntryLine{
		BaseEntity:    shared.NewBaseEntity(),
		StockEntryID:  s.ID,
		Item:          item,
		Qty:           qty,
		ValuationRate: valuationRate,
	})
	s.Touch()
	return nil
}

// SourceWarehouseFor returns the warehouse the given line consumes from.
// The document-level source warehouse is canonical today; keeping the
// lookup line-scoped lets a per-line override field slot in later without
// touching the posting engine.
func (s *StockEntry) SourceWarehouseFor(_ *StockEntryLine) string {
	return s.SourceWarehouse
}

// TargetWarehouseFor returns the warehouse the given line delivers to
func (s *StockEntry) TargetWarehouseFor(_ *StockEntryLine) string {
	return s.TargetWarehouse
}

// Validate checks that the document is complete enough to submit
func (s *StockEntry) Validate() error {
	if len(s.Lines) == 0 {
		return shared.NewDomainError("EMPTY_ENTRY", "Stock entry must have at least one line item")
	}
	if s.EntryType.RequiresSourceWarehouse() && s.SourceWarehouse == "" {
		return shared.NewDomainError("MISSING_SOURCE_WAREHOUSE", "Source warehouse is required for "+s.EntryType.String())
	}
	if s.EntryType.RequiresTargetWarehouse() && s.TargetWarehouse == "" {
		return shared.NewDomainError("MISSING_TARGET_WAREHOUSE", "Target warehouse is required for "+s.EntryType.String())
	}
	for i := range s.Lines {
		line := &s.Lines[i]
		if line.Item == "" {
			return shared.NewDomainError("INVALID_ITEM", "Item cannot be empty")
		}
		if line.Qty.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
		}
		if line.ValuationRate.IsNegative() {
			return shared.NewDomainError("INVALID_RATE", "Valuation rate cannot be negative")
		}
	}
	return nil
}

// MarkSubmitted transitions the document from Draft to Submitted
func (s *StockEntry) MarkSubmitted() error {
	if s.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Only draft stock entries can be submitted")
	}
	s.Status = StatusSubmitted
	s.Touch()
	return nil
}

// MarkCancelled transitions the document from Submitted to Cancelled
func (s *StockEntry) MarkCancelled() error {
	if s.Status != StatusSubmitted {
		return shared.NewDomainError("INVALID_STATE", "Only submitted stock entries can be cancelled")
	}
	s.Status = StatusCancelled
	s.Touch()
	return nil
}

// LedgerEntries derives the ledger entries for this document once all lines
// are priced. Receipts produce a single inbound entry at the target
// warehouse, Consumes a single outbound entry at the source warehouse, and
// Transfers one of each at the same rate. All derived entries share the
// document's posting date and name.
func (s *StockEntry) LedgerEntries() ([]*LedgerEntry, error) {
	entries := make([]*LedgerEntry, 0, len(s.Lines)*2)

	for i := range s.Lines {
		line := &s.Lines[i]

		switch s.EntryType {
		case EntryTypeReceipt:
			in, err := NewLedgerEntry(line.Item, s.TargetWarehouseFor(line), s.PostingDate, line.Qty, line.ValuationRate, s.Name)
			if err != nil {
				return nil, err
			}
			entries = append(entries, in)

		case EntryTypeConsume, EntryTypeTransfer:
			out, err := NewLedgerEntry(line.Item, s.SourceWarehouseFor(line), s.PostingDate, line.Qty.Neg(), line.ValuationRate, s.Name)
			if err != nil {
				return nil, err
			}
			entries = append(entries, out)

			if s.EntryType == EntryTypeTransfer {
				in, err := NewLedgerEntry(line.Item, s.TargetWarehouseFor(line), s.PostingDate, line.Qty, line.ValuationRate, s.Name)
				if err != nil {
					return nil, err
				}
				entries = append(entries, in)
			}

		default:
			return nil, shared.NewDomainError("INVALID_ENTRY_TYPE", "Invalid stock entry type")
		}
	}

	return entries, nil
}
