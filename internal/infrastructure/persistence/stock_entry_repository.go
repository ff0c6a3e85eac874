package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/inventra/backend/internal/domain/shared"
	"github.com/inventra/backend/internal/domain/stock"
	"gorm.io/gorm"
)

// stockEntrySeriesName keys the naming sequence row for stock entry documents
const stockEntrySeriesName = "stock_entry"

// namingSequence is a single named counter backing document name generation
type namingSequence struct {
	Name    string `gorm:"type:varchar(64);primaryKey"`
	Current int64  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (namingSequence) TableName() string {
	return "naming_sequences"
}

// GormStockEntryRepository implements StockEntryRepository using GORM
type GormStockEntryRepository struct {
	db *gorm.DB
}

// NewGormStockEntryRepository creates a new GormStockEntryRepository
func NewGormStockEntryRepository(db *gorm.DB) *GormStockEntryRepository {
	return &GormStockEntryRepository{db: db}
}

// Create inserts a new stock entry document with its lines
func (r *GormStockEntryRepository) Create(ctx context.Context, entry *stock.StockEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Save persists changes to an existing document and its lines
func (r *GormStockEntryRepository) Save(ctx context.Context, entry *stock.StockEntry) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(entry).Error
}

// FindByID finds a document by its ID, lines included
func (r *GormStockEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.StockEntry, error) {
	var entry stock.StockEntry
	if err := r.db.WithContext(ctx).Preload("Lines").First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByName finds a document by its generated name
func (r *GormStockEntryRepository) FindByName(ctx context.Context, name string) (*stock.StockEntry, error) {
	var entry stock.StockEntry
	if err := r.db.WithContext(ctx).Preload("Lines").First(&entry, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// NextSequence atomically increments and returns the stock entry naming
// counter. The row is created on first use; the in-place UPDATE keeps the
// increment race-free inside the surrounding transaction.
func (r *GormStockEntryRepository) NextSequence(ctx context.Context) (int64, error) {
	db := r.db.WithContext(ctx)

	result := db.Model(&namingSequence{}).
		Where("name = ?", stockEntrySeriesName).
		Update("current", gorm.Expr("current + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		seq := namingSequence{Name: stockEntrySeriesName, Current: 1}
		if err := db.Create(&seq).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}

	var seq namingSequence
	if err := db.First(&seq, "name = ?", stockEntrySeriesName).Error; err != nil {
		return 0, err
	}
	return seq.Current, nil
}

// Ensure GormStockEntryRepository implements StockEntryRepository
var _ stock.StockEntryRepository = (*GormStockEntryRepository)(nil)
