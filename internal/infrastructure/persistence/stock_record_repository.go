package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
)

// GormStockRecordRepository implements StockRecordRepository using GORM
type GormStockRecordRepository struct {
	db *gorm.DB
}

// NewGormStockRecordRepository creates a new GormStockRecordRepository
func NewGormStockRecordRepository(db *gorm.DB) *GormStockRecordRepository {
	return &GormStockRecordRepository{db: db}
}

// FindByProduct finds the stock record of a product
func (r *GormStockRecordRepository) FindByProduct(ctx context.Context, productID uuid.UUID) (*inventory.StockRecord, error) {
	return r.find(r.db.WithContext(ctx), productID)
}

// FindByProductForUpdate reads the record with SELECT ... FOR UPDATE.
// Only meaningful inside a transaction.
func (r *GormStockRecordRepository) FindByProductForUpdate(ctx context.Context, productID uuid.UUID) (*inventory.StockRecord, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), productID)
}

func (r *GormStockRecordRepository) find(db *gorm.DB, productID uuid.UUID) (*inventory.StockRecord, error) {
	var model models.StockRecordModel
	if err := db.Where("product_id = ?", productID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetOrCreate inserts a zeroed record unless one exists. Concurrent callers
// race on the unique product_id index; the loser reads the winner's row.
func (r *GormStockRecordRepository) GetOrCreate(ctx context.Context, productID uuid.UUID) (*inventory.StockRecord, bool, error) {
	record, err := inventory.NewStockRecord(productID)
	if err != nil {
		return nil, false, err
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoNothing: true,
		}).
		Create(models.StockRecordModelFromDomain(record))
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		return record, true, nil
	}

	existing, err := r.FindByProduct(ctx, productID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ListProductIDs returns every product with a stock record
func (r *GormStockRecordRepository) ListProductIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.StockRecordModel{}).
		Order("product_id ASC").
		Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Save updates the record's counters and thresholds
func (r *GormStockRecordRepository) Save(ctx context.Context, record *inventory.StockRecord) error {
	return r.db.WithContext(ctx).Save(models.StockRecordModelFromDomain(record)).Error
}

// Ensure GormStockRecordRepository implements StockRecordRepository
var _ inventory.StockRecordRepository = (*GormStockRecordRepository)(nil)
