package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
)

// fefoOrder lists batches first-expired-first-out; batches without expiry go last
const fefoOrder = "CASE WHEN expiry_date IS NULL THEN 1 ELSE 0 END ASC, expiry_date ASC, created_at ASC"

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	var model models.StockBatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists batches in FEFO order with the total before pagination
func (r *GormBatchRepository) FindAll(ctx context.Context, filter inventory.BatchFilter) ([]inventory.Batch, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.ProductID != nil {
			db = db.Where("product_id = ?", *filter.ProductID)
		}
		if filter.ActiveOnly {
			db = db.Where("status = ? AND quantity_remaining > 0", string(inventory.BatchStatusActive))
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.StockBatchModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Scopes(scope).Order(fefoOrder)
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.StockBatchModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainBatches(rows), total, nil
}

// FindExpiryCandidates returns active or expired batches with stock and an
// expiry date
func (r *GormBatchRepository) FindExpiryCandidates(ctx context.Context) ([]inventory.Batch, error) {
	var rows []models.StockBatchModel
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND quantity_remaining > 0", []string{
			string(inventory.BatchStatusActive),
			string(inventory.BatchStatusExpired),
		}).
		Where("expiry_date IS NOT NULL").
		Order(fefoOrder).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainBatches(rows), nil
}

type batchSums struct {
	Remaining int64
	Packages  int64
}

// SumRemaining totals remaining units and received packages over every batch
// of a product. Expired and returned rows count until they are deleted.
func (r *GormBatchRepository) SumRemaining(ctx context.Context, productID uuid.UUID) (int64, int64, error) {
	var sums batchSums
	if err := r.db.WithContext(ctx).
		Model(&models.StockBatchModel{}).
		Select("COALESCE(SUM(quantity_remaining), 0) AS remaining, COALESCE(SUM(packages_received), 0) AS packages").
		Where("product_id = ?", productID).
		Scan(&sums).Error; err != nil {
		return 0, 0, err
	}
	return sums.Remaining, sums.Packages, nil
}

// MarkExpired flips active batches with an expiry date before the given day
func (r *GormBatchRepository) MarkExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.StockBatchModel{}).
		Where("status = ? AND expiry_date IS NOT NULL AND expiry_date < ?", string(inventory.BatchStatusActive), before).
		Updates(map[string]any{
			"status":     string(inventory.BatchStatusExpired),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Save creates or updates a batch
func (r *GormBatchRepository) Save(ctx context.Context, batch *inventory.Batch) error {
	return r.db.WithContext(ctx).Save(models.StockBatchModelFromDomain(batch)).Error
}

// Delete deletes a batch
func (r *GormBatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.StockBatchModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toDomainBatches(rows []models.StockBatchModel) []inventory.Batch {
	batches := make([]inventory.Batch, len(rows))
	for i := range rows {
		batches[i] = *rows[i].ToDomain()
	}
	return batches
}

// Ensure GormBatchRepository implements BatchRepository
var _ inventory.BatchRepository = (*GormBatchRepository)(nil)
