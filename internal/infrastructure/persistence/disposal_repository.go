package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
)

// GormDisposalRepository implements DisposalRepository using GORM
type GormDisposalRepository struct {
	db *gorm.DB
}

// NewGormDisposalRepository creates a new GormDisposalRepository
func NewGormDisposalRepository(db *gorm.DB) *GormDisposalRepository {
	return &GormDisposalRepository{db: db}
}

// Create inserts a disposal record
func (r *GormDisposalRepository) Create(ctx context.Context, disposal *inventory.Disposal) error {
	return r.db.WithContext(ctx).Create(models.ProductDisposalModelFromDomain(disposal)).Error
}

// FindByProduct lists a product's disposals, newest first unless the filter says otherwise
func (r *GormDisposalRepository) FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]inventory.Disposal, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductDisposalModel{}).
		Where("product_id = ?", productID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Clauses(disposalSort.orderBy(filter.OrderBy, filter.OrderDir))
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.ProductDisposalModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	disposals := make([]inventory.Disposal, len(rows))
	for i := range rows {
		disposals[i] = *rows[i].ToDomain()
	}
	return disposals, total, nil
}

// Ensure GormDisposalRepository implements DisposalRepository
var _ inventory.DisposalRepository = (*GormDisposalRepository)(nil)
