package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
)

// GormPriceLookup reads products.base_price
type GormPriceLookup struct {
	db *gorm.DB
}

// NewGormPriceLookup creates a new GormPriceLookup
func NewGormPriceLookup(db *gorm.DB) *GormPriceLookup {
	return &GormPriceLookup{db: db}
}

// BasePrice returns the product's current base price
func (r *GormPriceLookup) BasePrice(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	var product models.ProductModel
	if err := r.db.WithContext(ctx).
		Select("id", "base_price").
		Where("id = ?", productID).
		Take(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, shared.ErrNotFound
		}
		return decimal.Zero, err
	}
	return product.BasePrice, nil
}

// Ensure GormPriceLookup implements PriceLookup
var _ inventory.PriceLookup = (*GormPriceLookup)(nil)
