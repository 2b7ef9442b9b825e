package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
)

// GormSalesHistoryReader reads sold quantities from sale_lines joined to sales
type GormSalesHistoryReader struct {
	db *gorm.DB
}

// NewGormSalesHistoryReader creates a new GormSalesHistoryReader
func NewGormSalesHistoryReader(db *gorm.DB) *GormSalesHistoryReader {
	return &GormSalesHistoryReader{db: db}
}

type saleLineRow struct {
	SoldAt   time.Time
	Quantity int64
}

// ReadSales returns one record per sale line of the product sold in [from, to].
// Voided sales are excluded.
func (r *GormSalesHistoryReader) ReadSales(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]forecast.SaleRecord, error) {
	var rows []saleLineRow
	if err := r.db.WithContext(ctx).
		Table(models.SaleLineModel{}.TableName()).
		Select("sales.sold_at AS sold_at, sale_lines.quantity AS quantity").
		Joins("JOIN sales ON sales.id = sale_lines.sale_id").
		Where("sale_lines.product_id = ?", productID).
		Where("sales.sold_at >= ? AND sales.sold_at <= ?", from.UTC(), to.UTC()).
		Where("sales.status <> ?", models.SaleStatusVoided).
		Order("sales.sold_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]forecast.SaleRecord, len(rows))
	for i, row := range rows {
		records[i] = forecast.SaleRecord{SoldAt: row.SoldAt.UTC(), Quantity: row.Quantity}
	}
	return records, nil
}

// Ensure GormSalesHistoryReader implements SalesHistoryReader
var _ inventory.SalesHistoryReader = (*GormSalesHistoryReader)(nil)
