package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	// every connection to :memory: is a fresh database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.StockRecordModel{},
		&models.StockBatchModel{},
		&models.ProductDisposalModel{},
		&models.ProductModel{},
		&models.SaleModel{},
		&models.SaleLineModel{},
	))
	return db
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func saveBatch(t *testing.T, db *gorm.DB, productID uuid.UUID, number string, quantity int64, expiry *time.Time) *inventory.Batch {
	t.Helper()
	b, err := inventory.NewBatch(productID, inventory.BatchSpec{
		BatchNumber: number,
		Quantity:    quantity,
		ExpiryDate:  expiry,
	})
	require.NoError(t, err)
	require.NoError(t, NewGormBatchRepository(db).Save(context.Background(), b))
	return b
}

func saveProduct(t *testing.T, db *gorm.DB, productID uuid.UUID, price string) {
	t.Helper()
	require.NoError(t, db.Create(&models.ProductModel{
		ID:        productID,
		Name:      "product " + productID.String()[:8],
		BasePrice: decimal.RequireFromString(price),
	}).Error)
}

func saveSale(t *testing.T, db *gorm.DB, productID uuid.UUID, soldAt time.Time, quantity int64, status string) {
	t.Helper()
	sale := models.SaleModel{ID: uuid.New(), SoldAt: soldAt.UTC(), Status: status}
	require.NoError(t, db.Create(&sale).Error)
	require.NoError(t, db.Create(&models.SaleLineModel{
		ID:        uuid.New(),
		SaleID:    sale.ID,
		ProductID: productID,
		Quantity:  quantity,
	}).Error)
}
