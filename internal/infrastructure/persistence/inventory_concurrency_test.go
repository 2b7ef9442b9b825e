//go:build integration

package persistence

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/infrastructure/migration"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// setupPostgres starts a throwaway postgres and applies the repository migrations
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stockledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)

	m, err := migration.New(sqlDB, migrationsDir(t), nil)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	return db
}

func TestLedger_ConcurrentWritersOfOneProduct(t *testing.T) {
	db := setupPostgres(t)
	scope := NewGormTransactionScope(db)
	batches := NewGormBatchRepository(db)
	records := NewGormStockRecordRepository(db)
	svc := appinv.NewBatchService(batches, records, scope, nil)

	ctx := context.Background()
	productID := uuid.New()

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBatch(ctx, productID, appinv.CreateBatchRequest{Quantity: 5})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	record, err := records.FindByProduct(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(writers*5), record.CurrentQuantity)

	report, err := svc.Reconcile(ctx, productID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)

	var count int64
	require.NoError(t, db.Table("stock_records").Where("product_id = ?", productID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLedger_ConcurrentDeleteAndCreate(t *testing.T) {
	db := setupPostgres(t)
	scope := NewGormTransactionScope(db)
	batches := NewGormBatchRepository(db)
	records := NewGormStockRecordRepository(db)
	svc := appinv.NewBatchService(batches, records, scope, nil)

	ctx := context.Background()
	productID := uuid.New()

	seeded := make([]uuid.UUID, 8)
	for i := range seeded {
		resp, err := svc.CreateBatch(ctx, productID, appinv.CreateBatchRequest{Quantity: 10})
		require.NoError(t, err)
		seeded[i] = resp.ID
	}

	var wg sync.WaitGroup
	for _, id := range seeded {
		wg.Add(2)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := svc.DeleteBatch(ctx, id, productID)
			assert.NoError(t, err)
		}(id)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBatch(ctx, productID, appinv.CreateBatchRequest{Quantity: 3})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	report, err := svc.Reconcile(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(8*3), report.CurrentQuantity)
	assert.True(t, report.Consistent)
}
