package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/application/replenishment"
	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/erp/stockledger/internal/infrastructure/scheduler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func newTestRouter(register func(r *gin.Engine)) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	register(r)
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set(middleware.RequestIDHeader, "req-test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type mockBatchLedger struct {
	mock.Mock
}

func (m *mockBatchLedger) CreateBatch(ctx context.Context, productID uuid.UUID, req appinv.CreateBatchRequest) (*appinv.BatchResponse, error) {
	args := m.Called(ctx, productID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.BatchResponse), args.Error(1)
}

func (m *mockBatchLedger) UpdateBatch(ctx context.Context, batchID uuid.UUID, req appinv.UpdateBatchRequest) (*appinv.BatchResponse, error) {
	args := m.Called(ctx, batchID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.BatchResponse), args.Error(1)
}

func (m *mockBatchLedger) DeleteBatch(ctx context.Context, batchID, productID uuid.UUID) (*appinv.DeleteResult, error) {
	args := m.Called(ctx, batchID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.DeleteResult), args.Error(1)
}

func (m *mockBatchLedger) ListBatches(ctx context.Context, filter appinv.BatchListFilter) ([]appinv.BatchResponse, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]appinv.BatchResponse), args.Get(1).(int64), args.Error(2)
}

func (m *mockBatchLedger) GetStock(ctx context.Context, productID uuid.UUID) (*appinv.StockRecordResponse, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.StockRecordResponse), args.Error(1)
}

func (m *mockBatchLedger) SetThresholds(ctx context.Context, productID uuid.UUID, req appinv.SetThresholdsRequest) (*appinv.StockRecordResponse, error) {
	args := m.Called(ctx, productID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.StockRecordResponse), args.Error(1)
}

func (m *mockBatchLedger) Reconcile(ctx context.Context, productID uuid.UUID) (*appinv.ReconcileResponse, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.ReconcileResponse), args.Error(1)
}

type mockExpiryLedger struct {
	mock.Mock
}

func (m *mockExpiryLedger) ClassifyExpiry(ctx context.Context, asOf *time.Time) (*appinv.ExpiryReport, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.ExpiryReport), args.Error(1)
}

func (m *mockExpiryLedger) Dispose(ctx context.Context, batchID, productID uuid.UUID, req appinv.DisposeRequest) (*appinv.DisposalResponse, error) {
	args := m.Called(ctx, batchID, productID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.DisposalResponse), args.Error(1)
}

func (m *mockExpiryLedger) ListDisposals(ctx context.Context, productID uuid.UUID, filter appinv.DisposalListFilter) ([]appinv.DisposalResponse, int64, error) {
	args := m.Called(ctx, productID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]appinv.DisposalResponse), args.Get(1).(int64), args.Error(2)
}

type mockPlanner struct {
	mock.Mock
}

func (m *mockPlanner) Defaults() forecast.Config {
	return forecast.DefaultConfig()
}

func (m *mockPlanner) Forecast(ctx context.Context, productID uuid.UUID, cfg *forecast.Config) (*replenishment.ForecastResponse, error) {
	args := m.Called(ctx, productID, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*replenishment.ForecastResponse), args.Error(1)
}

func (m *mockPlanner) RecalculateOne(ctx context.Context, productID uuid.UUID, cfg *forecast.Config) (*replenishment.RecalculationEntry, error) {
	args := m.Called(ctx, productID, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*replenishment.RecalculationEntry), args.Error(1)
}

func (m *mockPlanner) RecalculateAll(ctx context.Context, cfg *forecast.Config, autoApply bool) (*replenishment.BulkRecalculationReport, error) {
	args := m.Called(ctx, cfg, autoApply)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*replenishment.BulkRecalculationReport), args.Error(1)
}

type mockTrigger struct {
	mock.Mock
}

func (m *mockTrigger) TriggerNow(jobType scheduler.JobType) (*scheduler.Job, error) {
	args := m.Called(jobType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scheduler.Job), args.Error(1)
}
