package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
)

func batchRouter(ledger *mockBatchLedger) *gin.Engine {
	h := NewBatchHandler(ledger)
	return newTestRouter(func(r *gin.Engine) {
		r.POST("/products/:product_id/batches", h.Create)
		r.PUT("/batches/:id", h.Update)
		r.DELETE("/products/:product_id/batches/:id", h.Delete)
		r.GET("/batches", h.List)
		r.GET("/products/:product_id/stock", h.GetStock)
		r.PUT("/products/:product_id/stock/thresholds", h.SetThresholds)
		r.GET("/products/:product_id/stock/reconcile", h.Reconcile)
	})
}

func TestBatchHandler_Create(t *testing.T) {
	ledger := new(mockBatchLedger)
	productID := uuid.New()
	stockAfter := int64(50)
	ledger.On("CreateBatch", mock.Anything, productID, mock.MatchedBy(func(req appinv.CreateBatchRequest) bool {
		return req.BatchNumber == "LOT-1" && req.Quantity == 50 && req.CostPrice.String() == "2.5"
	})).Return(&appinv.BatchResponse{
		ID:                uuid.New(),
		ProductID:         productID,
		BatchNumber:       "LOT-1",
		Quantity:          50,
		QuantityRemaining: 50,
		StockAfter:        &stockAfter,
	}, nil)

	w := doRequest(batchRouter(ledger), http.MethodPost, "/products/"+productID.String()+"/batches",
		`{"batch_number":"LOT-1","quantity":50,"cost_price":"2.5","expiry_date":"2025-01-31T00:00:00Z"}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp APIResponse[appinv.BatchResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "LOT-1", resp.Data.BatchNumber)
	require.NotNil(t, resp.Data.StockAfter)
	assert.EqualValues(t, 50, *resp.Data.StockAfter)
	ledger.AssertExpectations(t)
}

func TestBatchHandler_CreateRejectsBadInput(t *testing.T) {
	ledger := new(mockBatchLedger)
	router := batchRouter(ledger)

	w := doRequest(router, http.MethodPost, "/products/not-a-uuid/batches", `{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/products/"+uuid.NewString()+"/batches", `{"quantity":"lots"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ledger.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestBatchHandler_CreateInvalidQuantity(t *testing.T) {
	ledger := new(mockBatchLedger)
	ledger.On("CreateBatch", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be positive"))

	w := doRequest(batchRouter(ledger), http.MethodPost, "/products/"+uuid.NewString()+"/batches", `{"quantity":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidQuantity, decodeError(t, w).Code)
}

func TestBatchHandler_Update(t *testing.T) {
	ledger := new(mockBatchLedger)
	batchID := uuid.New()
	ledger.On("UpdateBatch", mock.Anything, batchID, mock.MatchedBy(func(req appinv.UpdateBatchRequest) bool {
		return req.Quantity != nil && *req.Quantity == 30 && req.BatchNumber == nil
	})).Return(&appinv.BatchResponse{ID: batchID, Quantity: 30}, nil)

	w := doRequest(batchRouter(ledger), http.MethodPut, "/batches/"+batchID.String(), `{"quantity":30}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ledger.AssertExpectations(t)
}

func TestBatchHandler_UpdateRejectsUnknownStatus(t *testing.T) {
	ledger := new(mockBatchLedger)
	w := doRequest(batchRouter(ledger), http.MethodPut, "/batches/"+uuid.NewString(), `{"status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decodeError(t, w).Code)
}

func TestBatchHandler_UpdateIntegrityViolation(t *testing.T) {
	ledger := new(mockBatchLedger)
	ledger.On("UpdateBatch", mock.Anything, mock.Anything, mock.Anything).Return(nil, shared.ErrIntegrityViolation)

	w := doRequest(batchRouter(ledger), http.MethodPut, "/batches/"+uuid.NewString(), `{"quantity":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBatchHandler_Delete(t *testing.T) {
	ledger := new(mockBatchLedger)
	productID, batchID := uuid.New(), uuid.New()
	ledger.On("DeleteBatch", mock.Anything, batchID, productID).Return(&appinv.DeleteResult{
		BatchID: batchID, ProductID: productID, QuantityRemoved: 12, StockAfter: 8,
	}, nil)

	w := doRequest(batchRouter(ledger), http.MethodDelete,
		"/products/"+productID.String()+"/batches/"+batchID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp APIResponse[appinv.DeleteResult]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 12, resp.Data.QuantityRemoved)
	assert.EqualValues(t, 8, resp.Data.StockAfter)
}

func TestBatchHandler_DeleteNotFound(t *testing.T) {
	ledger := new(mockBatchLedger)
	ledger.On("DeleteBatch", mock.Anything, mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

	w := doRequest(batchRouter(ledger), http.MethodDelete,
		"/products/"+uuid.NewString()+"/batches/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchHandler_List(t *testing.T) {
	ledger := new(mockBatchLedger)
	productID := uuid.New()
	ledger.On("ListBatches", mock.Anything, appinv.BatchListFilter{
		ProductID:  &productID,
		ActiveOnly: true,
		Page:       2,
		PageSize:   20,
	}).Return([]appinv.BatchResponse{{BatchNumber: "A"}, {BatchNumber: "B"}}, int64(22), nil)

	w := doRequest(batchRouter(ledger), http.MethodGet,
		"/batches?product_id="+productID.String()+"&active_only=true&page=2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp APIResponse[[]appinv.BatchResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	require.NotNil(t, resp.Meta)
	assert.EqualValues(t, 22, resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	ledger.AssertExpectations(t)
}

func TestBatchHandler_ListValidation(t *testing.T) {
	ledger := new(mockBatchLedger)
	router := batchRouter(ledger)

	w := doRequest(router, http.MethodGet, "/batches?product_id=nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/batches?page_size=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decodeError(t, w).Code)
}

func TestBatchHandler_Stock(t *testing.T) {
	ledger := new(mockBatchLedger)
	productID := uuid.New()
	record := &appinv.StockRecordResponse{ProductID: productID, CurrentQuantity: 40, MinStockLevel: 10, MaxStockLevel: 100}
	ledger.On("GetStock", mock.Anything, productID).Return(record, nil)
	ledger.On("SetThresholds", mock.Anything, productID, appinv.SetThresholdsRequest{MinStockLevel: 10, MaxStockLevel: 100}).
		Return(record, nil)
	ledger.On("Reconcile", mock.Anything, productID).Return(&appinv.ReconcileResponse{
		ProductID: productID, CurrentQuantity: 40, BatchRemaining: 40, Consistent: true,
	}, nil)

	router := batchRouter(ledger)
	base := "/products/" + productID.String() + "/stock"

	w := doRequest(router, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	var stock APIResponse[appinv.StockRecordResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stock))
	assert.EqualValues(t, 40, stock.Data.CurrentQuantity)

	w = doRequest(router, http.MethodPut, base+"/thresholds", `{"min_stock_level":10,"max_stock_level":100}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(router, http.MethodPut, base+"/thresholds", `{"min_stock_level":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, base+"/reconcile", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rec APIResponse[appinv.ReconcileResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.True(t, rec.Data.Consistent)

	ledger.AssertExpectations(t)
}
