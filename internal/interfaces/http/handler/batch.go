package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appinv "github.com/erp/stockledger/internal/application/inventory"
)

// BatchLedger is the batch and stock surface of the inventory services
type BatchLedger interface {
	CreateBatch(ctx context.Context, productID uuid.UUID, req appinv.CreateBatchRequest) (*appinv.BatchResponse, error)
	UpdateBatch(ctx context.Context, batchID uuid.UUID, req appinv.UpdateBatchRequest) (*appinv.BatchResponse, error)
	DeleteBatch(ctx context.Context, batchID, productID uuid.UUID) (*appinv.DeleteResult, error)
	ListBatches(ctx context.Context, filter appinv.BatchListFilter) ([]appinv.BatchResponse, int64, error)
	GetStock(ctx context.Context, productID uuid.UUID) (*appinv.StockRecordResponse, error)
	SetThresholds(ctx context.Context, productID uuid.UUID, req appinv.SetThresholdsRequest) (*appinv.StockRecordResponse, error)
	Reconcile(ctx context.Context, productID uuid.UUID) (*appinv.ReconcileResponse, error)
}

// BatchHandler handles batch receiving, correction and removal
type BatchHandler struct {
	BaseHandler
	ledger BatchLedger
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(ledger BatchLedger) *BatchHandler {
	return &BatchHandler{ledger: ledger}
}

// Create godoc
// @ID           createBatch
// @Summary      Receive a batch
// @Description  Records a received batch and adds its quantity to the product's stock
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Param        request body appinv.CreateBatchRequest true "Batch"
// @Success      201 {object} APIResponse[appinv.BatchResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Router       /products/{product_id}/batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}

	var req appinv.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	batch, err := h.ledger.CreateBatch(c.Request.Context(), productID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, batch)
}

// Update godoc
// @ID           updateBatch
// @Summary      Correct a batch
// @Description  Applies a partial correction; a quantity change moves stock by the delta
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        id path string true "Batch ID" format(uuid)
// @Param        request body appinv.UpdateBatchRequest true "Changes"
// @Success      200 {object} APIResponse[appinv.BatchResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Router       /batches/{id} [put]
func (h *BatchHandler) Update(c *gin.Context) {
	batchID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req appinv.UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	batch, err := h.ledger.UpdateBatch(c.Request.Context(), batchID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batch)
}

// Delete godoc
// @ID           deleteBatch
// @Summary      Remove a batch
// @Description  Deletes a batch and takes its remaining quantity out of stock
// @Tags         batches
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Param        id path string true "Batch ID" format(uuid)
// @Success      200 {object} APIResponse[appinv.DeleteResult]
// @Failure      404 {object} dto.ErrorResponse
// @Router       /products/{product_id}/batches/{id} [delete]
func (h *BatchHandler) Delete(c *gin.Context) {
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}
	batchID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.ledger.DeleteBatch(c.Request.Context(), batchID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// List godoc
// @ID           listBatches
// @Summary      List batches
// @Description  Lists batches, earliest expiry first
// @Tags         batches
// @Produce      json
// @Param        product_id query string false "Filter by product" format(uuid)
// @Param        active_only query bool false "Only active batches with stock"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]appinv.BatchResponse]
// @Router       /batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	var filter appinv.BatchListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if raw := c.Query("product_id"); raw != "" {
		productID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid product_id format")
			return
		}
		filter.ProductID = &productID
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	batches, total, err := h.ledger.ListBatches(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, batches, total, filter.Page, filter.PageSize)
}

// GetStock godoc
// @ID           getStock
// @Summary      Get a product's stock record
// @Tags         stock
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[appinv.StockRecordResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Router       /products/{product_id}/stock [get]
func (h *BatchHandler) GetStock(c *gin.Context) {
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}

	record, err := h.ledger.GetStock(c.Request.Context(), productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, record)
}

// SetThresholds godoc
// @ID           setStockThresholds
// @Summary      Set min and max stock levels
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Param        request body appinv.SetThresholdsRequest true "Thresholds"
// @Success      200 {object} APIResponse[appinv.StockRecordResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Router       /products/{product_id}/stock/thresholds [put]
func (h *BatchHandler) SetThresholds(c *gin.Context) {
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}

	var req appinv.SetThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	record, err := h.ledger.SetThresholds(c.Request.Context(), productID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, record)
}

// Reconcile godoc
// @ID           reconcileStock
// @Summary      Compare stock against batch remainders
// @Tags         stock
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[appinv.ReconcileResponse]
// @Router       /products/{product_id}/stock/reconcile [get]
func (h *BatchHandler) Reconcile(c *gin.Context) {
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}

	report, err := h.ledger.Reconcile(c.Request.Context(), productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}
