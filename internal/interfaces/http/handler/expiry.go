package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
)

// ExpiryLedger is the expiry and disposal surface of the inventory services
type ExpiryLedger interface {
	ClassifyExpiry(ctx context.Context, asOf *time.Time) (*appinv.ExpiryReport, error)
	Dispose(ctx context.Context, batchID, productID uuid.UUID, req appinv.DisposeRequest) (*appinv.DisposalResponse, error)
	ListDisposals(ctx context.Context, productID uuid.UUID, filter appinv.DisposalListFilter) ([]appinv.DisposalResponse, int64, error)
}

// ExpiryHandler handles expiry alerts and batch disposal
type ExpiryHandler struct {
	BaseHandler
	ledger ExpiryLedger
}

// NewExpiryHandler creates a new ExpiryHandler
func NewExpiryHandler(ledger ExpiryLedger) *ExpiryHandler {
	return &ExpiryHandler{ledger: ledger}
}

// Alerts godoc
// @ID           listExpiryAlerts
// @Summary      Classify batches by expiry risk
// @Description  Groups active batches into expired, expiring_soon and near_expiry tiers
// @Tags         expiry
// @Produce      json
// @Param        as_of query string false "Evaluation time (RFC3339 or YYYY-MM-DD), defaults to now"
// @Success      200 {object} APIResponse[appinv.ExpiryReport]
// @Failure      400 {object} dto.ErrorResponse
// @Router       /expiry/alerts [get]
func (h *ExpiryHandler) Alerts(c *gin.Context) {
	var asOf *time.Time
	if raw := c.Query("as_of"); raw != "" {
		t, err := parseDateTime(raw)
		if err != nil {
			h.BadRequest(c, "Invalid as_of format, use RFC3339 or YYYY-MM-DD")
			return
		}
		asOf = &t
	}

	report, err := h.ledger.ClassifyExpiry(c.Request.Context(), asOf)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// Dispose godoc
// @ID           disposeBatch
// @Summary      Dispose of batch stock
// @Description  Writes off quantity from a batch; omitting quantity_disposed disposes all that remains
// @Tags         expiry
// @Accept       json
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Param        id path string true "Batch ID" format(uuid)
// @Param        request body appinv.DisposeRequest true "Disposal"
// @Success      201 {object} APIResponse[appinv.DisposalResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Router       /products/{product_id}/batches/{id}/dispose [post]
func (h *ExpiryHandler) Dispose(c *gin.Context) {
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}
	batchID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req appinv.DisposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	disposal, err := h.ledger.Dispose(c.Request.Context(), batchID, productID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, disposal)
}

// ListDisposals godoc
// @ID           listDisposals
// @Summary      List a product's disposals
// @Tags         expiry
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]appinv.DisposalResponse]
// @Router       /products/{product_id}/disposals [get]
func (h *ExpiryHandler) ListDisposals(c *gin.Context) {
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}

	var page dto.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		h.BindError(c, err)
		return
	}
	page.Normalize()

	disposals, total, err := h.ledger.ListDisposals(c.Request.Context(), productID, appinv.DisposalListFilter{
		Page:     page.Page,
		PageSize: page.PageSize,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, disposals, total, page.Page, page.PageSize)
}
