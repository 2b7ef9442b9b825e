package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/erp/stockledger/internal/application/replenishment"
	"github.com/erp/stockledger/internal/domain/forecast"
)

// ReorderPlanner is the forecasting surface of the replenishment service
type ReorderPlanner interface {
	Defaults() forecast.Config
	Forecast(ctx context.Context, productID uuid.UUID, cfg *forecast.Config) (*replenishment.ForecastResponse, error)
	RecalculateOne(ctx context.Context, productID uuid.UUID, cfg *forecast.Config) (*replenishment.RecalculationEntry, error)
	RecalculateAll(ctx context.Context, cfg *forecast.Config, autoApply bool) (*replenishment.BulkRecalculationReport, error)
}

// ForecastQuery overrides individual forecast parameters. Parameters left
// out keep the service defaults.
type ForecastQuery struct {
	LookbackDays     *int     `form:"lookback_days"`
	LeadTimeDays     *int     `form:"lead_time_days"`
	SafetyMultiplier *float64 `form:"safety_multiplier"`
	Floor            *int64   `form:"floor"`
	Seasonal         *bool    `form:"seasonal"`
}

// config returns nil when nothing is overridden so the service applies its
// own defaults
func (q ForecastQuery) config(defaults forecast.Config) *forecast.Config {
	if q == (ForecastQuery{}) {
		return nil
	}
	cfg := defaults
	if q.LookbackDays != nil {
		cfg.LookbackDays = *q.LookbackDays
	}
	if q.LeadTimeDays != nil {
		cfg.LeadTimeDays = *q.LeadTimeDays
	}
	if q.SafetyMultiplier != nil {
		cfg.SafetyMultiplier = *q.SafetyMultiplier
	}
	if q.Floor != nil {
		cfg.Floor = *q.Floor
	}
	if q.Seasonal != nil {
		cfg.Seasonal = *q.Seasonal
	}
	return &cfg
}

// ReplenishmentHandler handles forecasts and reorder-point recalculation
type ReplenishmentHandler struct {
	BaseHandler
	planner   ReorderPlanner
	autoApply bool
}

// NewReplenishmentHandler creates a new ReplenishmentHandler. autoApply is
// the bulk recalculation mode used when a request does not choose one.
func NewReplenishmentHandler(planner ReorderPlanner, autoApply bool) *ReplenishmentHandler {
	return &ReplenishmentHandler{planner: planner, autoApply: autoApply}
}

func (h *ReplenishmentHandler) bindConfig(c *gin.Context) (*forecast.Config, bool) {
	var q ForecastQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return nil, false
	}
	return q.config(h.planner.Defaults()), true
}

// Forecast godoc
// @ID           forecastReorderPoint
// @Summary      Forecast a product's reorder point
// @Description  Computes demand metrics and the recommended reorder point without writing anything
// @Tags         replenishment
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Param        lookback_days query int false "History window in days"
// @Param        lead_time_days query int false "Supplier lead time in days"
// @Param        safety_multiplier query number false "Safety stock multiplier"
// @Param        floor query int false "Minimum reorder point"
// @Param        seasonal query bool false "Consider the recent window"
// @Success      200 {object} APIResponse[replenishment.ForecastResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Router       /products/{product_id}/forecast [get]
func (h *ReplenishmentHandler) Forecast(c *gin.Context) {
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}
	cfg, ok := h.bindConfig(c)
	if !ok {
		return
	}

	result, err := h.planner.Forecast(c.Request.Context(), productID, cfg)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// RecalculateOne godoc
// @ID           recalculateReorderPoint
// @Summary      Recalculate and apply a product's reorder point
// @Tags         replenishment
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[replenishment.RecalculationEntry]
// @Failure      404 {object} dto.ErrorResponse
// @Router       /products/{product_id}/reorder-point/recalculate [post]
func (h *ReplenishmentHandler) RecalculateOne(c *gin.Context) {
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}
	cfg, ok := h.bindConfig(c)
	if !ok {
		return
	}

	entry, err := h.planner.RecalculateOne(c.Request.Context(), productID, cfg)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entry)
}

type recalculateAllQuery struct {
	AutoApply *bool `form:"auto_apply"`
}

// RecalculateAll godoc
// @ID           recalculateAllReorderPoints
// @Summary      Recalculate every product's reorder point
// @Description  With auto_apply=false the sweep is a dry run that only reports proposed changes
// @Tags         replenishment
// @Produce      json
// @Param        auto_apply query bool false "Write the new reorder points"
// @Success      200 {object} APIResponse[replenishment.BulkRecalculationReport]
// @Failure      429 {object} dto.ErrorResponse
// @Router       /reorder-points/recalculate [post]
func (h *ReplenishmentHandler) RecalculateAll(c *gin.Context) {
	var q recalculateAllQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	autoApply := h.autoApply
	if q.AutoApply != nil {
		autoApply = *q.AutoApply
	}
	cfg, ok := h.bindConfig(c)
	if !ok {
		return
	}

	report, err := h.planner.RecalculateAll(c.Request.Context(), cfg, autoApply)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}
