package router

import (
	"github.com/gin-gonic/gin"

	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
)

// Handlers bundles the HTTP handlers of the ledger API
type Handlers struct {
	Batch         *handler.BatchHandler
	Expiry        *handler.ExpiryHandler
	Replenishment *handler.ReplenishmentHandler
	System        *handler.SystemHandler
}

// Register mounts /health on the engine and the ledger API under /api/v1.
// limiter guards the bulk recalculation and sweep routes; nil disables it.
func Register(engine *gin.Engine, h Handlers, limiter *middleware.RateLimiter) {
	engine.GET("/health", h.System.Health)

	var heavy []gin.HandlerFunc
	if limiter != nil {
		heavy = append(heavy, middleware.RateLimit(limiter))
	}
	guarded := func(final gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, heavy...), final)
	}

	inventory := NewDomainGroup("inventory", "").
		POST("/products/:product_id/batches", h.Batch.Create).
		DELETE("/products/:product_id/batches/:id", h.Batch.Delete).
		PUT("/batches/:id", h.Batch.Update).
		GET("/batches", h.Batch.List).
		GET("/products/:product_id/stock", h.Batch.GetStock).
		PUT("/products/:product_id/stock/thresholds", h.Batch.SetThresholds).
		GET("/products/:product_id/stock/reconcile", h.Batch.Reconcile)

	expiry := NewDomainGroup("expiry", "").
		GET("/expiry/alerts", h.Expiry.Alerts).
		POST("/products/:product_id/batches/:id/dispose", h.Expiry.Dispose).
		GET("/products/:product_id/disposals", h.Expiry.ListDisposals)

	replenishment := NewDomainGroup("replenishment", "").
		GET("/products/:product_id/forecast", h.Replenishment.Forecast).
		POST("/products/:product_id/reorder-point/recalculate", h.Replenishment.RecalculateOne).
		POST("/reorder-points/recalculate", guarded(h.Replenishment.RecalculateAll)...)

	system := NewDomainGroup("system", "/sweeps").
		POST("/:type", guarded(h.System.TriggerSweep)...)

	NewRouter(engine, WithAPIVersion("v1")).
		Register(inventory).
		Register(expiry).
		Register(replenishment).
		Register(system).
		Setup()
}
