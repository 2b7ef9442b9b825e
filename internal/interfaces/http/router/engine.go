package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
)

// EngineConfig holds the settings of the global middleware chain
type EngineConfig struct {
	Logger      *zap.Logger
	CORS        middleware.CORSConfig
	MaxBodySize int64
	Tracing     middleware.TracingConfig
	// Meter may be nil, which disables HTTP metrics
	Meter     *telemetry.MeterProvider
	Profiling bool
}

// NewEngine creates a gin engine with the global middleware chain installed.
// Tracing runs before the request logger so log lines carry trace IDs.
func NewEngine(cfg EngineConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = middleware.DefaultBodyLimit
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(cfg.Tracing))
	engine.Use(middleware.SpanAttributes())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(cfg.Meter))
	engine.Use(middleware.Profiling(cfg.Profiling))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(cfg.CORS))
	engine.Use(middleware.BodyLimit(maxBody))

	return engine
}
