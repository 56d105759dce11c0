// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"docnum/internal/domain/numbering"
	"docnum/internal/infrastructure/http/v1/handlers"
	"docnum/internal/infrastructure/http/v1/middleware"
	"docnum/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Numbering serves the numbering endpoints
	Numbering *numbering.Service

	// Idempotency stores replayable /next responses; nil disables Idempotency-Key support
	Idempotency middleware.IdempotencyStore

	// DB is pinged by /health/ready; nil skips the check
	DB handlers.Pinger

	// Version is reported by /health/info
	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		registerNumberingRoutes(protected, cfg)
	}

	return router
}

// registerNumberingRoutes registers document numbering endpoints.
func registerNumberingRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	h := handlers.NewNumberingHandler(handlers.NewBaseHandler(), cfg.Numbering)
	guards := handlers.RouteGuards{
		// Saved patterns change numbering for the whole account.
		SavePattern: []gin.HandlerFunc{middleware.RequireRole("owner", "admin")},
	}
	if cfg.Idempotency != nil {
		guards.Next = append(guards.Next, middleware.Idempotency(cfg.Idempotency))
	}
	h.RegisterRoutes(rg.Group("/numbering"), guards)
}
