package handlers

import (
	"energy_usage/internal/logger"
	"energy_usage/internal/metrics"
	"energy_usage/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const defaultUsageDays = 3

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services    *service.Service
	log         *logger.Logger
	defaultDays int
}

// NewHandler constructs a new HTTP handler with dependencies.
// defaultDays is the report window used when ?days is omitted.
func NewHandler(services *service.Service, log *logger.Logger, defaultDays int) *Handler {
	if defaultDays <= 0 {
		defaultDays = defaultUsageDays
	}
	return &Handler{services: services, log: log, defaultDays: defaultDays}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), metrics.GinMiddleware())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health endpoint
	router.GET("/health", h.health)

	h.registerAPIRoutes(router)

	// Usage stream over WebSocket, same port
	router.GET("/ws/usage/:userId", h.userIdMiddleware, h.wsUsage)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/usage/:userId", h.userIdMiddleware, h.getUsage)
		api.GET("/alerts/:userId", h.userIdMiddleware, h.getAlerts)
	}
}
