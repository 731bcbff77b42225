// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"robot-service/internal/config"
	"robot-service/internal/handler"
	"robot-service/internal/middleware"
	"robot-service/internal/monitor"
	"robot-service/internal/utils"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Robot     *handler.RobotHandler
	Command   *handler.CommandHandler
	Health    *handler.HealthHandler
	WebSocket *handler.WebSocketHandler
}

// Router holds all dependencies for routing
type Router struct {
	config   *config.Config
	logger   *zap.Logger
	metrics  *monitor.Metrics
	gatherer prometheus.Gatherer
	handlers Handlers
}

// NewRouter creates a new router instance. metrics and gatherer may be nil
// when metrics are disabled.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	metrics *monitor.Metrics,
	gatherer prometheus.Gatherer,
	handlers Handlers,
) *Router {
	return &Router{
		config:   config,
		logger:   logger,
		metrics:  metrics,
		gatherer: gatherer,
		handlers: handlers,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	// Request ID first so recovery and access logs can carry it
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(r.logger))

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger, r.metrics))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	// Health check routes
	r.handlers.Health.RegisterRoutes(router.Group(""))

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	r.handlers.Robot.RegisterRoutes(apiV1)
	r.handlers.Command.RegisterRoutes(apiV1)

	// WebSocket routes
	r.handlers.WebSocket.RegisterRoutes(router.Group("/ws"))

	r.addMetricsRoutes(router)
	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addMetricsRoutes exposes Prometheus metrics when enabled
func (r *Router) addMetricsRoutes(router *gin.Engine) {
	if !r.config.Metrics.Enabled || r.gatherer == nil {
		return
	}

	path := r.config.Metrics.Path
	if path == "" {
		path = "/metrics"
	}
	router.GET(path, gin.WrapH(monitor.Handler(r.gatherer)))
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
