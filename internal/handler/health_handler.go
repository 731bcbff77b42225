// internal/handler/health_handler.go
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"robot-service/internal/config"
	"robot-service/internal/database"
	"robot-service/internal/service"
	"robot-service/internal/telemetry"
	"robot-service/internal/utils"
)

const healthCheckTimeout = 3 * time.Second

// HealthHandler handles health check requests. db and publisher are nil
// when the journal database or telemetry is disabled.
type HealthHandler struct {
	db           *database.DB
	publisher    *telemetry.RedisPublisher
	robotService *service.RobotService
	config       *config.Config
	logger       *utils.ServiceLogger
	startedAt    time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(
	db *database.DB,
	publisher *telemetry.RedisPublisher,
	robotService *service.RobotService,
	config *config.Config,
	logger *zap.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:           db,
		publisher:    publisher,
		robotService: robotService,
		config:       config,
		logger:       utils.NewServiceLogger(logger, "health-handler"),
		startedAt:    time.Now(),
	}
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.HealthCheck)
	router.GET("/health/db", h.DatabaseHealthCheck)
	router.GET("/ready", h.ReadinessCheck)
	router.GET("/live", h.LivenessCheck)
}

// HealthCheck performs general health check
// @Summary Health check
// @Description Overall service health: controller link, journal database and telemetry
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Failure 503 {object} HealthResponse "Service is unhealthy"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Checks:    make(map[string]CheckResult),
	}

	status := h.robotService.Status()
	robotCheck := CheckResult{
		Status: "healthy",
		Data: map[string]interface{}{
			"connected":        status.IsConnected,
			"ready":            status.Ready,
			"pending_requests": status.PendingResponseCount,
			"transport":        h.config.Transport.Type,
		},
	}
	if !status.IsConnected {
		// A disconnected link is a degraded state, not an outage of this service
		robotCheck.Status = "degraded"
		robotCheck.Message = "controller not connected"
	}
	health.Checks["robot"] = robotCheck

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			health.Status = "unhealthy"
			health.Checks["database"] = CheckResult{Status: "unhealthy", Message: err.Error()}
		} else {
			stats := h.db.GetStats()
			health.Checks["database"] = CheckResult{
				Status:  "healthy",
				Message: "Database connection OK",
				Data: map[string]interface{}{
					"open_connections": stats.OpenConnections,
					"in_use":           stats.InUse,
					"idle":             stats.Idle,
				},
			}
		}
	} else {
		health.Checks["database"] = CheckResult{Status: "disabled", Message: "in-memory journal"}
	}

	if h.publisher != nil {
		if err := h.publisher.HealthCheck(ctx); err != nil {
			health.Checks["telemetry"] = CheckResult{Status: "degraded", Message: err.Error()}
		} else {
			health.Checks["telemetry"] = CheckResult{Status: "healthy", Data: h.publisher.GetStats()}
		}
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// DatabaseHealthCheck checks database connectivity
// @Summary Database health check
// @Tags Health
// @Produce json
// @Success 200 {object} utils.APIResponse "Database is healthy"
// @Failure 503 {object} utils.APIResponse "Database is unhealthy"
// @Router /health/db [get]
func (h *HealthHandler) DatabaseHealthCheck(c *gin.Context) {
	if h.db == nil {
		utils.SuccessResponse(c, http.StatusOK, "Database disabled", gin.H{"status": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	startTime := time.Now()
	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Database unhealthy", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Database is healthy", gin.H{
		"status":           "healthy",
		"response_time_ms": time.Since(startTime).Milliseconds(),
		"stats":            h.db.GetStats(),
	})
}

// ReadinessCheck for Kubernetes readiness probe
// @Summary Readiness check
// @Description Ready when the journal database answers and, with connect_on_start, the controller link is up
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is ready"
// @Failure 503 {object} object{status=string,reason=string} "Service is not ready"
// @Router /ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.db.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database not available",
			})
			return
		}
	}

	if h.config.Robot.ConnectOnStart && !h.robotService.Status().IsConnected {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "controller not connected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness probe
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is alive"
// @Router /live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
