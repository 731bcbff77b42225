package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"robot-service/internal/config"
	"robot-service/internal/handler"
	"robot-service/internal/middleware"
	"robot-service/internal/monitor"
	"robot-service/internal/protocol"
	"robot-service/internal/repository"
	"robot-service/internal/robot"
	"robot-service/internal/service"
	"robot-service/internal/simulator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(t *testing.T, metricsEnabled bool) *gin.Engine {
	t.Helper()

	cfg := &config.Config{
		App:       config.AppConfig{Name: "robot-service", Environment: "test"},
		Transport: config.TransportConfig{Type: "simulator"},
		Robot: config.RobotConfig{
			CommandTimeout: 200 * time.Millisecond,
			PingTimeout:    100 * time.Millisecond,
			QueryTimeout:   100 * time.Millisecond,
		},
		Metrics: config.MetricsConfig{Enabled: metricsEnabled, Path: "/metrics"},
	}
	logger := zaptest.NewLogger(t)

	reg := prometheus.NewRegistry()
	metrics := monitor.NewMetrics(reg)

	sim := simulator.New(simulator.WithMotors(1))
	router := robot.NewRouter(func() (protocol.Transport, error) { return sim, nil }, service.RouterOptions(cfg.Robot), logger)
	router.SetMetrics(metrics)
	svc := service.NewRobotService(router, repository.NewMemoryCommandRepository(10), cfg, logger)

	bus := handler.NewEventBus(logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go bus.Start(ctx)

	handlers := Handlers{
		Robot:     handler.NewRobotHandler(svc, logger),
		Command:   handler.NewCommandHandler(svc, logger),
		Health:    handler.NewHealthHandler(nil, nil, svc, cfg, logger),
		WebSocket: handler.NewWebSocketHandler(svc, bus, nil, logger),
	}

	return NewRouter(cfg, logger, metrics, reg, handlers).SetupRouter()
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRoutesMounted(t *testing.T) {
	engine := newEngine(t, true)

	w := serve(engine, http.MethodGet, "/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = serve(engine, http.MethodGet, "/api/v1/robot/status")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(engine, http.MethodGet, "/api/v1/commands")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(engine, http.MethodGet, "/ws/stats")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(engine, http.MethodGet, "/docs")
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/swagger/index.html", w.Header().Get("Location"))
}

func TestMetricsEndpoint(t *testing.T) {
	engine := newEngine(t, true)

	serve(engine, http.MethodGet, "/live")
	serve(engine, http.MethodGet, "/no-such-route")

	w := serve(engine, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `robot_http_requests_total{method="GET",route="/live",status="200"} 1`)
	assert.Contains(t, body, `route="unmatched"`)
}

func TestMetricsDisabled(t *testing.T) {
	engine := newEngine(t, false)

	w := serve(engine, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
