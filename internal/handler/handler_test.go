package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"robot-service/internal/config"
	"robot-service/internal/model"
	"robot-service/internal/protocol"
	"robot-service/internal/repository"
	"robot-service/internal/robot"
	"robot-service/internal/service"
	"robot-service/internal/simulator"
	"robot-service/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *utils.APIError `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	svc    *service.RobotService
	sim    *simulator.Controller
	bus    *EventBus
	ws     *WebSocketHandler
	cfg    *config.Config
}

func newTestServer(t *testing.T, connect bool, simOpts ...simulator.Option) *testServer {
	t.Helper()

	cfg := &config.Config{
		App:       config.AppConfig{Name: "robot-service", Version: "test"},
		Transport: config.TransportConfig{Type: string(model.ConnectionTypeSimulator)},
		Robot: config.RobotConfig{
			CommandTimeout: 500 * time.Millisecond,
			PingTimeout:    100 * time.Millisecond,
			QueryTimeout:   200 * time.Millisecond,
			ReadyTimeout:   300 * time.Millisecond,
			ScanInterval:   time.Millisecond,
			BatchInterval:  time.Millisecond,
		},
	}

	base := []simulator.Option{
		simulator.WithMotors(1, 2),
		simulator.WithPollInterval(5 * time.Millisecond),
	}
	sim := simulator.New(append(base, simOpts...)...)

	logger := zaptest.NewLogger(t)
	router := robot.NewRouter(func() (protocol.Transport, error) { return sim, nil }, service.RouterOptions(cfg.Robot), logger)
	svc := service.NewRobotService(router, repository.NewMemoryCommandRepository(100), cfg, logger)

	bus := NewEventBus(logger)
	svc.AddSink(bus)
	ws := NewWebSocketHandler(svc, bus, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)
	go ws.Run(ctx)

	engine := gin.New()
	NewHealthHandler(nil, nil, svc, cfg, logger).RegisterRoutes(&engine.RouterGroup)
	api := engine.Group("/api/v1")
	NewRobotHandler(svc, logger).RegisterRoutes(api)
	NewCommandHandler(svc, logger).RegisterRoutes(api)
	ws.RegisterRoutes(engine.Group("/ws"))

	if connect {
		require.NoError(t, svc.Connect(context.Background()))
	}
	t.Cleanup(func() {
		svc.Disconnect()
		cancel()
	})

	return &testServer{engine: engine, svc: svc, sim: sim, bus: bus, ws: ws, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func TestLifecycleEndpoints(t *testing.T) {
	s := newTestServer(t, false)

	code, env := s.do(t, http.MethodPost, "/api/v1/robot/connect", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = s.do(t, http.MethodPost, "/api/v1/robot/connect", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ALREADY_CONNECTED", env.Error.Code)

	code, env = s.do(t, http.MethodGet, "/api/v1/robot/status", nil)
	require.Equal(t, http.StatusOK, code)
	var status robot.ConnectionStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.IsConnected)
	assert.Equal(t, model.ConnectionTypeSimulator, status.Transport)

	code, _ = s.do(t, http.MethodPost, "/api/v1/robot/disconnect", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/robot/disconnect", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "NOT_CONNECTED", env.Error.Code)
}

func TestPositionEndpoints(t *testing.T) {
	s := newTestServer(t, true)

	code, env := s.do(t, http.MethodPut, "/api/v1/motors/1/position", map[string]interface{}{"degrees": 75})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(t, http.MethodGet, "/api/v1/motors/1/position", nil)
	require.Equal(t, http.StatusOK, code)

	var pos struct {
		MotorID int    `json:"motor_id"`
		Raw     int    `json:"raw"`
		Degrees string `json:"degrees"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pos))
	assert.Equal(t, 1, pos.MotorID)
	assert.Equal(t, 768, pos.Raw)
	assert.Equal(t, "75.22", pos.Degrees)

	code, env = s.do(t, http.MethodPut, "/api/v1/motors/1/position", map[string]interface{}{"degrees": 200})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)

	code, _ = s.do(t, http.MethodPut, "/api/v1/motors/1/position", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMotorEndpoints(t *testing.T) {
	s := newTestServer(t, true)

	code, env := s.do(t, http.MethodGet, "/api/v1/motors/1/ping", nil)
	require.Equal(t, http.StatusOK, code)
	var ping PingDTO
	require.NoError(t, json.Unmarshal(env.Data, &ping))
	assert.True(t, ping.Online)

	code, env = s.do(t, http.MethodGet, "/api/v1/motors/5/ping", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &ping))
	assert.False(t, ping.Online)

	code, _ = s.do(t, http.MethodPut, "/api/v1/motors/1/torque", map[string]interface{}{"enabled": true})
	assert.Equal(t, http.StatusOK, code)
	m, _ := s.sim.Motor(1)
	assert.True(t, m.Torque)

	code, _ = s.do(t, http.MethodPut, "/api/v1/motors/1/velocity", map[string]interface{}{"degrees_per_second": "10"})
	assert.Equal(t, http.StatusOK, code)
	m, _ = s.sim.Motor(1)
	assert.Equal(t, 28, m.Velocity)

	code, env = s.do(t, http.MethodGet, "/api/v1/motors/1/velocity", nil)
	require.Equal(t, http.StatusOK, code)
	var vel VelocityDTO
	require.NoError(t, json.Unmarshal(env.Data, &vel))
	assert.Equal(t, 28, vel.Raw)

	code, _ = s.do(t, http.MethodPut, "/api/v1/motors/1/mode", map[string]interface{}{"mode": 3})
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/motors/2/temperature", nil)
	require.Equal(t, http.StatusOK, code)
	var temp TemperatureDTO
	require.NoError(t, json.Unmarshal(env.Data, &temp))
	assert.Equal(t, 30, temp.Raw)

	code, env = s.do(t, http.MethodGet, "/api/v1/motors/2/snapshot", nil)
	require.Equal(t, http.StatusOK, code)
	var snapshot SnapshotDTO
	require.NoError(t, json.Unmarshal(env.Data, &snapshot))
	require.NotNil(t, snapshot.Position)
	assert.Equal(t, 512, snapshot.Position.Raw)
	require.NotNil(t, snapshot.Temperature)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, true, simulator.WithSilentMotors(2))

	code, env := s.do(t, http.MethodGet, "/api/v1/motors/abc/ping", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/motors/300/ping", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPut, "/api/v1/motors/9/torque", map[string]interface{}{"enabled": true})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "CONTROLLER_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "Motor 9 not found")

	code, env = s.do(t, http.MethodGet, "/api/v1/motors/2/velocity", nil)
	assert.Equal(t, http.StatusGatewayTimeout, code)
	assert.Equal(t, "CONTROLLER_TIMEOUT", env.Error.Code)

	code, env = s.do(t, http.MethodPost, "/api/v1/robot/command", map[string]interface{}{"command": "BOGUS"})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "CONTROLLER_ERROR", env.Error.Code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/robot/command", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestNotConnected(t *testing.T) {
	s := newTestServer(t, false)

	code, env := s.do(t, http.MethodGet, "/api/v1/motors/1/position", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "NOT_CONNECTED", env.Error.Code)

	code, env = s.do(t, http.MethodPost, "/api/v1/robot/emergency-stop", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "NOT_CONNECTED", env.Error.Code)
}

func TestCommandBatchScanEndpoints(t *testing.T) {
	s := newTestServer(t, true)

	code, _ := s.do(t, http.MethodPost, "/api/v1/robot/command", map[string]interface{}{"command": "ENABLE_TORQUE:2"})
	assert.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodPost, "/api/v1/robot/batch", map[string]interface{}{
		"commands": []string{"ENABLE_TORQUE:1;", "SET_POSITION:1:2000;", "DISABLE_TORQUE:1;"},
	})
	require.Equal(t, http.StatusOK, code)
	var results []BatchResultDTO
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "out of range")
	assert.True(t, results[2].Success)

	code, _ = s.do(t, http.MethodPost, "/api/v1/robot/batch", map[string]interface{}{"commands": []string{}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/robot/scan", map[string]interface{}{"start_id": 0, "end_id": 4})
	require.Equal(t, http.StatusOK, code)
	var scan ScanResultDTO
	require.NoError(t, json.Unmarshal(env.Data, &scan))
	assert.Equal(t, 2, scan.Found)
	assert.Equal(t, 1, scan.Motors[0].MotorID)
	assert.Equal(t, 2, scan.Motors[1].MotorID)

	code, env = s.do(t, http.MethodPost, "/api/v1/robot/scan", map[string]interface{}{"start_id": 5, "end_id": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/robot/emergency-stop", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestWaitReadyEndpoint(t *testing.T) {
	s := newTestServer(t, true, simulator.WithReadyBanner())

	code, env := s.do(t, http.MethodPost, "/api/v1/robot/ready", nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	quiet := newTestServer(t, true)
	code, env = quiet.do(t, http.MethodPost, "/api/v1/robot/ready", map[string]interface{}{"timeout_ms": 50})
	assert.Equal(t, http.StatusGatewayTimeout, code)
	assert.Equal(t, "CONTROLLER_TIMEOUT", env.Error.Code)
}

func TestCommandJournalEndpoints(t *testing.T) {
	s := newTestServer(t, true)

	s.do(t, http.MethodGet, "/api/v1/motors/1/ping", nil)
	s.do(t, http.MethodGet, "/api/v1/motors/2/position", nil)
	s.do(t, http.MethodPut, "/api/v1/motors/9/torque", map[string]interface{}{"enabled": false})

	code, env := s.do(t, http.MethodGet, "/api/v1/commands?limit=2", nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Items  []model.CommandRecord `json:"items"`
		Total  int                   `json:"total"`
		Limit  int                   `json:"limit"`
		Offset int                   `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Items, 2)
	assert.Equal(t, model.OperationTypeTorque, page.Items[0].OperationType)
	assert.Equal(t, model.CommandStatusFailed, page.Items[0].Status)

	code, env = s.do(t, http.MethodGet, "/api/v1/commands?motor_id=2", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Equal(t, 1, page.Total)
	id := page.Items[0].ID

	code, env = s.do(t, http.MethodGet, "/api/v1/commands/"+id.String(), nil)
	require.Equal(t, http.StatusOK, code)
	var record model.CommandRecord
	require.NoError(t, json.Unmarshal(env.Data, &record))
	assert.Equal(t, "GET_POSITION:2;", record.Command)

	code, _ = s.do(t, http.MethodGet, "/api/v1/commands/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/commands/"+strings.Repeat("0", 8)+"-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/commands?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/commands/stats", nil)
	require.Equal(t, http.StatusOK, code)
	var stats repository.CommandStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Successful)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, false)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "degraded", health.Checks["robot"].Status)
	assert.Equal(t, "disabled", health.Checks["database"].Status)

	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	s.cfg.Robot.ConnectOnStart = true
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("x: %w", robot.ErrInvalidArgument), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{robot.ErrNotConnected, http.StatusConflict, "NOT_CONNECTED"},
		{robot.ErrAlreadyConnected, http.StatusConflict, "ALREADY_CONNECTED"},
		{robot.ErrRequestInFlight, http.StatusConflict, "REQUEST_IN_FLIGHT"},
		{robot.ErrTimeout, http.StatusGatewayTimeout, "CONTROLLER_TIMEOUT"},
		{&robot.ProtocolError{Message: "bad"}, http.StatusBadGateway, "CONTROLLER_ERROR"},
		{robot.ErrTransportUnavailable, http.StatusServiceUnavailable, "TRANSPORT_UNAVAILABLE"},
		{fmt.Errorf("%w: write failed", robot.ErrConnectionClosed), http.StatusServiceUnavailable, "CONNECTION_CLOSED"},
		{repository.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bus.Start(ctx)
		close(done)
	}()

	all := bus.Subscribe()
	scans := bus.Subscribe(model.EventScanCompleted)

	bus.Publish(ctx, model.NewRobotEvent(model.EventRobotConnected, "test", nil))
	bus.Publish(ctx, model.NewRobotEvent(model.EventScanCompleted, "test", nil))

	for _, want := range []model.EventType{model.EventRobotConnected, model.EventScanCompleted} {
		select {
		case ev := <-all:
			assert.Equal(t, want, ev.EventType)
		case <-time.After(time.Second):
			t.Fatalf("no %s event", want)
		}
	}
	select {
	case ev := <-scans:
		assert.Equal(t, model.EventScanCompleted, ev.EventType)
	case <-time.After(time.Second):
		t.Fatal("no scan event")
	}

	cancel()
	<-done
	_, open := <-all
	assert.False(t, open)
}

func TestWebSocketEvents(t *testing.T) {
	s := newTestServer(t, true)
	server := httptest.NewServer(s.engine)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Events from earlier activity may interleave; skip to the wanted type
	readUntil := func(msgType string) WebSocketMessage {
		t.Helper()
		for {
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			var msg WebSocketMessage
			require.NoError(t, conn.ReadJSON(&msg))
			if msg.Type == msgType {
				return msg
			}
		}
	}

	readUntil("status")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "subscribe",
		"data": map[string]interface{}{"topic": string(model.EventCommandCompleted)},
	}))
	readUntil("subscribed")

	require.NoError(t, s.svc.EnableTorque(context.Background(), 1, true))
	msg := readUntil("robot_event")
	event, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(model.EventCommandCompleted), event["event_type"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       "command",
		"request_id": "ws-1",
		"data":       map[string]interface{}{"command": "ping", "motor_id": 2},
	}))

	msg = readUntil("command_response")
	assert.Equal(t, "ws-1", msg.RequestID)
	resp := msg.Data.(map[string]interface{})
	assert.Equal(t, true, resp["success"])

	require.Eventually(t, func() bool {
		return s.ws.GetConnectionStats().TotalConnections == 1
	}, time.Second, 10*time.Millisecond)
}
