// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"robot-service/internal/model"
	"robot-service/internal/robot"
	"robot-service/internal/service"
	"robot-service/internal/utils"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// WebSocketHandler streams robot events to WebSocket clients and accepts
// a small set of commands over the same socket
type WebSocketHandler struct {
	upgrader     websocket.Upgrader
	connections  *ConnectionManager
	robotService *service.RobotService
	eventBus     *EventBus
	logger       *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler. allowedOrigins empty
// or containing "*" accepts any origin.
func NewWebSocketHandler(
	robotService *service.RobotService,
	eventBus *EventBus,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowedOrigins) == 0 || origin == "" ||
				slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}

	return &WebSocketHandler{
		upgrader:     upgrader,
		connections:  NewConnectionManager(),
		robotService: robotService,
		eventBus:     eventBus,
		logger:       utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/events", h.HandleEventConnection)
	router.GET("/motors/:id", h.HandleMotorConnection)
	router.GET("/stats", h.GetConnectionStatsHandler)
}

// Run forwards bus events to clients until the bus closes the subscription
func (h *WebSocketHandler) Run(ctx context.Context) {
	events := h.eventBus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.BroadcastEvent(event)
		}
	}
}

// HandleEventConnection handles general event WebSocket connections
func (h *WebSocketHandler) HandleEventConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := h.newClient(c, conn, ClientTypeEvents, nil)
	h.connections.Register(client)
	h.logger.Info("Event WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.sendMessage(client, &WebSocketMessage{
		Type:      "status",
		Data:      h.robotService.Status(),
		Timestamp: time.Now(),
	})

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// HandleMotorConnection handles WebSocket connections scoped to one motor
func (h *WebSocketHandler) HandleMotorConnection(c *gin.Context) {
	motorID, err := strconv.Atoi(c.Param("id"))
	if err != nil || motorID < 0 || motorID > robot.MaxMotorID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "motor id must be an integer between 0 and 253"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := h.newClient(c, conn, ClientTypeMotor, &motorID)
	h.connections.Register(client)
	h.logger.Info("Motor WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.Int("motor_id", motorID),
	)

	go h.sendInitialMotorStatus(client, motorID)
	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

func (h *WebSocketHandler) newClient(c *gin.Context, conn *websocket.Conn, clientType string, motorID *int) *Client {
	return &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		Type:        clientType,
		MotorID:     motorID,
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
	}()

	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			break
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.sendError(client, "invalid message: "+err.Error())
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "subscribe", "unsubscribe":
		h.handleSubscription(client, message)
	case "command":
		data, ok := message.Data.(map[string]interface{})
		if !ok {
			h.sendError(client, "invalid command data")
			return
		}
		go h.executeCommand(client, message.RequestID, data)
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	default:
		h.sendError(client, fmt.Sprintf("unknown message type: %s", message.Type))
	}
}

// handleSubscription adds or removes an event type filter
func (h *WebSocketHandler) handleSubscription(client *Client, message *WebSocketMessage) {
	data, ok := message.Data.(map[string]interface{})
	if !ok {
		h.sendError(client, "topic is required")
		return
	}
	topic, ok := data["topic"].(string)
	if !ok || topic == "" {
		h.sendError(client, "topic is required")
		return
	}

	if message.Type == "subscribe" {
		client.Subscribe(topic)
	} else {
		client.Unsubscribe(topic)
	}

	h.logger.Debug("Client subscription changed",
		zap.String("client_id", client.ID),
		zap.String("action", message.Type),
		zap.String("topic", topic),
	)
	h.sendMessage(client, &WebSocketMessage{
		Type: message.Type + "d",
		Data: map[string]interface{}{
			"topic":         topic,
			"subscriptions": client.Subscriptions(),
		},
		Timestamp: time.Now(),
		RequestID: message.RequestID,
	})
}

func intField(data map[string]interface{}, key string) (int, bool) {
	v, ok := data[key].(float64)
	if !ok || v != float64(int(v)) {
		return 0, false
	}
	return int(v), true
}

// executeCommand runs a robot operation requested over the socket. Motor
// clients default motor_id to their own motor.
func (h *WebSocketHandler) executeCommand(client *Client, requestID string, data map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx = service.WithRequestID(ctx, requestID)

	command, _ := data["command"].(string)
	motorID, hasMotor := intField(data, "motor_id")
	if !hasMotor && client.MotorID != nil {
		motorID, hasMotor = *client.MotorID, true
	}

	var (
		result interface{}
		err    error
	)

	needsMotor := func() bool {
		if !hasMotor {
			h.sendError(client, "motor_id is required for "+command)
			return false
		}
		return true
	}

	switch command {
	case "status":
		result = h.robotService.Status()
	case "ping":
		if !needsMotor() {
			return
		}
		var online bool
		online, err = h.robotService.Ping(ctx, motorID)
		result = PingDTO{MotorID: motorID, Online: online}
	case "position":
		if !needsMotor() {
			return
		}
		var pos robot.PositionResponse
		pos, err = h.robotService.GetPosition(ctx, motorID)
		result = newPositionDTO(pos)
	case "snapshot":
		if !needsMotor() {
			return
		}
		var snapshot robot.MotorSnapshot
		snapshot, err = h.robotService.QueryMotor(ctx, motorID)
		result = newSnapshotDTO(snapshot)
	case "emergency_stop":
		err = h.robotService.EmergencyStop(ctx)
	case "send":
		line, _ := data["line"].(string)
		err = h.robotService.SendCommand(ctx, line, 0)
		result = map[string]interface{}{"line": line}
	default:
		h.sendError(client, fmt.Sprintf("unknown command: %s", command))
		return
	}

	response := map[string]interface{}{
		"command": command,
		"success": err == nil,
	}
	if err == nil {
		response["result"] = result
	} else {
		_, code := statusFor(err)
		response["error"] = err.Error()
		response["error_code"] = code
	}

	h.sendMessage(client, &WebSocketMessage{
		Type:      "command_response",
		Data:      response,
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// sendInitialMotorStatus sends a snapshot to a freshly connected motor client
func (h *WebSocketHandler) sendInitialMotorStatus(client *Client, motorID int) {
	if !h.robotService.Status().IsConnected {
		h.sendMessage(client, &WebSocketMessage{
			Type:      "initial_status",
			Data:      map[string]interface{}{"motor_id": motorID, "connected": false},
			Timestamp: time.Now(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot, err := h.robotService.QueryMotor(ctx, motorID)
	if err != nil {
		h.sendError(client, fmt.Sprintf("failed to read motor: %v", err))
		return
	}

	h.sendMessage(client, &WebSocketMessage{
		Type: "initial_status",
		Data: map[string]interface{}{
			"motor_id":  motorID,
			"connected": true,
			"snapshot":  newSnapshotDTO(snapshot),
		},
		Timestamp: time.Now(),
	})
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	h.connections.Broadcast(messageBytes, func(c *Client) bool { return c == client })
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type: "error",
		Data: map[string]interface{}{
			"error": errorMsg,
		},
		Timestamp: time.Now(),
	})
}

// eventMotorID extracts the motor an event concerns, if any
func eventMotorID(event *model.RobotEvent) (int, bool) {
	switch v := event.Data["motor_id"].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// BroadcastEvent delivers a robot event to every interested client.
// Motor clients see events for their motor plus connection changes.
func (h *WebSocketHandler) BroadcastEvent(event *model.RobotEvent) {
	messageBytes, err := json.Marshal(&WebSocketMessage{
		Type:      "robot_event",
		Data:      event,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	topic := string(event.EventType)
	motorID, hasMotor := eventMotorID(event)
	linkEvent := event.EventType == model.EventRobotConnected || event.EventType == model.EventRobotDisconnected

	_, dropped := h.connections.Broadcast(messageBytes, func(c *Client) bool {
		if !c.Wants(topic) {
			return false
		}
		if c.Type == ClientTypeMotor {
			return linkEvent || (hasMotor && c.MotorID != nil && *c.MotorID == motorID)
		}
		return true
	})
	if dropped > 0 {
		h.logger.Warn("Client send channel full during broadcast",
			zap.String("event_type", topic),
			zap.Int("dropped", dropped),
		)
	}
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}

// GetConnectionStatsHandler reports connected WebSocket clients
// @Summary WebSocket statistics
// @Tags WebSocket
// @Produce json
// @Success 200 {object} utils.APIResponse{data=ConnectionStats} "Statistics"
// @Router /ws/stats [get]
func (h *WebSocketHandler) GetConnectionStatsHandler(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "WebSocket statistics", h.GetConnectionStats())
}
