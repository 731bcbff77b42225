// internal/handler/robot_handler.go
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"robot-service/internal/robot"
	"robot-service/internal/service"
	"robot-service/internal/utils"
)

// RobotHandler handles controller link and motor HTTP requests
type RobotHandler struct {
	robotService *service.RobotService
	logger       *utils.ServiceLogger
}

// NewRobotHandler creates a new robot handler
func NewRobotHandler(robotService *service.RobotService, logger *zap.Logger) *RobotHandler {
	return &RobotHandler{
		robotService: robotService,
		logger:       utils.NewServiceLogger(logger, "robot-handler"),
	}
}

// RegisterRoutes registers robot and motor routes
func (h *RobotHandler) RegisterRoutes(router *gin.RouterGroup) {
	robotRoutes := router.Group("/robot")
	{
		robotRoutes.POST("/connect", h.Connect)
		robotRoutes.POST("/disconnect", h.Disconnect)
		robotRoutes.GET("/status", h.GetStatus)
		robotRoutes.POST("/ready", h.WaitReady)
		robotRoutes.POST("/command", h.SendCommand)
		robotRoutes.POST("/batch", h.BatchCommand)
		robotRoutes.POST("/emergency-stop", h.EmergencyStop)
		robotRoutes.POST("/scan", h.ScanMotors)
	}

	motorRoutes := router.Group("/motors/:id")
	{
		motorRoutes.GET("/ping", h.PingMotor)
		motorRoutes.PUT("/torque", h.SetTorque)
		motorRoutes.GET("/position", h.GetPosition)
		motorRoutes.PUT("/position", h.SetPosition)
		motorRoutes.GET("/velocity", h.GetVelocity)
		motorRoutes.PUT("/velocity", h.SetVelocity)
		motorRoutes.PUT("/mode", h.SetMode)
		motorRoutes.GET("/temperature", h.GetTemperature)
		motorRoutes.GET("/snapshot", h.GetSnapshot)
	}
}

func requestContext(c *gin.Context) context.Context {
	return service.WithRequestID(c.Request.Context(), utils.GetRequestID(c))
}

func motorIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 || id > robot.MaxMotorID {
		utils.ValidationErrorResponse(c, map[string]string{
			"id": "motor id must be an integer between 0 and " + strconv.Itoa(robot.MaxMotorID),
		})
		return 0, false
	}
	return id, true
}

// Connect opens the controller link
// @Summary Connect to the controller
// @Description Open the configured transport and start reading controller replies
// @Tags Robot
// @Produce json
// @Success 200 {object} utils.APIResponse{data=robot.ConnectionStatus} "Connected"
// @Failure 409 {object} utils.APIResponse "Already connected"
// @Failure 503 {object} utils.APIResponse "Transport unavailable"
// @Router /robot/connect [post]
func (h *RobotHandler) Connect(c *gin.Context) {
	if err := h.robotService.Connect(requestContext(c)); err != nil {
		robotError(c, "Failed to connect to controller", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Connected to controller", h.robotService.Status())
}

// Disconnect closes the controller link
// @Summary Disconnect from the controller
// @Description Close the transport; requests awaiting a reply fail with connection closed
// @Tags Robot
// @Produce json
// @Success 200 {object} utils.APIResponse "Disconnected"
// @Failure 409 {object} utils.APIResponse "Not connected"
// @Router /robot/disconnect [post]
func (h *RobotHandler) Disconnect(c *gin.Context) {
	if err := h.robotService.Disconnect(); err != nil {
		robotError(c, "Failed to disconnect", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Disconnected from controller", h.robotService.Status())
}

// GetStatus returns the link status
// @Summary Link status
// @Tags Robot
// @Produce json
// @Success 200 {object} utils.APIResponse{data=robot.ConnectionStatus} "Status"
// @Router /robot/status [get]
func (h *RobotHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Status retrieved", h.robotService.Status())
}

// WaitReady waits for the controller READY line
// @Summary Wait for READY
// @Tags Robot
// @Accept json
// @Produce json
// @Param request body ReadyRequest false "Timeout override"
// @Success 200 {object} utils.APIResponse "Controller ready"
// @Failure 504 {object} utils.APIResponse "READY not received in time"
// @Router /robot/ready [post]
func (h *RobotHandler) WaitReady(c *gin.Context) {
	var req ReadyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	if err := h.robotService.WaitReady(requestContext(c), timeout); err != nil {
		robotError(c, "Controller not ready", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Controller ready", h.robotService.Status())
}

// SendCommand sends a raw command
// @Summary Send raw command
// @Description Send one protocol command and wait for OK or ERROR
// @Tags Robot
// @Accept json
// @Produce json
// @Param request body CommandRequest true "Command"
// @Success 200 {object} utils.APIResponse "Command acknowledged"
// @Failure 400 {object} utils.APIResponse "Invalid command"
// @Failure 409 {object} utils.APIResponse "Not connected or command in flight"
// @Failure 502 {object} utils.APIResponse "Controller error"
// @Failure 504 {object} utils.APIResponse "Controller timeout"
// @Router /robot/command [post]
func (h *RobotHandler) SendCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	if err := h.robotService.SendCommand(requestContext(c), req.Command, timeout); err != nil {
		robotError(c, "Command failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Command acknowledged", gin.H{"command": req.Command})
}

// BatchCommand sends commands in order
// @Summary Send command batch
// @Description Send commands one at a time in order; every command is attempted
// @Tags Robot
// @Accept json
// @Produce json
// @Param request body BatchRequest true "Commands"
// @Success 200 {object} utils.APIResponse{data=[]BatchResultDTO} "Per-command results"
// @Router /robot/batch [post]
func (h *RobotHandler) BatchCommand(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	results, err := h.robotService.BatchCommand(requestContext(c), req.Commands)
	if err != nil {
		robotError(c, "Batch interrupted", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Batch completed", newBatchResultDTOs(results))
}

// EmergencyStop halts every motor
// @Summary Emergency stop
// @Tags Robot
// @Produce json
// @Success 200 {object} utils.APIResponse "Stopped"
// @Failure 409 {object} utils.APIResponse "Not connected or command in flight"
// @Router /robot/emergency-stop [post]
func (h *RobotHandler) EmergencyStop(c *gin.Context) {
	if err := h.robotService.EmergencyStop(requestContext(c)); err != nil {
		h.logger.Error("Emergency stop failed", zap.Error(err))
		robotError(c, "Emergency stop failed", err)
		return
	}
	h.logger.Warn("Emergency stop executed", zap.String("request_id", utils.GetRequestID(c)))
	utils.SuccessResponse(c, http.StatusOK, "Emergency stop executed", nil)
}

// ScanMotors discovers motors
// @Summary Scan motor ids
// @Description Ping every id in the range and snapshot the motors that answer
// @Tags Robot
// @Accept json
// @Produce json
// @Param request body ScanRequest true "Id range"
// @Success 200 {object} utils.APIResponse{data=ScanResultDTO} "Scan result"
// @Router /robot/scan [post]
func (h *RobotHandler) ScanMotors(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	found, err := h.robotService.ScanMotors(requestContext(c), *req.StartID, *req.EndID)
	if err != nil {
		robotError(c, "Scan failed", err)
		return
	}

	motors := make([]SnapshotDTO, 0, len(found))
	for _, s := range found {
		motors = append(motors, newSnapshotDTO(s))
	}
	utils.SuccessResponse(c, http.StatusOK, "Scan completed", ScanResultDTO{
		StartID: *req.StartID,
		EndID:   *req.EndID,
		Found:   len(motors),
		Motors:  motors,
	})
}

// PingMotor checks motor presence
// @Summary Ping motor
// @Tags Motors
// @Produce json
// @Param id path int true "Motor id"
// @Success 200 {object} utils.APIResponse{data=PingDTO} "Ping result"
// @Router /motors/{id}/ping [get]
func (h *RobotHandler) PingMotor(c *gin.Context) {
	id, ok := motorIDParam(c)
	if !ok {
		return
	}

	online, err := h.robotService.Ping(requestContext(c), id)
	if err != nil {
		robotError(c, "Ping failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Ping completed", PingDTO{MotorID: id, Online: online})
}

// SetTorque switches holding torque
// @Summary Enable or disable torque
// @Tags Motors
// @Accept json
// @Produce json
// @Param id path int true "Motor id"
// @Param request body TorqueRequest true "Torque state"
// @Success 200 {object} utils.APIResponse "Torque updated"
// @Router /motors/{id}/torque [put]
func (h *RobotHandler) SetTorque(c *gin.Context) {
	id, ok := motorIDParam(c)
	if !ok {
		return
	}
	var req TorqueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.robotService.EnableTorque(requestContext(c), id, *req.Enabled); err != nil {
		robotError(c, "Failed to set torque", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Torque updated", gin.H{"motor_id": id, "enabled": *req.Enabled})
}

// SetPosition moves a motor
// @Summary Set goal position
// @Description Degrees in [-150, 150] map onto raw 0..1023
// @Tags Motors
// @Accept json
// @Produce json
// @Param id path int true "Motor id"
// @Param request body PositionRequest true "Goal position"
// @Success 200 {object} utils.APIResponse "Position set"
// @Failure 400 {object} utils.APIResponse "Out of range"
// @Router /motors/{id}/position [put]
func (h *RobotHandler) SetPosition(c *gin.Context) {
	id, ok := motorIDParam(c)
	if !ok {
		return
	}
	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	degrees := req.Degrees.InexactFloat64()
	if err := h.robotService.SetPosition(requestContext(c), id, degrees); err != nil {
		robotError(c, "Failed to set position", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Position set", gin.H{
		"motor_id": id,
		"degrees":  req.Degrees,
		"raw":      robot.DegreesToPositionRaw(degrees),
	})
}

// GetPosition reads a motor position
// @Summary Read position
// @Tags Motors
// @Produce json
// @Param id path int true "Motor id"
// @Success 200 {object} utils.APIResponse{data=PositionDTO} "Position"
// @Failure 504 {object} utils.APIResponse "Motor did not answer"
// @Router /motors/{id}/position [get]
func (h *RobotHandler) GetPosition(c *gin.Context) {
	id, ok := motorIDParam(c)
	if !ok {
		return
	}

	pos, err := h.robotService.GetPosition(requestContext(c), id)
	if err != nil {
		robotError(c, "Failed to read position", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Position retrieved", newPositionDTO(pos))
}

// SetVelocity sets motor speed
// @Summary Set velocity
// @Tags Motors
// @Accept json
// @Produce json
// @Param id path int true "Motor id"
// @Param request body VelocityRequest true "Velocity"
// @Success 200 {object} utils.APIResponse "Velocity set"
// @Router /motors/{id}/velocity [put]
func (h *RobotHandler) SetVelocity(c *gin.Context) {
	id, ok := motorIDParam(c)
	if !ok {
		return
	}
	var req VelocityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dps := req.DegreesPerSecond.InexactFloat64()
	if err := h.robotService.SetVelocity(requestContext(c), id, dps); err != nil {
		robotError(c, "Failed to set velocity", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Velocity set", gin.H{
		"motor_id":           id,
		"degrees_per_second": req.DegreesPerSecond,
		"raw":                robot.DegreesToVelocityRaw(dps),
	})
}

// GetVelocity reads a motor velocity
// @Summary Read velocity
// @Tags Motors
// @Produce json
// @Param id path int true "Motor id"
// @Success 200 {object} utils.APIResponse{data=VelocityDTO} "Velocity"
// @Router /motors/{id}/velocity [get]
func (h *RobotHandler) GetVelocity(c *gin.Context) {
	id, ok := motorIDParam(c)
	if !ok {
		return
	}

	vel, err := h.robotService.GetVelocity(requestContext(c), id)
	if err != nil {
		robotError(c, "Failed to read velocity", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Velocity retrieved", VelocityDTO{MotorID: vel.MotorID, Raw: vel.Raw})
}

// SetMode selects the operating mode
// @Summary Set mode
// @Tags Motors
// @Accept json
// @Produce json
// @Param id path int true "Motor id"
// @Param request body ModeRequest true "Mode"
// @Success 200 {object} utils.APIResponse "Mode set"
// @Router /motors/{id}/mode [put]
func (h *RobotHandler) SetMode(c *gin.Context) {
	id, ok := motorIDParam(c)
	if !ok {
		return
	}
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.robotService.SetMode(requestContext(c), id, *req.Mode); err != nil {
		robotError(c, "Failed to set mode", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Mode set", gin.H{"motor_id": id, "mode": *req.Mode})
}

// GetTemperature reads a motor temperature
// @Summary Read temperature
// @Tags Motors
// @Produce json
// @Param id path int true "Motor id"
// @Success 200 {object} utils.APIResponse{data=TemperatureDTO} "Temperature"
// @Router /motors/{id}/temperature [get]
func (h *RobotHandler) GetTemperature(c *gin.Context) {
	id, ok := motorIDParam(c)
	if !ok {
		return
	}

	temp, err := h.robotService.GetTemperature(requestContext(c), id)
	if err != nil {
		robotError(c, "Failed to read temperature", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Temperature retrieved", TemperatureDTO{MotorID: temp.MotorID, Raw: temp.Raw})
}

// GetSnapshot reads everything available from a motor
// @Summary Motor snapshot
// @Description Position, velocity and temperature; fields that could not be read are omitted
// @Tags Motors
// @Produce json
// @Param id path int true "Motor id"
// @Success 200 {object} utils.APIResponse{data=SnapshotDTO} "Snapshot"
// @Router /motors/{id}/snapshot [get]
func (h *RobotHandler) GetSnapshot(c *gin.Context) {
	id, ok := motorIDParam(c)
	if !ok {
		return
	}

	snapshot, err := h.robotService.QueryMotor(requestContext(c), id)
	if err != nil {
		robotError(c, "Failed to read motor", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Snapshot retrieved", newSnapshotDTO(snapshot))
}
