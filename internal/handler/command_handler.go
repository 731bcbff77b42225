// internal/handler/command_handler.go
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"robot-service/internal/model"
	"robot-service/internal/repository"
	"robot-service/internal/service"
	"robot-service/internal/utils"
)

// CommandHandler serves the command journal and host port listing
type CommandHandler struct {
	robotService *service.RobotService
	logger       *utils.ServiceLogger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(robotService *service.RobotService, logger *zap.Logger) *CommandHandler {
	return &CommandHandler{
		robotService: robotService,
		logger:       utils.NewServiceLogger(logger, "command-handler"),
	}
}

// RegisterRoutes registers journal and port routes
func (h *CommandHandler) RegisterRoutes(router *gin.RouterGroup) {
	commands := router.Group("/commands")
	{
		commands.GET("", h.ListCommands)
		commands.GET("/stats", h.GetCommandStats)
		commands.GET("/:id", h.GetCommand)
	}

	router.GET("/ports", h.ListPorts)
}

// ListCommands lists journal entries
// @Summary List journaled commands
// @Description Newest first, with optional filters
// @Tags Commands
// @Produce json
// @Param motor_id query int false "Filter by motor id"
// @Param operation_type query string false "Filter by operation type"
// @Param status query string false "Filter by status" Enums(SUCCESS, FAILED, TIMEOUT, REJECTED)
// @Param since query string false "RFC3339 lower bound on created_at"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} utils.APIResponse{data=utils.Page} "Journal page"
// @Failure 400 {object} utils.APIResponse "Invalid filter"
// @Router /commands [get]
func (h *CommandHandler) ListCommands(c *gin.Context) {
	filter := &repository.CommandFilter{}
	validationErrors := map[string]string{}

	if v := c.Query("motor_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			filter.MotorID = &id
		} else {
			validationErrors["motor_id"] = "must be an integer"
		}
	}
	if v := c.Query("operation_type"); v != "" {
		op := model.OperationType(v)
		filter.OperationType = &op
	}
	if v := c.Query("status"); v != "" {
		status := model.CommandStatus(v)
		filter.Status = &status
	}
	if v := c.Query("since"); v != "" {
		if since, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Since = &since
		} else {
			validationErrors["since"] = "must be an RFC3339 timestamp"
		}
	}
	if v := c.Query("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			filter.Limit = limit
		} else {
			validationErrors["limit"] = "must be an integer"
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil {
			filter.Offset = offset
		} else {
			validationErrors["offset"] = "must be an integer"
		}
	}

	if len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	records, total, err := h.robotService.ListCommands(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list commands", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list commands", err)
		return
	}

	utils.PageResponse(c, "Commands retrieved", records, total, filter.Limit, filter.Offset)
}

// GetCommand returns one journal entry
// @Summary Get journaled command
// @Tags Commands
// @Produce json
// @Param id path string true "Journal entry id"
// @Success 200 {object} utils.APIResponse{data=model.CommandRecord} "Journal entry"
// @Failure 404 {object} utils.APIResponse "Not found"
// @Router /commands/{id} [get]
func (h *CommandHandler) GetCommand(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"id": "must be a UUID"})
		return
	}

	record, err := h.robotService.GetCommand(c.Request.Context(), id)
	if err != nil {
		robotError(c, "Command not found", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Command retrieved", record)
}

// GetCommandStats summarizes the journal
// @Summary Journal statistics
// @Tags Commands
// @Produce json
// @Param since query string false "RFC3339 lower bound on created_at"
// @Success 200 {object} utils.APIResponse{data=repository.CommandStats} "Statistics"
// @Router /commands/stats [get]
func (h *CommandHandler) GetCommandStats(c *gin.Context) {
	var since *time.Time
	if v := c.Query("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.ValidationErrorResponse(c, map[string]string{"since": "must be an RFC3339 timestamp"})
			return
		}
		since = &parsed
	}

	stats, err := h.robotService.CommandStats(c.Request.Context(), since)
	if err != nil {
		h.logger.Error("Failed to get command stats", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get command stats", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Statistics retrieved", stats)
}

// ListPorts enumerates host serial ports
// @Summary List serial ports
// @Description Serial ports visible on the host, with USB ids where available
// @Tags Ports
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]protocol.PortInfo} "Ports"
// @Router /ports [get]
func (h *CommandHandler) ListPorts(c *gin.Context) {
	ports, err := h.robotService.ListPorts()
	if err != nil {
		h.logger.Error("Failed to list ports", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list ports", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Ports retrieved", ports)
}
