// internal/handler/errors.go
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"robot-service/internal/repository"
	"robot-service/internal/robot"
	"robot-service/internal/utils"
)

// statusFor maps a robot error onto an HTTP status and error code
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, robot.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, robot.ErrNotConnected):
		return http.StatusConflict, "NOT_CONNECTED"
	case errors.Is(err, robot.ErrAlreadyConnected):
		return http.StatusConflict, "ALREADY_CONNECTED"
	case errors.Is(err, robot.ErrRequestInFlight):
		return http.StatusConflict, "REQUEST_IN_FLIGHT"
	case errors.Is(err, robot.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "CONTROLLER_TIMEOUT"
	case robot.IsProtocolError(err):
		return http.StatusBadGateway, "CONTROLLER_ERROR"
	case errors.Is(err, robot.ErrTransportUnavailable):
		return http.StatusServiceUnavailable, "TRANSPORT_UNAVAILABLE"
	case errors.Is(err, robot.ErrConnectionClosed):
		return http.StatusServiceUnavailable, "CONNECTION_CLOSED"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	default:
		return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	}
}

// robotError writes the error envelope for a failed robot operation
func robotError(c *gin.Context, message string, err error) {
	status, code := statusFor(err)
	utils.ErrorResponseWithCode(c, status, code, message, err)
}
