package robot

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTransportUnavailable is returned when the transport cannot be acquired or opened.
	ErrTransportUnavailable = errors.New("robot: transport unavailable")

	// ErrAlreadyConnected is returned by Connect while a connection is active.
	ErrAlreadyConnected = errors.New("robot: already connected")

	// ErrNotConnected is returned for commands issued without an open connection.
	ErrNotConnected = errors.New("robot: not connected")

	// ErrRequestInFlight is returned when a request with the same correlation key is outstanding.
	ErrRequestInFlight = errors.New("robot: request already in flight")

	// ErrTimeout is returned when no response arrived before the deadline.
	ErrTimeout = errors.New("robot: response timeout")

	// ErrConnectionClosed is returned to requests still pending when the connection goes away.
	ErrConnectionClosed = errors.New("robot: connection closed")

	// ErrInvalidArgument is returned for arguments rejected before anything is written.
	ErrInvalidArgument = errors.New("robot: invalid argument")
)

// ProtocolError carries the message of an ERROR:<msg> line from the controller.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("robot: controller error: %s", e.Message)
}

// IsProtocolError reports whether err is or wraps a *ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// OutcomeLabel classifies err for metrics and journal entries.
func OutcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case IsProtocolError(err):
		return "protocol_error"
	case errors.Is(err, ErrConnectionClosed):
		return "closed"
	case errors.Is(err, ErrRequestInFlight):
		return "in_flight"
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
