// internal/model/operation.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// OperationType represents the kind of robot operation that produced a command
type OperationType string

const (
	OperationTypeRaw            OperationType = "RAW_COMMAND"
	OperationTypeBatch          OperationType = "BATCH"
	OperationTypePing           OperationType = "PING"
	OperationTypeTorque         OperationType = "TORQUE"
	OperationTypeSetPosition    OperationType = "SET_POSITION"
	OperationTypeSetVelocity    OperationType = "SET_VELOCITY"
	OperationTypeSetMode        OperationType = "SET_MODE"
	OperationTypeGetPosition    OperationType = "GET_POSITION"
	OperationTypeGetVelocity    OperationType = "GET_VELOCITY"
	OperationTypeGetTemperature OperationType = "GET_TEMPERATURE"
	OperationTypeSnapshot       OperationType = "SNAPSHOT"
	OperationTypeScan           OperationType = "SCAN"
	OperationTypeEmergencyStop  OperationType = "EMERGENCY_STOP"
	OperationTypeWaitReady      OperationType = "WAIT_READY"
)

// CommandStatus represents the outcome of a journaled command
type CommandStatus string

const (
	CommandStatusSuccess  CommandStatus = "SUCCESS"
	CommandStatusFailed   CommandStatus = "FAILED"
	CommandStatusTimeout  CommandStatus = "TIMEOUT"
	CommandStatusRejected CommandStatus = "REJECTED"
)

// CommandRecord is one journaled robot operation
type CommandRecord struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	OperationType OperationType `json:"operation_type" db:"operation_type"`
	Command       string        `json:"command" db:"command"`
	MotorID       *int          `json:"motor_id,omitempty" db:"motor_id"`
	Status        CommandStatus `json:"status" db:"status"`
	ErrorMessage  *string       `json:"error_message,omitempty" db:"error_message"`
	Result        JSONObject    `json:"result,omitempty" db:"result"`
	RequestID     string        `json:"request_id,omitempty" db:"request_id"`
	StartedAt     time.Time     `json:"started_at" db:"started_at"`
	DurationMs    int           `json:"duration_ms" db:"duration_ms"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// IsSuccessful reports whether the command completed without error
func (r *CommandRecord) IsSuccessful() bool {
	return r.Status == CommandStatusSuccess
}
