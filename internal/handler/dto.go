// internal/handler/dto.go
package handler

import (
	"github.com/shopspring/decimal"

	"robot-service/internal/robot"
)

// degreePlaces is the precision degrees are reported with; one raw step is ~0.29°
const degreePlaces = 2

// CommandRequest carries a raw controller command
type CommandRequest struct {
	Command   string `json:"command" binding:"required" example:"SET_POSITION:1:512;"`
	TimeoutMs int    `json:"timeout_ms,omitempty" binding:"omitempty,min=1,max=60000"`
}

// BatchRequest carries commands to send in order
type BatchRequest struct {
	Commands []string `json:"commands" binding:"required,min=1,max=100,dive,required"`
}

// BatchResultDTO is the outcome of one batched command
type BatchResultDTO struct {
	Command string `json:"command"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ScanRequest bounds a motor scan
type ScanRequest struct {
	StartID *int `json:"start_id" binding:"required,min=0,max=253"`
	EndID   *int `json:"end_id" binding:"required,min=0,max=253"`
}

// ReadyRequest optionally overrides the READY timeout
type ReadyRequest struct {
	TimeoutMs int `json:"timeout_ms,omitempty" binding:"omitempty,min=1,max=60000"`
}

// TorqueRequest switches holding torque
type TorqueRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// PositionRequest is a goal position in degrees
type PositionRequest struct {
	Degrees *decimal.Decimal `json:"degrees" binding:"required" swaggertype:"string" example:"45.5"`
}

// VelocityRequest is a speed in degrees per second
type VelocityRequest struct {
	DegreesPerSecond *decimal.Decimal `json:"degrees_per_second" binding:"required" swaggertype:"string" example:"30"`
}

// ModeRequest selects the motor operating mode
type ModeRequest struct {
	Mode *int `json:"mode" binding:"required,min=0"`
}

// PositionDTO reports a motor position
type PositionDTO struct {
	MotorID int             `json:"motor_id"`
	Raw     int             `json:"raw"`
	Degrees decimal.Decimal `json:"degrees" swaggertype:"string"`
}

// VelocityDTO reports a raw motor velocity
type VelocityDTO struct {
	MotorID int `json:"motor_id"`
	Raw     int `json:"raw"`
}

// TemperatureDTO reports a raw motor temperature
type TemperatureDTO struct {
	MotorID int `json:"motor_id"`
	Raw     int `json:"raw"`
}

// PingDTO reports motor presence
type PingDTO struct {
	MotorID int  `json:"motor_id"`
	Online  bool `json:"online"`
}

// SnapshotDTO is everything read from one motor; absent fields failed to read
type SnapshotDTO struct {
	MotorID     int          `json:"motor_id"`
	Position    *PositionDTO `json:"position,omitempty"`
	Velocity    *int         `json:"velocity,omitempty"`
	Temperature *int         `json:"temperature,omitempty"`
}

// ScanResultDTO lists motors found by a scan
type ScanResultDTO struct {
	StartID int           `json:"start_id"`
	EndID   int           `json:"end_id"`
	Found   int           `json:"found"`
	Motors  []SnapshotDTO `json:"motors"`
}

func newPositionDTO(p robot.PositionResponse) PositionDTO {
	return PositionDTO{
		MotorID: p.MotorID,
		Raw:     p.Raw,
		Degrees: decimal.NewFromFloat(p.Degrees).Round(degreePlaces),
	}
}

func newSnapshotDTO(s robot.MotorSnapshot) SnapshotDTO {
	dto := SnapshotDTO{
		MotorID:     s.MotorID,
		Velocity:    s.Velocity,
		Temperature: s.Temperature,
	}
	if s.Position != nil {
		pos := newPositionDTO(*s.Position)
		dto.Position = &pos
	}
	return dto
}

func newBatchResultDTOs(results []robot.BatchResult) []BatchResultDTO {
	out := make([]BatchResultDTO, 0, len(results))
	for _, r := range results {
		dto := BatchResultDTO{Command: r.Command, Success: r.Success}
		if r.Error != nil {
			dto.Error = r.Error.Error()
		}
		out = append(out, dto)
	}
	return out
}
