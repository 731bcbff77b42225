package robot

import (
	"strconv"
	"strings"
)

// Key correlates an outstanding request with the response that resolves it.
type Key string

const (
	KeyCommand Key = "command"
	KeyPing    Key = "ping"
	KeyReady   Key = "ready"
)

// PositionKey is the correlation key of GET_POSITION for one motor.
func PositionKey(motorID int) Key { return Key("position_" + strconv.Itoa(motorID)) }

// VelocityKey is the correlation key of GET_VELOCITY for one motor.
func VelocityKey(motorID int) Key { return Key("velocity_" + strconv.Itoa(motorID)) }

// TemperatureKey is the correlation key of GET_TEMP for one motor.
func TemperatureKey(motorID int) Key { return Key("temperature_" + strconv.Itoa(motorID)) }

// InboundLine is one decoded frame from the controller.
type InboundLine struct {
	Raw     string
	Tag     string
	Payload []string
}

// SplitLine splits a trimmed line into tag and payload tokens.
func SplitLine(raw string) InboundLine {
	parts := strings.Split(raw, ":")
	return InboundLine{Raw: raw, Tag: parts[0], Payload: parts[1:]}
}

// Response is a recognized controller reply. The set is closed.
type Response interface {
	Key() Key
	isResponse()
}

// OKResponse acknowledges the last command.
type OKResponse struct{}

// ErrorResponse rejects the last command.
type ErrorResponse struct {
	Message string
}

// PingResponse answers PING.
type PingResponse struct {
	Online bool
}

// PositionResponse answers GET_POSITION.
type PositionResponse struct {
	MotorID int     `json:"motor_id"`
	Raw     int     `json:"raw"`
	Degrees float64 `json:"degrees"`
}

// VelocityResponse answers GET_VELOCITY.
type VelocityResponse struct {
	MotorID int `json:"motor_id"`
	Raw     int `json:"raw"`
}

// TemperatureResponse answers GET_TEMP.
type TemperatureResponse struct {
	MotorID int `json:"motor_id"`
	Raw     int `json:"raw"`
}

// ReadyResponse is the controller's boot sentinel.
type ReadyResponse struct{}

func (OKResponse) Key() Key            { return KeyCommand }
func (ErrorResponse) Key() Key         { return KeyCommand }
func (PingResponse) Key() Key          { return KeyPing }
func (r PositionResponse) Key() Key    { return PositionKey(r.MotorID) }
func (r VelocityResponse) Key() Key    { return VelocityKey(r.MotorID) }
func (r TemperatureResponse) Key() Key { return TemperatureKey(r.MotorID) }
func (ReadyResponse) Key() Key         { return KeyReady }

func (OKResponse) isResponse()          {}
func (ErrorResponse) isResponse()       {}
func (PingResponse) isResponse()        {}
func (PositionResponse) isResponse()    {}
func (VelocityResponse) isResponse()    {}
func (TemperatureResponse) isResponse() {}
func (ReadyResponse) isResponse()       {}

// ParseLine classifies a trimmed line. Unknown tags and malformed numeric
// payloads report false and are dropped by the caller.
func ParseLine(raw string) (Response, bool) {
	switch raw {
	case "OK":
		return OKResponse{}, true
	case "PING_OK":
		return PingResponse{Online: true}, true
	case "PING_FAIL":
		return PingResponse{Online: false}, true
	case "READY":
		return ReadyResponse{}, true
	}

	if msg, ok := strings.CutPrefix(raw, "ERROR:"); ok {
		return ErrorResponse{Message: strings.TrimSpace(msg)}, true
	}
	if raw == "ERROR" {
		return ErrorResponse{}, true
	}

	line := SplitLine(raw)
	if len(line.Payload) != 2 {
		return nil, false
	}
	id, err := strconv.Atoi(line.Payload[0])
	if err != nil {
		return nil, false
	}
	value, err := strconv.Atoi(line.Payload[1])
	if err != nil {
		return nil, false
	}

	switch line.Tag {
	case "POS":
		return PositionResponse{MotorID: id, Raw: value, Degrees: RawToDegrees(value)}, true
	case "VEL":
		return VelocityResponse{MotorID: id, Raw: value}, true
	case "TEMP":
		return TemperatureResponse{MotorID: id, Raw: value}, true
	}
	return nil, false
}
