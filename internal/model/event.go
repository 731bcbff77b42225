// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventRobotConnected    EventType = "ROBOT_CONNECTED"
	EventRobotDisconnected EventType = "ROBOT_DISCONNECTED"
	EventCommandCompleted  EventType = "COMMAND_COMPLETED"
	EventCommandFailed     EventType = "COMMAND_FAILED"
	EventMotorSnapshot     EventType = "MOTOR_SNAPSHOT"
	EventScanCompleted     EventType = "SCAN_COMPLETED"
)

// RobotEvent represents an event in the system
type RobotEvent struct {
	ID        uuid.UUID  `json:"id"`
	EventType EventType  `json:"event_type"`
	Data      JSONObject `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
	Source    string     `json:"source"`
	Severity  string     `json:"severity"` // INFO, WARNING, ERROR
}

// NewRobotEvent creates an event stamped with a fresh id and the current time
func NewRobotEvent(eventType EventType, source string, data JSONObject) *RobotEvent {
	severity := "INFO"
	switch eventType {
	case EventCommandFailed:
		severity = "WARNING"
	case EventRobotDisconnected:
		if reason, ok := data["reason"].(string); ok && reason != "disconnect requested" {
			severity = "ERROR"
		}
	}

	return &RobotEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now(),
		Source:    source,
		Severity:  severity,
	}
}
