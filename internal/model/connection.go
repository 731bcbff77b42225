// internal/model/connection.go
package model

import (
	"database/sql/driver"
	"encoding/json"
)

// ConnectionType represents how the controller is attached
type ConnectionType string

const (
	ConnectionTypeSerial    ConnectionType = "SERIAL"
	ConnectionTypeUSB       ConnectionType = "USB"
	ConnectionTypeTCP       ConnectionType = "TCP"
	ConnectionTypeSimulator ConnectionType = "SIMULATOR"
)

// ParseConnectionType maps a config value (serial, tcp, usb, simulator) to a ConnectionType
func ParseConnectionType(value string) (ConnectionType, bool) {
	switch value {
	case "serial", "SERIAL":
		return ConnectionTypeSerial, true
	case "usb", "USB":
		return ConnectionTypeUSB, true
	case "tcp", "TCP":
		return ConnectionTypeTCP, true
	case "simulator", "SIMULATOR":
		return ConnectionTypeSimulator, true
	default:
		return "", false
	}
}

// JSONObject type for PostgreSQL JSONB objects
type JSONObject map[string]interface{}

func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}
