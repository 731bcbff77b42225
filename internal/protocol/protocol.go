// internal/protocol/protocol.go
package protocol

import (
	"context"
	"time"

	"robot-service/internal/model"
)

// Transport is the byte-stream duplex to a robot controller
type Transport interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Data communication. Read returns an empty slice when nothing arrived
	// within the transport's poll interval and io.EOF once the peer is gone.
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context, maxBytes int) ([]byte, error)

	// Protocol information
	GetProtocolType() model.ConnectionType
}

// Factory acquires a fresh, unopened transport
type Factory func() (Transport, error)

// ProtocolStats provides protocol-level statistics
type ProtocolStats struct {
	BytesWritten   int64         `json:"bytes_written"`
	BytesRead      int64         `json:"bytes_read"`
	OperationCount int64         `json:"operation_count"`
	ErrorCount     int64         `json:"error_count"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`
}

// updateAverageLatency updates the running average latency
func (s *ProtocolStats) updateAverageLatency(newLatency time.Duration) {
	if s.AverageLatency == 0 {
		s.AverageLatency = newLatency
	} else {
		s.AverageLatency = (s.AverageLatency + newLatency) / 2
	}
}
