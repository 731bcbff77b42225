// internal/protocol/tcp_connection.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"robot-service/internal/model"
)

// TCPConnection implements Transport for controllers reached through a
// TCP serial bridge such as ser2net or a wifi UART module
type TCPConnection struct {
	config  *TCPConfig
	conn    net.Conn
	logger  *zap.Logger
	mutex   sync.RWMutex
	isOpen  bool
	statsMu sync.Mutex
	stats   *ProtocolStats
}

// NewTCPConnection creates a new TCP connection
func NewTCPConnection(config *TCPConfig, logger *zap.Logger) *TCPConnection {
	return &TCPConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "tcp"),
			zap.String("host", config.Host),
			zap.Int("port", config.Port),
		),
		stats: &ProtocolStats{
			IsConnected: false,
		},
	}
}

// Address returns host:port of the bridge
func (tc *TCPConnection) Address() string {
	return net.JoinHostPort(tc.config.Host, fmt.Sprintf("%d", tc.config.Port))
}

// Open opens the TCP connection
func (tc *TCPConnection) Open(ctx context.Context) error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if tc.isOpen {
		return nil
	}

	tc.logger.Info("Opening TCP connection",
		zap.String("address", tc.Address()),
	)

	dialer := &net.Dialer{
		Timeout: tc.config.ConnectTimeout,
	}
	if tc.config.KeepAlive {
		dialer.KeepAlive = 30 * time.Second
	} else {
		dialer.KeepAlive = -1
	}

	conn, err := dialer.DialContext(ctx, "tcp", tc.Address())
	if err != nil {
		tc.logger.Error("Failed to open TCP connection", zap.Error(err))
		return fmt.Errorf("failed to connect to %s: %w", tc.Address(), err)
	}

	// Commands are a few bytes each; do not let Nagle hold them back
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	tc.conn = conn
	tc.isOpen = true

	tc.statsMu.Lock()
	tc.stats.IsConnected = true
	tc.stats.LastActivity = time.Now()
	tc.statsMu.Unlock()

	tc.logger.Info("TCP connection opened successfully")
	return nil
}

// Close closes the TCP connection
func (tc *TCPConnection) Close() error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen || tc.conn == nil {
		return nil
	}

	err := tc.conn.Close()
	tc.conn = nil
	tc.isOpen = false

	tc.statsMu.Lock()
	tc.stats.IsConnected = false
	tc.statsMu.Unlock()

	if err != nil {
		tc.logger.Error("Failed to close TCP connection", zap.Error(err))
		return fmt.Errorf("failed to close TCP connection: %w", err)
	}

	tc.logger.Info("TCP connection closed successfully")
	return nil
}

// IsOpen returns whether the connection is open
func (tc *TCPConnection) IsOpen() bool {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.isOpen && tc.conn != nil
}

// Write writes data to the TCP connection
func (tc *TCPConnection) Write(ctx context.Context, data []byte) error {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	if !tc.isOpen || tc.conn == nil {
		return fmt.Errorf("TCP connection not open")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	deadline := time.Time{}
	if tc.config.WriteTimeout > 0 {
		deadline = time.Now().Add(tc.config.WriteTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	tc.conn.SetWriteDeadline(deadline)

	startTime := time.Now()
	n, err := tc.conn.Write(data)
	if err != nil {
		tc.recordError()
		tc.logger.Error("TCP write failed", zap.Error(err))
		return fmt.Errorf("failed to write to TCP connection: %w", err)
	}

	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	tc.statsMu.Lock()
	tc.stats.BytesWritten += int64(len(data))
	tc.stats.OperationCount++
	tc.stats.LastActivity = time.Now()
	tc.stats.updateAverageLatency(time.Since(startTime))
	tc.statsMu.Unlock()

	tc.logger.Debug("TCP write completed", zap.Int("bytes", len(data)))
	return nil
}

// Read reads data from the TCP connection. A read deadline expiring is
// reported as an empty chunk, a closed peer as io.EOF.
func (tc *TCPConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	tc.mutex.RLock()
	conn := tc.conn
	open := tc.isOpen
	tc.mutex.RUnlock()

	if !open || conn == nil {
		return nil, fmt.Errorf("TCP connection not open")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	readTimeout := tc.config.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 100 * time.Millisecond
	}
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	buffer := make([]byte, maxBytes)
	n, err := conn.Read(buffer)
	if n > 0 {
		tc.statsMu.Lock()
		tc.stats.BytesRead += int64(n)
		tc.stats.OperationCount++
		tc.stats.LastActivity = time.Now()
		tc.statsMu.Unlock()
		return buffer[:n], nil
	}

	if err != nil {
		var netErr net.Error
		switch {
		case errors.As(err, &netErr) && netErr.Timeout():
			return []byte{}, nil
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			return nil, io.EOF
		default:
			tc.recordError()
			return nil, fmt.Errorf("failed to read from TCP connection: %w", err)
		}
	}

	return []byte{}, nil
}

// GetProtocolType returns the protocol type
func (tc *TCPConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeTCP
}

// GetStats returns a copy of the protocol statistics
func (tc *TCPConnection) GetStats() ProtocolStats {
	tc.statsMu.Lock()
	defer tc.statsMu.Unlock()
	return *tc.stats
}

func (tc *TCPConnection) recordError() {
	tc.statsMu.Lock()
	tc.stats.ErrorCount++
	tc.statsMu.Unlock()
}
