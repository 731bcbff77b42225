// internal/protocol/serial_connection.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"robot-service/internal/model"
)

// SerialConnection implements Transport for serial connections
type SerialConnection struct {
	config  *SerialConfig
	port    serial.Port
	logger  *zap.Logger
	mutex   sync.RWMutex
	isOpen  bool
	statsMu sync.Mutex
	stats   *ProtocolStats
}

// NewSerialConnection creates a new serial connection
func NewSerialConnection(config *SerialConfig, logger *zap.Logger) *SerialConnection {
	return &SerialConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "serial"),
			zap.String("port", config.Port),
		),
		stats: &ProtocolStats{
			IsConnected: false,
		},
	}
}

// serialMode builds the line settings for the configured port
func serialMode(config *SerialConfig) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
	}

	switch config.StopBits {
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	switch config.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	return mode
}

// Open opens the serial connection
func (sc *SerialConnection) Open(ctx context.Context) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.isOpen {
		return nil
	}

	sc.logger.Info("Opening serial port",
		zap.String("port", sc.config.Port),
		zap.Int("baud_rate", sc.config.BaudRate),
	)

	port, err := serial.Open(sc.config.Port, serialMode(sc.config))
	if err != nil {
		sc.logger.Error("Failed to open serial port", zap.Error(err))
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	// Read timeout doubles as the poll interval of the decode loop
	if err := port.SetReadTimeout(sc.config.ReadTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	// Drop whatever the controller printed before we attached
	if err := port.ResetInputBuffer(); err != nil {
		sc.logger.Warn("Failed to reset serial input buffer", zap.Error(err))
	}

	sc.port = port
	sc.isOpen = true

	sc.statsMu.Lock()
	sc.stats.IsConnected = true
	sc.stats.LastActivity = time.Now()
	sc.statsMu.Unlock()

	sc.logger.Info("Serial port opened successfully")
	return nil
}

// Close closes the serial connection
func (sc *SerialConnection) Close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return nil
	}

	err := sc.port.Close()
	sc.port = nil
	sc.isOpen = false

	sc.statsMu.Lock()
	sc.stats.IsConnected = false
	sc.statsMu.Unlock()

	if err != nil {
		sc.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	sc.logger.Info("Serial port closed successfully")
	return nil
}

// IsOpen returns whether the connection is open
func (sc *SerialConnection) IsOpen() bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.isOpen && sc.port != nil
}

// Write writes data to the serial port
func (sc *SerialConnection) Write(ctx context.Context, data []byte) error {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	if !sc.isOpen || sc.port == nil {
		return fmt.Errorf("serial port not open")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	startTime := time.Now()
	n, err := sc.port.Write(data)
	if err != nil {
		sc.recordError()
		sc.logger.Error("Serial write failed", zap.Error(err))
		return fmt.Errorf("failed to write to serial port: %w", err)
	}

	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	sc.statsMu.Lock()
	sc.stats.BytesWritten += int64(len(data))
	sc.stats.OperationCount++
	sc.stats.LastActivity = time.Now()
	sc.stats.updateAverageLatency(time.Since(startTime))
	sc.statsMu.Unlock()

	sc.logger.Debug("Serial write completed",
		zap.Int("bytes", len(data)),
		zap.ByteString("data", data),
	)
	return nil
}

// Read reads data from the serial port. The port lock is not held while
// blocked so Close can interrupt a pending read.
func (sc *SerialConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	sc.mutex.RLock()
	port := sc.port
	open := sc.isOpen
	sc.mutex.RUnlock()

	if !open || port == nil {
		return nil, fmt.Errorf("serial port not open")
	}

	buffer := make([]byte, maxBytes)

	done := make(chan struct {
		data []byte
		err  error
	}, 1)

	go func() {
		n, err := port.Read(buffer)
		result := struct {
			data []byte
			err  error
		}{}

		if err != nil {
			var portErr *serial.PortError
			if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
				result.err = io.EOF
			} else {
				result.err = fmt.Errorf("failed to read from serial port: %w", err)
			}
		} else {
			result.data = make([]byte, n)
			copy(result.data, buffer[:n])
		}
		done <- result
	}()

	select {
	case result := <-done:
		if result.err != nil {
			sc.recordError()
			return nil, result.err
		}

		if len(result.data) > 0 {
			sc.statsMu.Lock()
			sc.stats.BytesRead += int64(len(result.data))
			sc.stats.OperationCount++
			sc.stats.LastActivity = time.Now()
			sc.statsMu.Unlock()
		}

		return result.data, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetProtocolType returns the protocol type
func (sc *SerialConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeSerial
}

// GetStats returns a copy of the protocol statistics
func (sc *SerialConnection) GetStats() ProtocolStats {
	sc.statsMu.Lock()
	defer sc.statsMu.Unlock()
	return *sc.stats
}

func (sc *SerialConnection) recordError() {
	sc.statsMu.Lock()
	sc.stats.ErrorCount++
	sc.statsMu.Unlock()
}
