// internal/protocol/usb_connection.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"robot-service/internal/model"
)

// USBConnection implements Transport for controllers exposing a raw bulk
// endpoint pair instead of a CDC serial device
type USBConnection struct {
	config   *USBConfig
	ctx      *gousb.Context
	device   *gousb.Device
	intf     *gousb.Interface
	release  func()
	outEndpt *gousb.OutEndpoint
	inEndpt  *gousb.InEndpoint
	logger   *zap.Logger
	mutex    sync.RWMutex
	isOpen   bool
	statsMu  sync.Mutex
	stats    *ProtocolStats
}

// NewUSBConnection creates a new USB connection
func NewUSBConnection(config *USBConfig, logger *zap.Logger) *USBConnection {
	return &USBConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "usb"),
			zap.String("vendor_id", config.VendorID),
			zap.String("product_id", config.ProductID),
		),
		stats: &ProtocolStats{
			IsConnected: false,
		},
	}
}

// Open opens the USB connection
func (uc *USBConnection) Open(ctx context.Context) error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.isOpen {
		return nil
	}

	uc.logger.Info("Opening USB connection",
		zap.Int("in_endpoint", uc.config.InEndpoint),
		zap.Int("out_endpoint", uc.config.OutEndpoint),
	)

	vendorID, err := ParseHexID(uc.config.VendorID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}

	productID, err := ParseHexID(uc.config.ProductID)
	if err != nil {
		return fmt.Errorf("invalid product ID: %w", err)
	}

	usbCtx := gousb.NewContext()

	device, err := usbCtx.OpenDeviceWithVIDPID(vendorID, productID)
	if err != nil {
		usbCtx.Close()
		return fmt.Errorf("failed to open USB device: %w", err)
	}
	if device == nil {
		usbCtx.Close()
		return fmt.Errorf("USB device not found (VID: %04X, PID: %04X)", uint16(vendorID), uint16(productID))
	}

	if err := device.SetAutoDetach(true); err != nil {
		uc.logger.Warn("Failed to enable kernel driver auto-detach", zap.Error(err))
	}

	intf, done, err := device.DefaultInterface()
	if err != nil {
		device.Close()
		usbCtx.Close()
		return fmt.Errorf("failed to claim interface: %w", err)
	}

	outEndpt, err := intf.OutEndpoint(uc.config.OutEndpoint)
	if err != nil {
		done()
		device.Close()
		usbCtx.Close()
		return fmt.Errorf("failed to get out endpoint: %w", err)
	}

	inEndpt, err := intf.InEndpoint(uc.config.InEndpoint)
	if err != nil {
		// Responses are mandatory for this protocol
		done()
		device.Close()
		usbCtx.Close()
		return fmt.Errorf("failed to get in endpoint: %w", err)
	}

	uc.ctx = usbCtx
	uc.device = device
	uc.intf = intf
	uc.release = done
	uc.outEndpt = outEndpt
	uc.inEndpt = inEndpt
	uc.isOpen = true

	uc.statsMu.Lock()
	uc.stats.IsConnected = true
	uc.stats.LastActivity = time.Now()
	uc.statsMu.Unlock()

	uc.logger.Info("USB connection opened successfully")
	return nil
}

// Close closes the USB connection
func (uc *USBConnection) Close() error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if !uc.isOpen {
		return nil
	}

	if uc.release != nil {
		uc.release()
		uc.release = nil
	}
	uc.intf = nil

	if uc.device != nil {
		uc.device.Close()
		uc.device = nil
	}

	if uc.ctx != nil {
		uc.ctx.Close()
		uc.ctx = nil
	}

	uc.outEndpt = nil
	uc.inEndpt = nil
	uc.isOpen = false

	uc.statsMu.Lock()
	uc.stats.IsConnected = false
	uc.statsMu.Unlock()

	uc.logger.Info("USB connection closed successfully")
	return nil
}

// IsOpen returns whether the connection is open
func (uc *USBConnection) IsOpen() bool {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()
	return uc.isOpen && uc.device != nil && uc.outEndpt != nil
}

// Write writes data to the USB connection
func (uc *USBConnection) Write(ctx context.Context, data []byte) error {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if !uc.isOpen || uc.outEndpt == nil {
		return fmt.Errorf("USB connection not open")
	}

	startTime := time.Now()
	n, err := uc.outEndpt.WriteContext(ctx, data)
	if err != nil {
		uc.recordError()
		uc.logger.Error("USB write failed", zap.Error(err))
		return fmt.Errorf("failed to write to USB device: %w", err)
	}

	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	uc.statsMu.Lock()
	uc.stats.BytesWritten += int64(len(data))
	uc.stats.OperationCount++
	uc.stats.LastActivity = time.Now()
	uc.stats.updateAverageLatency(time.Since(startTime))
	uc.statsMu.Unlock()

	uc.logger.Debug("USB write completed", zap.Int("bytes", len(data)))
	return nil
}

// Read polls the in endpoint for up to ReadTimeout. An expired poll yields
// an empty chunk.
func (uc *USBConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	uc.mutex.RLock()
	inEndpt := uc.inEndpt
	open := uc.isOpen
	uc.mutex.RUnlock()

	if !open || inEndpt == nil {
		return nil, fmt.Errorf("USB connection not open")
	}

	readTimeout := uc.config.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 100 * time.Millisecond
	}

	pollCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	buffer := make([]byte, maxBytes)
	n, err := inEndpt.ReadContext(pollCtx, buffer)
	if n > 0 {
		uc.statsMu.Lock()
		uc.stats.BytesRead += int64(n)
		uc.stats.OperationCount++
		uc.stats.LastActivity = time.Now()
		uc.statsMu.Unlock()
		return buffer[:n], nil
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if pollCtx.Err() != nil || errors.Is(err, gousb.TransferTimedOut) || errors.Is(err, gousb.TransferCancelled) {
			return []byte{}, nil
		}
		uc.recordError()
		return nil, fmt.Errorf("failed to read from USB device: %w", err)
	}

	return []byte{}, nil
}

// GetProtocolType returns the protocol type
func (uc *USBConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeUSB
}

// GetStats returns a copy of the protocol statistics
func (uc *USBConnection) GetStats() ProtocolStats {
	uc.statsMu.Lock()
	defer uc.statsMu.Unlock()
	return *uc.stats
}

func (uc *USBConnection) recordError() {
	uc.statsMu.Lock()
	uc.stats.ErrorCount++
	uc.statsMu.Unlock()
}

// ParseHexID parses hex ID string (0x1234 or 1234)
func ParseHexID(hexStr string) (gousb.ID, error) {
	hexStr = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(hexStr)), "0x")

	id, err := strconv.ParseUint(hexStr, 16, 16)
	if err != nil {
		return 0, err
	}

	return gousb.ID(id), nil
}
