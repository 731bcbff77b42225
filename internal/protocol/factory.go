// internal/protocol/factory.go
package protocol

import (
	"fmt"

	"go.uber.org/zap"

	"robot-service/internal/config"
	"robot-service/internal/model"
	"robot-service/internal/simulator"
)

// NewTransportFactory returns a Factory building the transport selected in config.
// Every call yields a fresh, unopened transport; a reconnect never reuses one.
func NewTransportFactory(cfg *config.TransportConfig, logger *zap.Logger) (Factory, error) {
	connectionType, ok := model.ParseConnectionType(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("unsupported transport type: %s", cfg.Type)
	}

	if err := ValidateConfig(connectionType, cfg); err != nil {
		return nil, err
	}

	logger.Info("Creating transport factory", zap.String("type", string(connectionType)))

	switch connectionType {
	case model.ConnectionTypeSerial:
		return func() (Transport, error) {
			return NewSerialConnection(serialConfigFrom(cfg.Serial), logger), nil
		}, nil
	case model.ConnectionTypeTCP:
		return func() (Transport, error) {
			return NewTCPConnection(tcpConfigFrom(cfg.TCP), logger), nil
		}, nil
	case model.ConnectionTypeUSB:
		return func() (Transport, error) {
			return NewUSBConnection(usbConfigFrom(cfg.USB), logger), nil
		}, nil
	case model.ConnectionTypeSimulator:
		// One controller across reconnects so motor state persists
		sim := NewSimulator(cfg.Simulator, logger)
		return func() (Transport, error) {
			return sim, nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", connectionType)
	}
}

// NewSimulator builds an in-process controller from config
func NewSimulator(cfg config.SimulatorConfig, logger *zap.Logger) *simulator.Controller {
	opts := []simulator.Option{
		simulator.WithMotors(cfg.Motors...),
		simulator.WithSilentMotors(cfg.SilentMotors...),
		simulator.WithLatency(cfg.Latency),
		simulator.WithLogger(logger),
	}
	if cfg.ReadyBanner {
		opts = append(opts, simulator.WithReadyBanner())
	}
	return simulator.New(opts...)
}

func serialConfigFrom(c config.SerialConfig) *SerialConfig {
	sc := &SerialConfig{
		Port:        c.Port,
		BaudRate:    115200,
		DataBits:    8,
		StopBits:    1,
		Parity:      "none",
		ReadTimeout: c.ReadTimeout,
	}
	if c.BaudRate > 0 {
		sc.BaudRate = c.BaudRate
	}
	if c.DataBits > 0 {
		sc.DataBits = c.DataBits
	}
	if c.StopBits > 0 {
		sc.StopBits = c.StopBits
	}
	if c.Parity != "" {
		sc.Parity = c.Parity
	}
	return sc
}

func tcpConfigFrom(c config.TCPConfig) *TCPConfig {
	return &TCPConfig{
		Host:           c.Host,
		Port:           c.Port,
		KeepAlive:      c.KeepAlive,
		ConnectTimeout: c.ConnectTimeout,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
	}
}

func usbConfigFrom(c config.USBConfig) *USBConfig {
	return &USBConfig{
		VendorID:    c.VendorID,
		ProductID:   c.ProductID,
		InEndpoint:  c.InEndpoint,
		OutEndpoint: c.OutEndpoint,
		ReadTimeout: c.ReadTimeout,
	}
}

// ValidateConfig validates configuration for a specific transport type
func ValidateConfig(connectionType model.ConnectionType, cfg *config.TransportConfig) error {
	switch connectionType {
	case model.ConnectionTypeSerial:
		if cfg.Serial.Port == "" {
			return fmt.Errorf("serial port is required")
		}
	case model.ConnectionTypeTCP:
		if cfg.TCP.Host == "" {
			return fmt.Errorf("TCP host is required")
		}
		if cfg.TCP.Port < 1 || cfg.TCP.Port > 65535 {
			return fmt.Errorf("invalid port number: %d", cfg.TCP.Port)
		}
	case model.ConnectionTypeUSB:
		if _, err := ParseHexID(cfg.USB.VendorID); err != nil {
			return fmt.Errorf("invalid USB vendor_id %q: %w", cfg.USB.VendorID, err)
		}
		if _, err := ParseHexID(cfg.USB.ProductID); err != nil {
			return fmt.Errorf("invalid USB product_id %q: %w", cfg.USB.ProductID, err)
		}
	case model.ConnectionTypeSimulator:
		if len(cfg.Simulator.Motors) == 0 {
			return fmt.Errorf("simulator needs at least one motor")
		}
	}
	return nil
}
