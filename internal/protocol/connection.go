// internal/protocol/connection.go
package protocol

import "time"

// SerialConfig represents serial connection configuration
type SerialConfig struct {
	Port        string        `json:"port"`
	BaudRate    int           `json:"baud_rate"`
	DataBits    int           `json:"data_bits"`
	StopBits    int           `json:"stop_bits"`
	Parity      string        `json:"parity"`
	ReadTimeout time.Duration `json:"read_timeout"`
}

// USBConfig represents USB bulk connection configuration
type USBConfig struct {
	VendorID    string        `json:"vendor_id"`
	ProductID   string        `json:"product_id"`
	InEndpoint  int           `json:"in_endpoint"`
	OutEndpoint int           `json:"out_endpoint"`
	ReadTimeout time.Duration `json:"read_timeout"`
}

// TCPConfig represents a TCP serial bridge (ser2net, wifi bridge) configuration
type TCPConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	KeepAlive      bool          `json:"keep_alive"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
}
