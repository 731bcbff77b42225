// internal/protocol/ports.go
package protocol

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port visible to the host
type PortInfo struct {
	Name         string     `json:"name"`
	IsUSB        bool       `json:"is_usb"`
	VendorID     string     `json:"vendor_id,omitempty"`
	ProductID    string     `json:"product_id,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	Product      string     `json:"product,omitempty"`
	Manufacturer string     `json:"manufacturer,omitempty"`
	Model        string     `json:"model,omitempty"`
	Kind         BridgeKind `json:"kind,omitempty"`
}

// Known reports whether the USB ids matched the bridge database
func (p PortInfo) Known() bool {
	return p.Manufacturer != ""
}

var bridges = NewBridgeDatabase()

// ListPorts enumerates serial ports with USB details where available
func ListPorts() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	result := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		result = append(result, describePort(bridges, p))
	}
	return result, nil
}

func describePort(db *BridgeDatabase, p *enumerator.PortDetails) PortInfo {
	info := PortInfo{
		Name:         p.Name,
		IsUSB:        p.IsUSB,
		VendorID:     p.VID,
		ProductID:    p.PID,
		SerialNumber: p.SerialNumber,
		Product:      p.Product,
	}
	if !p.IsUSB {
		return info
	}

	vendor, product := db.LookupHex(p.VID, p.PID)
	if vendor != nil {
		info.Manufacturer = vendor.Name
	}
	if product != nil {
		info.Model = product.Model
		info.Kind = product.Kind
	}
	return info
}
