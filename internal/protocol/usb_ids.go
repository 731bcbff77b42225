// internal/protocol/usb_ids.go
package protocol

import (
	"github.com/google/gousb"
)

// BridgeKind tells a bare USB-serial chip from a microcontroller board
type BridgeKind string

const (
	BridgeKindChip  BridgeKind = "usb-serial"
	BridgeKindBoard BridgeKind = "board"
)

// VendorInfo contains vendor-specific information
type VendorInfo struct {
	Name     string
	products map[gousb.ID]*ProductInfo
}

// ProductInfo describes one known USB product
type ProductInfo struct {
	Model string
	Kind  BridgeKind
}

// BridgeDatabase identifies USB devices that commonly carry a motor
// controller's serial link
type BridgeDatabase struct {
	vendors map[gousb.ID]*VendorInfo
}

// NewBridgeDatabase creates and populates the database
func NewBridgeDatabase() *BridgeDatabase {
	db := &BridgeDatabase{vendors: make(map[gousb.ID]*VendorInfo)}

	db.add(0x0403, "FTDI", map[gousb.ID]*ProductInfo{
		0x6001: {Model: "FT232R", Kind: BridgeKindChip},
		0x6010: {Model: "FT2232", Kind: BridgeKindChip},
		0x6014: {Model: "FT232H", Kind: BridgeKindChip},
		0x6015: {Model: "FT-X", Kind: BridgeKindChip},
	})
	db.add(0x10C4, "Silicon Labs", map[gousb.ID]*ProductInfo{
		0xEA60: {Model: "CP210x", Kind: BridgeKindChip},
	})
	db.add(0x1A86, "WCH", map[gousb.ID]*ProductInfo{
		0x7523: {Model: "CH340", Kind: BridgeKindChip},
		0x55D4: {Model: "CH9102", Kind: BridgeKindChip},
	})
	db.add(0x067B, "Prolific", map[gousb.ID]*ProductInfo{
		0x2303: {Model: "PL2303", Kind: BridgeKindChip},
	})
	db.add(0x2341, "Arduino", map[gousb.ID]*ProductInfo{
		0x0042: {Model: "Mega 2560", Kind: BridgeKindBoard},
		0x0043: {Model: "Uno", Kind: BridgeKindBoard},
		0x8036: {Model: "Leonardo", Kind: BridgeKindBoard},
		0x8057: {Model: "Nano 33 IoT", Kind: BridgeKindBoard},
	})
	db.add(0x2E8A, "Raspberry Pi", map[gousb.ID]*ProductInfo{
		0x0005: {Model: "Pico (MicroPython)", Kind: BridgeKindBoard},
		0x000A: {Model: "Pico", Kind: BridgeKindBoard},
	})
	db.add(0x303A, "Espressif", map[gousb.ID]*ProductInfo{
		0x1001: {Model: "ESP32-S3/C3 USB serial", Kind: BridgeKindBoard},
	})
	db.add(0x0483, "STMicroelectronics", map[gousb.ID]*ProductInfo{
		0x5740: {Model: "STM32 virtual COM port", Kind: BridgeKindBoard},
	})
	db.add(0x16C0, "PJRC", map[gousb.ID]*ProductInfo{
		0x0483: {Model: "Teensy", Kind: BridgeKindBoard},
	})

	return db
}

func (db *BridgeDatabase) add(vendorID gousb.ID, name string, products map[gousb.ID]*ProductInfo) {
	db.vendors[vendorID] = &VendorInfo{Name: name, products: products}
}

// IsKnownVendor checks if a vendor ID is in the database
func (db *BridgeDatabase) IsKnownVendor(vendorID gousb.ID) bool {
	_, exists := db.vendors[vendorID]
	return exists
}

// Lookup returns the vendor and, when known, the product. Either may be nil.
func (db *BridgeDatabase) Lookup(vendorID, productID gousb.ID) (*VendorInfo, *ProductInfo) {
	vendor, ok := db.vendors[vendorID]
	if !ok {
		return nil, nil
	}
	return vendor, vendor.products[productID]
}

// LookupHex is Lookup for the hex strings reported by port enumeration
func (db *BridgeDatabase) LookupHex(vendorID, productID string) (*VendorInfo, *ProductInfo) {
	vid, err := ParseHexID(vendorID)
	if err != nil {
		return nil, nil
	}
	pid, err := ParseHexID(productID)
	if err != nil {
		return db.Lookup(vid, 0)
	}
	return db.Lookup(vid, pid)
}

// GetTotalProductCount returns total number of known products
func (db *BridgeDatabase) GetTotalProductCount() int {
	total := 0
	for _, vendor := range db.vendors {
		total += len(vendor.products)
	}
	return total
}
