package protocol

import (
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func TestBridgeDatabaseLookup(t *testing.T) {
	db := NewBridgeDatabase()

	assert.True(t, db.IsKnownVendor(0x0403))
	assert.False(t, db.IsKnownVendor(0xFFFF))
	assert.Greater(t, db.GetTotalProductCount(), 10)

	vendor, product := db.Lookup(gousb.ID(0x1A86), gousb.ID(0x7523))
	require.NotNil(t, vendor)
	require.NotNil(t, product)
	assert.Equal(t, "WCH", vendor.Name)
	assert.Equal(t, "CH340", product.Model)
	assert.Equal(t, BridgeKindChip, product.Kind)

	vendor, product = db.LookupHex("2341", "0x0043")
	require.NotNil(t, vendor)
	require.NotNil(t, product)
	assert.Equal(t, BridgeKindBoard, product.Kind)

	// Known vendor, unknown product
	vendor, product = db.LookupHex("0403", "beef")
	assert.NotNil(t, vendor)
	assert.Nil(t, product)

	vendor, product = db.LookupHex("zz", "0001")
	assert.Nil(t, vendor)
	assert.Nil(t, product)
}

func TestDescribePort(t *testing.T) {
	db := NewBridgeDatabase()

	usb := describePort(db, &enumerator.PortDetails{
		Name:         "/dev/ttyUSB0",
		IsUSB:        true,
		VID:          "10c4",
		PID:          "ea60",
		SerialNumber: "0001",
	})
	assert.True(t, usb.Known())
	assert.Equal(t, "Silicon Labs", usb.Manufacturer)
	assert.Equal(t, "CP210x", usb.Model)
	assert.Equal(t, "0001", usb.SerialNumber)

	plain := describePort(db, &enumerator.PortDetails{Name: "/dev/ttyS0"})
	assert.False(t, plain.Known())
	assert.False(t, plain.IsUSB)
	assert.Empty(t, plain.Kind)
}
