package protocol

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.uber.org/zap/zaptest"

	"robot-service/internal/config"
	"robot-service/internal/model"
)

// echoBridge accepts one connection and answers each ;-terminated command with OK.
func echoBridge(t *testing.T) (*net.TCPAddr, <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
		reader := bufio.NewReader(conn)
		for {
			if _, err := reader.ReadString(';'); err != nil {
				return
			}
			conn.Write([]byte("OK\n"))
		}
	}()
	return ln.Addr().(*net.TCPAddr), accepted
}

func TestTCPConnection(t *testing.T) {
	addr, accepted := echoBridge(t)

	tc := NewTCPConnection(&TCPConfig{
		Host:           "127.0.0.1",
		Port:           addr.Port,
		ConnectTimeout: time.Second,
		ReadTimeout:    20 * time.Millisecond,
		WriteTimeout:   time.Second,
	}, zaptest.NewLogger(t))

	ctx := context.Background()
	require.NoError(t, tc.Open(ctx))
	assert.True(t, tc.IsOpen())
	assert.Equal(t, model.ConnectionTypeTCP, tc.GetProtocolType())

	// Nothing sent yet: the poll expires with an empty chunk
	chunk, err := tc.Read(ctx, 64)
	require.NoError(t, err)
	assert.Empty(t, chunk)

	require.NoError(t, tc.Write(ctx, []byte("PING:1;")))

	var got []byte
	require.Eventually(t, func() bool {
		chunk, err := tc.Read(ctx, 64)
		if err != nil {
			return false
		}
		got = append(got, chunk...)
		return string(got) == "OK\n"
	}, time.Second, time.Millisecond)

	stats := tc.GetStats()
	assert.Equal(t, int64(7), stats.BytesWritten)
	assert.Equal(t, int64(3), stats.BytesRead)

	// Peer hangs up: io.EOF
	peer := <-accepted
	peer.Close()
	require.Eventually(t, func() bool {
		_, err := tc.Read(ctx, 64)
		return err == io.EOF
	}, time.Second, time.Millisecond)

	require.NoError(t, tc.Close())
	assert.False(t, tc.IsOpen())
	assert.Error(t, tc.Write(ctx, []byte("PING:1;")))
}

func TestTCPConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	tc := NewTCPConnection(&TCPConfig{Host: "127.0.0.1", Port: port, ConnectTimeout: time.Second}, zaptest.NewLogger(t))
	assert.Error(t, tc.Open(context.Background()))
	assert.False(t, tc.IsOpen())
}

func TestNewTransportFactory(t *testing.T) {
	logger := zaptest.NewLogger(t)

	factory, err := NewTransportFactory(&config.TransportConfig{
		Type:      "simulator",
		Simulator: config.SimulatorConfig{Motors: []int{1, 2}},
	}, logger)
	require.NoError(t, err)

	first, err := factory()
	require.NoError(t, err)
	second, err := factory()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, model.ConnectionTypeSimulator, first.GetProtocolType())

	factory, err = NewTransportFactory(&config.TransportConfig{
		Type: "serial",
		Serial: config.SerialConfig{
			Port: "/dev/ttyUSB9",
		},
	}, logger)
	require.NoError(t, err)

	first, err = factory()
	require.NoError(t, err)
	second, err = factory()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, model.ConnectionTypeSerial, first.GetProtocolType())
	assert.Equal(t, 115200, first.(*SerialConnection).config.BaudRate)
}

func TestNewTransportFactoryRejectsBadConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tests := []config.TransportConfig{
		{Type: "bluetooth"},
		{Type: "serial"},
		{Type: "tcp", TCP: config.TCPConfig{Host: "bridge", Port: 0}},
		{Type: "usb", USB: config.USBConfig{VendorID: "zz", ProductID: "0001"}},
		{Type: "simulator"},
	}
	for _, tc := range tests {
		_, err := NewTransportFactory(&tc, logger)
		assert.Error(t, err, "type %s", tc.Type)
	}
}

func TestParseHexID(t *testing.T) {
	id, err := ParseHexID("0x2341")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x2341), uint16(id))

	id, err = ParseHexID("10C4")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x10c4), uint16(id))

	_, err = ParseHexID("12345")
	assert.Error(t, err)
}

func TestSerialModeMapping(t *testing.T) {
	mode := serialMode(&SerialConfig{BaudRate: 57600, DataBits: 7, StopBits: 2, Parity: "even"})
	assert.Equal(t, 57600, mode.BaudRate)
	assert.Equal(t, 7, mode.DataBits)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)

	mode = serialMode(&SerialConfig{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "none"})
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
}
