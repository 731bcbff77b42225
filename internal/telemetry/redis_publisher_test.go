package telemetry

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"robot-service/internal/config"
	"robot-service/internal/model"
)

// unusedAddr returns an address nothing listens on
func unusedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func testConfig(addr string) *config.TelemetryConfig {
	return &config.TelemetryConfig{
		Enabled:      true,
		RedisAddr:    addr,
		Channel:      "robot:events",
		HistoryKey:   "robot:events:history",
		HistoryLimit: 10,
	}
}

func TestNewRedisPublisherUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisPublisher(ctx, testConfig(unusedAddr(t)), zap.NewNop())
	assert.Error(t, err)
}

func TestPublishFailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	addr := unusedAddr(t)
	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 100 * time.Millisecond})

	p := newRedisPublisher(client, testConfig(addr), zap.New(core))
	p.Publish(context.Background(), model.NewRobotEvent(model.EventRobotConnected, "test", model.JSONObject{"transport": "SIMULATOR"}))
	require.NoError(t, p.Close())

	entries := logs.FilterMessage("Failed to publish telemetry event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(model.EventRobotConnected), entries[0].ContextMap()["event_type"])
}

func TestPublishAfterClose(t *testing.T) {
	addr := unusedAddr(t)
	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 100 * time.Millisecond})

	p := newRedisPublisher(client, testConfig(addr), zap.NewNop())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), model.NewRobotEvent(model.EventScanCompleted, "test", nil))
	})
}

func TestHistoryWithoutKey(t *testing.T) {
	addr := unusedAddr(t)
	cfg := testConfig(addr)
	cfg.HistoryKey = ""
	client := redis.NewClient(&redis.Options{Addr: addr})

	p := newRedisPublisher(client, cfg, zap.NewNop())
	defer p.Close()

	events, err := p.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 0, p.GetStats()["queued"])
}
