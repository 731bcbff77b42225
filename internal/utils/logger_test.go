package utils

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"robot-service/internal/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&config.LoggingConfig{Level: "debug", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(&config.LoggingConfig{Level: "loud", Output: "stdout"})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "logs", "robot.log")
	logger, err = NewLogger(&config.LoggingConfig{Level: "info", Format: "json", Output: file, MaxSize: 1})
	require.NoError(t, err)
	logger.Info("hello")
	assert.FileExists(t, file)
}

func TestRobotLoggerLogCommand(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rl := NewRobotLogger(zap.New(core), "SIMULATOR", "sim")

	id := 3
	rl.LogCommand("GET_POSITION", "GET_POSITION:3;", &id, 12*time.Millisecond, nil)
	rl.LogCommand("PING", "PING:4;", nil, time.Second, errors.New("robot: response timeout"))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(3), entries[0].ContextMap()["motor_id"])
	assert.Equal(t, "robot", entries[0].ContextMap()["component"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, false, entries[1].ContextMap()["success"])
}

func TestServiceLoggerAPIRequestLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sl := NewServiceLogger(zap.New(core), "robot-service")

	sl.LogAPIRequest("GET", "/health", "r1", "127.0.0.1", 200, time.Millisecond)
	sl.LogAPIRequest("POST", "/api/v1/robot/command", "r2", "127.0.0.1", 409, time.Millisecond)
	sl.LogAPIRequest("POST", "/api/v1/robot/command", "r3", "127.0.0.1", 504, time.Millisecond)

	levels := []zapcore.Level{}
	for _, e := range logs.All() {
		levels = append(levels, e.Level)
	}
	assert.Equal(t, []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}, levels)
}
