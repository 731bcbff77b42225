package robot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSRound(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.5, 1},
		{1.49, 1},
		{2.5, 3},
		{-0.5, 0},
		{-2.5, -2},
		{-2.51, -3},
		{511.5, 512},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, jsRound(tt.in), "jsRound(%v)", tt.in)
	}
}

func TestDegreesToPositionRaw(t *testing.T) {
	assert.Equal(t, 0, DegreesToPositionRaw(-150))
	assert.Equal(t, 512, DegreesToPositionRaw(0))
	assert.Equal(t, 1023, DegreesToPositionRaw(150))
	assert.Equal(t, 768, DegreesToPositionRaw(75.22))
}

func TestRawToDegrees(t *testing.T) {
	assert.InDelta(t, -150.0, RawToDegrees(0), 1e-9)
	assert.InDelta(t, 150.0, RawToDegrees(1023), 1e-9)
	assert.InDelta(t, 75.22, RawToDegrees(768), 0.01)
}

func TestPositionRoundTrip(t *testing.T) {
	for raw := 0; raw <= PositionRawMax; raw++ {
		require.Equal(t, raw, DegreesToPositionRaw(RawToDegrees(raw)), "raw %d", raw)
	}
}

func TestDegreesToVelocityRaw(t *testing.T) {
	assert.Equal(t, 0, DegreesToVelocityRaw(0))
	assert.Equal(t, 28, DegreesToVelocityRaw(10))
	assert.Equal(t, 284, DegreesToVelocityRaw(100))
	assert.Equal(t, -3, DegreesToVelocityRaw(-1))
}

func TestValidation(t *testing.T) {
	assert.NoError(t, validateMotorID(0))
	assert.NoError(t, validateMotorID(MaxMotorID))
	assert.ErrorIs(t, validateMotorID(-1), ErrInvalidArgument)
	assert.ErrorIs(t, validateMotorID(MaxMotorID+1), ErrInvalidArgument)

	assert.NoError(t, validateDegrees(-150))
	assert.NoError(t, validateDegrees(150))
	assert.ErrorIs(t, validateDegrees(150.01), ErrInvalidArgument)
	assert.ErrorIs(t, validateDegrees(math.NaN()), ErrInvalidArgument)

	assert.ErrorIs(t, validateVelocity(math.Inf(1)), ErrInvalidArgument)
}
