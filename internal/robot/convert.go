package robot

import (
	"fmt"
	"math"
)

const (
	// PositionRawMax is the top of the controller's 10-bit position range.
	PositionRawMax = 1023
	// PositionRangeDegrees is the mechanical span covered by 0..PositionRawMax.
	PositionRangeDegrees = 300.0
	// PositionOffsetDegrees centers the span so raw 512 is roughly 0 degrees.
	PositionOffsetDegrees = 150.0
	// VelocityRawPerDPS converts degrees per second to velocity units.
	VelocityRawPerDPS = 2.84
	// MaxMotorID is the highest addressable id on the bus.
	MaxMotorID = 253
)

// jsRound rounds half up toward positive infinity, so -0.5 rounds to 0 and 2.5 to 3.
func jsRound(x float64) int {
	return int(math.Floor(x + 0.5))
}

// DegreesToPositionRaw maps -150..150 degrees onto 0..1023.
func DegreesToPositionRaw(degrees float64) int {
	return jsRound(((degrees + PositionOffsetDegrees) / PositionRangeDegrees) * PositionRawMax)
}

// RawToDegrees is the inverse of DegreesToPositionRaw, without rounding.
func RawToDegrees(raw int) float64 {
	return (float64(raw)/PositionRawMax)*PositionRangeDegrees - PositionOffsetDegrees
}

// DegreesToVelocityRaw converts degrees per second to controller velocity units.
func DegreesToVelocityRaw(dps float64) int {
	return jsRound(dps * VelocityRawPerDPS)
}

func validateMotorID(id int) error {
	if id < 0 || id > MaxMotorID {
		return fmt.Errorf("%w: motor id %d outside 0..%d", ErrInvalidArgument, id, MaxMotorID)
	}
	return nil
}

func validateDegrees(degrees float64) error {
	if math.IsNaN(degrees) || degrees < -PositionOffsetDegrees || degrees > PositionOffsetDegrees {
		return fmt.Errorf("%w: position %.2f outside -150..150 degrees", ErrInvalidArgument, degrees)
	}
	return nil
}

func validateVelocity(dps float64) error {
	if math.IsNaN(dps) || math.IsInf(dps, 0) {
		return fmt.Errorf("%w: velocity %v is not a finite number", ErrInvalidArgument, dps)
	}
	return nil
}
