package robot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// MotorSnapshot holds whatever could be read from one motor. Fields are nil
// when the corresponding query failed.
type MotorSnapshot struct {
	MotorID     int               `json:"motor_id"`
	Position    *PositionResponse `json:"position,omitempty"`
	Velocity    *int              `json:"velocity,omitempty"`
	Temperature *int              `json:"temperature,omitempty"`
}

// BatchResult is the outcome of one command in a batch.
type BatchResult struct {
	Command string `json:"command"`
	Success bool   `json:"success"`
	Error   error  `json:"-"`
}

// Ping reports whether motorID answers. A timeout means offline and is not
// an error.
func (r *Router) Ping(ctx context.Context, motorID int) (bool, error) {
	if err := validateMotorID(motorID); err != nil {
		return false, err
	}

	resp, err := r.exchange(ctx, KeyPing, string(VerbPing), Encode(VerbPing, strconv.Itoa(motorID)), r.opts.PingTimeout)
	if errors.Is(err, ErrTimeout) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ping motor %d: %w", motorID, err)
	}

	ping, ok := resp.(PingResponse)
	return ok && ping.Online, nil
}

func (r *Router) command(ctx context.Context, verb Verb, args ...string) error {
	_, err := r.exchange(ctx, KeyCommand, string(verb), Encode(verb, args...), r.opts.CommandTimeout)
	return err
}

// EnableTorque switches holding torque on or off.
func (r *Router) EnableTorque(ctx context.Context, motorID int, enable bool) error {
	if err := validateMotorID(motorID); err != nil {
		return err
	}

	verb := VerbDisableTorque
	if enable {
		verb = VerbEnableTorque
	}
	if err := r.command(ctx, verb, strconv.Itoa(motorID)); err != nil {
		return fmt.Errorf("set torque on motor %d: %w", motorID, err)
	}
	return nil
}

// SetPosition moves motorID to degrees in -150..150.
func (r *Router) SetPosition(ctx context.Context, motorID int, degrees float64) error {
	if err := validateMotorID(motorID); err != nil {
		return err
	}
	if err := validateDegrees(degrees); err != nil {
		return err
	}

	raw := DegreesToPositionRaw(degrees)
	if err := r.command(ctx, VerbSetPosition, strconv.Itoa(motorID), strconv.Itoa(raw)); err != nil {
		return fmt.Errorf("set position on motor %d: %w", motorID, err)
	}
	return nil
}

// SetVelocity sets the moving speed in degrees per second.
func (r *Router) SetVelocity(ctx context.Context, motorID int, dps float64) error {
	if err := validateMotorID(motorID); err != nil {
		return err
	}
	if err := validateVelocity(dps); err != nil {
		return err
	}

	raw := DegreesToVelocityRaw(dps)
	if err := r.command(ctx, VerbSetVelocity, strconv.Itoa(motorID), strconv.Itoa(raw)); err != nil {
		return fmt.Errorf("set velocity on motor %d: %w", motorID, err)
	}
	return nil
}

// SetMode selects the controller-defined operating mode.
func (r *Router) SetMode(ctx context.Context, motorID int, mode int) error {
	if err := validateMotorID(motorID); err != nil {
		return err
	}

	if err := r.command(ctx, VerbSetMode, strconv.Itoa(motorID), strconv.Itoa(mode)); err != nil {
		return fmt.Errorf("set mode on motor %d: %w", motorID, err)
	}
	return nil
}

// GetPosition reads the present position.
func (r *Router) GetPosition(ctx context.Context, motorID int) (PositionResponse, error) {
	if err := validateMotorID(motorID); err != nil {
		return PositionResponse{}, err
	}

	resp, err := r.exchange(ctx, PositionKey(motorID), string(VerbGetPosition),
		Encode(VerbGetPosition, strconv.Itoa(motorID)), r.opts.QueryTimeout)
	if err != nil {
		return PositionResponse{}, fmt.Errorf("get position of motor %d: %w", motorID, err)
	}
	return resp.(PositionResponse), nil
}

// GetVelocity reads the present velocity in raw units.
func (r *Router) GetVelocity(ctx context.Context, motorID int) (VelocityResponse, error) {
	if err := validateMotorID(motorID); err != nil {
		return VelocityResponse{}, err
	}

	resp, err := r.exchange(ctx, VelocityKey(motorID), string(VerbGetVelocity),
		Encode(VerbGetVelocity, strconv.Itoa(motorID)), r.opts.QueryTimeout)
	if err != nil {
		return VelocityResponse{}, fmt.Errorf("get velocity of motor %d: %w", motorID, err)
	}
	return resp.(VelocityResponse), nil
}

// GetTemperature reads the internal temperature in raw units.
func (r *Router) GetTemperature(ctx context.Context, motorID int) (TemperatureResponse, error) {
	if err := validateMotorID(motorID); err != nil {
		return TemperatureResponse{}, err
	}

	resp, err := r.exchange(ctx, TemperatureKey(motorID), string(VerbGetTemp),
		Encode(VerbGetTemp, strconv.Itoa(motorID)), r.opts.QueryTimeout)
	if err != nil {
		return TemperatureResponse{}, fmt.Errorf("get temperature of motor %d: %w", motorID, err)
	}
	return resp.(TemperatureResponse), nil
}

// EmergencyStop sends EMERGENCY_STOP on the command key. It fails with
// ErrRequestInFlight while another command awaits its reply.
func (r *Router) EmergencyStop(ctx context.Context) error {
	if err := r.command(ctx, VerbEmergencyStop); err != nil {
		return fmt.Errorf("emergency stop: %w", err)
	}
	return nil
}

// WaitReady waits for the controller's READY line. It returns immediately
// if READY was already seen on this connection.
func (r *Router) WaitReady(ctx context.Context, timeout time.Duration) error {
	c, err := r.active()
	if err != nil {
		return err
	}
	if c.ready.Load() {
		return nil
	}
	if timeout <= 0 {
		timeout = r.opts.ReadyTimeout
	}

	p, err := c.pending.register(KeyReady, timeout)
	if err != nil {
		return err
	}

	// READY may have been dispatched between the check and the registration
	if c.ready.Load() && c.pending.remove(p) {
		return nil
	}

	_, err = r.await(ctx, c, p, timeout)
	return err
}

// QueryMotor reads position, velocity and temperature. Individual query
// failures leave the field nil; only a lost connection is returned.
func (r *Router) QueryMotor(ctx context.Context, motorID int) (MotorSnapshot, error) {
	snapshot := MotorSnapshot{MotorID: motorID}

	pos, err := r.GetPosition(ctx, motorID)
	if fatal(ctx, err) {
		return snapshot, err
	}
	if err == nil {
		snapshot.Position = &pos
	} else {
		r.logger.Debug("Position query failed", zap.Int("motor_id", motorID), zap.Error(err))
	}

	vel, err := r.GetVelocity(ctx, motorID)
	if fatal(ctx, err) {
		return snapshot, err
	}
	if err == nil {
		snapshot.Velocity = &vel.Raw
	} else {
		r.logger.Debug("Velocity query failed", zap.Int("motor_id", motorID), zap.Error(err))
	}

	temp, err := r.GetTemperature(ctx, motorID)
	if fatal(ctx, err) {
		return snapshot, err
	}
	if err == nil {
		snapshot.Temperature = &temp.Raw
	} else {
		r.logger.Debug("Temperature query failed", zap.Int("motor_id", motorID), zap.Error(err))
	}

	return snapshot, nil
}

// fatal reports errors that make further queries on the link pointless.
func fatal(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return ctx.Err() != nil ||
		errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, ErrInvalidArgument)
}

// ScanMotors pings every id in [start, end] in order and snapshots those
// that answer. A failing id is logged and skipped. The scan stops early only
// when ctx ends or the connection is lost, returning what it found so far.
func (r *Router) ScanMotors(ctx context.Context, start, end int) ([]MotorSnapshot, error) {
	if err := validateMotorID(start); err != nil {
		return nil, err
	}
	if err := validateMotorID(end); err != nil {
		return nil, err
	}
	if start > end {
		return nil, fmt.Errorf("%w: scan range %d..%d is empty", ErrInvalidArgument, start, end)
	}

	found := []MotorSnapshot{}
	for id := start; id <= end; id++ {
		if id > start {
			if err := sleep(ctx, r.opts.ScanInterval); err != nil {
				return found, err
			}
		}

		online, err := r.Ping(ctx, id)
		if fatal(ctx, err) {
			return found, err
		}
		if err != nil {
			r.logger.Warn("Scan probe failed", zap.Int("motor_id", id), zap.Error(err))
			continue
		}
		if !online {
			continue
		}

		snapshot, err := r.QueryMotor(ctx, id)
		if err != nil {
			return found, err
		}
		found = append(found, snapshot)
	}

	r.logger.Info("Scan completed",
		zap.Int("start", start),
		zap.Int("end", end),
		zap.Int("found", len(found)),
	)
	return found, nil
}

// BatchCommand sends commands strictly in order, one at a time. Every
// command is attempted regardless of earlier failures, except when ctx ends.
func (r *Router) BatchCommand(ctx context.Context, commands []string) []BatchResult {
	results := make([]BatchResult, 0, len(commands))

	for i, cmd := range commands {
		if i > 0 {
			if err := sleep(ctx, r.opts.BatchInterval); err != nil {
				for _, rest := range commands[i:] {
					results = append(results, BatchResult{Command: rest, Error: err})
				}
				return results
			}
		}

		err := r.SendCommand(ctx, cmd, 0)
		results = append(results, BatchResult{Command: cmd, Success: err == nil, Error: err})
	}

	return results
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
