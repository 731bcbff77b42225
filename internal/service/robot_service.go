// internal/service/robot_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"robot-service/internal/config"
	"robot-service/internal/model"
	"robot-service/internal/protocol"
	"robot-service/internal/repository"
	"robot-service/internal/robot"
	"robot-service/internal/utils"
)

// EventSink receives robot events. Publish must not block for long.
type EventSink interface {
	Publish(ctx context.Context, event *model.RobotEvent)
}

type requestIDKey struct{}

// WithRequestID tags ctx so journal entries can be traced to an API request
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RouterOptions maps configuration onto router tuning
func RouterOptions(cfg config.RobotConfig) robot.Options {
	return robot.Options{
		CommandTimeout: cfg.CommandTimeout,
		PingTimeout:    cfg.PingTimeout,
		QueryTimeout:   cfg.QueryTimeout,
		ReadyTimeout:   cfg.ReadyTimeout,
		ScanInterval:   cfg.ScanInterval,
		BatchInterval:  cfg.BatchInterval,
		ReadBufferSize: cfg.ReadBufferSize,
		MaxLineLength:  cfg.MaxLineLength,
	}
}

// RobotService handles robot business logic: every operation goes through
// the router, is journaled and is announced to the event sinks.
type RobotService struct {
	router      *robot.Router
	journal     repository.CommandRepository
	config      *config.Config
	logger      *utils.ServiceLogger
	robotLogger *utils.RobotLogger

	sinksMu sync.RWMutex
	sinks   []EventSink
}

// NewRobotService creates a new robot service instance
func NewRobotService(
	router *robot.Router,
	journal repository.CommandRepository,
	config *config.Config,
	logger *zap.Logger,
) *RobotService {
	rs := &RobotService{
		router:      router,
		journal:     journal,
		config:      config,
		logger:      utils.NewServiceLogger(logger, "robot-service"),
		robotLogger: utils.NewRobotLogger(logger, config.Transport.Type, transportAddress(&config.Transport)),
	}
	router.SetEventHandler(rs)
	return rs
}

func transportAddress(cfg *config.TransportConfig) string {
	switch model.ConnectionType(cfg.Type) {
	case model.ConnectionTypeSerial:
		return cfg.Serial.Port
	case model.ConnectionTypeTCP:
		return fmt.Sprintf("%s:%d", cfg.TCP.Host, cfg.TCP.Port)
	case model.ConnectionTypeUSB:
		return cfg.USB.VendorID + ":" + cfg.USB.ProductID
	default:
		return "in-process"
	}
}

// AddSink registers an event destination
func (rs *RobotService) AddSink(sink EventSink) {
	rs.sinksMu.Lock()
	rs.sinks = append(rs.sinks, sink)
	rs.sinksMu.Unlock()
}

func (rs *RobotService) emit(ctx context.Context, eventType model.EventType, data model.JSONObject) {
	event := model.NewRobotEvent(eventType, "robot-service", data)

	rs.sinksMu.RLock()
	sinks := rs.sinks
	rs.sinksMu.RUnlock()

	for _, sink := range sinks {
		sink.Publish(ctx, event)
	}
}

// OnConnected implements robot.EventHandler
func (rs *RobotService) OnConnected(transport model.ConnectionType) {
	rs.robotLogger.LogConnection("connected", nil)
	rs.emit(context.Background(), model.EventRobotConnected, model.JSONObject{
		"transport": string(transport),
	})
}

// OnDisconnected implements robot.EventHandler
func (rs *RobotService) OnDisconnected(reason string) {
	rs.robotLogger.LogConnection("disconnected: "+reason, nil)
	rs.emit(context.Background(), model.EventRobotDisconnected, model.JSONObject{
		"reason": reason,
	})
}

// statusOf classifies an operation error for the journal
func statusOf(err error) model.CommandStatus {
	switch {
	case err == nil:
		return model.CommandStatusSuccess
	case errors.Is(err, robot.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return model.CommandStatusTimeout
	case errors.Is(err, robot.ErrInvalidArgument),
		errors.Is(err, robot.ErrRequestInFlight),
		errors.Is(err, robot.ErrNotConnected):
		return model.CommandStatusRejected
	default:
		return model.CommandStatusFailed
	}
}

// track runs fn, then journals, logs and announces its outcome.
// Journal failures are logged and never change the operation result.
func (rs *RobotService) track(ctx context.Context, opType model.OperationType, command string, motorID *int, fn func() (model.JSONObject, error)) error {
	record := &model.CommandRecord{
		ID:            uuid.New(),
		OperationType: opType,
		Command:       command,
		MotorID:       motorID,
		RequestID:     requestIDFrom(ctx),
		StartedAt:     time.Now(),
	}

	opLogger := utils.NewOperationLogger(rs.logger.Logger, string(opType), record.ID.String())
	opLogger.Start(zap.String("command", command))

	result, err := fn()
	duration := opLogger.Elapsed()

	record.Status = statusOf(err)
	record.Result = result
	record.DurationMs = int(duration.Milliseconds())
	record.CreatedAt = time.Now()
	if err != nil {
		msg := err.Error()
		record.ErrorMessage = &msg
		opLogger.Error(err)
	} else {
		opLogger.Success()
	}
	rs.robotLogger.LogCommand(string(opType), command, motorID, duration, err)

	// The caller's context may already be done; the journal write must still happen.
	if jerr := rs.journal.Create(context.WithoutCancel(ctx), record); jerr != nil {
		rs.logger.Error("Failed to journal command",
			zap.String("operation_type", string(opType)),
			zap.Error(jerr),
		)
	}

	data := model.JSONObject{
		"journal_id":     record.ID.String(),
		"operation_type": string(opType),
		"command":        command,
		"status":         string(record.Status),
		"duration_ms":    record.DurationMs,
	}
	if motorID != nil {
		data["motor_id"] = *motorID
	}
	if result != nil {
		data["result"] = result
	}
	if err != nil {
		data["error"] = err.Error()
		rs.emit(ctx, model.EventCommandFailed, data)
	} else {
		rs.emit(ctx, model.EventCommandCompleted, data)
	}

	return err
}

func motorCommand(verb robot.Verb, motorID int, args ...string) string {
	return robot.Encode(verb, append([]string{strconv.Itoa(motorID)}, args...)...)
}

// Connect opens the controller link
func (rs *RobotService) Connect(ctx context.Context) error {
	err := rs.router.Connect(ctx)
	if err != nil {
		rs.robotLogger.LogConnection("connect", err)
	}
	return err
}

// Disconnect closes the controller link
func (rs *RobotService) Disconnect() error {
	return rs.router.Disconnect()
}

// Status returns the link status
func (rs *RobotService) Status() robot.ConnectionStatus {
	return rs.router.Status()
}

// WaitReady waits for the controller READY banner
func (rs *RobotService) WaitReady(ctx context.Context, timeout time.Duration) error {
	return rs.track(ctx, model.OperationTypeWaitReady, "READY", nil, func() (model.JSONObject, error) {
		return nil, rs.router.WaitReady(ctx, timeout)
	})
}

// SendCommand sends a raw command line and waits for OK
func (rs *RobotService) SendCommand(ctx context.Context, command string, timeout time.Duration) error {
	return rs.track(ctx, model.OperationTypeRaw, command, nil, func() (model.JSONObject, error) {
		return nil, rs.router.SendCommand(ctx, command, timeout)
	})
}

// BatchCommand sends commands in order and journals the batch as one entry
func (rs *RobotService) BatchCommand(ctx context.Context, commands []string) ([]robot.BatchResult, error) {
	var results []robot.BatchResult
	err := rs.track(ctx, model.OperationTypeBatch, fmt.Sprintf("%d commands", len(commands)), nil, func() (model.JSONObject, error) {
		results = rs.router.BatchCommand(ctx, commands)

		succeeded := 0
		for _, r := range results {
			if r.Success {
				succeeded++
			}
		}
		summary := model.JSONObject{"total": len(results), "succeeded": succeeded}
		if succeeded < len(results) {
			return summary, fmt.Errorf("%d of %d commands failed", len(results)-succeeded, len(results))
		}
		return summary, nil
	})

	// Per-command outcomes are in results; a partial failure is not a call error
	if err != nil && ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}

// EmergencyStop halts every motor
func (rs *RobotService) EmergencyStop(ctx context.Context) error {
	return rs.track(ctx, model.OperationTypeEmergencyStop, robot.Encode(robot.VerbEmergencyStop), nil, func() (model.JSONObject, error) {
		return nil, rs.router.EmergencyStop(ctx)
	})
}

// Ping reports whether a motor answers
func (rs *RobotService) Ping(ctx context.Context, motorID int) (bool, error) {
	var online bool
	err := rs.track(ctx, model.OperationTypePing, motorCommand(robot.VerbPing, motorID), &motorID, func() (model.JSONObject, error) {
		var err error
		online, err = rs.router.Ping(ctx, motorID)
		return model.JSONObject{"online": online}, err
	})
	return online, err
}

// EnableTorque switches motor torque
func (rs *RobotService) EnableTorque(ctx context.Context, motorID int, enable bool) error {
	verb := robot.VerbDisableTorque
	if enable {
		verb = robot.VerbEnableTorque
	}
	return rs.track(ctx, model.OperationTypeTorque, motorCommand(verb, motorID), &motorID, func() (model.JSONObject, error) {
		return nil, rs.router.EnableTorque(ctx, motorID, enable)
	})
}

// SetPosition moves a motor to degrees
func (rs *RobotService) SetPosition(ctx context.Context, motorID int, degrees float64) error {
	command := motorCommand(robot.VerbSetPosition, motorID, strconv.Itoa(robot.DegreesToPositionRaw(degrees)))
	return rs.track(ctx, model.OperationTypeSetPosition, command, &motorID, func() (model.JSONObject, error) {
		return model.JSONObject{"degrees": degrees}, rs.router.SetPosition(ctx, motorID, degrees)
	})
}

// SetVelocity sets motor speed in degrees per second
func (rs *RobotService) SetVelocity(ctx context.Context, motorID int, dps float64) error {
	command := motorCommand(robot.VerbSetVelocity, motorID, strconv.Itoa(robot.DegreesToVelocityRaw(dps)))
	return rs.track(ctx, model.OperationTypeSetVelocity, command, &motorID, func() (model.JSONObject, error) {
		return model.JSONObject{"degrees_per_second": dps}, rs.router.SetVelocity(ctx, motorID, dps)
	})
}

// SetMode sets the motor operating mode
func (rs *RobotService) SetMode(ctx context.Context, motorID int, mode int) error {
	command := motorCommand(robot.VerbSetMode, motorID, strconv.Itoa(mode))
	return rs.track(ctx, model.OperationTypeSetMode, command, &motorID, func() (model.JSONObject, error) {
		return nil, rs.router.SetMode(ctx, motorID, mode)
	})
}

// GetPosition reads the motor position
func (rs *RobotService) GetPosition(ctx context.Context, motorID int) (robot.PositionResponse, error) {
	var pos robot.PositionResponse
	err := rs.track(ctx, model.OperationTypeGetPosition, motorCommand(robot.VerbGetPosition, motorID), &motorID, func() (model.JSONObject, error) {
		var err error
		pos, err = rs.router.GetPosition(ctx, motorID)
		if err != nil {
			return nil, err
		}
		return model.JSONObject{"raw": pos.Raw, "degrees": pos.Degrees}, nil
	})
	return pos, err
}

// GetVelocity reads the raw motor velocity
func (rs *RobotService) GetVelocity(ctx context.Context, motorID int) (robot.VelocityResponse, error) {
	var vel robot.VelocityResponse
	err := rs.track(ctx, model.OperationTypeGetVelocity, motorCommand(robot.VerbGetVelocity, motorID), &motorID, func() (model.JSONObject, error) {
		var err error
		vel, err = rs.router.GetVelocity(ctx, motorID)
		if err != nil {
			return nil, err
		}
		return model.JSONObject{"raw": vel.Raw}, nil
	})
	return vel, err
}

// GetTemperature reads the raw motor temperature
func (rs *RobotService) GetTemperature(ctx context.Context, motorID int) (robot.TemperatureResponse, error) {
	var temp robot.TemperatureResponse
	err := rs.track(ctx, model.OperationTypeGetTemperature, motorCommand(robot.VerbGetTemp, motorID), &motorID, func() (model.JSONObject, error) {
		var err error
		temp, err = rs.router.GetTemperature(ctx, motorID)
		if err != nil {
			return nil, err
		}
		return model.JSONObject{"raw": temp.Raw}, nil
	})
	return temp, err
}

// QueryMotor reads everything available from one motor
func (rs *RobotService) QueryMotor(ctx context.Context, motorID int) (robot.MotorSnapshot, error) {
	snapshot, err := rs.router.QueryMotor(ctx, motorID)
	if err != nil {
		return snapshot, err
	}

	rs.emit(ctx, model.EventMotorSnapshot, snapshotData(snapshot))
	return snapshot, nil
}

func snapshotData(s robot.MotorSnapshot) model.JSONObject {
	data := model.JSONObject{"motor_id": s.MotorID}
	if s.Position != nil {
		data["position_raw"] = s.Position.Raw
		data["position_degrees"] = s.Position.Degrees
	}
	if s.Velocity != nil {
		data["velocity"] = *s.Velocity
	}
	if s.Temperature != nil {
		data["temperature"] = *s.Temperature
	}
	return data
}

// ScanMotors discovers motors in [start, end]
func (rs *RobotService) ScanMotors(ctx context.Context, start, end int) ([]robot.MotorSnapshot, error) {
	var found []robot.MotorSnapshot
	ids := []int{}
	command := fmt.Sprintf("SCAN:%d-%d", start, end)

	err := rs.track(ctx, model.OperationTypeScan, command, nil, func() (model.JSONObject, error) {
		began := time.Now()
		var err error
		found, err = rs.router.ScanMotors(ctx, start, end)

		for _, s := range found {
			ids = append(ids, s.MotorID)
		}
		rs.robotLogger.LogScan(start, end, len(found), time.Since(began))
		return model.JSONObject{"found": ids}, err
	})

	if err == nil {
		rs.emit(ctx, model.EventScanCompleted, model.JSONObject{
			"start": start,
			"end":   end,
			"found": ids,
		})
	}
	return found, err
}

// ListPorts enumerates serial ports on the host
func (rs *RobotService) ListPorts() ([]protocol.PortInfo, error) {
	ports, err := protocol.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}
	return ports, nil
}

// ListCommands returns a page of the journal
func (rs *RobotService) ListCommands(ctx context.Context, filter *repository.CommandFilter) ([]*model.CommandRecord, int, error) {
	records, total, err := rs.journal.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list commands: %w", err)
	}
	return records, total, nil
}

// GetCommand returns one journal entry
func (rs *RobotService) GetCommand(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error) {
	return rs.journal.GetByID(ctx, id)
}

// CommandStats summarizes the journal
func (rs *RobotService) CommandStats(ctx context.Context, since *time.Time) (*repository.CommandStats, error) {
	stats, err := rs.journal.GetStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get command stats: %w", err)
	}
	return stats, nil
}

// CleanupJournal drops entries older than the configured retention
func (rs *RobotService) CleanupJournal(ctx context.Context) (int64, error) {
	retention := rs.config.Database.Retention
	if retention <= 0 {
		return 0, nil
	}

	deleted, err := rs.journal.DeleteOlderThan(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up journal: %w", err)
	}
	if deleted > 0 {
		rs.logger.Info("Journal cleaned up",
			zap.Int64("deleted", deleted),
			zap.Duration("retention", retention),
		)
	}
	return deleted, nil
}
