package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"robot-service/internal/config"
	"robot-service/internal/model"
	"robot-service/internal/protocol"
	"robot-service/internal/repository"
	"robot-service/internal/robot"
	"robot-service/internal/simulator"
)

type recordingSink struct {
	mu     sync.Mutex
	events []*model.RobotEvent
}

func (s *recordingSink) Publish(ctx context.Context, event *model.RobotEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) types() []model.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	svc     *RobotService
	sim     *simulator.Controller
	journal repository.CommandRepository
	sink    *recordingSink
}

func newFixture(t *testing.T, simOpts ...simulator.Option) *fixture {
	t.Helper()

	cfg := &config.Config{
		Transport: config.TransportConfig{Type: string(model.ConnectionTypeSimulator)},
		Robot: config.RobotConfig{
			CommandTimeout: 500 * time.Millisecond,
			PingTimeout:    100 * time.Millisecond,
			QueryTimeout:   200 * time.Millisecond,
			ReadyTimeout:   500 * time.Millisecond,
			ScanInterval:   time.Millisecond,
			BatchInterval:  time.Millisecond,
		},
		Database: config.DatabaseConfig{Retention: time.Hour},
	}

	base := []simulator.Option{
		simulator.WithMotors(1, 2),
		simulator.WithPollInterval(5 * time.Millisecond),
	}
	sim := simulator.New(append(base, simOpts...)...)

	logger := zaptest.NewLogger(t)
	router := robot.NewRouter(func() (protocol.Transport, error) { return sim, nil }, RouterOptions(cfg.Robot), logger)
	journal := repository.NewMemoryCommandRepository(100)

	svc := NewRobotService(router, journal, cfg, logger)
	sink := &recordingSink{}
	svc.AddSink(sink)

	require.NoError(t, svc.Connect(context.Background()))
	t.Cleanup(func() { svc.Disconnect() })

	return &fixture{svc: svc, sim: sim, journal: journal, sink: sink}
}

func TestRouterOptions(t *testing.T) {
	opts := RouterOptions(config.RobotConfig{
		CommandTimeout: 3 * time.Second,
		ScanInterval:   20 * time.Millisecond,
		MaxLineLength:  64,
	})
	assert.Equal(t, 3*time.Second, opts.CommandTimeout)
	assert.Equal(t, 20*time.Millisecond, opts.ScanInterval)
	assert.Equal(t, 64, opts.MaxLineLength)
}

func TestOperationsAreJournaled(t *testing.T) {
	f := newFixture(t)
	ctx := WithRequestID(context.Background(), "req-1")

	require.NoError(t, f.svc.SetPosition(ctx, 1, 75))
	pos, err := f.svc.GetPosition(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 768, pos.Raw)

	records, total, err := f.svc.ListCommands(ctx, &repository.CommandFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, total)

	get := records[0]
	assert.Equal(t, model.OperationTypeGetPosition, get.OperationType)
	assert.Equal(t, "GET_POSITION:1;", get.Command)
	assert.Equal(t, model.CommandStatusSuccess, get.Status)
	assert.Equal(t, "req-1", get.RequestID)
	require.NotNil(t, get.MotorID)
	assert.Equal(t, 1, *get.MotorID)
	assert.Equal(t, 768, get.Result["raw"])

	set := records[1]
	assert.Equal(t, "SET_POSITION:1:768;", set.Command)

	byID, err := f.svc.GetCommand(ctx, set.ID)
	require.NoError(t, err)
	assert.Equal(t, set.ID, byID.ID)
}

func TestFailureStatuses(t *testing.T) {
	f := newFixture(t, simulator.WithSilentMotors(2))
	ctx := context.Background()

	err := f.svc.SetPosition(ctx, 9, 0)
	assert.True(t, robot.IsProtocolError(err))

	err = f.svc.SetPosition(ctx, 1, 400)
	assert.ErrorIs(t, err, robot.ErrInvalidArgument)

	_, err = f.svc.GetVelocity(ctx, 2)
	assert.ErrorIs(t, err, robot.ErrTimeout)

	stats, err := f.svc.CommandStats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 0, stats.Successful)
	assert.Equal(t, 1, stats.ByStatus[model.CommandStatusFailed])
	assert.Equal(t, 1, stats.ByStatus[model.CommandStatusRejected])
	assert.Equal(t, 1, stats.ByStatus[model.CommandStatusTimeout])
}

func TestEventsReachSinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	online, err := f.svc.Ping(ctx, 1)
	require.NoError(t, err)
	assert.True(t, online)

	assert.Error(t, f.svc.SetVelocity(ctx, 7, 10))

	snapshot, err := f.svc.QueryMotor(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, snapshot.Position)

	require.NoError(t, f.svc.Disconnect())

	types := f.sink.types()
	require.NotEmpty(t, types)
	assert.Equal(t, model.EventRobotConnected, types[0])
	assert.Contains(t, types, model.EventCommandCompleted)
	assert.Contains(t, types, model.EventCommandFailed)
	assert.Contains(t, types, model.EventMotorSnapshot)
	assert.Equal(t, model.EventRobotDisconnected, types[len(types)-1])
}

func TestScanAndBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	found, err := f.svc.ScanMotors(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, 1, found[0].MotorID)
	assert.Equal(t, 2, found[1].MotorID)
	assert.Contains(t, f.sink.types(), model.EventScanCompleted)

	results, err := f.svc.BatchCommand(ctx, []string{"ENABLE_TORQUE:1;", "BOGUS;", "DISABLE_TORQUE:2;"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)

	scanOp := model.OperationTypeScan
	records, _, err := f.svc.ListCommands(ctx, &repository.CommandFilter{OperationType: &scanOp})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SCAN:0-3", records[0].Command)

	batchOp := model.OperationTypeBatch
	records, _, err = f.svc.ListCommands(ctx, &repository.CommandFilter{OperationType: &batchOp})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.CommandStatusFailed, records[0].Status)
	assert.Equal(t, 2, records[0].Result["succeeded"])
}

func TestEmergencyStopAndTorque(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.EnableTorque(ctx, 1, true))
	require.NoError(t, f.svc.SetMode(ctx, 1, 2))
	require.NoError(t, f.svc.EmergencyStop(ctx))

	m, ok := f.sim.Motor(1)
	require.True(t, ok)
	assert.False(t, m.Torque)
	assert.Equal(t, 0, m.Velocity)
}

func TestCleanupJournal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := &model.CommandRecord{
		OperationType: model.OperationTypeRaw,
		Command:       "PING:1;",
		Status:        model.CommandStatusSuccess,
		CreatedAt:     time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, f.journal.Create(ctx, old))
	require.NoError(t, f.svc.SendCommand(ctx, "ENABLE_TORQUE:1;", 0))

	deleted, err := f.svc.CleanupJournal(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, total, err := f.svc.ListCommands(ctx, &repository.CommandFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
