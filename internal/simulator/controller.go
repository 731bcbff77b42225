// internal/simulator/controller.go
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"robot-service/internal/model"
)

// ErrNotOpen is returned for I/O on a closed simulator
var ErrNotOpen = errors.New("simulator not open")

// Motor is the simulated state of one servo
type Motor struct {
	Position    int  `json:"position"`
	Velocity    int  `json:"velocity"`
	Temperature int  `json:"temperature"`
	Torque      bool `json:"torque"`
	Mode        int  `json:"mode"`
}

// Controller is an in-process robot controller speaking the line protocol.
// It satisfies the transport contract so the router can run against it
// without hardware.
type Controller struct {
	mu           sync.Mutex
	emitMu       sync.Mutex
	motors       map[int]*Motor
	silent       map[int]bool
	muted        map[string]bool
	latency      time.Duration
	banner       bool
	chunkSize    int
	pollInterval time.Duration
	openErr      error
	writeErr     error
	logger       *zap.Logger

	open     bool
	outbound chan []byte
	hangup   chan struct{}
	leftover []byte
	inbuf    []byte
	commands []string
}

// Option configures a Controller
type Option func(*Controller)

// WithMotors adds motors at center position, 30C, torque off
func WithMotors(ids ...int) Option {
	return func(c *Controller) {
		for _, id := range ids {
			c.motors[id] = &Motor{Position: 512, Temperature: 30}
		}
	}
}

// WithSilentMotors makes ids that never answer any query
func WithSilentMotors(ids ...int) Option {
	return func(c *Controller) {
		for _, id := range ids {
			c.silent[id] = true
		}
	}
}

// WithMutedVerbs suppresses replies to the given verbs
func WithMutedVerbs(verbs ...string) Option {
	return func(c *Controller) {
		for _, v := range verbs {
			c.muted[v] = true
		}
	}
}

// WithLatency delays every reply
func WithLatency(d time.Duration) Option {
	return func(c *Controller) { c.latency = d }
}

// WithReadyBanner emits READY right after Open
func WithReadyBanner() Option {
	return func(c *Controller) { c.banner = true }
}

// WithChunkSize splits every reply into chunks of n bytes
func WithChunkSize(n int) Option {
	return func(c *Controller) { c.chunkSize = n }
}

// WithPollInterval sets how long Read waits before returning an empty chunk
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.pollInterval = d }
}

// WithOpenError makes Open fail
func WithOpenError(err error) Option {
	return func(c *Controller) { c.openErr = err }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// New creates a simulator
func New(opts ...Option) *Controller {
	c := &Controller{
		motors:       make(map[int]*Motor),
		silent:       make(map[int]bool),
		muted:        make(map[string]bool),
		pollInterval: 50 * time.Millisecond,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("protocol", "simulator"))
	return c
}

// Open implements the transport contract
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.openErr != nil {
		c.mu.Unlock()
		return c.openErr
	}
	if c.open {
		c.mu.Unlock()
		return nil
	}
	c.open = true
	c.outbound = make(chan []byte, 1024)
	c.hangup = make(chan struct{})
	c.leftover = nil
	c.inbuf = nil
	banner := c.banner
	c.mu.Unlock()

	c.logger.Info("Simulator opened", zap.Int("motors", c.MotorCount()))

	if banner {
		c.reply("READY")
	}
	return nil
}

// Close implements the transport contract
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil
	}
	c.open = false
	select {
	case <-c.hangup:
	default:
		close(c.hangup)
	}
	return nil
}

// IsOpen implements the transport contract
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// GetProtocolType implements the transport contract
func (c *Controller) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeSimulator
}

// Write accepts one or more ;-terminated commands
func (c *Controller) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return ErrNotOpen
	}
	if c.writeErr != nil {
		err := c.writeErr
		c.mu.Unlock()
		return err
	}

	c.inbuf = append(c.inbuf, data...)
	var frames []string
	for {
		idx := strings.IndexByte(string(c.inbuf), ';')
		if idx < 0 {
			break
		}
		frame := strings.TrimSpace(string(c.inbuf[:idx]))
		c.inbuf = c.inbuf[idx+1:]
		if frame != "" {
			frames = append(frames, frame)
			c.commands = append(c.commands, frame)
		}
	}
	c.mu.Unlock()

	for _, frame := range frames {
		if line, ok := c.handle(frame); ok {
			c.reply(line)
		}
	}
	return nil
}

// Read returns pending reply bytes, an empty chunk after the poll interval,
// or io.EOF after Hangup.
func (c *Controller) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil, ErrNotOpen
	}
	if len(c.leftover) > 0 {
		out := c.takeLeftover(maxBytes)
		c.mu.Unlock()
		return out, nil
	}
	outbound, hangup := c.outbound, c.hangup
	c.mu.Unlock()

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	select {
	case chunk := <-outbound:
		c.mu.Lock()
		c.leftover = append(c.leftover, chunk...)
		out := c.takeLeftover(maxBytes)
		c.mu.Unlock()
		return out, nil
	case <-hangup:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return []byte{}, nil
	}
}

func (c *Controller) takeLeftover(maxBytes int) []byte {
	n := len(c.leftover)
	if maxBytes > 0 && n > maxBytes {
		n = maxBytes
	}
	out := make([]byte, n)
	copy(out, c.leftover[:n])
	c.leftover = c.leftover[n:]
	return out
}

// InjectLine queues an unsolicited line as if the controller printed it
func (c *Controller) InjectLine(line string) {
	c.emit([]byte(line + "\n"))
}

// InjectRaw queues raw bytes without framing
func (c *Controller) InjectRaw(data []byte) {
	c.emit(data)
}

// Hangup simulates the controller disappearing; pending reads see io.EOF
func (c *Controller) Hangup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hangup == nil {
		return
	}
	select {
	case <-c.hangup:
	default:
		close(c.hangup)
	}
}

// FailWrites makes every subsequent Write return err; nil restores writes
func (c *Controller) FailWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// Commands returns every command received, without terminators
func (c *Controller) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.commands))
	copy(out, c.commands)
	return out
}

// Motor returns a copy of a motor's state
func (c *Controller) Motor(id int) (Motor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.motors[id]
	if !ok {
		return Motor{}, false
	}
	return *m, true
}

// SetMotor replaces a motor's state, adding it if absent
func (c *Controller) SetMotor(id int, m Motor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := m
	c.motors[id] = &copied
}

// MotorIDs returns the configured motor ids in ascending order
func (c *Controller) MotorIDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int, 0, len(c.motors))
	for id := range c.motors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// MotorCount returns the number of simulated motors
func (c *Controller) MotorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.motors)
}

func (c *Controller) reply(line string) {
	if c.latency <= 0 {
		c.emit([]byte(line + "\n"))
		return
	}
	time.AfterFunc(c.latency, func() {
		c.emit([]byte(line + "\n"))
	})
}

func (c *Controller) emit(data []byte) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	outbound, hangup := c.outbound, c.hangup
	chunkSize := c.chunkSize
	c.mu.Unlock()

	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	for len(data) > 0 {
		n := len(data)
		if chunkSize > 0 && n > chunkSize {
			n = chunkSize
		}
		chunk := make([]byte, n)
		copy(chunk, data[:n])
		data = data[n:]

		select {
		case outbound <- chunk:
		case <-hangup:
			return
		}
	}
}

// handle executes one command and returns the reply line, if any
func (c *Controller) handle(frame string) (string, bool) {
	parts := strings.Split(frame, ":")
	verb := parts[0]

	c.logger.Debug("Simulator received command", zap.String("command", frame))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.muted[verb] {
		return "", false
	}

	args := make([]int, 0, len(parts)-1)
	for _, p := range parts[1:] {
		v, err := strconv.Atoi(p)
		if err != nil {
			return "ERROR:Invalid argument " + p, true
		}
		args = append(args, v)
	}

	arity := map[string]int{
		"PING": 1, "ENABLE_TORQUE": 1, "DISABLE_TORQUE": 1,
		"SET_POSITION": 2, "SET_VELOCITY": 2, "SET_MODE": 2,
		"GET_POSITION": 1, "GET_VELOCITY": 1, "GET_TEMP": 1,
		"EMERGENCY_STOP": 0,
	}
	want, known := arity[verb]
	if !known {
		return "ERROR:Unknown command", true
	}
	if len(args) != want {
		return fmt.Sprintf("ERROR:%s expects %d arguments", verb, want), true
	}

	if verb == "EMERGENCY_STOP" {
		for _, m := range c.motors {
			m.Torque = false
			m.Velocity = 0
		}
		return "OK", true
	}

	id := args[0]
	if c.silent[id] {
		return "", false
	}
	m, ok := c.motors[id]

	if verb == "PING" {
		if ok {
			return "PING_OK", true
		}
		return "PING_FAIL", true
	}
	if !ok {
		// Unknown ids on a real bus simply never answer queries
		if strings.HasPrefix(verb, "GET_") {
			return "", false
		}
		return fmt.Sprintf("ERROR:Motor %d not found", id), true
	}

	switch verb {
	case "ENABLE_TORQUE":
		m.Torque = true
	case "DISABLE_TORQUE":
		m.Torque = false
	case "SET_POSITION":
		if args[1] < 0 || args[1] > 1023 {
			return fmt.Sprintf("ERROR:Position %d out of range", args[1]), true
		}
		m.Position = args[1]
	case "SET_VELOCITY":
		m.Velocity = args[1]
	case "SET_MODE":
		m.Mode = args[1]
	case "GET_POSITION":
		return fmt.Sprintf("POS:%d:%d", id, m.Position), true
	case "GET_VELOCITY":
		return fmt.Sprintf("VEL:%d:%d", id, m.Velocity), true
	case "GET_TEMP":
		return fmt.Sprintf("TEMP:%d:%d", id, m.Temperature), true
	}
	return "OK", true
}
