// Package robot implements the command/response link to a robot controller:
// line framing, correlation of replies to callers, and per-command timeouts.
package robot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"robot-service/internal/model"
	"robot-service/internal/monitor"
	"robot-service/internal/protocol"
)

// Options tunes timeouts and pacing.
type Options struct {
	CommandTimeout time.Duration
	PingTimeout    time.Duration
	QueryTimeout   time.Duration
	ReadyTimeout   time.Duration
	ScanInterval   time.Duration
	BatchInterval  time.Duration
	ReadBufferSize int
	MaxLineLength  int
}

// DefaultOptions returns the controller firmware's expected timings.
func DefaultOptions() Options {
	return Options{
		CommandTimeout: 5 * time.Second,
		PingTimeout:    time.Second,
		QueryTimeout:   2 * time.Second,
		ReadyTimeout:   5 * time.Second,
		ScanInterval:   100 * time.Millisecond,
		BatchInterval:  100 * time.Millisecond,
		ReadBufferSize: 256,
		MaxLineLength:  1024,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = d.CommandTimeout
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = d.PingTimeout
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = d.QueryTimeout
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = d.ReadyTimeout
	}
	if o.ScanInterval < 0 {
		o.ScanInterval = 0
	}
	if o.BatchInterval < 0 {
		o.BatchInterval = 0
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = d.ReadBufferSize
	}
	if o.MaxLineLength <= 0 {
		o.MaxLineLength = d.MaxLineLength
	}
	return o
}

// EventHandler observes connection lifecycle changes. Callbacks run on the
// goroutine that caused the change and must not block.
type EventHandler interface {
	OnConnected(transport model.ConnectionType)
	OnDisconnected(reason string)
}

// ConnectionStatus is a point-in-time view of the router.
type ConnectionStatus struct {
	IsConnected          bool                 `json:"is_connected"`
	PendingResponseCount int                  `json:"pending_response_count"`
	Transport            model.ConnectionType `json:"transport,omitempty"`
	ConnectedAt          *time.Time           `json:"connected_at,omitempty"`
	Ready                bool                 `json:"ready"`
}

// Router owns at most one connection to a controller and routes replies
// to the callers waiting on them. It is safe for concurrent use.
type Router struct {
	factory protocol.Factory
	opts    Options
	logger  *zap.Logger
	metrics *monitor.Metrics

	mu         sync.Mutex
	conn       *connection
	connecting bool
	events     EventHandler
}

type connection struct {
	transport   protocol.Transport
	pending     *pendingTable
	cancel      context.CancelFunc
	done        chan struct{}
	connectedAt time.Time
	ready       atomic.Bool
	closeOnce   sync.Once
}

// NewRouter creates a disconnected router. Every Connect acquires a fresh
// transport from factory.
func NewRouter(factory protocol.Factory, opts Options, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		factory: factory,
		opts:    opts.withDefaults(),
		logger:  logger.With(zap.String("component", "robot_router")),
	}
}

// SetMetrics attaches collectors. Call before Connect.
func (r *Router) SetMetrics(m *monitor.Metrics) {
	r.metrics = m
}

// SetEventHandler registers the lifecycle observer.
func (r *Router) SetEventHandler(h EventHandler) {
	r.mu.Lock()
	r.events = h
	r.mu.Unlock()
}

// Options returns the effective options.
func (r *Router) Options() Options {
	return r.opts
}

// Connect opens a transport and starts the decode loop.
func (r *Router) Connect(ctx context.Context) error {
	r.mu.Lock()
	if r.conn != nil {
		r.mu.Unlock()
		return ErrAlreadyConnected
	}
	if r.connecting {
		r.mu.Unlock()
		return fmt.Errorf("%w: connection attempt in progress", ErrAlreadyConnected)
	}
	r.connecting = true
	r.mu.Unlock()

	transport, err := r.open(ctx)

	r.mu.Lock()
	r.connecting = false
	if err != nil {
		r.mu.Unlock()
		r.logger.Warn("Failed to connect", zap.Error(err))
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c := &connection{
		transport:   transport,
		pending:     newPendingTable(),
		cancel:      cancel,
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
	r.conn = c
	handler := r.events
	r.mu.Unlock()

	go r.readLoop(loopCtx, c)

	r.metrics.SetConnected(true)
	r.logger.Info("Connected to controller",
		zap.String("transport", string(transport.GetProtocolType())),
	)

	if handler != nil {
		handler.OnConnected(transport.GetProtocolType())
	}
	return nil
}

func (r *Router) open(ctx context.Context) (protocol.Transport, error) {
	if r.factory == nil {
		return nil, fmt.Errorf("%w: no transport factory", ErrTransportUnavailable)
	}

	transport, err := r.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}
	if transport == nil {
		return nil, fmt.Errorf("%w: factory returned no transport", ErrTransportUnavailable)
	}

	if err := transport.Open(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}
	return transport, nil
}

// Disconnect tears down the active connection and waits for the decode
// loop to exit. Calling it while disconnected is a no-op.
func (r *Router) Disconnect() error {
	r.mu.Lock()
	c := r.conn
	r.mu.Unlock()

	if c == nil {
		return nil
	}

	r.teardown(c, "disconnect requested")
	<-c.done
	return nil
}

// teardown runs once per connection, from whichever path notices first:
// Disconnect, a fatal read, or a failed write.
func (r *Router) teardown(c *connection, reason string) {
	c.closeOnce.Do(func() {
		r.mu.Lock()
		if r.conn == c {
			r.conn = nil
		}
		handler := r.events
		r.mu.Unlock()

		c.cancel()
		failed := c.pending.failAll(ErrConnectionClosed)

		if err := c.transport.Close(); err != nil {
			r.logger.Warn("Failed to close transport", zap.Error(err))
		}

		r.metrics.SetConnected(false)
		r.metrics.SetPending(0)
		r.logger.Info("Disconnected from controller",
			zap.String("reason", reason),
			zap.Int("failed_requests", failed),
			zap.Duration("uptime", time.Since(c.connectedAt)),
		)

		if handler != nil {
			handler.OnDisconnected(reason)
		}
	})
}

func (r *Router) readLoop(ctx context.Context, c *connection) {
	defer close(c.done)

	decoder := NewLineDecoder(r.opts.MaxLineLength)

	for {
		chunk, err := c.transport.Read(ctx, r.opts.ReadBufferSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			reason := "end of stream"
			if !errors.Is(err, io.EOF) {
				reason = "read error: " + err.Error()
			}
			r.logger.Warn("Decode loop stopped", zap.String("reason", reason))
			r.teardown(c, reason)
			return
		}

		if len(chunk) == 0 {
			continue
		}
		r.metrics.AddBytes(len(chunk))

		for _, line := range decoder.Feed(chunk) {
			r.dispatch(c, line)
		}
		for n := decoder.TakeOverflows(); n > 0; n-- {
			r.logger.Debug("Discarded oversized fragment", zap.Int("max_line_length", r.opts.MaxLineLength))
			r.metrics.LineDropped("overflow")
		}
	}
}

func (r *Router) dispatch(c *connection, line string) {
	r.metrics.LineReceived()

	resp, ok := ParseLine(line)
	if !ok {
		r.logger.Debug("Dropping unrecognized line", zap.String("line", line))
		r.metrics.LineDropped("unrecognized")
		return
	}

	if _, isReady := resp.(ReadyResponse); isReady {
		c.ready.Store(true)
	}

	o := outcome{response: resp}
	if e, isErr := resp.(ErrorResponse); isErr {
		o.err = &ProtocolError{Message: e.Message}
	}

	if !c.pending.resolve(resp.Key(), o) {
		r.logger.Debug("Dropping unmatched line",
			zap.String("line", line),
			zap.String("key", string(resp.Key())),
		)
		r.metrics.LineDropped("unmatched")
		return
	}
	r.metrics.SetPending(c.pending.len())
}

func (r *Router) active() (*connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil, ErrNotConnected
	}
	return r.conn, nil
}

// exchange registers key, writes frame and waits for the matching reply.
// An empty frame only waits.
func (r *Router) exchange(ctx context.Context, key Key, verb, frame string, timeout time.Duration) (resp Response, err error) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveCommand(verb, OutcomeLabel(err), time.Since(start))
	}()

	c, err := r.active()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = r.opts.CommandTimeout
	}

	p, err := c.pending.register(key, timeout)
	if err != nil {
		return nil, err
	}
	r.metrics.SetPending(c.pending.len())

	if frame != "" {
		r.logger.Debug("Sending command", zap.String("frame", frame), zap.String("key", string(key)))

		if werr := c.transport.Write(ctx, []byte(frame)); werr != nil {
			c.pending.remove(p)
			r.metrics.SetPending(c.pending.len())
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.teardown(c, "write failed: "+werr.Error())
			return nil, fmt.Errorf("%w: %w", ErrConnectionClosed, werr)
		}
	}

	return r.await(ctx, c, p, timeout)
}

// await blocks until p resolves, its deadline passes or ctx ends. When the
// timer or ctx wins but the entry was already claimed, the claimed outcome
// is returned so none is lost.
func (r *Router) await(ctx context.Context, c *connection, p *pendingRequest, timeout time.Duration) (Response, error) {
	timer := time.NewTimer(time.Until(p.deadline))
	defer timer.Stop()

	select {
	case o := <-p.result:
		return o.response, o.err
	case <-timer.C:
		if c.pending.remove(p) {
			r.metrics.SetPending(c.pending.len())
			return nil, fmt.Errorf("%w: no %s response within %s", ErrTimeout, p.key, timeout)
		}
	case <-ctx.Done():
		if c.pending.remove(p) {
			r.metrics.SetPending(c.pending.len())
			return nil, ctx.Err()
		}
	}

	o := <-p.result
	return o.response, o.err
}

// SendCommand writes a raw command and waits for OK or ERROR. A missing
// terminator is appended; timeout <= 0 selects the default.
func (r *Router) SendCommand(ctx context.Context, command string, timeout time.Duration) error {
	command = strings.TrimSpace(command)
	if command == "" || command == Terminator {
		return fmt.Errorf("%w: empty command", ErrInvalidArgument)
	}
	if !strings.HasSuffix(command, Terminator) {
		command += Terminator
	}

	_, err := r.exchange(ctx, KeyCommand, verbOf(command), command, timeout)
	return err
}

// IsConnected reports whether a connection is open.
func (r *Router) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// Status returns the connection state and number of pending requests.
func (r *Router) Status() ConnectionStatus {
	c, err := r.active()
	if err != nil {
		return ConnectionStatus{}
	}

	connectedAt := c.connectedAt
	return ConnectionStatus{
		IsConnected:          true,
		PendingResponseCount: c.pending.len(),
		Transport:            c.transport.GetProtocolType(),
		ConnectedAt:          &connectedAt,
		Ready:                c.ready.Load(),
	}
}
