// internal/telemetry/redis_publisher.go
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"robot-service/internal/config"
	"robot-service/internal/model"
)

const (
	queueSize   = 1000
	sendTimeout = 2 * time.Second
)

// RedisPublisher fans robot events out to a Redis channel and keeps a
// capped history list. Events are sent from a single worker so Publish
// never blocks the caller.
type RedisPublisher struct {
	client       *redis.Client
	channel      string
	historyKey   string
	historyLimit int64
	logger       *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan *model.RobotEvent
	done   chan struct{}
}

// NewRedisPublisher connects to Redis and starts the send worker
func NewRedisPublisher(ctx context.Context, cfg *config.TelemetryConfig, logger *zap.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	p := newRedisPublisher(client, cfg, logger)
	logger.Info("Telemetry publisher connected",
		zap.String("addr", cfg.RedisAddr),
		zap.String("channel", cfg.Channel),
	)
	return p, nil
}

func newRedisPublisher(client *redis.Client, cfg *config.TelemetryConfig, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &RedisPublisher{
		client:       client,
		channel:      cfg.Channel,
		historyKey:   cfg.HistoryKey,
		historyLimit: cfg.HistoryLimit,
		logger:       logger.With(zap.String("component", "telemetry")),
		queue:        make(chan *model.RobotEvent, queueSize),
		done:         make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues event for delivery. When the queue is full the event is dropped.
func (p *RedisPublisher) Publish(ctx context.Context, event *model.RobotEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	select {
	case p.queue <- event:
	default:
		p.logger.Warn("Telemetry queue full, dropping event",
			zap.String("event_type", string(event.EventType)))
	}
}

func (p *RedisPublisher) run() {
	defer close(p.done)
	for event := range p.queue {
		if err := p.send(event); err != nil {
			p.logger.Warn("Failed to publish telemetry event",
				zap.String("event_type", string(event.EventType)),
				zap.Error(err),
			)
		}
	}
}

func (p *RedisPublisher) send(event *model.RobotEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, p.channel, payload)
	if p.historyKey != "" {
		pipe.LPush(ctx, p.historyKey, payload)
		if p.historyLimit > 0 {
			pipe.LTrim(ctx, p.historyKey, 0, p.historyLimit-1)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// History returns up to limit recent events, newest first
func (p *RedisPublisher) History(ctx context.Context, limit int64) ([]*model.RobotEvent, error) {
	if p.historyKey == "" {
		return []*model.RobotEvent{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	raw, err := p.client.LRange(ctx, p.historyKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event history: %w", err)
	}

	events := make([]*model.RobotEvent, 0, len(raw))
	for _, item := range raw {
		var event model.RobotEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			p.logger.Debug("Skipping malformed history entry", zap.Error(err))
			continue
		}
		events = append(events, &event)
	}
	return events, nil
}

// HealthCheck pings Redis
func (p *RedisPublisher) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// GetStats returns connection pool statistics
func (p *RedisPublisher) GetStats() map[string]interface{} {
	stats := p.client.PoolStats()
	return map[string]interface{}{
		"queued":      len(p.queue),
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
	}
}

// Close drains queued events and closes the client
func (p *RedisPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.client.Close()
}
