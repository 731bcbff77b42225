// internal/handler/event_bus.go
package handler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"robot-service/internal/model"
)

// EventBus fans robot events out to in-process subscribers. It implements
// service.EventSink.
type EventBus struct {
	subscribers map[model.EventType][]chan *model.RobotEvent
	all         []chan *model.RobotEvent
	events      chan *model.RobotEvent
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		subscribers: make(map[model.EventType][]chan *model.RobotEvent),
		events:      make(chan *model.RobotEvent, 1000),
		logger:      logger.With(zap.String("component", "event_bus")),
	}
}

// Start distributes events until ctx ends, then closes every subscription
func (eb *EventBus) Start(ctx context.Context) {
	defer eb.closeSubscribers()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eb.events:
			eb.distributeEvent(event)
		}
	}
}

// Publish queues an event; a full bus drops it
func (eb *EventBus) Publish(ctx context.Context, event *model.RobotEvent) {
	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.EventType)),
		)
	}
}

// Subscribe returns a channel receiving the given event types, or every
// event when none are given
func (eb *EventBus) Subscribe(eventTypes ...model.EventType) <-chan *model.RobotEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan *model.RobotEvent, 100)
	if len(eventTypes) == 0 {
		eb.all = append(eb.all, subscriber)
		return subscriber
	}
	for _, t := range eventTypes {
		eb.subscribers[t] = append(eb.subscribers[t], subscriber)
	}
	return subscriber
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event *model.RobotEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	deliver := func(subscriber chan *model.RobotEvent) {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
	for _, subscriber := range eb.subscribers[event.EventType] {
		deliver(subscriber)
	}
	for _, subscriber := range eb.all {
		deliver(subscriber)
	}
}

func (eb *EventBus) closeSubscribers() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	closed := make(map[chan *model.RobotEvent]bool)
	closeOnce := func(ch chan *model.RobotEvent) {
		if !closed[ch] {
			closed[ch] = true
			close(ch)
		}
	}
	for _, subs := range eb.subscribers {
		for _, ch := range subs {
			closeOnce(ch)
		}
	}
	for _, ch := range eb.all {
		closeOnce(ch)
	}
	eb.subscribers = make(map[model.EventType][]chan *model.RobotEvent)
	eb.all = nil
}
