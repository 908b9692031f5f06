// Package dispatch fans mission events out to the registered sinks.
// The controller publishes one event per lifecycle transition and per
// tick; every sink (database, file export, telemetry, live stream)
// subscribes independently so a slow or failing sink never stalls the
// simulation loop.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Topics published by the mission controller.
const (
	TopicMissionStart = "mission.start"
	TopicTick         = "mission.tick"
	TopicAnomaly      = "anomaly.detected"
	TopicMissionEnd   = "mission.end"
)

// Event is one published occurrence. Payload is topic-specific: a
// *core.Mission for lifecycle topics, a core.TickRecord for ticks, a
// core.Anomaly for detections.
type Event struct {
	Topic     string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc consumes one event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a subscription.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the subscriber async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered subscriber block when its queue is full
// instead of dropping the event.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging around the subscriber.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type subscriber struct {
	name    string
	handler HandlerFunc
}

// Bus routes events to every subscriber of their topic.
type Bus struct {
	logger Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu          sync.RWMutex
	subscribers map[string][]subscriber
	buffers     map[string]chan Event
}

// New creates a Bus with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Bus, error) {
	b := &Bus{
		logger:      logger,
		subscribers: make(map[string][]subscriber),
		buffers:     make(map[string]chan Event),
	}

	m := meter()

	var err error

	b.queueSize, err = m.Int64ObservableGauge(
		"dispatch.queue.size",
		metric.WithDescription("Current number of events queued per subscriber"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			b.mu.RLock()
			defer b.mu.RUnlock()
			for name, buf := range b.buffers {
				o.ObserveInt64(b.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("subscriber", name)))
			}
			return nil
		},
		b.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	b.processed, err = m.Int64Counter(
		"dispatch.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	b.dropped, err = m.Int64Counter(
		"dispatch.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return b, nil
}

// Subscribe registers a named handler for a topic. The name identifies
// the subscriber in logs and metrics and must be unique per topic.
func (b *Bus) Subscribe(topic, name string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.bufferSize > 0 {
		handler = b.withBuffer(topic, name, cfg.bufferSize, cfg.blocking, handler)
	}

	if cfg.logged {
		handler = b.withLogging(topic, name, handler)
	}

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], subscriber{name: name, handler: handler})
	b.mu.Unlock()
}

// Publish delivers the event to every subscriber of its topic, in
// subscription order. Errors do not short-circuit delivery; the joined
// error of all failing subscribers is returned.
func (b *Bus) Publish(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := b.subscribers[e.Topic]
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := s.handler(e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// HasSubscribers returns true if at least one subscriber is registered
// for the topic.
func (b *Bus) HasSubscribers(topic string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic]) > 0
}

// Close drains all buffered subscribers. Publish must not be called
// after Close.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, buf := range b.buffers {
		close(buf)
	}
	b.buffers = make(map[string]chan Event)
}

func (b *Bus) withBuffer(topic, name string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)
	key := topic + "/" + name

	b.mu.Lock()
	b.buffers[key] = buffer
	b.mu.Unlock()

	subAttr := attribute.String("subscriber", key)

	go func() {
		for e := range buffer {
			if err := h(e); err != nil && b.logger != nil {
				b.logger.Error("buffered subscriber failed", "subscriber", key, "error", err)
			}
			b.processed.Add(context.Background(), 1, metric.WithAttributes(subAttr))
		}
	}()

	if blocking {
		return func(e Event) error {
			buffer <- e
			return nil
		}
	}

	return func(e Event) error {
		select {
		case buffer <- e:
			return nil
		default:
			b.dropped.Add(context.Background(), 1, metric.WithAttributes(subAttr))
			return fmt.Errorf("queue full: %s", key)
		}
	}
}

func (b *Bus) withLogging(topic, name string, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		b.logger.Debug("delivering event", "topic", topic, "subscriber", name)

		err := h(e)

		if err != nil {
			b.logger.Error("delivery failed", "topic", topic, "subscriber", name, "duration", time.Since(start), "error", err)
		} else {
			b.logger.Debug("delivery complete", "topic", topic, "subscriber", name, "duration", time.Since(start))
		}

		return err
	}
}
