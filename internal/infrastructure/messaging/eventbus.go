// Package messaging implements the event buses that carry committed ledger
// events to downstream consumers. An in-memory bus serves single-instance
// deployments and tests; a Redis Pub/Sub bus fans events out across
// instances.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
	"github.com/academy-hub/academy-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrBusClosed is returned when publishing or subscribing on a closed bus.
	ErrBusClosed = errors.New("messaging: event bus is closed")

	// ErrNilEvent is returned when a nil event is published.
	ErrNilEvent = errors.New("messaging: event cannot be nil")

	// ErrNilHandler is returned when a nil handler is subscribed.
	ErrNilHandler = errors.New("messaging: handler cannot be nil")
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// BusConfig configures an InMemoryBus.
type BusConfig struct {
	// Async dispatches handlers on a worker pool instead of inline.
	Async bool

	// Workers caps concurrent handler executions in async mode.
	Workers int

	Logger *logger.Logger
}

// DefaultBusConfig returns the configuration used by the server binary.
func DefaultBusConfig() BusConfig {
	return BusConfig{Async: true, Workers: 8}
}

// InMemoryBus implements shared.EventBus for a single process. Handlers
// never block publishers in async mode; a failing handler is logged and
// does not affect the command that produced the event.
type InMemoryBus struct {
	mu       sync.RWMutex
	byType   map[shared.EventType][]shared.EventHandler
	catchAll []shared.EventHandler
	async    bool
	slots    chan struct{}
	log      *logger.Logger
	stats    *BusStats
	closed   bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewInMemoryBus creates an in-memory event bus.
func NewInMemoryBus(cfg BusConfig) *InMemoryBus {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	return &InMemoryBus{
		byType: make(map[shared.EventType][]shared.EventHandler),
		async:  cfg.Async,
		slots:  make(chan struct{}, cfg.Workers),
		log:    cfg.Logger.With(logger.Component("eventbus")),
		stats:  newBusStats(),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a handler for one event type.
func (b *InMemoryBus) Subscribe(t shared.EventType, h shared.EventHandler) error {
	if h == nil {
		return ErrNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.byType[t] = append(b.byType[t], h)
	return nil
}

// SubscribeAll registers a handler for every event type.
func (b *InMemoryBus) SubscribeAll(h shared.EventHandler) error {
	if h == nil {
		return ErrNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.catchAll = append(b.catchAll, h)
	return nil
}

// Publish delivers the event to all matching handlers.
func (b *InMemoryBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	handlers := make([]shared.EventHandler, 0, len(b.byType[event.EventType()])+len(b.catchAll))
	handlers = append(handlers, b.byType[event.EventType()]...)
	handlers = append(handlers, b.catchAll...)
	b.mu.RUnlock()

	b.stats.recordPublish(event.EventType())
	if len(handlers) == 0 {
		return nil
	}

	for _, h := range handlers {
		if b.async {
			b.dispatch(event, h)
		} else if err := b.run(event, h); err != nil {
			b.log.Error("event handler failed",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err),
			)
		}
	}
	return nil
}

func (b *InMemoryBus) dispatch(event shared.Event, h shared.EventHandler) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		select {
		case b.slots <- struct{}{}:
			defer func() { <-b.slots }()
		case <-b.done:
			return
		}

		if err := b.run(event, h); err != nil {
			b.log.Error("event handler failed",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err),
			)
		}
	}()
}

func (b *InMemoryBus) run(event shared.Event, h shared.EventHandler) error {
	start := time.Now()
	err := h(event)
	b.stats.recordHandler(time.Since(start), err == nil)
	return err
}

// Close stops the bus and waits for in-flight handlers.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// Stats returns the bus counters.
func (b *InMemoryBus) Stats() *BusStats {
	return b.stats
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// DefaultChannel is the Pub/Sub channel ledger events travel on.
const DefaultChannel = "academy-ledger:events"

// RedisBus publishes events to Redis Pub/Sub and mirrors them to a local
// in-memory bus, so a subscribing instance sees both its own events and
// those published by its peers.
type RedisBus struct {
	client     *redis.Client
	local      *InMemoryBus
	channel    string
	instanceID string
	log        *logger.Logger
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	closed     bool
}

// RedisBusConfig configures a RedisBus.
type RedisBusConfig struct {
	Client  *redis.Client
	Channel string
	Local   BusConfig
	Logger  *logger.Logger
}

// NewRedisBus creates a Redis-backed event bus and starts its subscriber.
func NewRedisBus(cfg RedisBusConfig) (*RedisBus, error) {
	if cfg.Client == nil {
		return nil, errors.New("messaging: redis client is required")
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	cfg.Local.Logger = cfg.Logger

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisBus{
		client:     cfg.Client,
		local:      NewInMemoryBus(cfg.Local),
		channel:    cfg.Channel,
		instanceID: uuid.NewString(),
		log:        cfg.Logger.With(logger.Component("eventbus")),
		cancel:     cancel,
	}

	sub := cfg.Client.Subscribe(ctx, cfg.Channel)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("messaging: subscribe to %s: %w", cfg.Channel, err)
	}

	bus.wg.Add(1)
	go bus.receive(ctx, sub)
	return bus, nil
}

// Subscribe registers a handler for one event type.
func (b *RedisBus) Subscribe(t shared.EventType, h shared.EventHandler) error {
	return b.local.Subscribe(t, h)
}

// SubscribeAll registers a handler for every event type.
func (b *RedisBus) SubscribeAll(h shared.EventHandler) error {
	return b.local.SubscribeAll(h)
}

// Publish sends the event to Redis and to local handlers. A Redis outage
// degrades to local-only delivery rather than failing the command.
func (b *RedisBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.mu.Unlock()

	env := wireEnvelope{
		ID:          uuid.NewString(),
		Instance:    b.instanceID,
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("messaging: marshal event: %w", err)
	}

	if err := b.client.Publish(context.Background(), b.channel, data).Err(); err != nil {
		b.log.Error("redis publish failed, delivering locally only",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}
	return b.local.Publish(event)
}

func (b *RedisBus) receive(ctx context.Context, sub *redis.PubSub) {
	defer b.wg.Done()
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handleMessage(msg.Payload)
		}
	}
}

func (b *RedisBus) handleMessage(payload string) {
	var env wireEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.log.Error("malformed event on channel", logger.Err(err))
		return
	}
	// Own events were already delivered locally at publish time.
	if env.Instance == b.instanceID {
		return
	}
	if err := b.local.Publish(remoteEvent{env: env}); err != nil {
		b.log.Error("remote event delivery failed",
			logger.String("event_type", string(env.Type)),
			logger.Err(err),
		)
	}
}

// Close stops the subscriber and drains local handlers.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	return b.local.Close()
}

// Stats returns the local bus counters.
func (b *RedisBus) Stats() *BusStats {
	return b.local.Stats()
}

// wireEnvelope is the Pub/Sub serialization of an event.
type wireEnvelope struct {
	ID          string                 `json:"id"`
	Instance    string                 `json:"instance"`
	Type        shared.EventType       `json:"type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// remoteEvent adapts a received envelope back into a shared.Event.
type remoteEvent struct {
	env wireEnvelope
}

func (e remoteEvent) EventType() shared.EventType     { return e.env.Type }
func (e remoteEvent) AggregateID() string             { return e.env.AggregateID }
func (e remoteEvent) OccurredAt() time.Time           { return e.env.OccurredAt }
func (e remoteEvent) Payload() map[string]interface{} { return e.env.Payload }

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// BusStats tracks publish and handler counters.
type BusStats struct {
	mu         sync.Mutex
	published  map[shared.EventType]int64
	handlerOK  int64
	handlerErr int64
	totalTime  time.Duration
}

func newBusStats() *BusStats {
	return &BusStats{published: make(map[shared.EventType]int64)}
}

func (s *BusStats) recordPublish(t shared.EventType) {
	s.mu.Lock()
	s.published[t]++
	s.mu.Unlock()
}

func (s *BusStats) recordHandler(d time.Duration, ok bool) {
	s.mu.Lock()
	if ok {
		s.handlerOK++
	} else {
		s.handlerErr++
	}
	s.totalTime += d
	s.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the counters.
func (s *BusStats) Snapshot() BusStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var published int64
	for _, n := range s.published {
		published += n
	}
	execs := s.handlerOK + s.handlerErr
	var avg time.Duration
	if execs > 0 {
		avg = s.totalTime / time.Duration(execs)
	}
	return BusStatsSnapshot{
		Published:       published,
		HandlerExecs:    execs,
		HandlerFailures: s.handlerErr,
		AverageDuration: avg,
	}
}

// BusStatsSnapshot is a point-in-time view of bus activity.
type BusStatsSnapshot struct {
	Published       int64
	HandlerExecs    int64
	HandlerFailures int64
	AverageDuration time.Duration
}
