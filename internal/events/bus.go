package events

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/williamstus/AAR-Reporting-sub000/internal/types"
)

// Default bus tuning values, overridable via options.
const (
	DefaultQueueCapacity  = 256
	DefaultShardCount     = 4
	DefaultPublishTimeout = 2 * time.Second
)

// Handler processes a delivered event. A non-nil error is recorded through
// the bus error handler and metrics but never reaches the publisher.
type Handler func(ctx context.Context, event Event) error

// ErrorHandler is called when the bus encounters delivery problems such as
// handler errors, handler panics, or dropped events. The context map
// carries diagnostic details about where the problem occurred.
type ErrorHandler func(err error, context map[string]interface{})

// MetricsRecorder receives bus activity for monitoring integration.
// Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	RecordEventPublished(eventType EventType)
	RecordEventDropped(eventType EventType)
	RecordHandlerError(eventType EventType)
	RecordHandlerPanic(eventType EventType)
	RecordSubscriberAdded()
	RecordSubscriberRemoved()
}

// EventBus is the publishing and subscription surface of the bus.
// Producers depend on this interface rather than the concrete Bus.
type EventBus interface {
	// Subscribe registers a handler for an event type (EventWildcard for
	// all types). Re-subscribing an existing handlerID replaces it.
	Subscribe(eventType EventType, handlerID string, priority int, handler Handler) error

	// SubscribeFiltered registers a handler that only sees events
	// matching the filter. Typically paired with EventWildcard to
	// observe a set of event types through one registration.
	SubscribeFiltered(eventType EventType, handlerID string, priority int, filter Filter, handler Handler) error

	// Unsubscribe removes a handler registration. Unknown registrations
	// are a no-op returning false.
	Unsubscribe(eventType EventType, handlerID string) bool

	// Publish enqueues an event for asynchronous delivery, blocking up to
	// the publish timeout when the queue is full.
	Publish(ctx context.Context, event Event) error

	// Close stops intake and drains queued events up to timeout.
	Close(timeout time.Duration) error
}

// noopErrorHandler discards errors when no handler is configured.
func noopErrorHandler(err error, context map[string]interface{}) {}

// noopMetricsRecorder discards metrics when no recorder is configured.
type noopMetricsRecorder struct{}

func (noopMetricsRecorder) RecordEventPublished(EventType) {}
func (noopMetricsRecorder) RecordEventDropped(EventType)   {}
func (noopMetricsRecorder) RecordHandlerError(EventType)   {}
func (noopMetricsRecorder) RecordHandlerPanic(EventType)   {}
func (noopMetricsRecorder) RecordSubscriberAdded()         {}
func (noopMetricsRecorder) RecordSubscriberRemoved()       {}

type busOptions struct {
	queueCapacity  int
	shardCount     int
	publishTimeout time.Duration
	errorHandler   ErrorHandler
	metrics        MetricsRecorder
	logger         *slog.Logger
}

// BusOption configures a Bus at construction time.
type BusOption func(*busOptions)

// WithQueueCapacity sets the per-shard queue capacity.
func WithQueueCapacity(n int) BusOption {
	return func(o *busOptions) {
		if n > 0 {
			o.queueCapacity = n
		}
	}
}

// WithShards sets the number of delivery shards. Each shard owns one
// worker goroutine; events from one source always land on the same shard.
func WithShards(n int) BusOption {
	return func(o *busOptions) {
		if n > 0 {
			o.shardCount = n
		}
	}
}

// WithPublishTimeout sets how long Publish blocks on a full queue before
// dropping the event and returning a BUS_QUEUE_FULL error.
func WithPublishTimeout(d time.Duration) BusOption {
	return func(o *busOptions) {
		if d > 0 {
			o.publishTimeout = d
		}
	}
}

// WithErrorHandler sets the callback invoked on delivery problems.
func WithErrorHandler(h ErrorHandler) BusOption {
	return func(o *busOptions) {
		if h != nil {
			o.errorHandler = h
		}
	}
}

// WithMetrics sets the metrics recorder for bus activity.
func WithMetrics(m MetricsRecorder) BusOption {
	return func(o *busOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithLogger sets the structured logger used by the bus.
func WithLogger(l *slog.Logger) BusOption {
	return func(o *busOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// subscription is one registered handler for one event type.
type subscription struct {
	id       string
	priority int
	seq      uint64
	handler  Handler
}

// Bus is the default asynchronous event bus implementation.
//
// Queued events are sharded by Source so that each publisher's events are
// delivered in publish order by a single worker, while different
// publishers proceed in parallel. Handlers for an event run sequentially,
// ordered by ascending priority and then registration order.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]*subscription
	seq  uint64

	shards  []chan Event
	workers sync.WaitGroup

	closed  atomic.Bool
	stopCh  chan struct{}
	baseCtx context.Context
	cancel  context.CancelFunc

	opts busOptions
}

// Compile-time check that Bus implements EventBus.
var _ EventBus = (*Bus)(nil)

// NewBus creates an event bus and starts its delivery workers.
func NewBus(opts ...BusOption) *Bus {
	options := busOptions{
		queueCapacity:  DefaultQueueCapacity,
		shardCount:     DefaultShardCount,
		publishTimeout: DefaultPublishTimeout,
		errorHandler:   noopErrorHandler,
		metrics:        noopMetricsRecorder{},
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		subs:    make(map[EventType][]*subscription),
		shards:  make([]chan Event, options.shardCount),
		stopCh:  make(chan struct{}),
		baseCtx: ctx,
		cancel:  cancel,
		opts:    options,
	}

	for i := range b.shards {
		b.shards[i] = make(chan Event, options.queueCapacity)
		b.workers.Add(1)
		go b.worker(b.shards[i])
	}

	return b
}

// Subscribe registers a handler for an event type. Use EventWildcard to
// receive every event. Handlers run in ascending priority order; ties
// break by registration order.
//
// Subscribing again with the same handlerID for the same eventType
// replaces the handler and priority while keeping the original
// registration position, so re-subscription is idempotent. In-flight
// deliveries may still run the handler they snapshotted.
func (b *Bus) Subscribe(eventType EventType, handlerID string, priority int, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if handlerID == "" {
		return fmt.Errorf("handler id cannot be empty")
	}
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if b.closed.Load() {
		return types.NewError(types.BUS_CLOSED, "event bus is closed")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[eventType]
	for i, sub := range list {
		if sub.id == handlerID {
			// Delivery snapshots subscription pointers and invokes them
			// after releasing the lock, so the existing entry must not be
			// mutated; swap in a fresh one keeping the original position.
			list[i] = &subscription{
				id:       handlerID,
				priority: priority,
				seq:      sub.seq,
				handler:  handler,
			}
			sortSubscriptions(list)
			b.opts.logger.Debug("event handler replaced",
				"event_type", eventType, "handler_id", handlerID, "priority", priority)
			return nil
		}
	}

	b.seq++
	list = append(list, &subscription{
		id:       handlerID,
		priority: priority,
		seq:      b.seq,
		handler:  handler,
	})
	sortSubscriptions(list)
	b.subs[eventType] = list

	b.opts.metrics.RecordSubscriberAdded()
	b.opts.logger.Debug("event handler subscribed",
		"event_type", eventType, "handler_id", handlerID, "priority", priority)
	return nil
}

// SubscribeFiltered registers a handler that runs only for events the
// filter matches; everything else is dropped before the handler sees it.
// Subscribe semantics otherwise apply, including idempotent replacement
// by handlerID.
func (b *Bus) SubscribeFiltered(eventType EventType, handlerID string, priority int, filter Filter, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	return b.Subscribe(eventType, handlerID, priority, func(ctx context.Context, event Event) error {
		if !filter.Matches(event) {
			return nil
		}
		return handler(ctx, event)
	})
}

// Unsubscribe removes a handler registration. Returns false when no
// matching registration exists.
func (b *Bus) Unsubscribe(eventType EventType, handlerID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[eventType]
	for i, sub := range list {
		if sub.id == handlerID {
			b.subs[eventType] = append(list[:i], list[i+1:]...)
			if len(b.subs[eventType]) == 0 {
				delete(b.subs, eventType)
			}
			b.opts.metrics.RecordSubscriberRemoved()
			b.opts.logger.Debug("event handler unsubscribed",
				"event_type", eventType, "handler_id", handlerID)
			return true
		}
	}
	return false
}

// Publish enqueues an event for asynchronous delivery. When the target
// shard queue is full, Publish blocks up to the publish timeout and then
// fails with a retryable BUS_QUEUE_FULL error. Publishing on a closed bus
// fails with BUS_CLOSED.
//
// A zero Timestamp is stamped with the current UTC time.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if b.closed.Load() {
		return types.NewError(types.BUS_CLOSED, "event bus is closed")
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	shard := b.shards[b.shardFor(event.Source)]

	// Fast path: room in the queue.
	select {
	case shard <- event:
		b.opts.metrics.RecordEventPublished(event.Type)
		return nil
	default:
	}

	timer := time.NewTimer(b.opts.publishTimeout)
	defer timer.Stop()

	select {
	case shard <- event:
		b.opts.metrics.RecordEventPublished(event.Type)
		return nil
	case <-b.stopCh:
		return types.NewError(types.BUS_CLOSED, "event bus is closed")
	case <-ctx.Done():
		b.opts.metrics.RecordEventDropped(event.Type)
		return ctx.Err()
	case <-timer.C:
		b.opts.metrics.RecordEventDropped(event.Type)
		err := types.NewRetryableError(types.BUS_QUEUE_FULL,
			fmt.Sprintf("publish of %s timed out after %s", event.Type, b.opts.publishTimeout))
		b.opts.errorHandler(err, map[string]interface{}{
			"event_type": string(event.Type),
			"source":     event.Source,
		})
		b.opts.logger.Warn("event dropped, queue full",
			"event_type", event.Type, "source", event.Source,
			"timeout", b.opts.publishTimeout)
		return err
	}
}

// Close stops intake, drains queued events for up to timeout, and releases
// the delivery workers. A non-positive timeout drains without a deadline.
// Close is idempotent; subsequent calls return nil immediately.
func (b *Bus) Close(timeout time.Duration) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(b.stopCh)

	done := make(chan struct{})
	go func() {
		b.workers.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
		b.cancel()
		b.opts.logger.Debug("event bus closed")
		return nil
	}

	select {
	case <-done:
		b.cancel()
		b.opts.logger.Debug("event bus closed")
		return nil
	case <-time.After(timeout):
		// Signal in-flight handlers to wind down; workers exit once the
		// current handler returns and their queue is empty.
		b.cancel()
		b.opts.logger.Warn("event bus drain exceeded timeout", "timeout", timeout)
		return types.NewError(types.SHUTDOWN_TIMEOUT,
			fmt.Sprintf("event bus drain exceeded %s", timeout))
	}
}

// shardFor maps a source string onto a shard index.
func (b *Bus) shardFor(source string) int {
	h := fnv.New32a()
	h.Write([]byte(source))
	return int(h.Sum32() % uint32(len(b.shards)))
}

// worker delivers events for one shard until the bus closes, then drains
// whatever remains in its queue before exiting.
func (b *Bus) worker(ch chan Event) {
	defer b.workers.Done()
	for {
		select {
		case evt := <-ch:
			b.deliver(evt)
		case <-b.stopCh:
			for {
				select {
				case evt := <-ch:
					b.deliver(evt)
				default:
					return
				}
			}
		}
	}
}

// deliver invokes every matching handler for an event in subscription
// order: type-specific and wildcard handlers merged by ascending priority,
// ties broken by registration order.
func (b *Bus) deliver(event Event) {
	b.mu.RLock()
	ordered := mergeOrdered(b.subs[event.Type], b.subs[EventWildcard])
	b.mu.RUnlock()

	for _, sub := range ordered {
		b.invoke(sub, event)
	}
}

// invoke runs one handler, isolating errors and panics so that later
// handlers still run and the shard worker survives.
func (b *Bus) invoke(sub *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.opts.metrics.RecordHandlerPanic(event.Type)
			b.opts.errorHandler(fmt.Errorf("handler %s panicked: %v", sub.id, r),
				map[string]interface{}{
					"handler_id": sub.id,
					"event_type": string(event.Type),
				})
			b.opts.logger.Error("event handler panicked",
				"handler_id", sub.id, "event_type", event.Type, "panic", r)
			if event.Type != EventHandlerPanic {
				b.publishDiagnostic(sub.id, event.Type, r)
			}
		}
	}()

	if err := sub.handler(b.baseCtx, event); err != nil {
		b.opts.metrics.RecordHandlerError(event.Type)
		b.opts.errorHandler(err, map[string]interface{}{
			"handler_id": sub.id,
			"event_type": string(event.Type),
		})
		b.opts.logger.Warn("event handler failed",
			"handler_id", sub.id, "event_type", event.Type, "error", err)
	}
}

// publishDiagnostic emits a handler.panic event without ever blocking the
// delivery worker. The diagnostic is dropped when its shard queue is full.
func (b *Bus) publishDiagnostic(handlerID string, eventType EventType, value any) {
	evt := Event{
		Type:      EventHandlerPanic,
		Timestamp: time.Now().UTC(),
		Source:    "events.bus",
		Payload: HandlerPanicPayload{
			HandlerID: handlerID,
			EventType: eventType,
			Value:     fmt.Sprint(value),
			Stack:     string(debug.Stack()),
		},
	}

	select {
	case b.shards[b.shardFor(evt.Source)] <- evt:
		b.opts.metrics.RecordEventPublished(EventHandlerPanic)
	default:
		b.opts.metrics.RecordEventDropped(EventHandlerPanic)
		b.opts.logger.Warn("dropped handler.panic diagnostic, queue full",
			"handler_id", handlerID, "event_type", eventType)
	}
}

// sortSubscriptions orders a subscription slice in place by ascending
// priority, then registration order.
func sortSubscriptions(list []*subscription) {
	sort.Slice(list, func(i, j int) bool {
		return less(list[i], list[j])
	})
}

// mergeOrdered merges two already-sorted subscription slices into a new
// slice preserving the (priority, registration order) invariant.
func mergeOrdered(a, b []*subscription) []*subscription {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	merged := make([]*subscription, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if less(a[i], b[j]) {
			merged = append(merged, a[i])
			i++
		} else {
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	return merged
}

func less(x, y *subscription) bool {
	if x.priority != y.priority {
		return x.priority < y.priority
	}
	return x.seq < y.seq
}
