package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/williamstus/AAR-Reporting-sub000/internal/types"
)

// waitSignal fails the test if ch does not fire within two seconds.
func waitSignal(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal(msg)
	}
}

// countingMetrics records bus metrics with atomic counters.
type countingMetrics struct {
	published int64
	dropped   int64
	errors    int64
	panics    int64
	added     int64
	removed   int64
}

func (m *countingMetrics) RecordEventPublished(EventType) { atomic.AddInt64(&m.published, 1) }
func (m *countingMetrics) RecordEventDropped(EventType)   { atomic.AddInt64(&m.dropped, 1) }
func (m *countingMetrics) RecordHandlerError(EventType)   { atomic.AddInt64(&m.errors, 1) }
func (m *countingMetrics) RecordHandlerPanic(EventType)   { atomic.AddInt64(&m.panics, 1) }
func (m *countingMetrics) RecordSubscriberAdded()         { atomic.AddInt64(&m.added, 1) }
func (m *countingMetrics) RecordSubscriberRemoved()       { atomic.AddInt64(&m.removed, 1) }

func TestBus_PublishAndSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close(time.Second)

	received := make(chan Event, 1)
	err := bus.Subscribe(EventTaskCompleted, "test-handler", 0,
		func(ctx context.Context, evt Event) error {
			received <- evt
			return nil
		})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	taskID := types.NewID()
	err = bus.Publish(context.Background(), Event{
		Type:   EventTaskCompleted,
		Source: "test",
		TaskID: taskID,
		Payload: TaskCompletedPayload{
			TaskID: taskID,
			Domain: "latency",
		},
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case evt := <-received:
		if evt.Type != EventTaskCompleted {
			t.Errorf("received type = %v, want %v", evt.Type, EventTaskCompleted)
		}
		if evt.TaskID != taskID {
			t.Errorf("received task id = %v, want %v", evt.TaskID, taskID)
		}
		if evt.Timestamp.IsZero() {
			t.Error("bus should stamp a zero timestamp")
		}
		payload, ok := evt.Payload.(TaskCompletedPayload)
		if !ok {
			t.Fatalf("payload type = %T, want TaskCompletedPayload", evt.Payload)
		}
		if payload.Domain != "latency" {
			t.Errorf("payload domain = %q, want %q", payload.Domain, "latency")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestBus_HandlerPriorityOrder(t *testing.T) {
	bus := NewBus()
	defer bus.Close(time.Second)

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})

	record := func(name string) Handler {
		return func(ctx context.Context, evt Event) error {
			mu.Lock()
			order = append(order, name)
			finished := len(order) == 4
			mu.Unlock()
			if finished {
				close(done)
			}
			return nil
		}
	}

	// Registered out of priority order on purpose.
	bus.Subscribe(EventTaskStarted, "third", 20, record("third"))
	bus.Subscribe(EventTaskStarted, "first", 5, record("first"))
	bus.Subscribe(EventTaskStarted, "fourth", 20, record("fourth"))
	bus.Subscribe(EventTaskStarted, "second", 10, record("second"))

	bus.Publish(context.Background(), Event{Type: EventTaskStarted, Source: "test"})
	waitSignal(t, done, "timed out waiting for handlers")

	mu.Lock()
	defer mu.Unlock()
	want := []string{"first", "second", "third", "fourth"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("invocation order = %v, want %v", order, want)
		}
	}
}

func TestBus_WildcardMergesWithTypeHandlers(t *testing.T) {
	bus := NewBus()
	defer bus.Close(time.Second)

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})

	record := func(name string) Handler {
		return func(ctx context.Context, evt Event) error {
			mu.Lock()
			order = append(order, name)
			finished := len(order) == 3
			mu.Unlock()
			if finished {
				close(done)
			}
			return nil
		}
	}

	bus.Subscribe(EventTaskFailed, "specific-late", 30, record("specific-late"))
	bus.Subscribe(EventWildcard, "wildcard-mid", 15, record("wildcard-mid"))
	bus.Subscribe(EventTaskFailed, "specific-early", 1, record("specific-early"))

	bus.Publish(context.Background(), Event{Type: EventTaskFailed, Source: "test"})
	waitSignal(t, done, "timed out waiting for handlers")

	mu.Lock()
	defer mu.Unlock()
	want := []string{"specific-early", "wildcard-mid", "specific-late"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("invocation order = %v, want %v", order, want)
		}
	}
}

func TestBus_ResubscribeReplacesHandler(t *testing.T) {
	bus := NewBus()
	defer bus.Close(time.Second)

	var oldCalls, newCalls int64
	done := make(chan struct{})

	bus.Subscribe(EventTaskSubmitted, "collector", 10,
		func(ctx context.Context, evt Event) error {
			atomic.AddInt64(&oldCalls, 1)
			return nil
		})

	// Same handler id: replaces instead of duplicating.
	bus.Subscribe(EventTaskSubmitted, "collector", 10,
		func(ctx context.Context, evt Event) error {
			atomic.AddInt64(&newCalls, 1)
			close(done)
			return nil
		})

	bus.Publish(context.Background(), Event{Type: EventTaskSubmitted, Source: "test"})
	waitSignal(t, done, "timed out waiting for replacement handler")

	if n := atomic.LoadInt64(&oldCalls); n != 0 {
		t.Errorf("replaced handler ran %d times, want 0", n)
	}
	if n := atomic.LoadInt64(&newCalls); n != 1 {
		t.Errorf("replacement handler ran %d times, want 1", n)
	}
}

func TestBus_ResubscribeKeepsRegistrationOrder(t *testing.T) {
	bus := NewBus()
	defer bus.Close(time.Second)

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})

	record := func(name string) Handler {
		return func(ctx context.Context, evt Event) error {
			mu.Lock()
			order = append(order, name)
			finished := len(order) == 2
			mu.Unlock()
			if finished {
				close(done)
			}
			return nil
		}
	}

	bus.Subscribe(EventTaskCancelled, "alpha", 10, record("alpha-old"))
	bus.Subscribe(EventTaskCancelled, "beta", 10, record("beta"))
	// Re-subscribing alpha at the same priority keeps it ahead of beta.
	bus.Subscribe(EventTaskCancelled, "alpha", 10, record("alpha-new"))

	bus.Publish(context.Background(), Event{Type: EventTaskCancelled, Source: "test"})
	waitSignal(t, done, "timed out waiting for handlers")

	mu.Lock()
	defer mu.Unlock()
	if order[0] != "alpha-new" || order[1] != "beta" {
		t.Fatalf("invocation order = %v, want [alpha-new beta]", order)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	metrics := &countingMetrics{}
	bus := NewBus(WithMetrics(metrics))
	defer bus.Close(time.Second)

	var calls int64
	bus.Subscribe(EventTaskStarted, "doomed", 0,
		func(ctx context.Context, evt Event) error {
			atomic.AddInt64(&calls, 1)
			return nil
		})

	if !bus.Unsubscribe(EventTaskStarted, "doomed") {
		t.Error("Unsubscribe() = false for existing handler, want true")
	}
	if bus.Unsubscribe(EventTaskStarted, "doomed") {
		t.Error("Unsubscribe() = true for removed handler, want false")
	}
	if bus.Unsubscribe(EventTaskStarted, "never-existed") {
		t.Error("Unsubscribe() = true for unknown handler, want false")
	}

	bus.Publish(context.Background(), Event{Type: EventTaskStarted, Source: "test"})
	time.Sleep(100 * time.Millisecond)

	if n := atomic.LoadInt64(&calls); n != 0 {
		t.Errorf("unsubscribed handler ran %d times, want 0", n)
	}
	if n := atomic.LoadInt64(&metrics.removed); n != 1 {
		t.Errorf("removed metric = %d, want 1", n)
	}
}

func TestBus_PerSourceFIFO(t *testing.T) {
	bus := NewBus(WithShards(4), WithQueueCapacity(512))
	defer bus.Close(2 * time.Second)

	const total = 200
	var mu sync.Mutex
	var got []int
	done := make(chan struct{})

	bus.Subscribe(EventTaskSubmitted, "order-check", 0,
		func(ctx context.Context, evt Event) error {
			mu.Lock()
			got = append(got, evt.Attrs["n"].(int))
			finished := len(got) == total
			mu.Unlock()
			if finished {
				close(done)
			}
			return nil
		})

	for i := 0; i < total; i++ {
		err := bus.Publish(context.Background(), Event{
			Type:   EventTaskSubmitted,
			Source: "orchestrator",
			Attrs:  map[string]any{"n": i},
		})
		if err != nil {
			t.Fatalf("Publish(%d) error = %v", i, err)
		}
	}

	waitSignal(t, done, "timed out waiting for all events")

	mu.Lock()
	defer mu.Unlock()
	for i, n := range got {
		if n != i {
			t.Fatalf("event %d arrived at position %d; single-source delivery must be FIFO", n, i)
		}
	}
}

func TestBus_HandlerPanicIsolation(t *testing.T) {
	metrics := &countingMetrics{}
	bus := NewBus(WithMetrics(metrics))
	defer bus.Close(time.Second)

	laterRan := make(chan struct{})
	diagnostic := make(chan Event, 1)

	bus.Subscribe(EventTaskStarted, "bomb", 1,
		func(ctx context.Context, evt Event) error {
			panic("handler exploded")
		})
	bus.Subscribe(EventTaskStarted, "survivor", 2,
		func(ctx context.Context, evt Event) error {
			close(laterRan)
			return nil
		})
	bus.Subscribe(EventHandlerPanic, "diagnostic-watch", 0,
		func(ctx context.Context, evt Event) error {
			diagnostic <- evt
			return nil
		})

	bus.Publish(context.Background(), Event{Type: EventTaskStarted, Source: "test"})

	waitSignal(t, laterRan, "handler after the panicking one never ran")

	select {
	case evt := <-diagnostic:
		payload, ok := evt.Payload.(HandlerPanicPayload)
		if !ok {
			t.Fatalf("diagnostic payload type = %T, want HandlerPanicPayload", evt.Payload)
		}
		if payload.HandlerID != "bomb" {
			t.Errorf("diagnostic handler id = %q, want %q", payload.HandlerID, "bomb")
		}
		if payload.EventType != EventTaskStarted {
			t.Errorf("diagnostic event type = %v, want %v", payload.EventType, EventTaskStarted)
		}
		if payload.Value != "handler exploded" {
			t.Errorf("diagnostic value = %q, want %q", payload.Value, "handler exploded")
		}
		if payload.Stack == "" {
			t.Error("diagnostic should carry a stack trace")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler.panic diagnostic")
	}

	if n := atomic.LoadInt64(&metrics.panics); n != 1 {
		t.Errorf("panic metric = %d, want 1", n)
	}
}

func TestBus_PanicInDiagnosticHandlerDoesNotRecurse(t *testing.T) {
	metrics := &countingMetrics{}
	bus := NewBus(WithMetrics(metrics))
	defer bus.Close(time.Second)

	var diagnosticCalls int64
	bus.Subscribe(EventTaskStarted, "bomb", 0,
		func(ctx context.Context, evt Event) error {
			panic("first")
		})
	bus.Subscribe(EventHandlerPanic, "faulty-diagnostic", 0,
		func(ctx context.Context, evt Event) error {
			atomic.AddInt64(&diagnosticCalls, 1)
			panic("second")
		})

	bus.Publish(context.Background(), Event{Type: EventTaskStarted, Source: "test"})

	// Allow delivery of the original event and the single diagnostic.
	time.Sleep(200 * time.Millisecond)

	if n := atomic.LoadInt64(&diagnosticCalls); n != 1 {
		t.Errorf("diagnostic handler ran %d times, want exactly 1 (no recursion)", n)
	}
	if n := atomic.LoadInt64(&metrics.panics); n != 2 {
		t.Errorf("panic metric = %d, want 2", n)
	}
}

func TestBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	var mu sync.Mutex
	var handlerErr error
	bus := NewBus(WithErrorHandler(func(err error, ctx map[string]interface{}) {
		mu.Lock()
		handlerErr = err
		mu.Unlock()
	}))
	defer bus.Close(time.Second)

	laterRan := make(chan struct{})
	failure := errors.New("collector unavailable")

	bus.Subscribe(EventTaskCompleted, "failing", 1,
		func(ctx context.Context, evt Event) error {
			return failure
		})
	bus.Subscribe(EventTaskCompleted, "healthy", 2,
		func(ctx context.Context, evt Event) error {
			close(laterRan)
			return nil
		})

	bus.Publish(context.Background(), Event{Type: EventTaskCompleted, Source: "test"})
	waitSignal(t, laterRan, "handler after the failing one never ran")

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(handlerErr, failure) {
		t.Errorf("error handler received %v, want %v", handlerErr, failure)
	}
}

func TestBus_PublishTimeoutWhenQueueFull(t *testing.T) {
	metrics := &countingMetrics{}
	bus := NewBus(
		WithShards(1),
		WithQueueCapacity(1),
		WithPublishTimeout(100*time.Millisecond),
		WithMetrics(metrics),
	)

	started := make(chan struct{})
	var startedOnce sync.Once
	gate := make(chan struct{})
	bus.Subscribe(EventTaskStarted, "slow", 0,
		func(ctx context.Context, evt Event) error {
			startedOnce.Do(func() { close(started) })
			<-gate
			return nil
		})

	ctx := context.Background()
	// First event occupies the worker.
	if err := bus.Publish(ctx, Event{Type: EventTaskStarted, Source: "a"}); err != nil {
		t.Fatalf("Publish(1) error = %v", err)
	}
	waitSignal(t, started, "worker never picked up the first event")

	// Second event fills the queue.
	if err := bus.Publish(ctx, Event{Type: EventTaskStarted, Source: "a"}); err != nil {
		t.Fatalf("Publish(2) error = %v", err)
	}

	// Third publish must block, time out, and fail with a capacity error.
	begin := time.Now()
	err := bus.Publish(ctx, Event{Type: EventTaskStarted, Source: "a"})
	elapsed := time.Since(begin)

	if !types.HasCode(err, types.BUS_QUEUE_FULL) {
		t.Fatalf("Publish(3) error = %v, want BUS_QUEUE_FULL", err)
	}
	if elapsed < 90*time.Millisecond {
		t.Errorf("Publish(3) returned after %s, should block for the timeout", elapsed)
	}
	if n := atomic.LoadInt64(&metrics.dropped); n != 1 {
		t.Errorf("dropped metric = %d, want 1", n)
	}

	close(gate)
	bus.Close(time.Second)
}

func TestBus_PublishContextCancelled(t *testing.T) {
	bus := NewBus(WithShards(1), WithQueueCapacity(1), WithPublishTimeout(5*time.Second))

	started := make(chan struct{})
	var startedOnce sync.Once
	gate := make(chan struct{})
	bus.Subscribe(EventTaskStarted, "slow", 0,
		func(ctx context.Context, evt Event) error {
			startedOnce.Do(func() { close(started) })
			<-gate
			return nil
		})

	bg := context.Background()
	bus.Publish(bg, Event{Type: EventTaskStarted, Source: "a"})
	waitSignal(t, started, "worker never picked up the first event")
	bus.Publish(bg, Event{Type: EventTaskStarted, Source: "a"})

	ctx, cancel := context.WithCancel(bg)
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := bus.Publish(ctx, Event{Type: EventTaskStarted, Source: "a"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Publish() error = %v, want context.Canceled", err)
	}

	close(gate)
	bus.Close(time.Second)
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := NewBus()
	if err := bus.Close(time.Second); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err := bus.Publish(context.Background(), Event{Type: EventTaskStarted, Source: "test"})
	if !types.HasCode(err, types.BUS_CLOSED) {
		t.Errorf("Publish() after close error = %v, want BUS_CLOSED", err)
	}

	err = bus.Subscribe(EventTaskStarted, "late", 0,
		func(ctx context.Context, evt Event) error { return nil })
	if !types.HasCode(err, types.BUS_CLOSED) {
		t.Errorf("Subscribe() after close error = %v, want BUS_CLOSED", err)
	}
}

func TestBus_CloseDrainsQueuedEvents(t *testing.T) {
	bus := NewBus(WithShards(1), WithQueueCapacity(64))

	var delivered int64
	bus.Subscribe(EventTaskCompleted, "counter", 0,
		func(ctx context.Context, evt Event) error {
			atomic.AddInt64(&delivered, 1)
			return nil
		})

	const total = 50
	for i := 0; i < total; i++ {
		if err := bus.Publish(context.Background(), Event{Type: EventTaskCompleted, Source: "test"}); err != nil {
			t.Fatalf("Publish(%d) error = %v", i, err)
		}
	}

	if err := bus.Close(5 * time.Second); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if n := atomic.LoadInt64(&delivered); n != total {
		t.Errorf("delivered %d events after drain, want %d", n, total)
	}
}

func TestBus_CloseIdempotent(t *testing.T) {
	bus := NewBus()
	if err := bus.Close(time.Second); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}

	begin := time.Now()
	if err := bus.Close(time.Minute); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if elapsed := time.Since(begin); elapsed > 100*time.Millisecond {
		t.Errorf("second Close() took %s, should return immediately", elapsed)
	}
}

func TestBus_SubscribeValidation(t *testing.T) {
	bus := NewBus()
	defer bus.Close(time.Second)

	handler := func(ctx context.Context, evt Event) error { return nil }

	if err := bus.Subscribe(EventTaskStarted, "h", 0, nil); err == nil {
		t.Error("Subscribe() with nil handler should fail")
	}
	if err := bus.Subscribe(EventTaskStarted, "", 0, handler); err == nil {
		t.Error("Subscribe() with empty handler id should fail")
	}
	if err := bus.Subscribe("", "h", 0, handler); err == nil {
		t.Error("Subscribe() with empty event type should fail")
	}
	if err := bus.Publish(context.Background(), Event{Source: "test"}); err == nil {
		t.Error("Publish() with empty event type should fail")
	}
}

func TestFilter_Matches(t *testing.T) {
	taskID := types.NewID()
	sessionID := types.NewID()
	evt := Event{
		Type:      EventTaskCompleted,
		TaskID:    taskID,
		SessionID: sessionID,
		Domain:    "latency",
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches all", Filter{}, true},
		{"matching type", Filter{Types: []EventType{EventTaskCompleted}}, true},
		{"non-matching type", Filter{Types: []EventType{EventTaskFailed}}, false},
		{"matching task", Filter{TaskID: taskID}, true},
		{"non-matching task", Filter{TaskID: types.NewID()}, false},
		{"matching session and domain", Filter{SessionID: sessionID, Domain: "latency"}, true},
		{"matching session wrong domain", Filter{SessionID: sessionID, Domain: "network"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(evt); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBus_ResubscribeDuringDelivery(t *testing.T) {
	bus := NewBus(WithShards(2), WithQueueCapacity(256))
	defer bus.Close(2 * time.Second)

	var delivered int64
	handler := func(ctx context.Context, evt Event) error {
		atomic.AddInt64(&delivered, 1)
		return nil
	}
	if err := bus.Subscribe(EventTaskCompleted, "flapping", 0, handler); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Replace the registration repeatedly while the shard workers are
	// delivering; replacement must never mutate a subscription a worker
	// may be reading.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			bus.Subscribe(EventTaskCompleted, "flapping", i%3, handler)
		}
	}()

	ctx := context.Background()
	const total = 2000
	for i := 0; i < total; i++ {
		evt := Event{
			Type:      EventTaskCompleted,
			Source:    fmt.Sprintf("publisher-%d", i%4),
			Timestamp: time.Now(),
		}
		if err := bus.Publish(ctx, evt); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	waitSignal(t, done, "re-subscription loop did not finish")

	if err := bus.Close(2 * time.Second); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := atomic.LoadInt64(&delivered); got != total {
		t.Fatalf("delivered = %d, want %d", got, total)
	}
}

func TestBus_SubscribeFiltered(t *testing.T) {
	bus := NewBus()

	taskID := types.NewID()
	var mu sync.Mutex
	var matched []Event
	filter := Filter{
		Types:  []EventType{EventTaskCompleted, EventTaskFailed},
		TaskID: taskID,
	}
	err := bus.SubscribeFiltered(EventWildcard, "filtered", 0, filter,
		func(ctx context.Context, evt Event) error {
			mu.Lock()
			matched = append(matched, evt)
			mu.Unlock()
			return nil
		})
	if err != nil {
		t.Fatalf("SubscribeFiltered() error = %v", err)
	}

	ctx := context.Background()
	publishOk := func(evt Event) {
		t.Helper()
		if err := bus.Publish(ctx, evt); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	publishOk(Event{Type: EventTaskCompleted, Source: "s", TaskID: taskID})
	publishOk(Event{Type: EventTaskStarted, Source: "s", TaskID: taskID})
	publishOk(Event{Type: EventTaskCompleted, Source: "s", TaskID: types.NewID()})
	publishOk(Event{Type: EventTaskFailed, Source: "s", TaskID: taskID})

	if err := bus.Close(time.Second); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(matched) != 2 {
		t.Fatalf("matched %d events, want 2: %+v", len(matched), matched)
	}
	if matched[0].Type != EventTaskCompleted || matched[1].Type != EventTaskFailed {
		t.Errorf("unexpected event types: %s, %s", matched[0].Type, matched[1].Type)
	}
}

func TestBus_SubscribeFilteredNilHandler(t *testing.T) {
	bus := NewBus()
	defer bus.Close(time.Second)

	if err := bus.SubscribeFiltered(EventWildcard, "h", 0, Filter{}, nil); err == nil {
		t.Fatal("SubscribeFiltered() with nil handler should fail")
	}
}

func BenchmarkBus_Publish(b *testing.B) {
	bus := NewBus(WithShards(4), WithQueueCapacity(4096))
	defer bus.Close(5 * time.Second)

	bus.Subscribe(EventTaskCompleted, "sink", 0,
		func(ctx context.Context, evt Event) error { return nil })

	ctx := context.Background()
	evt := Event{Type: EventTaskCompleted, Source: "bench", Timestamp: time.Now()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := bus.Publish(ctx, evt); err != nil {
			b.Fatalf("Publish() error = %v", err)
		}
	}
}

func BenchmarkBus_PublishParallelSources(b *testing.B) {
	bus := NewBus(WithShards(8), WithQueueCapacity(4096))
	defer bus.Close(5 * time.Second)

	bus.Subscribe(EventWildcard, "sink", 0,
		func(ctx context.Context, evt Event) error { return nil })

	ctx := context.Background()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		source := fmt.Sprintf("publisher-%d", time.Now().UnixNano())
		evt := Event{Type: EventTaskStarted, Source: source, Timestamp: time.Now()}
		for pb.Next() {
			bus.Publish(ctx, evt)
		}
	})
}
