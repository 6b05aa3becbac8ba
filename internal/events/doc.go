// Package events provides the asynchronous event bus for the analysis core.
//
// The events package is the single decoupling layer between the analysis
// orchestrator (and any future producers) and consumers such as report
// collectors, progress displays, and loggers. Producers publish typed
// events; consumers register handlers and never talk to producers directly.
//
// # Overview
//
// The Bus provides:
//   - Thread-safe concurrent publishing and subscribing
//   - Asynchronous delivery on a bounded worker pool
//   - Deterministic handler ordering (priority, then registration order)
//   - Per-source FIFO delivery
//   - Panic isolation with a diagnostic event
//   - Bounded-blocking backpressure with a publish timeout
//   - Configurable error handling and metrics recording
//
// # Architecture
//
// The Bus shards queued events by their Source field. Each shard owns a
// bounded queue and a single delivery worker, so events from one publisher
// are always delivered in publish order while distinct publishers proceed
// in parallel:
//
//	┌─────────────┐        ┌───────────────────────────┐
//	│ Publisher A │───────▶│ shard 0 queue ── worker 0 │──▶ handlers
//	└─────────────┘        │                           │
//	┌─────────────┐        │ shard 1 queue ── worker 1 │──▶ handlers
//	│ Publisher B │───────▶│                           │
//	└─────────────┘        └───────────────────────────┘
//
// Handlers for an event run sequentially inside the shard worker, ordered
// by ascending priority and then by registration order. Wildcard handlers
// participate in the same ordered pass as type-specific handlers.
//
// # Thread Safety
//
// All Bus methods are safe for concurrent use from multiple goroutines.
// The implementation uses an RWMutex for the subscription map and a
// closed flag plus stop channel for shutdown coordination.
//
// # Backpressure
//
// Publish blocks while the target shard queue is full, up to the
// configured publish timeout. On timeout the event is dropped, the error
// handler and metrics recorder are notified, and Publish returns a
// BUS_QUEUE_FULL error. Publishing after Close returns BUS_CLOSED.
//
// # Panic Isolation
//
// A panicking handler never takes down the worker or suppresses later
// handlers. The panic is recovered, logged, and republished as an
// EventHandlerPanic diagnostic event so operators can observe misbehaving
// consumers. Panics raised by handlers of the diagnostic event itself are
// recovered and logged only, so a faulty diagnostic consumer cannot cause
// a publish loop.
//
// # Usage Example
//
//	bus := events.NewBus(
//		events.WithQueueCapacity(256),
//		events.WithShards(4),
//		events.WithPublishTimeout(2*time.Second),
//		events.WithLogger(logger),
//	)
//
//	bus.Subscribe(events.EventTaskCompleted, "report-collector", 10,
//		func(ctx context.Context, evt events.Event) error {
//			payload := evt.Payload.(events.TaskCompletedPayload)
//			return collector.Record(payload)
//		})
//
//	err := bus.Publish(ctx, events.Event{
//		Type:   events.EventTaskCompleted,
//		Source: "orchestrator",
//		TaskID: taskID,
//		Payload: events.TaskCompletedPayload{
//			TaskID:   taskID,
//			Domain:   "latency",
//			Duration: elapsed,
//		},
//	})
//
//	// On shutdown, drain queued events for up to five seconds.
//	bus.Close(5 * time.Second)
//
// # Event Types
//
// Events are organized into categories:
//   - Task lifecycle: task.submitted, task.started, task.completed,
//     task.failed, task.cancelled
//   - Batch submission: batch.submitted
//   - Orchestrator lifecycle: orchestrator.started, orchestrator.stopping,
//     orchestrator.stopped
//   - Engine registry: engine.registered, engine.unregistered
//   - Analysis sessions: session.started, session.completed
//   - Diagnostics: handler.panic
//
// Each event type has a corresponding payload type (e.g.
// TaskCompletedPayload) that defines the structured data for that event.
package events
