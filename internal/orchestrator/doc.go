// Package orchestrator implements the concurrent analysis task scheduler.
//
// The Orchestrator owns the engine registry and provides a
// priority-scheduled, cancellable, observable execution service on top of
// the event bus. Callers register engines, submit tasks against named
// analysis domains, and query lifecycle state; a dispatch loop hands each
// task to a bounded worker pool in (priority, submission-sequence) order,
// invokes the engine, records the terminal outcome, and publishes
// lifecycle events.
//
// Concurrency model: one dispatch goroutine plus a semaphore-bounded set
// of worker goroutines. All mutable state (pending queue, active and
// completed task maps, per-domain latest results) is guarded by a single
// mutex; engine invocations run outside that mutex so a slow analysis
// never blocks submissions, cancellations, or queries.
//
// Cancellation is cooperative. Cancelling a pending task removes it from
// the queue before dispatch. Cancelling a running task cancels the task's
// context and records the intent; the engine call itself is not preempted,
// but the task's terminal status is cancelled regardless of what the
// engine returns.
package orchestrator
