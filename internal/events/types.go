package events

import (
	"time"

	"github.com/williamstus/AAR-Reporting-sub000/internal/types"
)

// EventType identifies the category and nature of an event in the analysis
// system. The taxonomy uses dot-separated lowercase names so consumers can
// group related events by prefix.
type EventType string

// EventWildcard subscribes a handler to every event type. Wildcard handlers
// are merged into the same ordered pass as type-specific handlers.
const EventWildcard EventType = "*"

// Task Lifecycle Events
// These events track individual analysis task execution.
const (
	EventTaskSubmitted EventType = "task.submitted"
	EventTaskStarted   EventType = "task.started"
	EventTaskCompleted EventType = "task.completed"
	EventTaskFailed    EventType = "task.failed"
	EventTaskCancelled EventType = "task.cancelled"
)

// Batch Events
// These events track multi-task submissions.
const (
	EventBatchSubmitted EventType = "batch.submitted"
)

// Orchestrator Lifecycle Events
// These events track scheduler startup and shutdown.
const (
	EventOrchestratorStarted  EventType = "orchestrator.started"
	EventOrchestratorStopping EventType = "orchestrator.stopping"
	EventOrchestratorStopped  EventType = "orchestrator.stopped"
)

// Engine Registry Events
// These events track analysis engine registration and removal.
const (
	EventEngineRegistered   EventType = "engine.registered"
	EventEngineUnregistered EventType = "engine.unregistered"
)

// Session Events
// These events bracket a full-session analysis run across all domains.
const (
	EventSessionStarted   EventType = "session.started"
	EventSessionCompleted EventType = "session.completed"
)

// Diagnostic Events
// These events surface bus-internal and callback failures to observers.
const (
	EventHandlerPanic   EventType = "handler.panic"
	EventCallbackFailed EventType = "task.callback_failed"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// Event represents a single observability event in the analysis system.
//
// The Event struct is designed to be JSON-serializable and includes all
// necessary context for trace correlation, filtering, and report
// aggregation. Events are treated as immutable once published.
type Event struct {
	// Type identifies the category and nature of the event
	Type EventType `json:"type"`

	// Timestamp records when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// Source identifies the publisher. Events sharing a Source are
	// delivered in publish order.
	Source string `json:"source"`

	// TaskID associates the event with a task (empty for system events)
	TaskID types.ID `json:"task_id,omitempty"`

	// SessionID associates the event with an analysis session
	SessionID types.ID `json:"session_id,omitempty"`

	// Domain identifies the analysis domain the event concerns
	Domain string `json:"domain,omitempty"`

	// TraceID is the OpenTelemetry trace ID for distributed tracing correlation
	TraceID string `json:"trace_id,omitempty"`

	// SpanID is the OpenTelemetry span ID for the specific operation
	SpanID string `json:"span_id,omitempty"`

	// Payload contains event-specific typed data (use type assertion to access)
	Payload any `json:"payload,omitempty"`

	// Attrs contains additional key-value attributes for flexible event metadata
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Filter defines criteria for selecting events out of a subscription stream.
// All filter fields use AND logic - an event must match all specified
// criteria. Empty fields act as wildcards (match all).
type Filter struct {
	// Types filters by event types (empty = all types)
	Types []EventType `json:"types,omitempty"`

	// TaskID filters by task (empty = all tasks)
	TaskID types.ID `json:"task_id,omitempty"`

	// SessionID filters by session (empty = all sessions)
	SessionID types.ID `json:"session_id,omitempty"`

	// Domain filters by analysis domain (empty = all domains)
	Domain string `json:"domain,omitempty"`
}

// Matches determines if the given event matches this filter's criteria.
// Empty filter fields act as wildcards that match any value.
func (f *Filter) Matches(event Event) bool {
	if len(f.Types) > 0 {
		matched := false
		for _, t := range f.Types {
			if event.Type == t {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if f.TaskID != "" && event.TaskID != f.TaskID {
		return false
	}

	if f.SessionID != "" && event.SessionID != f.SessionID {
		return false
	}

	if f.Domain != "" && event.Domain != f.Domain {
		return false
	}

	return true
}

// TaskSubmittedPayload carries data for task.submitted events.
type TaskSubmittedPayload struct {
	TaskID   types.ID `json:"task_id"`
	Domain   string   `json:"domain"`
	Priority int      `json:"priority"`
	Sequence uint64   `json:"sequence"`
	Queued   int      `json:"queued"`
}

// TaskStartedPayload carries data for task.started events.
type TaskStartedPayload struct {
	TaskID   types.ID      `json:"task_id"`
	Domain   string        `json:"domain"`
	Worker   int           `json:"worker"`
	WaitTime time.Duration `json:"wait_time"`
}

// TaskCompletedPayload carries data for task.completed events.
type TaskCompletedPayload struct {
	TaskID       types.ID      `json:"task_id"`
	Domain       string        `json:"domain"`
	Duration     time.Duration `json:"duration"`
	FindingCount int           `json:"finding_count"`
}

// TaskFailedPayload carries data for task.failed events.
type TaskFailedPayload struct {
	TaskID   types.ID      `json:"task_id"`
	Domain   string        `json:"domain"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error"`
	Panicked bool          `json:"panicked"`
}

// TaskCancelledPayload carries data for task.cancelled events.
type TaskCancelledPayload struct {
	TaskID types.ID `json:"task_id"`
	Domain string   `json:"domain"`

	// WhileRunning is true when the cancellation interrupted a running
	// task rather than removing a pending one from the queue.
	WhileRunning bool `json:"while_running"`
}

// BatchSubmittedPayload carries data for batch.submitted events.
type BatchSubmittedPayload struct {
	SessionID      types.ID   `json:"session_id,omitempty"`
	TaskIDs        []types.ID `json:"task_ids"`
	SkippedDomains []string   `json:"skipped_domains,omitempty"`
}

// OrchestratorStartedPayload carries data for orchestrator.started events.
type OrchestratorStartedPayload struct {
	Workers       int `json:"workers"`
	QueueCapacity int `json:"queue_capacity"`
}

// OrchestratorStoppedPayload carries data for orchestrator.stopped events.
type OrchestratorStoppedPayload struct {
	Graceful         bool          `json:"graceful"`
	DrainDuration    time.Duration `json:"drain_duration"`
	PendingCancelled int           `json:"pending_cancelled"`
}

// EngineRegisteredPayload carries data for engine.registered events.
type EngineRegisteredPayload struct {
	Name string `json:"name"`

	// Replaced is true when the registration displaced a previous engine
	// under the same name.
	Replaced bool `json:"replaced"`
}

// EngineUnregisteredPayload carries data for engine.unregistered events.
type EngineUnregisteredPayload struct {
	Name string `json:"name"`
}

// SessionStartedPayload carries data for session.started events.
type SessionStartedPayload struct {
	SessionID types.ID `json:"session_id"`
	Domains   []string `json:"domains"`
}

// SessionCompletedPayload carries data for session.completed events.
type SessionCompletedPayload struct {
	SessionID types.ID      `json:"session_id"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// CallbackFailedPayload carries data for task.callback_failed events.
// A callback failure never alters the task's own terminal status.
type CallbackFailedPayload struct {
	TaskID types.ID `json:"task_id"`
	Domain string   `json:"domain"`
	Error  string   `json:"error"`
}

// HandlerPanicPayload carries data for handler.panic diagnostic events.
type HandlerPanicPayload struct {
	HandlerID string    `json:"handler_id"`
	EventType EventType `json:"event_type"`
	Value     string    `json:"value"`
	Stack     string    `json:"stack"`
}
