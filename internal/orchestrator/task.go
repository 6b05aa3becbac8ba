package orchestrator

import (
	"fmt"
	"time"

	"github.com/williamstus/AAR-Reporting-sub000/internal/engine"
	"github.com/williamstus/AAR-Reporting-sub000/internal/types"
)

// Priority bands for task submission. Smaller values dispatch earlier;
// any integer is accepted, these constants just name the common bands.
const (
	PriorityUrgent = 0
	PriorityHigh   = 10
	PriorityNormal = 50
	PriorityLow    = 90
)

// Callback is invoked with the task's terminal result after the outcome
// is recorded. Callbacks run outside the orchestrator's internal lock; a
// callback panic or error is logged and published as a diagnostic but
// never alters the task's recorded status.
type Callback func(result *TaskResult)

// Task is an immutable work descriptor: one scheduled invocation of an
// analysis engine against a dataset. Identity is the ID; the submission
// sequence number used for FIFO tie-breaking is assigned by the
// orchestrator at submit time and is not part of the descriptor.
type Task struct {
	// ID uniquely identifies the task. Assigned at construction.
	ID types.ID `json:"id"`

	// Domain names the analysis engine that should run this task.
	Domain string `json:"domain"`

	// Data is the telemetry slice to analyze. Opaque to the scheduler.
	Data *engine.Dataset `json:"-"`

	// Config carries per-run engine options.
	Config engine.Config `json:"config,omitempty"`

	// Priority orders dispatch: smaller is more urgent.
	Priority int `json:"priority"`

	// Timeout bounds the engine call for this task. Zero means no
	// per-task deadline.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Callback, when set, receives the terminal result.
	Callback Callback `json:"-"`
}

// TaskOption configures a Task at construction time.
type TaskOption func(*Task)

// WithPriority sets the task's dispatch priority (smaller runs earlier).
func WithPriority(p int) TaskOption {
	return func(t *Task) {
		t.Priority = p
	}
}

// WithConfig sets per-run engine options.
func WithConfig(cfg engine.Config) TaskOption {
	return func(t *Task) {
		t.Config = cfg
	}
}

// WithTaskTimeout bounds the engine call with a per-task deadline.
func WithTaskTimeout(d time.Duration) TaskOption {
	return func(t *Task) {
		if d > 0 {
			t.Timeout = d
		}
	}
}

// WithCallback registers a completion callback for the task.
func WithCallback(cb Callback) TaskOption {
	return func(t *Task) {
		t.Callback = cb
	}
}

// NewTask creates a task for a domain with a fresh ID and PriorityNormal.
func NewTask(domain string, data *engine.Dataset, opts ...TaskOption) *Task {
	t := &Task{
		ID:       types.NewID(),
		Domain:   domain,
		Data:     data,
		Priority: PriorityNormal,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Validate checks that the task is well-formed for submission.
func (t *Task) Validate() error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if t.ID.IsZero() {
		return fmt.Errorf("task id cannot be empty")
	}
	if t.Domain == "" {
		return fmt.Errorf("task domain cannot be empty")
	}
	return nil
}

// TaskResult is a snapshot of one task's lifecycle state. Result and Err
// are populated only once the task reaches a terminal status.
type TaskResult struct {
	TaskID   types.ID         `json:"task_id"`
	Domain   string           `json:"domain"`
	Status   types.TaskStatus `json:"status"`
	Priority int              `json:"priority"`
	Sequence uint64           `json:"sequence"`

	// Result holds the engine's output when the task completed.
	Result *engine.AnalysisResult `json:"result,omitempty"`

	// Err is the failure message when the task failed; empty otherwise.
	Err string `json:"error,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	// Duration is the engine execution time (StartedAt to CompletedAt).
	Duration time.Duration `json:"duration,omitempty"`
}

// IsTerminal reports whether the snapshot shows a final status.
func (r *TaskResult) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// BatchReport describes the outcome of a batch submission: which tasks
// were scheduled and which domains were skipped for lack of an engine.
type BatchReport struct {
	// TaskIDs lists the scheduled tasks in submission order.
	TaskIDs []types.ID `json:"task_ids"`

	// Skipped lists domains that had no registered engine.
	Skipped []string `json:"skipped,omitempty"`
}

// QueueStatus is a point-in-time snapshot of scheduler occupancy.
type QueueStatus struct {
	Pending       int `json:"pending"`
	Running       int `json:"running"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
	Cancelled     int `json:"cancelled"`
	QueueCapacity int `json:"queue_capacity"`
	Workers       int `json:"workers"`
}
