package orchestrator

import (
	"container/heap"
	"context"
	"time"

	"github.com/williamstus/AAR-Reporting-sub000/internal/engine"
	"github.com/williamstus/AAR-Reporting-sub000/internal/types"
)

// taskRecord is the orchestrator's private lifecycle record for one task.
// All fields are guarded by the orchestrator mutex except the engine call
// itself, which runs on a captured copy of task, eng, and ctx.
type taskRecord struct {
	task     *Task
	sequence uint64
	status   types.TaskStatus

	// eng is the engine captured at dispatch time. Re-registration of
	// the domain does not affect a task already dispatched.
	eng engine.Engine

	// ctx and cancel are set at dispatch time; ctx carries the per-task
	// deadline and is cancelled by CancelTask and Stop.
	ctx    context.Context
	cancel context.CancelFunc

	// cancelRequested marks a running task whose cancellation was
	// requested; the terminal status becomes cancelled regardless of
	// what the engine returns.
	cancelRequested bool

	result *engine.AnalysisResult
	errMsg string

	submittedAt time.Time
	startedAt   time.Time
	completedAt time.Time

	// index is the record's position in the pending heap, -1 when the
	// record is not queued.
	index int
}

// snapshot builds a TaskResult copy of the record's current state.
func (r *taskRecord) snapshot() *TaskResult {
	res := &TaskResult{
		TaskID:      r.task.ID,
		Domain:      r.task.Domain,
		Status:      r.status,
		Priority:    r.task.Priority,
		Sequence:    r.sequence,
		Result:      r.result,
		Err:         r.errMsg,
		SubmittedAt: r.submittedAt,
		StartedAt:   r.startedAt,
		CompletedAt: r.completedAt,
	}
	if !r.startedAt.IsZero() && !r.completedAt.IsZero() {
		res.Duration = r.completedAt.Sub(r.startedAt)
	}
	return res
}

// taskHeap is a min-heap of pending task records ordered by
// (priority ascending, sequence ascending). The sequence tie-break makes
// the ordering total: two records never compare equal, so equal-priority
// tasks dispatch in submission order regardless of clock resolution.
type taskHeap []*taskRecord

var _ heap.Interface = (*taskHeap)(nil)

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority < h[j].task.Priority
	}
	return h[i].sequence < h[j].sequence
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	rec := x.(*taskRecord)
	rec.index = len(*h)
	*h = append(*h, rec)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	rec := old[n-1]
	old[n-1] = nil
	rec.index = -1
	*h = old[:n-1]
	return rec
}
