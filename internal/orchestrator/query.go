package orchestrator

import (
	"fmt"

	"github.com/williamstus/AAR-Reporting-sub000/internal/types"
)

// GetTaskStatus returns the current lifecycle status of a task. Unknown
// IDs fail with a TASK_NOT_FOUND error.
func (o *Orchestrator) GetTaskStatus(id types.ID) (types.TaskStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if rec, ok := o.active[id]; ok {
		return rec.status, nil
	}
	if res, ok := o.completed[id]; ok {
		return res.Status, nil
	}
	return "", types.NewError(types.TASK_NOT_FOUND, fmt.Sprintf("unknown task %s", id))
}

// GetTaskResult returns a snapshot of the task's lifecycle record. The
// Result and Err fields are populated only once the task is terminal.
func (o *Orchestrator) GetTaskResult(id types.ID) (*TaskResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if rec, ok := o.active[id]; ok {
		return rec.snapshot(), nil
	}
	if res, ok := o.completed[id]; ok {
		out := *res
		return &out, nil
	}
	return nil, types.NewError(types.TASK_NOT_FOUND, fmt.Sprintf("unknown task %s", id))
}

// GetAllResults returns the latest completed result per domain. A newer
// completion for a domain replaces the prior entry; failed and cancelled
// runs never appear here.
func (o *Orchestrator) GetAllResults() map[string]*TaskResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[string]*TaskResult, len(o.latest))
	for domain, res := range o.latest {
		cp := *res
		out[domain] = &cp
	}
	return out
}

// GetDomainResult returns the latest completed result for one domain, or
// a TASK_NOT_FOUND error when the domain has no completed run.
func (o *Orchestrator) GetDomainResult(domain string) (*TaskResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	res, ok := o.latest[domain]
	if !ok {
		return nil, types.NewError(types.TASK_NOT_FOUND,
			fmt.Sprintf("no completed result for domain %q", domain))
	}
	cp := *res
	return &cp, nil
}

// QueueStatus returns a point-in-time snapshot of scheduler occupancy.
func (o *Orchestrator) QueueStatus() QueueStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := QueueStatus{
		Pending:       o.queue.Len(),
		QueueCapacity: o.queueCapacity,
		Workers:       o.workerCount,
	}
	status.Running = len(o.active) - status.Pending
	for _, res := range o.completed {
		switch res.Status {
		case types.TaskStatusCompleted:
			status.Completed++
		case types.TaskStatusFailed:
			status.Failed++
		case types.TaskStatusCancelled:
			status.Cancelled++
		}
	}
	return status
}

// ClearCompleted drops all terminal task records and per-domain latest
// results, returning how many records were removed. Active tasks are
// untouched.
func (o *Orchestrator) ClearCompleted() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := len(o.completed)
	o.completed = make(map[types.ID]*TaskResult)
	o.latest = make(map[string]*TaskResult)
	return n
}
