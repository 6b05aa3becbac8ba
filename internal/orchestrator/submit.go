package orchestrator

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/williamstus/AAR-Reporting-sub000/internal/engine"
	"github.com/williamstus/AAR-Reporting-sub000/internal/events"
	"github.com/williamstus/AAR-Reporting-sub000/internal/types"
)

// SubmitTask validates and enqueues a task, returning its ID. Failures
// are synchronous and local to the caller: an unregistered domain is an
// ENGINE_NOT_FOUND configuration error, a full queue is a retryable
// QUEUE_FULL capacity error, and submission after Stop is an
// ORCHESTRATOR_STOPPED error. A rejected task never appears in any
// queue or result set.
func (o *Orchestrator) SubmitTask(task *Task) (types.ID, error) {
	if err := task.Validate(); err != nil {
		return "", types.WrapError(types.TASK_INVALID, "invalid task", err)
	}
	if !o.registry.IsRegistered(task.Domain) {
		return "", types.NewError(types.ENGINE_NOT_FOUND,
			fmt.Sprintf("no engine registered for domain %q", task.Domain))
	}

	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return "", types.NewError(types.ORCHESTRATOR_STOPPED,
			"orchestrator is stopped, task rejected")
	}
	if o.queue.Len() >= o.queueCapacity {
		o.mu.Unlock()
		return "", types.NewRetryableError(types.QUEUE_FULL,
			fmt.Sprintf("task queue at capacity (%d)", o.queueCapacity))
	}
	if _, exists := o.active[task.ID]; exists {
		o.mu.Unlock()
		return "", types.WrapError(types.TASK_INVALID,
			fmt.Sprintf("task %s already submitted", task.ID.Short()), nil)
	}
	if _, exists := o.completed[task.ID]; exists {
		o.mu.Unlock()
		return "", types.WrapError(types.TASK_INVALID,
			fmt.Sprintf("task %s already executed", task.ID.Short()), nil)
	}

	o.seq++
	rec := &taskRecord{
		task:        task,
		sequence:    o.seq,
		status:      types.TaskStatusPending,
		submittedAt: time.Now().UTC(),
		index:       -1,
	}
	heap.Push(&o.queue, rec)
	o.active[task.ID] = rec
	queued := o.queue.Len()
	sequence := rec.sequence
	started := o.running
	o.mu.Unlock()

	o.logger.Debug("task submitted",
		"task_id", task.ID.Short(), "domain", task.Domain,
		"priority", task.Priority, "sequence", sequence, "queued", queued)
	o.publish(events.EventTaskSubmitted, task.ID, task.Domain, events.TaskSubmittedPayload{
		TaskID:   task.ID,
		Domain:   task.Domain,
		Priority: task.Priority,
		Sequence: sequence,
		Queued:   queued,
	})

	if started {
		o.signalWake()
	}
	return task.ID, nil
}

// SubmitBatch submits one task per domain, sharing data, config, and
// priority. Domains without a registered engine are skipped and reported
// in the batch report rather than failing the batch; a capacity or
// shutdown error aborts the remainder and returns alongside the partial
// report.
func (o *Orchestrator) SubmitBatch(domains []string, data *engine.Dataset, cfg engine.Config, priority int) (*BatchReport, error) {
	report := &BatchReport{}
	for _, domain := range domains {
		if !o.registry.IsRegistered(domain) {
			report.Skipped = append(report.Skipped, domain)
			o.logger.Warn("batch skipped domain, no engine registered", "domain", domain)
			continue
		}
		task := NewTask(domain, data, WithPriority(priority), WithConfig(cfg))
		id, err := o.SubmitTask(task)
		if err != nil {
			// The submit-time registry check can race an unregister;
			// treat that as a skip like the pre-check above.
			if types.HasCode(err, types.ENGINE_NOT_FOUND) {
				report.Skipped = append(report.Skipped, domain)
				continue
			}
			return report, err
		}
		report.TaskIDs = append(report.TaskIDs, id)
	}

	o.publish(events.EventBatchSubmitted, "", "", events.BatchSubmittedPayload{
		TaskIDs:        report.TaskIDs,
		SkippedDomains: report.Skipped,
	})
	return report, nil
}

// CancelTask requests cancellation of a task. A pending task is removed
// from the queue and becomes cancelled immediately, guaranteed never to
// dispatch. A running task has its context cancelled and the intent
// recorded; the engine call is not preempted, but the terminal status
// will be cancelled. Returns false for tasks already terminal, and a
// TASK_NOT_FOUND error for unknown IDs.
func (o *Orchestrator) CancelTask(id types.ID) (bool, error) {
	o.mu.Lock()
	rec, ok := o.active[id]
	if !ok {
		_, done := o.completed[id]
		o.mu.Unlock()
		if done {
			return false, nil
		}
		return false, types.NewError(types.TASK_NOT_FOUND,
			fmt.Sprintf("unknown task %s", id))
	}

	if !rec.status.CanTransitionTo(types.TaskStatusCancelled) {
		o.mu.Unlock()
		return false, nil
	}

	switch rec.status {
	case types.TaskStatusPending:
		if rec.index >= 0 {
			heap.Remove(&o.queue, rec.index)
		}
		rec.status = types.TaskStatusCancelled
		rec.completedAt = time.Now().UTC()
		snap := rec.snapshot()
		delete(o.active, id)
		o.completed[id] = snap
		o.mu.Unlock()

		o.logger.Info("pending task cancelled",
			"task_id", id.Short(), "domain", snap.Domain)
		o.publish(events.EventTaskCancelled, id, snap.Domain, events.TaskCancelledPayload{
			TaskID: id,
			Domain: snap.Domain,
		})
		return true, nil

	case types.TaskStatusRunning:
		rec.cancelRequested = true
		cancel := rec.cancel
		domain := rec.task.Domain
		o.mu.Unlock()

		// Best effort: the engine observes ctx cancellation
		// cooperatively. The cancelled event follows once the worker
		// records the terminal outcome.
		cancel()
		o.logger.Info("running task cancellation requested",
			"task_id", id.Short(), "domain", domain)
		return true, nil

	default:
		o.mu.Unlock()
		return false, nil
	}
}

// AnalyzeAllDomains is the synchronous facade over the scheduler: it
// submits an urgent-priority task for every registered domain, polls
// until each reaches a terminal state or ctx is done, and returns the
// completed results keyed by domain. Failed and cancelled tasks are
// omitted from the map; their outcomes are still published as events and
// queryable by task ID.
func (o *Orchestrator) AnalyzeAllDomains(ctx context.Context, data *engine.Dataset, cfg engine.Config) (map[string]*engine.AnalysisResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	domains := o.registry.Names()
	sessionID := types.NewID()
	start := time.Now()

	o.publish(events.EventSessionStarted, "", "", events.SessionStartedPayload{
		SessionID: sessionID,
		Domains:   domains,
	})

	report, err := o.SubmitBatch(domains, data, cfg, PriorityUrgent)
	if err != nil {
		return nil, err
	}

	results := make(map[string]*engine.AnalysisResult)
	failed := 0
	remaining := make(map[types.ID]struct{}, len(report.TaskIDs))
	for _, id := range report.TaskIDs {
		remaining[id] = struct{}{}
	}

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for len(remaining) > 0 {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		case <-ticker.C:
		}

		for id := range remaining {
			res, err := o.GetTaskResult(id)
			if err != nil || !res.IsTerminal() {
				continue
			}
			delete(remaining, id)
			if res.Status == types.TaskStatusCompleted && res.Result != nil {
				results[res.Domain] = res.Result
			} else {
				failed++
			}
		}
	}

	o.publish(events.EventSessionCompleted, "", "", events.SessionCompletedPayload{
		SessionID: sessionID,
		Succeeded: len(results),
		Failed:    failed,
		Duration:  time.Since(start),
	})
	o.logger.Info("session analysis finished",
		"session_id", sessionID.Short(), "succeeded", len(results),
		"failed", failed, "skipped", len(report.Skipped))
	return results, nil
}
