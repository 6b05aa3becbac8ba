package orchestrator

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/williamstus/AAR-Reporting-sub000/internal/engine"
	"github.com/williamstus/AAR-Reporting-sub000/internal/events"
	"github.com/williamstus/AAR-Reporting-sub000/internal/types"
)

// Default scheduler tuning values, overridable via options.
const (
	DefaultWorkers       = 4
	DefaultQueueCapacity = 128
	DefaultPollInterval  = 25 * time.Millisecond
)

// eventSource identifies the orchestrator as an event publisher. All
// orchestrator events share this source, so subscribers observe them in
// publish order.
const eventSource = "orchestrator"

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithWorkers sets the worker pool size.
// Default: 4
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workerCount = n
		}
	}
}

// WithQueueCapacity bounds the number of pending tasks. Submissions
// beyond the bound fail with a capacity error.
// Default: 128
func WithQueueCapacity(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.queueCapacity = n
		}
	}
}

// WithPollInterval sets how often AnalyzeAllDomains re-checks task state.
// Default: 25ms
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithDefaultTaskTimeout sets the execution timeout applied to tasks
// that do not carry their own. Zero means no default; tasks without a
// timeout then run until completion or cancellation.
func WithDefaultTaskTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.defaultTimeout = d
		}
	}
}

// WithLogger sets the structured logger for scheduler operations.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the OpenTelemetry tracer used to span task execution.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// Orchestrator is the concurrent analysis task scheduler. It owns the
// engine registry, a priority queue of pending tasks, and a bounded
// worker pool, and publishes lifecycle events through the bus.
//
// All exported methods are safe for concurrent use.
type Orchestrator struct {
	registry *engine.Registry
	bus      events.EventBus
	logger   *slog.Logger
	tracer   trace.Tracer

	workerCount    int
	queueCapacity  int
	pollInterval   time.Duration
	defaultTimeout time.Duration

	mu        sync.Mutex
	queue     taskHeap
	active    map[types.ID]*taskRecord
	completed map[types.ID]*TaskResult
	latest    map[string]*TaskResult
	seq       uint64
	running   bool
	stopped   bool

	baseCtx    context.Context
	cancelBase context.CancelFunc

	// slots holds the free worker slot numbers; acquiring a slot before
	// popping the queue keeps dispatch order strict even under a full
	// pool.
	slots        chan int
	wake         chan struct{}
	stopCh       chan struct{}
	dispatchDone chan struct{}
	workers      sync.WaitGroup
}

// New creates an orchestrator publishing on bus. The orchestrator is
// inert until Start is called; engines may be registered before Start.
func New(bus events.EventBus, opts ...Option) (*Orchestrator, error) {
	if bus == nil {
		return nil, fmt.Errorf("event bus cannot be nil")
	}

	o := &Orchestrator{
		registry:      engine.NewRegistry(),
		bus:           bus,
		logger:        slog.Default(),
		tracer:        noop.NewTracerProvider().Tracer("orchestrator"),
		workerCount:   DefaultWorkers,
		queueCapacity: DefaultQueueCapacity,
		pollInterval:  DefaultPollInterval,
		active:        make(map[types.ID]*taskRecord),
		completed:     make(map[types.ID]*TaskResult),
		latest:        make(map[string]*TaskResult),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Start launches the dispatch loop and worker pool. Calling Start on a
// running orchestrator is a no-op; calling it after Stop fails with an
// ORCHESTRATOR_STOPPED error.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return types.NewError(types.ORCHESTRATOR_STOPPED, "orchestrator has been stopped")
	}
	if o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = true

	if ctx == nil {
		ctx = context.Background()
	}
	o.baseCtx, o.cancelBase = context.WithCancel(ctx)
	o.stopCh = make(chan struct{})
	o.wake = make(chan struct{}, 1)
	o.dispatchDone = make(chan struct{})
	o.slots = make(chan int, o.workerCount)
	for i := 0; i < o.workerCount; i++ {
		o.slots <- i
	}
	hasPending := o.queue.Len() > 0
	o.mu.Unlock()

	go o.dispatchLoop()
	if hasPending {
		o.signalWake()
	}

	o.logger.Info("orchestrator started",
		"workers", o.workerCount, "queue_capacity", o.queueCapacity)
	o.publish(events.EventOrchestratorStarted, "", "", events.OrchestratorStartedPayload{
		Workers:       o.workerCount,
		QueueCapacity: o.queueCapacity,
	})
	return nil
}

// Stop shuts the scheduler down: intake stops, pending tasks are
// cancelled, and running tasks get up to timeout to finish before their
// bookkeeping is forced to cancelled. Stop is idempotent; a second call
// returns nil immediately. Exceeding the timeout still completes
// bookkeeping and returns a SHUTDOWN_TIMEOUT error.
func (o *Orchestrator) Stop(timeout time.Duration) error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return nil
	}
	o.stopped = true
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	close(o.stopCh)

	// Remove every pending task from the queue before waiting on the
	// pool; none of them may dispatch after Stop.
	var cancelled []*TaskResult
	now := time.Now().UTC()
	for o.queue.Len() > 0 {
		rec := heap.Pop(&o.queue).(*taskRecord)
		rec.status = types.TaskStatusCancelled
		rec.completedAt = now
		snap := rec.snapshot()
		delete(o.active, rec.task.ID)
		o.completed[rec.task.ID] = snap
		cancelled = append(cancelled, snap)
	}
	o.mu.Unlock()

	o.publish(events.EventOrchestratorStopping, "", "", nil)
	for _, snap := range cancelled {
		o.publish(events.EventTaskCancelled, snap.TaskID, snap.Domain,
			events.TaskCancelledPayload{TaskID: snap.TaskID, Domain: snap.Domain})
	}

	start := time.Now()
	done := make(chan struct{})
	go func() {
		o.workers.Wait()
		close(done)
	}()

	graceful := true
	if timeout <= 0 {
		<-done
	} else {
		select {
		case <-done:
		case <-time.After(timeout):
			graceful = false
		}
	}

	// Cancel in-flight task contexts and force bookkeeping for any task
	// whose worker is being abandoned. The worker's own terminal pass
	// skips records that are already terminal.
	o.cancelBase()
	var abandoned []*TaskResult
	if !graceful {
		o.mu.Lock()
		now = time.Now().UTC()
		for id, rec := range o.active {
			rec.cancelRequested = true
			rec.status = types.TaskStatusCancelled
			rec.completedAt = now
			snap := rec.snapshot()
			delete(o.active, id)
			o.completed[id] = snap
			abandoned = append(abandoned, snap)
		}
		o.mu.Unlock()
	}

	<-o.dispatchDone

	for _, snap := range abandoned {
		o.publish(events.EventTaskCancelled, snap.TaskID, snap.Domain,
			events.TaskCancelledPayload{TaskID: snap.TaskID, Domain: snap.Domain, WhileRunning: true})
	}

	drain := time.Since(start)
	o.publish(events.EventOrchestratorStopped, "", "", events.OrchestratorStoppedPayload{
		Graceful:         graceful,
		DrainDuration:    drain,
		PendingCancelled: len(cancelled),
	})

	if !graceful {
		o.logger.Warn("orchestrator stop exceeded timeout",
			"timeout", timeout, "abandoned", len(abandoned))
		return types.NewError(types.SHUTDOWN_TIMEOUT,
			fmt.Sprintf("worker pool did not drain within %s", timeout))
	}
	o.logger.Info("orchestrator stopped",
		"drain", drain, "pending_cancelled", len(cancelled))
	return nil
}

// RegisterEngine adds an engine under its domain name. Registering a
// name that is already taken replaces the engine for tasks dispatched
// afterward; in-flight tasks keep the engine captured at dispatch time.
func (o *Orchestrator) RegisterEngine(e engine.Engine) error {
	replaced, err := o.registry.Register(e)
	if err != nil {
		return err
	}
	o.logger.Info("engine registered", "domain", e.Name(), "replaced", replaced)
	o.publish(events.EventEngineRegistered, "", e.Name(),
		events.EngineRegisteredPayload{Name: e.Name(), Replaced: replaced})
	return nil
}

// UnregisterEngine removes the engine for a domain. Returns false when
// no engine is registered under the name. Tasks already dispatched with
// the engine are unaffected; pending tasks for the domain will fail at
// dispatch time.
func (o *Orchestrator) UnregisterEngine(name string) bool {
	if !o.registry.Unregister(name) {
		return false
	}
	o.logger.Info("engine unregistered", "domain", name)
	o.publish(events.EventEngineUnregistered, "", name,
		events.EngineUnregisteredPayload{Name: name})
	return true
}

// Engines returns descriptors for all registered engines, sorted by name.
func (o *Orchestrator) Engines() []engine.Descriptor {
	return o.registry.List()
}

// Domains returns the registered domain names in sorted order.
func (o *Orchestrator) Domains() []string {
	return o.registry.Names()
}

// dispatchLoop pops eligible tasks in (priority, sequence) order and
// hands each to a worker slot until the orchestrator stops.
func (o *Orchestrator) dispatchLoop() {
	defer close(o.dispatchDone)
	for {
		select {
		case <-o.stopCh:
			return
		case <-o.wake:
		}

		for {
			// Slot first, then pop: the next task by priority is chosen
			// at the moment capacity frees up, not earlier.
			var slot int
			select {
			case slot = <-o.slots:
			case <-o.stopCh:
				return
			}

			rec := o.popNext()
			if rec == nil {
				o.slots <- slot
				break
			}
			go o.execute(rec, slot)
		}
	}
}

// popNext removes the highest-priority pending record, transitions it to
// running, and captures its engine. Records whose domain lost its engine
// between submit and dispatch are marked failed in place. Returns nil
// when nothing is pending or the orchestrator stopped. A returned record
// is already counted in the worker pool's wait group; taking the count
// under the same lock that Stop uses to set stopped keeps the add from
// racing Stop's Wait.
func (o *Orchestrator) popNext() *taskRecord {
	var failed []*TaskResult
	defer func() {
		for _, snap := range failed {
			o.publish(events.EventTaskFailed, snap.TaskID, snap.Domain, events.TaskFailedPayload{
				TaskID: snap.TaskID,
				Domain: snap.Domain,
				Error:  snap.Err,
			})
		}
	}()

	o.mu.Lock()
	defer o.mu.Unlock()

	for o.queue.Len() > 0 {
		if o.stopped {
			return nil
		}
		rec := heap.Pop(&o.queue).(*taskRecord)
		if !rec.status.CanTransitionTo(types.TaskStatusRunning) {
			// Cancelled between enqueue and dequeue.
			continue
		}

		eng, ok := o.registry.Get(rec.task.Domain)
		if !ok {
			rec.status = types.TaskStatusFailed
			rec.completedAt = time.Now().UTC()
			rec.errMsg = types.NewError(types.ENGINE_NOT_FOUND,
				fmt.Sprintf("engine for domain %q was unregistered before dispatch", rec.task.Domain)).Error()
			snap := rec.snapshot()
			delete(o.active, rec.task.ID)
			o.completed[rec.task.ID] = snap
			failed = append(failed, snap)
			continue
		}

		rec.eng = eng
		rec.status = types.TaskStatusRunning
		rec.startedAt = time.Now().UTC()
		timeout := rec.task.Timeout
		if timeout <= 0 {
			timeout = o.defaultTimeout
		}
		if timeout > 0 {
			rec.ctx, rec.cancel = context.WithTimeout(o.baseCtx, timeout)
		} else {
			rec.ctx, rec.cancel = context.WithCancel(o.baseCtx)
		}
		o.workers.Add(1)
		return rec
	}
	return nil
}

// execute runs one dispatched task on a worker slot: engine call outside
// the lock, terminal bookkeeping under it, events and callback after.
func (o *Orchestrator) execute(rec *taskRecord, slot int) {
	defer o.workers.Done()
	defer func() { o.slots <- slot }()

	task := rec.task
	ctx, span := o.tracer.Start(rec.ctx, "orchestrator.analyze",
		trace.WithAttributes(
			attribute.String("task.id", task.ID.String()),
			attribute.String("task.domain", task.Domain),
			attribute.Int("task.priority", task.Priority),
		))
	sc := span.SpanContext()

	o.publishSpanned(sc, events.EventTaskStarted, task.ID, task.Domain, events.TaskStartedPayload{
		TaskID:   task.ID,
		Domain:   task.Domain,
		Worker:   slot,
		WaitTime: rec.startedAt.Sub(rec.submittedAt),
	})
	o.logger.Debug("task dispatched",
		"task_id", task.ID.Short(), "domain", task.Domain,
		"priority", task.Priority, "worker", slot)

	var (
		result   *engine.AnalysisResult
		err      error
		panicked bool
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				err = types.NewError(types.ENGINE_PANIC,
					fmt.Sprintf("engine %q panicked: %v", task.Domain, r))
				o.logger.Error("engine panicked",
					"task_id", task.ID.Short(), "domain", task.Domain,
					"panic", r, "stack", string(debug.Stack()))
			}
		}()
		result, err = rec.eng.Analyze(ctx, task.Data, task.Config)
	}()
	rec.cancel()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	o.mu.Lock()
	if rec.status.IsTerminal() {
		// Stop already forced this record to cancelled; the outcome of
		// the abandoned call is discarded.
		o.mu.Unlock()
		return
	}
	rec.completedAt = time.Now().UTC()
	switch {
	case rec.cancelRequested:
		rec.status = types.TaskStatusCancelled
	case err != nil:
		rec.status = types.TaskStatusFailed
		if panicked || types.HasCode(err, types.ENGINE_PANIC) {
			rec.errMsg = err.Error()
		} else {
			rec.errMsg = types.WrapError(types.ENGINE_EXECUTION_FAILED,
				fmt.Sprintf("analysis of domain %q failed", task.Domain), err).Error()
		}
	case result == nil:
		rec.status = types.TaskStatusFailed
		rec.errMsg = types.NewError(types.ENGINE_EXECUTION_FAILED,
			fmt.Sprintf("engine %q returned no result", task.Domain)).Error()
	default:
		rec.status = types.TaskStatusCompleted
		rec.result = result
	}
	snap := rec.snapshot()
	delete(o.active, task.ID)
	o.completed[task.ID] = snap
	if snap.Status == types.TaskStatusCompleted {
		o.latest[task.Domain] = snap
	}
	o.mu.Unlock()

	switch snap.Status {
	case types.TaskStatusCompleted:
		findings := 0
		if snap.Result != nil {
			findings = len(snap.Result.Findings)
		}
		o.logger.Info("task completed",
			"task_id", task.ID.Short(), "domain", task.Domain,
			"duration", snap.Duration, "findings", findings)
		o.publishSpanned(sc, events.EventTaskCompleted, task.ID, task.Domain, events.TaskCompletedPayload{
			TaskID:       task.ID,
			Domain:       task.Domain,
			Duration:     snap.Duration,
			FindingCount: findings,
		})
	case types.TaskStatusFailed:
		o.logger.Warn("task failed",
			"task_id", task.ID.Short(), "domain", task.Domain, "error", snap.Err)
		o.publishSpanned(sc, events.EventTaskFailed, task.ID, task.Domain, events.TaskFailedPayload{
			TaskID:   task.ID,
			Domain:   task.Domain,
			Duration: snap.Duration,
			Error:    snap.Err,
			Panicked: panicked,
		})
	case types.TaskStatusCancelled:
		o.logger.Info("task cancelled while running",
			"task_id", task.ID.Short(), "domain", task.Domain)
		o.publishSpanned(sc, events.EventTaskCancelled, task.ID, task.Domain, events.TaskCancelledPayload{
			TaskID:       task.ID,
			Domain:       task.Domain,
			WhileRunning: true,
		})
	}

	o.runCallback(task, snap)
}

// runCallback invokes the task's completion callback, if any, isolated
// from the scheduler: a panic is recovered, logged, and published as a
// diagnostic without touching the task's recorded outcome.
func (o *Orchestrator) runCallback(task *Task, snap *TaskResult) {
	if task.Callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			cbErr := types.NewError(types.CALLBACK_FAILED,
				fmt.Sprintf("callback for task %s panicked: %v", task.ID.Short(), r))
			o.logger.Error("task callback panicked",
				"task_id", task.ID.Short(), "domain", task.Domain, "panic", r)
			o.publish(events.EventCallbackFailed, task.ID, task.Domain,
				events.CallbackFailedPayload{
					TaskID: task.ID,
					Domain: task.Domain,
					Error:  cbErr.Error(),
				})
		}
	}()
	task.Callback(snap)
}

// publish emits one orchestrator event, logging (never propagating) a
// publish failure. Publishing after the bus closed is a logged no-op.
func (o *Orchestrator) publish(evtType events.EventType, taskID types.ID, domain string, payload any) {
	o.publishSpanned(trace.SpanContext{}, evtType, taskID, domain, payload)
}

// publishSpanned stamps the event with trace correlation IDs when the
// span context is valid. Task execution events carry the analyze span;
// everything else publishes unstamped.
func (o *Orchestrator) publishSpanned(sc trace.SpanContext, evtType events.EventType, taskID types.ID, domain string, payload any) {
	o.mu.Lock()
	ctx := o.baseCtx
	o.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	evt := events.Event{
		Type:      evtType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		TaskID:    taskID,
		Domain:    domain,
		Payload:   payload,
	}
	if sc.IsValid() {
		evt.TraceID = sc.TraceID().String()
		evt.SpanID = sc.SpanID().String()
	}
	if err := o.bus.Publish(ctx, evt); err != nil {
		o.logger.Debug("event publish skipped",
			"event_type", evtType, "error", err)
	}
}

// signalWake nudges the dispatch loop without blocking the caller.
func (o *Orchestrator) signalWake() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}
