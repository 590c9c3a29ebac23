package circulator

import (
	"sync"
	"sync/atomic"
	"time"
)

// runnerBundle is the per-runner resource bundle described in spec.md §3.
// The Circulator Context is its only mutator; workers only ever read from
// it through the Context's snapshot-style accessors.
type runnerBundle struct {
	eventQueue  *recordQueue
	targetQueue *recordQueue

	transformEngine TransformEngine
	sinkTask        SinkTask
	executor        *Executor

	// transformMetrics and pushMetrics are atomic cells: always replaced
	// wholesale, never read-modify-written across the Context boundary.
	transformMetrics atomic.Pointer[RunnerMetrics]
	pushMetrics      atomic.Pointer[RunnerMetrics]
}

// Context is the Circulator Context (C2): the concurrency-safe broker of
// queues, metrics, transform engines, sinks, and executor pools keyed by
// runner. It owns the bundle map exclusively; every read is a snapshot,
// every write an atomic replace, and no lock is ever held across a sink or
// transform call.
type Context struct {
	mu      sync.RWMutex
	bundles map[RunnerName]*runnerBundle

	config       BridgeConfig
	errorHandler ErrorHandler
}

// NewContext constructs an empty Circulator Context. errorHandler receives
// records the Context itself cannot route (BACKPRESSURE_DROP overflow);
// workers route their own TransformError/SinkError failures directly.
func NewContext(config BridgeConfig, errorHandler ErrorHandler) *Context {
	if errorHandler == nil {
		errorHandler = DropErrorHandler{}
	}
	return &Context{
		bundles:      make(map[RunnerName]*runnerBundle),
		config:       config.withDefaults(),
		errorHandler: errorHandler,
	}
}

// PutRunner installs (or atomically replaces) the bundle for cfg's runner.
// It is the Lifecycle Manager's sole means of mutating the bundle map; the
// old bundle, if any, is returned so the caller can drain it per policy.
func (c *Context) PutRunner(cfg TargetRunnerConfig) (old *runnerBundle, isNew bool) {
	runner := cfg.SubscribeRunnerKeys.RunnerName

	eventCap := cfg.EventQueueCapacity
	if eventCap <= 0 {
		eventCap = c.config.EventQueueCapacity
	}
	targetCap := cfg.TargetQueueCapacity
	if targetCap <= 0 {
		targetCap = c.config.TargetQueueCapacity
	}
	workers := cfg.ExecutorWorkers
	if workers <= 0 {
		workers = c.config.ExecutorWorkers
	}
	queueCap := cfg.ExecutorQueueCapacity
	if queueCap <= 0 {
		queueCap = c.config.ExecutorQueueCapacity
	}

	bundle := &runnerBundle{
		eventQueue:      newRecordQueue(eventCap),
		targetQueue:     newRecordQueue(targetCap),
		transformEngine: cfg.TransformEngine,
		sinkTask:        cfg.SinkTask,
		executor:        NewExecutor(workers, queueCap),
	}
	initial := RunnerMetrics{Runner: runner, Cwnd: c.config.CwndInitial, Ssthresh: c.config.SsthreshInitial}
	transformInit, pushInit := initial, initial
	transformInit.Stage, pushInit.Stage = StageTransform, StagePush
	bundle.transformMetrics.Store(&transformInit)
	bundle.pushMetrics.Store(&pushInit)

	c.mu.Lock()
	old, isNew = c.bundles[runner], c.bundles[runner] == nil
	c.bundles[runner] = bundle
	c.mu.Unlock()

	return old, isNew
}

// RemoveRunner deletes the bundle mapping and returns it so the caller can
// drain queued records per the onDelete policy in spec.md §3's Lifecycle
// section.
func (c *Context) RemoveRunner(runner RunnerName) (*runnerBundle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bundle, ok := c.bundles[runner]
	if ok {
		delete(c.bundles, runner)
	}
	return bundle, ok
}

// Runners returns a snapshot of the currently configured runner names.
func (c *Context) Runners() []RunnerName {
	c.mu.RLock()
	defer c.mu.RUnlock()

	runners := make([]RunnerName, 0, len(c.bundles))
	for name := range c.bundles {
		runners = append(runners, name)
	}
	return runners
}

func (c *Context) lookup(runner RunnerName) (*runnerBundle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bundle, ok := c.bundles[runner]
	return bundle, ok
}

// Enqueue pushes a single inbound record onto eventQueue[runner]. This is
// the enqueue operation spec.md §6 mentions but does not itself specify;
// it is the inbound source's only entry point into the core.
func (c *Context) Enqueue(record ConnectRecord, deadline time.Time) error {
	bundle, ok := c.lookup(record.Runner)
	if !ok {
		return ErrRunnerNotFound
	}
	if dropped := bundle.eventQueue.Offer([]ConnectRecord{record}, deadline); len(dropped) > 0 {
		return ErrEventQueueFull
	}
	return nil
}

// TakeEventRecord implements spec.md §4.1's takeEventRecord: removes up to
// max records from eventQueue[runner], non-blocking, empty (not error) if
// none available.
func (c *Context) TakeEventRecord(runner RunnerName, max int) []ConnectRecord {
	bundle, ok := c.lookup(runner)
	if !ok {
		return []ConnectRecord{}
	}
	return bundle.eventQueue.TakeUpTo(max)
}

// OfferTargetTaskQueue implements spec.md §4.1's offerTargetTaskQueue:
// routes each record to targetQueue[record.Runner], blocking up to
// config.EnqueueBlock on a full queue before dropping the overflow to the
// Error Handler with reason BACKPRESSURE_DROP.
func (c *Context) OfferTargetTaskQueue(records []ConnectRecord) {
	byRunner := make(map[RunnerName][]ConnectRecord)
	for _, r := range records {
		byRunner[r.Runner] = append(byRunner[r.Runner], r)
	}

	for runner, batch := range byRunner {
		bundle, ok := c.lookup(runner)
		if !ok {
			for _, r := range batch {
				c.errorHandler.Handle(r, ReasonBackpressureDrop, ErrRunnerNotFound)
			}
			continue
		}

		deadline := time.Now().Add(c.config.EnqueueBlock)
		dropped := bundle.targetQueue.Offer(batch, deadline)
		for _, r := range dropped {
			c.errorHandler.Handle(r, ReasonBackpressureDrop, ErrTargetQueueFull)
		}
	}
}

// TakeTargetMap implements spec.md §4.1's takeTargetMap: symmetric to
// TakeEventRecord but against targetQueue[runner].
func (c *Context) TakeTargetMap(runner RunnerName, max int) []ConnectRecord {
	bundle, ok := c.lookup(runner)
	if !ok {
		return []ConnectRecord{}
	}
	return bundle.targetQueue.TakeUpTo(max)
}

// GetTransformMetrics implements getTransformMetrics: returns nothing if
// the runner has been removed, signaling the worker to end its iteration
// early.
func (c *Context) GetTransformMetrics(runner RunnerName) (RunnerMetrics, bool) {
	bundle, ok := c.lookup(runner)
	if !ok {
		return RunnerMetrics{}, false
	}
	m := bundle.transformMetrics.Load()
	if m == nil {
		return RunnerMetrics{}, false
	}
	return *m, true
}

// GetPushMetrics implements getpushMetrics.
func (c *Context) GetPushMetrics(runner RunnerName) (RunnerMetrics, bool) {
	bundle, ok := c.lookup(runner)
	if !ok {
		return RunnerMetrics{}, false
	}
	m := bundle.pushMetrics.Load()
	if m == nil {
		return RunnerMetrics{}, false
	}
	return *m, true
}

// PublishTransformMetrics implements publishTransformMetrics: an atomic
// cell replace, never a read-modify-write.
func (c *Context) PublishTransformMetrics(m RunnerMetrics) {
	bundle, ok := c.lookup(m.Runner)
	if !ok {
		return
	}
	bundle.transformMetrics.Store(&m)
}

// PublishPushMetrics implements publishPushMetrics.
func (c *Context) PublishPushMetrics(m RunnerMetrics) {
	bundle, ok := c.lookup(m.Runner)
	if !ok {
		return
	}
	bundle.pushMetrics.Store(&m)
}

// GetTaskTransformMap implements getTaskTransformMap: a snapshot of every
// runner's installed transform engine.
func (c *Context) GetTaskTransformMap() map[RunnerName]TransformEngine {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[RunnerName]TransformEngine, len(c.bundles))
	for name, bundle := range c.bundles {
		if bundle.transformEngine != nil {
			out[name] = bundle.transformEngine
		}
	}
	return out
}

// GetPusherTaskMap implements getPusherTaskMap: a snapshot of every
// runner's installed sink.
func (c *Context) GetPusherTaskMap() map[RunnerName]SinkTask {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[RunnerName]SinkTask, len(c.bundles))
	for name, bundle := range c.bundles {
		if bundle.sinkTask != nil {
			out[name] = bundle.sinkTask
		}
	}
	return out
}

// GetExecutorService implements getExecutorService.
func (c *Context) GetExecutorService(runner RunnerName) (*Executor, bool) {
	bundle, ok := c.lookup(runner)
	if !ok {
		return nil, false
	}
	return bundle.executor, true
}

// GetExecutorServiceWorkerRemainingCapacity implements
// getExecutorServiceWorkerRemainingCapacity.
func (c *Context) GetExecutorServiceWorkerRemainingCapacity(runner RunnerName) (int, bool) {
	bundle, ok := c.lookup(runner)
	if !ok {
		return 0, false
	}
	return bundle.executor.RemainingCapacity(), true
}

// ExecutorCapacity reports the total backlog capacity for runner, used by
// workers to compute the queue-pressure fraction the estimator applies.
func (c *Context) ExecutorCapacity(runner RunnerName) (int, bool) {
	bundle, ok := c.lookup(runner)
	if !ok {
		return 0, false
	}
	return bundle.executor.Capacity(), true
}

// TargetQueueStats reports the target queue's remaining and total
// capacity for runner, the downstream-pressure signal the transform
// worker feeds into the estimator.
func (c *Context) TargetQueueStats(runner RunnerName) (remaining, capacity int, ok bool) {
	bundle, found := c.lookup(runner)
	if !found {
		return 0, 0, false
	}
	return bundle.targetQueue.Remaining(), bundle.targetQueue.Cap(), true
}
