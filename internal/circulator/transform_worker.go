package circulator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/nordlight/eventbridge/internal/logging"
)

var transformTracer = otel.Tracer("github.com/nordlight/eventbridge/internal/circulator")

// TransformWorker is the long-running worker behind the transform stage
// (C5): one per runner, implementing spec.md §4.2's ten-step loop.
type TransformWorker struct {
	Runner        RunnerName
	Context       *Context
	Estimator     *Estimator
	OffsetManager OffsetManager
	ErrorHandler  ErrorHandler
	Hooks         BatchHooks
	Logger        logging.ServiceLogger
	Metrics       *Metrics
	Config        BridgeConfig
	Concurrency   int

	stopped atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	once    sync.Once
}

// NewTransformWorker constructs a TransformWorker. Concurrency bounds the
// shared asynchronous executor used for per-record fan-out within a
// batch; it is taken from cfg.ExecutorWorkers (4 when that is not
// positive). A runner's own ExecutorWorkers override does not apply to it.
func NewTransformWorker(runner RunnerName, circCtx *Context, estimator *Estimator, offsetMgr OffsetManager, errHandler ErrorHandler, hooks BatchHooks, logger logging.ServiceLogger, metrics *Metrics, cfg BridgeConfig) *TransformWorker {
	concurrency := cfg.ExecutorWorkers
	if concurrency <= 0 {
		concurrency = 4
	}
	return &TransformWorker{
		Runner:        runner,
		Context:       circCtx,
		Estimator:     estimator,
		OffsetManager: offsetMgr,
		ErrorHandler:  errHandler,
		Hooks:         hooks,
		Logger:        logger,
		Metrics:       metrics,
		Config:        cfg,
		Concurrency:   concurrency,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Stop signals the worker to exit at the next loop boundary. It does not
// wait for the worker to actually exit — use Join for that.
func (w *TransformWorker) Stop() {
	w.once.Do(func() {
		w.stopped.Store(true)
		close(w.stopCh)
	})
}

// Join blocks until the worker loop exits or timeout elapses, returning
// false (ErrWorkerShutdownTimeout semantics) on timeout.
func (w *TransformWorker) Join(timeout time.Duration) bool {
	select {
	case <-w.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Run executes the worker loop until Stop is called. It should be run on
// its own goroutine.
func (w *TransformWorker) Run() {
	defer close(w.doneCh)

	for !w.stopped.Load() {
		w.iterate()
	}
}

func (w *TransformWorker) iterate() {
	metrics, ok := w.Context.GetTransformMetrics(w.Runner)
	if !ok {
		w.interruptibleWait(w.Config.TransformEmptyWait)
		return
	}

	records := w.Context.TakeEventRecord(w.Runner, metrics.Cwnd)
	if len(records) == 0 {
		w.interruptibleWait(w.Config.TransformEmptyWait)
		return
	}

	engines := w.Context.GetTaskTransformMap()
	engine, ok := engines[w.Runner]
	if !ok {
		w.interruptibleWait(w.Config.TransformNoEngineWait)
		return
	}

	w.runBatch(records, engine, metrics)
}

func (w *TransformWorker) runBatch(records []ConnectRecord, engine TransformEngine, prior RunnerMetrics) {
	start := time.Now()
	if w.Hooks.OnBatchStart != nil {
		w.Hooks.OnBatchStart(BatchContext{Runner: w.Runner, Stage: StageTransform, BatchSize: len(records), StartedAt: start})
	}

	spanCtx, span := transformTracer.Start(context.Background(), "TransformBatch")
	span.SetAttributes(
		attribute.String("runner", string(w.Runner)),
		attribute.String("stage", string(StageTransform)),
		attribute.Int("batch_size", len(records)),
	)
	defer span.End()

	groupCtx, cancel := context.WithCancel(spanCtx)
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-groupCtx.Done():
		}
	}()

	group, gctx := errgroup.WithContext(groupCtx)
	group.SetLimit(w.Concurrency)

	var mu sync.Mutex
	var afterTransform []ConnectRecord

	for _, record := range records {
		record := record
		group.Go(func() error {
			if gctx.Err() != nil {
				w.ErrorHandler.Handle(record, ReasonExecutorRejection, gctx.Err())
				return gctx.Err()
			}
			return w.transformOne(record, engine, &mu, &afterTransform)
		})
	}

	batchErr := group.Wait()
	end := time.Now()

	if batchErr != nil {
		w.handleBatchFailure(afterTransform, prior, start, end, batchErr)
		return
	}

	w.Context.OfferTargetTaskQueue(afterTransform)

	finalCwnd := prior.Cwnd * maxInt(engine.TransformSize(), 1)
	finalCwnd = minInt(finalCwnd, CwndMax)

	rwnd := 0
	if pushMetrics, ok := w.Context.GetPushMetrics(w.Runner); ok {
		rwnd = pushMetrics.Cwnd
	}

	remaining, capacity, _ := w.Context.TargetQueueStats(w.Runner)

	estimate := EstimateMetrics{
		Runner:                       w.Runner,
		Stage:                        StageTransform,
		BatchSize:                    len(afterTransform),
		PriorCwnd:                    finalCwnd,
		PriorSsthresh:                prior.Ssthresh,
		Rwnd:                         rwnd,
		StartTimestamp:               start,
		EndTimestamp:                 end,
		WorkerQueueRemainingCapacity: remaining,
		WorkerQueueCapacity:          capacity,
	}
	result := w.Estimator.Compute(estimate)
	w.Context.PublishTransformMetrics(result)
	if w.Metrics != nil {
		w.Metrics.Observe(estimate, result)
	}

	if w.Hooks.OnBatchDone != nil {
		w.Hooks.OnBatchDone(BatchContext{Runner: w.Runner, Stage: StageTransform, BatchSize: len(records), StartedAt: start, Duration: end.Sub(start)})
	}
}

// transformOne implements the per-record pipeline in spec.md §4.2 step 5:
// success→append, drop (nil, nil)→commit, error→Error Handler.
func (w *TransformWorker) transformOne(record ConnectRecord, engine TransformEngine, mu *sync.Mutex, afterTransform *[]ConnectRecord) error {
	out, err := engine.DoTransforms(record)
	if err != nil {
		w.ErrorHandler.Handle(record, ReasonTransformError, err)
		return nil
	}
	if out == nil {
		if commitErr := w.OffsetManager.Commit([]ConnectRecord{record}); commitErr != nil && w.Logger != nil {
			w.Logger.Error("failed to commit dropped record", commitErr, logging.LogFields{"runner": string(w.Runner)})
		}
		return nil
	}

	mu.Lock()
	*afterTransform = append(*afterTransform, *out)
	mu.Unlock()
	return nil
}

// handleBatchFailure implements spec.md §4.2 step 10: the batch-level
// await itself failed (executor rejection via worker shutdown). Records
// already queued to the target queue are not re-routed — only the ones
// collected so far, which have not yet been forwarded.
func (w *TransformWorker) handleBatchFailure(collected []ConnectRecord, prior RunnerMetrics, start, end time.Time, cause error) {
	for _, r := range collected {
		w.ErrorHandler.Handle(r, ReasonExecutorRejection, cause)
	}

	estimate := EstimateMetrics{
		Runner:         w.Runner,
		Stage:          StageTransform,
		PriorCwnd:      prior.Cwnd,
		PriorSsthresh:  prior.Ssthresh,
		StartTimestamp: start,
		EndTimestamp:   end,
		Error:          true,
	}
	result := w.Estimator.Compute(estimate)
	w.Context.PublishTransformMetrics(result)
	if w.Metrics != nil {
		w.Metrics.Observe(estimate, result)
	}
	if w.Hooks.OnBatchError != nil {
		w.Hooks.OnBatchError(BatchContext{Runner: w.Runner, Stage: StageTransform, StartedAt: start, Duration: end.Sub(start)}, cause)
	}
}

// interruptibleWait blocks for d, waking early if Stop is called.
func (w *TransformWorker) interruptibleWait(d time.Duration) {
	select {
	case <-time.After(d):
	case <-w.stopCh:
	}
}
