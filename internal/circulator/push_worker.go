package circulator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nordlight/eventbridge/internal/logging"
)

var pushTracer = otel.Tracer("github.com/nordlight/eventbridge/internal/circulator")

// PushWorker is the long-running worker behind the push stage (C6): one
// per runner, implementing spec.md §4.3's five-step loop. Unlike the
// transform worker it does not await the sink call — it submits to the
// per-runner executor and immediately loops again.
type PushWorker struct {
	Runner        RunnerName
	Context       *Context
	Estimator     *Estimator
	OffsetManager OffsetManager
	ErrorHandler  ErrorHandler
	Hooks         BatchHooks
	Logger        logging.ServiceLogger
	Metrics       *Metrics
	Config        BridgeConfig

	stopped atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	once    sync.Once
}

// NewPushWorker constructs a PushWorker.
func NewPushWorker(runner RunnerName, circCtx *Context, estimator *Estimator, offsetMgr OffsetManager, errHandler ErrorHandler, hooks BatchHooks, logger logging.ServiceLogger, metrics *Metrics, cfg BridgeConfig) *PushWorker {
	return &PushWorker{
		Runner:        runner,
		Context:       circCtx,
		Estimator:     estimator,
		OffsetManager: offsetMgr,
		ErrorHandler:  errHandler,
		Hooks:         hooks,
		Logger:        logger,
		Metrics:       metrics,
		Config:        cfg,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Stop signals the worker to exit at the next loop boundary.
func (w *PushWorker) Stop() {
	w.once.Do(func() {
		w.stopped.Store(true)
		close(w.stopCh)
	})
}

// Join blocks until the worker loop exits or timeout elapses.
func (w *PushWorker) Join(timeout time.Duration) bool {
	select {
	case <-w.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Run executes the worker loop until Stop is called.
func (w *PushWorker) Run() {
	defer close(w.doneCh)

	for !w.stopped.Load() {
		w.iterate()
	}
}

func (w *PushWorker) iterate() {
	metrics, ok := w.Context.GetPushMetrics(w.Runner)
	if !ok {
		w.interruptibleWait(w.Config.PushEmptyWait)
		return
	}

	records := w.Context.TakeTargetMap(w.Runner, metrics.Cwnd)
	if len(records) == 0 {
		w.interruptibleWait(w.Config.PushEmptyWait)
		return
	}

	start := time.Now()
	sinks := w.Context.GetPusherTaskMap()
	sink, ok := sinks[w.Runner]
	if !ok {
		w.interruptibleWait(w.Config.PushEmptyWait)
		return
	}

	w.submitBatch(records, sink, metrics, start)
}

// submitBatch implements step 4-5: a single task is submitted to the
// per-runner executor and the loop does not wait for it.
func (w *PushWorker) submitBatch(records []ConnectRecord, sink SinkTask, prior RunnerMetrics, start time.Time) {
	executor, ok := w.Context.GetExecutorService(w.Runner)
	if !ok {
		return
	}

	if w.Hooks.OnBatchStart != nil {
		w.Hooks.OnBatchStart(BatchContext{Runner: w.Runner, Stage: StagePush, BatchSize: len(records), StartedAt: start})
	}

	err := executor.Submit(context.Background(), func() {
		w.deliver(records, sink, prior, start)
	})
	if err != nil {
		// ExecutorRejection: treated as a SinkError batch per spec.md §7.
		w.recordFailure(records, prior, start, time.Now(), err, ReasonExecutorRejection)
	}
}

func (w *PushWorker) deliver(records []ConnectRecord, sink SinkTask, prior RunnerMetrics, start time.Time) {
	_, span := pushTracer.Start(context.Background(), "PushBatch")
	span.SetAttributes(
		attribute.String("runner", string(w.Runner)),
		attribute.String("stage", string(StagePush)),
		attribute.Int("batch_size", len(records)),
	)
	defer span.End()

	err := sink.Put(records)
	end := time.Now()

	if err != nil {
		w.recordFailure(records, prior, start, end, err, ReasonSinkError)
		return
	}

	if commitErr := w.OffsetManager.Commit(records); commitErr != nil && w.Logger != nil {
		w.Logger.Error("failed to commit pushed batch", commitErr, logging.LogFields{"runner": string(w.Runner)})
	}

	remaining, capacity := 0, 0
	if r, ok := w.Context.GetExecutorServiceWorkerRemainingCapacity(w.Runner); ok {
		remaining = r
	}
	if c, ok := w.Context.ExecutorCapacity(w.Runner); ok {
		capacity = c
	}

	estimate := EstimateMetrics{
		Runner:                       w.Runner,
		Stage:                        StagePush,
		BatchSize:                    len(records),
		PriorCwnd:                    prior.Cwnd,
		PriorSsthresh:                prior.Ssthresh,
		StartTimestamp:               start,
		EndTimestamp:                 end,
		WorkerQueueRemainingCapacity: remaining,
		WorkerQueueCapacity:          capacity,
	}
	result := w.Estimator.Compute(estimate)
	w.Context.PublishPushMetrics(result)
	if w.Metrics != nil {
		w.Metrics.Observe(estimate, result)
	}
	if w.Hooks.OnBatchDone != nil {
		w.Hooks.OnBatchDone(BatchContext{Runner: w.Runner, Stage: StagePush, BatchSize: len(records), StartedAt: start, Duration: end.Sub(start)})
	}
}

// recordFailure implements step 4's exception branch: publish an error
// batch, route every record to the Error Handler, never commit.
func (w *PushWorker) recordFailure(records []ConnectRecord, prior RunnerMetrics, start, end time.Time, cause error, reason DropReason) {
	for _, r := range records {
		w.ErrorHandler.Handle(r, reason, cause)
	}

	estimate := EstimateMetrics{
		Runner:         w.Runner,
		Stage:          StagePush,
		PriorCwnd:      prior.Cwnd,
		PriorSsthresh:  prior.Ssthresh,
		StartTimestamp: start,
		EndTimestamp:   end,
		Error:          true,
	}
	result := w.Estimator.Compute(estimate)
	w.Context.PublishPushMetrics(result)
	if w.Metrics != nil {
		w.Metrics.Observe(estimate, result)
	}
	if w.Hooks.OnBatchError != nil {
		w.Hooks.OnBatchError(BatchContext{Runner: w.Runner, Stage: StagePush, StartedAt: start, Duration: end.Sub(start)}, cause)
	}
}

func (w *PushWorker) interruptibleWait(d time.Duration) {
	select {
	case <-time.After(d):
	case <-w.stopCh:
	}
}
