package circulator

import (
	"context"
	"time"

	"github.com/nordlight/eventbridge/internal/logging"
)

// Dependencies holds the optional collaborators a Bridge can use. Leave a
// field nil to fall back to the circulator's own defaults, mirroring the
// ServiceDependencies idiom used to wire the transport layer.
type Dependencies struct {
	ErrorHandler  ErrorHandler
	OffsetManager OffsetManager
	Hooks         BatchHooks
	Metrics       *Metrics
}

// Bridge is the top-level orchestrator: it owns the Circulator Context,
// the Rate Estimator, and the Lifecycle Manager, and is the entry point
// embedding applications use to stand up runners and feed records in.
type Bridge struct {
	Config    BridgeConfig
	Logger    logging.ServiceLogger
	Context   *Context
	Estimator *Estimator
	Metrics   *Metrics
	Lifecycle *Lifecycle

	errorHandler ErrorHandler
}

// NewBridge constructs a Bridge. No runners are started until AddRunner is
// called; Lifecycle.OnAdd-equivalent calls are the caller's responsibility,
// since runner discovery is an external concern (config watch, API call).
func NewBridge(cfg BridgeConfig, log logging.ServiceLogger, deps Dependencies) *Bridge {
	cfg = cfg.withDefaults()

	offsetManager := deps.OffsetManager
	if offsetManager == nil {
		offsetManager = NewNoopOffsetManager()
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if err := metrics.Register(); err != nil && log != nil {
		log.Error("failed to register circulator metrics", err, logging.LogFields{})
	}

	errorHandler := deps.ErrorHandler
	if errorHandler == nil {
		errorHandler = DropErrorHandler{Logger: log, Metrics: metrics}
	}

	estimator := NewEstimator()
	circCtx := NewContext(cfg, errorHandler)
	lifecycle := NewLifecycle(circCtx, estimator, offsetManager, errorHandler, deps.Hooks, log, metrics, cfg)

	return &Bridge{
		Config:       cfg,
		Logger:       log,
		Context:      circCtx,
		Estimator:    estimator,
		Metrics:      metrics,
		Lifecycle:    lifecycle,
		errorHandler: errorHandler,
	}
}

// AddRunner installs a new runner and starts its transform and push
// workers.
func (b *Bridge) AddRunner(cfg TargetRunnerConfig) {
	if b.Logger != nil {
		b.Logger.Info("adding runner", logging.LogFields{"runner": string(cfg.SubscribeRunnerKeys.RunnerName)})
	}
	b.Lifecycle.OnAdd(cfg)
}

// UpdateRunner replaces an existing runner's configuration, restarting its
// workers against the new collaborators.
func (b *Bridge) UpdateRunner(cfg TargetRunnerConfig) {
	if b.Logger != nil {
		b.Logger.Info("updating runner", logging.LogFields{"runner": string(cfg.SubscribeRunnerKeys.RunnerName)})
	}
	b.Lifecycle.OnUpdate(cfg)
}

// RemoveRunner stops and evicts a runner.
func (b *Bridge) RemoveRunner(runner RunnerName) {
	if b.Logger != nil {
		b.Logger.Info("removing runner", logging.LogFields{"runner": string(runner)})
	}
	b.Lifecycle.OnDelete(runner)
}

// Enqueue hands an inbound record to its runner's event queue.
func (b *Bridge) Enqueue(record ConnectRecord) error {
	if record.EnqueuedAt.IsZero() {
		record.EnqueuedAt = time.Now()
	}
	deadline := time.Now().Add(b.Config.EnqueueBlock)
	return b.Context.Enqueue(record, deadline)
}

// Run blocks until ctx is cancelled, then shuts down every managed worker.
func (b *Bridge) Run(ctx context.Context) error {
	<-ctx.Done()
	b.Shutdown()
	return ctx.Err()
}

// Shutdown stops every runner's workers without removing their bundles.
func (b *Bridge) Shutdown() {
	b.Lifecycle.Shutdown()
}
