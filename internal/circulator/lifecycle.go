package circulator

import (
	"sync"

	"github.com/nordlight/eventbridge/internal/logging"
)

// Lifecycle is the Lifecycle Manager (C7): it reacts to onAdd/onUpdate/
// onDelete notifications for a runner's configuration and keeps the
// transform and push worker pools in step with the current runner set.
// Transitions for all runners share a single lock, which is a stronger
// guarantee than spec.md §3 requires (serialization per runner) but keeps
// the worker maps trivially consistent.
type Lifecycle struct {
	context       *Context
	estimator     *Estimator
	offsetManager OffsetManager
	errorHandler  ErrorHandler
	hooks         BatchHooks
	logger        logging.ServiceLogger
	metrics       *Metrics
	config        BridgeConfig

	mu        sync.Mutex
	transform map[RunnerName]*TransformWorker
	push      map[RunnerName]*PushWorker
}

// NewLifecycle constructs a Lifecycle Manager wired to the given
// collaborators. Every worker it starts shares these same collaborators.
func NewLifecycle(circCtx *Context, estimator *Estimator, offsetMgr OffsetManager, errHandler ErrorHandler, hooks BatchHooks, logger logging.ServiceLogger, metrics *Metrics, cfg BridgeConfig) *Lifecycle {
	return &Lifecycle{
		context:       circCtx,
		estimator:     estimator,
		offsetManager: offsetMgr,
		errorHandler:  errHandler,
		hooks:         hooks,
		logger:        logger,
		metrics:       metrics,
		config:        cfg,
		transform:     make(map[RunnerName]*TransformWorker),
		push:          make(map[RunnerName]*PushWorker),
	}
}

// OnAdd installs cfg's runner and starts its transform and push workers.
// It is identical to OnUpdate: both are putWorker in spec.md §3's sense.
func (l *Lifecycle) OnAdd(cfg TargetRunnerConfig) {
	l.putWorker(cfg)
}

// OnUpdate tears down the runner's current workers (if any), installs the
// new configuration, and starts fresh workers against it.
func (l *Lifecycle) OnUpdate(cfg TargetRunnerConfig) {
	l.putWorker(cfg)
}

func (l *Lifecycle) putWorker(cfg TargetRunnerConfig) {
	runner := cfg.SubscribeRunnerKeys.RunnerName

	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopLocked(runner)

	l.context.PutRunner(cfg)

	tw := NewTransformWorker(runner, l.context, l.estimator, l.offsetManager, l.errorHandler, l.hooks, l.logger, l.metrics, l.config)
	pw := NewPushWorker(runner, l.context, l.estimator, l.offsetManager, l.errorHandler, l.hooks, l.logger, l.metrics, l.config)

	l.transform[runner] = tw
	l.push[runner] = pw

	go tw.Run()
	go pw.Run()
}

// OnDelete stops and removes the runner's workers and evicts its bundle
// from the Circulator Context. It does not replace the mapping.
func (l *Lifecycle) OnDelete(runner RunnerName) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopLocked(runner)
	l.context.RemoveRunner(runner)
}

// stopLocked signals and joins any existing workers for runner, logging
// (not failing) on a join timeout per spec.md §7's WorkerShutdownTimeout
// taxonomy entry. Callers must hold l.mu.
func (l *Lifecycle) stopLocked(runner RunnerName) {
	if tw, ok := l.transform[runner]; ok {
		tw.Stop()
		if !tw.Join(l.config.ShutdownWorkerJoinTimeout) && l.logger != nil {
			l.logger.Error("transform worker did not stop within the join timeout", ErrWorkerShutdownTimeout, logging.LogFields{"runner": string(runner)})
		}
		delete(l.transform, runner)
	}
	if pw, ok := l.push[runner]; ok {
		pw.Stop()
		if !pw.Join(l.config.ShutdownWorkerJoinTimeout) && l.logger != nil {
			l.logger.Error("push worker did not stop within the join timeout", ErrWorkerShutdownTimeout, logging.LogFields{"runner": string(runner)})
		}
		delete(l.push, runner)
	}
}

// Runners returns the set of runners currently under management.
func (l *Lifecycle) Runners() []RunnerName {
	l.mu.Lock()
	defer l.mu.Unlock()

	runners := make([]RunnerName, 0, len(l.transform))
	for name := range l.transform {
		runners = append(runners, name)
	}
	return runners
}

// Shutdown stops every managed worker, for use during process shutdown.
func (l *Lifecycle) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for runner := range l.transform {
		l.stopLocked(runner)
	}
}
