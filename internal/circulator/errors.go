package circulator

import sterrors "errors"

var (
	ErrRunnerNotFound        = sterrors.New("circulator: runner not found")
	ErrTargetQueueFull       = sterrors.New("circulator: target queue full")
	ErrEventQueueFull        = sterrors.New("circulator: event queue full")
	ErrNoTransformEngine     = sterrors.New("circulator: no transform engine registered for runner")
	ErrNoSink                = sterrors.New("circulator: no sink registered for runner")
	ErrExecutorSaturated     = sterrors.New("circulator: executor queue saturated")
	ErrWorkerShutdownTimeout = sterrors.New("circulator: worker did not stop within the join timeout")
)
