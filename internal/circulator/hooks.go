package circulator

import "time"

// BatchContext describes one transform or push batch to a BatchHooks
// callback.
type BatchContext struct {
	Runner    RunnerName
	Stage     Stage
	BatchSize int
	StartedAt time.Time
	Duration  time.Duration
}

// BatchHooks are optional observability callbacks invoked around every
// transform and push batch. Nil hooks are simply not called.
type BatchHooks struct {
	OnBatchStart func(ctx BatchContext)
	OnBatchDone  func(ctx BatchContext)
	OnBatchError func(ctx BatchContext, err error)
}

// Merge combines two BatchHooks, calling h's hooks before other's.
func (h BatchHooks) Merge(other BatchHooks) BatchHooks {
	return BatchHooks{
		OnBatchStart: chainStart(h.OnBatchStart, other.OnBatchStart),
		OnBatchDone:  chainDone(h.OnBatchDone, other.OnBatchDone),
		OnBatchError: chainError(h.OnBatchError, other.OnBatchError),
	}
}

func chainStart(a, b func(BatchContext)) func(BatchContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx BatchContext) {
		a(ctx)
		b(ctx)
	}
}

func chainDone(a, b func(BatchContext)) func(BatchContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx BatchContext) {
		a(ctx)
		b(ctx)
	}
}

func chainError(a, b func(BatchContext, error)) func(BatchContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx BatchContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// LoggingHooks returns pre-built hooks that log batch lifecycle events.
func LoggingHooks(logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}) BatchHooks {
	return BatchHooks{
		OnBatchDone: func(ctx BatchContext) {
			logger.Info("batch completed", map[string]interface{}{
				"runner":      string(ctx.Runner),
				"stage":       string(ctx.Stage),
				"batch_size":  ctx.BatchSize,
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
		OnBatchError: func(ctx BatchContext, err error) {
			logger.Error("batch failed", err, map[string]interface{}{
				"runner":      string(ctx.Runner),
				"stage":       string(ctx.Stage),
				"batch_size":  ctx.BatchSize,
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
	}
}
