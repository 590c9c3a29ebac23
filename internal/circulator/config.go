package circulator

import "time"

// BridgeConfig holds the tuning knobs enumerated in spec.md §6. Any
// TargetRunnerConfig field left at zero falls back to these defaults.
type BridgeConfig struct {
	CwndInitial     int
	SsthreshInitial int

	TransformEmptyWait    time.Duration
	TransformNoEngineWait time.Duration
	PushEmptyWait         time.Duration

	ExecutorWorkers       int
	ExecutorQueueCapacity int

	EventQueueCapacity  int
	TargetQueueCapacity int

	// EnqueueBlock bounds how long offerTargetTaskQueue blocks on a full
	// target queue before dropping the overflow to the Error Handler.
	EnqueueBlock time.Duration

	ShutdownWorkerJoinTimeout time.Duration
}

// DefaultBridgeConfig returns the defaults spec.md §6 names explicitly.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		CwndInitial:               1,
		SsthreshInitial:           64,
		TransformEmptyWait:        1000 * time.Millisecond,
		TransformNoEngineWait:     3000 * time.Millisecond,
		PushEmptyWait:             1000 * time.Millisecond,
		ExecutorWorkers:           4,
		ExecutorQueueCapacity:     64,
		EventQueueCapacity:        1024,
		TargetQueueCapacity:       1024,
		EnqueueBlock:              2 * time.Second,
		ShutdownWorkerJoinTimeout: 5 * time.Second,
	}
}

// withDefaults fills every non-positive field of cfg from
// DefaultBridgeConfig.
func (cfg BridgeConfig) withDefaults() BridgeConfig {
	defaults := DefaultBridgeConfig()
	if cfg.CwndInitial <= 0 {
		cfg.CwndInitial = defaults.CwndInitial
	}
	if cfg.SsthreshInitial <= 0 {
		cfg.SsthreshInitial = defaults.SsthreshInitial
	}
	if cfg.TransformEmptyWait <= 0 {
		cfg.TransformEmptyWait = defaults.TransformEmptyWait
	}
	if cfg.TransformNoEngineWait <= 0 {
		cfg.TransformNoEngineWait = defaults.TransformNoEngineWait
	}
	if cfg.PushEmptyWait <= 0 {
		cfg.PushEmptyWait = defaults.PushEmptyWait
	}
	if cfg.ExecutorWorkers <= 0 {
		cfg.ExecutorWorkers = defaults.ExecutorWorkers
	}
	if cfg.ExecutorQueueCapacity <= 0 {
		cfg.ExecutorQueueCapacity = defaults.ExecutorQueueCapacity
	}
	if cfg.EventQueueCapacity <= 0 {
		cfg.EventQueueCapacity = defaults.EventQueueCapacity
	}
	if cfg.TargetQueueCapacity <= 0 {
		cfg.TargetQueueCapacity = defaults.TargetQueueCapacity
	}
	if cfg.EnqueueBlock <= 0 {
		cfg.EnqueueBlock = defaults.EnqueueBlock
	}
	if cfg.ShutdownWorkerJoinTimeout <= 0 {
		cfg.ShutdownWorkerJoinTimeout = defaults.ShutdownWorkerJoinTimeout
	}
	return cfg
}
