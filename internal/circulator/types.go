// Package circulator implements the per-runner execution core of the event
// bridge: the transform/push worker pools, the rate estimator that governs
// their congestion windows, the lifecycle manager that reacts to runner
// add/update/delete notifications, and the circulator context that brokers
// the resources they all share.
package circulator

import (
	"time"

	"github.com/nordlight/eventbridge/internal/metadata"
)

// RunnerName uniquely identifies a configured source-to-target binding.
type RunnerName string

// ConnectRecord is the opaque event payload the core transports and
// eventually commits. The core never inspects Payload; it only carries it
// between stages and hands it to collaborators.
type ConnectRecord struct {
	// ID identifies the record for offset commit purposes. Collaborators
	// that need idempotent acking should key on this field.
	ID string

	// Runner is the binding this record belongs to. Every operation that
	// routes a record (offerTargetTaskQueue, error handling, sink
	// delivery) uses this field, not an out-of-band parameter.
	Runner RunnerName

	// Payload is the event body, untouched by the core.
	Payload []byte

	// Metadata carries headers alongside the payload.
	Metadata metadata.Metadata

	// EnqueuedAt records when the record entered the event queue, used
	// only for observability (not for any core decision).
	EnqueuedAt time.Time
}

// Stage identifies which half of the pipeline an EstimateMetrics or
// RunnerMetrics value describes.
type Stage string

const (
	StageTransform Stage = "TRANS"
	StagePush      Stage = "PUSHER"
)

// RunnerMetrics is the published congestion state for one (runner, stage)
// pair. It is always replaced atomically in the Circulator Context — never
// mutated in place.
type RunnerMetrics struct {
	Runner   RunnerName
	Stage    Stage
	Cwnd     int
	Ssthresh int
	// Rwnd is only meaningful on push-stage metrics observed by the
	// transform stage; zero means "no rwnd supplied".
	Rwnd int
}

// EstimateMetrics is the snapshot a worker hands to the Rate Estimator
// after completing (or failing) a batch.
type EstimateMetrics struct {
	Runner                       RunnerName
	Stage                        Stage
	BatchSize                    int
	PriorCwnd                    int
	PriorSsthresh                int
	Rwnd                         int
	StartTimestamp               time.Time
	EndTimestamp                 time.Time
	WorkerQueueRemainingCapacity int
	WorkerQueueCapacity          int
	Error                        bool
}

// SubscribeRunnerKeys is the part of a runner's configuration the core
// actually consumes. Everything else in TargetRunnerConfig is opaque
// pass-through for collaborators.
type SubscribeRunnerKeys struct {
	RunnerName RunnerName
}

// TargetRunnerConfig is the configuration aggregate the Lifecycle Manager
// receives on onAdd/onUpdate (onDelete takes only the RunnerName).
// SinkTask and TransformEngine are supplements beyond spec.md's bare
// "passed through to collaborators":
// a complete lifecycle manager must be able to build the concrete sink and
// transform chain for the runner it is standing up, not just know its name.
type TargetRunnerConfig struct {
	SubscribeRunnerKeys SubscribeRunnerKeys

	// TransformEngine is the transform chain to install for this runner.
	TransformEngine TransformEngine

	// SinkTask is the sink to install for this runner.
	SinkTask SinkTask

	// EventQueueCapacity and TargetQueueCapacity override the bridge
	// defaults for this runner, when non-zero.
	EventQueueCapacity  int
	TargetQueueCapacity int

	// ExecutorWorkers and ExecutorQueueCapacity size the push executor
	// for this runner, when non-zero.
	ExecutorWorkers       int
	ExecutorQueueCapacity int
}

// TransformEngine is the external collaborator that maps one inbound
// record to zero-or-one transformed records. Concrete implementations live
// in the transformengines package; the core depends only on this
// interface.
type TransformEngine interface {
	// DoTransforms applies the transform chain to record. A nil result
	// with a nil error means "drop by design" (acked, not forwarded). A
	// non-nil error means the record failed and is routed to the Error
	// Handler.
	DoTransforms(record ConnectRecord) (*ConnectRecord, error)

	// TransformSize is the fan-out multiplier the estimator uses to
	// scale the transform stage's cwnd: a single inbound record may
	// yield multiple outbound records downstream.
	TransformSize() int
}

// SinkTask is the external collaborator that delivers a batch of records
// to a downstream destination. Concrete implementations live in the sinks
// package.
type SinkTask interface {
	Put(records []ConnectRecord) error
}

// OffsetManager is the external collaborator that acks records against the
// inbound source. Implementations must be idempotent: WorkerShutdownTimeout
// can cause an abandoned worker's commit to race a newly started one.
type OffsetManager interface {
	Commit(records []ConnectRecord) error
}

// DropReason labels why a record was routed to the Error Handler instead of
// being forwarded or committed.
type DropReason string

const (
	ReasonTransformError    DropReason = "TRANSFORM_ERROR"
	ReasonSinkError         DropReason = "SINK_ERROR"
	ReasonBackpressureDrop  DropReason = "BACKPRESSURE_DROP"
	ReasonExecutorRejection DropReason = "EXECUTOR_REJECTION"
)

// ErrorHandler is the external collaborator that receives records the core
// could not forward or commit. Implementations decide DLQ vs retry vs drop
// and must not block the caller for long.
type ErrorHandler interface {
	Handle(record ConnectRecord, reason DropReason, cause error)
}
