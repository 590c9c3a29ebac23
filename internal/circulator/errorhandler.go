package circulator

import (
	"strconv"
	"sync"
	"time"

	"github.com/nordlight/eventbridge/internal/ids"
	"github.com/nordlight/eventbridge/internal/logging"
)

// retryEnqueueTimeout bounds how long a RetryErrorHandler blocks
// re-enqueuing a record, per the "must not block the caller for long"
// contract in spec.md §4.6.
const retryEnqueueTimeout = 100 * time.Millisecond

// DropErrorHandler logs the failure and discards the record. It is the
// default ErrorHandler: simplest policy, no retry, no DLQ.
type DropErrorHandler struct {
	Logger  logging.ServiceLogger
	Metrics *Metrics
}

func (h DropErrorHandler) Handle(record ConnectRecord, reason DropReason, cause error) {
	if h.Logger != nil {
		h.Logger.Error("dropping record", cause, logging.LogFields{
			"runner": string(record.Runner),
			"record": record.ID,
			"reason": string(reason),
		})
	}
	if h.Metrics != nil {
		h.Metrics.ObserveDrop(record.Runner, reason)
	}
}

// DLQErrorHandler routes failed records to a dead-letter SinkTask and
// counts the records it has routed per runner, grounded on the teacher's
// DLQMetrics shape (narrowed from its per-topic message-age and
// retry-count histograms to a single per-runner count).
type DLQErrorHandler struct {
	DeadLetterSink SinkTask
	Logger         logging.ServiceLogger

	mu      sync.Mutex
	current map[RunnerName]uint64
}

// NewDLQErrorHandler constructs a DLQErrorHandler writing to sink.
func NewDLQErrorHandler(sink SinkTask, logger logging.ServiceLogger) *DLQErrorHandler {
	return &DLQErrorHandler{
		DeadLetterSink: sink,
		Logger:         logger,
		current:        make(map[RunnerName]uint64),
	}
}

func (h *DLQErrorHandler) Handle(record ConnectRecord, reason DropReason, cause error) {
	if record.ID == "" {
		record.ID = ids.CreateULID()
	}
	record.Metadata = record.Metadata.Clone().With("dlq_reason", string(reason))
	if cause != nil {
		record.Metadata = record.Metadata.With("dlq_cause", cause.Error())
	}

	h.mu.Lock()
	h.current[record.Runner]++
	h.mu.Unlock()

	if h.DeadLetterSink == nil {
		return
	}
	if err := h.DeadLetterSink.Put([]ConnectRecord{record}); err != nil && h.Logger != nil {
		h.Logger.Error("failed to write to dead letter sink", err, logging.LogFields{
			"runner": string(record.Runner),
		})
	}
}

// CurrentCount reports how many records have been routed to the DLQ for
// runner, for tests and observability.
func (h *DLQErrorHandler) CurrentCount(runner RunnerName) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current[runner]
}

// RetryErrorHandler re-enqueues the record onto the event queue via ctx,
// bounded by MaxAttempts tracked through a metadata counter. Once the
// bound is exceeded it falls through to Fallback (typically a
// DropErrorHandler or DLQErrorHandler). The bounded attempt count mirrors
// the teacher's RetryMiddleware MaxRetries, though the mechanism here is
// re-enqueue rather than router-level retry. The record is re-enqueued
// immediately; there is no backoff delay between attempts.
type RetryErrorHandler struct {
	Context     *Context
	MaxAttempts int
	Fallback    ErrorHandler
}

const retryAttemptMetadataKey = "eventbridge_retry_attempt"

func (h *RetryErrorHandler) Handle(record ConnectRecord, reason DropReason, cause error) {
	attempts := 0
	if raw, ok := record.Metadata[retryAttemptMetadataKey]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			attempts = n
		}
	}

	if attempts >= h.MaxAttempts {
		if h.Fallback != nil {
			h.Fallback.Handle(record, reason, cause)
		}
		return
	}

	record.Metadata = record.Metadata.Clone().With(retryAttemptMetadataKey, strconv.Itoa(attempts+1))
	if err := h.Context.Enqueue(record, time.Now().Add(retryEnqueueTimeout)); err != nil && h.Fallback != nil {
		h.Fallback.Handle(record, reason, cause)
	}
}
