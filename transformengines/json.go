package transformengines

import (
	"fmt"

	"github.com/nordlight/eventbridge/internal/circulator"
	"github.com/nordlight/eventbridge/internal/jsoncodec"
)

// JSONMapFunc maps a typed inbound payload to a typed outbound payload. A
// false ok return drops the record (acked, not forwarded); a non-nil error
// routes the record to the Error Handler.
type JSONMapFunc[T any, O any] func(in T) (out O, ok bool, err error)

// JSON is a TransformEngine that unmarshals a record's payload as T,
// applies Map, and marshals the result back as the record's new payload.
// It is grounded on the runtime's JSONMessageHandler shape, narrowed from
// "one message in, many messages out" to the transform stage's
// one-in-zero-or-one-out contract.
type JSON[T any, O any] struct {
	Map  JSONMapFunc[T, O]
	Size int
}

func (j JSON[T, O]) DoTransforms(record circulator.ConnectRecord) (*circulator.ConnectRecord, error) {
	var in T
	if err := jsoncodec.Unmarshal(record.Payload, &in); err != nil {
		return nil, fmt.Errorf("transformengines: unmarshaling JSON payload: %w", err)
	}

	out, ok, err := j.Map(in)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	payload, err := jsoncodec.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("transformengines: marshaling JSON payload: %w", err)
	}

	result := record
	result.Payload = payload
	return &result, nil
}

func (j JSON[T, O]) TransformSize() int {
	if j.Size <= 0 {
		return 1
	}
	return j.Size
}
