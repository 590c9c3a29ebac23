package transformengines

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/nordlight/eventbridge/internal/circulator"
)

// ProtoMapFunc maps a typed inbound protobuf message to a typed outbound
// one, with the same drop/error semantics as JSONMapFunc.
type ProtoMapFunc[T proto.Message, O proto.Message] func(in T) (out O, ok bool, err error)

// Proto is a TransformEngine that unmarshals a record's payload as T via
// protojson, applies Map, and marshals the result back. Grounded on the
// runtime's ProtoMessageHandler/BuildProtoHandler shape.
type Proto[T proto.Message, O proto.Message] struct {
	NewIn  func() T
	Map    ProtoMapFunc[T, O]
	Size   int
}

func (p Proto[T, O]) DoTransforms(record circulator.ConnectRecord) (*circulator.ConnectRecord, error) {
	in := p.NewIn()
	if err := protojson.Unmarshal(record.Payload, in); err != nil {
		return nil, fmt.Errorf("transformengines: unmarshaling proto payload: %w", err)
	}

	out, ok, err := p.Map(in)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	payload, err := protojson.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("transformengines: marshaling proto payload: %w", err)
	}

	result := record
	result.Payload = payload
	return &result, nil
}

func (p Proto[T, O]) TransformSize() int {
	if p.Size <= 0 {
		return 1
	}
	return p.Size
}
