// Package transformengines provides concrete circulator.TransformEngine
// implementations: identity passthrough, typed JSON and protobuf mappers,
// and a chain combinator, adapted from the runtime's typed-handler idiom
// to the transform stage's one-record-in, zero-or-one-record-out contract.
package transformengines

import "github.com/nordlight/eventbridge/internal/circulator"

// Func adapts a plain function into a circulator.TransformEngine with a
// fixed TransformSize of 1.
type Func func(record circulator.ConnectRecord) (*circulator.ConnectRecord, error)

func (f Func) DoTransforms(record circulator.ConnectRecord) (*circulator.ConnectRecord, error) {
	return f(record)
}

func (f Func) TransformSize() int { return 1 }

// Sized wraps an engine to report a different TransformSize without
// altering its DoTransforms behavior.
type Sized struct {
	circulator.TransformEngine
	Size int
}

func (s Sized) TransformSize() int {
	if s.Size <= 0 {
		return 1
	}
	return s.Size
}
