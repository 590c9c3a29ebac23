package transformengines

import "github.com/nordlight/eventbridge/internal/circulator"

// Chain applies a sequence of engines in order, short-circuiting on the
// first drop (nil, nil) or error. Its TransformSize is the product of its
// stages' sizes, modeling the aggregate downstream fan-out the chain as a
// whole represents.
type Chain []circulator.TransformEngine

func (c Chain) DoTransforms(record circulator.ConnectRecord) (*circulator.ConnectRecord, error) {
	current := record
	for _, engine := range c {
		out, err := engine.DoTransforms(current)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, nil
		}
		current = *out
	}
	return &current, nil
}

func (c Chain) TransformSize() int {
	size := 1
	for _, engine := range c {
		if s := engine.TransformSize(); s > 1 {
			size *= s
		}
	}
	return size
}
