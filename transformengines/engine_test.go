package transformengines

import (
	"errors"
	"testing"

	"github.com/nordlight/eventbridge/internal/circulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunc_DelegatesToWrappedFunction(t *testing.T) {
	called := false
	f := Func(func(r circulator.ConnectRecord) (*circulator.ConnectRecord, error) {
		called = true
		return &r, nil
	})

	out, err := f.DoTransforms(circulator.ConnectRecord{ID: "1"})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, called)
	assert.Equal(t, 1, f.TransformSize())
}

func TestSized_OverridesTransformSizeOnly(t *testing.T) {
	boom := errors.New("boom")
	inner := Func(func(r circulator.ConnectRecord) (*circulator.ConnectRecord, error) { return nil, boom })
	sized := Sized{TransformEngine: inner, Size: 4}

	_, err := sized.DoTransforms(circulator.ConnectRecord{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, sized.TransformSize())
}

func TestSized_NonPositiveSizeFallsBackToOne(t *testing.T) {
	sized := Sized{TransformEngine: Identity{}, Size: 0}
	assert.Equal(t, 1, sized.TransformSize())
}
