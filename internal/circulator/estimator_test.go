package circulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimator_SlowStartToCongestionAvoidance(t *testing.T) {
	estimator := NewEstimator()

	cwnd, ssthresh := 1, 4
	want := []int{2, 4, 5, 6, 7, 8}

	var got []int
	for i := 0; i < 6; i++ {
		m := EstimateMetrics{
			Runner:         "r1",
			Stage:          StageTransform,
			BatchSize:      3,
			PriorCwnd:      cwnd,
			PriorSsthresh:  ssthresh,
			StartTimestamp: time.Unix(0, 0),
			EndTimestamp:   time.Unix(0, int64(time.Millisecond)),
		}
		result := estimator.Compute(m)
		got = append(got, result.Cwnd)
		cwnd, ssthresh = result.Cwnd, result.Ssthresh
	}

	assert.Equal(t, want, got)
	assert.Equal(t, 4, ssthresh, "ssthresh must stay unchanged across success batches")
}

func TestEstimator_ErrorBatchHalves(t *testing.T) {
	estimator := NewEstimator()

	result := estimator.Compute(EstimateMetrics{
		Runner:        "r1",
		Stage:         StagePush,
		PriorCwnd:     8,
		PriorSsthresh: 64,
		Error:         true,
	})

	require.Equal(t, CwndMin, result.Cwnd)
	require.Equal(t, 4, result.Ssthresh)
}

func TestEstimator_ErrorBatchFloorsAtCwndMin(t *testing.T) {
	estimator := NewEstimator()

	result := estimator.Compute(EstimateMetrics{
		Runner:        "r1",
		Stage:         StagePush,
		PriorCwnd:     1,
		PriorSsthresh: 1,
		Error:         true,
	})

	assert.Equal(t, CwndMin, result.Cwnd)
	assert.Equal(t, CwndMin, result.Ssthresh)
}

func TestEstimator_RwndClampsTransformStageOnly(t *testing.T) {
	estimator := NewEstimator()

	transformResult := estimator.Compute(EstimateMetrics{
		Runner:        "r1",
		Stage:         StageTransform,
		PriorCwnd:     10,
		PriorSsthresh: 64,
		Rwnd:          3,
	})
	assert.Equal(t, 3, transformResult.Cwnd, "rwnd must clamp the transform stage's cwnd")

	pushResult := estimator.Compute(EstimateMetrics{
		Runner:        "r1",
		Stage:         StagePush,
		PriorCwnd:     10,
		PriorSsthresh: 64,
		Rwnd:          3,
	})
	assert.Equal(t, 20, pushResult.Cwnd, "rwnd must not clamp the push stage")
}

func TestEstimator_QueuePressureHalves(t *testing.T) {
	estimator := NewEstimator()

	result := estimator.Compute(EstimateMetrics{
		Runner:                       "r1",
		Stage:                        StagePush,
		PriorCwnd:                    10,
		PriorSsthresh:                64,
		WorkerQueueCapacity:          100,
		WorkerQueueRemainingCapacity: 10,
	})

	assert.Equal(t, 10, result.Cwnd, "below 25% remaining capacity must halve the proposed cwnd")
}

func TestEstimator_CwndNeverBelowMinOrAboveMax(t *testing.T) {
	estimator := NewEstimator()

	low := estimator.Compute(EstimateMetrics{PriorCwnd: 0, PriorSsthresh: 0})
	assert.GreaterOrEqual(t, low.Cwnd, CwndMin)
	assert.GreaterOrEqual(t, low.Ssthresh, CwndMin)

	high := estimator.Compute(EstimateMetrics{PriorCwnd: CwndMax, PriorSsthresh: CwndMax + 1})
	assert.LessOrEqual(t, high.Cwnd, CwndMax)
	assert.LessOrEqual(t, high.Ssthresh, CwndMax)
}

func TestEstimator_Pure(t *testing.T) {
	estimator := NewEstimator()
	m := EstimateMetrics{Runner: "r1", Stage: StageTransform, PriorCwnd: 5, PriorSsthresh: 10}

	first := estimator.Compute(m)
	second := estimator.Compute(m)

	assert.Equal(t, first, second)
}
