package circulator

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveRecordsCwndAndBatchCount(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NoError(t, m.Register())

	estimate := EstimateMetrics{Runner: "r1", Stage: StageTransform, BatchSize: 5}
	published := RunnerMetrics{Runner: "r1", Stage: StageTransform, Cwnd: 7, Ssthresh: 64}

	m.Observe(estimate, published)

	families, err := registry.Gather()
	require.NoError(t, err)

	var foundCwnd bool
	for _, fam := range families {
		if fam.GetName() == "eventbridge_circulator_cwnd" {
			foundCwnd = true
			require.Len(t, fam.Metric, 1)
			require.Equal(t, float64(7), fam.Metric[0].GetGauge().GetValue())
		}
	}
	require.True(t, foundCwnd, "expected a cwnd gauge series to be registered")
}

func TestMetrics_ObserveDropIncrementsByRunnerAndReason(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NoError(t, m.Register())

	m.ObserveDrop("r1", ReasonSinkError)
	m.ObserveDrop("r1", ReasonSinkError)

	families, err := registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, fam := range families {
		if fam.GetName() == "eventbridge_circulator_drops_total" {
			found = true
			require.Len(t, fam.Metric, 1)
			require.Equal(t, float64(2), fam.Metric[0].GetCounter().GetValue())
		}
	}
	require.True(t, found, "expected a drops_total counter series to be registered")
}

func TestMetrics_RegisterIsIdempotent(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	require.NoError(t, m.Register())
	require.NoError(t, m.Register())
}
