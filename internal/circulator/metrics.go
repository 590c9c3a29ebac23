package circulator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the circulator's two coupled feedback loops to
// Prometheus: the cwnd/ssthresh/rwnd gauges per (runner, stage), plus
// batch and error counters. The constructor/registration idiom mirrors the
// teacher's DLQMetrics: namespaced *Vec collectors tolerant of
// AlreadyRegisteredError, with a Reset for tests.
type Metrics struct {
	mu sync.Mutex

	cwnd      *prometheus.GaugeVec
	ssthresh  *prometheus.GaugeVec
	rwnd      *prometheus.GaugeVec
	batches   *prometheus.CounterVec
	batchSize *prometheus.HistogramVec
	errors    *prometheus.CounterVec
	drops     *prometheus.CounterVec

	registerer prometheus.Registerer
	registered bool
}

func newGaugeVec(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "eventbridge",
		Subsystem: "circulator",
		Name:      name,
		Help:      help,
	}, []string{"runner", "stage"})
}

func newCounterVec(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventbridge",
		Subsystem: "circulator",
		Name:      name,
		Help:      help,
	}, []string{"runner", "stage"})
}

// NewMetrics creates the circulator's Prometheus collectors. Pass nil to
// use the default registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		registerer: registerer,
		cwnd:       newGaugeVec("cwnd", "Current congestion window per runner and stage"),
		ssthresh:   newGaugeVec("ssthresh", "Current slow-start threshold per runner and stage"),
		rwnd:       newGaugeVec("rwnd", "Last observed receiver window per runner and stage"),
		batches:    newCounterVec("batches_total", "Total batches processed per runner and stage"),
		batchSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eventbridge",
			Subsystem: "circulator",
			Name:      "batch_size",
			Help:      "Observed batch sizes per runner and stage",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
		}, []string{"runner", "stage"}),
		errors: newCounterVec("errors_total", "Total error batches per runner and stage"),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventbridge",
			Subsystem: "circulator",
			Name:      "drops_total",
			Help:      "Total records routed to the Error Handler, by runner and drop reason",
		}, []string{"runner", "reason"}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{m.cwnd, m.ssthresh, m.rwnd, m.batches, m.batchSize, m.errors, m.drops}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// Observe records the outcome of one batch and the metrics the estimator
// published for it.
func (m *Metrics) Observe(estimate EstimateMetrics, published RunnerMetrics) {
	runner := string(estimate.Runner)
	stage := string(estimate.Stage)

	m.cwnd.WithLabelValues(runner, stage).Set(float64(published.Cwnd))
	m.ssthresh.WithLabelValues(runner, stage).Set(float64(published.Ssthresh))
	if published.Rwnd > 0 {
		m.rwnd.WithLabelValues(runner, stage).Set(float64(published.Rwnd))
	}
	m.batches.WithLabelValues(runner, stage).Inc()
	m.batchSize.WithLabelValues(runner, stage).Observe(float64(estimate.BatchSize))
	if estimate.Error {
		m.errors.WithLabelValues(runner, stage).Inc()
	}
}

// ObserveDrop records one record routed to the Error Handler for reason.
func (m *Metrics) ObserveDrop(runner RunnerName, reason DropReason) {
	m.drops.WithLabelValues(string(runner), string(reason)).Inc()
}

// Reset clears all recorded series. Useful for tests.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cwnd.Reset()
	m.ssthresh.Reset()
	m.rwnd.Reset()
	m.batches.Reset()
	m.batchSize.Reset()
	m.errors.Reset()
	m.drops.Reset()
}
