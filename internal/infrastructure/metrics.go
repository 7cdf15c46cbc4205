package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for pipeline observability.
// One instance is shared by all runs of a deployment.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RowsSeen        prometheus.Counter
	RowsDropped     *prometheus.CounterVec
	LastDropRate    prometheus.Gauge
	NotifyAttempts  prometheus.Counter
	NotifyFailures  prometheus.Counter
	RunDuration     prometheus.Histogram
}

// NewMetrics registers pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dqpipe_runs_total",
			Help: "Pipeline runs by terminal state",
		}, []string{"state"}),
		RowsSeen: factory.NewCounter(prometheus.CounterOpts{
			Name: "dqpipe_rows_seen_total",
			Help: "Rows read across all runs",
		}),
		RowsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dqpipe_rows_dropped_total",
			Help: "Rows dropped across all runs by reason",
		}, []string{"reason"}),
		LastDropRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dqpipe_last_drop_rate",
			Help: "Drop rate of the most recent completed run",
		}),
		NotifyAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "dqpipe_notify_attempts_total",
			Help: "Notification delivery attempts",
		}),
		NotifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dqpipe_notify_failures_total",
			Help: "Notification delivery attempts that failed",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dqpipe_run_duration_seconds",
			Help:    "End-to-end pipeline run duration",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// NewDefaultMetrics registers on the default Prometheus registry.
func NewDefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}
