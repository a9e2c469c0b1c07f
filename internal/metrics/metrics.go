package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EditorMetrics holds the Prometheus metrics for newsletter editing. A nil
// *EditorMetrics records nothing.
type EditorMetrics struct {
	SyncTotal     *prometheus.CounterVec
	SyncDuration  prometheus.Histogram
	SavesTotal    *prometheus.CounterVec
	FaultsTotal   *prometheus.CounterVec
	FaultsDropped prometheus.Counter
}

// NewEditorMetrics registers the metrics with reg. A nil reg uses the
// default registerer.
func NewEditorMetrics(reg prometheus.Registerer) *EditorMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &EditorMetrics{
		SyncTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsletter_admin",
			Subsystem: "esp",
			Name:      "sync_total",
			Help:      "Total number of campaign synchronizations by result.",
		}, []string{"result"}), // result: ok, connectivity_failure, other_failure
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "newsletter_admin",
			Subsystem: "esp",
			Name:      "sync_duration_seconds",
			Help:      "Time spent synchronizing a campaign with the email service provider.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		}),
		SavesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsletter_admin",
			Subsystem: "editor",
			Name:      "saves_total",
			Help:      "Total number of newsletter saves by outcome.",
		}, []string{"outcome"}), // outcome: created, updated, rejected
		FaultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsletter_admin",
			Subsystem: "faults",
			Name:      "reported_total",
			Help:      "Total number of synchronization faults reported by kind.",
		}, []string{"kind"}),
		FaultsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "newsletter_admin",
			Subsystem: "faults",
			Name:      "publish_failures_total",
			Help:      "Total number of fault reports that could not be published.",
		}),
	}
}

func (m *EditorMetrics) ObserveSync(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.SyncTotal.WithLabelValues(result).Inc()
	m.SyncDuration.Observe(d.Seconds())
}

func (m *EditorMetrics) ObserveSave(outcome string) {
	if m == nil {
		return
	}
	m.SavesTotal.WithLabelValues(outcome).Inc()
}

func (m *EditorMetrics) ObserveFault(kind string, published bool) {
	if m == nil {
		return
	}
	m.FaultsTotal.WithLabelValues(kind).Inc()
	if !published {
		m.FaultsDropped.Inc()
	}
}
