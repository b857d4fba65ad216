package verifier

import (
	"time"

	"github.com/TomCN0803/sdverify/pkg/rule"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultPass = "pass"
	resultFail = "fail"
)

// Metrics holds Prometheus collectors for proof verification.
type Metrics struct {
	Verifications   *prometheus.CounterVec
	PredicateChecks *prometheus.CounterVec
	Duration        prometheus.Histogram
}

// NewMetrics registers verification collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sdverify_verifications_total",
			Help: "Total number of proof verifications, labeled by result and failure class",
		}, []string{"result", "class"}),
		PredicateChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sdverify_predicate_checks_total",
			Help: "Total number of predicate checks, labeled by predicate kind and result",
		}, []string{"kind", "result"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdverify_verification_duration_seconds",
			Help:    "Latency of proof verifications in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func result(passed bool) string {
	if passed {
		return resultPass
	}
	return resultFail
}

func (m *Metrics) observeOutcome(out *Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(result(out.Passed), out.Class.String()).Inc()
	m.Duration.Observe(d.Seconds())
}

func (m *Metrics) observePredicate(kind rule.PredicateKind, err error) {
	if m == nil {
		return
	}
	m.PredicateChecks.WithLabelValues(kind.String(), result(err == nil)).Inc()
}
