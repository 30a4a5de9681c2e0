package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers admissions and the ways they end early.
type Metrics struct {
	Enrollments *prometheus.CounterVec
	Evictions   *prometheus.CounterVec
	Releases    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Enrollments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefpass_enrollments_total",
			Help: "Enrollment attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
		Evictions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefpass_evictions_total",
			Help: "Admissions evicted by a lowered ceiling",
		}, []string{"kind"}),
		Releases: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefpass_admissions_released_total",
			Help: "Admissions that gave their slot back, by reason",
		}, []string{"kind", "reason"}),
	}
}

func (m *Metrics) IncrementEnrollment(kind, outcome string) {
	if m == nil {
		return
	}
	m.Enrollments.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) AddEvictions(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Evictions.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) IncrementRelease(kind, reason string) {
	if m == nil {
		return
	}
	m.Releases.WithLabelValues(kind, reason).Inc()
}
