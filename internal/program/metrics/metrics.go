package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks program lifecycle changes.
type Metrics struct {
	ProgramsCreated prometheus.Counter
	Transitions     *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		ProgramsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reliefpass_programs_created_total",
			Help: "Total number of programs created",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefpass_program_transitions_total",
			Help: "Program status transitions by target status",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m == nil {
		return
	}
	m.ProgramsCreated.Inc()
}

func (m *Metrics) IncrementTransition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}
