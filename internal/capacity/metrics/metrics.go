package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers slot reservations and ceiling changes.
type Metrics struct {
	Reservations   *prometheus.CounterVec
	CeilingChanges *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Reservations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefpass_slot_reservations_total",
			Help: "Slot reservation attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
		CeilingChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefpass_ceiling_changes_total",
			Help: "Ceiling changes by kind and direction",
		}, []string{"kind", "direction"}),
	}
}

func (m *Metrics) IncrementReservation(kind, outcome string) {
	if m == nil {
		return
	}
	m.Reservations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncrementCeilingChange(kind, direction string) {
	if m == nil {
		return
	}
	m.CeilingChanges.WithLabelValues(kind, direction).Inc()
}
