package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks notification delivery.
type Metrics struct {
	Queued    *prometheus.CounterVec
	Delivered *prometheus.CounterVec
	Failed    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Queued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefpass_notifications_queued_total",
			Help: "Notifications accepted for delivery by type",
		}, []string{"type"}),
		Delivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefpass_notifications_delivered_total",
			Help: "Notifications handed to the transport by type",
		}, []string{"type"}),
		Failed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefpass_notification_failures_total",
			Help: "Notifications that were dropped or failed to send",
		}, []string{"type", "reason"}),
	}
}

func (m *Metrics) IncrementQueued(kind string) {
	if m == nil {
		return
	}
	m.Queued.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementDelivered(kind string) {
	if m == nil {
		return
	}
	m.Delivered.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementFailed(kind, reason string) {
	if m == nil {
		return
	}
	m.Failed.WithLabelValues(kind, reason).Inc()
}
