package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers voucher issue, redemption and expiry.
type Metrics struct {
	Issued         *prometheus.CounterVec
	Redemptions    *prometheus.CounterVec
	Cancelled      *prometheus.CounterVec
	SweepCancelled prometheus.Counter
	SweepFailures  prometheus.Counter
	SweepDuration  prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefpass_vouchers_issued_total",
			Help: "Vouchers issued by registration kind",
		}, []string{"kind"}),
		Redemptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefpass_redemptions_total",
			Help: "Redemption attempts by outcome and where the answer came from",
		}, []string{"outcome", "source"}),
		Cancelled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefpass_vouchers_cancelled_total",
			Help: "Vouchers cancelled by reason",
		}, []string{"reason"}),
		SweepCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reliefpass_sweep_cancelled_total",
			Help: "Expired vouchers cancelled by the sweeper",
		}),
		SweepFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reliefpass_sweep_failures_total",
			Help: "Vouchers the sweeper failed to expire",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "reliefpass_sweep_duration_seconds",
			Help:    "Duration of a full sweep",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementIssued(kind string) {
	if m == nil {
		return
	}
	m.Issued.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementRedemption(outcome, source string) {
	if m == nil {
		return
	}
	m.Redemptions.WithLabelValues(outcome, source).Inc()
}

func (m *Metrics) IncrementCancelled(reason string) {
	if m == nil {
		return
	}
	m.Cancelled.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveSweep(cancelled, failed int, seconds float64) {
	if m == nil {
		return
	}
	m.SweepCancelled.Add(float64(cancelled))
	m.SweepFailures.Add(float64(failed))
	m.SweepDuration.Observe(seconds)
}
