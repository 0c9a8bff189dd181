package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of the monitoring loop.
type Metrics struct {
	CyclesTotal   prometheus.Counter
	CycleDuration prometheus.Histogram
	ProbesTotal   *prometheus.CounterVec
	OnlineDevices prometheus.Gauge
	AlertsRaised  *prometheus.CounterVec
}

// NewMetrics creates the monitor metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "netdash_monitor_cycles_total",
				Help: "Total number of completed monitoring cycles.",
			},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "netdash_monitor_cycle_duration_seconds",
				Help:    "Duration of monitoring cycles in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
		),
		ProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netdash_monitor_probes_total",
				Help: "Total number of device probes by result.",
			},
			[]string{"result"},
		),
		OnlineDevices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "netdash_monitor_online_devices",
				Help: "Number of devices that answered in the last cycle.",
			},
		),
		AlertsRaised: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netdash_monitor_alerts_raised_total",
				Help: "Total number of alerts raised by rule.",
			},
			[]string{"rule"},
		),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.ProbesTotal,
		m.OnlineDevices,
		m.AlertsRaised,
	)
	return m
}

func (m *Metrics) observeProbe(result string) {
	if m == nil {
		return
	}
	m.ProbesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) observeCycle(seconds float64, online int) {
	if m == nil {
		return
	}
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(seconds)
	m.OnlineDevices.Set(float64(online))
}

func (m *Metrics) incAlert(ruleID string) {
	if m == nil {
		return
	}
	m.AlertsRaised.WithLabelValues(ruleID).Inc()
}
