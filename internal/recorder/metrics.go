package recorder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vesaa/hostdash/internal/sysmon"
)

const (
	resultOK      = "ok"
	resultError   = "error"
	resultSkipped = "skipped"
)

// Metrics exposes the latest recorded reading and cycle outcomes to Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	usage  *prometheus.GaugeVec
	cycles *prometheus.CounterVec
}

// NewMetrics registers the recorder collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		usage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hostdash",
			Name:      "usage_percent",
			Help:      "Most recent recorded utilisation, 0-100.",
		}, []string{"host", "resource"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostdash",
			Name:      "recorder_cycles_total",
			Help:      "Recorder cycles by outcome.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.usage, m.cycles)
	return m
}

func (m *Metrics) record(host string, r sysmon.Reading) {
	if m == nil {
		return
	}
	m.usage.WithLabelValues(host, "cpu").Set(r.CPU)
	m.usage.WithLabelValues(host, "ram").Set(r.RAM)
	m.usage.WithLabelValues(host, "disk").Set(r.Disk)
	m.usage.WithLabelValues(host, "swap").Set(r.Swap)
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
}
