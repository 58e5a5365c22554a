package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "vault"
	metricsSubsystem = "ledger"

	statusOK     = "ok"
	statusFailed = "failed"
)

type metrics struct {
	transactions *prometheus.CounterVec
	instructions *prometheus.CounterVec
	slot         prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "transactions_total",
			Help:      "Number of executed transactions by status.",
		}, []string{"status"}),
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "instructions_total",
			Help:      "Number of program invocations by program.",
		}, []string{"program"}),
		slot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "slot",
			Help:      "Number of the last applied transaction.",
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.transactions, m.instructions, m.slot} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}
