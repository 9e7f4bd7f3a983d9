package persistence

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes pool and router counters. Pass nil wherever metrics are
// not wanted (tests, CLI one-shots).
type Metrics struct {
	PoolsCreated prometheus.Counter
	ClinicPools  prometheus.Gauge
	SelfHeals    prometheus.Counter
	QueriesTotal *prometheus.CounterVec
}

// NewMetrics builds and registers the persistence metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PoolsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optoplus",
			Subsystem: "persistence",
			Name:      "clinic_pools_created_total",
			Help:      "Clinic connection pools created since process start.",
		}),
		ClinicPools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "optoplus",
			Subsystem: "persistence",
			Name:      "clinic_pools",
			Help:      "Clinic connection pools currently cached.",
		}),
		SelfHeals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optoplus",
			Subsystem: "persistence",
			Name:      "router_self_heals_total",
			Help:      "Missing clinic databases recreated by the query router.",
		}),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optoplus",
			Subsystem: "persistence",
			Name:      "router_statements_total",
			Help:      "Statements executed through the query router.",
		}, []string{"op", "outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.PoolsCreated, m.ClinicPools, m.SelfHeals, m.QueriesTotal)
	}

	return m
}
