package collector

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the collector's Prometheus instrumentation, following the
// same injected-Registerer shape as geometry.NewMetrics (itself
// generalized from differ/differ.go's NewMetrics(cfg.Registry)).
type Metrics struct {
	collectionsTotal prometheus.Counter
	collectDuration  prometheus.Histogram
}

// NewMetrics registers the collector's counter/histogram against reg.
// reg may be nil, in which case every metrics call below is a no-op.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		collectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "colpool_collections_total",
			Help: "Number of completed collect_pool calls.",
		}),
		collectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "colpool_collect_duration_seconds",
			Help:    "Wall-clock duration of collect_pool calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.collectionsTotal, m.collectDuration)
	}
	return m
}
