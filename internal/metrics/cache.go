package metrics

import (
	"github.com/goliatone/go-advocate-search/cache"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource reports cache counters.
type StatsSource interface {
	Stats() cache.Stats
}

// RegisterCache exposes the counters of src as func metrics. Values are read
// at scrape time.
func RegisterCache(reg prometheus.Registerer, src StatsSource) {
	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Reads served from the cache",
		}, func() float64 { return float64(src.Stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Reads that went to the store",
		}, func() float64 { return float64(src.Stats().Misses) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Tag invalidations applied",
		}, func() float64 { return float64(src.Stats().Invalidations) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries currently cached",
		}, func() float64 { return float64(src.Stats().Entries) }),
	)
}
