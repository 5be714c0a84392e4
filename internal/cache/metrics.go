package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Diagnostics only: correctness never depends on these.
var (
	hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "brokerflow",
		Subsystem: "raw_cache",
		Name:      "hits_total",
		Help:      "Raw file cache hits within TTL.",
	})
	missesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "brokerflow",
		Subsystem: "raw_cache",
		Name:      "misses_total",
		Help:      "Raw file cache misses, including TTL expiries.",
	})
	evictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "brokerflow",
		Subsystem: "raw_cache",
		Name:      "evictions_total",
		Help:      "Entries evicted to stay under the byte capacity.",
	})
	residentBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "brokerflow",
		Subsystem: "raw_cache",
		Name:      "resident_bytes",
		Help:      "Bytes currently resident in the raw file cache.",
	})
)
