package sobfile

import "github.com/prometheus/client_golang/prometheus"

type FileMetrics struct {
	reads        prometheus.Counter
	writes       prometheus.Counter
	appends      prometheus.Counter
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	sortDuration prometheus.Summary
}

func NewFileMetrics(registerer prometheus.Registerer) *FileMetrics {
	m := &FileMetrics{}

	m.reads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "record_reads_total",
		Help: "Total number of records read from disk.",
	})

	m.writes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "record_writes_total",
		Help: "Total number of in-place record writes.",
	})

	m.appends = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "record_appends_total",
		Help: "Total number of records appended.",
	})

	m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of reads served from the cache.",
	})

	m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of reads that missed the cache.",
	})

	m.sortDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Name:       "sort_duration_seconds",
		Help:       "Duration of in-place file sorts.",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	})

	if registerer != nil {
		registerer.MustRegister(m.reads, m.writes, m.appends, m.cacheHits, m.cacheMisses, m.sortDuration)
	}

	return m
}
