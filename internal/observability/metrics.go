package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "prevailing_winds"

// Metrics holds the Prometheus counters, histograms, and gauges for the selection pipeline.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Selection lifecycle metrics.
	SelectionsReceived prometheus.Counter
	SelectionsRejected *prometheus.CounterVec // labels: reason={too_many_cells,unknown_time_range,unknown_month,invalid}
	QueriesSuperseded  prometheus.Counter
	StaleResponses     prometheus.Counter
	SummariesApplied   prometheus.Counter
	QueryDuration      prometheus.Histogram
	QueryCells         prometheus.Histogram
	UnmappedRecords    *prometheus.CounterVec // labels: phenomenon={wind,wave,rain,current}

	// Upstream data API metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: operation={meta,weather}, outcome={success,error,breaker_open}
	UpstreamCache    *prometheus.CounterVec   // labels: cache={meta,weather}, result={hit,miss}
	CacheEntries     prometheus.Gauge
	UpstreamDuration *prometheus.HistogramVec // labels: operation={meta,weather}
	BreakerOpen      prometheus.Gauge
	MetadataRefresh  *prometheus.CounterVec // labels: outcome={success,error}

	// Fan-out metrics.
	SummariesPublished prometheus.Counter
	PublishErrors      prometheus.Counter
	StreamClients      prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already registered"
// panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the dispatch loop is active, 0 when shut down.",
		}),
		SelectionsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_received_total",
			Help:      "Total area selections accepted for querying.",
		}),
		SelectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_rejected_total",
			Help:      "Area selections rejected before querying, by reason.",
		}, []string{"reason"}),
		QueriesSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_superseded_total",
			Help:      "In-flight upstream queries cancelled by a newer selection.",
		}),
		StaleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Completed summaries discarded because a newer selection exists.",
		}),
		SummariesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_applied_total",
			Help:      "Summaries applied to the current selection.",
		}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration from dispatch to summary for one selection.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		QueryCells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_cells",
			Help:      "Number of whole-degree grid cells covered by a query rectangle.",
			Buckets:   []float64{1, 2, 4, 8, 16, 25, 50, 100},
		}),
		UnmappedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmapped_records_total",
			Help:      "Records whose category index is missing from the metadata.",
		}, []string{"phenomenon"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Data API requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		UpstreamCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_cache_total",
			Help:      "Data API cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_cache_entries",
			Help:      "Weather results held in the upstream cache.",
		}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Data API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		BreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_breaker_open",
			Help:      "1 while the data API circuit breaker is open.",
		}),
		MetadataRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_refresh_total",
			Help:      "Scheduled metadata refreshes by outcome.",
		}, []string{"outcome"}),
		SummariesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      "Summaries written to the Kafka summary topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed Kafka summary writes.",
		}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected websocket selection stream clients.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.SelectionsReceived,
		m.SelectionsRejected,
		m.QueriesSuperseded,
		m.StaleResponses,
		m.SummariesApplied,
		m.QueryDuration,
		m.QueryCells,
		m.UnmappedRecords,
		m.UpstreamRequests,
		m.UpstreamCache,
		m.CacheEntries,
		m.UpstreamDuration,
		m.BreakerOpen,
		m.MetadataRefresh,
		m.SummariesPublished,
		m.PublishErrors,
		m.StreamClients,
	}
}
