package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// quote pipeline.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Quote computation metrics.
	QuotesComputed prometheus.Counter
	NoDataQuotes   prometheus.Counter

	// Catalogue acquisition metrics.
	CatalogueFetches       *prometheus.CounterVec // labels: outcome={success,error}
	CatalogueCache         *prometheus.CounterVec // labels: result={hit,miss}
	CatalogueFetchDuration prometheus.Histogram
	CatalogueEvents        prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_risk",
			Name:      "messages_consumed_total",
			Help:      "Total quote requests read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_risk",
			Name:      "messages_produced_total",
			Help:      "Total quote results written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_risk",
			Name:      "transform_errors_total",
			Help:      "Total quote requests that failed to price.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_risk",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_risk",
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_risk",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-price-load cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		QuotesComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_risk",
			Name:      "quotes_computed_total",
			Help:      "Total quotes priced, no-data results included.",
		}),
		NoDataQuotes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_risk",
			Name:      "no_data_quotes_total",
			Help:      "Quotes whose interval held no catalogue years.",
		}),
		CatalogueFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_risk",
			Name:      "catalogue_fetches_total",
			Help:      "USGS catalogue requests by outcome.",
		}, []string{"outcome"}),
		CatalogueCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_risk",
			Name:      "catalogue_cache_total",
			Help:      "Catalogue cache lookups by result.",
		}, []string{"result"}),
		CatalogueFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_risk",
			Name:      "catalogue_fetch_duration_seconds",
			Help:      "USGS catalogue request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		CatalogueEvents: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_risk",
			Name:      "catalogue_events",
			Help:      "Events per fetched catalogue.",
			Buckets:   []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
	}

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.QuotesComputed,
		m.NoDataQuotes,
		m.CatalogueFetches,
		m.CatalogueCache,
		m.CatalogueFetchDuration,
		m.CatalogueEvents,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		MessagesConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_risk", Name: "messages_consumed_total"}),
		MessagesProduced:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_risk", Name: "messages_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_risk", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_risk", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "quake_risk", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "quake_risk", Name: "batch_processing_duration_seconds"}),
		QuotesComputed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_risk", Name: "quotes_computed_total"}),
		NoDataQuotes:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_risk", Name: "no_data_quotes_total"}),
		CatalogueFetches:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "quake_risk", Name: "catalogue_fetches_total"}, []string{"outcome"}),
		CatalogueCache:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "quake_risk", Name: "catalogue_cache_total"}, []string{"result"}),
		CatalogueFetchDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "quake_risk", Name: "catalogue_fetch_duration_seconds"}),
		CatalogueEvents:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "quake_risk", Name: "catalogue_events"}),
	}
}
