package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tweetmap"

// Metrics holds the Prometheus counters, histograms, and gauges for a mapping run.
type Metrics struct {
	PostsFetched     prometheus.Counter
	RecordsProcessed *prometheus.CounterVec // labels: status={resolved,no_results,rejected,empty_address}
	CheckpointReused prometheus.Counter
	RecordsProduced  prometheus.Counter
	PipelineRunning  prometheus.Gauge
	RunDuration      prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests     *prometheus.CounterVec   // labels: provider, outcome={success,error,empty}
	GeocodeCache        *prometheus.CounterVec   // labels: result={hit,miss}
	GeocodeAPIDuration  *prometheus.HistogramVec // labels: provider
	GeocodeWaitDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := buildMetrics()

	prometheus.MustRegister(
		m.PostsFetched,
		m.RecordsProcessed,
		m.CheckpointReused,
		m.RecordsProduced,
		m.PipelineRunning,
		m.RunDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeWaitDuration,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return buildMetrics()
}

func buildMetrics() *Metrics {
	return &Metrics{
		PostsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_fetched_total",
			Help:      "Total posts returned by the timeline source.",
		}),
		RecordsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Tweet records built, by resolution status.",
		}, []string{"status"}),
		CheckpointReused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_reused_total",
			Help:      "Records taken from the checkpoint store instead of being geocoded again.",
		}),
		RecordsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_produced_total",
			Help:      "Records written to the Kafka sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-geocode-export run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		GeocodeWaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_rate_limit_wait_seconds",
			Help:      "Time spent waiting for the geocoder rate limiter.",
			Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
	}
}
