package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// flux proxy, renderer, and lead intake.
type Metrics struct {
	// Raster proxy metrics.
	RasterFetches      *prometheus.CounterVec // labels: outcome={success,invalid,config_error,upstream_error,error}
	RasterFetchSeconds prometheus.Histogram
	RasterBytes        prometheus.Histogram

	// Renderer metrics.
	Renders           *prometheus.CounterVec // labels: outcome={success,invalid_input,acquisition_error,decode_error}
	RenderSeconds     prometheus.Histogram
	RendersSuperseded prometheus.Counter

	// Lead intake metrics.
	LeadsSubmitted *prometheus.CounterVec // labels: outcome={accepted,invalid,publish_error}

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RasterFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solar_flux",
			Name:      "raster_fetches_total",
			Help:      "Raster proxy fetches by outcome.",
		}, []string{"outcome"}),
		RasterFetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "solar_flux",
			Name:      "raster_fetch_duration_seconds",
			Help:      "Upstream geoTiff:get request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RasterBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "solar_flux",
			Name:      "raster_bytes",
			Help:      "Size of fetched raster payloads in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solar_flux",
			Name:      "renders_total",
			Help:      "Flux render attempts by outcome.",
		}, []string{"outcome"}),
		RenderSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "solar_flux",
			Name:      "render_duration_seconds",
			Help:      "Duration of a complete acquire-decode-colorize render.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RendersSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solar_flux",
			Name:      "renders_superseded_total",
			Help:      "Renders whose result was stale by completion.",
		}),
		LeadsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solar_flux",
			Name:      "leads_submitted_total",
			Help:      "Lead submissions by outcome.",
		}, []string{"outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solar_flux",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solar_flux",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solar_flux",
			Name:      "geocode_enabled",
			Help:      "1 when address geocoding is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.RasterFetches,
		m.RasterFetchSeconds,
		m.RasterBytes,
		m.Renders,
		m.RenderSeconds,
		m.RendersSuperseded,
		m.LeadsSubmitted,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RasterFetches:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "solar_flux", Name: "raster_fetches_total"}, []string{"outcome"}),
		RasterFetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "solar_flux", Name: "raster_fetch_duration_seconds"}),
		RasterBytes:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "solar_flux", Name: "raster_bytes"}),
		Renders:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "solar_flux", Name: "renders_total"}, []string{"outcome"}),
		RenderSeconds:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "solar_flux", Name: "render_duration_seconds"}),
		RendersSuperseded:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "solar_flux", Name: "renders_superseded_total"}),
		LeadsSubmitted:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "solar_flux", Name: "leads_submitted_total"}, []string{"outcome"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "solar_flux", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "solar_flux", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "solar_flux", Name: "geocode_enabled"}),
	}
}
