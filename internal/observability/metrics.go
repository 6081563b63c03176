package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// prediction service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec   // labels: method, endpoint, status
	RequestDuration *prometheus.HistogramVec // labels: method, endpoint

	// Outbound weather provider metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider={power,openweathermap}, outcome={success,error}
	ProviderDuration *prometheus.HistogramVec // labels: provider

	// Prediction pipeline metrics.
	Predictions       *prometheus.CounterVec // labels: source, risk_level
	InferenceDuration prometheus.Histogram
	ModelsLoaded      prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ProviderRequests,
		m.ProviderDuration,
		m.Predictions,
		m.InferenceDuration,
		m.ModelsLoaded,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climarisk",
			Name:      "http_requests_total",
			Help:      "API requests by method, endpoint, and response status.",
		}, []string{"method", "endpoint", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "climarisk",
			Name:      "http_request_duration_seconds",
			Help:      "API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "endpoint"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climarisk",
			Name:      "provider_requests_total",
			Help:      "Weather provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "climarisk",
			Name:      "provider_request_duration_seconds",
			Help:      "Weather provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climarisk",
			Name:      "predictions_total",
			Help:      "Completed predictions by data source and risk level.",
		}, []string{"source", "risk_level"}),
		InferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climarisk",
			Name:      "inference_duration_seconds",
			Help:      "Duration of a full feature-build plus model-inference cycle.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		ModelsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climarisk",
			Name:      "models_loaded",
			Help:      "1 when the model registry loaded successfully, 0 in degraded mode.",
		}),
	}
}
