// Package metrics provides Prometheus metrics for the price engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SourceFetchesTotal is a counter of quote fetch attempts per source.
	SourceFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetches_total",
			Help: "Total number of quote fetches per source and outcome",
		},
		[]string{"source", "status"},
	)

	// SourceFetchDuration is a histogram of per-source fetch latencies.
	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Duration of quote fetches per source",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 4, 8},
		},
		[]string{"source"},
	)

	// SourceRetriesTotal is a counter of fetch retries per source.
	SourceRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_retries_total",
			Help: "Total number of fetch retries per source and failure kind",
		},
		[]string{"source", "kind"},
	)

	// OutlierRejectionsTotal is a counter of rejected outlier quotes.
	OutlierRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outlier_rejections_total",
			Help: "Total number of outlier quotes rejected",
		},
		[]string{"asset"},
	)

	// FXResolutionsTotal is a counter of FX rate resolutions.
	FXResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fx_resolutions_total",
			Help: "Total number of FX rate resolutions per outcome",
		},
		[]string{"outcome"},
	)

	// FXProviderErrorsTotal is a counter of FX provider failures.
	FXProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fx_provider_errors_total",
			Help: "Total number of FX provider failures",
		},
		[]string{"provider"},
	)

	// AggregationDuration is a histogram of price aggregation duration.
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Duration of price aggregation operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)
)

// Init initializes the Prometheus metrics registry.
func Init() {
	prometheus.MustRegister(
		SourceFetchesTotal,
		SourceFetchDuration,
		SourceRetriesTotal,
		OutlierRejectionsTotal,
		FXResolutionsTotal,
		FXProviderErrorsTotal,
		AggregationDuration,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordSourceFetch records the outcome and duration of a quote fetch.
func RecordSourceFetch(source, status string, duration time.Duration) {
	SourceFetchesTotal.WithLabelValues(source, status).Inc()
	SourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordSourceRetry records a fetch retry.
func RecordSourceRetry(source, kind string) {
	SourceRetriesTotal.WithLabelValues(source, kind).Inc()
}

// RecordOutlierRejection records an outlier rejection.
func RecordOutlierRejection(asset string) {
	OutlierRejectionsTotal.WithLabelValues(asset).Inc()
}

// RecordFXResolution records the outcome of an FX rate resolution.
func RecordFXResolution(outcome string) {
	FXResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordFXProviderError records an FX provider failure.
func RecordFXProviderError(provider string) {
	FXProviderErrorsTotal.WithLabelValues(provider).Inc()
}

// RecordAggregation records a price aggregation operation.
func RecordAggregation(mode string, duration time.Duration) {
	AggregationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
