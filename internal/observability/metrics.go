package observability

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate by route template and status class.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Watch for: p95/p99 drift, dominated by the upstream call.
	HTTPRequestDuration *prometheus.HistogramVec

	HTTPRequestsInFlight prometheus.Gauge

	// aviationweather.gov call rate by status label (success, client_error, server_error, rate_limited, error).
	WeatherAPICallsTotal *prometheus.CounterVec

	// Upstream latency. There is no retry, so this is also the user-visible upstream cost.
	WeatherAPIDuration *prometheus.HistogramVec

	// Failed /weather lookups by error category. Watch for: parsing spikes (upstream schema change).
	WeatherErrorsTotal *prometheus.CounterVec

	// TAF records seen by the parser, by outcome (valid, rejected).
	TAFRecordsTotal *prometheus.CounterVec

	// Rejected TAF records by validation reason (missing, wrong_type, wrong_format).
	TAFRejectionsTotal *prometheus.CounterVec

	// Weather events returned to clients.
	WeatherEventsTotal prometheus.Counter

	WeatherQueriesTotal prometheus.Counter

	// Per-airport query count (allow-list; others go to "other").
	WeatherQueriesByAirportTotal *prometheus.CounterVec

	trackedAirportsMu sync.RWMutex
	trackedAirports   map[string]struct{}
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of aviationweather.gov TAF API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "aviationweather.gov TAF API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	WeatherErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherErrorsTotal",
			Help: "Failed weather lookups by error category",
		},
		[]string{"category"},
	)
	TAFRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tafRecordsTotal",
			Help: "TAF records parsed from upstream payloads by outcome",
		},
		[]string{"outcome"},
	)
	TAFRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tafRejectionsTotal",
			Help: "TAF records rejected by validation, by reason",
		},
		[]string{"reason"},
	)
	WeatherEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherEventsTotal",
			Help: "Total number of weather events returned",
		},
	)
	WeatherQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherQueriesTotal",
			Help: "Total number of weather lookups",
		},
	)
	WeatherQueriesByAirportTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherQueriesByAirportTotal",
			Help: "Weather queries by airport (allow-list; others use airport=other)",
		},
		[]string{"airport"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherErrorsTotal,
		TAFRecordsTotal, TAFRejectionsTotal, WeatherEventsTotal,
		WeatherQueriesTotal, WeatherQueriesByAirportTotal,
	)
}

// SetTrackedAirports sets the allow-list for per-airport metrics. Other airports increment "other".
func SetTrackedAirports(airports []string) {
	trackedAirportsMu.Lock()
	defer trackedAirportsMu.Unlock()
	trackedAirports = make(map[string]struct{}, len(airports))
	for _, a := range airports {
		trackedAirports[normalizeAirport(a)] = struct{}{}
	}
}

// RecordWeatherQuery records a weather lookup for the given airport.
func RecordWeatherQuery(airport string) {
	WeatherQueriesTotal.Inc()
	WeatherQueriesByAirportTotal.WithLabelValues(MetricAirportLabel(airport)).Inc()
}

// MetricAirportLabel returns the airport label to use in metrics, "other" when not tracked.
func MetricAirportLabel(airport string) string {
	a := normalizeAirport(airport)
	trackedAirportsMu.RLock()
	_, ok := trackedAirports[a]
	trackedAirportsMu.RUnlock()
	if ok {
		return a
	}
	return "other"
}

func normalizeAirport(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
