package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Hawk authentication outcomes recorded in HawkAuthTotal
const (
	AuthResultSuccess   = "success"
	AuthResultMissing   = "missing"
	AuthResultInvalid   = "invalid"
	AuthResultStale     = "stale"
	AuthResultReplay    = "replay"
	AuthResultIPDenied  = "ip_denied"
	AuthResultForbidden = "forbidden"
	AuthResultError     = "error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Hawk metrics
	HawkAuthTotal           *prometheus.CounterVec
	CredentialsLoaded       prometheus.Gauge
	CredentialsReloadsTotal *prometheus.CounterVec

	// Wins store metrics
	StoreQueryDuration *prometheus.HistogramVec
	StoreErrorsTotal   *prometheus.CounterVec

	// Nonce cache metrics
	NonceEarlyEvictionsTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "winsmi_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "winsmi_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HawkAuthTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "winsmi_hawk_auth_total",
				Help: "Hawk authentication attempts by result",
			},
			[]string{"result"},
		),
		CredentialsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "winsmi_hawk_credentials_loaded",
				Help: "Number of Hawk credentials currently loaded",
			},
		),
		CredentialsReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "winsmi_hawk_credentials_reloads_total",
				Help: "Credential file reloads by status",
			},
			[]string{"status"},
		),
		StoreQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "winsmi_store_query_duration_seconds",
				Help:    "Wins store query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"query"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "winsmi_store_errors_total",
				Help: "Wins store query errors",
			},
			[]string{"query"},
		),
		NonceEarlyEvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "winsmi_nonce_early_evictions_total",
				Help: "Nonces evicted from the in-process cache while still replayable",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HawkAuthTotal,
		m.CredentialsLoaded,
		m.CredentialsReloadsTotal,
		m.StoreQueryDuration,
		m.StoreErrorsTotal,
		m.NonceEarlyEvictionsTotal,
	)

	return m
}

// RecordAuth counts one authentication outcome; nil-safe
func (m *Metrics) RecordAuth(result string) {
	if m == nil {
		return
	}
	m.HawkAuthTotal.WithLabelValues(result).Inc()
}

// ObserveQuery records a store query; nil-safe
func (m *Metrics) ObserveQuery(query string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StoreQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	if err != nil {
		m.StoreErrorsTotal.WithLabelValues(query).Inc()
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Routes are labelled by their mux path template to bound cardinality.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(serveMux *http.ServeMux, registry *prometheus.Registry) {
	serveMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
