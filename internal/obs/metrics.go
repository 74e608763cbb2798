// Package obs exposes Prometheus metrics for the HTTP surface and the
// authorization decisions worth alerting on.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "educore_http_requests_total",
		Help: "HTTP requests by method, path pattern, and status.",
	}, []string{"method", "path", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "educore_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	authFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "educore_auth_failures_total",
		Help: "Rejected authentication attempts by reason.",
	}, []string{"reason"})

	quotaDenials = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "educore_quota_denials_total",
		Help: "Student admissions rejected by the seat quota.",
	})
)

// Init registers the collectors. Call once at startup.
func Init() {
	prometheus.MustRegister(httpRequests, httpDuration, authFailures, quotaDenials)
}

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AuthFailure records a rejected authentication attempt.
func AuthFailure(reason string) {
	authFailures.WithLabelValues(reason).Inc()
}

// QuotaDenied records a student admission rejected by the seat quota.
func QuotaDenied() {
	quotaDenials.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument wraps a handler with request counting and latency tracking.
// The path label is the chi route pattern, so parameterized routes do not
// explode cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		httpRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
