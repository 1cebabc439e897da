package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of reconciliation runs",
		},
		[]string{"kind", "mode"},
	)

	syncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Duration of reconciliation runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	conversionsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversions_detected_total",
			Help: "Total number of conversions written or previewed",
		},
		[]string{"action", "mode"},
	)

	syncSoftFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_soft_failures_total",
			Help: "Total number of candidates or tenants skipped with a soft failure",
		},
	)

	intakeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_events_total",
			Help: "Total number of intake webhook events",
		},
		[]string{"type", "outcome"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordSyncRun(kind, mode string, duration time.Duration) {
	syncRunsTotal.WithLabelValues(kind, mode).Inc()
	syncRunDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordConversions(mode string, created, updated int) {
	conversionsDetected.WithLabelValues("create", mode).Add(float64(created))
	conversionsDetected.WithLabelValues("update", mode).Add(float64(updated))
}

func RecordSoftFailures(count int) {
	syncSoftFailures.Add(float64(count))
}

func RecordIntakeEvent(eventType, outcome string) {
	intakeEvents.WithLabelValues(eventType, outcome).Inc()
}
