// Package metrics holds the Prometheus collectors shared by the services.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Admission and scan outcomes used as label values.
const (
	ResultAdmitted    = "admitted"
	ResultBanned      = "banned"
	ResultRateLimited = "rate_limited"
	ResultNotFound    = "not_found"
	ResultSoldOut     = "sold_out"
	ResultError       = "error"
	ResultValid       = "valid"
	ResultAlreadyUsed = "already_used"
	ResultStored      = "stored"
	ResultDropped     = "dropped"
)

type Metrics struct {
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	admissions          *prometheus.CounterVec
	scans               *prometheus.CounterVec
	publishFailures     prometheus.Counter
	notifications       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_admissions_total",
				Help: "Ticket purchase attempts by outcome",
			},
			[]string{"result"},
		),
		scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_scans_total",
				Help: "Ticket scans by outcome",
			},
			[]string{"result"},
		),
		publishFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sale_publish_failures_total",
				Help: "Sale messages that could not be handed to the broker",
			},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_ingested_total",
				Help: "Sale messages consumed by the notification ingester",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(
		m.httpRequests,
		m.httpRequestDuration,
		m.admissions,
		m.scans,
		m.publishFailures,
		m.notifications,
	)
	return m
}

func (m *Metrics) Admission(result string) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(result).Inc()
}

func (m *Metrics) Scan(result string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(result).Inc()
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

func (m *Metrics) NotificationIngested(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

// Handler serves the collectors registered on gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Instrument wraps next with request count and latency collection.
func (m *Metrics) Instrument(name string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.httpRequestDuration.WithLabelValues(name, r.Method).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(name, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
