// Package metrics exposes Prometheus collectors for the credit engine HTTP service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "credit_engine"

var (
	activitiesCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "activities",
		Name:      "created_total",
		Help:      "Number of complementary activities registered, by type.",
	}, []string{"type"})

	activitiesRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "activities",
		Name:      "rejected_total",
		Help:      "Number of activity registrations rejected by validation.",
	})

	reportsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reports",
		Name:      "generated_total",
		Help:      "Number of reports rendered, by kind and whether they were saved to history.",
	}, []string{"kind", "saved"})

	exportsServed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "downloads",
		Name:      "served_total",
		Help:      "Number of report and history exports served, by content and format.",
	}, []string{"content", "format"})

	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Number of open student workspaces.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests handled, by method and status code.",
	}, []string{"method", "status"})

	rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Number of requests rejected by the per-IP rate limiter.",
	})
)

func init() {
	prometheus.MustRegister(
		activitiesCreated,
		activitiesRejected,
		reportsGenerated,
		exportsServed,
		activeSessions,
		httpRequests,
		rateLimited,
	)
}

// RecordActivityCreated counts a registered activity of the given type name.
func RecordActivityCreated(typeName string) {
	activitiesCreated.WithLabelValues(typeName).Inc()
}

// RecordActivityRejected counts a rejected registration.
func RecordActivityRejected() {
	activitiesRejected.Inc()
}

// RecordReport counts a rendered report. kind is "final" or "partial".
func RecordReport(kind string, saved bool) {
	reportsGenerated.WithLabelValues(kind, strconv.FormatBool(saved)).Inc()
}

// RecordExport counts a served download.
func RecordExport(content, format string) {
	exportsServed.WithLabelValues(content, format).Inc()
}

// SetActiveSessions updates the open workspace gauge.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// RecordHTTPRequest counts a handled request.
func RecordHTTPRequest(method string, status int) {
	httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	rateLimited.Inc()
}
