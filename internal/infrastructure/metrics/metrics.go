// Package metrics exposes domain and HTTP counters to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/workflow"
)

const namespace = "procuro"

// Metrics implements port.Metrics and records HTTP request latency
type Metrics struct {
	requestsCreated     *prometheus.CounterVec
	statusChanges       *prometheus.CounterVec
	mismatches          *prometheus.CounterVec
	collaboratorFailure *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// New creates the instruments and registers them with registerer.
// A nil registerer uses prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requestsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_created_total",
			Help:      "Procurement requests created, by currency.",
		}, []string{"currency"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Accepted status transitions.",
		}, []string{"from", "to"}),
		mismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_mismatches_total",
			Help:      "Stated amounts that disagree with calculated ones, by kind (line or total).",
		}, []string{"kind"}),
		collaboratorFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_failures_total",
			Help:      "Failed calls to the extractor, classifier or notifier.",
		}, []string{"collaborator"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route", "code"}),
	}

	registerer.MustRegister(
		m.requestsCreated,
		m.statusChanges,
		m.mismatches,
		m.collaboratorFailure,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) RequestCreated(currency string) {
	m.requestsCreated.WithLabelValues(currency).Inc()
}

func (m *Metrics) StatusChanged(from, to workflow.Status) {
	m.statusChanges.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) MismatchDetected(kind string) {
	m.mismatches.WithLabelValues(kind).Inc()
}

func (m *Metrics) CollaboratorFailed(collaborator string) {
	m.collaboratorFailure.WithLabelValues(collaborator).Inc()
}

// GinMiddleware observes request latency labelled by the matched route template
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

var _ port.Metrics = (*Metrics)(nil)
