// Package metrics exposes Prometheus instrumentation for the compliance
// service. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "labourcompliance"

// Collector holds the service metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	checks       *prometheus.CounterVec
	skips        *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	deadlines    *prometheus.CounterVec
}

// New creates a collector with Go runtime and process collectors registered.
func New() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compliance",
			Name:      "checks_total",
			Help:      "Compliance checks produced by category and status",
		}, []string{"category", "status"}),
		skips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compliance",
			Name:      "skipped_total",
			Help:      "Requested categories that produced no check, by reason",
		}, []string{"category", "reason"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Local fallbacks taken after a remote failure, by component and rule source",
		}, []string{"component", "source"}),
		deadlines: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deadline",
			Name:      "calculations_total",
			Help:      "Deadline calculations by category and deadline type",
		}, []string{"category", "type"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Check records an emitted compliance check.
func (c *Collector) Check(category, status string) {
	if c == nil {
		return
	}
	c.checks.WithLabelValues(category, status).Inc()
}

// Skip records a category skipped during evaluation.
func (c *Collector) Skip(category, reason string) {
	if c == nil {
		return
	}
	c.skips.WithLabelValues(category, reason).Inc()
}

// Fallback records a switch to local computation.
func (c *Collector) Fallback(component, source string) {
	if c == nil {
		return
	}
	c.fallbacks.WithLabelValues(component, source).Inc()
}

// Deadline records a deadline calculation.
func (c *Collector) Deadline(category, deadlineType string) {
	if c == nil {
		return
	}
	c.deadlines.WithLabelValues(category, deadlineType).Inc()
}
