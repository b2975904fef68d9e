// Package metrics exposes the server's Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/indigo-web/turnstile/config"
	"github.com/indigo-web/turnstile/http/status"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns every metric of the server. All the methods are safe for concurrent use.
//
// Metrics:
//   - <namespace>_connections_accepted_total
//   - <namespace>_connections_active
//   - <namespace>_requests_total{status}: read attempts by outcome (ok, malformed, timeout, closed)
//   - <namespace>_responses_total{code}
//   - <namespace>_response_size_bytes
//   - <namespace>_flush_failures_total
type Collector struct {
	registry            *prometheus.Registry
	connectionsAccepted prometheus.Counter
	connectionsActive   prometheus.Gauge
	requests            *prometheus.CounterVec
	responses           *prometheus.CounterVec
	responseSize        prometheus.Histogram
	flushFailures       prometheus.Counter
}

// NewCollector creates the metrics and registers them in the registry. If registry is nil,
// a new one is created.
func NewCollector(cfg config.Metrics, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		connectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted connections",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "connections_active",
			Help:      "Number of connections being served",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "requests_total",
			Help:      "Total number of attempts to read a request, by outcome",
		}, []string{"status"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "responses_total",
			Help:      "Total number of responses, by status code",
		}, []string{"code"}),
		responseSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "response_size_bytes",
			Help:      "Size of response bodies in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10), // 64B to 16MB
		}),
		flushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "flush_failures_total",
			Help:      "Total number of responses failed to be written out",
		}),
	}

	registry.MustRegister(
		c.connectionsAccepted,
		c.connectionsActive,
		c.requests,
		c.responses,
		c.responseSize,
		c.flushFailures,
	)

	return c
}

func (c *Collector) ConnectionOpened() {
	c.connectionsAccepted.Inc()
	c.connectionsActive.Inc()
}

func (c *Collector) ConnectionClosed() {
	c.connectionsActive.Dec()
}

// RequestRead counts an attempt to read a request, labelled by its outcome.
func (c *Collector) RequestRead(outcome string) {
	c.requests.WithLabelValues(outcome).Inc()
}

// ResponseSent counts a response about to be written.
func (c *Collector) ResponseSent(code status.Code, size int) {
	c.responses.WithLabelValues(status.StringCode(code)).Inc()
	c.responseSize.Observe(float64(size))
}

func (c *Collector) FlushFailed() {
	c.flushFailures.Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registered metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
