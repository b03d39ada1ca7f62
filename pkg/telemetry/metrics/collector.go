package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rejection reasons recorded on the visits_rejected_total counter.
const (
	ReasonAdmission  = "admission"
	ReasonValidation = "validation"
	ReasonStorage    = "storage"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled controls whether metrics are collected and exposed.
	Enabled bool

	// Namespace is the prometheus namespace prefix. Default: "beacon".
	Namespace string
}

// Collector owns every prometheus metric the collector exposes. A nil
// *Collector is valid and records nothing, so callers never need to guard
// metric calls.
type Collector struct {
	registry *prometheus.Registry

	visitsIngested prometheus.Counter
	visitsRejected *prometheus.CounterVec
	queryDuration  *prometheus.HistogramVec
	limiterKeys    prometheus.Gauge
}

// NewCollector creates a metrics collector and registers its metrics. If
// registry is nil, a fresh registry is used. Returns nil when disabled.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "beacon"
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		visitsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "visits_ingested_total",
			Help:      "Number of visits validated and durably stored.",
		}),
		visitsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "visits_rejected_total",
			Help:      "Number of write attempts rejected, by reason.",
		}, []string{"reason"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "query_duration_seconds",
			Help:      "Latency of read operations against the store.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		limiterKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "limiter_tracked_keys",
			Help:      "Client keys currently tracked by the admission limiter.",
		}),
	}

	registry.MustRegister(c.visitsIngested, c.visitsRejected, c.queryDuration, c.limiterKeys)

	return c
}

// RecordIngested counts one successfully stored visit.
func (c *Collector) RecordIngested() {
	if c == nil {
		return
	}
	c.visitsIngested.Inc()
}

// RecordRejected counts one rejected write attempt.
func (c *Collector) RecordRejected(reason string) {
	if c == nil {
		return
	}
	c.visitsRejected.WithLabelValues(reason).Inc()
}

// ObserveQuery records the latency of a read operation.
func (c *Collector) ObserveQuery(operation string, d time.Duration) {
	if c == nil {
		return
	}
	c.queryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetLimiterKeys records the current limiter registry size.
func (c *Collector) SetLimiterKeys(n int) {
	if c == nil {
		return
	}
	c.limiterKeys.Set(float64(n))
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
