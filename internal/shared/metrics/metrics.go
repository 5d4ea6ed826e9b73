package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors for the ingestion pipeline and
// the HTTP surface, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	extractionStarted   prometheus.Counter
	extractionCompleted prometheus.Counter
	extractionFailed    prometheus.Counter
	extractionDuration  prometheus.Histogram
}

// New constructs a Metrics with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docvault",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "docvault",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		extractionStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docvault",
			Subsystem: "pipeline",
			Name:      "extractions_started_total",
			Help:      "Background extraction tasks dispatched.",
		}),
		extractionCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docvault",
			Subsystem: "pipeline",
			Name:      "extractions_completed_total",
			Help:      "Background extraction tasks finished successfully.",
		}),
		extractionFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docvault",
			Subsystem: "pipeline",
			Name:      "extractions_failed_total",
			Help:      "Background extraction tasks that ended in failed status.",
		}),
		extractionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "docvault",
			Subsystem: "pipeline",
			Name:      "extraction_duration_seconds",
			Help:      "Background extraction duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.extractionStarted,
		m.extractionCompleted,
		m.extractionFailed,
		m.extractionDuration,
	)
	return m
}

// IncExtractionStarted increments the started counter.
func (m *Metrics) IncExtractionStarted() { m.extractionStarted.Inc() }

// IncExtractionCompleted increments the completed counter.
func (m *Metrics) IncExtractionCompleted() { m.extractionCompleted.Inc() }

// IncExtractionFailed increments the failed counter.
func (m *Metrics) IncExtractionFailed() { m.extractionFailed.Inc() }

// ObserveExtractionDuration records one background task duration.
func (m *Metrics) ObserveExtractionDuration(d time.Duration) {
	m.extractionDuration.Observe(d.Seconds())
}

// HTTPMiddleware records request counts and latency per route.
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
