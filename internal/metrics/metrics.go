package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deploytracker/internal/models"
)

var histogramBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics owns the tracker's Prometheus collectors. It is registered on its
// own registry so several instances can coexist in tests.
type Metrics struct {
	registry            *prometheus.Registry
	deploymentsRecorded *prometheus.CounterVec
	sessionsActive      prometheus.Gauge
	requestTotal        *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		deploymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deploytracker",
			Name:      "deployments_recorded_total",
			Help:      "Deployments added through the tracker",
		}, []string{"environment", "status"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "deploytracker",
			Name:      "sessions_active",
			Help:      "Sessions currently holding a tracker",
		}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deploytracker",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deploytracker",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.deploymentsRecorded,
		m.sessionsActive,
		m.requestTotal,
		m.requestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) DeploymentAdded(d models.Deployment) {
	m.deploymentsRecorded.WithLabelValues(string(d.Environment), string(d.Status)).Inc()
}

func (m *Metrics) SessionsActive(n int) {
	m.sessionsActive.Set(float64(n))
}

// Middleware records request counts and latency by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requestTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
