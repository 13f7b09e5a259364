package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medsnear",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "medsnear",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "medsnear",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Search metrics
	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "medsnear",
		Subsystem: "search",
		Name:      "duration_seconds",
		Help:      "Catalog search latency in seconds, including catalog load",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}, []string{"mode"})

	SearchEmptyResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medsnear",
		Subsystem: "search",
		Name:      "empty_results_total",
		Help:      "Total searches that matched nothing",
	}, []string{"mode"})

	CatalogEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medsnear",
		Subsystem: "catalog",
		Name:      "events_published_total",
		Help:      "Total catalog change events published to NATS",
	}, []string{"kind"})

	CatalogEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medsnear",
		Subsystem: "catalog",
		Name:      "events_received_total",
		Help:      "Total catalog change events received from NATS",
	}, []string{"kind"})

	QuotesPriced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medsnear",
		Subsystem: "checkout",
		Name:      "quotes_total",
		Help:      "Total checkout quotes by outcome",
	}, []string{"outcome"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "medsnear",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medsnear",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by key family and result (hit or miss)",
	}, []string{"key", "result"})

	dbPoolConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "medsnear",
		Subsystem: "db",
		Name:      "pool_conns",
		Help:      "Database pool connections by state (acquired, idle, total)",
	}, []string{"state"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// CacheLookup counts one cache read for the given key family.
func CacheLookup(key string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(key, result).Inc()
}

// PoolStat is the subset of *pgxpool.Stat the pool gauges read.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// ObservePool records a pool snapshot.
func ObservePool(s PoolStat) {
	dbPoolConns.WithLabelValues("acquired").Set(float64(s.AcquiredConns()))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.IdleConns()))
	dbPoolConns.WithLabelValues("total").Set(float64(s.TotalConns()))
}
