package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK        = "ok"
	ResultFailed    = "failed"
	ResultMalformed = "malformed"
	ResultNotFound  = "not_found"
	ResultCached    = "cached"

	CycleCompleted   = "completed"
	CycleSkipped     = "skipped"
	CycleQueryFailed = "query_failed"
)

var (
	AggregationCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energy_aggregation_cycles_total",
			Help: "Aggregation cycles by outcome",
		},
		[]string{"result"},
	)

	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "energy_aggregation_cycle_duration_seconds",
			Help:    "Duration of completed aggregation cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	AlertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energy_alerts_published_total",
			Help: "Threshold alerts handed to the message bus",
		},
		[]string{"result"},
	)

	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energy_readings_ingested_total",
			Help: "Readings consumed from the bus",
		},
		[]string{"result"},
	)

	DirectoryLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energy_directory_lookups_total",
			Help: "Device/user directory lookups by outcome",
		},
		[]string{"directory", "result"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// ObserveCycle records the outcome of one aggregation tick.
func ObserveCycle(result string, d time.Duration) {
	AggregationCycles.WithLabelValues(result).Inc()
	if result == CycleCompleted {
		AggregationDuration.Observe(d.Seconds())
	}
}

// GinMiddleware counts requests by route template, not raw path.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		requestDurationSeconds.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
