package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	ExamsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exams_started_total",
			Help: "Number of exams started",
		},
	)

	ExamsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exams_completed_total",
			Help: "Number of exams finished and scored",
		},
	)

	ExamScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exam_score_percentage",
			Help:    "Distribution of exam score percentages",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	PersistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_persist_failures_total",
			Help: "Failed writes of exam answers or scores",
		},
		[]string{"stage"},
	)

	initOnce sync.Once
)

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(ExamsStarted)
		prometheus.MustRegister(ExamsCompleted)
		prometheus.MustRegister(ExamScore)
		prometheus.MustRegister(PersistFailures)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
