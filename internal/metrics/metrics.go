// Package metrics provides Prometheus instrumentation for the bank service.
package metrics

import (
	"database/sql"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "securebank"

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status class.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// RiskAssessmentsTotal counts risk gate outcomes by tier.
	RiskAssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_assessments_total",
			Help:      "Transaction risk assessments by tier.",
		},
		[]string{"tier"},
	)

	// RiskFailClosedTotal counts assessments that defaulted to maximum risk.
	RiskFailClosedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "risk_fail_closed_total",
		Help:      "Risk assessments that failed closed because the oracle was unavailable or malformed.",
	})

	// OracleRequestDuration observes oracle latency by capability and result.
	OracleRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_request_duration_seconds",
			Help:      "Oracle call latency by capability and result.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"capability", "result"},
	)

	// PolicyRejectionsTotal counts policy gate rejections by gate.
	PolicyRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_rejections_total",
			Help:      "Requests rejected by a policy gate (lockout, freeze, throttle, withdrawal).",
		},
		[]string{"gate"},
	)

	// LoginAttemptsTotal counts login attempts by method and result.
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by method and result.",
		},
		[]string{"method", "result"},
	)

	// ActiveSessions tracks live authenticated sessions.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Number of live authenticated sessions.",
	})

	// FrozenSessions tracks sessions currently frozen by the click breaker.
	FrozenSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "frozen_sessions",
		Help:      "Number of sessions currently frozen by the click breaker.",
	})

	// ActiveWebSocketClients tracks connected session-status streams.
	ActiveWebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_websocket_clients",
		Help:      "Number of connected session status streams.",
	})

	// SecurityEventsPublished counts security events by type and delivery result.
	SecurityEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_published_total",
			Help:      "Security events handed to the event bus by type and result.",
		},
		[]string{"type", "result"},
	)

	// BackupsTotal counts backup runs by result.
	BackupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Encrypted backup runs by result.",
		},
		[]string{"result"},
	)

	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RiskAssessmentsTotal,
		RiskFailClosedTotal,
		OracleRequestDuration,
		PolicyRejectionsTotal,
		LoginAttemptsTotal,
		ActiveSessions,
		FrozenSessions,
		ActiveWebSocketClients,
		SecurityEventsPublished,
		BackupsTotal,
		DBOpenConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// CollectDBStats samples sql.DBStats and the goroutine count once.
func CollectDBStats(db *sql.DB) {
	stats := db.Stats()
	DBOpenConnections.Set(float64(stats.OpenConnections))
	DBInUseConnections.Set(float64(stats.InUse))
	GoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// Middleware records request count and latency per route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, statusBucket(c.Writer.Status())).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func statusBucket(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
