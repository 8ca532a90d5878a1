// Package metrics provides Prometheus instrumentation for the ScamShield service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scamshield",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scamshield",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// CallChecksTotal counts resolved calls by terminal action.
	CallChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scamshield",
			Name:      "call_checks_total",
			Help:      "Total resolved incoming calls by terminal action.",
		},
		[]string{"action"},
	)

	// CacheLookupsTotal counts tiered-cache lookups by outcome.
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scamshield",
			Name:      "cache_lookups_total",
			Help:      "Total risk cache lookups by outcome (safe, scam, spam, miss).",
		},
		[]string{"outcome"},
	)

	// CacheEvictionsTotal counts records evicted when a tier exceeds capacity.
	CacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scamshield",
			Name:      "cache_evictions_total",
			Help:      "Total cache records evicted by tier.",
		},
		[]string{"tier"},
	)

	// CacheExpiredTotal counts records purged past their expiry.
	CacheExpiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scamshield",
			Name:      "cache_expired_total",
			Help:      "Total expired cache records purged by tier.",
		},
		[]string{"tier"},
	)

	// ProviderCallsTotal counts remote provider calls by provider and result.
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scamshield",
			Name:      "provider_calls_total",
			Help:      "Total risk provider calls by provider name and result.",
		},
		[]string{"provider", "result"},
	)

	// ProviderResponseTime observes provider latency.
	ProviderResponseTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scamshield",
			Name:      "provider_response_seconds",
			Help:      "Risk provider response time in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)

	// ActiveCallSessions tracks currently open call analysis sessions.
	ActiveCallSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scamshield",
			Name:      "active_call_sessions",
			Help:      "Number of call analysis sessions currently open.",
		},
	)

	// SessionsReapedTotal counts sessions purged by the hourly reaper.
	SessionsReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scamshield",
			Name:      "sessions_reaped_total",
			Help:      "Total call sessions purged after the retention window.",
		},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scamshield",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scamshield", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scamshield", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scamshield", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scamshield", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CallChecksTotal,
		CacheLookupsTotal,
		CacheEvictionsTotal,
		CacheExpiredTotal,
		ProviderCallsTotal,
		ProviderResponseTime,
		ActiveCallSessions,
		SessionsReapedTotal,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
