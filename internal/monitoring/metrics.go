package monitoring

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type Metrics struct {
	mu            sync.RWMutex
	RequestCount  int64            `json:"request_count"`
	ErrorCount    int64            `json:"error_count"`
	StatusCodes   map[string]int64 `json:"status_codes"`
	Endpoints     map[string]int64 `json:"endpoint_calls"`
	StartTime     time.Time        `json:"start_time"`
	LastRequest   time.Time        `json:"last_request"`
	totalDuration time.Duration
}

var globalMetrics = &Metrics{
	StatusCodes: make(map[string]int64),
	Endpoints:   make(map[string]int64),
	StartTime:   time.Now(),
}

// MetricsMiddleware counts requests, per-endpoint calls and error responses.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		globalMetrics.mu.Lock()
		globalMetrics.RequestCount++
		globalMetrics.LastRequest = time.Now()
		globalMetrics.totalDuration += time.Since(start)
		globalMetrics.StatusCodes[strconv.Itoa(c.Writer.Status())]++
		globalMetrics.Endpoints[c.Request.Method+" "+c.FullPath()]++
		if c.Writer.Status() >= http.StatusInternalServerError {
			globalMetrics.ErrorCount++
		}
		globalMetrics.mu.Unlock()
	}
}

// MetricsHandler serves the counters collected so far.
func MetricsHandler(c *gin.Context) {
	globalMetrics.mu.RLock()
	defer globalMetrics.mu.RUnlock()

	avgDuration := time.Duration(0)
	if globalMetrics.RequestCount > 0 {
		avgDuration = globalMetrics.totalDuration / time.Duration(globalMetrics.RequestCount)
	}

	c.JSON(http.StatusOK, gin.H{
		"request_count":           globalMetrics.RequestCount,
		"error_count":             globalMetrics.ErrorCount,
		"avg_request_duration_ms": avgDuration.Milliseconds(),
		"status_codes":            globalMetrics.StatusCodes,
		"endpoint_calls":          globalMetrics.Endpoints,
		"uptime_seconds":          int64(time.Since(globalMetrics.StartTime).Seconds()),
	})
}

type HealthCheckFunc func(ctx context.Context) error

type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]HealthCheckFunc
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheckFunc),
	}
}

func (h *HealthChecker) Register(name string, check HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Handler runs every registered check; a single failure degrades the whole
// response to 503.
func (h *HealthChecker) Handler(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "healthy"
	}

	c.JSON(status, gin.H{
		"status": http.StatusText(status),
		"checks": results,
	})
}
