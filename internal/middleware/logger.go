package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scanledger/waitlist/internal/pkg/metrics"
	"go.uber.org/zap"
)

// Logger returns a Gin middleware that logs each request using zap and counts
// it in http_requests_total. m may be nil.
func Logger(log *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)

		// Labels use the route template; unmatched paths share one label.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(status))
	}
}
