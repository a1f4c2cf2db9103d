package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/executive-war-room/internal/platform/metrics"
)

// Metrics records request counts and latencies labelled by route pattern
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTPRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
