// internal/middleware/logging_middleware.go
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"robot-service/internal/monitor"
	"robot-service/internal/utils"
)

// LoggingMiddleware logs every request and records HTTP metrics.
// metrics may be nil.
func LoggingMiddleware(logger *utils.ServiceLogger, metrics *monitor.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		duration := time.Since(startTime)

		logger.LogAPIRequest(
			c.Request.Method,
			c.Request.URL.Path,
			utils.GetRequestID(c),
			c.ClientIP(),
			c.Writer.Status(),
			duration,
		)

		// Route template keeps label cardinality bounded
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), duration)
	}
}
