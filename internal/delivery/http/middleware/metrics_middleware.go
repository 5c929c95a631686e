package middleware

import (
	"time"

	"go-panel-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records one observation per request, labelled by the
// route template so ids do not explode cardinality.
func MetricsMiddleware(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
