package observability

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrometheusHandler exposes a metrics handler as a gin route.
// A nil handler answers 503 so scrapes fail loudly instead of silently.
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	if handler == nil {
		return func(c *gin.Context) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "metrics are not enabled",
			})
		}
	}
	return gin.WrapH(handler)
}
