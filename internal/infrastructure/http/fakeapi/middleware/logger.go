package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"ochotona/pkg/logger"
)

// Logger middleware logs every request with its status and latency.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithContext(c.Request.Context()).Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"error", c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)
	}
}
