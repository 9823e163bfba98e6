package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// LoggingMiddleware writes one log line per request once the handler chain
// has finished. Server errors are logged at error level.
func LoggingMiddleware(logger log.Logger) gin.HandlerFunc {
	logger = log.With(logger, "component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		l := level.Info(logger)
		if status >= 500 {
			l = level.Error(logger)
		}
		keyvals := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			keyvals = append(keyvals, "err", c.Errors.String())
		}
		_ = l.Log(keyvals...)
	}
}
