package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snapseek/snapseek/pkg/logger"
)

// loggerMiddleware attaches the service logger to the request context and
// emits one structured line per completed request.
func loggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := logger.ContextWithLogger(c.Request.Context(), log)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		log.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
