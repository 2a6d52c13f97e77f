package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reusedev/tryon-hub/internal/modules/logs"
)

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		method := c.Request.Method
		clientIP := c.ClientIP()

		c.Next()

		evt := logs.Logger.Info()
		if len(c.Errors) > 0 {
			evt = logs.Logger.Error().Str("errors", c.Errors.String())
		}
		evt.Str("method", method).
			Str("path", path).
			Str("query", query).
			Str("client_ip", clientIP).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request log")
	}
}
