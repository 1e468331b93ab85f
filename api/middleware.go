package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brettbedarf/memfs/internal/util"
)

// RequestLogger logs every request through zerolog. Failed requests are
// logged at Debug with the errors attached by the handler.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := util.GetLogger("API")
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		evt := logger.Trace()
		if len(c.Errors) > 0 {
			evt = logger.Debug().Err(c.Errors.Last())
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}
