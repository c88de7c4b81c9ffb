package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/socialpulse/backend/pkg/logctx"
)

// RequestLoggerMiddleware derives a per-request logger carrying trace_id (and
// user_id when auth already ran) and attaches it to the gin and request
// contexts. The trace id is mirrored back on X-Request-ID.
func RequestLoggerMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetString("traceID")

		reqLogger := base.With("trace_id", traceID)
		if uid := c.GetString("user_id"); uid != "" {
			reqLogger = reqLogger.With("user_id", uid)
		}
		c.Set("logger", reqLogger)
		c.Request = c.Request.WithContext(logctx.WithLogger(c.Request.Context(), reqLogger))

		if traceID != "" {
			c.Writer.Header().Set("X-Request-ID", traceID)
		}

		c.Next()
	}
}
