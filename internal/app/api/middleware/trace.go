package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/socialpulse/backend/pkg/logctx"
)

// TraceMiddleware assigns every request a trace id, honoring a caller-sent
// X-Request-ID. The id lands in the gin context (key "traceID") and the
// request context for logctx enrichment downstream.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Request-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set("traceID", traceID)
		c.Request = c.Request.WithContext(logctx.WithTraceID(c.Request.Context(), traceID))

		c.Next()
	}
}
