package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/socialpulse/backend/internal/app/service/auth"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/response"
	"github.com/socialpulse/backend/pkg/types"
)

// AuthMiddleware validates the bearer token and stores the caller identity
// under "user_id", "role" and "claims" in both gin and request context.
func AuthMiddleware(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing bearer token"))
			return
		}
		claims, err := a.ParseToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.ErrorT[any](response.APIResponseCodeUnauthorized, "invalid or revoked token"))
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("role", claims.Role)
		c.Set("claims", claims)
		c.Request = c.Request.WithContext(logctx.WithUserID(c.Request.Context(), claims.Subject))
		c.Next()
	}
}

// AdminMiddleware allows only admin users past; it assumes AuthMiddleware
// already ran.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		if role != types.UserRoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden,
				response.ErrorT[any](response.APIResponseCodeUnauthorized, "admin access required"))
			return
		}
		c.Next()
	}
}
