package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/socialpulse/backend/pkg/response"
)

// fail writes the envelope for a service fault. HTTP status stays 200; the
// envelope code carries the outcome.
func fail(c *gin.Context, err error) {
	c.JSON(http.StatusOK, response.ErrorT[any](response.CodeForFault(err), err.Error()))
}

// userID returns the authenticated caller set by the auth middleware.
func userID(c *gin.Context) string {
	return c.GetString("user_id")
}
