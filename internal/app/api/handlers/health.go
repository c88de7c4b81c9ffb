package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/socialpulse/backend/pkg/response"
)

var startedAt = time.Now()

// @Summary      Health check
// @Description  Returns service status
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, response.OKT(map[string]string{
		"status":  "ok",
		"service": "socialpulse-backend",
		"uptime":  time.Since(startedAt).Round(time.Second).String(),
	}))
}

func RegisterHealthRoutes(r gin.IRouter) {
	r.GET("/healthz", Healthz)
}
