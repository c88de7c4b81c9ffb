package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/socialpulse/backend/internal/app/service/auth"
	"github.com/socialpulse/backend/internal/app/service/insights"
	"github.com/socialpulse/backend/pkg/response"
)

// @Summary      Realtime metrics
// @Description  Cross-account roll-up of each account's newest sample.
// @Tags         Metrics
// @Produce      json
// @Success      200  {object}  response.APIResponse[insights.Stats]
// @Router       /api/v1/metrics/realtime [get]
func ApiRealtimeMetrics(ins *insights.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		stats, err := ins.RealtimeStats(c.Request.Context(), client.ID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(stats))
	}
}

// @Summary      Agency overview
// @Description  Client counts by status and monthly recurring revenue.
// @Tags         Analytics
// @Produce      json
// @Success      200  {object}  response.APIResponse[insights.AdminOverview]
// @Router       /api/v1/analytics/overview [get]
func ApiAnalyticsOverview(ins *insights.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		overview, err := ins.Overview(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(overview))
	}
}

// @Summary      Client performance report
// @Tags         Analytics
// @Produce      json
// @Param        id path string true "Client id"
// @Param        months query int false "How many months back" default(12)
// @Success      200  {object}  response.APIResponse[insights.ClientReport]
// @Router       /api/v1/analytics/clients/{id}/report [get]
func ApiClientReport(ins *insights.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		months, _ := strconv.Atoi(c.DefaultQuery("months", "12"))
		report, err := ins.Report(c.Request.Context(), c.Param("id"), months)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(report))
	}
}

func RegisterMetricsRoutes(metrics gin.IRouter, ins *insights.Service, a *auth.Service) {
	metrics.GET("/realtime", ApiRealtimeMetrics(ins, a))
}

func RegisterAnalyticsRoutes(analytics gin.IRouter, ins *insights.Service) {
	analytics.GET("/overview", ApiAnalyticsOverview(ins))
	analytics.GET("/clients/:id/report", ApiClientReport(ins))
}
