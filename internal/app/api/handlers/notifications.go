package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/socialpulse/backend/internal/app/service/notifier"
	"github.com/socialpulse/backend/pkg/response"
)

// @Summary      List notifications
// @Tags         Notifications
// @Produce      json
// @Param        limit  query int false "Page size" default(50)
// @Param        offset query int false "Offset" default(0)
// @Success      200  {object}  response.APIResponse[[]models.Notification]
// @Router       /api/v1/notifications [get]
func ApiListNotifications(n *notifier.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		rows, err := n.List(c.Request.Context(), userID(c), limit, offset)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Unread count
// @Tags         Notifications
// @Produce      json
// @Success      200  {object}  response.APIResponse[map[string]int64]
// @Router       /api/v1/notifications/unread-count [get]
func ApiUnreadCount(n *notifier.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := n.UnreadCount(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]int64{"unread": count}))
	}
}

// @Summary      Mark notification read
// @Tags         Notifications
// @Produce      json
// @Param        id path string true "Notification id"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/notifications/{id}/read [post]
func ApiMarkRead(n *notifier.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := n.MarkRead(c.Request.Context(), userID(c), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Mark all notifications read
// @Tags         Notifications
// @Produce      json
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/notifications/read-all [post]
func ApiMarkAllRead(n *notifier.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := n.MarkAllRead(c.Request.Context(), userID(c)); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterNotificationRoutes(r gin.IRouter, n *notifier.Service) {
	r.GET("", ApiListNotifications(n))
	r.GET("/unread-count", ApiUnreadCount(n))
	r.POST("/:id/read", ApiMarkRead(n))
	r.POST("/read-all", ApiMarkAllRead(n))
}
