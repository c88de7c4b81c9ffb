package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/socialpulse/backend/internal/app/service/auth"
	"github.com/socialpulse/backend/internal/app/service/ingestion"
	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/pkg/response"
)

type syncJobResp struct {
	JobID string `json:"job_id"`
}

type accountStatusResp struct {
	Account  *models.SocialAccount `json:"account"`
	SyncLogs []*models.SyncLog     `json:"sync_logs"`
}

// @Summary      List social accounts
// @Tags         Social
// @Produce      json
// @Success      200  {object}  response.APIResponse[[]models.SocialAccount]
// @Router       /api/v1/social [get]
func ApiListAccounts(ing *ingestion.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		accounts, err := ing.ListAccounts(c.Request.Context(), client.ID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(accounts))
	}
}

// @Summary      Disconnect social account
// @Description  Soft-disconnects: historical metrics are kept.
// @Tags         Social
// @Produce      json
// @Param        id path string true "Account id"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/social/{id} [delete]
func ApiDisconnectAccount(ing *ingestion.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		if err := ing.DisconnectAccount(c.Request.Context(), client.ID, c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Trigger on-demand sync
// @Tags         Social
// @Produce      json
// @Param        id path string true "Account id"
// @Success      200  {object}  response.APIResponse[syncJobResp]
// @Router       /api/v1/social/{id}/sync [post]
func ApiSyncAccount(ing *ingestion.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		jobID, err := ing.EnqueueOnDemand(c.Request.Context(), client.ID, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(syncJobResp{JobID: jobID}))
	}
}

// @Summary      Account sync status
// @Tags         Social
// @Produce      json
// @Param        id path string true "Account id"
// @Success      200  {object}  response.APIResponse[accountStatusResp]
// @Router       /api/v1/social/{id}/status [get]
func ApiAccountStatus(ing *ingestion.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		account, logs, err := ing.AccountStatus(c.Request.Context(), client.ID, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(accountStatusResp{Account: account, SyncLogs: logs}))
	}
}

func RegisterSocialRoutes(r gin.IRouter, ing *ingestion.Service, a *auth.Service) {
	r.GET("", ApiListAccounts(ing, a))
	r.DELETE("/:id", ApiDisconnectAccount(ing, a))
	r.POST("/:id/sync", ApiSyncAccount(ing, a))
	r.GET("/:id/status", ApiAccountStatus(ing, a))
}
