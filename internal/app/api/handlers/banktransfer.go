package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/socialpulse/backend/internal/app/service/billing"
	"github.com/socialpulse/backend/pkg/response"
	"github.com/socialpulse/backend/pkg/types"
)

type bankTransferReq struct {
	Name   string          `json:"name" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type approveTransferReq struct {
	PlanID string `json:"plan_id" binding:"required"`
}

// @Summary      Submit bank transfer claim
// @Description  Records a manual payment claim for admin review.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request body bankTransferReq true "Transfer details"
// @Success      200  {object}  response.APIResponse[models.BankTransferVerification]
// @Router       /api/v1/bank-transfer [post]
func ApiSubmitBankTransfer(b *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bankTransferReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		row, err := b.SubmitBankTransfer(c.Request.Context(), userID(c), req.Name, req.Amount)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(row))
	}
}

// @Summary      Pending bank transfers
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  response.APIResponse[[]models.BankTransferVerification]
// @Router       /api/v1/admin/bank-transfers [get]
func ApiPendingBankTransfers(b *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := b.PendingBankTransfers(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Approve bank transfer
// @Description  Activates the client's subscription on the chosen plan.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Verification id"
// @Param        request body approveTransferReq true "Plan assignment"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/admin/bank-transfers/{id}/approve [post]
func ApiApproveBankTransfer(b *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req approveTransferReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := b.ApproveBankTransfer(c.Request.Context(), userID(c), c.Param("id"), types.PlanID(req.PlanID)); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterBankTransferRoutes(client, admin gin.IRouter, b *billing.Service) {
	client.POST("", ApiSubmitBankTransfer(b))
	admin.GET("", ApiPendingBankTransfers(b))
	admin.POST("/:id/approve", ApiApproveBankTransfer(b))
}
