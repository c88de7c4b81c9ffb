package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/socialpulse/backend/internal/app/service/auth"
	"github.com/socialpulse/backend/internal/app/service/wallet"
	"github.com/socialpulse/backend/pkg/response"
	"github.com/socialpulse/backend/pkg/types"
)

type walletPayReq struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
}

type walletTopUpReq struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Method    string          `json:"method" binding:"required"`
	Reference string          `json:"reference"`
}

type canAffordResp struct {
	CanAfford bool `json:"can_afford"`
}

type triggerResp struct {
	Recharged bool `json:"recharged"`
}

// @Summary      Wallet balance
// @Tags         Wallet
// @Produce      json
// @Success      200  {object}  response.APIResponse[models.Wallet]
// @Router       /api/v1/wallet [get]
func ApiWallet(w *wallet.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		wal, err := w.Balance(c.Request.Context(), client.ID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(wal))
	}
}

// @Summary      Pay from wallet
// @Tags         Wallet
// @Accept       json
// @Produce      json
// @Param        request body walletPayReq true "Payment"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/wallet/pay [post]
func ApiWalletPay(w *wallet.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req walletPayReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		if err := w.Pay(c.Request.Context(), client.ID, req.Amount, req.Description); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Top up wallet
// @Tags         Wallet
// @Accept       json
// @Produce      json
// @Param        request body walletTopUpReq true "Top-up"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/wallet/topup [post]
func ApiWalletTopUp(w *wallet.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req walletTopUpReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		if err := w.TopUp(c.Request.Context(), client.ID, req.Amount, types.PaymentMethodType(req.Method), req.Reference); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Can afford
// @Tags         Wallet
// @Produce      json
// @Param        amount query string true "Amount"
// @Success      200  {object}  response.APIResponse[canAffordResp]
// @Router       /api/v1/wallet/can-afford [get]
func ApiWalletCanAfford(w *wallet.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		amount, err := decimal.NewFromString(c.Query("amount"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid amount"))
			return
		}
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		ok, err := w.CanAfford(c.Request.Context(), client.ID, amount)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(canAffordResp{CanAfford: ok}))
	}
}

// @Summary      Wallet transactions
// @Tags         Wallet
// @Produce      json
// @Param        limit  query int false "Page size" default(50)
// @Param        offset query int false "Offset" default(0)
// @Success      200  {object}  response.APIResponse[[]models.WalletTransaction]
// @Router       /api/v1/wallet/transactions [get]
func ApiWalletTransactions(w *wallet.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		rows, err := w.Transactions(c.Request.Context(), client.ID, limit, offset)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Auto-recharge configuration
// @Tags         Wallet
// @Produce      json
// @Success      200  {object}  response.APIResponse[models.AutoRecharge]
// @Router       /api/v1/wallet/auto-recharge [get]
func ApiAutoRechargeGet(w *wallet.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		cfg, err := w.AutoRechargeConfig(c.Request.Context(), client.ID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(cfg))
	}
}

// @Summary      Configure auto-recharge
// @Tags         Wallet
// @Accept       json
// @Produce      json
// @Param        request body wallet.AutoRechargeInput true "Configuration"
// @Success      200  {object}  response.APIResponse[models.AutoRecharge]
// @Router       /api/v1/wallet/auto-recharge [post]
func ApiAutoRechargeConfigure(w *wallet.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req wallet.AutoRechargeInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		cfg, err := w.ConfigureAutoRecharge(c.Request.Context(), client.ID, req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(cfg))
	}
}

// @Summary      Trigger auto-recharge check
// @Tags         Wallet
// @Produce      json
// @Success      200  {object}  response.APIResponse[triggerResp]
// @Router       /api/v1/wallet/auto-recharge/trigger [post]
func ApiAutoRechargeTrigger(w *wallet.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		fired, err := w.TriggerAutoRecharge(c.Request.Context(), client.ID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(triggerResp{Recharged: fired}))
	}
}

// @Summary      Disable auto-recharge
// @Tags         Wallet
// @Produce      json
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/wallet/auto-recharge [delete]
func ApiAutoRechargeDisable(w *wallet.Service, a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := a.ClientForUser(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		if err := w.DisableAutoRecharge(c.Request.Context(), client.ID); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterWalletRoutes(r gin.IRouter, w *wallet.Service, a *auth.Service) {
	r.GET("", ApiWallet(w, a))
	r.POST("/pay", ApiWalletPay(w, a))
	r.POST("/topup", ApiWalletTopUp(w, a))
	r.GET("/can-afford", ApiWalletCanAfford(w, a))
	r.GET("/transactions", ApiWalletTransactions(w, a))

	ar := r.Group("/auto-recharge")
	ar.GET("", ApiAutoRechargeGet(w, a))
	ar.POST("", ApiAutoRechargeConfigure(w, a))
	ar.POST("/trigger", ApiAutoRechargeTrigger(w, a))
	ar.DELETE("", ApiAutoRechargeDisable(w, a))
}
