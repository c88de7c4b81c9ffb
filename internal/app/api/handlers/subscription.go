package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/socialpulse/backend/internal/app/service/billing"
	"github.com/socialpulse/backend/internal/app/service/wallet"
	"github.com/socialpulse/backend/pkg/response"
	"github.com/socialpulse/backend/pkg/types"
)

type createSubscriptionReq struct {
	PlanID string `json:"plan_id" binding:"required"`
}

type approveSubscriptionReq struct {
	SubscriptionID string `json:"subscription_id" binding:"required"`
}

type createOrderReq struct {
	Amount        decimal.Decimal `json:"amount"`
	InvoiceNumber string          `json:"invoice_number"`
}

type captureOrderReq struct {
	OrderID       string          `json:"order_id" binding:"required"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
}

type payInvoiceReq struct {
	InvoiceNumber string `json:"invoice_number" binding:"required"`
}

// @Summary      List plans
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  response.APIResponse[[]types.Plan]
// @Router       /api/v1/subscription/plans [get]
func ApiListPlans(b *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(b.Plans()))
	}
}

// @Summary      Current subscription
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  response.APIResponse[models.Client]
// @Router       /api/v1/subscription/current [get]
func ApiCurrentSubscription(b *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := b.CurrentSubscription(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(client))
	}
}

// @Summary      Create subscription
// @Description  Opens a provider subscription; the client stays pending until approval.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body createSubscriptionReq true "Plan"
// @Success      200  {object}  response.APIResponse[billing.Checkout]
// @Router       /api/v1/subscription/create [post]
func ApiCreateSubscription(b *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSubscriptionReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		checkout, err := b.CreateSubscription(c.Request.Context(), userID(c), types.PlanID(req.PlanID))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(checkout))
	}
}

// @Summary      Approve subscription
// @Description  Confirms the post-approval redirect against the provider.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body approveSubscriptionReq true "Subscription"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/subscription/approve [post]
func ApiApproveSubscription(b *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req approveSubscriptionReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := b.ApproveSubscription(c.Request.Context(), userID(c), req.SubscriptionID); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Cancel subscription
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/subscription/cancel [post]
func ApiCancelSubscription(b *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := b.CancelSubscription(c.Request.Context(), userID(c)); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Change plan
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body createSubscriptionReq true "New plan"
// @Success      200  {object}  response.APIResponse[billing.Checkout]
// @Router       /api/v1/subscription/update-plan [post]
func ApiChangePlan(b *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSubscriptionReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		checkout, err := b.ChangePlan(c.Request.Context(), userID(c), types.PlanID(req.PlanID))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(checkout))
	}
}

// @Summary      Create order
// @Description  Opens a one-time provider order, optionally against an invoice.
// @Tags         Orders
// @Accept       json
// @Produce      json
// @Param        request body createOrderReq true "Order"
// @Success      200  {object}  response.APIResponse[paypalclient.OrderInfo]
// @Router       /api/v1/orders/create [post]
func ApiCreateOrder(b *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOrderReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		order, err := b.CreateOrder(c.Request.Context(), userID(c), req.Amount, req.InvoiceNumber)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(order))
	}
}

// @Summary      Capture order
// @Tags         Orders
// @Accept       json
// @Produce      json
// @Param        request body captureOrderReq true "Capture"
// @Success      200  {object}  response.APIResponse[paypalclient.OrderInfo]
// @Router       /api/v1/orders/capture [post]
func ApiCaptureOrder(b *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req captureOrderReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		order, err := b.CaptureOrder(c.Request.Context(), userID(c), req.OrderID, req.InvoiceNumber, req.Amount)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(order))
	}
}

// @Summary      List invoices
// @Tags         Invoices
// @Produce      json
// @Success      200  {object}  response.APIResponse[[]models.Invoice]
// @Router       /api/v1/invoices [get]
func ApiListInvoices(b *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		invoices, err := b.ListInvoices(c.Request.Context(), userID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(invoices))
	}
}

// @Summary      Pay invoice from wallet
// @Tags         Invoices
// @Accept       json
// @Produce      json
// @Param        request body payInvoiceReq true "Invoice"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/invoices/pay [post]
func ApiPayInvoice(b *billing.Service, w *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payInvoiceReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := b.PayInvoiceWithWallet(c.Request.Context(), userID(c), req.InvoiceNumber, w); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterBillingRoutes(sub, orders, invoices gin.IRouter, b *billing.Service, w *wallet.Service) {
	sub.GET("/plans", ApiListPlans(b))
	sub.GET("/current", ApiCurrentSubscription(b))
	sub.POST("/create", ApiCreateSubscription(b))
	sub.POST("/approve", ApiApproveSubscription(b))
	sub.POST("/cancel", ApiCancelSubscription(b))
	sub.POST("/update-plan", ApiChangePlan(b))

	orders.POST("/create", ApiCreateOrder(b))
	orders.POST("/capture", ApiCaptureOrder(b))

	invoices.GET("", ApiListInvoices(b))
	invoices.POST("/pay", ApiPayInvoice(b, w))
}
