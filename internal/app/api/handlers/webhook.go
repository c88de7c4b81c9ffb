package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/socialpulse/backend/internal/app/service/billing"
	"github.com/socialpulse/backend/internal/platform/paypalclient"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/response"
	"go.uber.org/zap"
)

// @Summary      PayPal webhook receiver
// @Description  Verifies the delivery signature and applies the event idempotently.
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/webhooks/paypal [post]
func ApiPayPalWebhook(b *billing.Service, provider paypalclient.Client, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := logctx.FromGin(c, log)

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "unreadable body"))
			return
		}
		// Signature verification reads the body again.
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ok, err := provider.VerifyWebhookSignature(c.Request.Context(), c.Request)
		if err != nil {
			l.Errorw("webhook signature verification errored", "err", err)
			c.JSON(http.StatusServiceUnavailable, response.ErrorT[any](response.APIResponseCodeUpstream, "verification unavailable"))
			return
		}
		if !ok {
			l.Warnw("webhook signature rejected")
			c.JSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "invalid signature"))
			return
		}

		event, err := billing.ParseEvent(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := b.HandleWebhookEvent(c.Request.Context(), event); err != nil {
			l.Errorw("webhook processing failed", "event_id", event.EventID, "err", err)
			// Non-2xx makes the provider redeliver; processing is idempotent.
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, "processing failed"))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, b *billing.Service, provider paypalclient.Client, log *zap.SugaredLogger) {
	r.POST("/paypal", ApiPayPalWebhook(b, provider, log))
}
