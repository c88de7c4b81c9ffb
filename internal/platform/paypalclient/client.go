package paypalclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/types"
)

// Statuses the billing coordinator cares about, normalized from the provider.
const (
	SubscriptionStatusApprovalPending = "APPROVAL_PENDING"
	SubscriptionStatusActive          = "ACTIVE"
	SubscriptionStatusCancelled       = "CANCELLED"
	OrderStatusCompleted              = "COMPLETED"
)

type SubscriptionInfo struct {
	ID              string
	Status          string
	CustomID        string
	PlanID          string
	NextBillingTime *time.Time
	ApprovalURL     string
}

type OrderInfo struct {
	ID          string
	Status      string
	ApprovalURL string
}

// Client is the narrow billing-provider surface the coordinator depends on;
// tests substitute a fake.
type Client interface {
	CreateSubscription(ctx context.Context, externalPlanID, customID string) (*SubscriptionInfo, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionInfo, error)
	CancelSubscription(ctx context.Context, subscriptionID, reason string) error
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, invoiceNumber, customID string) (*OrderInfo, error)
	CaptureOrder(ctx context.Context, orderID string) (*OrderInfo, error)
	VerifyWebhookSignature(ctx context.Context, req *http.Request) (bool, error)
}

type restClient struct {
	pp        *paypal.Client
	webhookID string
	log       *zap.SugaredLogger
}

func New(cfg *cfgpkg.Config, log *zap.SugaredLogger) (Client, error) {
	pp, err := paypal.NewClient(cfg.PayPal.ClientID, cfg.PayPal.Secret, cfg.PayPal.BaseURL)
	if err != nil {
		return nil, err
	}
	// The SDK caches the OAuth access token keyed by expiry and refreshes it
	// under its own lock; no instance state leaks across requests.
	pp.SetHTTPClient(&http.Client{Timeout: 30 * time.Second})
	return &restClient{pp: pp, webhookID: cfg.PayPal.WebhookID, log: log}, nil
}

func (c *restClient) CreateSubscription(ctx context.Context, externalPlanID, customID string) (*SubscriptionInfo, error) {
	resp, err := c.pp.CreateSubscription(ctx, paypal.SubscriptionBase{
		PlanID:   externalPlanID,
		CustomID: customID,
	})
	if err != nil {
		return nil, classify("create subscription", err)
	}
	return subscriptionInfo(resp), nil
}

func (c *restClient) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionInfo, error) {
	resp, err := c.pp.GetSubscriptionDetails(ctx, subscriptionID)
	if err != nil {
		return nil, classify("get subscription", err)
	}
	return subscriptionInfo(resp), nil
}

func (c *restClient) CancelSubscription(ctx context.Context, subscriptionID, reason string) error {
	if err := c.pp.CancelSubscription(ctx, subscriptionID, reason); err != nil {
		return classify("cancel subscription", err)
	}
	return nil
}

func (c *restClient) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, invoiceNumber, customID string) (*OrderInfo, error) {
	units := []paypal.PurchaseUnitRequest{{
		Amount: &paypal.PurchaseUnitAmount{
			Currency: currency,
			Value:    amount.StringFixed(2),
		},
		CustomID:  customID,
		InvoiceID: invoiceNumber,
	}}
	order, err := c.pp.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, nil)
	if err != nil {
		return nil, classify("create order", err)
	}
	return &OrderInfo{ID: order.ID, Status: order.Status, ApprovalURL: approvalLink(order.Links)}, nil
}

func (c *restClient) CaptureOrder(ctx context.Context, orderID string) (*OrderInfo, error) {
	capture, err := c.pp.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, classify("capture order", err)
	}
	return &OrderInfo{ID: capture.ID, Status: string(capture.Status)}, nil
}

func (c *restClient) VerifyWebhookSignature(ctx context.Context, req *http.Request) (bool, error) {
	if c.webhookID == "" {
		// Sandbox deployments without a registered webhook skip verification.
		return true, nil
	}
	resp, err := c.pp.VerifyWebhookSignature(ctx, req, c.webhookID)
	if err != nil {
		return false, classify("verify webhook signature", err)
	}
	return resp.VerificationStatus == "SUCCESS", nil
}

func subscriptionInfo(resp *paypal.SubscriptionDetailResp) *SubscriptionInfo {
	info := &SubscriptionInfo{
		ID:          resp.ID,
		Status:      string(resp.SubscriptionStatus),
		CustomID:    resp.CustomID,
		PlanID:      resp.PlanID,
		ApprovalURL: approvalLink(resp.Links),
	}
	if !resp.BillingInfo.NextBillingTime.IsZero() {
		t := resp.BillingInfo.NextBillingTime
		info.NextBillingTime = &t
	}
	return info
}

func approvalLink(links []paypal.Link) string {
	for _, l := range links {
		if l.Rel == "approve" {
			return l.Href
		}
	}
	return ""
}

// classify maps provider errors onto the fault model: 5xx and transport
// errors are retryable, 4xx are permanent.
func classify(op string, err error) error {
	var pe *paypal.ErrorResponse
	if errors.As(err, &pe) && pe.Response != nil {
		if pe.Response.StatusCode >= 500 {
			return types.WrapFault(types.FaultUpstreamTransient, op, err)
		}
		return types.WrapFault(types.FaultUpstreamPermanent, op, err)
	}
	return types.WrapFault(types.FaultUpstreamTransient, op, err)
}

var Module = fx.Options(
	fx.Provide(New),
)
