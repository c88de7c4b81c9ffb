package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/paypalclient"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/tool"
	"github.com/socialpulse/backend/pkg/types"
)

const (
	EventSubscriptionActivated = "BILLING.SUBSCRIPTION.ACTIVATED"
	EventSubscriptionCancelled = "BILLING.SUBSCRIPTION.CANCELLED"
	EventSaleCompleted         = "PAYMENT.SALE.COMPLETED"
	EventCaptureCompleted      = "PAYMENT.CAPTURE.COMPLETED"

	providerName = "paypal"
)

// ProviderEvent is one parsed webhook delivery. Raw keeps the full payload
// for the audit row.
type ProviderEvent struct {
	EventID   string
	EventType string
	Raw       []byte
}

type eventEnvelope struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

type subscriptionResource struct {
	ID          string `json:"id"`
	CustomID    string `json:"custom_id"`
	PlanID      string `json:"plan_id"`
	BillingInfo struct {
		NextBillingTime *time.Time `json:"next_billing_time"`
	} `json:"billing_info"`
}

type saleResource struct {
	ID                 string `json:"id"`
	BillingAgreementID string `json:"billing_agreement_id"`
	Amount             struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"amount"`
}

type captureResource struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoice_id"`
	CustomID  string `json:"custom_id"`
	Amount    struct {
		Value        string `json:"value"`
		CurrencyCode string `json:"currency_code"`
	} `json:"amount"`
}

// ParseEvent decodes a webhook delivery body. Bodies without an event id are
// rejected before any processing.
func ParseEvent(body []byte) (*ProviderEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, types.WrapFault(types.FaultValidation, "parse webhook body", err)
	}
	if env.ID == "" {
		return nil, types.NewFault(types.FaultValidation, "webhook event has no id")
	}
	return &ProviderEvent{EventID: env.ID, EventType: env.EventType, Raw: body}, nil
}

// HandleWebhookEvent applies one provider event exactly once. The audit row's
// unique (provider, event_id) key is inserted in the same transaction as the
// business mutation, so a replayed delivery rolls up into a no-op success.
func (s *Service) HandleWebhookEvent(ctx context.Context, ev *ProviderEvent) error {
	l := logctx.FromCtx(ctx, s.log)

	var after func()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		row := &models.WebhookEvent{
			ID:          tool.GenerateUUIDV7(),
			Provider:    providerName,
			EventID:     ev.EventID,
			EventType:   ev.EventType,
			Payload:     ev.Raw,
			ProcessedAt: &now,
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}

		var err error
		after, err = s.applyEvent(ctx, tx, ev, row)
		return err
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		l.Infow("duplicate webhook delivery dropped", "event_id", ev.EventID, "event_type", ev.EventType)
		return nil
	}
	if err != nil {
		return err
	}
	if after != nil {
		after()
	}
	return nil
}

// applyEvent dispatches on the event type. The returned closure runs after
// commit; notifications never fire for a rolled-back mutation.
func (s *Service) applyEvent(ctx context.Context, tx *gorm.DB, ev *ProviderEvent, row *models.WebhookEvent) (func(), error) {
	l := logctx.FromCtx(ctx, s.log)

	var env eventEnvelope
	if err := json.Unmarshal(ev.Raw, &env); err != nil {
		return nil, types.WrapFault(types.FaultValidation, "parse webhook resource", err)
	}

	switch ev.EventType {
	case EventSubscriptionActivated:
		var res subscriptionResource
		if err := json.Unmarshal(env.Resource, &res); err != nil {
			return nil, types.WrapFault(types.FaultValidation, "parse subscription resource", err)
		}
		client, err := s.webhookClient(ctx, tx, res.CustomID, res.ID)
		if err != nil {
			return s.dropUnmatched(tx, row, ev, err)
		}
		info := &paypalclient.SubscriptionInfo{
			ID:              res.ID,
			Status:          paypalclient.SubscriptionStatusActive,
			CustomID:        res.CustomID,
			PlanID:          res.PlanID,
			NextBillingTime: res.BillingInfo.NextBillingTime,
		}
		if err := s.activate(ctx, tx, client, info); err != nil {
			return nil, err
		}
		return func() { s.dispatchActivated(ctx, client, info) }, nil

	case EventSubscriptionCancelled:
		var res subscriptionResource
		if err := json.Unmarshal(env.Resource, &res); err != nil {
			return nil, types.WrapFault(types.FaultValidation, "parse subscription resource", err)
		}
		client, err := s.clientBySubscription(ctx, tx, res.ID)
		if err != nil {
			return s.dropUnmatched(tx, row, ev, err)
		}
		if client.Status == types.ClientStatusCancelled {
			return nil, nil
		}
		plan := client.CurrentPlan
		err = tx.Model(&models.Client{}).Where("id = ?", client.ID).
			Updates(map[string]any{
				"status":                types.ClientStatusCancelled,
				"payment_status":        types.PaymentStatusNone,
				"current_plan":          types.PlanNone,
				"monthly_fee":           decimal.Zero,
				"next_payment_date":     nil,
				"subscription_end_date": s.now(),
			}).Error
		if err != nil {
			return nil, types.WrapFault(types.FaultInternal, "reconcile cancelled subscription", err)
		}
		return func() {
			s.notify.Dispatch(ctx, types.NotificationSubscriptionCancelled, client.UserID,
				map[string]string{"plan": string(plan)})
		}, nil

	case EventSaleCompleted:
		var res saleResource
		if err := json.Unmarshal(env.Resource, &res); err != nil {
			return nil, types.WrapFault(types.FaultValidation, "parse sale resource", err)
		}
		client, err := s.clientBySubscription(ctx, tx, res.BillingAgreementID)
		if err != nil {
			return s.dropUnmatched(tx, row, ev, err)
		}
		amount, err := decimal.NewFromString(res.Amount.Total)
		if err != nil {
			return nil, types.WrapFault(types.FaultValidation, "parse sale amount", err)
		}
		return s.recordRecurringPayment(ctx, tx, client, amount)

	case EventCaptureCompleted:
		var res captureResource
		if err := json.Unmarshal(env.Resource, &res); err != nil {
			return nil, types.WrapFault(types.FaultValidation, "parse capture resource", err)
		}
		if res.InvoiceID == "" {
			l.Infow("capture without invoice reference", "event_id", ev.EventID)
			return nil, nil
		}
		amount, err := decimal.NewFromString(res.Amount.Value)
		if err != nil {
			return nil, types.WrapFault(types.FaultValidation, "parse capture amount", err)
		}
		return s.settleInvoice(ctx, tx, res.InvoiceID, amount)

	default:
		// Unknown types are stored for forensics and acknowledged.
		l.Debugw("unhandled webhook type", "event_type", ev.EventType)
		return nil, nil
	}
}

// recordRecurringPayment applies one successful subscription charge: spend
// roll-up, paid status, next payment one calendar month out and a paid
// invoice for the ledger.
func (s *Service) recordRecurringPayment(ctx context.Context, tx *gorm.DB, client *models.Client, amount decimal.Decimal) (func(), error) {
	now := s.now()
	nextPayment := now.AddDate(0, 1, 0)
	if client.NextPaymentDate != nil {
		nextPayment = client.NextPaymentDate.AddDate(0, 1, 0)
	}
	err := tx.Model(&models.Client{}).Where("id = ?", client.ID).
		Updates(map[string]any{
			"total_spent":       types.Money(client.TotalSpent.Add(amount)),
			"payment_status":    types.PaymentStatusPaid,
			"next_payment_date": nextPayment,
		}).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "record recurring payment", err)
	}

	invoice := &models.Invoice{
		ID:            tool.GenerateUUIDV7(),
		ClientID:      client.ID,
		InvoiceNumber: tool.GenerateInvoiceNumber(now),
		Amount:        types.Money(amount),
		Status:        types.InvoiceStatusPaid,
		DueDate:       now.Format(time.DateOnly),
		PaidAt:        &now,
		Description:   "Subscription renewal",
	}
	if err := tx.Create(invoice).Error; err != nil {
		return nil, types.WrapFault(types.FaultInternal, "create paid invoice", err)
	}

	return func() {
		s.notify.Dispatch(ctx, types.NotificationPaymentReceived, client.UserID, map[string]string{
			"amount": amount.StringFixed(2),
		})
	}, nil
}

// settleInvoice marks a referenced pending invoice paid and rolls the amount
// into the client's spend.
func (s *Service) settleInvoice(ctx context.Context, tx *gorm.DB, invoiceNumber string, amount decimal.Decimal) (func(), error) {
	var invoice models.Invoice
	err := tx.Where("invoice_number = ?", invoiceNumber).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.Faultf(types.FaultNotFound, "invoice %s not found", invoiceNumber)
	}
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load invoice", err)
	}
	if invoice.Status == types.InvoiceStatusPaid {
		return nil, nil
	}

	now := s.now()
	err = tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
		Updates(map[string]any{"status": types.InvoiceStatusPaid, "paid_at": now}).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "mark invoice paid", err)
	}

	var client models.Client
	if err := tx.Where("id = ?", invoice.ClientID).First(&client).Error; err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load invoice client", err)
	}
	err = tx.Model(&models.Client{}).Where("id = ?", client.ID).
		Updates(map[string]any{
			"total_spent":    types.Money(client.TotalSpent.Add(amount)),
			"payment_status": types.PaymentStatusPaid,
		}).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "roll up invoice payment", err)
	}

	return func() {
		s.notify.Dispatch(ctx, types.NotificationPaymentReceived, client.UserID, map[string]string{
			"amount": amount.StringFixed(2),
		})
	}, nil
}

// webhookClient resolves the event's client by custom id (our user id) first,
// then by the external subscription id.
func (s *Service) webhookClient(ctx context.Context, tx *gorm.DB, customID, subscriptionID string) (*models.Client, error) {
	if customID != "" {
		var client models.Client
		err := tx.Where("user_id = ?", customID).First(&client).Error
		if err == nil {
			return &client, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.WrapFault(types.FaultInternal, "load client by custom id", err)
		}
	}
	return s.clientBySubscription(ctx, tx, subscriptionID)
}

// dropUnmatched keeps the audit row with the lookup error and acknowledges
// the delivery. A webhook for an unknown client must never bounce with 5xx.
func (s *Service) dropUnmatched(tx *gorm.DB, row *models.WebhookEvent, ev *ProviderEvent, cause error) (func(), error) {
	if types.KindOf(cause) != types.FaultNotFound {
		return nil, cause
	}
	msg := cause.Error()
	if err := tx.Model(&models.WebhookEvent{}).Where("id = ?", row.ID).
		Update("processing_error", msg).Error; err != nil {
		return nil, types.WrapFault(types.FaultInternal, "record processing error", err)
	}
	s.log.Warnw("webhook matched no client", "event_id", ev.EventID, "event_type", ev.EventType, "err", msg)
	return nil, nil
}
