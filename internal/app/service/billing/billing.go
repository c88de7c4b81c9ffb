package billing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/socialpulse/backend/internal/app/service/notifier"
	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/paypalclient"
	cfgpkg "github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/types"
)

// renewalPeriod is the fallback billing interval when the provider does not
// report the next billing time.
const renewalPeriod = 30 * 24 * time.Hour

// Checkout is what the frontend needs to send the user through provider
// approval.
type Checkout struct {
	SubscriptionID string `json:"subscription_id"`
	ApprovalURL    string `json:"approval_url"`
}

// Service drives the client subscription state machine. All client mutations
// run inside per-client gorm transactions; provider calls stay outside them.
type Service struct {
	db       *gorm.DB
	cfg      *cfgpkg.Config
	provider paypalclient.Client
	notify   *notifier.Service
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(db *gorm.DB, cfg *cfgpkg.Config, provider paypalclient.Client, notify *notifier.Service, log *zap.SugaredLogger) *Service {
	return &Service{db: db, cfg: cfg, provider: provider, notify: notify, log: log, now: time.Now}
}

// Plans returns the server-resident plan table.
func (s *Service) Plans() []*types.Plan {
	return s.cfg.Plans
}

// CurrentSubscription returns the client's billing record.
func (s *Service) CurrentSubscription(ctx context.Context, userID string) (*models.Client, error) {
	return s.clientByUser(ctx, userID)
}

// CreateSubscription opens a provider subscription for the plan and parks the
// client in pending until approval. The client never becomes active here.
func (s *Service) CreateSubscription(ctx context.Context, userID string, planID types.PlanID) (*Checkout, error) {
	plan := s.cfg.GetPlan(planID)
	if plan == nil {
		return nil, types.Faultf(types.FaultValidation, "unknown plan: %s", planID)
	}
	client, err := s.clientByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if client.ActiveSubscription() && client.CurrentPlan == planID {
		return nil, types.Faultf(types.FaultConflict, "already subscribed to plan %s", planID)
	}

	info, err := s.provider.CreateSubscription(ctx, plan.ExternalPlanID, userID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&models.Client{}).
		Where("id = ?", client.ID).
		Updates(map[string]any{
			"external_subscription_id": info.ID,
			"status":                   types.ClientStatusPending,
			"payment_status":           types.PaymentStatusPending,
			"current_plan":             planID,
			"package_name":             plan.Name,
		}).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "store pending subscription", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription created",
		"user_id", userID, "plan", planID, "subscription_id", info.ID)
	return &Checkout{SubscriptionID: info.ID, ApprovalURL: info.ApprovalURL}, nil
}

// ApproveSubscription reconciles the post-approval redirect: the provider
// record must be ACTIVE and belong to this user before the client activates.
// The ACTIVATED webhook applies the same effects and remains authoritative.
func (s *Service) ApproveSubscription(ctx context.Context, userID, subscriptionID string) error {
	client, err := s.clientByUser(ctx, userID)
	if err != nil {
		return err
	}
	info, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if info.Status != paypalclient.SubscriptionStatusActive {
		return types.Faultf(types.FaultConflict, "subscription is %s, not active", info.Status)
	}
	if info.CustomID != userID {
		return types.NewFault(types.FaultConflict, "subscription belongs to a different user")
	}

	if err := s.activate(ctx, s.db.WithContext(ctx), client, info); err != nil {
		return err
	}
	s.dispatchActivated(ctx, client, info)
	return nil
}

// activate moves the client to active/paid with billing dates derived from
// the provider record. Idempotent for replays of the same subscription.
func (s *Service) activate(ctx context.Context, tx *gorm.DB, client *models.Client, info *paypalclient.SubscriptionInfo) error {
	now := s.now()
	plan := s.cfg.GetPlanByExternalID(info.PlanID)
	if plan == nil {
		plan = s.cfg.GetPlan(client.CurrentPlan)
	}
	if plan == nil {
		return types.Faultf(types.FaultInternal, "no plan matches provider plan id %s", info.PlanID)
	}

	nextPayment := now.Add(renewalPeriod)
	if info.NextBillingTime != nil {
		nextPayment = *info.NextBillingTime
	}
	updates := map[string]any{
		"external_subscription_id": info.ID,
		"status":                   types.ClientStatusActive,
		"payment_status":           types.PaymentStatusPaid,
		"current_plan":             plan.ID,
		"package_name":             plan.Name,
		"monthly_fee":              types.Money(plan.Price),
		"subscription_start_date":  now,
		"next_payment_date":        nextPayment,
	}
	if client.StartDate == nil {
		updates["start_date"] = now
	}
	if err := tx.Model(&models.Client{}).Where("id = ?", client.ID).Updates(updates).Error; err != nil {
		return types.WrapFault(types.FaultInternal, "activate client", err)
	}
	client.CurrentPlan = plan.ID
	client.NextPaymentDate = &nextPayment
	return nil
}

func (s *Service) dispatchActivated(ctx context.Context, client *models.Client, info *paypalclient.SubscriptionInfo) {
	next := ""
	if client.NextPaymentDate != nil {
		next = client.NextPaymentDate.Format(time.DateOnly)
	}
	s.notify.Dispatch(ctx, types.NotificationSubscriptionActivated, client.UserID, map[string]string{
		"plan":         string(client.CurrentPlan),
		"next_payment": next,
	})
}

// CancelSubscription cancels locally first so the client is released even
// when the provider is unreachable; the provider cancel is best-effort.
func (s *Service) CancelSubscription(ctx context.Context, userID string) error {
	client, err := s.clientByUser(ctx, userID)
	if err != nil {
		return err
	}
	if client.CurrentPlan == types.PlanNone && client.Status != types.ClientStatusActive {
		return types.NewFault(types.FaultConflict, "no subscription to cancel")
	}

	now := s.now()
	plan := client.CurrentPlan
	err = s.db.WithContext(ctx).Model(&models.Client{}).
		Where("id = ?", client.ID).
		Updates(map[string]any{
			"status":                types.ClientStatusCancelled,
			"payment_status":        types.PaymentStatusNone,
			"current_plan":          types.PlanNone,
			"monthly_fee":           decimal.Zero,
			"next_payment_date":     nil,
			"subscription_end_date": now,
		}).Error
	if err != nil {
		return types.WrapFault(types.FaultInternal, "cancel subscription", err)
	}

	if client.ExternalSubscriptionID != nil {
		if err := s.provider.CancelSubscription(ctx, *client.ExternalSubscriptionID, "cancelled by user"); err != nil {
			logctx.FromCtx(ctx, s.log).Warnw("provider cancel failed",
				"subscription_id", *client.ExternalSubscriptionID, "err", err)
		}
	}

	payload := map[string]string{"plan": string(plan)}
	s.notify.Dispatch(ctx, types.NotificationSubscriptionCancelled, client.UserID, payload)
	s.notify.NotifyAdmins(ctx, types.NotificationSubscriptionCancelled, map[string]string{
		"name": "team", "plan": string(plan),
	})
	return nil
}

// ChangePlan swaps the external subscription: the old one is cancelled and a
// fresh checkout is returned, so the client re-enters pending until approval.
func (s *Service) ChangePlan(ctx context.Context, userID string, planID types.PlanID) (*Checkout, error) {
	plan := s.cfg.GetPlan(planID)
	if plan == nil {
		return nil, types.Faultf(types.FaultValidation, "unknown plan: %s", planID)
	}
	client, err := s.clientByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if client.CurrentPlan == planID && client.ActiveSubscription() {
		return nil, types.Faultf(types.FaultConflict, "already on plan %s", planID)
	}

	if client.ExternalSubscriptionID != nil {
		if err := s.provider.CancelSubscription(ctx, *client.ExternalSubscriptionID, "plan change"); err != nil {
			logctx.FromCtx(ctx, s.log).Warnw("provider cancel on plan change failed",
				"subscription_id", *client.ExternalSubscriptionID, "err", err)
		}
	}
	return s.CreateSubscription(ctx, userID, planID)
}

func (s *Service) clientByUser(ctx context.Context, userID string) (*models.Client, error) {
	var client models.Client
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewFault(types.FaultNotFound, "client not found")
	}
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load client", err)
	}
	return &client, nil
}

func (s *Service) clientBySubscription(ctx context.Context, tx *gorm.DB, subscriptionID string) (*models.Client, error) {
	var client models.Client
	err := tx.Where("external_subscription_id = ?", subscriptionID).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewFault(types.FaultNotFound, "no client for subscription")
	}
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load client by subscription", err)
	}
	return &client, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
