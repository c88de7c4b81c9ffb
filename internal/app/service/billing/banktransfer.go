package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/tool"
	"github.com/socialpulse/backend/pkg/types"
)

// SubmitBankTransfer records a client's claim of a manual payment. Nothing
// about the client changes until an admin approves it.
func (s *Service) SubmitBankTransfer(ctx context.Context, userID, claimedName string, claimedAmount decimal.Decimal) (*models.BankTransferVerification, error) {
	if strings.TrimSpace(claimedName) == "" {
		return nil, types.NewFault(types.FaultValidation, "sender name is required")
	}
	if claimedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, types.NewFault(types.FaultValidation, "claimed amount must be positive")
	}
	client, err := s.clientByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	row := &models.BankTransferVerification{
		ID:              tool.GenerateUUIDV7(),
		ClientID:        client.ID,
		ClaimedFullName: strings.TrimSpace(claimedName),
		ClaimedAmount:   types.Money(claimedAmount),
		Status:          types.BankTransferStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, types.WrapFault(types.FaultInternal, "create bank transfer claim", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("bank transfer submitted",
		"client_id", client.ID, "amount", row.ClaimedAmount.StringFixed(2))
	return row, nil
}

// PendingBankTransfers lists claims awaiting review.
func (s *Service) PendingBankTransfers(ctx context.Context) ([]*models.BankTransferVerification, error) {
	var rows []*models.BankTransferVerification
	err := s.db.WithContext(ctx).
		Where("status = ?", types.BankTransferStatusPending).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "list pending transfers", err)
	}
	return rows, nil
}

// ApproveBankTransfer activates the client on the admin-chosen plan and rolls
// the verified amount into spend, all in one transaction. The claimed plan or
// price is never used.
func (s *Service) ApproveBankTransfer(ctx context.Context, adminID, verificationID string, planID types.PlanID) error {
	plan := s.cfg.GetPlan(planID)
	if plan == nil {
		return types.Faultf(types.FaultValidation, "unknown plan: %s", planID)
	}

	var client models.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.BankTransferVerification
		err := tx.Where("id = ?", verificationID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NewFault(types.FaultNotFound, "bank transfer claim not found")
		}
		if err != nil {
			return types.WrapFault(types.FaultInternal, "load bank transfer claim", err)
		}
		if row.Status != types.BankTransferStatusPending {
			return types.Faultf(types.FaultConflict, "claim is already %s", row.Status)
		}

		if err := tx.Where("id = ?", row.ClientID).First(&client).Error; err != nil {
			return types.WrapFault(types.FaultInternal, "load claiming client", err)
		}

		now := s.now()
		err = tx.Model(&models.BankTransferVerification{}).Where("id = ?", row.ID).
			Updates(map[string]any{
				"status":      types.BankTransferStatusApproved,
				"plan_id":     planID,
				"reviewed_by": adminID,
				"reviewed_at": now,
			}).Error
		if err != nil {
			return types.WrapFault(types.FaultInternal, "approve claim", err)
		}

		nextPayment := now.Add(renewalPeriod)
		updates := map[string]any{
			"status":                  types.ClientStatusActive,
			"payment_status":          types.PaymentStatusPaid,
			"current_plan":            planID,
			"package_name":            plan.Name,
			"monthly_fee":             types.Money(plan.Price),
			"total_spent":             types.Money(client.TotalSpent.Add(row.ClaimedAmount)),
			"subscription_start_date": now,
			"next_payment_date":       nextPayment,
		}
		if client.StartDate == nil {
			updates["start_date"] = now
		}
		if err := tx.Model(&models.Client{}).Where("id = ?", client.ID).Updates(updates).Error; err != nil {
			return types.WrapFault(types.FaultInternal, "activate client from bank transfer", err)
		}
		client.CurrentPlan = planID
		client.NextPaymentDate = &nextPayment
		return nil
	})
	if err != nil {
		return err
	}

	s.notify.Dispatch(ctx, types.NotificationSubscriptionActivated, client.UserID, map[string]string{
		"plan":         string(planID),
		"next_payment": client.NextPaymentDate.Format(time.DateOnly),
	})
	return nil
}
