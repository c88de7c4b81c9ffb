package wallet

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/tool"
	"github.com/socialpulse/backend/pkg/types"
)

// AutoRechargeInput is the client-facing configuration surface.
type AutoRechargeInput struct {
	Enabled           bool                    `json:"enabled"`
	Threshold         decimal.Decimal         `json:"threshold"`
	RechargeAmount    decimal.Decimal         `json:"recharge_amount"`
	PaymentMethodID   string                  `json:"payment_method_id"`
	PaymentMethodType types.PaymentMethodType `json:"payment_method_type"`
}

// AutoRechargeConfig returns the wallet's top-up configuration, nil when none
// was ever set.
func (s *Service) AutoRechargeConfig(ctx context.Context, clientID string) (*models.AutoRecharge, error) {
	w, err := s.Balance(ctx, clientID)
	if err != nil {
		return nil, err
	}
	var cfg models.AutoRecharge
	err = s.db.WithContext(ctx).Where("wallet_id = ?", w.ID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load auto-recharge config", err)
	}
	return &cfg, nil
}

// ConfigureAutoRecharge upserts the wallet's top-up configuration.
func (s *Service) ConfigureAutoRecharge(ctx context.Context, clientID string, in AutoRechargeInput) (*models.AutoRecharge, error) {
	if in.Enabled {
		if in.Threshold.LessThanOrEqual(decimal.Zero) || in.RechargeAmount.LessThanOrEqual(decimal.Zero) {
			return nil, types.NewFault(types.FaultValidation, "threshold and recharge amount must be positive")
		}
		if in.PaymentMethodID == "" || !types.ValidPaymentMethodType(in.PaymentMethodType) {
			return nil, types.NewFault(types.FaultValidation, "a saved payment method is required")
		}
	}
	w, err := s.Balance(ctx, clientID)
	if err != nil {
		return nil, err
	}

	cfg := &models.AutoRecharge{
		ID:                tool.GenerateUUIDV7(),
		WalletID:          w.ID,
		Enabled:           in.Enabled,
		Threshold:         types.Money(in.Threshold),
		RechargeAmount:    types.Money(in.RechargeAmount),
		PaymentMethodID:   in.PaymentMethodID,
		PaymentMethodType: in.PaymentMethodType,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"enabled", "threshold", "recharge_amount",
			"payment_method_id", "payment_method_type", "updated_at",
		}),
	}).Create(cfg).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "save auto-recharge config", err)
	}
	return s.AutoRechargeConfig(ctx, clientID)
}

// DisableAutoRecharge switches the configuration off, keeping its history.
func (s *Service) DisableAutoRecharge(ctx context.Context, clientID string) error {
	w, err := s.Balance(ctx, clientID)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Model(&models.AutoRecharge{}).
		Where("wallet_id = ?", w.ID).
		Update("enabled", false).Error
	if err != nil {
		return types.WrapFault(types.FaultInternal, "disable auto-recharge", err)
	}
	return nil
}

// TriggerAutoRecharge runs the threshold check on demand and reports whether
// a top-up fired.
func (s *Service) TriggerAutoRecharge(ctx context.Context, clientID string) (bool, error) {
	w, err := s.Balance(ctx, clientID)
	if err != nil {
		return false, err
	}
	return s.runAutoRecharge(ctx, clientID, w.ID)
}

// maybeAutoRecharge is the post-debit hook; failures are logged and never
// surface to the payer.
func (s *Service) maybeAutoRecharge(ctx context.Context, clientID, walletID string) {
	if _, err := s.runAutoRecharge(ctx, clientID, walletID); err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("auto-recharge failed", "client_id", clientID, "err", err)
	}
}

// runAutoRecharge charges the saved method when the balance sits below the
// threshold. The external charge runs outside any lock; only the credit
// insert and counters take a short locked transaction.
func (s *Service) runAutoRecharge(ctx context.Context, clientID, walletID string) (bool, error) {
	var cfg models.AutoRecharge
	err := s.db.WithContext(ctx).Where("wallet_id = ?", walletID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, types.WrapFault(types.FaultInternal, "load auto-recharge config", err)
	}
	if !cfg.Enabled {
		return false, nil
	}

	var w models.Wallet
	if err := s.db.WithContext(ctx).Where("id = ?", walletID).First(&w).Error; err != nil {
		return false, types.WrapFault(types.FaultInternal, "load wallet", err)
	}
	if w.Balance.GreaterThanOrEqual(cfg.Threshold) {
		return false, nil
	}

	reference, err := s.charger.Charge(ctx, cfg.PaymentMethodID, cfg.RechargeAmount)
	if err != nil {
		return false, err
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.walletForClient(ctx, tx, clientID, true)
		if err != nil {
			return err
		}
		row := &models.WalletTransaction{
			ID:            tool.GenerateUUIDV7(),
			WalletID:      locked.ID,
			Type:          types.WalletTransactionCredit,
			Status:        types.WalletTransactionCompleted,
			Amount:        types.Money(cfg.RechargeAmount),
			Description:   "Automatic recharge",
			PaymentMethod: cfg.PaymentMethodType,
			Reference:     reference,
		}
		if err := tx.Create(row).Error; err != nil {
			return types.WrapFault(types.FaultInternal, "write recharge credit", err)
		}
		if err := tx.Model(&models.Wallet{}).Where("id = ?", locked.ID).
			Updates(map[string]any{
				"balance":      types.Money(locked.Balance.Add(cfg.RechargeAmount)),
				"total_earned": types.Money(locked.TotalEarned.Add(cfg.RechargeAmount)),
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.AutoRecharge{}).Where("id = ?", cfg.ID).
			Updates(map[string]any{
				"last_recharge_at": now,
				"total_recharges":  gorm.Expr("total_recharges + 1"),
				"total_recharged":  types.Money(cfg.TotalRecharged.Add(cfg.RechargeAmount)),
			}).Error
	})
	if err != nil {
		return false, err
	}
	logctx.FromCtx(ctx, s.log).Infow("auto-recharge completed",
		"client_id", clientID, "amount", cfg.RechargeAmount.StringFixed(2), "reference", reference)
	return true, nil
}
