package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/pkg/tool"
	"github.com/socialpulse/backend/pkg/types"
)

// Charger captures a saved payment method for an auto-recharge top-up. The
// billing provider sits behind it; tests substitute a fake.
type Charger interface {
	Charge(ctx context.Context, paymentMethodID string, amount decimal.Decimal) (reference string, err error)
}

// Service owns the per-client ledger. Every balance change is one completed
// transaction row plus a synchronous balance recompute inside a row-locked
// transaction, so the balance always equals the completed-row sum and never
// goes negative.
type Service struct {
	db      *gorm.DB
	charger Charger
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewService(db *gorm.DB, charger Charger, log *zap.SugaredLogger) *Service {
	return &Service{db: db, charger: charger, log: log, now: time.Now}
}

// Balance returns the client's wallet, creating an empty one on first touch.
func (s *Service) Balance(ctx context.Context, clientID string) (*models.Wallet, error) {
	return s.walletForClient(ctx, s.db.WithContext(ctx), clientID, false)
}

// Transactions returns the wallet's ledger rows, newest first.
func (s *Service) Transactions(ctx context.Context, clientID string, limit, offset int) ([]*models.WalletTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	w, err := s.Balance(ctx, clientID)
	if err != nil {
		return nil, err
	}
	var rows []*models.WalletTransaction
	err = s.db.WithContext(ctx).
		Where("wallet_id = ?", w.ID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "list wallet transactions", err)
	}
	return rows, nil
}

// CanAfford reports whether the balance covers the amount.
func (s *Service) CanAfford(ctx context.Context, clientID string, amount decimal.Decimal) (bool, error) {
	w, err := s.Balance(ctx, clientID)
	if err != nil {
		return false, err
	}
	return w.Balance.GreaterThanOrEqual(amount), nil
}

// Pay debits the wallet. Insufficient balance is a Conflict and writes no
// row. A successful debit may trigger the auto-recharge check afterwards.
func (s *Service) Pay(ctx context.Context, clientID string, amount decimal.Decimal, description string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return types.NewFault(types.FaultValidation, "payment amount must be positive")
	}
	amount = types.Money(amount)

	var walletID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.walletForClient(ctx, tx, clientID, true)
		if err != nil {
			return err
		}
		walletID = w.ID
		if w.Balance.LessThan(amount) {
			return types.Faultf(types.FaultConflict, "insufficient balance: have %s, need %s",
				w.Balance.StringFixed(2), amount.StringFixed(2))
		}
		row := &models.WalletTransaction{
			ID:          tool.GenerateUUIDV7(),
			WalletID:    w.ID,
			Type:        types.WalletTransactionDebit,
			Status:      types.WalletTransactionCompleted,
			Amount:      amount,
			Description: description,
		}
		if err := tx.Create(row).Error; err != nil {
			return types.WrapFault(types.FaultInternal, "write debit", err)
		}
		return tx.Model(&models.Wallet{}).Where("id = ?", w.ID).
			Updates(map[string]any{
				"balance":     types.Money(w.Balance.Sub(amount)),
				"total_spent": types.Money(w.TotalSpent.Add(amount)),
			}).Error
	})
	if err != nil {
		return err
	}

	s.maybeAutoRecharge(ctx, clientID, walletID)
	return nil
}

// TopUp credits the wallet from an external payment method.
func (s *Service) TopUp(ctx context.Context, clientID string, amount decimal.Decimal, method types.PaymentMethodType, reference string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return types.NewFault(types.FaultValidation, "top-up amount must be positive")
	}
	if !types.ValidPaymentMethodType(method) {
		return types.Faultf(types.FaultValidation, "unsupported payment method: %s", method)
	}
	amount = types.Money(amount)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.walletForClient(ctx, tx, clientID, true)
		if err != nil {
			return err
		}
		row := &models.WalletTransaction{
			ID:            tool.GenerateUUIDV7(),
			WalletID:      w.ID,
			Type:          types.WalletTransactionCredit,
			Status:        types.WalletTransactionCompleted,
			Amount:        amount,
			Description:   "Wallet top-up",
			PaymentMethod: method,
			Reference:     reference,
		}
		if err := tx.Create(row).Error; err != nil {
			return types.WrapFault(types.FaultInternal, "write credit", err)
		}
		return tx.Model(&models.Wallet{}).Where("id = ?", w.ID).
			Updates(map[string]any{
				"balance":      types.Money(w.Balance.Add(amount)),
				"total_earned": types.Money(w.TotalEarned.Add(amount)),
			}).Error
	})
}

// GrantBonus credits promotional funds. Bonus rows raise the balance but not
// total_earned, keeping earned money distinguishable from promotions.
func (s *Service) GrantBonus(ctx context.Context, clientID string, amount decimal.Decimal, description string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return types.NewFault(types.FaultValidation, "bonus amount must be positive")
	}
	amount = types.Money(amount)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.walletForClient(ctx, tx, clientID, true)
		if err != nil {
			return err
		}
		row := &models.WalletTransaction{
			ID:          tool.GenerateUUIDV7(),
			WalletID:    w.ID,
			Type:        types.WalletTransactionBonus,
			Status:      types.WalletTransactionCompleted,
			Amount:      amount,
			Description: description,
		}
		if err := tx.Create(row).Error; err != nil {
			return types.WrapFault(types.FaultInternal, "write bonus", err)
		}
		return tx.Model(&models.Wallet{}).Where("id = ?", w.ID).
			Update("balance", types.Money(w.Balance.Add(amount))).Error
	})
}

// walletForClient loads (or lazily creates) the client's wallet. With lock
// set the row is read FOR UPDATE and stays locked until the enclosing
// transaction ends.
func (s *Service) walletForClient(ctx context.Context, tx *gorm.DB, clientID string, lock bool) (*models.Wallet, error) {
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var w models.Wallet
	err := q.Where("client_id = ?", clientID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w = models.Wallet{
			ID:       tool.GenerateUUIDV7(),
			ClientID: clientID,
			Balance:  decimal.Zero,
		}
		if err := tx.Create(&w).Error; err != nil {
			return nil, types.WrapFault(types.FaultInternal, "create wallet", err)
		}
		return &w, nil
	}
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load wallet", err)
	}
	return &w, nil
}

var Module = fx.Options(
	fx.Provide(NewCharger),
	fx.Provide(NewService),
)
