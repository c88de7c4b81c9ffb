package wallet

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/db"
	"github.com/socialpulse/backend/pkg/types"
)

type fakeCharger struct {
	calls []decimal.Decimal
	err   error
}

func (f *fakeCharger) Charge(_ context.Context, _ string, amount decimal.Decimal) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, amount)
	return "CAPTURE-1", nil
}

func newTestWallet(t *testing.T) (*Service, *gorm.DB, *fakeCharger) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	charger := &fakeCharger{}
	return NewService(gdb, charger, zap.NewNop().Sugar()), gdb, charger
}

func TestBalanceLazilyCreatesWallet(t *testing.T) {
	s, gdb, _ := newTestWallet(t)

	w, err := s.Balance(context.Background(), "client-1")
	require.NoError(t, err)
	require.True(t, w.Balance.IsZero())

	// Second call returns the same wallet.
	again, err := s.Balance(context.Background(), "client-1")
	require.NoError(t, err)
	require.Equal(t, w.ID, again.ID)

	var n int64
	require.NoError(t, gdb.Model(&models.Wallet{}).Count(&n).Error)
	require.Equal(t, int64(1), n)
}

func TestTopUpThenPayKeepsLedgerInvariant(t *testing.T) {
	s, _, _ := newTestWallet(t)
	ctx := context.Background()

	require.NoError(t, s.TopUp(ctx, "client-1", decimal.NewFromInt(100), types.PaymentMethodPayPal, "CAP-1"))
	require.NoError(t, s.Pay(ctx, "client-1", decimal.NewFromFloat(37.5), "Ad boost"))

	w, err := s.Balance(ctx, "client-1")
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromFloat(62.5)), w.Balance.String())
	require.True(t, w.TotalEarned.Equal(decimal.NewFromInt(100)))
	require.True(t, w.TotalSpent.Equal(decimal.NewFromFloat(37.5)))

	rows, err := s.Transactions(ctx, "client-1", 50, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Balance equals completed credits minus debits.
	sum := decimal.Zero
	for _, tr := range rows {
		if tr.Type == types.WalletTransactionCredit {
			sum = sum.Add(tr.Amount)
		} else {
			sum = sum.Sub(tr.Amount)
		}
	}
	require.True(t, w.Balance.Equal(sum))
}

func TestGrantBonusRaisesBalanceNotEarnings(t *testing.T) {
	s, _, _ := newTestWallet(t)
	ctx := context.Background()

	require.NoError(t, s.TopUp(ctx, "client-1", decimal.NewFromInt(20), types.PaymentMethodCard, ""))
	require.NoError(t, s.GrantBonus(ctx, "client-1", decimal.NewFromInt(5), "Referral bonus"))

	err := s.GrantBonus(ctx, "client-1", decimal.Zero, "empty")
	require.Equal(t, types.FaultValidation, types.KindOf(err))

	w, err := s.Balance(ctx, "client-1")
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(25)))
	require.True(t, w.TotalEarned.Equal(decimal.NewFromInt(20)))

	// Bonus funds are spendable like any credit.
	require.NoError(t, s.Pay(ctx, "client-1", decimal.NewFromInt(25), "Spend it all"))
	w, err = s.Balance(ctx, "client-1")
	require.NoError(t, err)
	require.True(t, w.Balance.IsZero())
}

func TestPayInsufficientBalanceWritesNothing(t *testing.T) {
	s, gdb, _ := newTestWallet(t)
	ctx := context.Background()

	require.NoError(t, s.TopUp(ctx, "client-1", decimal.NewFromInt(10), types.PaymentMethodPayPal, ""))

	err := s.Pay(ctx, "client-1", decimal.NewFromInt(50), "Too big")
	require.Equal(t, types.FaultConflict, types.KindOf(err))
	require.Contains(t, err.Error(), "insufficient balance")

	w, err := s.Balance(ctx, "client-1")
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(10)))

	var n int64
	require.NoError(t, gdb.Model(&models.WalletTransaction{}).
		Where("type = ?", types.WalletTransactionDebit).Count(&n).Error)
	require.Zero(t, n)
}

func TestPayRejectsNonPositiveAmount(t *testing.T) {
	s, _, _ := newTestWallet(t)
	err := s.Pay(context.Background(), "client-1", decimal.Zero, "free")
	require.Equal(t, types.FaultValidation, types.KindOf(err))
}

func TestTopUpRejectsUnknownMethod(t *testing.T) {
	s, _, _ := newTestWallet(t)
	err := s.TopUp(context.Background(), "client-1", decimal.NewFromInt(10), types.PaymentMethodType("cash"), "")
	require.Equal(t, types.FaultValidation, types.KindOf(err))
}

func TestCanAfford(t *testing.T) {
	s, _, _ := newTestWallet(t)
	ctx := context.Background()

	require.NoError(t, s.TopUp(ctx, "client-1", decimal.NewFromInt(25), types.PaymentMethodCard, ""))

	ok, err := s.CanAfford(ctx, "client-1", decimal.NewFromInt(25))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.CanAfford(ctx, "client-1", decimal.NewFromInt(26))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConfigureAutoRechargeValidation(t *testing.T) {
	s, _, _ := newTestWallet(t)
	ctx := context.Background()

	_, err := s.ConfigureAutoRecharge(ctx, "client-1", AutoRechargeInput{
		Enabled: true, Threshold: decimal.Zero, RechargeAmount: decimal.NewFromInt(50),
	})
	require.Equal(t, types.FaultValidation, types.KindOf(err))

	_, err = s.ConfigureAutoRecharge(ctx, "client-1", AutoRechargeInput{
		Enabled: true, Threshold: decimal.NewFromInt(10), RechargeAmount: decimal.NewFromInt(50),
	})
	require.Equal(t, types.FaultValidation, types.KindOf(err))
}

func TestAutoRechargeFiresBelowThreshold(t *testing.T) {
	s, gdb, charger := newTestWallet(t)
	ctx := context.Background()

	require.NoError(t, s.TopUp(ctx, "client-1", decimal.NewFromInt(100), types.PaymentMethodPayPal, ""))
	_, err := s.ConfigureAutoRecharge(ctx, "client-1", AutoRechargeInput{
		Enabled:           true,
		Threshold:         decimal.NewFromInt(20),
		RechargeAmount:    decimal.NewFromInt(50),
		PaymentMethodID:   "pm-1",
		PaymentMethodType: types.PaymentMethodPayPal,
	})
	require.NoError(t, err)

	// Debit drops the balance to 15, below the threshold of 20.
	require.NoError(t, s.Pay(ctx, "client-1", decimal.NewFromInt(85), "Campaign spend"))

	require.Len(t, charger.calls, 1)
	require.True(t, charger.calls[0].Equal(decimal.NewFromInt(50)))

	w, err := s.Balance(ctx, "client-1")
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(65)), w.Balance.String())

	var cfg models.AutoRecharge
	require.NoError(t, gdb.First(&cfg, "wallet_id = ?", w.ID).Error)
	require.Equal(t, int64(1), cfg.TotalRecharges)
	require.True(t, cfg.TotalRecharged.Equal(decimal.NewFromInt(50)))
	require.NotNil(t, cfg.LastRechargeAt)
}

func TestAutoRechargeSkipsAboveThreshold(t *testing.T) {
	s, _, charger := newTestWallet(t)
	ctx := context.Background()

	require.NoError(t, s.TopUp(ctx, "client-1", decimal.NewFromInt(100), types.PaymentMethodPayPal, ""))
	_, err := s.ConfigureAutoRecharge(ctx, "client-1", AutoRechargeInput{
		Enabled:           true,
		Threshold:         decimal.NewFromInt(20),
		RechargeAmount:    decimal.NewFromInt(50),
		PaymentMethodID:   "pm-1",
		PaymentMethodType: types.PaymentMethodPayPal,
	})
	require.NoError(t, err)

	fired, err := s.TriggerAutoRecharge(ctx, "client-1")
	require.NoError(t, err)
	require.False(t, fired)
	require.Empty(t, charger.calls)
}

func TestAutoRechargeChargeFailureLeavesBalance(t *testing.T) {
	s, _, charger := newTestWallet(t)
	ctx := context.Background()

	require.NoError(t, s.TopUp(ctx, "client-1", decimal.NewFromInt(10), types.PaymentMethodPayPal, ""))
	_, err := s.ConfigureAutoRecharge(ctx, "client-1", AutoRechargeInput{
		Enabled:           true,
		Threshold:         decimal.NewFromInt(20),
		RechargeAmount:    decimal.NewFromInt(50),
		PaymentMethodID:   "pm-1",
		PaymentMethodType: types.PaymentMethodPayPal,
	})
	require.NoError(t, err)
	charger.err = types.NewFault(types.FaultUpstreamPermanent, "card declined")

	_, err = s.TriggerAutoRecharge(ctx, "client-1")
	require.Error(t, err)

	w, err := s.Balance(ctx, "client-1")
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(10)))
}

func TestDisableAutoRecharge(t *testing.T) {
	s, _, charger := newTestWallet(t)
	ctx := context.Background()

	_, err := s.ConfigureAutoRecharge(ctx, "client-1", AutoRechargeInput{
		Enabled:           true,
		Threshold:         decimal.NewFromInt(20),
		RechargeAmount:    decimal.NewFromInt(50),
		PaymentMethodID:   "pm-1",
		PaymentMethodType: types.PaymentMethodPayPal,
	})
	require.NoError(t, err)
	require.NoError(t, s.DisableAutoRecharge(ctx, "client-1"))

	cfg, err := s.AutoRechargeConfig(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.False(t, cfg.Enabled)

	fired, err := s.TriggerAutoRecharge(ctx, "client-1")
	require.NoError(t, err)
	require.False(t, fired)
	require.Empty(t, charger.calls)
}

func TestAutoRechargeConfigNilWhenUnset(t *testing.T) {
	s, _, _ := newTestWallet(t)
	cfg, err := s.AutoRechargeConfig(context.Background(), "client-1")
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestConfigureAutoRechargeUpsertsPerWallet(t *testing.T) {
	s, gdb, _ := newTestWallet(t)
	ctx := context.Background()

	_, err := s.ConfigureAutoRecharge(ctx, "client-1", AutoRechargeInput{
		Enabled:           true,
		Threshold:         decimal.NewFromInt(20),
		RechargeAmount:    decimal.NewFromInt(50),
		PaymentMethodID:   "pm-1",
		PaymentMethodType: types.PaymentMethodPayPal,
	})
	require.NoError(t, err)

	cfg, err := s.ConfigureAutoRecharge(ctx, "client-1", AutoRechargeInput{
		Enabled:           true,
		Threshold:         decimal.NewFromInt(30),
		RechargeAmount:    decimal.NewFromInt(75),
		PaymentMethodID:   "pm-1",
		PaymentMethodType: types.PaymentMethodPayPal,
	})
	require.NoError(t, err)
	require.True(t, cfg.Threshold.Equal(decimal.NewFromInt(30)))

	var n int64
	require.NoError(t, gdb.Model(&models.AutoRecharge{}).Count(&n).Error)
	require.Equal(t, int64(1), n)
}
