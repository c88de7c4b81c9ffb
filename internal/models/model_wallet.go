package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/socialpulse/backend/pkg/types"
)

// Wallet is the per-client ledger head. Balance is recomputed synchronously
// with every completed transaction insert and must equal the sum of completed
// credits and bonuses minus completed debits.
type Wallet struct {
	ID          string          `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ClientID    string          `gorm:"column:client_id;type:uuid;not null;uniqueIndex" json:"client_id"`
	Balance     decimal.Decimal `gorm:"column:balance;type:numeric(10,2);not null;default:0" json:"balance"`
	TotalEarned decimal.Decimal `gorm:"column:total_earned;type:numeric(10,2);not null;default:0" json:"total_earned"`
	TotalSpent  decimal.Decimal `gorm:"column:total_spent;type:numeric(10,2);not null;default:0" json:"total_spent"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string { return "wallet" }

type WalletTransaction struct {
	ID       string                        `gorm:"column:id;type:uuid;primary_key" json:"id"`
	WalletID string                        `gorm:"column:wallet_id;type:uuid;not null;index:idx_wallet_created,priority:1" json:"wallet_id"`
	Type     types.WalletTransactionType   `gorm:"column:type;type:varchar(32);not null" json:"type"`
	Status   types.WalletTransactionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`

	Amount        decimal.Decimal         `gorm:"column:amount;type:numeric(10,2);not null" json:"amount"`
	Description   string                  `gorm:"column:description;type:text" json:"description"`
	PaymentMethod types.PaymentMethodType `gorm:"column:payment_method;type:varchar(32)" json:"payment_method"`
	Reference     string                  `gorm:"column:reference;type:varchar(128)" json:"reference"`

	CreatedAt time.Time `gorm:"index:idx_wallet_created,priority:2,sort:desc" json:"created_at"`
}

func (WalletTransaction) TableName() string { return "wallet_transaction" }

// AutoRecharge is the 1:1 top-up configuration owned by a wallet.
type AutoRecharge struct {
	ID       string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	WalletID string `gorm:"column:wallet_id;type:uuid;not null;uniqueIndex" json:"wallet_id"`
	Enabled  bool   `gorm:"column:enabled;not null;default:false" json:"enabled"`

	Threshold      decimal.Decimal `gorm:"column:threshold;type:numeric(10,2);not null;default:0" json:"threshold"`
	RechargeAmount decimal.Decimal `gorm:"column:recharge_amount;type:numeric(10,2);not null;default:0" json:"recharge_amount"`

	PaymentMethodID   string                  `gorm:"column:payment_method_id;type:varchar(128)" json:"payment_method_id"`
	PaymentMethodType types.PaymentMethodType `gorm:"column:payment_method_type;type:varchar(32)" json:"payment_method_type"`

	LastRechargeAt *time.Time      `gorm:"column:last_recharge_at" json:"last_recharge_at"`
	TotalRecharges int64           `gorm:"column:total_recharges;not null;default:0" json:"total_recharges"`
	TotalRecharged decimal.Decimal `gorm:"column:total_recharged;type:numeric(10,2);not null;default:0" json:"total_recharged"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AutoRecharge) TableName() string { return "auto_recharge" }
