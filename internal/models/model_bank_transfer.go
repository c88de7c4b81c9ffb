package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/socialpulse/backend/pkg/types"
)

// BankTransferVerification is a client's claim of a manual bank payment,
// pending admin review. The claimed fields are never trusted; the admin
// chooses the plan on approval.
type BankTransferVerification struct {
	ID       string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ClientID string `gorm:"column:client_id;type:uuid;not null;index" json:"client_id"`

	ClaimedFullName string          `gorm:"column:claimed_full_name;type:varchar(255);not null" json:"claimed_full_name"`
	ClaimedAmount   decimal.Decimal `gorm:"column:claimed_amount;type:numeric(10,2);not null" json:"claimed_amount"`

	Status     types.BankTransferStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	PlanID     *types.PlanID            `gorm:"column:plan_id;type:varchar(32)" json:"plan_id"`
	ReviewedBy *string                  `gorm:"column:reviewed_by;type:uuid" json:"reviewed_by"`
	ReviewedAt *time.Time               `gorm:"column:reviewed_at" json:"reviewed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BankTransferVerification) TableName() string { return "bank_transfer_verification" }
