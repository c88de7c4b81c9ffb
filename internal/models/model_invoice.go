package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/socialpulse/backend/pkg/types"
)

type Invoice struct {
	ID            string              `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ClientID      string              `gorm:"column:client_id;type:uuid;not null;index" json:"client_id"`
	InvoiceNumber string              `gorm:"column:invoice_number;type:varchar(64);not null;uniqueIndex" json:"invoice_number"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null" json:"amount"`
	Status        types.InvoiceStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	DueDate       string              `gorm:"column:due_date;type:varchar(10);not null;index" json:"due_date"`
	PaidAt        *time.Time          `gorm:"column:paid_at" json:"paid_at"`
	Description   string              `gorm:"column:description;type:text" json:"description"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoice" }
