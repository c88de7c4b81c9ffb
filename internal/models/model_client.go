package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/socialpulse/backend/pkg/types"
)

// Client is the billing subject attached 1:1 to a user. The external
// subscription id together with CurrentPlan and Status forms the
// authoritative subscription record; there is no separate subscription row.
type Client struct {
	ID          string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID      string `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	CompanyName string `gorm:"column:company_name;type:varchar(255)" json:"company_name"`
	PackageName string `gorm:"column:package_name;type:varchar(64)" json:"package_name"`

	MonthlyFee decimal.Decimal     `gorm:"column:monthly_fee;type:numeric(10,2);not null;default:0" json:"monthly_fee"`
	TotalSpent decimal.Decimal     `gorm:"column:total_spent;type:numeric(10,2);not null;default:0" json:"total_spent"`
	Status     types.ClientStatus  `gorm:"column:status;type:varchar(32);not null" json:"status"`
	// PaymentStatus tracks the latest billing outcome; CurrentPlan=none
	// implies PaymentStatus=none.
	PaymentStatus types.PaymentStatus `gorm:"column:payment_status;type:varchar(32);not null" json:"payment_status"`
	CurrentPlan   types.PlanID        `gorm:"column:current_plan;type:varchar(32);not null;default:'none'" json:"current_plan"`

	// ExternalSubscriptionID is the billing provider's subscription id and is
	// the authoritative identifier for the subscription.
	ExternalSubscriptionID *string `gorm:"column:external_subscription_id;type:varchar(64);index" json:"external_subscription_id"`
	ExternalCustomerID     *string `gorm:"column:external_customer_id;type:varchar(64)" json:"external_customer_id"`

	StartDate             *time.Time `gorm:"column:start_date" json:"start_date"`
	NextPaymentDate       *time.Time `gorm:"column:next_payment_date" json:"next_payment_date"`
	SubscriptionStartDate *time.Time `gorm:"column:subscription_start_date" json:"subscription_start_date"`
	SubscriptionEndDate   *time.Time `gorm:"column:subscription_end_date" json:"subscription_end_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Client) TableName() string { return "client" }

// ActiveSubscription reports whether the client currently holds a valid
// subscription record.
func (c *Client) ActiveSubscription() bool {
	return c != nil &&
		c.Status == types.ClientStatusActive &&
		c.ExternalSubscriptionID != nil &&
		c.CurrentPlan != types.PlanNone
}
