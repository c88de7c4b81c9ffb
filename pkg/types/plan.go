package types

import "github.com/shopspring/decimal"

type PlanID string

const (
	PlanNone    PlanID = "none"
	PlanStarter PlanID = "starter"
	PlanPro     PlanID = "pro"
	PlanPremium PlanID = "premium"
)

// Plan is one row of the server-resident plan table. The external plan id is
// the billing provider's identifier used when creating subscriptions; the
// client-declared plan is validated against this table and never trusted
// further.
type Plan struct {
	ID             PlanID `json:"id" mapstructure:"id"`
	ExternalPlanID string `json:"external_plan_id" mapstructure:"external_plan_id"`
	// Price is the monthly fee in whole currency units, e.g. "250.00".
	Price decimal.Decimal `json:"price" mapstructure:"price"`
	Name  string          `json:"name" mapstructure:"name"`
}

func ValidPlanID(id PlanID) bool {
	switch id {
	case PlanStarter, PlanPro, PlanPremium:
		return true
	}
	return false
}
