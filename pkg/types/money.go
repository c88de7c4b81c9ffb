package types

import "github.com/shopspring/decimal"

// Money normalizes a monetary amount to 2 decimal places with banker's
// rounding. Every amount persisted by the core goes through this.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}
