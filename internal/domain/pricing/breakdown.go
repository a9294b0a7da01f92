package pricing

import "github.com/shopspring/decimal"

// Surcharge is one applied rule in a price breakdown, in evaluation order.
type Surcharge struct {
	Kind        RuleKind        `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// PriceBreakdown is the deterministic, auditable result of a price
// computation. A breakdown attached to a confirmed booking is never mutated;
// re-pricing produces a brand-new breakdown.
type PriceBreakdown struct {
	BaseHourlyCost  decimal.Decimal `json:"base_hourly_cost"`
	BaseMileageCost decimal.Decimal `json:"base_mileage_cost"`
	Surcharges      []Surcharge     `json:"surcharges"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	MinimumApplied  bool            `json:"minimum_applied"`
	Total           decimal.Decimal `json:"total"`
	PlatformFee     decimal.Decimal `json:"platform_fee"`
}
