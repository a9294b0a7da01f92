package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundTier maps a minimum number of hours before the move to a refund
// fraction. Tiers are checked in stored order; first match wins.
type RefundTier struct {
	MinHoursBefore int             `json:"min_hours_before"`
	Fraction       decimal.Decimal `json:"fraction"`
	Label          string          `json:"label"`
}

// RefundDecision is the computed outcome of a cancellation. Issuing the
// actual refund is an external payment-gateway call; its result never changes
// this decision.
type RefundDecision struct {
	TierApplied     string          `json:"tier_applied"`
	HoursBeforeMove float64         `json:"hours_before_move"`
	RefundFraction  decimal.Decimal `json:"refund_fraction"`
	RefundAmount    decimal.Decimal `json:"refund_amount"`
}

// CancellationPolicy computes refunds from a tiered table of
// hours-before-move bands. The policy is pure: no I/O, no clock of its own.
type CancellationPolicy struct {
	tiers []RefundTier
}

// NewCancellationPolicy creates the standard tiered policy:
// 72+ hours full refund, 48-72 hours 75%, 24-48 hours 50%, under 24 hours nothing.
func NewCancellationPolicy() *CancellationPolicy {
	return &CancellationPolicy{
		tiers: []RefundTier{
			{MinHoursBefore: 72, Fraction: decimal.NewFromInt(1), Label: "full refund - cancelled 72+ hours before move"},
			{MinHoursBefore: 48, Fraction: decimal.NewFromFloat(0.75), Label: "partial refund (75%) - cancelled 48-72 hours before move"},
			{MinHoursBefore: 24, Fraction: decimal.NewFromFloat(0.50), Label: "partial refund (50%) - cancelled 24-48 hours before move"},
			{MinHoursBefore: 0, Fraction: decimal.Zero, Label: "no refund - cancelled less than 24 hours before move"},
		},
	}
}

// ComputeRefund maps the interval between now and the move start against the
// tier table and applies the matched fraction to the booked total, rounded to
// two decimal places.
func (p *CancellationPolicy) ComputeRefund(total decimal.Decimal, moveStart, now time.Time) RefundDecision {
	hoursBefore := moveStart.Sub(now).Hours()
	if hoursBefore < 0 {
		hoursBefore = 0
	}

	tier := p.tiers[len(p.tiers)-1]
	for _, t := range p.tiers {
		if hoursBefore >= float64(t.MinHoursBefore) {
			tier = t
			break
		}
	}

	return RefundDecision{
		TierApplied:     tier.Label,
		HoursBeforeMove: hoursBefore,
		RefundFraction:  tier.Fraction,
		RefundAmount:    total.Mul(tier.Fraction).Round(2),
	}
}
