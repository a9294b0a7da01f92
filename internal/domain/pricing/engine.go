package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moveboard/service-booking/internal/domain"
)

// Move is the pricing-relevant description of a requested move.
type Move struct {
	MoveDate               time.Time
	EstimatedDistanceMiles float64
	EstimatedDurationHours float64
	PickupFloors           int
	PickupHasElevator      bool
	DropoffFloors          int
	DropoffHasElevator     bool
	SpecialItems           []string
}

// Engine computes deterministic price breakdowns. It is a pure function of
// its inputs and may run fully in parallel across requests.
type Engine struct {
	platformFeeRate decimal.Decimal
}

// NewEngine creates an Engine with the process-wide platform fee rate
// (a fraction, e.g. 0.05). Organizations may override the rate in their
// pricing configuration.
func NewEngine(platformFeeRate decimal.Decimal) *Engine {
	return &Engine{platformFeeRate: platformFeeRate}
}

// Price evaluates the organization's rule list against the move, strictly in
// stored order, and returns a new PriceBreakdown. All arithmetic is decimal;
// rounding to two places happens only for the final total and platform fee.
//
// Any rule the engine cannot evaluate deterministically aborts the whole
// computation rather than being skipped.
func (e *Engine) Price(move Move, cfg *PricingConfig) (PriceBreakdown, error) {
	if move.EstimatedDistanceMiles < 0 {
		return PriceBreakdown{}, domain.NewValidationError("estimated distance cannot be negative")
	}
	if move.EstimatedDurationHours <= 0 {
		return PriceBreakdown{}, domain.NewValidationError("estimated duration must be positive")
	}

	duration := decimal.NewFromFloat(move.EstimatedDurationHours)
	distance := decimal.NewFromFloat(move.EstimatedDistanceMiles)

	baseHourlyCost := cfg.BaseHourlyRate.Mul(duration)
	baseMileageCost := cfg.BaseMileageRate.Mul(distance)
	baseCost := baseHourlyCost.Add(baseMileageCost)

	surcharges := make([]Surcharge, 0, len(cfg.SurchargeRules))
	running := baseCost

	for _, rule := range cfg.SurchargeRules {
		if !rule.Enabled {
			continue
		}
		applied, err := evaluateRule(rule, move, baseCost, running, distance)
		if err != nil {
			return PriceBreakdown{}, err
		}
		for _, s := range applied {
			surcharges = append(surcharges, s)
			running = running.Add(s.Amount)
		}
	}

	subtotal := running
	minimumApplied := subtotal.LessThan(cfg.MinimumCharge)
	total := subtotal
	if minimumApplied {
		total = cfg.MinimumCharge
	}
	total = total.Round(2)

	feeRate := e.platformFeeRate
	if cfg.PlatformFeeRate != nil {
		feeRate = *cfg.PlatformFeeRate
	}

	return PriceBreakdown{
		BaseHourlyCost:  baseHourlyCost,
		BaseMileageCost: baseMileageCost,
		Surcharges:      surcharges,
		Subtotal:        subtotal,
		MinimumApplied:  minimumApplied,
		Total:           total,
		PlatformFee:     total.Mul(feeRate).Round(2),
	}, nil
}

// evaluateRule returns the surcharges a single rule contributes. baseCost is
// the hourly+mileage base; running is the subtotal including prior surcharges.
// Time multipliers compound only against the base, never against other
// surcharges; percentage customs tax the running subtotal and therefore
// depend on evaluation order.
func evaluateRule(rule SurchargeRule, move Move, baseCost, running, distance decimal.Decimal) ([]Surcharge, error) {
	switch rule.Kind {
	case RuleStairs:
		var out []Surcharge
		if move.PickupFloors > 0 && !move.PickupHasElevator {
			out = append(out, Surcharge{
				Kind:        RuleStairs,
				Description: describe(rule, "stairs at pickup"),
				Amount:      rule.RatePerFlight.Mul(decimal.NewFromInt(int64(move.PickupFloors))),
			})
		}
		if move.DropoffFloors > 0 && !move.DropoffHasElevator {
			out = append(out, Surcharge{
				Kind:        RuleStairs,
				Description: describe(rule, "stairs at dropoff"),
				Amount:      rule.RatePerFlight.Mul(decimal.NewFromInt(int64(move.DropoffFloors))),
			})
		}
		return out, nil

	case RuleSpecialItem:
		ruleItems := make(map[string]struct{}, len(rule.Items))
		for _, item := range rule.Items {
			ruleItems[strings.ToLower(item)] = struct{}{}
		}
		var out []Surcharge
		for _, item := range distinctItems(move.SpecialItems) {
			if _, ok := ruleItems[item]; !ok {
				continue
			}
			out = append(out, Surcharge{
				Kind:        RuleSpecialItem,
				Description: describe(rule, "special item: "+item),
				Amount:      rule.ItemFee,
			})
		}
		return out, nil

	case RuleTimeOfDay:
		match, err := matchesTimeOfDay(rule, move.MoveDate)
		if err != nil {
			return nil, err
		}
		if !match {
			return nil, nil
		}
		amount := baseCost.Mul(rule.Multiplier.Sub(decimal.NewFromInt(1)))
		return []Surcharge{{
			Kind:        RuleTimeOfDay,
			Description: describe(rule, "time-of-day multiplier"),
			Amount:      amount,
		}}, nil

	case RuleDistance:
		if distance.LessThanOrEqual(rule.ThresholdMiles) {
			return nil, nil
		}
		amount := distance.Sub(rule.ThresholdMiles).Mul(rule.PerExtraMileRate)
		return []Surcharge{{
			Kind:        RuleDistance,
			Description: describe(rule, "long distance"),
			Amount:      amount,
		}}, nil

	case RuleCustom:
		amount := rule.Amount
		if !rule.Percent.IsZero() {
			amount = running.Mul(rule.Percent).Div(decimal.NewFromInt(100))
		}
		return []Surcharge{{
			Kind:        RuleCustom,
			Description: describe(rule, "custom surcharge"),
			Amount:      amount,
		}}, nil

	default:
		return nil, domain.NewPricingConfigError("unknown rule kind %q", rule.Kind)
	}
}

// matchesTimeOfDay reports whether the move date falls on a configured day of
// week or inside the configured clock range. Ranges may wrap past midnight
// (e.g. 18:00-08:00).
func matchesTimeOfDay(rule SurchargeRule, moveDate time.Time) (bool, error) {
	weekday := int(moveDate.UTC().Weekday())
	for _, d := range rule.Days {
		if d == weekday {
			return true, nil
		}
	}

	if rule.StartTime == "" {
		return false, nil
	}
	start, err := parseClock(rule.StartTime)
	if err != nil {
		return false, domain.NewPricingConfigError("time_of_day rule: %v", err)
	}
	end, err := parseClock(rule.EndTime)
	if err != nil {
		return false, domain.NewPricingConfigError("time_of_day rule: %v", err)
	}

	at := clockMinutes(moveDate.UTC().Hour()*60 + moveDate.UTC().Minute())
	if start > end {
		return at >= start || at <= end, nil
	}
	return at >= start && at <= end, nil
}

func distinctItems(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func describe(rule SurchargeRule, fallback string) string {
	if rule.Description != "" {
		return rule.Description
	}
	return fallback
}
