package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moveboard/service-booking/internal/domain"
)

// RuleKind identifies a surcharge rule variant. The set is closed: the
// evaluator switches exhaustively over these kinds and an unrecognized kind
// is a configuration error, never a silently skipped rule.
type RuleKind string

const (
	RuleStairs      RuleKind = "stairs"
	RuleSpecialItem RuleKind = "special_item"
	RuleTimeOfDay   RuleKind = "time_of_day"
	RuleDistance    RuleKind = "distance"
	RuleCustom      RuleKind = "custom"
)

// SurchargeRule is one entry of an organization's ordered rule list. Only the
// fields for its Kind are meaningful; Validate enforces that per kind.
type SurchargeRule struct {
	Kind        RuleKind `json:"kind"`
	Enabled     bool     `json:"enabled"`
	Description string   `json:"description,omitempty"`

	// stairs
	RatePerFlight decimal.Decimal `json:"rate_per_flight,omitempty"`

	// special_item
	Items   []string        `json:"items,omitempty"`
	ItemFee decimal.Decimal `json:"item_fee,omitempty"`

	// time_of_day
	Multiplier decimal.Decimal `json:"multiplier,omitempty"`
	Days       []int           `json:"days,omitempty"`       // 0=Sunday .. 6=Saturday
	StartTime  string          `json:"start_time,omitempty"` // HH:MM, may wrap past midnight
	EndTime    string          `json:"end_time,omitempty"`

	// distance
	ThresholdMiles   decimal.Decimal `json:"threshold_miles,omitempty"`
	PerExtraMileRate decimal.Decimal `json:"per_extra_mile_rate,omitempty"`

	// custom
	Amount  decimal.Decimal `json:"amount,omitempty"`
	Percent decimal.Decimal `json:"percent,omitempty"`
}

// PricingConfig is an organization's versioned pricing document. The rule
// list order is the evaluation order and is a stored invariant: rules are
// never re-sorted.
type PricingConfig struct {
	OrgID           uuid.UUID        `json:"org_id"`
	Version         int              `json:"version"`
	BaseHourlyRate  decimal.Decimal  `json:"base_hourly_rate"`
	BaseMileageRate decimal.Decimal  `json:"base_mileage_rate"`
	MinimumCharge   decimal.Decimal  `json:"minimum_charge"`
	PlatformFeeRate *decimal.Decimal `json:"platform_fee_rate,omitempty"`
	SurchargeRules  []SurchargeRule  `json:"surcharge_rules"`
}

// ParsePricingConfig decodes and validates a stored configuration document.
// Validation happens here, eagerly, so a malformed config can never reach
// price computation for a live booking.
func ParsePricingConfig(raw []byte) (*PricingConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var cfg PricingConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, domain.NewPricingConfigError("malformed document: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural invariants of the configuration. It returns
// a PricingConfigError naming the first violation found.
func (c *PricingConfig) Validate() error {
	if c.BaseHourlyRate.IsNegative() || c.BaseHourlyRate.IsZero() {
		return domain.NewPricingConfigError("base hourly rate must be positive, got %s", c.BaseHourlyRate)
	}
	if c.BaseMileageRate.IsNegative() {
		return domain.NewPricingConfigError("base mileage rate cannot be negative, got %s", c.BaseMileageRate)
	}
	if c.MinimumCharge.IsNegative() {
		return domain.NewPricingConfigError("minimum charge cannot be negative, got %s", c.MinimumCharge)
	}
	if c.PlatformFeeRate != nil {
		if c.PlatformFeeRate.IsNegative() || c.PlatformFeeRate.GreaterThan(decimal.NewFromInt(1)) {
			return domain.NewPricingConfigError("platform fee rate must be within [0, 1], got %s", c.PlatformFeeRate)
		}
	}
	for i, rule := range c.SurchargeRules {
		if err := rule.validate(); err != nil {
			return domain.NewPricingConfigError("rule %d (%s): %v", i, rule.Kind, err)
		}
	}
	return nil
}

func (r *SurchargeRule) validate() error {
	switch r.Kind {
	case RuleStairs:
		if r.RatePerFlight.IsNegative() || r.RatePerFlight.IsZero() {
			return fmt.Errorf("rate per flight must be positive, got %s", r.RatePerFlight)
		}
	case RuleSpecialItem:
		if len(r.Items) == 0 {
			return fmt.Errorf("item set is empty")
		}
		if r.ItemFee.IsNegative() {
			return fmt.Errorf("item fee cannot be negative, got %s", r.ItemFee)
		}
	case RuleTimeOfDay:
		if r.Multiplier.LessThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("multiplier must be greater than 1, got %s", r.Multiplier)
		}
		for _, d := range r.Days {
			if d < 0 || d > 6 {
				return fmt.Errorf("day of week out of range: %d", d)
			}
		}
		if (r.StartTime == "") != (r.EndTime == "") {
			return fmt.Errorf("start and end time must be set together")
		}
		if r.StartTime != "" {
			if _, err := parseClock(r.StartTime); err != nil {
				return err
			}
			if _, err := parseClock(r.EndTime); err != nil {
				return err
			}
		}
		if len(r.Days) == 0 && r.StartTime == "" {
			return fmt.Errorf("requires days or a time range")
		}
	case RuleDistance:
		if r.ThresholdMiles.IsNegative() {
			return fmt.Errorf("threshold cannot be negative, got %s", r.ThresholdMiles)
		}
		if r.PerExtraMileRate.IsNegative() || r.PerExtraMileRate.IsZero() {
			return fmt.Errorf("per extra mile rate must be positive, got %s", r.PerExtraMileRate)
		}
	case RuleCustom:
		hasAmount := !r.Amount.IsZero()
		hasPercent := !r.Percent.IsZero()
		if hasAmount == hasPercent {
			return fmt.Errorf("exactly one of amount or percent must be set")
		}
		if r.Amount.IsNegative() {
			return fmt.Errorf("amount cannot be negative, got %s", r.Amount)
		}
		if r.Percent.IsNegative() || r.Percent.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("percent must be within (0, 100], got %s", r.Percent)
		}
	default:
		return fmt.Errorf("unknown rule kind")
	}
	return nil
}

// clockMinutes is minutes since midnight.
type clockMinutes int

func parseClock(s string) (clockMinutes, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return clockMinutes(t.Hour()*60 + t.Minute()), nil
}
