package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moveboard/service-booking/internal/domain"
)

const validConfigJSON = `{
	"base_hourly_rate": "150",
	"base_mileage_rate": "2.50",
	"minimum_charge": "300",
	"surcharge_rules": [
		{"kind": "stairs", "enabled": true, "rate_per_flight": "50"},
		{"kind": "special_item", "enabled": true, "items": ["piano", "safe"], "item_fee": "200"},
		{"kind": "time_of_day", "enabled": true, "multiplier": "1.2", "days": [0, 6]},
		{"kind": "distance", "enabled": true, "threshold_miles": "50", "per_extra_mile_rate": "1.75"},
		{"kind": "custom", "enabled": false, "description": "fuel", "percent": "5"}
	]
}`

func TestParsePricingConfig_Valid(t *testing.T) {
	cfg, err := ParsePricingConfig([]byte(validConfigJSON))
	require.NoError(t, err)

	assert.True(t, cfg.BaseHourlyRate.Equal(dec("150")))
	assert.Len(t, cfg.SurchargeRules, 5)
	assert.Equal(t, RuleStairs, cfg.SurchargeRules[0].Kind)
	assert.False(t, cfg.SurchargeRules[4].Enabled)
}

func TestParsePricingConfig_RejectsUnknownFields(t *testing.T) {
	_, err := ParsePricingConfig([]byte(`{"base_hourly_rate": "150", "surge_factor": "2"}`))
	require.Error(t, err)
	var cfgErr *domain.PricingConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestParsePricingConfig_RejectsMalformedJSON(t *testing.T) {
	_, err := ParsePricingConfig([]byte(`{"base_hourly_rate": `))
	assert.Error(t, err)
}

func TestValidate_BaseRates(t *testing.T) {
	cfg := &PricingConfig{BaseHourlyRate: decimal.Zero}
	assert.Error(t, cfg.Validate(), "zero hourly rate")

	cfg = &PricingConfig{BaseHourlyRate: dec("150"), BaseMileageRate: dec("-1")}
	assert.Error(t, cfg.Validate(), "negative mileage rate")

	cfg = &PricingConfig{BaseHourlyRate: dec("150"), MinimumCharge: dec("-5")}
	assert.Error(t, cfg.Validate(), "negative minimum")

	bad := dec("1.5")
	cfg = &PricingConfig{BaseHourlyRate: dec("150"), PlatformFeeRate: &bad}
	assert.Error(t, cfg.Validate(), "fee rate above 1")
}

func TestValidate_RuleInvariants(t *testing.T) {
	tests := []struct {
		name string
		rule SurchargeRule
	}{
		{"stairs without rate", SurchargeRule{Kind: RuleStairs}},
		{"special_item without items", SurchargeRule{Kind: RuleSpecialItem, ItemFee: dec("10")}},
		{"special_item negative fee", SurchargeRule{Kind: RuleSpecialItem, Items: []string{"piano"}, ItemFee: dec("-1")}},
		{"time_of_day multiplier of 1", SurchargeRule{Kind: RuleTimeOfDay, Multiplier: dec("1"), Days: []int{1}}},
		{"time_of_day day out of range", SurchargeRule{Kind: RuleTimeOfDay, Multiplier: dec("1.2"), Days: []int{7}}},
		{"time_of_day start without end", SurchargeRule{Kind: RuleTimeOfDay, Multiplier: dec("1.2"), StartTime: "18:00"}},
		{"time_of_day bad clock", SurchargeRule{Kind: RuleTimeOfDay, Multiplier: dec("1.2"), StartTime: "25:99", EndTime: "08:00"}},
		{"time_of_day no condition at all", SurchargeRule{Kind: RuleTimeOfDay, Multiplier: dec("1.2")}},
		{"distance without rate", SurchargeRule{Kind: RuleDistance, ThresholdMiles: dec("10")}},
		{"custom with neither amount nor percent", SurchargeRule{Kind: RuleCustom}},
		{"custom with both amount and percent", SurchargeRule{Kind: RuleCustom, Amount: dec("10"), Percent: dec("5")}},
		{"custom percent above 100", SurchargeRule{Kind: RuleCustom, Percent: dec("150")}},
		{"unknown kind", SurchargeRule{Kind: RuleKind("surge")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &PricingConfig{
				BaseHourlyRate: dec("150"),
				SurchargeRules: []SurchargeRule{tc.rule},
			}
			err := cfg.Validate()
			require.Error(t, err)
			var cfgErr *domain.PricingConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestValidate_DisabledRulesStillValidated(t *testing.T) {
	cfg := &PricingConfig{
		BaseHourlyRate: dec("150"),
		SurchargeRules: []SurchargeRule{
			{Kind: RuleStairs, Enabled: false},
		},
	}
	assert.Error(t, cfg.Validate(), "a disabled rule must still be structurally sound")
}
