package pricing

import (
	"context"

	"github.com/google/uuid"
)

// ConfigRepository defines the persistence contract for pricing
// configurations. Configs are versioned; exactly one version per
// organization is active at a time.
type ConfigRepository interface {
	// FindActiveByOrg retrieves the organization's active configuration,
	// validated and ready for price computation.
	FindActiveByOrg(ctx context.Context, orgID uuid.UUID) (*PricingConfig, error)

	// Save stores a new configuration version and makes it the active one.
	// The supplied config must already have passed Validate.
	Save(ctx context.Context, cfg *PricingConfig) error
}
