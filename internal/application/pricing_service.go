package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moveboard/service-booking/internal/domain/pricing"
)

// PricingService manages organization pricing configurations. Configs are
// validated eagerly at both write and read time; a config that fails
// validation never reaches the engine.
type PricingService struct {
	configs pricing.ConfigRepository
	logger  *zap.Logger
}

// NewPricingService creates a new PricingService.
func NewPricingService(configs pricing.ConfigRepository, logger *zap.Logger) *PricingService {
	return &PricingService{configs: configs, logger: logger}
}

// GetActiveConfig returns the organization's active pricing configuration.
func (s *PricingService) GetActiveConfig(ctx context.Context, orgID uuid.UUID) (*pricing.PricingConfig, error) {
	return s.configs.FindActiveByOrg(ctx, orgID)
}

// PutConfig validates and stores a new configuration version for the
// organization and activates it. Raw JSON in, so unknown fields and malformed
// rules are rejected before anything is persisted.
func (s *PricingService) PutConfig(ctx context.Context, orgID uuid.UUID, raw []byte) (*pricing.PricingConfig, error) {
	cfg, err := pricing.ParsePricingConfig(raw)
	if err != nil {
		return nil, err
	}
	cfg.OrgID = orgID

	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, err
	}

	s.logger.Info("pricing config activated",
		zap.String("org_id", orgID.String()),
		zap.Int("version", cfg.Version),
		zap.Int("rules", len(cfg.SurchargeRules)),
	)
	return cfg, nil
}
