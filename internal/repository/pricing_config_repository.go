package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moveboard/service-booking/internal/domain"
	"github.com/moveboard/service-booking/internal/domain/pricing"
)

// PricingConfigModel is the GORM model for the pricing_configs table. Each row
// is one immutable version; exactly one row per organization carries is_active.
type PricingConfigModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrgID     uuid.UUID       `gorm:"type:uuid;index:idx_pricing_configs_org;not null"`
	Version   int             `gorm:"not null"`
	Document  json.RawMessage `gorm:"type:jsonb;not null"`
	IsActive  bool            `gorm:"index:idx_pricing_configs_org;not null;default:false"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (PricingConfigModel) TableName() string {
	return "pricing_configs"
}

// GormPricingConfigRepository is the GORM-based implementation of
// pricing.ConfigRepository.
type GormPricingConfigRepository struct {
	db *gorm.DB
}

// NewGormPricingConfigRepository creates a new GormPricingConfigRepository.
func NewGormPricingConfigRepository(db *gorm.DB) *GormPricingConfigRepository {
	return &GormPricingConfigRepository{db: db}
}

// FindActiveByOrg retrieves the organization's active configuration. The
// stored document is re-validated on load, so a config that somehow became
// invalid at rest fails loudly here instead of producing a wrong price.
func (r *GormPricingConfigRepository) FindActiveByOrg(ctx context.Context, orgID uuid.UUID) (*pricing.PricingConfig, error) {
	var model PricingConfigModel
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND is_active = ?", orgID, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("PricingConfig", orgID.String())
		}
		return nil, fmt.Errorf("failed to find active pricing config: %w", err)
	}

	cfg, err := pricing.ParsePricingConfig(model.Document)
	if err != nil {
		return nil, err
	}
	cfg.OrgID = model.OrgID
	cfg.Version = model.Version
	return cfg, nil
}

// Save stores a new configuration version and atomically makes it the active
// one, deactivating the previous version in the same transaction.
func (r *GormPricingConfigRepository) Save(ctx context.Context, cfg *pricing.PricingConfig) error {
	document, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal pricing config: %w", err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxVersion int
		row := tx.Model(&PricingConfigModel{}).
			Where("org_id = ?", cfg.OrgID).
			Select("COALESCE(MAX(version), 0)").
			Row()
		if err := row.Scan(&maxVersion); err != nil {
			return fmt.Errorf("failed to determine config version: %w", err)
		}

		if err := tx.Model(&PricingConfigModel{}).
			Where("org_id = ? AND is_active = ?", cfg.OrgID, true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate previous config: %w", err)
		}

		cfg.Version = maxVersion + 1
		model := PricingConfigModel{
			ID:        uuid.New(),
			OrgID:     cfg.OrgID,
			Version:   cfg.Version,
			Document:  document,
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to save pricing config: %w", err)
		}
		return nil
	})
}
