package repositories

import (
	"context"

	"github.com/bbernstein/lacylights-console/internal/database/models"
	"github.com/lucsky/cuid"
	"gorm.io/gorm"
)

// PresetRepository handles preset data access.
type PresetRepository struct {
	db *gorm.DB
}

// NewPresetRepository creates a new PresetRepository.
func NewPresetRepository(db *gorm.DB) *PresetRepository {
	return &PresetRepository{db: db}
}

// FindAll returns every preset ordered by feature set and slot.
func (r *PresetRepository) FindAll(ctx context.Context) ([]models.Preset, error) {
	var presets []models.Preset
	result := r.db.WithContext(ctx).
		Order("feature_set ASC, slot_index ASC").
		Find(&presets)
	return presets, result.Error
}

// FindByFeatureSet returns the presets of one feature set.
func (r *PresetRepository) FindByFeatureSet(ctx context.Context, featureSet string) ([]models.Preset, error) {
	var presets []models.Preset
	result := r.db.WithContext(ctx).
		Where("feature_set = ?", featureSet).
		Order("slot_index ASC").
		Find(&presets)
	return presets, result.Error
}

// FindBySlot returns the preset in a feature set slot.
func (r *PresetRepository) FindBySlot(ctx context.Context, featureSet string, index int) (*models.Preset, error) {
	var preset models.Preset
	result := r.db.WithContext(ctx).First(&preset, "feature_set = ? AND slot_index = ?", featureSet, index)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &preset, nil
}

// Save creates the preset, or replaces the preset in the same slot.
func (r *PresetRepository) Save(ctx context.Context, preset *models.Preset) error {
	existing, err := r.FindBySlot(ctx, preset.FeatureSet, preset.SlotIndex)
	if err != nil {
		return err
	}
	if existing != nil {
		preset.ID = existing.ID
		preset.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Save(preset).Error
	}
	if preset.ID == "" {
		preset.ID = cuid.New()
	}
	return r.db.WithContext(ctx).Create(preset).Error
}

// DeleteBySlot deletes the preset in a feature set slot.
func (r *PresetRepository) DeleteBySlot(ctx context.Context, featureSet string, index int) error {
	return r.db.WithContext(ctx).
		Delete(&models.Preset{}, "feature_set = ? AND slot_index = ?", featureSet, index).Error
}
