package repositories

import (
	"context"

	"github.com/bbernstein/lacylights-console/internal/database/models"
	"github.com/lucsky/cuid"
	"gorm.io/gorm"
)

// CueRepository handles cue data access.
type CueRepository struct {
	db *gorm.DB
}

// NewCueRepository creates a new CueRepository.
func NewCueRepository(db *gorm.DB) *CueRepository {
	return &CueRepository{db: db}
}

// FindAll returns every cue ordered by cue number.
func (r *CueRepository) FindAll(ctx context.Context) ([]models.Cue, error) {
	var cues []models.Cue
	result := r.db.WithContext(ctx).
		Order("number ASC").
		Find(&cues)
	return cues, result.Error
}

// FindByNumber returns a cue by number.
func (r *CueRepository) FindByNumber(ctx context.Context, number int) (*models.Cue, error) {
	var cue models.Cue
	result := r.db.WithContext(ctx).First(&cue, "number = ?", number)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &cue, nil
}

// Save creates the cue, or replaces the cue with the same number.
func (r *CueRepository) Save(ctx context.Context, cue *models.Cue) error {
	existing, err := r.FindByNumber(ctx, cue.Number)
	if err != nil {
		return err
	}
	if existing != nil {
		cue.ID = existing.ID
		cue.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Save(cue).Error
	}
	if cue.ID == "" {
		cue.ID = cuid.New()
	}
	return r.db.WithContext(ctx).Create(cue).Error
}

// DeleteByNumber deletes a cue by number.
func (r *CueRepository) DeleteByNumber(ctx context.Context, number int) error {
	return r.db.WithContext(ctx).Delete(&models.Cue{}, "number = ?", number).Error
}

// Count returns the number of recorded cues.
func (r *CueRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Cue{}).Count(&count)
	return count, result.Error
}
