package repositories

import (
	"context"

	"github.com/bbernstein/lacylights-console/internal/database/models"
	"github.com/lucsky/cuid"
	"gorm.io/gorm"
)

// GroupHandleRepository handles group handle data access.
type GroupHandleRepository struct {
	db *gorm.DB
}

// NewGroupHandleRepository creates a new GroupHandleRepository.
func NewGroupHandleRepository(db *gorm.DB) *GroupHandleRepository {
	return &GroupHandleRepository{db: db}
}

// FindAll returns every group handle ordered by number.
func (r *GroupHandleRepository) FindAll(ctx context.Context) ([]models.GroupHandle, error) {
	var handles []models.GroupHandle
	result := r.db.WithContext(ctx).
		Order("number ASC").
		Find(&handles)
	return handles, result.Error
}

// FindByNumber returns a group handle by group number.
func (r *GroupHandleRepository) FindByNumber(ctx context.Context, number int) (*models.GroupHandle, error) {
	var handle models.GroupHandle
	result := r.db.WithContext(ctx).First(&handle, "number = ?", number)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &handle, nil
}

// Save creates the group handle, or replaces the one with the same number.
func (r *GroupHandleRepository) Save(ctx context.Context, handle *models.GroupHandle) error {
	existing, err := r.FindByNumber(ctx, handle.Number)
	if err != nil {
		return err
	}
	if existing != nil {
		handle.ID = existing.ID
		handle.CreatedAt = existing.CreatedAt
		// Select all so false and zero values are written.
		return r.db.WithContext(ctx).Select("*").Save(handle).Error
	}
	if handle.ID == "" {
		handle.ID = cuid.New()
	}
	return r.db.WithContext(ctx).Select("*").Create(handle).Error
}

// DeleteByNumber deletes a group handle by group number.
func (r *GroupHandleRepository) DeleteByNumber(ctx context.Context, number int) error {
	return r.db.WithContext(ctx).Delete(&models.GroupHandle{}, "number = ?", number).Error
}
