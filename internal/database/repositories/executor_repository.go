package repositories

import (
	"context"

	"github.com/bbernstein/lacylights-console/internal/database/models"
	"github.com/lucsky/cuid"
	"gorm.io/gorm"
)

// ExecutorRepository handles executor data access.
type ExecutorRepository struct {
	db *gorm.DB
}

// NewExecutorRepository creates a new ExecutorRepository.
func NewExecutorRepository(db *gorm.DB) *ExecutorRepository {
	return &ExecutorRepository{db: db}
}

// FindAll returns every executor ordered by number.
func (r *ExecutorRepository) FindAll(ctx context.Context) ([]models.Executor, error) {
	var executors []models.Executor
	result := r.db.WithContext(ctx).
		Order("number ASC").
		Find(&executors)
	return executors, result.Error
}

// FindByNumber returns an executor by number.
func (r *ExecutorRepository) FindByNumber(ctx context.Context, number int) (*models.Executor, error) {
	var executor models.Executor
	result := r.db.WithContext(ctx).First(&executor, "number = ?", number)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &executor, nil
}

// Save creates the executor, or replaces the one with the same number.
func (r *ExecutorRepository) Save(ctx context.Context, executor *models.Executor) error {
	existing, err := r.FindByNumber(ctx, executor.Number)
	if err != nil {
		return err
	}
	if existing != nil {
		executor.ID = existing.ID
		executor.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Select("*").Save(executor).Error
	}
	if executor.ID == "" {
		executor.ID = cuid.New()
	}
	return r.db.WithContext(ctx).Select("*").Create(executor).Error
}
