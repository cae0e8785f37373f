package repositories

import (
	"context"

	"github.com/bbernstein/lacylights-console/internal/database/models"
	"github.com/lucsky/cuid"
	"gorm.io/gorm"
)

// FixtureRepository handles patched fixture and fixture type data access.
type FixtureRepository struct {
	db *gorm.DB
}

// NewFixtureRepository creates a new FixtureRepository.
func NewFixtureRepository(db *gorm.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

// FindAll returns every patched fixture ordered by number.
func (r *FixtureRepository) FindAll(ctx context.Context) ([]models.Fixture, error) {
	var fixtures []models.Fixture
	result := r.db.WithContext(ctx).
		Order("number ASC").
		Find(&fixtures)
	return fixtures, result.Error
}

// FindByNumber returns a fixture by its console number.
func (r *FixtureRepository) FindByNumber(ctx context.Context, number int) (*models.Fixture, error) {
	var fixture models.Fixture
	result := r.db.WithContext(ctx).First(&fixture, "number = ?", number)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &fixture, nil
}

// Save creates the fixture, or replaces the fixture with the same number.
func (r *FixtureRepository) Save(ctx context.Context, fixture *models.Fixture) error {
	existing, err := r.FindByNumber(ctx, fixture.Number)
	if err != nil {
		return err
	}
	if existing != nil {
		fixture.ID = existing.ID
		fixture.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Save(fixture).Error
	}
	if fixture.ID == "" {
		fixture.ID = cuid.New()
	}
	return r.db.WithContext(ctx).Create(fixture).Error
}

// DeleteByNumber deletes a fixture by its console number.
func (r *FixtureRepository) DeleteByNumber(ctx context.Context, number int) error {
	return r.db.WithContext(ctx).Delete(&models.Fixture{}, "number = ?", number).Error
}

// FindTypes returns every stored fixture type ordered by name.
func (r *FixtureRepository) FindTypes(ctx context.Context) ([]models.FixtureType, error) {
	var types []models.FixtureType
	result := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&types)
	return types, result.Error
}

// FindTypeByName returns a fixture type by name.
func (r *FixtureRepository) FindTypeByName(ctx context.Context, name string) (*models.FixtureType, error) {
	var fixtureType models.FixtureType
	result := r.db.WithContext(ctx).First(&fixtureType, "name = ?", name)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &fixtureType, nil
}

// SaveType creates or updates a fixture type by name.
func (r *FixtureRepository) SaveType(ctx context.Context, fixtureType *models.FixtureType) error {
	existing, err := r.FindTypeByName(ctx, fixtureType.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		fixtureType.ID = existing.ID
		fixtureType.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Save(fixtureType).Error
	}
	if fixtureType.ID == "" {
		fixtureType.ID = cuid.New()
	}
	return r.db.WithContext(ctx).Create(fixtureType).Error
}

// CountByType returns how many patched fixtures use a type.
func (r *FixtureRepository) CountByType(ctx context.Context, typeName string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.Fixture{}).
		Where("type_name = ?", typeName).
		Count(&count)
	return count, result.Error
}
