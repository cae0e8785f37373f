package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bbernstein/lacylights-console/internal/database/models"
	"github.com/lucsky/cuid"
	"gorm.io/gorm"
)

// Keys of the console settings. Each holds one JSON document.
const (
	SettingArtNetConfig = "artnet_config"
	SettingSACNConfig   = "sacn_config"
)

// ErrUnknownSetting is returned for keys the console does not store.
var ErrUnknownSetting = errors.New("unknown setting")

var settingKeys = map[string]bool{
	SettingArtNetConfig: true,
	SettingSACNConfig:   true,
}

// SettingRepository stores console settings as JSON documents keyed by name.
type SettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new SettingRepository.
func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Load decodes the setting stored under key into v. It reports false, and
// leaves v alone, when the setting has never been saved.
func (r *SettingRepository) Load(ctx context.Context, key string, v interface{}) (bool, error) {
	if !settingKeys[key] {
		return false, fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	var setting models.Setting
	result := r.db.WithContext(ctx).First(&setting, "key = ?", key)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, result.Error
	}
	if err := json.Unmarshal([]byte(setting.Value), v); err != nil {
		return false, fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return true, nil
}

// Save encodes v and stores it under key, keeping the row id of an earlier save.
func (r *SettingRepository) Save(ctx context.Context, key string, v interface{}) error {
	if !settingKeys[key] {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	var setting models.Setting
	result := r.db.WithContext(ctx).First(&setting, "key = ?", key)
	switch {
	case result.Error == gorm.ErrRecordNotFound:
		setting = models.Setting{ID: cuid.New(), Key: key, Value: string(value)}
		return r.db.WithContext(ctx).Create(&setting).Error
	case result.Error != nil:
		return result.Error
	}
	setting.Value = string(value)
	return r.db.WithContext(ctx).Save(&setting).Error
}
