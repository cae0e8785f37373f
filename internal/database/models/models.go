// Package models contains the database model definitions.
// These models map directly to the SQLite tables that hold a console show.
package models

import (
	"time"
)

// FixtureType represents a fixture profile stored with the show so that
// imported types survive a restart.
// Table: fixture_types
type FixtureType struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;uniqueIndex"`
	Channels  string    `gorm:"column:channels;default:[]"` // JSON array of fixture.Channel
	IsBuiltIn bool      `gorm:"column:is_built_in;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (FixtureType) TableName() string { return "fixture_types" }

// Fixture represents a patched fixture.
// Table: fixtures
type Fixture struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Number    int       `gorm:"column:number;uniqueIndex"`
	Name      string    `gorm:"column:name"`
	TypeName  string    `gorm:"column:type_name;index"`
	Universe  int       `gorm:"column:universe"`
	Address   int       `gorm:"column:address"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Fixture) TableName() string { return "fixtures" }

// Preset represents one slot of a feature set's preset grid.
// Table: presets
type Preset struct {
	ID         string    `gorm:"column:id;primaryKey"`
	FeatureSet string    `gorm:"column:feature_set;uniqueIndex:idx_preset_slot"`
	SlotIndex  int       `gorm:"column:slot_index;uniqueIndex:idx_preset_slot"` // 0-based
	Name       string    `gorm:"column:name"`
	Values     string    `gorm:"column:channel_values;default:{}"` // JSON: fixture id -> channel key -> value
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Preset) TableName() string { return "presets" }

// Cue represents a recorded cue.
// Table: cues
type Cue struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Number    int       `gorm:"column:number;uniqueIndex"`
	Name      string    `gorm:"column:name"`
	FadeTime  float64   `gorm:"column:fade_time;default:0"`
	Values    string    `gorm:"column:channel_values;default:{}"` // JSON: fixture id -> channel key -> value
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Cue) TableName() string { return "cues" }

// GroupHandle represents a group handle (virtual fixture).
// Table: group_handles
type GroupHandle struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Number    int       `gorm:"column:number;uniqueIndex"`
	Name      string    `gorm:"column:name"`
	Mode      string    `gorm:"column:mode;default:INHIBITIVE"`   // INHIBITIVE, ADDITIVE, SCALING, SUBTRACTIVE
	Members   string    `gorm:"column:members;default:[]"`        // JSON array of fixture ids
	Values    string    `gorm:"column:channel_values;default:{}"` // JSON: channel key -> value
	Intensity int       `gorm:"column:intensity;default:100"`
	Active    bool      `gorm:"column:active;default:true"`
	Priority  int       `gorm:"column:priority;default:50"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (GroupHandle) TableName() string { return "group_handles" }

// Executor represents a playback executor.
// Table: executors
type Executor struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Number    int       `gorm:"column:number;uniqueIndex"`
	Name      string    `gorm:"column:name"`
	Values    string    `gorm:"column:channel_values;default:{}"` // JSON: fixture id -> channel key -> value
	Active    bool      `gorm:"column:active;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Executor) TableName() string { return "executors" }

// Setting represents a system setting.
// Table: settings
type Setting struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex"`
	Value     string    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "settings" }

// All lists every model, in migration order.
func All() []interface{} {
	return []interface{}{
		&FixtureType{},
		&Fixture{},
		&Preset{},
		&Cue{},
		&GroupHandle{},
		&Executor{},
		&Setting{},
	}
}
