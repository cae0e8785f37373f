package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/bbernstein/lacylights-console/internal/database/models"
	"github.com/bbernstein/lacylights-console/internal/database/repositories"
	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/console"
	"github.com/bbernstein/lacylights-console/internal/services/dmx"
	"github.com/bbernstein/lacylights-console/internal/services/grouphandle"
)

// Setting keys for the persisted output configurations.
const (
	SettingArtNetConfig = repositories.SettingArtNetConfig
	SettingSACNConfig   = repositories.SettingSACNConfig
)

var builtins = fixture.NewLibrary()

var (
	_ console.Store     = (*Store)(nil)
	_ console.ShowStore = (*Store)(nil)
)

// Store persists the console show in the database.
type Store struct {
	db        *gorm.DB
	fixtures  *repositories.FixtureRepository
	presets   *repositories.PresetRepository
	cues      *repositories.CueRepository
	groups    *repositories.GroupHandleRepository
	executors *repositories.ExecutorRepository
	settings  *repositories.SettingRepository
}

// NewStore creates a Store on a migrated database.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		fixtures:  repositories.NewFixtureRepository(db),
		presets:   repositories.NewPresetRepository(db),
		cues:      repositories.NewCueRepository(db),
		groups:    repositories.NewGroupHandleRepository(db),
		executors: repositories.NewExecutorRepository(db),
		settings:  repositories.NewSettingRepository(db),
	}
}

func encode(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SaveFixture stores a patched fixture together with its type.
func (s *Store) SaveFixture(ctx context.Context, f *fixture.Fixture) error {
	channels, err := encode(f.Type.Channels)
	if err != nil {
		return fmt.Errorf("failed to encode channels of %s: %w", f.Type.Name, err)
	}
	_, builtIn := builtins.Lookup(f.Type.Name)
	if err := s.fixtures.SaveType(ctx, &models.FixtureType{Name: f.Type.Name, Channels: channels, IsBuiltIn: builtIn}); err != nil {
		return fmt.Errorf("failed to save fixture type %s: %w", f.Type.Name, err)
	}
	return s.fixtures.Save(ctx, &models.Fixture{
		Number:   f.Number,
		Name:     f.Name,
		TypeName: f.Type.Name,
		Universe: f.Universe,
		Address:  f.Address,
	})
}

// DeleteFixture removes a patched fixture.
func (s *Store) DeleteFixture(ctx context.Context, number int) error {
	return s.fixtures.DeleteByNumber(ctx, number)
}

// SavePreset stores a preset slot.
func (s *Store) SavePreset(ctx context.Context, p *console.Preset) error {
	values, err := encode(p.Values)
	if err != nil {
		return fmt.Errorf("failed to encode preset values: %w", err)
	}
	return s.presets.Save(ctx, &models.Preset{FeatureSet: p.FeatureSet, SlotIndex: p.Index, Name: p.Name, Values: values})
}

// DeletePreset clears a preset slot.
func (s *Store) DeletePreset(ctx context.Context, featureSet string, index int) error {
	return s.presets.DeleteBySlot(ctx, featureSet, index)
}

// SaveCue stores a cue.
func (s *Store) SaveCue(ctx context.Context, c *console.Cue) error {
	values, err := encode(c.Values)
	if err != nil {
		return fmt.Errorf("failed to encode cue values: %w", err)
	}
	return s.cues.Save(ctx, &models.Cue{Number: c.Number, Name: c.Name, FadeTime: c.FadeTime, Values: values})
}

// DeleteCue removes a cue.
func (s *Store) DeleteCue(ctx context.Context, number int) error {
	return s.cues.DeleteByNumber(ctx, number)
}

// SaveGroup stores a group handle.
func (s *Store) SaveGroup(ctx context.Context, h *grouphandle.Handle) error {
	members, err := encode(h.Members)
	if err != nil {
		return fmt.Errorf("failed to encode group members: %w", err)
	}
	values, err := encode(h.Values)
	if err != nil {
		return fmt.Errorf("failed to encode group values: %w", err)
	}
	return s.groups.Save(ctx, &models.GroupHandle{
		Number:    h.Number,
		Name:      h.Name,
		Mode:      string(h.Mode),
		Members:   members,
		Values:    values,
		Intensity: h.Intensity,
		Active:    h.Active,
		Priority:  h.Priority,
	})
}

// DeleteGroup removes a group handle.
func (s *Store) DeleteGroup(ctx context.Context, number int) error {
	return s.groups.DeleteByNumber(ctx, number)
}

// SaveExecutor stores an executor.
func (s *Store) SaveExecutor(ctx context.Context, e *console.Executor) error {
	values, err := encode(e.Values)
	if err != nil {
		return fmt.Errorf("failed to encode executor values: %w", err)
	}
	return s.executors.Save(ctx, &models.Executor{Number: e.Number, Name: e.Name, Values: values, Active: e.Active})
}

// Load reads the stored show. Stored fixture types that the library does not
// know are registered into it; fixtures of unknown types are skipped.
func (s *Store) Load(ctx context.Context, lib *fixture.Library) (console.Show, error) {
	var show console.Show

	types, err := s.fixtures.FindTypes(ctx)
	if err != nil {
		return show, fmt.Errorf("failed to load fixture types: %w", err)
	}
	for _, ft := range types {
		if _, known := lib.Lookup(ft.Name); known {
			continue
		}
		t := &fixture.Type{Name: ft.Name}
		if err := json.Unmarshal([]byte(ft.Channels), &t.Channels); err != nil {
			log.Warn().Err(err).Str("type", ft.Name).Msg("Skipping fixture type with unreadable channels")
			continue
		}
		if err := lib.Register(t); err != nil {
			log.Warn().Err(err).Str("type", ft.Name).Msg("Skipping invalid fixture type")
		}
	}

	fixtures, err := s.fixtures.FindAll(ctx)
	if err != nil {
		return show, fmt.Errorf("failed to load fixtures: %w", err)
	}
	for _, m := range fixtures {
		t, ok := lib.Lookup(m.TypeName)
		if !ok {
			log.Warn().Int("fixture", m.Number).Str("type", m.TypeName).Msg("Skipping fixture of unknown type")
			continue
		}
		show.Fixtures = append(show.Fixtures, &fixture.Fixture{
			ID:       fixture.IDFor(m.Number),
			Number:   m.Number,
			Name:     m.Name,
			Type:     t,
			Universe: m.Universe,
			Address:  m.Address,
		})
	}

	presets, err := s.presets.FindAll(ctx)
	if err != nil {
		return show, fmt.Errorf("failed to load presets: %w", err)
	}
	for _, m := range presets {
		p := &console.Preset{FeatureSet: m.FeatureSet, Index: m.SlotIndex, Name: m.Name}
		if err := json.Unmarshal([]byte(m.Values), &p.Values); err != nil {
			return show, fmt.Errorf("failed to decode preset %s %d: %w", m.FeatureSet, m.SlotIndex+1, err)
		}
		show.Presets = append(show.Presets, p)
	}

	cues, err := s.cues.FindAll(ctx)
	if err != nil {
		return show, fmt.Errorf("failed to load cues: %w", err)
	}
	for _, m := range cues {
		c := &console.Cue{Number: m.Number, Name: m.Name, FadeTime: m.FadeTime}
		if err := json.Unmarshal([]byte(m.Values), &c.Values); err != nil {
			return show, fmt.Errorf("failed to decode cue %d: %w", m.Number, err)
		}
		show.Cues = append(show.Cues, c)
	}

	groups, err := s.groups.FindAll(ctx)
	if err != nil {
		return show, fmt.Errorf("failed to load group handles: %w", err)
	}
	for _, m := range groups {
		mode, err := grouphandle.ParseMode(m.Mode)
		if err != nil {
			mode = grouphandle.ModeInhibitive
		}
		h := grouphandle.Handle{
			Number:    m.Number,
			Name:      m.Name,
			Mode:      mode,
			Intensity: m.Intensity,
			Active:    m.Active,
			Priority:  m.Priority,
		}
		if err := json.Unmarshal([]byte(m.Members), &h.Members); err != nil {
			return show, fmt.Errorf("failed to decode members of group %d: %w", m.Number, err)
		}
		if err := json.Unmarshal([]byte(m.Values), &h.Values); err != nil {
			return show, fmt.Errorf("failed to decode values of group %d: %w", m.Number, err)
		}
		show.Groups = append(show.Groups, h)
	}

	executors, err := s.executors.FindAll(ctx)
	if err != nil {
		return show, fmt.Errorf("failed to load executors: %w", err)
	}
	for _, m := range executors {
		e := &console.Executor{Number: m.Number, Name: m.Name, Active: m.Active}
		if err := json.Unmarshal([]byte(m.Values), &e.Values); err != nil {
			return show, fmt.Errorf("failed to decode executor %d: %w", m.Number, err)
		}
		show.Executors = append(show.Executors, e)
	}

	return show, nil
}

// ReplaceShow swaps the stored show for another one in a single transaction.
// Fixture types and settings are kept.
func (s *Store) ReplaceShow(ctx context.Context, show console.Show) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Fixture{}, &models.Preset{}, &models.Cue{}, &models.GroupHandle{}, &models.Executor{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear show: %w", err)
			}
		}

		txStore := NewStore(tx)
		for _, f := range show.Fixtures {
			if err := txStore.SaveFixture(ctx, f); err != nil {
				return err
			}
		}
		for _, p := range show.Presets {
			if err := txStore.SavePreset(ctx, p); err != nil {
				return err
			}
		}
		for _, c := range show.Cues {
			if err := txStore.SaveCue(ctx, c); err != nil {
				return err
			}
		}
		for i := range show.Groups {
			if err := txStore.SaveGroup(ctx, &show.Groups[i]); err != nil {
				return err
			}
		}
		for _, e := range show.Executors {
			if err := txStore.SaveExecutor(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// ArtNetConfig returns the stored Art-Net configuration, if any.
func (s *Store) ArtNetConfig(ctx context.Context) (dmx.ArtNetConfig, bool, error) {
	var cfg dmx.ArtNetConfig
	ok, err := s.settings.Load(ctx, SettingArtNetConfig, &cfg)
	return cfg.Normalize(), ok, err
}

// SaveArtNetConfig stores the Art-Net configuration.
func (s *Store) SaveArtNetConfig(ctx context.Context, cfg dmx.ArtNetConfig) error {
	return s.settings.Save(ctx, SettingArtNetConfig, cfg)
}

// SACNConfig returns the stored sACN configuration, if any.
func (s *Store) SACNConfig(ctx context.Context) (dmx.SACNConfig, bool, error) {
	var cfg dmx.SACNConfig
	ok, err := s.settings.Load(ctx, SettingSACNConfig, &cfg)
	return cfg.Normalize(), ok, err
}

// SaveSACNConfig stores the sACN configuration.
func (s *Store) SaveSACNConfig(ctx context.Context, cfg dmx.SACNConfig) error {
	return s.settings.Save(ctx, SettingSACNConfig, cfg)
}
