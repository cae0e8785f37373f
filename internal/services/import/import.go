// Package importservice provides show import functionality.
package importservice

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/console"
	"github.com/bbernstein/lacylights-console/internal/services/export"
	"github.com/bbernstein/lacylights-console/internal/services/grouphandle"
)

// ImportMode determines how to handle the import.
type ImportMode string

const (
	// ImportModeMerge keeps the current show and overwrites objects with
	// the same number (or preset slot).
	ImportModeMerge ImportMode = "MERGE"
	// ImportModeReplace discards the current show.
	ImportModeReplace ImportMode = "REPLACE"
)

// ParseImportMode parses a mode name; an empty name means REPLACE.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", ImportModeReplace:
		return ImportModeReplace, nil
	case ImportModeMerge:
		return ImportModeMerge, nil
	}
	return "", fmt.Errorf("unknown import mode %q", s)
}

// ImportStats contains statistics about an import.
type ImportStats struct {
	FixtureTypesCreated int `json:"fixtureTypesCreated"`
	FixturesImported    int `json:"fixturesImported"`
	PresetsImported     int `json:"presetsImported"`
	CuesImported        int `json:"cuesImported"`
	GroupsImported      int `json:"groupsImported"`
	ExecutorsImported   int `json:"executorsImported"`
}

// ImportOptions configures the import behavior.
type ImportOptions struct {
	Mode ImportMode
}

// Target is the console a show is imported into.
type Target interface {
	Show() console.Show
	ReplaceShow(ctx context.Context, show console.Show) error
}

// Service handles show import operations.
type Service struct {
	target Target
	lib    *fixture.Library
}

// NewService creates a new import service. Fixture types from imported
// files are registered in lib.
func NewService(target Target, lib *fixture.Library) *Service {
	return &Service{target: target, lib: lib}
}

// ImportShow imports a show from JSON. Objects that cannot be imported are
// skipped and reported as warnings.
func (s *Service) ImportShow(ctx context.Context, jsonContent string, options ImportOptions) (*ImportStats, []string, error) {
	exported, err := export.ParseExportedShow(jsonContent)
	if err != nil {
		return nil, nil, err
	}
	if options.Mode == "" {
		options.Mode = ImportModeReplace
	}

	stats := &ImportStats{}
	var warnings []string
	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	for _, et := range exported.FixtureTypes {
		if existing, ok := s.lib.Lookup(et.Name); ok {
			if !reflect.DeepEqual(existing.Channels, et.Channels) {
				warn("Fixture type '%s' already exists with different channels; keeping the existing one", et.Name)
			}
			continue
		}
		if err := s.lib.Register(&fixture.Type{Name: et.Name, Channels: et.Channels}); err != nil {
			warn("Fixture type '%s' skipped: %v", et.Name, err)
			continue
		}
		stats.FixtureTypesCreated++
	}

	var show console.Show
	if options.Mode == ImportModeMerge {
		show = s.target.Show()
	}

	fixtures := make(map[int]*fixture.Fixture, len(show.Fixtures))
	for _, f := range show.Fixtures {
		fixtures[f.Number] = f
	}
	for _, ef := range exported.Fixtures {
		t, ok := s.lib.Lookup(ef.Type)
		if !ok {
			warn("Fixture %d skipped: unknown type '%s'", ef.Number, ef.Type)
			continue
		}
		f := &fixture.Fixture{
			ID:       fixture.IDFor(ef.Number),
			Number:   ef.Number,
			Name:     ef.Name,
			Type:     t,
			Universe: ef.Universe,
			Address:  ef.Address,
		}
		if err := f.Validate(); err != nil {
			warn("Fixture %d skipped: %v", ef.Number, err)
			continue
		}
		if other := overlapping(fixtures, f); other != nil {
			warn("Fixture %d skipped: overlaps fixture %d", ef.Number, other.Number)
			continue
		}
		fixtures[f.Number] = f
		stats.FixturesImported++
	}
	show.Fixtures = sortedFixtures(fixtures)

	presets := make(map[string]*console.Preset, len(show.Presets))
	for _, p := range show.Presets {
		presets[presetKey(p.FeatureSet, p.Index)] = p
	}
	for _, ep := range exported.Presets {
		if !fixture.IsFeatureSet(ep.FeatureSet) || ep.Slot < 1 || ep.Slot > fixture.PresetsPerFeatureSet {
			warn("Preset %s %d skipped: no such slot", ep.FeatureSet, ep.Slot)
			continue
		}
		p := &console.Preset{FeatureSet: ep.FeatureSet, Index: ep.Slot - 1, Name: ep.Name, Values: ep.Values}
		if p.Values == nil {
			p.Values = console.Snapshot{}
		}
		presets[presetKey(p.FeatureSet, p.Index)] = p
		stats.PresetsImported++
	}
	show.Presets = show.Presets[:0]
	for _, fs := range fixture.FeatureSets {
		for i := 0; i < fixture.PresetsPerFeatureSet; i++ {
			if p, ok := presets[presetKey(fs, i)]; ok {
				show.Presets = append(show.Presets, p)
			}
		}
	}

	cues := make(map[int]*console.Cue, len(show.Cues))
	for _, c := range show.Cues {
		cues[c.Number] = c
	}
	for _, ec := range exported.Cues {
		if ec.Number < 1 {
			warn("Cue %d skipped: cue numbers start at 1", ec.Number)
			continue
		}
		if ec.FadeTime < 0 {
			ec.FadeTime = 0
		}
		values := ec.Values
		if values == nil {
			values = console.Snapshot{}
		}
		cues[ec.Number] = &console.Cue{Number: ec.Number, Name: ec.Name, FadeTime: ec.FadeTime, Values: values}
		stats.CuesImported++
	}
	show.Cues = show.Cues[:0]
	for _, n := range sortedKeys(cues) {
		show.Cues = append(show.Cues, cues[n])
	}

	groups := make(map[int]grouphandle.Handle, len(show.Groups))
	for _, h := range show.Groups {
		groups[h.Number] = h
	}
	for _, eg := range exported.Groups {
		if eg.Number < 1 {
			warn("Group %d skipped: group numbers start at 1", eg.Number)
			continue
		}
		mode, err := grouphandle.ParseMode(eg.Mode)
		if err != nil {
			warn("Group %d: %v; using %s", eg.Number, err, grouphandle.ModeInhibitive)
			mode = grouphandle.ModeInhibitive
		}
		var members []string
		for _, id := range eg.Members {
			if !hasFixtureID(fixtures, id) {
				warn("Group %d: member %s is not patched", eg.Number, id)
				continue
			}
			members = append(members, id)
		}
		values := eg.Values
		if values == nil {
			values = fixture.Values{}
		}
		groups[eg.Number] = grouphandle.Handle{
			Number:    eg.Number,
			Name:      eg.Name,
			Mode:      mode,
			Members:   members,
			Values:    values,
			Intensity: eg.Intensity,
			Active:    eg.Active,
			Priority:  eg.Priority,
		}
		stats.GroupsImported++
	}
	show.Groups = show.Groups[:0]
	for _, n := range sortedKeys(groups) {
		show.Groups = append(show.Groups, groups[n])
	}

	executors := make(map[int]*console.Executor, len(show.Executors))
	for _, e := range show.Executors {
		executors[e.Number] = e
	}
	for _, ee := range exported.Executors {
		if ee.Number < 1 {
			warn("Executor %d skipped: executor numbers start at 1", ee.Number)
			continue
		}
		values := ee.Values
		if values == nil {
			values = console.Snapshot{}
		}
		executors[ee.Number] = &console.Executor{Number: ee.Number, Name: ee.Name, Values: values, Active: ee.Active}
		stats.ExecutorsImported++
	}
	show.Executors = show.Executors[:0]
	for _, n := range sortedKeys(executors) {
		show.Executors = append(show.Executors, executors[n])
	}

	if err := s.target.ReplaceShow(ctx, show); err != nil {
		return nil, warnings, fmt.Errorf("failed to apply imported show: %w", err)
	}

	log.Info().
		Str("mode", string(options.Mode)).
		Int("fixtures", stats.FixturesImported).
		Int("cues", stats.CuesImported).
		Int("warnings", len(warnings)).
		Msg("📥 Show imported")
	return stats, warnings, nil
}
