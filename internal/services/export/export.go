// Package export provides show export functionality.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/console"
)

// FormatVersion is the version written into every export.
const FormatVersion = "1.0"

// ExportedShow represents a full show export.
type ExportedShow struct {
	Version      string                `json:"version"`
	Metadata     *ExportMetadata       `json:"metadata,omitempty"`
	FixtureTypes []ExportedFixtureType `json:"fixtureTypes"`
	Fixtures     []ExportedFixture     `json:"fixtures"`
	Presets      []ExportedPreset      `json:"presets"`
	Cues         []ExportedCue         `json:"cues"`
	Groups       []ExportedGroup       `json:"groups"`
	Executors    []ExportedExecutor    `json:"executors"`
}

// ExportMetadata contains export metadata.
type ExportMetadata struct {
	ExportedAt        string  `json:"exportedAt"`
	LacyLightsVersion string  `json:"lacyLightsVersion"`
	Description       *string `json:"description,omitempty"`
}

// ExportedFixtureType represents a fixture type used by the patch.
type ExportedFixtureType struct {
	Name      string            `json:"name"`
	IsBuiltIn bool              `json:"isBuiltIn"`
	Channels  []fixture.Channel `json:"channels"`
}

// ExportedFixture represents a patched fixture. Universe is 0-based and
// Address is 1-based, as typed on the command line.
type ExportedFixture struct {
	Number   int    `json:"number"`
	Name     string `json:"name,omitempty"`
	Type     string `json:"type"`
	Universe int    `json:"universe"`
	Address  int    `json:"address"`
}

// ExportedPreset represents one filled preset slot. Slot is 1-based.
type ExportedPreset struct {
	FeatureSet string           `json:"featureSet"`
	Slot       int              `json:"slot"`
	Name       string           `json:"name,omitempty"`
	Values     console.Snapshot `json:"values"`
}

// ExportedCue represents a recorded cue.
type ExportedCue struct {
	Number   int              `json:"number"`
	Name     string           `json:"name,omitempty"`
	FadeTime float64          `json:"fadeTime"`
	Values   console.Snapshot `json:"values"`
}

// ExportedGroup represents a group handle.
type ExportedGroup struct {
	Number    int            `json:"number"`
	Name      string         `json:"name,omitempty"`
	Mode      string         `json:"mode"`
	Members   []string       `json:"members"`
	Values    fixture.Values `json:"values"`
	Intensity int            `json:"intensity"`
	Active    bool           `json:"active"`
	Priority  int            `json:"priority"`
}

// ExportedExecutor represents an executor.
type ExportedExecutor struct {
	Number int              `json:"number"`
	Name   string           `json:"name,omitempty"`
	Values console.Snapshot `json:"values"`
	Active bool             `json:"active"`
}

// ExportStats contains statistics about an export.
type ExportStats struct {
	FixtureTypesCount int `json:"fixtureTypesCount"`
	FixturesCount     int `json:"fixturesCount"`
	PresetsCount      int `json:"presetsCount"`
	CuesCount         int `json:"cuesCount"`
	GroupsCount       int `json:"groupsCount"`
	ExecutorsCount    int `json:"executorsCount"`
}

// ShowSource hands out a snapshot of the current show.
type ShowSource interface {
	Show() console.Show
}

// Service handles show export operations.
type Service struct {
	source  ShowSource
	version string
	now     func() time.Time
}

// NewService creates a new export service.
func NewService(source ShowSource, version string) *Service {
	return &Service{source: source, version: version, now: time.Now}
}

// ExportShow exports the current show.
func (s *Service) ExportShow(description *string) (*ExportedShow, *ExportStats) {
	exported, stats := FromShow(s.source.Show())
	exported.Metadata = &ExportMetadata{
		ExportedAt:        s.now().UTC().Format(time.RFC3339),
		LacyLightsVersion: s.version,
		Description:       description,
	}
	return exported, stats
}

// FromShow converts a show snapshot into the export format.
func FromShow(show console.Show) (*ExportedShow, *ExportStats) {
	builtins := fixture.NewLibrary()
	exported := &ExportedShow{
		Version:      FormatVersion,
		FixtureTypes: []ExportedFixtureType{},
		Fixtures:     []ExportedFixture{},
		Presets:      []ExportedPreset{},
		Cues:         []ExportedCue{},
		Groups:       []ExportedGroup{},
		Executors:    []ExportedExecutor{},
	}
	stats := &ExportStats{}

	types := make(map[string]*fixture.Type)
	for _, f := range show.Fixtures {
		types[f.Type.Name] = f.Type
		exported.Fixtures = append(exported.Fixtures, ExportedFixture{
			Number:   f.Number,
			Name:     f.Name,
			Type:     f.Type.Name,
			Universe: f.Universe,
			Address:  f.Address,
		})
		stats.FixturesCount++
	}
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, builtIn := builtins.Lookup(name)
		exported.FixtureTypes = append(exported.FixtureTypes, ExportedFixtureType{
			Name:      name,
			IsBuiltIn: builtIn,
			Channels:  append([]fixture.Channel(nil), types[name].Channels...),
		})
		stats.FixtureTypesCount++
	}

	for _, p := range show.Presets {
		exported.Presets = append(exported.Presets, ExportedPreset{
			FeatureSet: p.FeatureSet,
			Slot:       p.Index + 1,
			Name:       p.Name,
			Values:     p.Values.Clone(),
		})
		stats.PresetsCount++
	}

	for _, c := range show.Cues {
		exported.Cues = append(exported.Cues, ExportedCue{
			Number:   c.Number,
			Name:     c.Name,
			FadeTime: c.FadeTime,
			Values:   c.Values.Clone(),
		})
		stats.CuesCount++
	}

	for _, h := range show.Groups {
		exported.Groups = append(exported.Groups, ExportedGroup{
			Number:    h.Number,
			Name:      h.Name,
			Mode:      string(h.Mode),
			Members:   append([]string(nil), h.Members...),
			Values:    h.Values.Clone(),
			Intensity: h.Intensity,
			Active:    h.Active,
			Priority:  h.Priority,
		})
		stats.GroupsCount++
	}

	for _, e := range show.Executors {
		exported.Executors = append(exported.Executors, ExportedExecutor{
			Number: e.Number,
			Name:   e.Name,
			Values: e.Values.Clone(),
			Active: e.Active,
		})
		stats.ExecutorsCount++
	}

	return exported, stats
}

// ToJSON converts an exported show to JSON string.
func (e *ExportedShow) ToJSON() (string, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseExportedShow parses JSON into an ExportedShow.
func ParseExportedShow(jsonContent string) (*ExportedShow, error) {
	var exported ExportedShow
	if err := json.Unmarshal([]byte(jsonContent), &exported); err != nil {
		return nil, fmt.Errorf("invalid show file: %w", err)
	}
	if exported.Version == "" {
		return nil, errors.New("invalid show file: missing version")
	}
	return &exported, nil
}

// GetDescription returns the description from the exported metadata.
func (e *ExportedShow) GetDescription() *string {
	if e.Metadata != nil {
		return e.Metadata.Description
	}
	return nil
}
