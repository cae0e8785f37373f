package console

import (
	"context"
	"errors"

	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/grouphandle"
)

var (
	// ErrNoSelection is returned by operations that need selected fixtures.
	ErrNoSelection = errors.New("no fixtures selected")
	// ErrNotFound is returned when a numbered object does not exist.
	ErrNotFound = errors.New("not found")
)

// Snapshot maps target ids to channel values.
type Snapshot map[string]fixture.Values

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, values := range s {
		out[id] = values.Clone()
	}
	return out
}

// Preset is one slot of a feature set's preset grid.
type Preset struct {
	FeatureSet string   `json:"featureSet"`
	Index      int      `json:"index"` // zero-based
	Name       string   `json:"name"`
	Values     Snapshot `json:"values"`
}

// Cue is a recorded programmer state.
type Cue struct {
	Number   int      `json:"number"`
	Name     string   `json:"name"`
	FadeTime float64  `json:"fadeTime"`
	Values   Snapshot `json:"values"`
}

// Executor is a playback holding a recorded state that can be switched on
// under the programmer.
type Executor struct {
	Number int      `json:"number"`
	Name   string   `json:"name"`
	Values Snapshot `json:"values"`
	Active bool     `json:"active"`

	order uint64
}

// View remembers which windows were open.
type View struct {
	Number  int    `json:"number"`
	Name    string `json:"name"`
	Windows []int  `json:"windows"`
}

// Window is an entry of the fixed window registry.
type Window struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Open   bool   `json:"open"`
	Source string `json:"source,omitempty"`
}

// Video transport states.
const (
	VideoPlaying = "playing"
	VideoPaused  = "paused"
	VideoStopped = "stopped"
)

// Video is the transport state of one video input.
type Video struct {
	Input  int     `json:"input"`
	Output int     `json:"output"`
	State  string  `json:"state"`
	Loop   bool    `json:"loop"`
	Speed  float64 `json:"speed"`
}

// Store persists console objects. Calls are made after the console lock is
// released; failures are logged and never change a command result.
type Store interface {
	SaveFixture(ctx context.Context, f *fixture.Fixture) error
	DeleteFixture(ctx context.Context, number int) error
	SavePreset(ctx context.Context, p *Preset) error
	DeletePreset(ctx context.Context, featureSet string, index int) error
	SaveCue(ctx context.Context, c *Cue) error
	DeleteCue(ctx context.Context, number int) error
	SaveGroup(ctx context.Context, h *grouphandle.Handle) error
	DeleteGroup(ctx context.Context, number int) error
	SaveExecutor(ctx context.Context, e *Executor) error
}

// Show is everything a Store can hand back at startup.
type Show struct {
	Fixtures  []*fixture.Fixture
	Presets   []*Preset
	Cues      []*Cue
	Groups    []grouphandle.Handle
	Executors []*Executor
}
