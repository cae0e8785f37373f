// Package command turns operator-typed console lines into structured commands.
package command

import (
	"fmt"

	"github.com/bbernstein/lacylights-console/internal/fixture"
)

// Type discriminates the Command variants.
type Type string

const (
	TypeUnknown Type = "unknown"
	TypeInvalid Type = "invalid"

	// System keywords
	TypeClear    Type = "clear"
	TypeBlackout Type = "blackout"
	TypeLocate   Type = "locate"
	TypeUndo     Type = "undo"
	TypeRedo     Type = "redo"
	TypeHelp     Type = "help"

	TypeConditional Type = "conditional"
	TypeClock       Type = "clock"
	TypeTimer       Type = "timer"
	TypeMaster      Type = "master"

	// Group handle configuration
	TypeGroupMode      Type = "group_mode"
	TypeGroupPriority  Type = "group_priority"
	TypeGroupIntensity Type = "group_intensity"
	TypeGroupActive    Type = "group_active"
	TypeGroupSet       Type = "group_set"
	TypeGroupPreset    Type = "group_preset"

	TypeCueTime  Type = "cue_time"
	TypeGo       Type = "go"
	TypeGoto     Type = "goto"
	TypeExecutor Type = "executor"
	TypeNDI      Type = "ndi"
	TypePatch    Type = "patch"
	TypeDelete   Type = "delete"

	// Record and update
	TypeRecordDot           Type = "record_dot"
	TypeUpdateDot           Type = "update_dot"
	TypeRecordGroupExecutor Type = "record_group_executor"
	TypeRecordExecutor      Type = "record_executor"
	TypeRecordObject        Type = "record_object"
	TypeUpdateObject        Type = "update_object"
	TypeRecord              Type = "record"
	TypeUpdate              Type = "update"

	TypeFeatureSet  Type = "feature_set"
	TypeWindowRoute Type = "window_route"

	// Selection and values
	TypeSelectFixture Type = "select_fixture"
	TypeSelectRange   Type = "select_range"
	TypeSelectSet     Type = "select_set"
	TypeSetValue      Type = "set_value"
	TypeSetChannel    Type = "set_channel"

	TypeRecallDot    Type = "recall_dot"
	TypeRecallObject Type = "recall_object"

	TypeTime      Type = "time"
	TypeFan       Type = "fan"
	TypeEncoder   Type = "encoder"
	TypeHighlight Type = "highlight"

	TypeOpenWindow  Type = "window_open"
	TypeCloseWindow Type = "window_close"

	// Video transport
	TypeVideoPlay    Type = "video_play"
	TypeVideoPause   Type = "video_pause"
	TypeVideoStop    Type = "video_stop"
	TypeVideoRestart Type = "video_restart"
	TypeVideoLoop    Type = "video_loop"
	TypeVideoSpeed   Type = "video_speed"
)

// Coordinate addresses a preset slot as feature set number and preset number,
// both 1-based ("3.5" is color preset 5).
type Coordinate struct {
	FeatureSet int `json:"featureSet"`
	Preset     int `json:"preset"`
}

// NewCoordinate validates the ranges and returns the coordinate.
func NewCoordinate(featureSet, preset int) (Coordinate, bool) {
	if featureSet < 1 || featureSet > len(fixture.FeatureSets) {
		return Coordinate{}, false
	}
	if preset < 1 || preset > fixture.PresetsPerFeatureSet {
		return Coordinate{}, false
	}
	return Coordinate{FeatureSet: featureSet, Preset: preset}, true
}

// FeatureSetName returns the canonical feature set name.
func (c Coordinate) FeatureSetName() string {
	name, _ := fixture.FeatureSetName(c.FeatureSet)
	return name
}

// Index returns the zero-based preset index.
func (c Coordinate) Index() int {
	return c.Preset - 1
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%d.%d", c.FeatureSet, c.Preset)
}

// Selection is a fixture-number expression: a single number, an inclusive
// range, or an explicit set.
type Selection struct {
	Numbers []int `json:"numbers,omitempty"`
	From    int   `json:"from,omitempty"`
	To      int   `json:"to,omitempty"`
	IsRange bool  `json:"isRange,omitempty"`
}

// MaxRangeSize is the largest range Expand will list. Larger ranges are
// resolved with Contains against the numbers actually patched.
const MaxRangeSize = 65536

// Expand lists the fixture numbers the selection names. An inverted range
// (5 thru 1) names nothing, and so does a range wider than MaxRangeSize.
func (s Selection) Expand() []int {
	if !s.IsRange {
		return append([]int(nil), s.Numbers...)
	}
	if s.From > s.To || s.From < 0 || s.To-s.From >= MaxRangeSize {
		return nil
	}
	out := make([]int, 0, s.To-s.From+1)
	for n := s.From; n <= s.To; n++ {
		out = append(out, n)
	}
	return out
}

// Contains reports whether the selection names fixture number n.
func (s Selection) Contains(n int) bool {
	if s.IsRange {
		return s.From <= n && n <= s.To
	}
	for _, v := range s.Numbers {
		if v == n {
			return true
		}
	}
	return false
}

// Condition guards a conditional command.
type Condition struct {
	Kind   string `json:"kind"` // selection, featureset, blackout, clock, timer
	Arg    string `json:"arg,omitempty"`
	Negate bool   `json:"negate,omitempty"`
}

// WindowRef names a window and optionally an object inside it ("video/2").
type WindowRef struct {
	Name   string `json:"name"`
	Object string `json:"object,omitempty"`
}

// Command is the parser output. Only the fields relevant to Type are set.
type Command struct {
	Type    Type   `json:"type"`
	Raw     string `json:"raw"`
	Message string `json:"message,omitempty"`

	Selection *Selection  `json:"selection,omitempty"`
	Channel   string      `json:"channel,omitempty"`
	Value     int         `json:"value,omitempty"`
	Coord     *Coordinate `json:"coord,omitempty"`

	Object      string  `json:"object,omitempty"`
	Number      int     `json:"number,omitempty"`
	Executor    int     `json:"executor,omitempty"`
	Name        string  `json:"name,omitempty"`
	Mode        string  `json:"mode,omitempty"`
	Axis        string  `json:"axis,omitempty"`
	Input       int     `json:"input,omitempty"`
	Output      int     `json:"output,omitempty"`
	Seconds     float64 `json:"seconds,omitempty"`
	Speed       float64 `json:"speed,omitempty"`
	FixtureType string  `json:"fixtureType,omitempty"`
	Universe    int     `json:"universe,omitempty"`
	Address     int     `json:"address,omitempty"`

	Source *WindowRef `json:"source,omitempty"`
	Dest   *WindowRef `json:"dest,omitempty"`

	Condition *Condition `json:"condition,omitempty"`
	Inner     *Command   `json:"inner,omitempty"`
}

// Failed reports whether the command is a parse failure.
func (c Command) Failed() bool {
	return c.Type == TypeUnknown || c.Type == TypeInvalid
}
