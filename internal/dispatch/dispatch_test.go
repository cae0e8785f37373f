package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/lacylights-console/internal/command"
)

// fakeHost records what the dispatcher asked for.
type fakeHost struct {
	ids        []string
	selected   []string
	channels   []string
	featureSet string
	presets    map[string]bool

	setCalls     map[string]int
	fsSwitches   []string
	recalled     []string
	recordedCue  []string
	priority     int
	encoderDelta int
	encoderKey   string
	fadeSeconds  float64
	speed        float64
	master       int
	conditionMet bool
	cleared      int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		ids:      []string{"fx1", "fx2", "fx3", "fx4", "4001"},
		channels: []string{"Dimmer", "Red", "Green", "Blue", "Pan", "Tilt"},
		presets:  map[string]bool{"color/0": true},
		setCalls: map[string]int{},
	}
}

func (h *fakeHost) actions() *Actions {
	return &Actions{
		FixtureIDs: func() []string { return h.ids },
		SetSelectedFixtures: func(ids []string) error {
			h.selected = ids
			return nil
		},
		SelectedFixtures:  func() []string { return h.selected },
		AvailableChannels: func() []string { return h.channels },
		SetChannelValue: func(channel string, value int) error {
			h.setCalls[channel] = value
			return nil
		},
		SetEncoderValue: func(channel string, delta int) (int, error) {
			h.encoderKey, h.encoderDelta = channel, delta
			return 0, nil
		},
		Clear: func() error {
			h.cleared++
			return nil
		},
		ActiveFeatureSet: func() string { return h.featureSet },
		SetFeatureSet: func(name string) error {
			h.featureSet = name
			h.fsSwitches = append(h.fsSwitches, name)
			return nil
		},
		RecallPreset: func(fs string, index int) (bool, error) {
			key := fs + "/" + string(rune('0'+index))
			h.recalled = append(h.recalled, key)
			return h.presets[key], nil
		},
		RecordPreset: func(fs string, index int, name string) error { return nil },
		RecordCue: func(number int, name string) (int, error) {
			h.recordedCue = append(h.recordedCue, name)
			if number == 0 {
				return 7, nil
			}
			return number, nil
		},
		SetGroupPriority: func(number, priority int) error {
			h.priority = priority
			return nil
		},
		SetFadeTime: func(seconds float64) error {
			h.fadeSeconds = seconds
			return nil
		},
		VideoSpeed: func(input int, speed float64) VideoResult {
			h.speed = speed
			return VideoResult{Success: true, Message: "speed set"}
		},
		SetMaster: func(value int) error {
			h.master = value
			return nil
		},
		EvaluateCondition: func(cond command.Condition) (bool, error) {
			return h.conditionMet, nil
		},
		DeleteCue: func(number int) (string, error) {
			return "Delete cue 3? Press enter to confirm", nil
		},
	}
}

func run(t *testing.T, text string, a *Actions) Result {
	t.Helper()
	return Execute(command.Parse(text), a)
}

func TestExecute_MissingCapability(t *testing.T) {
	for _, text := range []string{"undo", "redo", "locate", "clock start", "open 1"} {
		res := run(t, text, &Actions{})
		assert.False(t, res.Success, text)
		assert.Contains(t, res.Message, "is not available", text)
	}

	res := Execute(command.Parse("undo"), nil)
	assert.Equal(t, Result{Success: false, Message: "Undo is not available"}, res)
}

func TestExecute_ParseFailuresCarryMessage(t *testing.T) {
	res := run(t, "frobnicate", newFakeHost().actions())
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "frobnicate")

	res = run(t, "", newFakeHost().actions())
	assert.False(t, res.Success)
	assert.Equal(t, "Empty command", res.Message)
}

func TestExecute_ErrorsAndPanicsBecomeFailures(t *testing.T) {
	a := &Actions{Clear: func() error { return errors.New("programmer locked") }}
	assert.Equal(t, Result{Success: false, Message: "programmer locked"}, run(t, "clear", a))

	a = &Actions{Clear: func() error { panic("boom") }}
	res := run(t, "clear", a)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "boom")
}

func TestResolveFixtures(t *testing.T) {
	tests := []struct {
		name    string
		numbers []int
		ids     []string
		want    []string
	}{
		{"bare numeral", []int{5}, []string{"5"}, []string{"5"}},
		{"fx prefix", []int{5}, []string{"fx5"}, []string{"fx5"}},
		{"fixture prefix", []int{5}, []string{"fixture5"}, []string{"fixture5"}},
		{"trailing numeral", []int{5}, []string{"par-5"}, []string{"par-5"}},
		{"exact spelling wins", []int{1}, []string{"par-1", "fx1"}, []string{"fx1"}},
		{"no partial numerals", []int{1}, []string{"fx11"}, nil},
		{"unmatched skipped", []int{1, 9, 2}, []string{"fx1", "fx2"}, []string{"fx1", "fx2"}},
		{"duplicates collapse", []int{1, 1}, []string{"fx1"}, []string{"fx1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveFixtures(tt.numbers, tt.ids))
		})
	}
}

func TestExecute_Selection(t *testing.T) {
	h := newFakeHost()
	res := run(t, "1 thru 3", h.actions())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, []string{"fx1", "fx2", "fx3"}, h.selected)
	assert.Equal(t, "Selected 3 fixtures", res.Message)

	res = run(t, "2+4+9", h.actions())
	require.True(t, res.Success)
	assert.Equal(t, []string{"fx2", "fx4"}, h.selected)

	// Group handles are addressed by their virtual fixture number.
	res = run(t, "4001", h.actions())
	require.True(t, res.Success)
	assert.Equal(t, []string{"4001"}, h.selected)
}

func TestExecute_InvertedRangeFails(t *testing.T) {
	h := newFakeHost()
	h.selected = []string{"fx4"}
	res := run(t, "5 thru 1", h.actions())
	assert.False(t, res.Success)
	assert.Equal(t, "No fixtures found", res.Message)
	assert.Equal(t, []string{"fx4"}, h.selected, "selection must not change")
}

func TestExecute_WideRangeUsesPatchedNumbers(t *testing.T) {
	h := newFakeHost()
	start := time.Now()
	res := run(t, "1 thru 30000000", h.actions())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, []string{"fx1", "fx2", "fx3", "fx4", "4001"}, h.selected)
	assert.Less(t, time.Since(start), time.Second)

	res = run(t, "3 thru 2000000000", h.actions())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, []string{"fx3", "fx4", "4001"}, h.selected)
}

func TestExecute_OverflowingRangeDoesNotPanic(t *testing.T) {
	h := newFakeHost()
	res := run(t, "1 thru 9000000000000000000", h.actions())
	require.True(t, res.Success, res.Message)
	assert.Len(t, h.selected, 5)

	res = run(t, "1 thru 99999999999999999999", h.actions())
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "out of range")
}

func TestNumbersInRange(t *testing.T) {
	ids := []string{"fx12", "fx3", "par-7", "fx3", "spare", "4001"}
	sel := command.Selection{From: 3, To: 12, IsRange: true}
	assert.Equal(t, []int{3, 7, 12}, numbersInRange(sel, ids))
}

func TestExecute_SetValue(t *testing.T) {
	h := newFakeHost()

	res := run(t, "red at 255", h.actions())
	assert.False(t, res.Success, "nothing selected yet")
	assert.Equal(t, "No fixtures selected", res.Message)

	run(t, "1 thru 3", h.actions())
	res = run(t, "red at 255", h.actions())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 255, h.setCalls["Red"])

	res = run(t, "blu at 300", h.actions())
	require.True(t, res.Success)
	assert.Equal(t, 255, h.setCalls["Blue"], "values clamp to 255")

	res = run(t, "at 50", h.actions())
	require.True(t, res.Success)
	assert.Equal(t, 50, h.setCalls["Dimmer"])

	res = run(t, "zoom at 10", h.actions())
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "zoom")

	res = run(t, "4 at 80", h.actions())
	require.True(t, res.Success)
	assert.Equal(t, []string{"fx4"}, h.selected)
	assert.Equal(t, 80, h.setCalls["Dimmer"])

	res = run(t, "pan 40", h.actions())
	require.True(t, res.Success)
	assert.Equal(t, 40, h.setCalls["Pan"])
}

func TestMatchChannel(t *testing.T) {
	available := []string{"Pan Fine", "Pan", "Green"}
	ch, found := matchChannel("pan", available)
	assert.True(t, found)
	assert.Equal(t, "Pan", ch, "exact match wins")

	ch, found = matchChannel("FINE", available)
	assert.True(t, found)
	assert.Equal(t, "Pan Fine", ch)

	_, found = matchChannel("tilt", available)
	assert.False(t, found)
}

func TestExecute_DotRecallSwitchesFeatureSet(t *testing.T) {
	h := newFakeHost()
	h.featureSet = "intensity"

	res := run(t, "3.1", h.actions())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, []string{"color"}, h.fsSwitches)
	assert.Equal(t, "color", h.featureSet)

	// Recalling again does not switch again and stays successful.
	res = run(t, "3.1", h.actions())
	require.True(t, res.Success)
	assert.Equal(t, []string{"color"}, h.fsSwitches)
	assert.Equal(t, []string{"color/0", "color/0"}, h.recalled)

	res = run(t, "3.2", h.actions())
	assert.False(t, res.Success)
	assert.Equal(t, "Preset 3.2 is empty", res.Message)
}

func TestExecute_PresetNumberUsesActiveFeatureSet(t *testing.T) {
	h := newFakeHost()
	res := run(t, "preset 1", h.actions())
	assert.False(t, res.Success)

	h.featureSet = "color"
	res = run(t, "preset 1", h.actions())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, []string{"color/0"}, h.recalled)
}

func TestExecute_ContextualRecord(t *testing.T) {
	h := newFakeHost()
	h.featureSet = "color"
	h.selected = []string{"fx1"}

	res := run(t, "record", h.actions())
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "record 3.N")
	assert.Empty(t, h.recordedCue)

	h.selected = nil
	res = run(t, "record opener", h.actions())
	require.True(t, res.Success)
	assert.Equal(t, "Recorded cue 7", res.Message)
	assert.Equal(t, []string{"opener"}, h.recordedCue)

	h.selected = []string{"fx1"}
	res = run(t, "record 3.4", h.actions())
	assert.True(t, res.Success, "dot form always records a preset")

	res = run(t, "record cue 12", h.actions())
	require.True(t, res.Success)
	assert.Equal(t, "Recorded cue 12", res.Message)
}

func TestExecute_Clamps(t *testing.T) {
	h := newFakeHost()
	h.selected = []string{"fx1"}
	a := h.actions()

	require.True(t, run(t, "group 1 priority 150", a).Success)
	assert.Equal(t, 100, h.priority)

	require.True(t, run(t, "time 5000", a).Success)
	assert.Equal(t, 3600.0, h.fadeSeconds)

	require.True(t, run(t, "speed video1 20", a).Success)
	assert.Equal(t, 10.0, h.speed)
	require.True(t, run(t, "speed video1 0", a).Success)
	assert.Equal(t, 0.1, h.speed)

	require.True(t, run(t, "master 300", a).Success)
	assert.Equal(t, 255, h.master)

	require.True(t, run(t, "encoder 1 -300", a).Success)
	assert.Equal(t, -255, h.encoderDelta)
}

func TestExecute_EncoderFollowsFeatureSet(t *testing.T) {
	h := newFakeHost()
	h.selected = []string{"fx1"}
	h.featureSet = "color"

	res := run(t, "encoder 2 10", h.actions())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Green", h.encoderKey)

	res = run(t, "encoder 9 10", h.actions())
	assert.False(t, res.Success)
}

func TestExecute_Conditional(t *testing.T) {
	h := newFakeHost()

	res := run(t, "clear if blackout", h.actions())
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "Skipped")
	assert.Equal(t, 0, h.cleared)

	h.conditionMet = true
	res = run(t, "clear if blackout", h.actions())
	assert.True(t, res.Success)
	assert.Equal(t, 1, h.cleared)
}

func TestExecute_DeleteReturnsCapabilityMessage(t *testing.T) {
	res := run(t, "delete cue 3", newFakeHost().actions())
	assert.True(t, res.Success)
	assert.Equal(t, "Delete cue 3? Press enter to confirm", res.Message)

	res = run(t, "delete group 2", newFakeHost().actions())
	assert.False(t, res.Success)
}

func TestExecute_WindowResult(t *testing.T) {
	a := &Actions{OpenWindow: func(n int) WindowResult {
		if n > 10 {
			return WindowResult{Message: "No window 11"}
		}
		return WindowResult{Success: true, WindowName: "cues"}
	}}
	assert.Equal(t, Result{Success: true, Message: "Opened cues window"}, run(t, "open 3", a))
	assert.Equal(t, Result{Success: false, Message: "No window 11"}, run(t, "open 11", a))
}
