package command

import (
	"fmt"
	"testing"

	"github.com/bbernstein/lacylights-console/internal/fixture"
)

func TestParse_System(t *testing.T) {
	tests := map[string]Type{
		"clear":    TypeClear,
		"CLR":      TypeClear,
		"bo":       TypeBlackout,
		"Blackout": TypeBlackout,
		"locate":   TypeLocate,
		"undo":     TypeUndo,
		"redo":     TypeRedo,
		" help ":   TypeHelp,
	}
	for in, want := range tests {
		if got := Parse(in); got.Type != want {
			t.Errorf("Parse(%q).Type = %v, want %v", in, got.Type, want)
		}
	}
}

func TestParse_KeepsRawText(t *testing.T) {
	cmd := Parse("  Red AT 255 ")
	if cmd.Raw != "Red AT 255" {
		t.Errorf("Raw = %q, want trimmed original", cmd.Raw)
	}
}

func TestParse_EmptyIsUnknown(t *testing.T) {
	for _, in := range []string{"", "   ", "\t"} {
		if got := Parse(in); got.Type != TypeUnknown {
			t.Errorf("Parse(%q).Type = %v, want unknown", in, got.Type)
		}
	}
}

func TestParse_CoordinateGrid(t *testing.T) {
	for fs := 0; fs <= 10; fs++ {
		for p := 0; p <= 14; p++ {
			text := fmt.Sprintf("%d.%d", fs, p)
			cmd := Parse(text)

			valid := fs >= 1 && fs <= 8 && p >= 1 && p <= 12
			if !valid {
				if cmd.Type != TypeUnknown {
					t.Errorf("Parse(%q).Type = %v, want unknown", text, cmd.Type)
				}
				continue
			}
			if cmd.Type != TypeRecallDot {
				t.Fatalf("Parse(%q).Type = %v, want recall_dot", text, cmd.Type)
			}
			want, _ := fixture.FeatureSetName(fs)
			if cmd.Coord.FeatureSetName() != want {
				t.Errorf("Parse(%q) feature set = %q, want %q", text, cmd.Coord.FeatureSetName(), want)
			}
			if cmd.Coord.Index() != p-1 {
				t.Errorf("Parse(%q) index = %d, want %d", text, cmd.Coord.Index(), p-1)
			}
		}
	}
}

func TestParse_Selection(t *testing.T) {
	tests := []struct {
		in   string
		typ  Type
		want []int
	}{
		{"5", TypeSelectFixture, []int{5}},
		{"fixture 5", TypeSelectFixture, []int{5}},
		{"fx 5", TypeSelectFixture, []int{5}},
		{"fx5", TypeSelectFixture, []int{5}},
		{"1 thru 3", TypeSelectRange, []int{1, 2, 3}},
		{"1 through 3", TypeSelectRange, []int{1, 2, 3}},
		{"1 > 3", TypeSelectRange, []int{1, 2, 3}},
		{"5 thru 1", TypeSelectRange, nil},
		{"1+3+5", TypeSelectSet, []int{1, 3, 5}},
		{"1 + 3 +5", TypeSelectSet, []int{1, 3, 5}},
	}
	for _, tt := range tests {
		cmd := Parse(tt.in)
		if cmd.Type != tt.typ {
			t.Errorf("Parse(%q).Type = %v, want %v", tt.in, cmd.Type, tt.typ)
			continue
		}
		got := cmd.Selection.Expand()
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("Parse(%q) expands to %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParse_Values(t *testing.T) {
	tests := []struct {
		in      string
		typ     Type
		channel string
		value   int
	}{
		{"red at 255", TypeSetValue, "red", 255},
		{"at 128", TypeSetValue, "dimmer", 128},
		{"@ 50", TypeSetValue, "dimmer", 50},
		{"pan fine at 10", TypeSetValue, "pan_fine", 10},
		{"red 200", TypeSetChannel, "red", 200},
		{"Pan Fine 12", TypeSetChannel, "pan_fine", 12},
		{"green 300", TypeSetChannel, "green", 300},
	}
	for _, tt := range tests {
		cmd := Parse(tt.in)
		if cmd.Type != tt.typ || cmd.Channel != tt.channel || cmd.Value != tt.value {
			t.Errorf("Parse(%q) = {%v %q %d}, want {%v %q %d}", tt.in, cmd.Type, cmd.Channel, cmd.Value, tt.typ, tt.channel, tt.value)
		}
	}
}

func TestParse_ValueWithSelectionTarget(t *testing.T) {
	cmd := Parse("1 thru 3 at 255")
	if cmd.Type != TypeSetValue {
		t.Fatalf("Type = %v, want set_value", cmd.Type)
	}
	if cmd.Selection == nil || !cmd.Selection.IsRange || cmd.Selection.From != 1 || cmd.Selection.To != 3 {
		t.Errorf("Selection = %+v, want range 1..3", cmd.Selection)
	}
	if cmd.Channel != "dimmer" {
		t.Errorf("Channel = %q, want dimmer", cmd.Channel)
	}

	if got := Parse("red at full"); got.Type != TypeInvalid {
		t.Errorf("Parse(red at full).Type = %v, want invalid", got.Type)
	}
}

func TestParse_ReservedWordsAreNotChannels(t *testing.T) {
	tests := map[string]Type{
		"cue 5":     TypeRecallObject,
		"group 2":   TypeRecallObject,
		"time 3":    TypeTime,
		"master 10": TypeMaster,
		"open 3":    TypeOpenWindow,
		"close 3":   TypeCloseWindow,
		"go 4":      TypeGo,
	}
	for in, want := range tests {
		if got := Parse(in); got.Type != want {
			t.Errorf("Parse(%q).Type = %v, want %v", in, got.Type, want)
		}
	}
}

func TestParse_FeatureSets(t *testing.T) {
	for _, fs := range fixture.FeatureSets {
		cmd := Parse(fs)
		if cmd.Type != TypeFeatureSet || cmd.Name != fs {
			t.Errorf("Parse(%q) = %v %q, want feature_set", fs, cmd.Type, cmd.Name)
		}
	}
	if cmd := Parse("col"); cmd.Name != fixture.FeatureColor {
		t.Errorf("Parse(col).Name = %q, want color", cmd.Name)
	}
}

func TestParse_NamedFeatureSetRecall(t *testing.T) {
	cmd := Parse("color 5")
	if cmd.Type != TypeRecallObject || cmd.Coord == nil {
		t.Fatalf("Parse(color 5) = %+v", cmd)
	}
	if cmd.Coord.FeatureSet != 3 || cmd.Coord.Preset != 5 {
		t.Errorf("Coord = %v, want 3.5", cmd.Coord)
	}
	if got := Parse("color 13"); got.Type != TypeInvalid {
		t.Errorf("Parse(color 13).Type = %v, want invalid", got.Type)
	}
}

func TestParse_Record(t *testing.T) {
	tests := []struct {
		in     string
		typ    Type
		object string
		number int
		name   string
	}{
		{"record", TypeRecord, "", 0, ""},
		{"rec wash look", TypeRecord, "", 0, "wash look"},
		{"record 3.5", TypeRecordDot, "", 0, ""},
		{"record 3.5 warm", TypeRecordDot, "", 0, "warm"},
		{"update 3.5", TypeUpdateDot, "", 0, ""},
		{"update", TypeUpdate, "", 0, ""},
		{"record cue 4", TypeRecordObject, "cue", 4, ""},
		{"record 7", TypeRecordObject, "cue", 7, ""},
		{"record group 2 front", TypeRecordObject, "group", 2, "front"},
		{"update cue 4", TypeUpdateObject, "cue", 4, ""},
		{"record color 2", TypeRecordObject, "color", 2, ""},
		{"record executor 3", TypeRecordExecutor, "", 3, ""},
		{"record group 2 executor 3", TypeRecordGroupExecutor, "", 2, ""},
	}
	for _, tt := range tests {
		cmd := Parse(tt.in)
		if cmd.Type != tt.typ || cmd.Object != tt.object || cmd.Number != tt.number || cmd.Name != tt.name {
			t.Errorf("Parse(%q) = {%v %q %d %q}, want {%v %q %d %q}",
				tt.in, cmd.Type, cmd.Object, cmd.Number, cmd.Name, tt.typ, tt.object, tt.number, tt.name)
		}
	}

	if cmd := Parse("record group 2 executor 3"); cmd.Executor != 3 {
		t.Errorf("Executor = %d, want 3", cmd.Executor)
	}
}

func TestParse_RecordBadCoordinateIsInvalid(t *testing.T) {
	for _, in := range []string{"record 9.5", "record 1.13", "update 0.1", "delete preset 3.13"} {
		if got := Parse(in); got.Type != TypeInvalid {
			t.Errorf("Parse(%q).Type = %v, want invalid", in, got.Type)
		}
	}
}

func TestParse_RecordMalformedTargetIsInvalid(t *testing.T) {
	for _, in := range []string{
		"record preset 3.5", "record group two", "record cue", "record cue x",
		"record view front", "record executor", "record color red", "record beam 2.1",
	} {
		got := Parse(in)
		if got.Type != TypeInvalid {
			t.Errorf("Parse(%q).Type = %v, want invalid", in, got.Type)
			continue
		}
		if got.Message == "" {
			t.Errorf("Parse(%q) has no message", in)
		}
	}

	// A free-form name that does not lead with an object word is still a cue name.
	if got := Parse("record warm front"); got.Type != TypeRecord || got.Name != "warm front" {
		t.Errorf("Parse(record warm front) = {%v %q}, want {record %q}", got.Type, got.Name, "warm front")
	}
}

func TestSelection_WideRanges(t *testing.T) {
	wide := Parse("1 thru 30000000").Selection
	if wide == nil || !wide.IsRange {
		t.Fatalf("Parse(1 thru 30000000) has no range selection")
	}
	if got := wide.Expand(); got != nil {
		t.Errorf("Expand() listed %d numbers past MaxRangeSize", len(got))
	}
	if !wide.Contains(29999999) || wide.Contains(30000001) || wide.Contains(0) {
		t.Errorf("Contains() disagrees with the range bounds")
	}

	huge := Parse("1 thru 9000000000000000000").Selection
	if huge == nil || huge.Expand() != nil || !huge.Contains(4001) {
		t.Errorf("huge range: selection %+v", huge)
	}

	if got := Parse("1 thru 99999999999999999999"); got.Type != TypeInvalid {
		t.Errorf("overflowing range Type = %v, want invalid", got.Type)
	}

	edge := Selection{From: 1, To: MaxRangeSize, IsRange: true}
	if got := len(edge.Expand()); got != MaxRangeSize {
		t.Errorf("Expand() of a %d-wide range listed %d numbers", MaxRangeSize, got)
	}

	set := Selection{Numbers: []int{2, 4}}
	if !set.Contains(4) || set.Contains(3) {
		t.Errorf("Contains() on an explicit set is wrong")
	}
}

func TestParse_GroupConfig(t *testing.T) {
	tests := []struct {
		in    string
		typ   Type
		mode  string
		value int
	}{
		{"group 1 mode additive", TypeGroupMode, "ADDITIVE", 0},
		{"group 1 mode a", TypeGroupMode, "ADDITIVE", 0},
		{"group 1 mode i", TypeGroupMode, "INHIBITIVE", 0},
		{"group 1 mode sc", TypeGroupMode, "SCALING", 0},
		{"group 1 mode su", TypeGroupMode, "SUBTRACTIVE", 0},
		{"group 1 priority 90", TypeGroupPriority, "", 90},
		{"group 1 intensity 50%", TypeGroupIntensity, "", 50},
		{"group 1 off", TypeGroupActive, "off", 0},
		{"group 1 on", TypeGroupActive, "on", 0},
		{"group 1 mode sideways", TypeInvalid, "", 0},
	}
	for _, tt := range tests {
		cmd := Parse(tt.in)
		if cmd.Type != tt.typ || cmd.Mode != tt.mode || cmd.Value != tt.value {
			t.Errorf("Parse(%q) = {%v %q %d}, want {%v %q %d}", tt.in, cmd.Type, cmd.Mode, cmd.Value, tt.typ, tt.mode, tt.value)
		}
	}

	cmd := Parse("group 2 set red 40")
	if cmd.Type != TypeGroupSet || cmd.Number != 2 || cmd.Channel != "red" || cmd.Value != 40 {
		t.Errorf("Parse(group 2 set red 40) = %+v", cmd)
	}

	cmd = Parse("group 2 preset 3.4")
	if cmd.Type != TypeGroupPreset || cmd.Number != 2 || cmd.Coord.String() != "3.4" {
		t.Errorf("Parse(group 2 preset 3.4) = %+v", cmd)
	}
}

func TestParse_TimingAndPlayback(t *testing.T) {
	cmd := Parse("time 2.5")
	if cmd.Type != TypeTime || cmd.Seconds != 2.5 {
		t.Errorf("Parse(time 2.5) = %+v", cmd)
	}
	cmd = Parse("time 3 cue 4")
	if cmd.Type != TypeCueTime || cmd.Number != 4 || cmd.Seconds != 3 {
		t.Errorf("Parse(time 3 cue 4) = %+v", cmd)
	}
	cmd = Parse("cue 4 time 3")
	if cmd.Type != TypeCueTime || cmd.Number != 4 || cmd.Seconds != 3 {
		t.Errorf("Parse(cue 4 time 3) = %+v", cmd)
	}
	if cmd = Parse("go"); cmd.Type != TypeGo || cmd.Number != 0 {
		t.Errorf("Parse(go) = %+v", cmd)
	}
	if cmd = Parse("goto cue 3"); cmd.Type != TypeGoto || cmd.Number != 3 {
		t.Errorf("Parse(goto cue 3) = %+v", cmd)
	}
	if cmd = Parse("exec 2 off"); cmd.Type != TypeExecutor || cmd.Number != 2 || cmd.Mode != "off" {
		t.Errorf("Parse(exec 2 off) = %+v", cmd)
	}
	if cmd = Parse("executor 2"); cmd.Mode != "go" {
		t.Errorf("Parse(executor 2).Mode = %q, want go", cmd.Mode)
	}
	if cmd = Parse("time soon"); cmd.Type != TypeInvalid {
		t.Errorf("Parse(time soon).Type = %v, want invalid", cmd.Type)
	}
}

func TestParse_Auxiliary(t *testing.T) {
	cmd := Parse("fan")
	if cmd.Type != TypeFan || cmd.Mode != "center" || cmd.Axis != "" {
		t.Errorf("Parse(fan) = %+v", cmd)
	}
	cmd = Parse("fan left pan")
	if cmd.Mode != "left" || cmd.Axis != "pan" {
		t.Errorf("Parse(fan left pan) = %+v", cmd)
	}
	cmd = Parse("enc 2 -15")
	if cmd.Type != TypeEncoder || cmd.Number != 2 || cmd.Value != -15 {
		t.Errorf("Parse(enc 2 -15) = %+v", cmd)
	}
	cmd = Parse("wheel 1 10")
	if cmd.Type != TypeEncoder || cmd.Value != 10 {
		t.Errorf("Parse(wheel 1 10) = %+v", cmd)
	}
	if cmd = Parse("highlight"); cmd.Mode != "toggle" {
		t.Errorf("Parse(highlight).Mode = %q", cmd.Mode)
	}
	if cmd = Parse("highlight off"); cmd.Mode != "off" {
		t.Errorf("Parse(highlight off).Mode = %q", cmd.Mode)
	}
	if cmd = Parse("highlight maybe"); cmd.Type != TypeInvalid {
		t.Errorf("Parse(highlight maybe).Type = %v", cmd.Type)
	}
}

func TestParse_WindowsAndVideo(t *testing.T) {
	tests := []struct {
		in     string
		typ    Type
		input  int
		output int
	}{
		{"open 3", TypeOpenWindow, 0, 0},
		{"window 3", TypeOpenWindow, 0, 0},
		{"close 3", TypeCloseWindow, 0, 0},
		{"play video1 output2", TypeVideoPlay, 1, 2},
		{"play video 1 output 2", TypeVideoPlay, 1, 2},
		{"pause video1", TypeVideoPause, 1, 0},
		{"stop video2", TypeVideoStop, 2, 0},
		{"restart video3", TypeVideoRestart, 3, 0},
		{"loop video1 on", TypeVideoLoop, 1, 0},
		{"speed video1 1.5", TypeVideoSpeed, 1, 0},
		{"play video1", TypeInvalid, 0, 0},
	}
	for _, tt := range tests {
		cmd := Parse(tt.in)
		if cmd.Type != tt.typ || cmd.Input != tt.input || cmd.Output != tt.output {
			t.Errorf("Parse(%q) = {%v %d %d}, want {%v %d %d}", tt.in, cmd.Type, cmd.Input, cmd.Output, tt.typ, tt.input, tt.output)
		}
	}
	if cmd := Parse("speed video1 1.5"); cmd.Speed != 1.5 {
		t.Errorf("Speed = %v, want 1.5", cmd.Speed)
	}
	if cmd := Parse("ndi camera1 output2"); cmd.Type != TypeNDI || cmd.Name != "camera1" || cmd.Output != 2 {
		t.Errorf("Parse(ndi camera1 output2) = %+v", cmd)
	}
}

func TestParse_WindowRoute(t *testing.T) {
	cmd := Parse("video/2 output/1")
	if cmd.Type != TypeWindowRoute {
		t.Fatalf("Type = %v, want window_route", cmd.Type)
	}
	if cmd.Source.Name != "video" || cmd.Source.Object != "2" || cmd.Dest.Name != "output" || cmd.Dest.Object != "1" {
		t.Errorf("route = %+v -> %+v", cmd.Source, cmd.Dest)
	}
	if got := Parse("cues programmer"); got.Type != TypeWindowRoute {
		t.Errorf("Parse(cues programmer).Type = %v", got.Type)
	}
	if got := Parse("banana split"); got.Type != TypeUnknown {
		t.Errorf("Parse(banana split).Type = %v, want unknown", got.Type)
	}
}

func TestParse_ClockAndTimer(t *testing.T) {
	if cmd := Parse("clock start"); cmd.Type != TypeClock || cmd.Mode != "start" {
		t.Errorf("Parse(clock start) = %+v", cmd)
	}
	if cmd := Parse("timer 90"); cmd.Type != TypeTimer || cmd.Mode != "set" || cmd.Seconds != 90 {
		t.Errorf("Parse(timer 90) = %+v", cmd)
	}
	if cmd := Parse("clock dance"); cmd.Type != TypeInvalid {
		t.Errorf("Parse(clock dance).Type = %v", cmd.Type)
	}
}

func TestParse_PatchAndDelete(t *testing.T) {
	cmd := Parse("patch 12 rgbpar 0.101 Stage Left")
	if cmd.Type != TypePatch || cmd.Number != 12 || cmd.FixtureType != "rgbpar" || cmd.Universe != 0 || cmd.Address != 101 {
		t.Errorf("Parse(patch ...) = %+v", cmd)
	}
	if cmd.Name != "stage left" {
		t.Errorf("Name = %q", cmd.Name)
	}
	if cmd := Parse("patch 12"); cmd.Type != TypeInvalid {
		t.Errorf("Parse(patch 12).Type = %v", cmd.Type)
	}

	cmd = Parse("del fixture 3")
	if cmd.Type != TypeDelete || cmd.Object != "fixture" || cmd.Number != 3 {
		t.Errorf("Parse(del fixture 3) = %+v", cmd)
	}
	cmd = Parse("delete preset 2.4")
	if cmd.Type != TypeDelete || cmd.Object != "preset" || cmd.Coord.String() != "2.4" {
		t.Errorf("Parse(delete preset 2.4) = %+v", cmd)
	}
}

func TestParse_Conditional(t *testing.T) {
	cmd := Parse("go if not blackout")
	if cmd.Type != TypeConditional {
		t.Fatalf("Type = %v, want conditional", cmd.Type)
	}
	if cmd.Inner.Type != TypeGo || cmd.Condition.Kind != "blackout" || !cmd.Condition.Negate {
		t.Errorf("conditional = %+v / %+v", cmd.Inner, cmd.Condition)
	}

	cmd = Parse("red at 255 if fs color")
	if cmd.Condition.Kind != "featureset" || cmd.Condition.Arg != "color" || cmd.Inner.Type != TypeSetValue {
		t.Errorf("conditional = %+v / %+v", cmd.Inner, cmd.Condition)
	}

	for _, in := range []string{"go if moon", "nonsense words if selection", "go if fs sparkle"} {
		if got := Parse(in); got.Type != TypeInvalid {
			t.Errorf("Parse(%q).Type = %v, want invalid", in, got.Type)
		}
	}
}

func TestParse_NeverPanics(t *testing.T) {
	inputs := []string{
		"at", "thru", "1 thru", "+", "1+", ".", "..", "1..2", "record record", "group", "group x mode a",
		"if", "go if", "video", "/", "a/b c/d", "encoder", "speed video1 fast", "99999999999999999999",
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Parse(%q) panicked: %v", in, r)
				}
			}()
			Parse(in)
		}()
	}
}

func TestRuleNames_Order(t *testing.T) {
	names := RuleNames()
	if names[0] != "system" {
		t.Errorf("first rule = %q, want system", names[0])
	}
	index := map[string]int{}
	for i, n := range names {
		index[n] = i
	}
	if index["record"] > index["feature-set"] || index["select-fixture"] > index["set-value"] || index["set-value"] > index["recall-dot"] {
		t.Errorf("rule order is wrong: %v", names)
	}
}
