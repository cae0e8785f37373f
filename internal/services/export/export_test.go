package export

import (
	"strings"
	"testing"
	"time"

	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/console"
	"github.com/bbernstein/lacylights-console/internal/services/grouphandle"
)

type staticSource struct {
	show console.Show
}

func (s staticSource) Show() console.Show { return s.show }

func testShow() console.Show {
	lib := fixture.NewLibrary()
	dimmer, _ := lib.Lookup("dimmer")
	ledbar := &fixture.Type{Name: "ledbar", Channels: []fixture.Channel{{Name: "Red", Offset: 0}, {Name: "Green", Offset: 1}}}
	return console.Show{
		Fixtures: []*fixture.Fixture{
			{ID: fixture.IDFor(1), Number: 1, Name: "Front", Type: dimmer, Universe: 0, Address: 1},
			{ID: fixture.IDFor(2), Number: 2, Type: ledbar, Universe: 0, Address: 10},
			{ID: fixture.IDFor(3), Number: 3, Type: dimmer, Universe: 1, Address: 1},
		},
		Presets: []*console.Preset{
			{FeatureSet: "color", Index: 0, Name: "Red", Values: console.Snapshot{"fx2": {"red": 255}}},
		},
		Cues: []*console.Cue{
			{Number: 1, Name: "Opening", FadeTime: 2.5, Values: console.Snapshot{"fx1": {"dimmer": 200}}},
		},
		Groups: []grouphandle.Handle{
			{Number: 1, Mode: grouphandle.ModeScaling, Members: []string{"fx1", "fx3"}, Values: fixture.Values{}, Intensity: 50, Active: true, Priority: 50},
		},
		Executors: []*console.Executor{
			{Number: 4, Values: console.Snapshot{"fx3": {"dimmer": 90}}, Active: true},
		},
	}
}

func TestFromShow(t *testing.T) {
	exported, stats := FromShow(testShow())

	if exported.Version != FormatVersion {
		t.Errorf("Expected version %s, got %s", FormatVersion, exported.Version)
	}
	if stats.FixturesCount != 3 || stats.FixtureTypesCount != 2 || stats.PresetsCount != 1 ||
		stats.CuesCount != 1 || stats.GroupsCount != 1 || stats.ExecutorsCount != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	// Types are listed once each, sorted by name.
	if exported.FixtureTypes[0].Name != "dimmer" || !exported.FixtureTypes[0].IsBuiltIn {
		t.Errorf("Unexpected first type: %+v", exported.FixtureTypes[0])
	}
	if exported.FixtureTypes[1].Name != "ledbar" || exported.FixtureTypes[1].IsBuiltIn {
		t.Errorf("Unexpected second type: %+v", exported.FixtureTypes[1])
	}
	if len(exported.FixtureTypes[1].Channels) != 2 {
		t.Errorf("Expected ledbar channels to be exported")
	}

	if exported.Presets[0].Slot != 1 {
		t.Errorf("Expected preset slot 1, got %d", exported.Presets[0].Slot)
	}
	if exported.Groups[0].Mode != "SCALING" {
		t.Errorf("Expected SCALING mode, got %s", exported.Groups[0].Mode)
	}
}

func TestFromShow_CopiesValues(t *testing.T) {
	show := testShow()
	exported, _ := FromShow(show)

	exported.Cues[0].Values["fx1"]["dimmer"] = 0
	if show.Cues[0].Values["fx1"]["dimmer"] != 200 {
		t.Error("Export should not share cue values with the show")
	}
}

func TestFromShow_EmptyShowHasEmptyLists(t *testing.T) {
	exported, _ := FromShow(console.Show{})
	out, err := exported.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	for _, field := range []string{`"fixtures": []`, `"cues": []`, `"groups": []`} {
		if !strings.Contains(out, field) {
			t.Errorf("Expected %s in %s", field, out)
		}
	}
}

func TestService_ExportShow(t *testing.T) {
	svc := NewService(staticSource{show: testShow()}, "1.2.3")
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	desc := "tech rehearsal"
	exported, stats := svc.ExportShow(&desc)
	if stats.FixturesCount != 3 {
		t.Errorf("Expected 3 fixtures, got %d", stats.FixturesCount)
	}
	if exported.Metadata == nil {
		t.Fatal("Expected metadata")
	}
	if exported.Metadata.ExportedAt != "2024-03-01T12:00:00Z" {
		t.Errorf("Unexpected timestamp %s", exported.Metadata.ExportedAt)
	}
	if exported.Metadata.LacyLightsVersion != "1.2.3" {
		t.Errorf("Unexpected version %s", exported.Metadata.LacyLightsVersion)
	}
	if got := exported.GetDescription(); got == nil || *got != desc {
		t.Errorf("Unexpected description %v", got)
	}
}

func TestParseExportedShow(t *testing.T) {
	exported, _ := FromShow(testShow())
	content, err := exported.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	parsed, err := ParseExportedShow(content)
	if err != nil {
		t.Fatalf("ParseExportedShow failed: %v", err)
	}
	if len(parsed.Fixtures) != 3 || parsed.Cues[0].Values["fx1"]["dimmer"] != 200 {
		t.Errorf("Unexpected parsed show: %+v", parsed)
	}
	if parsed.GetDescription() != nil {
		t.Error("Expected no description")
	}

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{not json"},
		{"missing version", `{"fixtures": []}`},
		{"wrong shape", `{"version": "1.0", "fixtures": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseExportedShow(tt.content); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
