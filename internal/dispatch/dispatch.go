// Package dispatch routes parsed console commands to the capabilities the
// host application provides.
package dispatch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bbernstein/lacylights-console/internal/command"
	"github.com/bbernstein/lacylights-console/internal/fixture"
)

// Value limits applied before capabilities are called.
const (
	MinChannelValue = 0
	MaxChannelValue = 255
	MaxEncoderDelta = 255
	MaxFadeSeconds  = 3600.0
	MinVideoSpeed   = 0.1
	MaxVideoSpeed   = 10.0
	MaxPriority     = 100
	MaxPercent      = 100
	MaxMaster       = 255
)

// Result is the outcome of one dispatched command.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func ok(format string, args ...interface{}) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...interface{}) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

func unavailable(capability string) Result {
	return fail("%s is not available", capability)
}

// done turns a capability error into a failed result.
func done(err error, format string, args ...interface{}) Result {
	if err != nil {
		return fail("%s", err.Error())
	}
	return ok(format, args...)
}

// Execute runs cmd against the capability table. It never panics: errors and
// panics raised by capabilities become failed results.
func Execute(cmd command.Command, a *Actions) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = fail("Command failed: %v", r)
		}
	}()
	if a == nil {
		a = &Actions{}
	}

	switch cmd.Type {
	case command.TypeUnknown, command.TypeInvalid:
		if cmd.Message != "" {
			return fail("%s", cmd.Message)
		}
		return fail("Unknown command: %s", cmd.Raw)

	case command.TypeClear:
		if a.Clear == nil {
			return unavailable("Clear")
		}
		return done(a.Clear(), "Programmer cleared")
	case command.TypeBlackout:
		if a.Blackout == nil {
			return unavailable("Blackout")
		}
		on, err := a.Blackout()
		if err != nil {
			return fail("%s", err.Error())
		}
		if on {
			return ok("Blackout on")
		}
		return ok("Blackout off")
	case command.TypeLocate:
		if a.Locate == nil {
			return unavailable("Locate")
		}
		return done(a.Locate(), "Located selected fixtures")
	case command.TypeUndo:
		if a.Undo == nil {
			return unavailable("Undo")
		}
		return done(a.Undo(), "Undone")
	case command.TypeRedo:
		if a.Redo == nil {
			return unavailable("Redo")
		}
		return done(a.Redo(), "Redone")
	case command.TypeHelp:
		if a.Help == nil {
			return unavailable("Help")
		}
		return ok("%s", a.Help())
	case command.TypeMaster:
		if a.SetMaster == nil {
			return unavailable("Master")
		}
		v := clampInt(cmd.Value, 0, MaxMaster)
		return done(a.SetMaster(v), "Master set to %d", v)

	case command.TypeConditional:
		return executeConditional(cmd, a)
	case command.TypeClock:
		if a.Clock == nil {
			return unavailable("Clock")
		}
		return done(a.Clock(cmd.Mode), "Clock %s", cmd.Mode)
	case command.TypeTimer:
		if a.Timer == nil {
			return unavailable("Timer")
		}
		if cmd.Mode == "set" {
			return done(a.Timer(cmd.Mode, cmd.Seconds), "Timer set to %s", seconds(cmd.Seconds))
		}
		return done(a.Timer(cmd.Mode, 0), "Timer %s", cmd.Mode)

	case command.TypeSelectFixture, command.TypeSelectRange, command.TypeSelectSet:
		ids, res := selectFixtures(cmd.Selection, a)
		if !res.Success {
			return res
		}
		return ok("Selected %s", describeSelection(ids))
	case command.TypeSetValue, command.TypeSetChannel:
		return executeSetValue(cmd, a)
	case command.TypeEncoder:
		return executeEncoder(cmd, a)

	case command.TypeFeatureSet:
		return switchFeatureSet(cmd.Name, a)
	case command.TypeRecallDot:
		return recallPreset(*cmd.Coord, a)
	case command.TypeRecordDot:
		return recordPreset(*cmd.Coord, cmd.Name, a)
	case command.TypeUpdateDot:
		return updatePreset(*cmd.Coord, a)
	case command.TypeRecallObject:
		return executeRecallObject(cmd, a)
	case command.TypeRecordObject:
		return executeRecordObject(cmd, a)
	case command.TypeUpdateObject:
		return executeUpdateObject(cmd, a)
	case command.TypeRecord:
		return executeRecord(cmd, a)
	case command.TypeUpdate:
		if a.UpdateCue == nil {
			return unavailable("Update cue")
		}
		n, err := a.UpdateCue(0)
		return done(err, "Updated cue %d", n)

	case command.TypeGo, command.TypeGoto:
		if a.GoCue == nil {
			return unavailable("Go")
		}
		n, err := a.GoCue(cmd.Number)
		return done(err, "Cue %d", n)
	case command.TypeCueTime:
		if a.SetCueTime == nil {
			return unavailable("Cue time")
		}
		secs := clampFloat(cmd.Seconds, 0, MaxFadeSeconds)
		return done(a.SetCueTime(cmd.Number, secs), "Cue %d time %s", cmd.Number, seconds(secs))
	case command.TypeTime:
		if a.SetFadeTime == nil {
			return unavailable("Fade time")
		}
		secs := clampFloat(cmd.Seconds, 0, MaxFadeSeconds)
		return done(a.SetFadeTime(secs), "Fade time %s", seconds(secs))
	case command.TypeExecutor:
		if a.Executor == nil {
			return unavailable("Executor")
		}
		return done(a.Executor(cmd.Number, cmd.Mode), "Executor %d %s", cmd.Number, cmd.Mode)
	case command.TypeRecordExecutor:
		if a.RecordExecutor == nil {
			return unavailable("Record executor")
		}
		return done(a.RecordExecutor(cmd.Number, cmd.Name), "Recorded executor %d", cmd.Number)

	case command.TypeGroupMode, command.TypeGroupPriority, command.TypeGroupIntensity,
		command.TypeGroupActive, command.TypeGroupSet, command.TypeGroupPreset,
		command.TypeRecordGroupExecutor:
		return executeGroup(cmd, a)

	case command.TypeFan:
		if a.Fan == nil {
			return unavailable("Fan")
		}
		return done(a.Fan(cmd.Mode, cmd.Axis), "Fan %s", cmd.Mode)
	case command.TypeHighlight:
		if a.Highlight == nil {
			return unavailable("Highlight")
		}
		on, err := a.Highlight(cmd.Mode)
		if err != nil {
			return fail("%s", err.Error())
		}
		if on {
			return ok("Highlight on")
		}
		return ok("Highlight off")

	case command.TypeOpenWindow:
		if a.OpenWindow == nil {
			return unavailable("Open window")
		}
		return windowResult(a.OpenWindow(cmd.Number), "Opened")
	case command.TypeCloseWindow:
		if a.CloseWindow == nil {
			return unavailable("Close window")
		}
		return windowResult(a.CloseWindow(cmd.Number), "Closed")
	case command.TypeWindowRoute:
		if a.RouteWindow == nil {
			return unavailable("Window routing")
		}
		return done(a.RouteWindow(*cmd.Source, *cmd.Dest), "Routed %s to %s", windowRef(*cmd.Source), windowRef(*cmd.Dest))

	case command.TypeVideoPlay, command.TypeVideoPause, command.TypeVideoStop,
		command.TypeVideoRestart, command.TypeVideoLoop, command.TypeVideoSpeed:
		return executeVideo(cmd, a)
	case command.TypeNDI:
		if a.RouteNDI == nil {
			return unavailable("NDI routing")
		}
		return done(a.RouteNDI(cmd.Name, cmd.Output), "Routed NDI %s to output %d", cmd.Name, cmd.Output)

	case command.TypePatch:
		if a.PatchFixture == nil {
			return unavailable("Patch")
		}
		err := a.PatchFixture(cmd.Number, cmd.FixtureType, cmd.Universe, cmd.Address, cmd.Name)
		return done(err, "Patched fixture %d (%s) at %d.%d", cmd.Number, cmd.FixtureType, cmd.Universe, cmd.Address)
	case command.TypeDelete:
		return executeDelete(cmd, a)
	}

	return fail("Unsupported command: %s", cmd.Type)
}

func executeConditional(cmd command.Command, a *Actions) Result {
	if cmd.Condition == nil || cmd.Inner == nil {
		return fail("Invalid conditional command")
	}
	if a.EvaluateCondition == nil {
		return unavailable("Conditions")
	}
	met, err := a.EvaluateCondition(*cmd.Condition)
	if err != nil {
		return fail("%s", err.Error())
	}
	if !met {
		return ok("Skipped: condition not met")
	}
	return Execute(*cmd.Inner, a)
}

// resolveFixtures maps fixture numbers onto the ids the host knows. An id
// matches N when it is "N", "fxN", "fixtureN" or ends in the numeral N.
// Numbers without a matching id are skipped.
func resolveFixtures(numbers []int, ids []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, n := range numbers {
		id, found := matchFixture(n, ids)
		if !found || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// numbersInRange lists, in ascending order, the fixture numbers of the known
// ids that fall inside the range. Cost follows the patch size, not the width
// of the range.
func numbersInRange(sel command.Selection, ids []string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, id := range ids {
		n, ok := trailingNumber(id)
		if !ok || seen[n] || !sel.Contains(n) {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func matchFixture(n int, ids []string) (string, bool) {
	num := strconv.Itoa(n)
	for _, spelling := range []string{num, "fx" + num, "fixture" + num} {
		for _, id := range ids {
			if strings.EqualFold(id, spelling) {
				return id, true
			}
		}
	}
	for _, id := range ids {
		if trailing, ok := trailingNumber(id); ok && trailing == n {
			return id, true
		}
	}
	return "", false
}

func trailingNumber(id string) (int, bool) {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == len(id) {
		return 0, false
	}
	n, err := strconv.Atoi(id[i:])
	return n, err == nil
}

func selectFixtures(sel *command.Selection, a *Actions) ([]string, Result) {
	if sel == nil {
		return nil, fail("No fixtures specified")
	}
	if a.FixtureIDs == nil {
		return nil, unavailable("Fixture lookup")
	}
	if a.SetSelectedFixtures == nil {
		return nil, unavailable("Selection")
	}
	known := a.FixtureIDs()
	numbers := sel.Numbers
	if sel.IsRange {
		numbers = numbersInRange(*sel, known)
	}
	ids := resolveFixtures(numbers, known)
	if len(ids) == 0 {
		return nil, fail("No fixtures found")
	}
	if err := a.SetSelectedFixtures(ids); err != nil {
		return nil, fail("%s", err.Error())
	}
	return ids, ok("")
}

func describeSelection(ids []string) string {
	if len(ids) == 1 {
		return "1 fixture"
	}
	return fmt.Sprintf("%d fixtures", len(ids))
}

// matchChannel finds the available channel a typed name refers to. An exact
// match wins over a substring match; both ignore case.
func matchChannel(name string, available []string) (string, bool) {
	want := strings.ToLower(name)
	for _, ch := range available {
		if strings.ToLower(ch) == want {
			return ch, true
		}
	}
	for _, ch := range available {
		if strings.Contains(strings.ToLower(ch), want) {
			return ch, true
		}
	}
	return "", false
}

func executeSetValue(cmd command.Command, a *Actions) Result {
	if cmd.Selection != nil {
		if _, res := selectFixtures(cmd.Selection, a); !res.Success {
			return res
		}
	}
	if a.SelectedFixtures == nil || a.AvailableChannels == nil || a.SetChannelValue == nil {
		return unavailable("Channel control")
	}
	if len(a.SelectedFixtures()) == 0 {
		return fail("No fixtures selected")
	}
	channel, found := matchChannel(cmd.Channel, a.AvailableChannels())
	if !found {
		return fail("Channel %s not found on selected fixtures", cmd.Channel)
	}
	v := clampInt(cmd.Value, MinChannelValue, MaxChannelValue)
	return done(a.SetChannelValue(channel, v), "%s at %d", channel, v)
}

// executeEncoder turns encoder N into the Nth channel of the active feature
// set (or of all available channels when none is active).
func executeEncoder(cmd command.Command, a *Actions) Result {
	if a.SetEncoderValue == nil || a.AvailableChannels == nil {
		return unavailable("Encoders")
	}
	if a.SelectedFixtures != nil && len(a.SelectedFixtures()) == 0 {
		return fail("No fixtures selected")
	}
	channels := a.AvailableChannels()
	if a.ActiveFeatureSet != nil {
		if fs := a.ActiveFeatureSet(); fs != "" {
			var filtered []string
			for _, ch := range channels {
				if fixture.FeatureSetForChannel(ch) == fs {
					filtered = append(filtered, ch)
				}
			}
			channels = filtered
		}
	}
	if cmd.Number < 1 || cmd.Number > len(channels) {
		return fail("Encoder %d has no channel", cmd.Number)
	}
	channel := channels[cmd.Number-1]
	delta := clampInt(cmd.Value, -MaxEncoderDelta, MaxEncoderDelta)
	v, err := a.SetEncoderValue(channel, delta)
	return done(err, "%s at %d", channel, v)
}

func switchFeatureSet(name string, a *Actions) Result {
	if !fixture.IsFeatureSet(name) {
		return fail("Unknown feature set: %s", name)
	}
	if a.SetFeatureSet == nil {
		return unavailable("Feature sets")
	}
	if a.ActiveFeatureSet != nil && a.ActiveFeatureSet() == name {
		return ok("Feature set %s", name)
	}
	if err := a.SetFeatureSet(name); err != nil {
		return fail("%s", err.Error())
	}
	return ok("Feature set %s", name)
}

func recallPreset(coord command.Coordinate, a *Actions) Result {
	fs := coord.FeatureSetName()
	if res := switchFeatureSet(fs, a); !res.Success {
		return res
	}
	if a.RecallPreset == nil {
		return unavailable("Preset recall")
	}
	found, err := a.RecallPreset(fs, coord.Index())
	if err != nil {
		return fail("%s", err.Error())
	}
	if !found {
		return fail("Preset %s is empty", coord)
	}
	return ok("Recalled %s preset %d", fs, coord.Preset)
}

func recordPreset(coord command.Coordinate, name string, a *Actions) Result {
	fs := coord.FeatureSetName()
	if res := switchFeatureSet(fs, a); !res.Success {
		return res
	}
	if a.RecordPreset == nil {
		return unavailable("Preset record")
	}
	return done(a.RecordPreset(fs, coord.Index(), name), "Recorded %s preset %d", fs, coord.Preset)
}

func updatePreset(coord command.Coordinate, a *Actions) Result {
	fs := coord.FeatureSetName()
	if res := switchFeatureSet(fs, a); !res.Success {
		return res
	}
	if a.UpdatePreset == nil {
		return unavailable("Preset update")
	}
	return done(a.UpdatePreset(fs, coord.Index()), "Updated %s preset %d", fs, coord.Preset)
}

// presetCoord resolves "preset N" against the active feature set.
func presetCoord(cmd command.Command, a *Actions) (command.Coordinate, Result) {
	if cmd.Coord != nil {
		return *cmd.Coord, ok("")
	}
	if a.ActiveFeatureSet == nil {
		return command.Coordinate{}, unavailable("Feature sets")
	}
	fs := a.ActiveFeatureSet()
	if fs == "" {
		return command.Coordinate{}, fail("No feature set active: use N.P to address a preset")
	}
	num, _ := fixture.FeatureSetNumber(fs)
	coord, valid := command.NewCoordinate(num, cmd.Number)
	if !valid {
		return command.Coordinate{}, fail("Preset %d is out of range (1-%d)", cmd.Number, fixture.PresetsPerFeatureSet)
	}
	return coord, ok("")
}

func executeRecallObject(cmd command.Command, a *Actions) Result {
	switch cmd.Object {
	case "cue":
		if a.RecallCue == nil {
			return unavailable("Cue recall")
		}
		return done(a.RecallCue(cmd.Number), "Recalled cue %d", cmd.Number)
	case "group":
		if a.RecallGroup == nil {
			return unavailable("Group recall")
		}
		return done(a.RecallGroup(cmd.Number), "Selected group %d", cmd.Number)
	case "view":
		if a.RecallView == nil {
			return unavailable("Views")
		}
		return done(a.RecallView(cmd.Number), "Recalled view %d", cmd.Number)
	}
	coord, res := presetCoord(cmd, a)
	if !res.Success {
		return res
	}
	return recallPreset(coord, a)
}

func executeRecordObject(cmd command.Command, a *Actions) Result {
	switch cmd.Object {
	case "cue":
		if a.RecordCue == nil {
			return unavailable("Cue record")
		}
		n, err := a.RecordCue(cmd.Number, cmd.Name)
		return done(err, "Recorded cue %d", n)
	case "group":
		if a.RecordGroup == nil {
			return unavailable("Group record")
		}
		return done(a.RecordGroup(cmd.Number, cmd.Name), "Recorded group %d", cmd.Number)
	case "view":
		if a.RecordView == nil {
			return unavailable("Views")
		}
		return done(a.RecordView(cmd.Number, cmd.Name), "Recorded view %d", cmd.Number)
	}
	coord, res := presetCoord(cmd, a)
	if !res.Success {
		return res
	}
	return recordPreset(coord, cmd.Name, a)
}

func executeUpdateObject(cmd command.Command, a *Actions) Result {
	switch cmd.Object {
	case "cue":
		if a.UpdateCue == nil {
			return unavailable("Update cue")
		}
		n, err := a.UpdateCue(cmd.Number)
		return done(err, "Updated cue %d", n)
	case "group":
		if a.UpdateGroup == nil {
			return unavailable("Group update")
		}
		return done(a.UpdateGroup(cmd.Number), "Updated group %d", cmd.Number)
	case "view":
		if a.RecordView == nil {
			return unavailable("Views")
		}
		return done(a.RecordView(cmd.Number, ""), "Updated view %d", cmd.Number)
	}
	coord, res := presetCoord(cmd, a)
	if !res.Success {
		return res
	}
	return updatePreset(coord, a)
}

// executeRecord handles a bare "record [name]". With a feature set active and
// fixtures selected the operator must name a preset slot; otherwise the
// programmer is recorded into the next free cue.
func executeRecord(cmd command.Command, a *Actions) Result {
	if a.ActiveFeatureSet != nil && a.SelectedFixtures != nil {
		if fs := a.ActiveFeatureSet(); fs != "" && len(a.SelectedFixtures()) > 0 {
			num, _ := fixture.FeatureSetNumber(fs)
			return fail("Feature set %s is active: record a preset with record %d.N", fs, num)
		}
	}
	if a.RecordCue == nil {
		return unavailable("Cue record")
	}
	n, err := a.RecordCue(0, cmd.Name)
	return done(err, "Recorded cue %d", n)
}

func executeGroup(cmd command.Command, a *Actions) Result {
	g := cmd.Number
	switch cmd.Type {
	case command.TypeGroupMode:
		if a.SetGroupMode == nil {
			return unavailable("Group modes")
		}
		return done(a.SetGroupMode(g, cmd.Mode), "Group %d mode %s", g, cmd.Mode)
	case command.TypeGroupPriority:
		if a.SetGroupPriority == nil {
			return unavailable("Group priority")
		}
		p := clampInt(cmd.Value, 0, MaxPriority)
		return done(a.SetGroupPriority(g, p), "Group %d priority %d", g, p)
	case command.TypeGroupIntensity:
		if a.SetGroupIntensity == nil {
			return unavailable("Group intensity")
		}
		pct := clampInt(cmd.Value, 0, MaxPercent)
		return done(a.SetGroupIntensity(g, pct), "Group %d intensity %d%%", g, pct)
	case command.TypeGroupActive:
		if a.SetGroupActive == nil {
			return unavailable("Group activation")
		}
		return done(a.SetGroupActive(g, cmd.Mode == "on"), "Group %d %s", g, cmd.Mode)
	case command.TypeGroupSet:
		if a.SetGroupValue == nil {
			return unavailable("Group values")
		}
		v := clampInt(cmd.Value, MinChannelValue, MaxChannelValue)
		return done(a.SetGroupValue(g, cmd.Channel, v), "Group %d %s at %d", g, cmd.Channel, v)
	case command.TypeGroupPreset:
		if a.ApplyPresetToGroup == nil {
			return unavailable("Group presets")
		}
		coord := *cmd.Coord
		return done(a.ApplyPresetToGroup(g, coord.FeatureSetName(), coord.Index()), "Group %d preset %s", g, coord)
	case command.TypeRecordGroupExecutor:
		if a.RecordGroupFromExecutor == nil {
			return unavailable("Group record")
		}
		return done(a.RecordGroupFromExecutor(g, cmd.Executor, cmd.Name), "Recorded group %d from executor %d", g, cmd.Executor)
	}
	return fail("Unsupported command: %s", cmd.Type)
}

func executeVideo(cmd command.Command, a *Actions) Result {
	var (
		res  VideoResult
		have bool
	)
	switch cmd.Type {
	case command.TypeVideoPlay:
		if have = a.VideoPlay != nil; have {
			res = a.VideoPlay(cmd.Input, cmd.Output)
		}
	case command.TypeVideoPause:
		if have = a.VideoPause != nil; have {
			res = a.VideoPause(cmd.Input)
		}
	case command.TypeVideoStop:
		if have = a.VideoStop != nil; have {
			res = a.VideoStop(cmd.Input)
		}
	case command.TypeVideoRestart:
		if have = a.VideoRestart != nil; have {
			res = a.VideoRestart(cmd.Input)
		}
	case command.TypeVideoLoop:
		if have = a.VideoLoop != nil; have {
			res = a.VideoLoop(cmd.Input, cmd.Mode == "on")
		}
	case command.TypeVideoSpeed:
		if have = a.VideoSpeed != nil; have {
			res = a.VideoSpeed(cmd.Input, clampFloat(cmd.Speed, MinVideoSpeed, MaxVideoSpeed))
		}
	}
	if !have {
		return unavailable("Video control")
	}
	return Result{Success: res.Success, Message: res.Message}
}

func windowResult(res WindowResult, verb string) Result {
	if !res.Success {
		if res.Message == "" {
			return fail("%s window failed", verb)
		}
		return fail("%s", res.Message)
	}
	if res.Message != "" {
		return ok("%s", res.Message)
	}
	return ok("%s %s window", verb, res.WindowName)
}

func windowRef(w command.WindowRef) string {
	if w.Object == "" {
		return w.Name
	}
	return w.Name + "/" + w.Object
}

func executeDelete(cmd command.Command, a *Actions) Result {
	var (
		msg string
		err error
	)
	switch cmd.Object {
	case "fixture":
		if a.DeleteFixture == nil {
			return unavailable("Fixture delete")
		}
		msg, err = a.DeleteFixture(cmd.Number)
	case "group":
		if a.DeleteGroup == nil {
			return unavailable("Group delete")
		}
		msg, err = a.DeleteGroup(cmd.Number)
	case "cue":
		if a.DeleteCue == nil {
			return unavailable("Cue delete")
		}
		msg, err = a.DeleteCue(cmd.Number)
	case "preset":
		if a.DeletePreset == nil {
			return unavailable("Preset delete")
		}
		msg, err = a.DeletePreset(cmd.Coord.FeatureSetName(), cmd.Coord.Index())
	default:
		return fail("Cannot delete %s", cmd.Object)
	}
	if err != nil {
		return fail("%s", err.Error())
	}
	return ok("%s", msg)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func seconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64) + "s"
}
