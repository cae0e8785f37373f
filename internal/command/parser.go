package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bbernstein/lacylights-console/internal/fixture"
)

// WindowNames are the window names accepted by open/close and routing.
var WindowNames = []string{
	"programmer", "fixtures", "presets", "cues", "groups",
	"executors", "output", "video", "clock", "command",
}

// reserved words can never be the channel of a bare "CHANNEL VALUE".
var reserved = map[string]bool{
	"cue": true, "preset": true, "group": true, "view": true, "time": true,
	"fan": true, "encoder": true, "highlight": true, "open": true, "close": true,
	"window": true, "fixture": true, "executor": true, "master": true,
	"clock": true, "timer": true, "play": true, "pause": true, "stop": true,
	"restart": true, "loop": true, "speed": true, "go": true, "goto": true,
	"record": true, "update": true, "delete": true, "patch": true, "ndi": true,
	"at": true, "thru": true,
}

func init() {
	for _, fs := range fixture.FeatureSets {
		reserved[fs] = true
	}
	for _, w := range WindowNames {
		reserved[w] = true
	}
}

func isWindowName(name string) bool {
	for _, w := range WindowNames {
		if w == name {
			return true
		}
	}
	return false
}

// rule is one entry in the ordered classification chain. build returns false
// to let the next rule try.
type rule struct {
	name    string
	pattern *regexp.Regexp
	build   func(m []string) (Command, bool)
}

var rules []rule

func init() {
	fsAlt := strings.Join(fixture.FeatureSets, "|")

	rules = []rule{
		// 1. system keywords
		{"system", regexp.MustCompile(`^(clear|blackout|locate|undo|redo|help)$`), buildSystem},

		// 2. prefix-routed forms
		{"conditional", regexp.MustCompile(`^(.+?)\s+if\s+(.+)$`), buildConditional},
		{"clock", regexp.MustCompile(`^clock(?:\s+(.*))?$`), buildClock},
		{"timer", regexp.MustCompile(`^timer(?:\s+(.*))?$`), buildTimer},
		{"master", regexp.MustCompile(`^master(?:\s+(.*))?$`), buildMaster},
		{"group-config", regexp.MustCompile(`^group\s+(\d+)\s+(mode|priority|intensity|on|off|set)(?:\s+(.*))?$`), buildGroupConfig},
		{"time-cue", regexp.MustCompile(`^time\s+(\S+)\s+cue\s+(\S+)$`), buildTimeCue},
		{"cue-time", regexp.MustCompile(`^cue\s+(\S+)\s+time\s+(\S+)$`), buildCueTime},
		{"go", regexp.MustCompile(`^(go|goto)(?:\s+(?:cue\s+)?(.*))?$`), buildGo},
		{"executor", regexp.MustCompile(`^executor(?:\s+(.*))?$`), buildExecutor},
		{"ndi", regexp.MustCompile(`^ndi(?:\s+(.*))?$`), buildNDI},
		{"patch", regexp.MustCompile(`^patch(?:\s+(.*))?$`), buildPatch},
		{"delete", regexp.MustCompile(`^delete(?:\s+(.*))?$`), buildDelete},
		{"record", regexp.MustCompile(`^(record|update)(?:\s+(.*))?$`), buildRecord},

		// 3. feature set switch
		{"feature-set", regexp.MustCompile(`^(` + fsAlt + `)$`), buildFeatureSet},

		// 4. window routing
		{"window-route", regexp.MustCompile(`^([a-z]+)(?:/(\S+))?\s+([a-z]+)(?:/(\S+))?$`), buildWindowRoute},

		// 5. selection
		{"select-fixture", regexp.MustCompile(`^(?:fixture\s*)?(\d+)$`), buildSelectFixture},
		{"select-range", regexp.MustCompile(`^(?:fixture\s*)?(\d+)\s+thru\s+(?:fixture\s*)?(\d+)$`), buildSelectRange},
		{"select-set", regexp.MustCompile(`^(?:fixture\s*)?(\d+(?:\+\d+)+)$`), buildSelectSet},

		// 6. values
		{"set-value", regexp.MustCompile(`^(?:(.+?)\s+)?at\s+(\S+)$`), buildSetValue},
		{"set-channel", regexp.MustCompile(`^([a-z][a-z_]*(?:\s+[a-z][a-z_]*)*)\s+([+-]?\d+)$`), buildSetChannel},

		// 7. dot notation
		{"recall-dot", regexp.MustCompile(`^(\d+)\.(\d+)$`), buildRecallDot},
		{"group-preset", regexp.MustCompile(`^group\s+(\d+)\s+preset(?:\s+(.*))?$`), buildGroupPreset},

		// 8. named objects
		{"recall-object", regexp.MustCompile(`^(cue|preset|group|view|` + fsAlt + `)\s+(\S+)$`), buildRecallObject},

		// 9. auxiliary numeric commands
		{"time", regexp.MustCompile(`^time(?:\s+(.*))?$`), buildTime},
		{"fan", regexp.MustCompile(`^fan(?:\s+(.*))?$`), buildFan},
		{"encoder", regexp.MustCompile(`^encoder(?:\s+(.*))?$`), buildEncoder},
		{"highlight", regexp.MustCompile(`^highlight(?:\s+(.*))?$`), buildHighlight},

		// 10. windows and video transport
		{"window-open", regexp.MustCompile(`^(open|window)(?:\s+(.*))?$`), buildOpenWindow},
		{"window-close", regexp.MustCompile(`^close(?:\s+(.*))?$`), buildCloseWindow},
		{"video", regexp.MustCompile(`^(play|pause|stop|restart|loop|speed)(?:\s+(.*))?$`), buildVideo},
	}
}

// Parse classifies a line of operator input. It never panics; input that
// matches no rule yields TypeUnknown and input that matched a rule's prefix
// but carried bad arguments yields TypeInvalid.
func Parse(text string) Command {
	raw := strings.TrimSpace(text)
	normalized := Normalize(raw)
	if normalized == "" {
		return Command{Type: TypeUnknown, Raw: raw, Message: "Empty command"}
	}

	cmd := classify(normalized)
	cmd.Raw = raw
	return cmd
}

func classify(s string) Command {
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if cmd, ok := r.build(m); ok {
			return cmd
		}
	}
	return Command{Type: TypeUnknown, Message: fmt.Sprintf("Unknown command: %s", s)}
}

// RuleNames returns the classification rules in evaluation order.
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}

func invalid(format string, args ...interface{}) (Command, bool) {
	return Command{Type: TypeInvalid, Message: fmt.Sprintf(format, args...)}, true
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	return n, err == nil
}

func atof(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func parseCoordinate(s string) (Coordinate, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return Coordinate{}, false
	}
	fs, ok1 := atoi(parts[0])
	p, ok2 := atoi(parts[1])
	if !ok1 || !ok2 {
		return Coordinate{}, false
	}
	return NewCoordinate(fs, p)
}

var dotForm = regexp.MustCompile(`^\d+\.\d+$`)

func buildSystem(m []string) (Command, bool) {
	return Command{Type: Type(m[1])}, true
}

var conditionPattern = regexp.MustCompile(`^(not\s+)?(selection|blackout|clock|timer|(?:featureset|fs)\s+(\S+))$`)

func buildConditional(m []string) (Command, bool) {
	inner := classify(m[1])
	if inner.Failed() {
		return invalid("Invalid conditional command: %s", m[1])
	}
	c := conditionPattern.FindStringSubmatch(m[2])
	if c == nil {
		return invalid("Invalid condition: %s", m[2])
	}
	cond := &Condition{Kind: c[2], Negate: c[1] != ""}
	if c[3] != "" {
		if !fixture.IsFeatureSet(c[3]) {
			return invalid("Unknown feature set in condition: %s", c[3])
		}
		cond.Kind = "featureset"
		cond.Arg = c[3]
	}
	inner.Raw = m[1]
	return Command{Type: TypeConditional, Condition: cond, Inner: &inner}, true
}

func buildClock(m []string) (Command, bool) {
	switch m[1] {
	case "start", "stop", "reset":
		return Command{Type: TypeClock, Mode: m[1]}, true
	}
	return invalid("Clock requires start, stop or reset")
}

func buildTimer(m []string) (Command, bool) {
	switch m[1] {
	case "start", "stop", "reset":
		return Command{Type: TypeTimer, Mode: m[1]}, true
	}
	if secs, ok := atof(m[1]); ok && secs >= 0 {
		return Command{Type: TypeTimer, Mode: "set", Seconds: secs}, true
	}
	return invalid("Timer requires start, stop, reset or a duration in seconds")
}

func buildMaster(m []string) (Command, bool) {
	v, ok := atoi(m[1])
	if !ok {
		return invalid("Master requires a value from 0 to 255")
	}
	return Command{Type: TypeMaster, Value: v}, true
}

var groupSetArgs = regexp.MustCompile(`^([a-z][a-z_ ]*?)\s+([+-]?\d+)$`)

func buildGroupConfig(m []string) (Command, bool) {
	group, _ := atoi(m[1])
	arg := m[3]
	switch m[2] {
	case "mode":
		switch arg {
		case "inhibitive", "additive", "scaling", "subtractive":
			return Command{Type: TypeGroupMode, Number: group, Mode: strings.ToUpper(arg)}, true
		}
		return invalid("Unknown blending mode: %s", arg)
	case "priority":
		v, ok := atoi(arg)
		if !ok {
			return invalid("Group priority requires a number")
		}
		return Command{Type: TypeGroupPriority, Number: group, Value: v}, true
	case "intensity":
		v, ok := atoi(strings.TrimSuffix(arg, "%"))
		if !ok {
			return invalid("Group intensity requires a percentage")
		}
		return Command{Type: TypeGroupIntensity, Number: group, Value: v}, true
	case "on", "off":
		if arg != "" {
			return invalid("Group %s takes no arguments", m[2])
		}
		return Command{Type: TypeGroupActive, Number: group, Mode: m[2]}, true
	case "set":
		a := groupSetArgs.FindStringSubmatch(arg)
		if a == nil {
			return invalid("Group set requires a channel and a value")
		}
		v, _ := atoi(a[2])
		return Command{Type: TypeGroupSet, Number: group, Channel: fixture.ChannelKey(a[1]), Value: v}, true
	}
	return Command{}, false
}

func buildTimeCue(m []string) (Command, bool) {
	return cueTime(m[2], m[1])
}

func buildCueTime(m []string) (Command, bool) {
	return cueTime(m[1], m[2])
}

func cueTime(cue, seconds string) (Command, bool) {
	n, ok := atoi(cue)
	if !ok || n < 1 {
		return invalid("Invalid cue number: %s", cue)
	}
	secs, ok := atof(seconds)
	if !ok {
		return invalid("Invalid time: %s", seconds)
	}
	return Command{Type: TypeCueTime, Number: n, Seconds: secs}, true
}

func buildGo(m []string) (Command, bool) {
	t := TypeGo
	if m[1] == "goto" {
		t = TypeGoto
	}
	if m[2] == "" {
		if t == TypeGoto {
			return invalid("Goto requires a cue number")
		}
		return Command{Type: TypeGo}, true
	}
	n, ok := atoi(m[2])
	if !ok || n < 1 {
		return invalid("Invalid cue number: %s", m[2])
	}
	return Command{Type: t, Number: n}, true
}

func buildExecutor(m []string) (Command, bool) {
	fields := strings.Fields(m[1])
	if len(fields) == 0 || len(fields) > 2 {
		return invalid("Executor requires a number")
	}
	n, ok := atoi(fields[0])
	if !ok || n < 1 {
		return invalid("Invalid executor number: %s", fields[0])
	}
	mode := "go"
	if len(fields) == 2 {
		if fields[1] != "go" && fields[1] != "off" {
			return invalid("Executor action must be go or off")
		}
		mode = fields[1]
	}
	return Command{Type: TypeExecutor, Number: n, Mode: mode}, true
}

var ndiArgs = regexp.MustCompile(`^(\S+)\s+output\s*(\d+)$`)

func buildNDI(m []string) (Command, bool) {
	a := ndiArgs.FindStringSubmatch(m[1])
	if a == nil {
		return invalid("NDI routing requires a source and an output")
	}
	out, _ := atoi(a[2])
	return Command{Type: TypeNDI, Name: a[1], Output: out}, true
}

var patchArgs = regexp.MustCompile(`^(\d+)\s+(\S+)\s+(\d+)\.(\d+)(?:\s+(.+))?$`)

func buildPatch(m []string) (Command, bool) {
	a := patchArgs.FindStringSubmatch(m[1])
	if a == nil {
		return invalid("Patch requires: patch NUMBER TYPE UNIVERSE.ADDRESS [name]")
	}
	n, ok1 := atoi(a[1])
	u, ok2 := atoi(a[3])
	addr, ok3 := atoi(a[4])
	if !ok1 || !ok2 || !ok3 {
		return invalid("Patch number out of range: %s", m[1])
	}
	if n < 1 {
		return invalid("Fixture numbers start at 1")
	}
	return Command{Type: TypePatch, Number: n, FixtureType: a[2], Universe: u, Address: addr, Name: a[5]}, true
}

var (
	deleteObject = regexp.MustCompile(`^(fixture|group|cue)\s+(\d+)$`)
	deletePreset = regexp.MustCompile(`^preset\s+(\S+)$`)
)

func buildDelete(m []string) (Command, bool) {
	if a := deleteObject.FindStringSubmatch(m[1]); a != nil {
		n, _ := atoi(a[2])
		return Command{Type: TypeDelete, Object: a[1], Number: n}, true
	}
	if a := deletePreset.FindStringSubmatch(m[1]); a != nil {
		coord, ok := parseCoordinate(a[1])
		if !ok {
			return invalid("Invalid preset coordinate: %s", a[1])
		}
		return Command{Type: TypeDelete, Object: "preset", Coord: &coord}, true
	}
	return invalid("Delete requires fixture, group or cue N, or preset N.P")
}

var (
	recordGroupExecutor = regexp.MustCompile(`^group\s+(\d+)\s+executor\s+(\d+)(?:\s+(.+))?$`)
	recordExecutor      = regexp.MustCompile(`^executor\s+(\d+)(?:\s+(.+))?$`)
	recordDot           = regexp.MustCompile(`^(\d+\.\d+)(?:\s+(.+))?$`)
	recordNumber        = regexp.MustCompile(`^(\d+)(?:\s+(.+))?$`)
	recordObject        *regexp.Regexp
)

func init() {
	recordObject = regexp.MustCompile(`^(cue|preset|group|view|` + strings.Join(fixture.FeatureSets, "|") + `)\s+(\d+)(?:\s+(.+))?$`)
}

func buildRecord(m []string) (Command, bool) {
	update := m[1] == "update"
	args := m[2]

	if a := recordDot.FindStringSubmatch(args); a != nil {
		coord, ok := parseCoordinate(a[1])
		if !ok {
			return invalid("Invalid preset coordinate %s: feature sets are 1-8 and presets 1-12", a[1])
		}
		if update {
			if a[2] != "" {
				return invalid("Update takes no name")
			}
			return Command{Type: TypeUpdateDot, Coord: &coord}, true
		}
		return Command{Type: TypeRecordDot, Coord: &coord, Name: a[2]}, true
	}

	if !update {
		if a := recordGroupExecutor.FindStringSubmatch(args); a != nil {
			g, _ := atoi(a[1])
			e, _ := atoi(a[2])
			return Command{Type: TypeRecordGroupExecutor, Number: g, Executor: e, Name: a[3]}, true
		}
		if a := recordExecutor.FindStringSubmatch(args); a != nil {
			n, _ := atoi(a[1])
			return Command{Type: TypeRecordExecutor, Number: n, Name: a[2]}, true
		}
	}

	if a := recordObject.FindStringSubmatch(args); a != nil {
		return objectCommand(update, a[1], a[2], a[3])
	}

	if a := recordNumber.FindStringSubmatch(args); a != nil && !update {
		return objectCommand(false, "cue", a[1], a[2])
	}

	if args == "" {
		if update {
			return Command{Type: TypeUpdate}, true
		}
		return Command{Type: TypeRecord}, true
	}
	if update {
		return invalid("Unknown update target: %s", args)
	}
	first := strings.Fields(args)[0]
	if dotForm.MatchString(first) {
		return invalid("Invalid preset coordinate: %s", args)
	}
	if isRecordTarget(first) {
		return invalid("Invalid %s target: %s", first, args)
	}
	return Command{Type: TypeRecord, Name: args}, true
}

// isRecordTarget reports whether word names an object record can store.
// A cue name may not start with one.
func isRecordTarget(word string) bool {
	switch word {
	case "cue", "preset", "group", "view", "executor":
		return true
	}
	return fixture.IsFeatureSet(word)
}

func objectCommand(update bool, object, number, name string) (Command, bool) {
	n, ok := atoi(number)
	if !ok || n < 1 {
		return invalid("Invalid %s number: %s", object, number)
	}
	t := TypeRecordObject
	if update {
		t = TypeUpdateObject
	}
	cmd := Command{Type: t, Object: object, Number: n, Name: name}
	if fs, ok := fixture.FeatureSetNumber(object); ok {
		coord, ok := NewCoordinate(fs, n)
		if !ok {
			return invalid("Preset %d is out of range (1-%d)", n, fixture.PresetsPerFeatureSet)
		}
		cmd.Coord = &coord
	}
	if update && name != "" {
		return invalid("Update takes no name")
	}
	return cmd, true
}

func buildFeatureSet(m []string) (Command, bool) {
	return Command{Type: TypeFeatureSet, Name: m[1]}, true
}

func buildWindowRoute(m []string) (Command, bool) {
	if !isWindowName(m[1]) || !isWindowName(m[3]) {
		return Command{}, false
	}
	return Command{
		Type:   TypeWindowRoute,
		Source: &WindowRef{Name: m[1], Object: m[2]},
		Dest:   &WindowRef{Name: m[3], Object: m[4]},
	}, true
}

func buildSelectFixture(m []string) (Command, bool) {
	n, _ := atoi(m[1])
	return Command{Type: TypeSelectFixture, Selection: &Selection{Numbers: []int{n}}}, true
}

func buildSelectRange(m []string) (Command, bool) {
	from, ok1 := atoi(m[1])
	to, ok2 := atoi(m[2])
	if !ok1 || !ok2 {
		return invalid("Fixture number out of range: %s thru %s", m[1], m[2])
	}
	return Command{Type: TypeSelectRange, Selection: &Selection{From: from, To: to, IsRange: true}}, true
}

func buildSelectSet(m []string) (Command, bool) {
	parts := strings.Split(m[1], "+")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, _ := atoi(p)
		nums = append(nums, n)
	}
	return Command{Type: TypeSelectSet, Selection: &Selection{Numbers: nums}}, true
}

func buildSetValue(m []string) (Command, bool) {
	v, ok := atoi(m[2])
	if !ok {
		return invalid("Invalid value: %s", m[2])
	}
	target := m[1]
	cmd := Command{Type: TypeSetValue, Channel: "dimmer", Value: v}
	if target == "" {
		return cmd, true
	}
	if sel := classify(target); sel.Selection != nil && sel.Type != TypeSetValue {
		cmd.Selection = sel.Selection
		return cmd, true
	}
	if strings.ContainsAny(target, "0123456789+") {
		return invalid("Invalid target: %s", target)
	}
	cmd.Channel = fixture.ChannelKey(target)
	return cmd, true
}

func buildSetChannel(m []string) (Command, bool) {
	first := strings.Fields(m[1])[0]
	if reserved[first] {
		return Command{}, false
	}
	v, _ := atoi(m[2])
	return Command{Type: TypeSetChannel, Channel: fixture.ChannelKey(m[1]), Value: v}, true
}

// buildRecallDot lets an out-of-range coordinate fall through to unknown.
func buildRecallDot(m []string) (Command, bool) {
	coord, ok := parseCoordinate(m[0])
	if !ok {
		return Command{}, false
	}
	return Command{Type: TypeRecallDot, Coord: &coord}, true
}

func buildGroupPreset(m []string) (Command, bool) {
	g, _ := atoi(m[1])
	coord, ok := parseCoordinate(m[2])
	if !ok {
		return invalid("Group preset requires a coordinate N.P")
	}
	return Command{Type: TypeGroupPreset, Number: g, Coord: &coord}, true
}

func buildRecallObject(m []string) (Command, bool) {
	n, ok := atoi(m[2])
	if !ok || n < 1 {
		return invalid("Invalid %s number: %s", m[1], m[2])
	}
	cmd := Command{Type: TypeRecallObject, Object: m[1], Number: n}
	if fs, ok := fixture.FeatureSetNumber(m[1]); ok {
		coord, ok := NewCoordinate(fs, n)
		if !ok {
			return invalid("Preset %d is out of range (1-%d)", n, fixture.PresetsPerFeatureSet)
		}
		cmd.Coord = &coord
	}
	return cmd, true
}

func buildTime(m []string) (Command, bool) {
	secs, ok := atof(m[1])
	if !ok {
		return invalid("Time requires a number of seconds")
	}
	return Command{Type: TypeTime, Seconds: secs}, true
}

var fanModes = map[string]bool{"center": true, "left": true, "right": true, "outside": true, "off": true}

func buildFan(m []string) (Command, bool) {
	fields := strings.Fields(m[1])
	cmd := Command{Type: TypeFan, Mode: "center"}
	if len(fields) > 0 && fanModes[fields[0]] {
		cmd.Mode = fields[0]
		fields = fields[1:]
	}
	switch len(fields) {
	case 0:
	case 1:
		cmd.Axis = fixture.ChannelKey(fields[0])
	default:
		return invalid("Fan takes a mode and an optional axis")
	}
	return cmd, true
}

func buildEncoder(m []string) (Command, bool) {
	fields := strings.Fields(m[1])
	if len(fields) != 2 {
		return invalid("Encoder requires a number and a value")
	}
	n, ok := atoi(fields[0])
	if !ok || n < 1 {
		return invalid("Invalid encoder number: %s", fields[0])
	}
	delta, ok := atoi(fields[1])
	if !ok {
		return invalid("Invalid encoder value: %s", fields[1])
	}
	return Command{Type: TypeEncoder, Number: n, Value: delta}, true
}

func buildHighlight(m []string) (Command, bool) {
	switch m[1] {
	case "":
		return Command{Type: TypeHighlight, Mode: "toggle"}, true
	case "on", "off":
		return Command{Type: TypeHighlight, Mode: m[1]}, true
	}
	return invalid("Highlight takes on or off")
}

func buildOpenWindow(m []string) (Command, bool) {
	n, ok := atoi(m[2])
	if !ok || n < 1 {
		return invalid("Open requires a window number")
	}
	return Command{Type: TypeOpenWindow, Number: n}, true
}

func buildCloseWindow(m []string) (Command, bool) {
	n, ok := atoi(m[1])
	if !ok || n < 1 {
		return invalid("Close requires a window number")
	}
	return Command{Type: TypeCloseWindow, Number: n}, true
}

var (
	videoPlay  = regexp.MustCompile(`^video\s*(\d+)\s+output\s*(\d+)$`)
	videoOnly  = regexp.MustCompile(`^video\s*(\d+)$`)
	videoLoop  = regexp.MustCompile(`^video\s*(\d+)\s+(on|off)$`)
	videoSpeed = regexp.MustCompile(`^video\s*(\d+)\s+(\S+)$`)
)

func buildVideo(m []string) (Command, bool) {
	verb, args := m[1], m[2]
	switch verb {
	case "play":
		if a := videoPlay.FindStringSubmatch(args); a != nil {
			in, _ := atoi(a[1])
			out, _ := atoi(a[2])
			return Command{Type: TypeVideoPlay, Input: in, Output: out}, true
		}
		return invalid("Usage: play videoN outputN")
	case "pause", "stop", "restart":
		if a := videoOnly.FindStringSubmatch(args); a != nil {
			in, _ := atoi(a[1])
			types := map[string]Type{"pause": TypeVideoPause, "stop": TypeVideoStop, "restart": TypeVideoRestart}
			return Command{Type: types[verb], Input: in}, true
		}
		return invalid("Usage: %s videoN", verb)
	case "loop":
		if a := videoLoop.FindStringSubmatch(args); a != nil {
			in, _ := atoi(a[1])
			return Command{Type: TypeVideoLoop, Input: in, Mode: a[2]}, true
		}
		return invalid("Usage: loop videoN on|off")
	case "speed":
		if a := videoSpeed.FindStringSubmatch(args); a != nil {
			in, _ := atoi(a[1])
			speed, ok := atof(a[2])
			if !ok {
				return invalid("Invalid speed: %s", a[2])
			}
			return Command{Type: TypeVideoSpeed, Input: in, Speed: speed}, true
		}
		return invalid("Usage: speed videoN FACTOR")
	}
	return Command{}, false
}
