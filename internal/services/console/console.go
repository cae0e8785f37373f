// Package console holds the live state of the lighting console: the patch,
// the programmer, presets, cues, group handles and the presentation
// registries. It implements the dispatcher's capability table and is the
// frame source for DMX output.
package console

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/lacylights-console/internal/command"
	"github.com/bbernstein/lacylights-console/internal/dispatch"
	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/fade"
	"github.com/bbernstein/lacylights-console/internal/services/grouphandle"
	"github.com/bbernstein/lacylights-console/internal/services/pubsub"
)

const (
	// DefaultUniverseCount is the number of universes built per frame.
	DefaultUniverseCount = 4
	// DefaultMaster is the grand master at startup.
	DefaultMaster = 255

	storeTimeout = 5 * time.Second
)

// Publisher receives console events.
type Publisher interface {
	Publish(topic pubsub.Topic, filter string, message interface{})
}

// Recorder receives command counters.
type Recorder interface {
	Count(name string, value int64, tags ...string)
}

// Options configures a Console. Zero values are replaced by defaults.
type Options struct {
	Library       *fixture.Library
	UniverseCount int
	Store         Store
	Events        Publisher
	Recorder      Recorder
	Now           func() time.Time
}

// CommandResult is published for every submitted line.
type CommandResult struct {
	Input   string       `json:"input"`
	Type    command.Type `json:"type"`
	Success bool         `json:"success"`
	Message string       `json:"message"`
}

// pendingDelete is a delete waiting for an empty confirmation line.
type pendingDelete struct {
	description string
	apply       func() error
}

// Console is the application state behind the command line.
type Console struct {
	mu sync.RWMutex

	library       *fixture.Library
	universeCount int
	fixtures      map[string]*fixture.Fixture
	groups        *grouphandle.Engine
	fades         *fade.Engine

	programmer Snapshot
	selection  []string
	featureSet string
	fadeTime   float64

	presets   map[string][]*Preset
	cues      map[int]*Cue
	current   int
	executors map[int]*Executor
	execOrder uint64
	views     map[int]*View
	windows   []*Window
	videos    map[int]*Video
	ndi       map[int]string

	clock stopwatch
	timer countdown

	fanMode   string
	fanAxis   string
	highlight bool
	blackout  bool
	master    int

	pending *pendingDelete
	history *command.History

	store    Store
	events   Publisher
	recorder Recorder
	now      func() time.Time
	actions  *dispatch.Actions
}

// New creates a console with an empty patch.
func New(opts Options) *Console {
	if opts.Library == nil {
		opts.Library = fixture.NewLibrary()
	}
	if opts.UniverseCount <= 0 {
		opts.UniverseCount = DefaultUniverseCount
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Console{
		library:       opts.Library,
		universeCount: opts.UniverseCount,
		fixtures:      make(map[string]*fixture.Fixture),
		groups:        grouphandle.NewEngine(),
		programmer:    make(Snapshot),
		presets:       make(map[string][]*Preset),
		cues:          make(map[int]*Cue),
		executors:     make(map[int]*Executor),
		views:         make(map[int]*View),
		videos:        make(map[int]*Video),
		ndi:           make(map[int]string),
		fanMode:       "off",
		master:        DefaultMaster,
		history:       command.NewHistory(command.DefaultHistorySize),
		store:         opts.Store,
		events:        opts.Events,
		recorder:      opts.Recorder,
		now:           opts.Now,
	}
	for i, name := range command.WindowNames {
		c.windows = append(c.windows, &Window{Number: i + 1, Name: name})
	}
	for _, fs := range fixture.FeatureSets {
		c.presets[fs] = make([]*Preset, fixture.PresetsPerFeatureSet)
	}
	c.fades = fade.NewEngine(c)
	c.actions = c.buildActions()
	return c
}

// Start runs the fade engine.
func (c *Console) Start() {
	c.fades.Start()
}

// Stop halts the fade engine.
func (c *Console) Stop() {
	c.fades.Stop()
}

// Groups exposes the blending engine.
func (c *Console) Groups() *grouphandle.Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.groups
}

// History returns the submitted command history.
func (c *Console) History() *command.History {
	return c.history
}

// Actions returns the capability table the dispatcher uses.
func (c *Console) Actions() *dispatch.Actions {
	return c.actions
}

// Submit parses and executes one line of operator input. A blank line
// confirms a pending delete.
func (c *Console) Submit(text string) dispatch.Result {
	if strings.TrimSpace(text) == "" {
		res := c.confirmPending()
		c.publishResult(CommandResult{Input: text, Success: res.Success, Message: res.Message})
		return res
	}

	c.history.Add(strings.TrimSpace(text))
	cmd := command.Parse(text)

	c.mu.Lock()
	if cmd.Type != command.TypeDelete {
		c.pending = nil
	}
	c.mu.Unlock()

	res := dispatch.Execute(cmd, c.actions)

	evt := log.Debug()
	if !res.Success {
		evt = log.Info()
	}
	evt.Str("input", cmd.Raw).Str("type", string(cmd.Type)).Bool("success", res.Success).Msg(res.Message)

	if c.recorder != nil {
		c.recorder.Count("console.commands", 1, "type:"+string(cmd.Type), fmt.Sprintf("success:%t", res.Success))
	}
	c.publishResult(CommandResult{Input: cmd.Raw, Type: cmd.Type, Success: res.Success, Message: res.Message})
	c.publish(pubsub.TopicConsoleState, "", c.State())
	return res
}

func (c *Console) confirmPending() dispatch.Result {
	c.mu.Lock()
	p := c.pending
	c.pending = nil
	c.mu.Unlock()

	if p == nil {
		return dispatch.Result{Success: false, Message: "Nothing to confirm"}
	}
	if err := p.apply(); err != nil {
		return dispatch.Result{Success: false, Message: err.Error()}
	}
	c.publish(pubsub.TopicConsoleState, "", c.State())
	return dispatch.Result{Success: true, Message: "Deleted " + p.description}
}

func (c *Console) publishResult(r CommandResult) {
	c.publish(pubsub.TopicCommandResult, "", r)
}

func (c *Console) publish(topic pubsub.Topic, filter string, message interface{}) {
	if c.events != nil {
		c.events.Publish(topic, filter, message)
	}
}

// persist runs a store write. It must be called without the console lock.
func (c *Console) persist(what string, fn func(ctx context.Context, s Store) error) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := fn(ctx, c.store); err != nil {
		log.Error().Err(err).Str("object", what).Msg("❌ Failed to persist console state")
	}
}

// Restore loads a stored show. Existing state is replaced; a show with an
// invalid fixture is rejected and leaves the console untouched.
func (c *Console) Restore(show Show) error {
	fixtures := make(map[string]*fixture.Fixture, len(show.Fixtures))
	for _, f := range show.Fixtures {
		if err := f.Validate(); err != nil {
			return err
		}
		fixtures[f.ID] = f
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fixtures = fixtures
	for _, fs := range fixture.FeatureSets {
		c.presets[fs] = make([]*Preset, fixture.PresetsPerFeatureSet)
	}
	for _, p := range show.Presets {
		slots, ok := c.presets[p.FeatureSet]
		if !ok || p.Index < 0 || p.Index >= len(slots) {
			log.Warn().Str("featureSet", p.FeatureSet).Int("index", p.Index).Msg("Skipping preset outside the grid")
			continue
		}
		slots[p.Index] = p
	}
	c.cues = make(map[int]*Cue)
	for _, cue := range show.Cues {
		c.cues[cue.Number] = cue
	}
	c.groups = grouphandle.NewEngine()
	for _, h := range show.Groups {
		c.groups.Restore(h)
	}
	c.executors = make(map[int]*Executor)
	for _, e := range show.Executors {
		if e.Active {
			c.execOrder++
			e.order = c.execOrder
		}
		c.executors[e.Number] = e
	}

	log.Info().
		Int("fixtures", len(show.Fixtures)).
		Int("presets", len(show.Presets)).
		Int("cues", len(show.Cues)).
		Int("groups", len(show.Groups)).
		Msg("🎭 Show restored")
	return nil
}

// State is a summary of the console for API clients.
type State struct {
	Fixtures   []*fixture.Fixture    `json:"fixtures"`
	Groups     []*grouphandle.Handle `json:"groups"`
	Selection  []string              `json:"selection"`
	FeatureSet string                `json:"featureSet"`
	Programmer Snapshot              `json:"programmer"`
	CurrentCue int                   `json:"currentCue"`
	Cues       []int                 `json:"cues"`
	FadeTime   float64               `json:"fadeTime"`
	Blackout   bool                  `json:"blackout"`
	Highlight  bool                  `json:"highlight"`
	Master     int                   `json:"master"`
	Windows    []Window              `json:"windows"`
	Videos     []Video               `json:"videos"`
	Clock      float64               `json:"clock"`
	Timer      float64               `json:"timer"`
}

// State returns a copy of the current console state.
func (c *Console) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := State{
		Fixtures:   c.sortedFixtures(),
		Groups:     c.groups.List(),
		Selection:  append([]string(nil), c.selection...),
		FeatureSet: c.featureSet,
		Programmer: c.programmer.Clone(),
		CurrentCue: c.current,
		Cues:       c.cueNumbers(),
		FadeTime:   c.fadeTime,
		Blackout:   c.blackout,
		Highlight:  c.highlight,
		Master:     c.master,
		Clock:      c.clock.elapsed(c.now()).Seconds(),
		Timer:      c.timer.remaining(c.now()).Seconds(),
	}
	for _, w := range c.windows {
		s.Windows = append(s.Windows, *w)
	}
	inputs := make([]int, 0, len(c.videos))
	for in := range c.videos {
		inputs = append(inputs, in)
	}
	sort.Ints(inputs)
	for _, in := range inputs {
		s.Videos = append(s.Videos, *c.videos[in])
	}
	return s
}

func (c *Console) sortedFixtures() []*fixture.Fixture {
	list := make([]*fixture.Fixture, 0, len(c.fixtures))
	for _, f := range c.fixtures {
		list = append(list, f)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Number < list[j].Number })
	return list
}

func (c *Console) cueNumbers() []int {
	numbers := make([]int, 0, len(c.cues))
	for n := range c.cues {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

const helpText = `Selection:   1 | 1 thru 5 | 1+3+5 | group 2
Values:      at 50 | red at 255 | 3 at 80 | pan 128 | encoder 1 10
Presets:     3.1 | color 1 | record 3.1 [name] | update 3.1
Cues:        record [name] | record cue 5 | cue 5 | go | goto 3 | cue 2 time 4
Groups:      record group 1 | group 1 mode scaling | group 1 intensity 50
Output:      blackout | master 200 | highlight | locate | clear
Windows:     open 3 | close 3 | video/1 output/2 | play video1 output1
Patch:       patch 1 rgbpar 0.1 | delete fixture 1 (enter confirms)`

func (c *Console) buildActions() *dispatch.Actions {
	return &dispatch.Actions{
		FixtureIDs:          c.FixtureIDs,
		SetSelectedFixtures: c.SetSelectedFixtures,
		SelectedFixtures:    c.SelectedFixtures,
		AvailableChannels:   c.AvailableChannels,
		SetChannelValue:     c.SetChannelValue,
		SetEncoderValue:     c.SetEncoderValue,

		Clear:     c.Clear,
		Blackout:  c.ToggleBlackout,
		Locate:    c.Locate,
		Help:      func() string { return helpText },
		SetMaster: c.SetMaster,

		ActiveFeatureSet: c.ActiveFeatureSet,
		SetFeatureSet:    c.SetFeatureSet,
		RecallPreset:     c.RecallPreset,
		RecordPreset:     c.RecordPreset,
		UpdatePreset:     c.UpdatePreset,

		RecallCue:   c.RecallCue,
		RecordCue:   c.RecordCue,
		UpdateCue:   c.UpdateCue,
		GoCue:       c.GoCue,
		SetCueTime:  c.SetCueTime,
		SetFadeTime: c.SetFadeTime,

		RecallGroup:             c.RecallGroup,
		RecordGroup:             c.RecordGroup,
		UpdateGroup:             c.UpdateGroup,
		RecordGroupFromExecutor: c.RecordGroupFromExecutor,
		SetGroupMode:            c.SetGroupMode,
		SetGroupPriority:        c.SetGroupPriority,
		SetGroupIntensity:       c.SetGroupIntensity,
		SetGroupActive:          c.SetGroupActive,
		SetGroupValue:           c.SetGroupValue,
		ApplyPresetToGroup:      c.ApplyPresetToGroup,
		RecallView:              c.RecallView,
		RecordView:              c.RecordView,

		Executor:       c.Executor,
		RecordExecutor: c.RecordExecutor,

		Fan:       c.Fan,
		Highlight: c.Highlight,

		OpenWindow:   c.OpenWindow,
		CloseWindow:  c.CloseWindow,
		RouteWindow:  c.RouteWindow,
		VideoPlay:    c.VideoPlay,
		VideoPause:   c.VideoPause,
		VideoStop:    c.VideoStop,
		VideoRestart: c.VideoRestart,
		VideoLoop:    c.VideoLoop,
		VideoSpeed:   c.VideoSpeed,
		RouteNDI:     c.RouteNDI,

		Clock:             c.Clock,
		Timer:             c.Timer,
		EvaluateCondition: c.EvaluateCondition,

		PatchFixture:  c.PatchFixture,
		DeleteFixture: c.DeleteFixture,
		DeleteGroup:   c.DeleteGroup,
		DeleteCue:     c.DeleteCue,
		DeletePreset:  c.DeletePreset,
	}
}
