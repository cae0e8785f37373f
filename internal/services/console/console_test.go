package console

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/grouphandle"
	"github.com/bbernstein/lacylights-console/internal/services/pubsub"
	"github.com/bbernstein/lacylights-console/pkg/artnet"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type memoryStore struct {
	mu        sync.Mutex
	fixtures  map[int]*fixture.Fixture
	presets   int
	cues      map[int]*Cue
	groups    map[int]*grouphandle.Handle
	executors int
	err       error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		fixtures: map[int]*fixture.Fixture{},
		cues:     map[int]*Cue{},
		groups:   map[int]*grouphandle.Handle{},
	}
}

func (m *memoryStore) SaveFixture(_ context.Context, f *fixture.Fixture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.fixtures[f.Number] = f
	return nil
}

func (m *memoryStore) DeleteFixture(_ context.Context, number int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fixtures, number)
	return nil
}

func (m *memoryStore) SavePreset(context.Context, *Preset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presets++
	return nil
}

func (m *memoryStore) DeletePreset(context.Context, string, int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presets--
	return nil
}

func (m *memoryStore) SaveCue(_ context.Context, c *Cue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cues[c.Number] = c
	return nil
}

func (m *memoryStore) DeleteCue(_ context.Context, number int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cues, number)
	return nil
}

func (m *memoryStore) SaveGroup(_ context.Context, h *grouphandle.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[h.Number] = h
	return nil
}

func (m *memoryStore) DeleteGroup(_ context.Context, number int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.groups, number)
	return nil
}

func (m *memoryStore) SaveExecutor(context.Context, *Executor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executors++
	return nil
}

func newTestConsole(t *testing.T) (*Console, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)}
	return New(Options{Now: clock.Now}), clock
}

func submit(t *testing.T, c *Console, lines ...string) {
	t.Helper()
	for _, line := range lines {
		res := c.Submit(line)
		require.True(t, res.Success, "%q: %s", line, res.Message)
	}
}

func TestEndToEnd_SelectRangeSetRedBuildFrame(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c,
		"patch 1 rgbpar 0.1",
		"patch 2 rgbpar 0.4",
		"patch 3 rgbpar 0.7",
		"1 thru 3",
		"red at 255",
	)

	frame := c.BuildFrame()
	universe := frame[0]
	require.Len(t, universe, 512)
	for _, addr := range []int{1, 4, 7} {
		assert.Equal(t, byte(255), universe[addr-1], "red of fixture at %d", addr)
		assert.Equal(t, byte(0), universe[addr], "green of fixture at %d", addr)
	}

	pkt := artnet.BuildDMXPacket(0, universe, 1)
	h, err := artnet.ParseDMXHeader(pkt)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), h.Universe)
	assert.Equal(t, byte(255), pkt[artnet.HeaderSize+3])
}

func TestPatch_RejectsOverlapAndUnknownType(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c, "patch 1 rgbpar 0.1")

	res := c.Submit("patch 2 rgbpar 0.2")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "overlaps")

	res = c.Submit("patch 2 lasercannon 0.10")
	assert.False(t, res.Success)

	// Art-Net carries 15 universe bits; higher universes would alias.
	res = c.Submit("patch 3 rgbpar 32768.1")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "out of range")
	_, ok := c.Fixture(3)
	assert.False(t, ok)

	// Re-patching the same number moves the fixture.
	submit(t, c, "patch 1 rgbpar 1.1")
	f, ok := c.Fixture(1)
	require.True(t, ok)
	assert.Equal(t, 1, f.Universe)
}

func TestBuildFrame_GroupHandles(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c,
		"patch 1 dimmer 0.1",
		"patch 2 dimmer 0.2",
		"1 thru 2",
		"at 200",
		"record group 1",
	)
	assert.Equal(t, []byte{200, 200}, c.BuildFrame()[0][:2], "a new group is identity")

	submit(t, c, "group 1 set dimmer 100")
	assert.Equal(t, []byte{100, 100}, c.BuildFrame()[0][:2], "inhibitive caps the level")

	// The group is a virtual fixture that can be selected by id.
	submit(t, c, "4001 at 80")
	assert.Equal(t, []byte{80, 80}, c.BuildFrame()[0][:2])

	submit(t, c, "group 1 mode scaling", "group 1 intensity 50")
	assert.Equal(t, []byte{100, 100}, c.BuildFrame()[0][:2])

	submit(t, c, "group 1 off")
	assert.Equal(t, []byte{200, 200}, c.BuildFrame()[0][:2])
}

func TestBuildFrame_MasterAndBlackout(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c,
		"patch 1 dimmer 0.1",
		"patch 2 rgbpar 0.2",
		"patch 3 spot 0.10",
		"1 at 200",
		"2",
		"red at 200",
		"3",
		"pan at 200",
		"master 128",
	)

	u := c.BuildFrame()[0]
	assert.Equal(t, byte(100), u[0], "dimmer scaled by master")
	assert.Equal(t, byte(100), u[1], "virtual intensity scales color")
	assert.Equal(t, byte(200), u[9], "pan is not an intensity channel")

	submit(t, c, "blackout")
	for _, b := range c.BuildFrame()[0][:20] {
		assert.Equal(t, byte(0), b)
	}
	submit(t, c, "blackout")
	assert.Equal(t, byte(100), c.BuildFrame()[0][0])
}

func TestBuildFrame_DefaultsAndHighlight(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c, "patch 1 spot 0.1", "patch 2 rgbpar 0.20", "1+2")

	u := c.BuildFrame()[0]
	assert.Equal(t, byte(255), u[5], "spot shutter defaults open")
	assert.Equal(t, byte(0), u[4])

	submit(t, c, "highlight")
	u = c.BuildFrame()[0]
	assert.Equal(t, byte(255), u[4], "highlight drives the dimmer")
	assert.Equal(t, []byte{255, 255, 255}, u[19:22], "dimmerless fixtures highlight in white")

	submit(t, c, "highlight off")
	assert.Equal(t, byte(0), c.BuildFrame()[0][4])
}

func TestPresets_RecordRecallIdempotent(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c,
		"patch 1 rgbdpar 0.1",
		"1",
		"red at 255",
		"blue at 40",
		"at 180",
		"record 3.1 warm",
	)
	assert.Equal(t, "color", c.ActiveFeatureSet())

	p, ok := c.Preset("color", 0)
	require.True(t, ok)
	assert.Equal(t, "warm", p.Name)
	assert.Equal(t, fixture.Values{"red": 255, "blue": 40}, p.Values["fx1"], "only color channels are recorded")

	submit(t, c, "clear", "1", "3.1")
	first := c.State().Programmer
	submit(t, c, "3.1")
	assert.Equal(t, first, c.State().Programmer)
	assert.Equal(t, fixture.Values{"red": 255, "blue": 40}, first["fx1"])

	res := c.Submit("3.2")
	assert.False(t, res.Success)

	res = c.Submit("record")
	assert.False(t, res.Success, "feature set active with a selection needs a slot")
	assert.Contains(t, res.Message, "record 3.N")
}

func TestPresets_UpdateAndGroupPreset(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c,
		"patch 1 rgbpar 0.1",
		"patch 2 rgbpar 0.4",
		"1 thru 2",
		"red at 100",
		"record 3.2",
		"green at 50",
		"update 3.2",
	)
	p, _ := c.Preset("color", 1)
	assert.Equal(t, fixture.Values{"red": 100, "green": 50}, p.Values["fx2"])

	submit(t, c, "record group 4", "group 4 preset 3.2", "group 4 mode additive")
	h, ok := c.Groups().ByNumber(4)
	require.True(t, ok)
	assert.Equal(t, fixture.Values{"red": 100, "green": 50}, h.Values)
	assert.Equal(t, grouphandle.ModeAdditive, h.Mode)
	assert.Equal(t, byte(200), c.BuildFrame()[0][0])
}

func TestCues_RecordRecallGo(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c, "patch 1 dimmer 0.1", "1 at 100", "record opening", "1 at 250", "record")

	cue, ok := c.Cue(1)
	require.True(t, ok)
	assert.Equal(t, "opening", cue.Name)
	_, ok = c.Cue(2)
	require.True(t, ok)

	submit(t, c, "clear", "cue 1")
	assert.Equal(t, byte(100), c.BuildFrame()[0][0])

	res := c.Submit("go")
	require.True(t, res.Success)
	assert.Equal(t, "Cue 2", res.Message)
	assert.Equal(t, byte(250), c.BuildFrame()[0][0])

	res = c.Submit("go")
	assert.False(t, res.Success)

	submit(t, c, "goto 1")
	assert.Equal(t, 1, c.State().CurrentCue)
}

func TestCues_TimedRecallStartsFade(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c, "patch 1 dimmer 0.1", "1 at 255", "record cue 1", "cue 1 time 3", "clear")

	submit(t, c, "cue 1")
	assert.Equal(t, 1, c.fades.ActiveFadeCount())

	// A manual value takes the channel back from the fade.
	submit(t, c, "1 at 10")
	assert.Equal(t, 0, c.fades.ActiveFadeCount())
	assert.Equal(t, byte(10), c.BuildFrame()[0][0])
}

func TestCues_ManualValueSurvivesConcurrentFadeTicks(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c, "patch 1 rgbpar 0.1", "1", "red at 255", "record cue 1", "cue 1 time 1000")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				c.fades.Tick()
			}
		}
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	for i := 0; i < 300; i++ {
		submit(t, c, "1", "red at 0", "cue 1", "1", "red at 17")
		c.mu.RLock()
		got := c.programmer["fx1"]["red"]
		c.mu.RUnlock()
		require.Equal(t, 17, got, "run %d", i)
	}
}

func TestExecutors(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c, "patch 1 dimmer 0.1", "patch 2 dimmer 0.2", "1+2 at 60", "record executor 1", "clear")

	assert.Equal(t, byte(0), c.BuildFrame()[0][0])
	submit(t, c, "executor 1")
	assert.Equal(t, []byte{60, 60}, c.BuildFrame()[0][:2])

	submit(t, c, "1 at 90")
	assert.Equal(t, []byte{90, 60}, c.BuildFrame()[0][:2], "programmer wins over executors")

	submit(t, c, "executor 1 off")
	assert.Equal(t, []byte{90, 0}, c.BuildFrame()[0][:2])

	submit(t, c, "record group 2 executor 1")
	h, ok := c.Groups().ByNumber(2)
	require.True(t, ok)
	assert.Equal(t, []string{"fx1", "fx2"}, h.Members)
	assert.Equal(t, 60, h.Values["dimmer"])
}

func TestFanSpreadsEncoder(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c, "patch 1 dimmer 0.1", "patch 2 dimmer 0.2", "patch 3 dimmer 0.3", "1 thru 3", "fan left", "encoder 1 100")
	assert.Equal(t, []byte{100, 50, 0}, c.BuildFrame()[0][:3])

	submit(t, c, "fan off", "encoder 1 10")
	assert.Equal(t, []byte{110, 60, 10}, c.BuildFrame()[0][:3])

	res := c.Submit("1")
	require.True(t, res.Success)
	res = c.Submit("fan center")
	assert.False(t, res.Success, "fan needs two fixtures")
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	store := newMemoryStore()
	c := New(Options{Store: store})
	submit(t, c, "patch 1 dimmer 0.1", "patch 2 dimmer 0.2", "1+2", "record group 1")

	res := c.Submit("delete fixture 1")
	require.True(t, res.Success)
	assert.Equal(t, "Delete fixture 1? Press enter to confirm", res.Message)
	_, ok := c.Fixture(1)
	assert.True(t, ok, "nothing is deleted before confirmation")

	res = c.Submit("   ")
	require.True(t, res.Success)
	assert.Equal(t, "Deleted fixture 1", res.Message)

	_, ok = c.Fixture(1)
	assert.False(t, ok)
	assert.Equal(t, []string{"fx2"}, c.SelectedFixtures())
	h, _ := c.Groups().ByNumber(1)
	assert.Equal(t, []string{"fx2"}, h.Members)
	assert.NotContains(t, store.fixtures, 1)
	assert.Equal(t, []string{"fx2"}, store.groups[1].Members)

	// Any other command cancels a pending delete.
	submit(t, c, "delete fixture 2", "clear")
	res = c.Submit("")
	assert.False(t, res.Success)
	assert.Equal(t, "Nothing to confirm", res.Message)
	_, ok = c.Fixture(2)
	assert.True(t, ok)
}

func TestPersistenceFailuresDoNotFailCommands(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("disk full")
	c := New(Options{Store: store})

	res := c.Submit("patch 1 dimmer 0.1")
	assert.True(t, res.Success)
	_, ok := c.Fixture(1)
	assert.True(t, ok)
}

func TestWindowsAndViews(t *testing.T) {
	c, _ := newTestConsole(t)
	ps := pubsub.New()
	c.events = ps
	sub := ps.Subscribe([]pubsub.Topic{pubsub.TopicWindow}, "", 10)

	res := c.Submit("open 3")
	require.True(t, res.Success)
	assert.Equal(t, "Opened presets window", res.Message)

	select {
	case ev := <-sub.Channel:
		we, ok := ev.Payload.(WindowEvent)
		require.True(t, ok)
		assert.Equal(t, "presets", we.Window.Name)
		assert.Equal(t, "opened", we.Action)
	case <-time.After(time.Second):
		t.Fatal("no window event")
	}

	submit(t, c, "record view 1", "close 3")
	assert.False(t, c.State().Windows[2].Open)
	submit(t, c, "view 1")
	assert.True(t, c.State().Windows[2].Open)

	res = c.Submit("open 99")
	assert.False(t, res.Success)

	submit(t, c, "video/1 output/2")
	assert.Equal(t, "output", c.State().Windows[6].Name)
	assert.Equal(t, "video/1", c.State().Windows[6].Source)
}

func TestVideoTransport(t *testing.T) {
	c, _ := newTestConsole(t)

	res := c.Submit("pause video1")
	assert.False(t, res.Success)

	submit(t, c, "play video1 output2", "speed video1 2", "loop video1 on", "pause video1")
	v := c.State().Videos[0]
	assert.Equal(t, Video{Input: 1, Output: 2, State: VideoPaused, Loop: true, Speed: 2}, v)

	submit(t, c, "restart video1", "stop video1", "ndi camera1 output 1")
	assert.Equal(t, VideoStopped, c.State().Videos[0].State)
	assert.Equal(t, "camera1", c.ndi[1])
}

func TestClockTimerAndConditions(t *testing.T) {
	c, clock := newTestConsole(t)

	res := c.Submit("clear if clock")
	require.True(t, res.Success)
	assert.Contains(t, res.Message, "Skipped")

	submit(t, c, "clock start")
	clock.Advance(5 * time.Second)
	assert.Equal(t, 5.0, c.State().Clock)
	submit(t, c, "clock stop")
	clock.Advance(time.Minute)
	assert.Equal(t, 5.0, c.State().Clock)

	submit(t, c, "timer 10", "timer start")
	clock.Advance(4 * time.Second)
	assert.Equal(t, 6.0, c.State().Timer)

	res = c.Submit("clear if timer")
	assert.Equal(t, "Programmer cleared", res.Message)

	clock.Advance(time.Minute)
	assert.Equal(t, 0.0, c.State().Timer)
	submit(t, c, "timer reset")
	assert.Equal(t, 10.0, c.State().Timer)
}

func TestMissingCapabilityAndResultEvents(t *testing.T) {
	c, _ := newTestConsole(t)
	ps := pubsub.New()
	c.events = ps
	sub := ps.Subscribe([]pubsub.Topic{pubsub.TopicCommandResult}, "", 10)

	res := c.Submit("undo")
	assert.False(t, res.Success)
	assert.Equal(t, "Undo is not available", res.Message)

	ev := <-sub.Channel
	result, ok := ev.Payload.(CommandResult)
	require.True(t, ok)
	assert.Equal(t, "undo", result.Input)
	assert.False(t, result.Success)

	assert.Equal(t, []string{"undo"}, c.History().Entries())
}

func TestLocate(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c, "patch 1 spot 0.1", "1", "locate")

	u := c.BuildFrame()[0]
	assert.Equal(t, byte(128), u[0], "pan centered")
	assert.Equal(t, byte(0), u[1], "pan fine untouched")
	assert.Equal(t, byte(128), u[2], "tilt centered")
	assert.Equal(t, byte(255), u[4], "dimmer full")
	assert.Equal(t, byte(255), u[5], "shutter at default")
}

func TestRestore(t *testing.T) {
	c, _ := newTestConsole(t)
	lib := fixture.NewLibrary()
	dimmer, _ := lib.Lookup("dimmer")

	err := c.Restore(Show{
		Fixtures: []*fixture.Fixture{{ID: "fx1", Number: 1, Name: "Front", Type: dimmer, Universe: 0, Address: 1}},
		Cues:     []*Cue{{Number: 1, Name: "Saved", Values: Snapshot{"fx1": {"dimmer": 77}}}},
		Presets:  []*Preset{{FeatureSet: "intensity", Index: 0, Values: Snapshot{"fx1": {"dimmer": 12}}}, {FeatureSet: "nope"}},
		Groups:   []grouphandle.Handle{{Number: 1, Mode: grouphandle.ModeInhibitive, Members: []string{"fx1"}, Values: fixture.Values{"dimmer": 50}, Active: true, Intensity: 100}},
	})
	require.NoError(t, err)

	submit(t, c, "cue 1")
	assert.Equal(t, byte(50), c.BuildFrame()[0][0])

	_, ok := c.Preset("intensity", 0)
	assert.True(t, ok)
}

func TestRestore_InvalidShowLeavesStateUntouched(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c, "patch 1 dimmer 0.1", "1 at 90", "record cue 1")

	lib := fixture.NewLibrary()
	dimmer, _ := lib.Lookup("dimmer")
	err := c.Restore(Show{
		Fixtures: []*fixture.Fixture{
			{ID: "fx5", Number: 5, Name: "Good", Type: dimmer, Universe: 0, Address: 10},
			{ID: "fx6", Number: 6, Name: "Bad", Type: dimmer, Universe: 0, Address: 600},
		},
	})
	require.Error(t, err)

	_, ok := c.Fixture(1)
	assert.True(t, ok, "fixture 1 must still be patched")
	_, ok = c.Fixture(5)
	assert.False(t, ok, "no fixture from the rejected show may be patched")
	assert.Equal(t, []int{1}, c.State().Cues)
	assert.Equal(t, byte(90), c.BuildFrame()[0][0])
}

func TestRecord_MalformedTargetRecordsNothing(t *testing.T) {
	c, _ := newTestConsole(t)
	submit(t, c, "patch 1 rgbpar 0.1", "1", "red at 255")

	for _, line := range []string{"record preset 3.5", "record group two"} {
		res := c.Submit(line)
		assert.False(t, res.Success, line)
	}
	assert.Empty(t, c.State().Cues)
	_, ok := c.Preset("color", 4)
	assert.False(t, ok)
}
