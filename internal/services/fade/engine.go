package fade

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Target is one programmer channel to fade.
type Target struct {
	FixtureID string
	Channel   string
	Start     int // used when the channel is not already mid-fade
	Value     int
}

// Programmer receives interpolated values. ApplyFadeStep must hold the lock
// that guards manual writes while it calls step and stores the returned
// values, so a manual value cannot be overwritten by one computed before it.
// The engine never calls it while holding its own lock.
type Programmer interface {
	ApplyFadeStep(step func() []Update)
}

// channelFade represents a fade operation on a single channel.
type channelFade struct {
	fixtureID  string
	channel    string
	startValue float64
	endValue   float64
}

func (c channelFade) key() string {
	return channelKey(c.fixtureID, c.channel)
}

func channelKey(fixtureID, channel string) string {
	return fixtureID + "/" + channel
}

// activeFade represents an active fade operation.
type activeFade struct {
	id         string
	channels   []channelFade
	startTime  time.Time
	duration   time.Duration
	easingType EasingType
	onComplete func()
}

// Update is one value computed by a tick.
type Update struct {
	FixtureID string
	Channel   string
	Value     int
}

// Engine interpolates programmer values with easing support.
type Engine struct {
	mu sync.RWMutex

	programmer  Programmer
	activeFades map[string]*activeFade

	// Track interpolated values for smooth mid-fade takeovers
	interpolatedValues map[string]float64 // key: "fixtureID/channel"

	stopChan chan struct{}
	running  bool

	updateRate time.Duration
	now        func() time.Time
}

// NewEngine creates a new fade engine writing into the programmer.
func NewEngine(programmer Programmer) *Engine {
	return &Engine{
		programmer:         programmer,
		activeFades:        make(map[string]*activeFade),
		interpolatedValues: make(map[string]float64),
		stopChan:           make(chan struct{}),
		updateRate:         25 * time.Millisecond, // 40Hz
		now:                time.Now,
	}
}

// Start starts the fade engine's update loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.mu.Unlock()

	go e.updateLoop(e.stopChan)
}

// Stop stops the fade engine.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	close(e.stopChan)
}

func (e *Engine) updateLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(e.updateRate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick advances every active fade to the current time.
func (e *Engine) Tick() {
	var callbacks []func()
	e.programmer.ApplyFadeStep(func() []Update {
		var updates []Update
		updates, callbacks = e.step(e.now())
		return updates
	})

	if len(callbacks) > 0 {
		go func() {
			for _, cb := range callbacks {
				cb()
			}
		}()
	}
}

func (e *Engine) step(now time.Time) ([]Update, []func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var updates []Update
	var callbacks []func()

	for id, fade := range e.activeFades {
		progress := 1.0
		if fade.duration > 0 {
			progress = float64(now.Sub(fade.startTime)) / float64(fade.duration)
		}

		done := progress >= 1
		for _, ch := range fade.channels {
			current := ch.endValue
			if !done {
				current = Interpolate(ch.startValue, ch.endValue, progress, fade.easingType)
			}
			if done {
				delete(e.interpolatedValues, ch.key())
			} else {
				e.interpolatedValues[ch.key()] = current
			}
			updates = append(updates, Update{
				FixtureID: ch.fixtureID,
				Channel:   ch.channel,
				Value:     clamp(int(math.Round(current)), 0, 255),
			})
		}

		if done {
			delete(e.activeFades, id)
			if fade.onComplete != nil {
				callbacks = append(callbacks, fade.onComplete)
			}
			log.Debug().Str("fade", id).Int("channels", len(fade.channels)).Msg("fade complete")
		}
	}
	return updates, callbacks
}

// FadeTo starts fading the targets over duration and returns the fade id.
// Channels already owned by another fade are taken over from their current
// interpolated value. A zero duration completes on the next tick.
func (e *Engine) FadeTo(targets []Target, duration time.Duration, fadeID string, easingType EasingType, onComplete func()) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if fadeID == "" {
		fadeID = fmt.Sprintf("fade-%d-%d", e.now().UnixNano(), len(e.activeFades))
	}
	if easingType == "" {
		easingType = EasingInOutSine
	}

	taken := make(map[string]bool, len(targets))
	for _, t := range targets {
		taken[channelKey(t.FixtureID, t.Channel)] = true
	}
	e.releaseLocked(taken)

	channels := make([]channelFade, 0, len(targets))
	for _, t := range targets {
		start := float64(t.Start)
		if interpolated, ok := e.interpolatedValues[channelKey(t.FixtureID, t.Channel)]; ok {
			start = interpolated
		}
		channels = append(channels, channelFade{
			fixtureID:  t.FixtureID,
			channel:    t.Channel,
			startValue: start,
			endValue:   float64(clamp(t.Value, 0, 255)),
		})
	}

	e.activeFades[fadeID] = &activeFade{
		id:         fadeID,
		channels:   channels,
		startTime:  e.now(),
		duration:   duration,
		easingType: easingType,
		onComplete: onComplete,
	}
	return fadeID
}

// releaseLocked removes the given channels from every running fade.
func (e *Engine) releaseLocked(keys map[string]bool) {
	for id, fade := range e.activeFades {
		remaining := fade.channels[:0]
		for _, ch := range fade.channels {
			if !keys[ch.key()] {
				remaining = append(remaining, ch)
			}
		}
		fade.channels = remaining
		if len(remaining) == 0 {
			delete(e.activeFades, id)
		}
	}
}

// Release stops fading one channel so a manual value sticks.
func (e *Engine) Release(fixtureID, channel string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := channelKey(fixtureID, channel)
	e.releaseLocked(map[string]bool{key: true})
	delete(e.interpolatedValues, key)
}

// CancelFade cancels an active fade by ID.
func (e *Engine) CancelFade(fadeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if fade, ok := e.activeFades[fadeID]; ok {
		for _, ch := range fade.channels {
			delete(e.interpolatedValues, ch.key())
		}
		delete(e.activeFades, fadeID)
	}
}

// CancelAllFades cancels all active fades.
func (e *Engine) CancelAllFades() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.interpolatedValues = make(map[string]float64)
	e.activeFades = make(map[string]*activeFade)
}

// IsRunning returns whether the update loop is running.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// ActiveFadeCount returns the number of active fades.
func (e *Engine) ActiveFadeCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.activeFades)
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
