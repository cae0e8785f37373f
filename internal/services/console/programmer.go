package console

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/fade"
	"github.com/bbernstein/lacylights-console/internal/services/grouphandle"
	"github.com/bbernstein/lacylights-console/internal/services/intensity"
)

// Fan modes.
const (
	FanOff     = "off"
	FanCenter  = "center"
	FanLeft    = "left"
	FanRight   = "right"
	FanOutside = "outside"
)

// ApplyFadeStep computes one fade step and stores its values under the
// console lock. Manual sets release their channel from the fade under the
// same lock, so a step either lands before them or no longer covers them.
func (c *Console) ApplyFadeStep(step func() []fade.Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range step() {
		c.setValueLocked(u.FixtureID, fixture.ChannelKey(u.Channel), u.Value)
	}
}

func (c *Console) setValueLocked(fixtureID, key string, value int) {
	values, ok := c.programmer[fixtureID]
	if !ok {
		values = fixture.Values{}
		c.programmer[fixtureID] = values
	}
	values[key] = clampByte(value)
}

// currentValue is the programmer value of a fixture channel, or the channel
// default when the programmer does not hold it. Caller holds the lock.
func (c *Console) currentValue(f *fixture.Fixture, key string) int {
	if v, ok := c.programmer[f.ID][key]; ok {
		return v
	}
	if ch, ok := f.Type.ChannelByKey(key); ok {
		return ch.Default
	}
	return 0
}

// SetChannelValue sets a channel on every selected target that has it.
// Manual values take over from running fades.
func (c *Console) SetChannelValue(channel string, value int) error {
	key := fixture.ChannelKey(channel)
	value = clampByte(value)

	c.mu.Lock()
	targets := c.selectedTargets()
	if len(targets) == 0 {
		c.mu.Unlock()
		return ErrNoSelection
	}
	var changedGroups []*grouphandle.Handle
	for _, t := range targets {
		switch t := t.(type) {
		case realFixture:
			if _, ok := t.f.Type.ChannelByKey(key); !ok {
				continue
			}
			c.fades.Release(t.f.ID, key)
			c.setValueLocked(t.f.ID, key, value)
		case virtualFixture:
			h, err := c.groups.SetValue(t.h.Number, key, value)
			if err == nil {
				changedGroups = append(changedGroups, h)
			}
		}
	}
	c.mu.Unlock()

	c.saveGroups(changedGroups)
	return nil
}

// fanWeight is the share of an encoder move applied to the i-th of n
// selected targets.
func fanWeight(mode string, i, n int) float64 {
	if n <= 1 {
		return 1
	}
	p := float64(i) / float64(n-1)
	switch mode {
	case FanLeft:
		return 1 - p
	case FanRight:
		return p
	case FanCenter:
		return 2*p - 1
	case FanOutside:
		return 1 - math.Abs(2*p-1)
	}
	return 1
}

// SetEncoderValue moves a channel by delta on every selected target,
// spread by the fan mode when the fan axis matches. It returns the new value
// of the first target.
func (c *Console) SetEncoderValue(channel string, delta int) (int, error) {
	key := fixture.ChannelKey(channel)

	c.mu.Lock()
	targets := c.selectedTargets()
	if len(targets) == 0 {
		c.mu.Unlock()
		return 0, ErrNoSelection
	}
	mode := FanOff
	if c.fanMode != FanOff && (c.fanAxis == "" || c.fanAxis == key) {
		mode = c.fanMode
	}

	first := -1
	var changedGroups []*grouphandle.Handle
	for i, t := range targets {
		step := int(math.Round(float64(delta) * fanWeight(mode, i, len(targets))))
		var next int
		switch t := t.(type) {
		case realFixture:
			if _, ok := t.f.Type.ChannelByKey(key); !ok {
				continue
			}
			next = clampByte(c.currentValue(t.f, key) + step)
			c.fades.Release(t.f.ID, key)
			c.setValueLocked(t.f.ID, key, next)
		case virtualFixture:
			next = clampByte(t.h.Values[key] + step)
			h, err := c.groups.SetValue(t.h.Number, key, next)
			if err != nil {
				continue
			}
			changedGroups = append(changedGroups, h)
		}
		if first < 0 {
			first = next
		}
	}
	c.mu.Unlock()

	c.saveGroups(changedGroups)
	if first < 0 {
		return 0, fmt.Errorf("channel %s not found on selected fixtures", channel)
	}
	return first, nil
}

// Fan sets how encoder moves are spread across the selection. An empty axis
// fans every channel.
func (c *Console) Fan(mode, axis string) error {
	switch mode {
	case FanOff, FanCenter, FanLeft, FanRight, FanOutside:
	default:
		return fmt.Errorf("unknown fan mode %q", mode)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if mode != FanOff && len(c.selection) < 2 {
		return fmt.Errorf("fan needs at least two selected fixtures")
	}
	c.fanMode = mode
	c.fanAxis = fixture.ChannelKey(axis)
	return nil
}

// Highlight turns highlight on, off, or toggles it, and returns the new state.
func (c *Console) Highlight(mode string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch mode {
	case "on":
		c.highlight = true
	case "off":
		c.highlight = false
	case "toggle", "":
		c.highlight = !c.highlight
	default:
		return c.highlight, fmt.Errorf("unknown highlight mode %q", mode)
	}
	return c.highlight, nil
}

// Locate brings the selected fixtures to a known look: full intensity, open
// white, pan and tilt centered. Other channels return to their defaults.
func (c *Console) Locate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fixtures := c.selectedFixtures()
	if len(fixtures) == 0 {
		return ErrNoSelection
	}
	for _, f := range fixtures {
		for _, ch := range f.Type.Channels {
			key := ch.Key()
			value := ch.Default
			switch {
			case fixture.FeatureSetForChannel(key) == fixture.FeatureIntensity:
				value = 255
			case intensity.IsColorChannel(key):
				value = 255
			case (strings.Contains(key, "pan") || strings.Contains(key, "tilt")) && !strings.Contains(key, "fine"):
				value = 128
			}
			c.fades.Release(f.ID, key)
			c.setValueLocked(f.ID, key, value)
		}
	}
	return nil
}

// Clear empties the programmer and the selection and stops programmer fades.
func (c *Console) Clear() error {
	c.fades.CancelAllFades()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.programmer = make(Snapshot)
	c.selection = nil
	c.highlight = false
	c.fanMode = FanOff
	c.fanAxis = ""
	log.Debug().Msg("Programmer cleared")
	return nil
}

// ToggleBlackout flips blackout and returns the new state.
func (c *Console) ToggleBlackout() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blackout = !c.blackout
	log.Info().Bool("blackout", c.blackout).Msg("🌑 Blackout toggled")
	return c.blackout, nil
}

// SetMaster sets the grand master.
func (c *Console) SetMaster(value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.master = clampByte(value)
	return nil
}

// ActiveFeatureSet returns the active feature set, or "" when none is.
func (c *Console) ActiveFeatureSet() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.featureSet
}

// SetFeatureSet switches the active feature set.
func (c *Console) SetFeatureSet(name string) error {
	if !fixture.IsFeatureSet(name) {
		return fmt.Errorf("unknown feature set %q", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.featureSet = name
	return nil
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
