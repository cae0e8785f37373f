package console

import (
	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/dmx"
	"github.com/bbernstein/lacylights-console/internal/services/intensity"
)

// BuildFrame renders every patched fixture into its universe. Each channel
// takes the programmer value, else the most recent active executor's value,
// else the channel default; group handles are folded over it and the grand
// master is applied by the intensity normalizer. Blackout yields zeros.
func (c *Console) BuildFrame() dmx.Frame {
	c.mu.RLock()
	defer c.mu.RUnlock()

	frame := make(dmx.Frame, c.universeCount)
	for u := 0; u < c.universeCount; u++ {
		frame[u] = make([]byte, dmx.UniverseSize)
	}
	if c.blackout {
		return frame
	}

	highlighted := make(map[string]bool)
	if c.highlight {
		for _, f := range c.selectedFixtures() {
			highlighted[f.ID] = true
		}
	}
	executors := c.activeExecutors()

	for _, f := range c.fixtures {
		hasDimmer := f.Type.HasChannel(intensity.DimmerChannel)
		values := make(fixture.Values, len(f.Type.Channels))
		for _, ch := range f.Type.Channels {
			key := ch.Key()
			raw, ok := c.programmer[f.ID][key]
			if !ok {
				raw = ch.Default
				for _, e := range executors {
					if v, held := e.Values[f.ID][key]; held {
						raw = v
						break
					}
				}
			}
			if highlighted[f.ID] && highlightChannel(key, hasDimmer) {
				raw = 255
			}
			values[key] = int(c.groups.Apply(f.ID, key, raw))
		}

		out := intensity.CalculateDMXOutput(f, values, c.master)
		buf, ok := frame[f.Universe]
		if !ok {
			buf = make([]byte, dmx.UniverseSize)
			frame[f.Universe] = buf
		}
		for i, ch := range f.Type.Channels {
			if addr := f.Address - 1 + ch.Offset; addr >= 0 && addr < dmx.UniverseSize {
				buf[addr] = out[i]
			}
		}
	}
	return frame
}

// highlightChannel reports whether highlight drives a channel to full:
// intensity channels, and color channels on fixtures without a dimmer.
func highlightChannel(key string, hasDimmer bool) bool {
	if fixture.FeatureSetForChannel(key) == fixture.FeatureIntensity {
		return true
	}
	return !hasDimmer && intensity.IsColorChannel(key)
}
