// Package intensity scales fixture output by the grand master so that
// fixtures with and without a dimmer channel respond to it the same way.
package intensity

import (
	"math"

	"github.com/bbernstein/lacylights-console/internal/fixture"
)

// DimmerChannel is the channel name that marks a fixture as having discrete dimming.
const DimmerChannel = "Dimmer"

// colorChannels are scaled by the master on fixtures without a Dimmer channel.
var colorChannels = map[string]bool{
	"red":     true,
	"green":   true,
	"blue":    true,
	"white":   true,
	"amber":   true,
	"uv":      true,
	"cyan":    true,
	"magenta": true,
	"yellow":  true,
}

// IsColorChannel reports whether a channel is scaled as virtual intensity.
func IsColorChannel(name string) bool {
	return colorChannels[fixture.ChannelKey(name)]
}

// CalculateDMXOutput returns one byte per channel of the fixture, in
// channel-table order. Missing values fall back to the channel default.
//
// If the fixture has a channel named exactly "Dimmer" only that channel is
// scaled by master/255; otherwise every color channel is scaled instead.
func CalculateDMXOutput(f *fixture.Fixture, values fixture.Values, master int) []byte {
	if f == nil || f.Type == nil {
		return nil
	}

	master = clamp(master)
	hasDimmer := f.Type.HasChannel(DimmerChannel)

	out := make([]byte, len(f.Type.Channels))
	for i, ch := range f.Type.Channels {
		value, ok := values[ch.Key()]
		if !ok {
			value = ch.Default
		}

		scaled := float64(clamp(value))
		switch {
		case hasDimmer && ch.Name == DimmerChannel:
			scaled = scaled * float64(master) / 255
		case !hasDimmer && colorChannels[ch.Key()]:
			scaled = scaled * float64(master) / 255
		}
		out[i] = byte(clamp(int(math.Round(scaled))))
	}
	return out
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
