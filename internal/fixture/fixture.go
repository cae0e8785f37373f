// Package fixture contains the fixture and channel data model shared by the
// console, the blending engine, and the DMX output path.
package fixture

import (
	"fmt"
	"strings"
)

// Feature set names, in coordinate order (feature set 1 is intensity).
const (
	FeatureIntensity   = "intensity"
	FeaturePosition    = "position"
	FeatureColor       = "color"
	FeatureFocus       = "focus"
	FeatureGobo        = "gobo"
	FeatureBeam        = "beam"
	FeatureVideoSource = "videosource"
	FeatureVideoOutput = "videooutput"
)

// FeatureSets lists the eight feature sets; index i is feature set number i+1.
var FeatureSets = []string{
	FeatureIntensity,
	FeaturePosition,
	FeatureColor,
	FeatureFocus,
	FeatureGobo,
	FeatureBeam,
	FeatureVideoSource,
	FeatureVideoOutput,
}

// MaxUniverse is the highest patchable universe, the top of the 15-bit
// Art-Net port address.
const MaxUniverse = 0x7fff

// PresetsPerFeatureSet is the number of preset slots in each feature set.
const PresetsPerFeatureSet = 12

// FeatureSetName returns the name of a 1-based feature set number.
func FeatureSetName(number int) (string, bool) {
	if number < 1 || number > len(FeatureSets) {
		return "", false
	}
	return FeatureSets[number-1], true
}

// FeatureSetNumber returns the 1-based number of a feature set name.
func FeatureSetNumber(name string) (int, bool) {
	for i, fs := range FeatureSets {
		if fs == name {
			return i + 1, true
		}
	}
	return 0, false
}

// IsFeatureSet reports whether name is one of the eight feature sets.
func IsFeatureSet(name string) bool {
	_, ok := FeatureSetNumber(name)
	return ok
}

// featureRules maps channel key fragments to feature sets, checked in order.
var featureRules = []struct {
	fragment string
	feature  string
}{
	{"dimmer", FeatureIntensity},
	{"intensity", FeatureIntensity},
	{"pan", FeaturePosition},
	{"tilt", FeaturePosition},
	{"red", FeatureColor},
	{"green", FeatureColor},
	{"blue", FeatureColor},
	{"white", FeatureColor},
	{"amber", FeatureColor},
	{"uv", FeatureColor},
	{"cyan", FeatureColor},
	{"magenta", FeatureColor},
	{"yellow", FeatureColor},
	{"color", FeatureColor},
	{"cto", FeatureColor},
	{"hue", FeatureColor},
	{"saturation", FeatureColor},
	{"focus", FeatureFocus},
	{"zoom", FeatureFocus},
	{"iris", FeatureFocus},
	{"frost", FeatureFocus},
	{"gobo", FeatureGobo},
	{"prism", FeatureGobo},
	{"strobe", FeatureBeam},
	{"shutter", FeatureBeam},
	{"effect", FeatureBeam},
	{"video_source", FeatureVideoSource},
	{"clip", FeatureVideoSource},
	{"layer", FeatureVideoSource},
	{"video_output", FeatureVideoOutput},
	{"opacity", FeatureVideoOutput},
	{"playback_speed", FeatureVideoOutput},
}

// FeatureSetForChannel classifies a channel key into a feature set. Channels
// that match no rule belong to the beam feature set.
func FeatureSetForChannel(key string) string {
	key = ChannelKey(key)
	for _, rule := range featureRules {
		if strings.Contains(key, rule.fragment) {
			return rule.feature
		}
	}
	return FeatureBeam
}

// ChannelKey normalizes a channel name: lower-case with spaces replaced by
// underscores ("Pan Fine" becomes "pan_fine").
func ChannelKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Values maps channel keys to DMX values in [0,255].
type Values map[string]int

// Clone returns a copy of the value set.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Channel is one entry of a fixture type's channel table.
type Channel struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Offset  int    `json:"offset" yaml:"offset" toml:"offset"`
	Default int    `json:"default" yaml:"default" toml:"default"`
}

// Key returns the normalized channel key.
func (c Channel) Key() string {
	return ChannelKey(c.Name)
}

// Type is a fixture profile: an ordered list of named channels.
type Type struct {
	Name     string    `json:"name" yaml:"name" toml:"name"`
	Channels []Channel `json:"channels" yaml:"channels" toml:"channels"`
}

// ChannelCount returns the DMX footprint of the type.
func (t *Type) ChannelCount() int {
	max := 0
	for _, ch := range t.Channels {
		if ch.Offset+1 > max {
			max = ch.Offset + 1
		}
	}
	return max
}

// HasChannel reports whether the type has a channel with exactly the given name.
func (t *Type) HasChannel(name string) bool {
	for _, ch := range t.Channels {
		if ch.Name == name {
			return true
		}
	}
	return false
}

// ChannelByKey finds a channel by normalized key.
func (t *Type) ChannelByKey(key string) (Channel, bool) {
	key = ChannelKey(key)
	for _, ch := range t.Channels {
		if ch.Key() == key {
			return ch, true
		}
	}
	return Channel{}, false
}

// Keys returns the channel keys in channel-table order.
func (t *Type) Keys() []string {
	keys := make([]string, len(t.Channels))
	for i, ch := range t.Channels {
		keys[i] = ch.Key()
	}
	return keys
}

// Fixture is a patched lighting device.
type Fixture struct {
	ID       string `json:"id"`
	Number   int    `json:"number"`
	Name     string `json:"name"`
	Type     *Type  `json:"type"`
	Universe int    `json:"universe"` // 0-based console universe
	Address  int    `json:"address"`  // 1-based DMX start address
}

// IDFor returns the canonical fixture id for a fixture number.
func IDFor(number int) string {
	return fmt.Sprintf("fx%d", number)
}

// ChannelCount returns the number of DMX slots the fixture occupies.
func (f *Fixture) ChannelCount() int {
	if f.Type == nil {
		return 0
	}
	return f.Type.ChannelCount()
}

// Validate checks that the fixture fits inside its universe.
func (f *Fixture) Validate() error {
	if f.Type == nil {
		return fmt.Errorf("fixture %s has no type", f.ID)
	}
	if f.Universe < 0 || f.Universe > MaxUniverse {
		return fmt.Errorf("fixture %s: universe %d out of range (0-%d)", f.ID, f.Universe, MaxUniverse)
	}
	if f.Address < 1 || f.Address+f.ChannelCount()-1 > 512 {
		return fmt.Errorf("fixture %s: address %d with %d channels does not fit in a universe", f.ID, f.Address, f.ChannelCount())
	}
	return nil
}

// Overlaps reports whether two fixtures share any DMX slot.
func (f *Fixture) Overlaps(other *Fixture) bool {
	if f.Universe != other.Universe {
		return false
	}
	aStart, aEnd := f.Address, f.Address+f.ChannelCount()-1
	bStart, bEnd := other.Address, other.Address+other.ChannelCount()-1
	return aStart <= bEnd && bStart <= aEnd
}
