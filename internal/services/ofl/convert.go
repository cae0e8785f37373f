package ofl

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bbernstein/lacylights-console/internal/fixture"
)

// Convert builds fixture types from an OFL fixture profile. key names the
// profile, usually the file name without ".json". A single-mode profile yields
// one type named key. A multi-mode profile yields one type per mode named
// "key:mode" plus the first mode again under the plain key.
func Convert(key string, data []byte) ([]*fixture.Type, error) {
	var oflFixture OFLFixture
	if err := json.Unmarshal(data, &oflFixture); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validateOFLFixture(&oflFixture); err != nil {
		return nil, err
	}

	key = fixture.ChannelKey(key)
	if key == "" {
		key = fixture.ChannelKey(oflFixture.Name)
	}

	var types []*fixture.Type
	for i, mode := range oflFixture.Modes {
		channels, err := modeChannels(&oflFixture, mode)
		if err != nil {
			return nil, err
		}
		if len(oflFixture.Modes) == 1 {
			return []*fixture.Type{{Name: key, Channels: channels}}, nil
		}
		if i == 0 {
			types = append(types, &fixture.Type{Name: key, Channels: channels})
		}
		types = append(types, &fixture.Type{Name: key + ":" + modeKey(mode), Channels: channels})
	}
	return types, nil
}

func modeKey(mode OFLMode) string {
	if mode.ShortName != "" {
		return fixture.ChannelKey(mode.ShortName)
	}
	return fixture.ChannelKey(mode.Name)
}

func validateOFLFixture(f *OFLFixture) error {
	if f.Name == "" {
		return fmt.Errorf("OFL fixture must have a \"name\" field")
	}
	if len(f.AvailableChannels) == 0 {
		return fmt.Errorf("OFL fixture must have \"availableChannels\" with at least one channel")
	}
	if len(f.Modes) == 0 {
		return fmt.Errorf("OFL fixture must have a \"modes\" array with at least one mode")
	}
	return nil
}

// fineAlias locates a fine channel alias within its coarse channel.
type fineAlias struct {
	parent string
	index  int
}

// modeChannels lays out the channels of one mode. Channel offsets follow the
// mode's channel list; null slots keep their offset but get no channel.
func modeChannels(f *OFLFixture, mode OFLMode) ([]fixture.Channel, error) {
	aliases := make(map[string]fineAlias)
	for name, ch := range f.AvailableChannels {
		for i, alias := range ch.FineChannelAliases {
			aliases[alias] = fineAlias{parent: name, index: i}
		}
	}

	used := make(map[string]bool)
	channels := make([]fixture.Channel, 0, len(mode.Channels))
	for offset, name := range mode.Channels {
		if name == "" {
			continue
		}
		// Switching channels list their alternatives as "A / B"; the first one is used.
		if i := strings.Index(name, " / "); i >= 0 {
			name = name[:i]
		}

		var out fixture.Channel
		if ch, ok := f.AvailableChannels[name]; ok {
			out = fixture.Channel{
				Name:    canonicalName(name, ch, used),
				Offset:  offset,
				Default: defaultValue(ch),
			}
		} else if alias, ok := aliases[name]; ok {
			parent := canonicalName(alias.parent, f.AvailableChannels[alias.parent], nil)
			fineName := name
			if parent != alias.parent {
				fineName = parent + " Fine"
				if alias.index > 0 {
					fineName += strconv.Itoa(alias.index + 1)
				}
			}
			out = fixture.Channel{Name: fineName, Offset: offset}
		} else {
			return nil, fmt.Errorf("channel %q in mode %q not found in availableChannels", name, mode.Name)
		}

		if used[fixture.ChannelKey(out.Name)] {
			return nil, fmt.Errorf("channel %q appears twice in mode %q", out.Name, mode.Name)
		}
		used[fixture.ChannelKey(out.Name)] = true
		channels = append(channels, out)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("mode %q has no channels", mode.Name)
	}
	return channels, nil
}

func primaryCapability(ch OFLChannel) *OFLCapability {
	if ch.Capability != nil {
		return ch.Capability
	}
	if len(ch.Capabilities) > 0 {
		return &ch.Capabilities[0]
	}
	return nil
}

// canonicalName renames channels whose OFL name would land in the wrong
// feature set, e.g. an Intensity channel called "Master" becomes "Dimmer".
// Names already taken in used are left alone.
func canonicalName(name string, ch OFLChannel, used map[string]bool) string {
	capability := primaryCapability(ch)
	if capability == nil {
		return name
	}

	var feature, canon string
	switch capability.Type {
	case "Intensity":
		feature, canon = fixture.FeatureIntensity, "Dimmer"
	case "ColorIntensity":
		if capability.Color == "" {
			return name
		}
		feature, canon = fixture.FeatureColor, capability.Color
		if fixture.FeatureSetForChannel(canon) != fixture.FeatureColor {
			canon = "Color " + canon
		}
	case "Pan":
		feature, canon = fixture.FeaturePosition, "Pan"
	case "Tilt":
		feature, canon = fixture.FeaturePosition, "Tilt"
	default:
		return name
	}

	if fixture.FeatureSetForChannel(name) == feature || used[fixture.ChannelKey(canon)] {
		return name
	}
	return canon
}

// defaultValue uses the profile's defaultValue when present. Otherwise
// position channels rest at the middle of their range and everything else at
// the bottom.
func defaultValue(ch OFLChannel) int {
	if v, ok := parseDefault(ch.DefaultValue); ok {
		return v
	}

	capability := primaryCapability(ch)
	if capability == nil {
		return 0
	}
	switch capability.Type {
	case "Intensity", "ColorIntensity":
		return 0
	case "Pan", "Tilt":
		if capability.DMXRange != nil {
			return (capability.DMXRange[0] + capability.DMXRange[1]) / 2
		}
		return 127
	}
	if capability.DMXRange != nil {
		return clampDMX(capability.DMXRange[0])
	}
	return 0
}

// parseDefault reads a defaultValue that is either a DMX number or a
// percentage string like "50%".
func parseDefault(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return clampDMX(n), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return 0, false
	}
	return clampDMX(int(pct*255/100 + 0.5)), true
}

func clampDMX(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
