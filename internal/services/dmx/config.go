package dmx

import (
	"strings"

	"github.com/bbernstein/lacylights-console/pkg/artnet"
	"github.com/bbernstein/lacylights-console/pkg/sacn"
)

// Output modes.
const (
	ModeBroadcast = "broadcast"
	ModeUnicast   = "unicast"
	ModeMulticast = "multicast"
)

const (
	// DefaultBroadcastAddr is used for Art-Net broadcast when no address is set.
	DefaultBroadcastAddr = "255.255.255.255"
	// DefaultSourceName identifies this console in sACN receivers.
	DefaultSourceName = "LacyLights Console"
)

// ArtNetConfig is the persisted Art-Net output configuration.
type ArtNetConfig struct {
	Enabled       bool   `json:"enabled"`
	IPAddress     string `json:"ipAddress"`
	Port          int    `json:"port"`
	UniverseStart int    `json:"universeStart"`
	UniverseRange int    `json:"universeRange"`
	Mode          string `json:"mode"`
}

// DefaultArtNetConfig returns Art-Net broadcast on the default port.
func DefaultArtNetConfig() ArtNetConfig {
	return ArtNetConfig{
		Enabled:       true,
		IPAddress:     DefaultBroadcastAddr,
		Port:          artnet.DefaultPort,
		UniverseStart: 0,
		UniverseRange: 4,
		Mode:          ModeBroadcast,
	}
}

// Normalize fills defaults and clamps out-of-range fields.
func (c ArtNetConfig) Normalize() ArtNetConfig {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	switch c.Mode {
	case ModeBroadcast, ModeUnicast, ModeMulticast:
	default:
		c.Mode = ModeBroadcast
	}
	if c.IPAddress == "" && c.Mode == ModeBroadcast {
		c.IPAddress = DefaultBroadcastAddr
	}
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = artnet.DefaultPort
	}
	if c.UniverseStart < 0 {
		c.UniverseStart = 0
	}
	if c.UniverseStart > artnet.UniverseMask {
		c.UniverseStart = artnet.UniverseMask
	}
	if c.UniverseRange < 0 {
		c.UniverseRange = 0
	}
	return c
}

// Covers reports whether a console universe is inside the configured range.
// A zero range covers every universe.
func (c ArtNetConfig) Covers(universe int) bool {
	return c.UniverseRange == 0 || universe < c.UniverseRange
}

// SACNConfig is the persisted sACN (E1.31) output configuration.
type SACNConfig struct {
	Enabled       bool   `json:"enabled"`
	Mode          string `json:"mode"`
	IPAddress     string `json:"ipAddress"`
	Port          int    `json:"port"`
	UniverseStart int    `json:"universeStart"`
	UniverseRange int    `json:"universeRange"`
	SourceName    string `json:"sourceName"`
	Priority      int    `json:"priority"`
}

// DefaultSACNConfig returns disabled multicast output starting at universe 1.
func DefaultSACNConfig() SACNConfig {
	return SACNConfig{
		Enabled:       false,
		Mode:          ModeMulticast,
		Port:          sacn.DefaultPort,
		UniverseStart: 1,
		UniverseRange: 4,
		SourceName:    DefaultSourceName,
		Priority:      sacn.DefaultPriority,
	}
}

// Normalize fills defaults and clamps out-of-range fields.
func (c SACNConfig) Normalize() SACNConfig {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode != ModeUnicast {
		c.Mode = ModeMulticast
	}
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = sacn.DefaultPort
	}
	if c.UniverseStart < 1 {
		c.UniverseStart = 1
	}
	if c.UniverseStart > 63999 {
		c.UniverseStart = 63999
	}
	if c.UniverseRange < 0 {
		c.UniverseRange = 0
	}
	if c.SourceName == "" {
		c.SourceName = DefaultSourceName
	}
	if len(c.SourceName) > sacn.MaxSourceNameLength {
		c.SourceName = c.SourceName[:sacn.MaxSourceNameLength]
	}
	c.Priority = int(sacn.ClampPriority(c.Priority))
	return c
}

// Covers reports whether a console universe is inside the configured range.
func (c SACNConfig) Covers(universe int) bool {
	return c.UniverseRange == 0 || universe < c.UniverseRange
}

// Destination returns where packets for a protocol universe are sent.
func (c SACNConfig) Destination(universe uint16) string {
	if c.Mode == ModeUnicast && c.IPAddress != "" {
		return c.IPAddress
	}
	return sacn.MulticastAddress(universe)
}
