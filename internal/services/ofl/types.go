// Package ofl converts Open Fixture Library JSON profiles into console fixture types.
package ofl

import "encoding/json"

// OFLCapability describes what a channel can do
type OFLCapability struct {
	Type            string  `json:"type"`
	Color           string  `json:"color,omitempty"`
	DMXRange        *[2]int `json:"dmxRange,omitempty"`
	Comment         string  `json:"comment,omitempty"`
	BrightnessStart string  `json:"brightnessStart,omitempty"`
	BrightnessEnd   string  `json:"brightnessEnd,omitempty"`
}

// OFLChannel represents a channel in OFL format
type OFLChannel struct {
	DefaultValue       json.RawMessage `json:"defaultValue,omitempty"`
	Capability         *OFLCapability  `json:"capability,omitempty"`
	Capabilities       []OFLCapability `json:"capabilities,omitempty"`
	FineChannelAliases []string        `json:"fineChannelAliases,omitempty"`
}

// OFLMode represents an operating mode. Unused slots are null in the JSON and
// decode as empty names.
type OFLMode struct {
	Name      string   `json:"name"`
	ShortName string   `json:"shortName,omitempty"`
	Channels  []string `json:"channels"`
}

// OFLFixture represents the complete OFL fixture JSON structure
type OFLFixture struct {
	Name              string                `json:"name"`
	ShortName         string                `json:"shortName,omitempty"`
	Categories        []string              `json:"categories"`
	Modes             []OFLMode             `json:"modes"`
	AvailableChannels map[string]OFLChannel `json:"availableChannels"`
}

// Manufacturer represents a manufacturer entry from the OFL manufacturers.json
type Manufacturer struct {
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
}
