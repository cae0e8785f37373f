package fixture

import (
	"fmt"
	"sort"
	"sync"
)

func channels(names ...string) []Channel {
	out := make([]Channel, len(names))
	for i, name := range names {
		out[i] = Channel{Name: name, Offset: i}
	}
	return out
}

// builtinTypes are always available for patching.
func builtinTypes() []*Type {
	spot := channels("Pan", "Pan Fine", "Tilt", "Tilt Fine", "Dimmer", "Shutter", "Color Wheel", "Gobo", "Gobo Rotation", "Prism", "Focus", "Zoom")
	// Shutter open by default so a dimmer level is visible.
	spot[5].Default = 255
	return []*Type{
		{Name: "dimmer", Channels: channels("Dimmer")},
		{Name: "rgbpar", Channels: channels("Red", "Green", "Blue")},
		{Name: "rgbwpar", Channels: channels("Red", "Green", "Blue", "White")},
		{Name: "rgbdpar", Channels: channels("Dimmer", "Red", "Green", "Blue", "Strobe")},
		{Name: "rgbawuv", Channels: channels("Red", "Green", "Blue", "Amber", "White", "UV")},
		{Name: "spot", Channels: spot},
		{Name: "wash", Channels: channels("Pan", "Tilt", "Dimmer", "Red", "Green", "Blue", "White", "Zoom", "Strobe")},
		{Name: "cmyspot", Channels: channels("Pan", "Tilt", "Cyan", "Magenta", "Yellow", "Gobo", "Focus", "Iris")},
		{Name: "videolayer", Channels: channels("Video Source", "Clip", "Opacity", "Video Output", "Playback Speed")},
	}
}

// Library is a registry of fixture types addressed by name.
type Library struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewLibrary creates a library preloaded with the built-in types.
func NewLibrary() *Library {
	l := &Library{types: make(map[string]*Type)}
	for _, t := range builtinTypes() {
		l.types[ChannelKey(t.Name)] = t
	}
	return l
}

// Register adds or replaces a fixture type.
func (l *Library) Register(t *Type) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("fixture type must have a name")
	}
	if len(t.Channels) == 0 {
		return fmt.Errorf("fixture type %q has no channels", t.Name)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types[ChannelKey(t.Name)] = t
	return nil
}

// Lookup finds a fixture type by (case-insensitive) name.
func (l *Library) Lookup(name string) (*Type, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.types[ChannelKey(name)]
	return t, ok
}

// Names returns the registered type names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.types))
	for name := range l.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
