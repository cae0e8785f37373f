// Package grouphandle implements group handles: virtual fixtures that blend
// an override onto their member fixtures' output by priority and mode.
package grouphandle

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bbernstein/lacylights-console/internal/fixture"
)

// BaseID is the first id assigned to a group handle; group number G has id BaseID+G-1.
const BaseID = 4001

// Mode is the blending mode of a group handle.
type Mode string

const (
	// ModeInhibitive can only pull output down: min(value, override).
	ModeInhibitive Mode = "INHIBITIVE"
	// ModeAdditive adds the override: min(255, value + override).
	ModeAdditive Mode = "ADDITIVE"
	// ModeScaling scales the incoming value by the handle intensity percentage.
	ModeScaling Mode = "SCALING"
	// ModeSubtractive subtracts the override: max(0, value - override).
	ModeSubtractive Mode = "SUBTRACTIVE"
)

// ParseMode converts a mode name (any case) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeInhibitive:
		return ModeInhibitive, nil
	case ModeAdditive:
		return ModeAdditive, nil
	case ModeScaling:
		return ModeScaling, nil
	case ModeSubtractive:
		return ModeSubtractive, nil
	}
	return "", fmt.Errorf("unknown blending mode %q", s)
}

// Handle is a group handle.
type Handle struct {
	ID        int            `json:"id"`
	Number    int            `json:"number"`
	Name      string         `json:"name"`
	Mode      Mode           `json:"mode"`
	Members   []string       `json:"members"`
	Values    fixture.Values `json:"values"`
	Intensity int            `json:"intensity"` // percent, SCALING only
	Active    bool           `json:"active"`
	Priority  int            `json:"priority"`

	seq int
}

// IDString returns the handle id as used in the shared fixture address space.
func (h *Handle) IDString() string {
	return strconv.Itoa(h.ID)
}

// Includes reports whether a fixture is a member of the handle.
func (h *Handle) Includes(fixtureID string) bool {
	for _, m := range h.Members {
		if m == fixtureID {
			return true
		}
	}
	return false
}

// Blend applies this handle to a value for one fixture channel. Inactive
// handles and handles that do not include the fixture pass the value through.
func (h *Handle) Blend(fixtureID, channelKey string, value int) int {
	if !h.Active || !h.Includes(fixtureID) {
		return value
	}
	if h.Mode == ModeScaling {
		return clampByte(int(math.Round(float64(value) * float64(h.Intensity) / 100)))
	}
	override, ok := h.Values[channelKey]
	if !ok {
		return value
	}
	switch h.Mode {
	case ModeInhibitive:
		if override < value {
			return override
		}
		return value
	case ModeAdditive:
		return clampByte(value + override)
	case ModeSubtractive:
		return clampByte(value - override)
	}
	return value
}

func (h *Handle) clone() *Handle {
	c := *h
	c.Members = append([]string(nil), h.Members...)
	c.Values = h.Values.Clone()
	return &c
}

// Engine holds the group handles and folds them over programmer values.
type Engine struct {
	mu      sync.RWMutex
	handles map[int]*Handle // keyed by group number
	order   []*Handle       // handles in application order, rebuilt on change
	nextSeq int
}

// NewEngine creates an empty engine.
func NewEngine() *Engine {
	return &Engine{handles: make(map[int]*Handle)}
}

// Create adds (or replaces) group number G with the given members.
// New handles default to INHIBITIVE, priority 50, intensity 100 and active.
func (e *Engine) Create(number int, name string, members []string, values fixture.Values) (*Handle, error) {
	if number < 1 {
		return nil, fmt.Errorf("group number must be positive, got %d", number)
	}
	if values == nil {
		values = fixture.Values{}
	}
	if name == "" {
		name = fmt.Sprintf("Group %d", number)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextSeq++
	h := &Handle{
		ID:        BaseID + number - 1,
		Number:    number,
		Name:      name,
		Mode:      ModeInhibitive,
		Members:   dedupe(members),
		Values:    values.Clone(),
		Intensity: 100,
		Active:    true,
		Priority:  50,
		seq:       e.nextSeq,
	}
	e.handles[number] = h
	e.reorder()
	return h.clone(), nil
}

// Restore inserts a handle as loaded from storage.
func (e *Engine) Restore(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSeq++
	h.ID = BaseID + h.Number - 1
	h.Members = dedupe(h.Members)
	if h.Values == nil {
		h.Values = fixture.Values{}
	}
	h.seq = e.nextSeq
	e.handles[h.Number] = &h
	e.reorder()
}

// ByNumber returns a copy of group G.
func (e *Engine) ByNumber(number int) (*Handle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handles[number]
	if !ok {
		return nil, false
	}
	return h.clone(), true
}

// Get returns a copy of the handle with the given id (4001+).
func (e *Engine) Get(id int) (*Handle, bool) {
	return e.ByNumber(id - BaseID + 1)
}

// List returns copies of all handles in application order.
func (e *Engine) List() []*Handle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Handle, len(e.order))
	for i, h := range e.order {
		out[i] = h.clone()
	}
	return out
}

// reorder rebuilds the application order: ascending priority, creation
// order on ties. Caller holds the write lock.
func (e *Engine) reorder() {
	list := make([]*Handle, 0, len(e.handles))
	for _, h := range e.handles {
		list = append(list, h)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority < list[j].Priority
		}
		return list[i].seq < list[j].seq
	})
	e.order = list
}

// Apply folds every handle over a raw programmer value in ascending priority
// order, so higher priorities are applied last and dominate.
func (e *Engine) Apply(fixtureID, channelKey string, raw int) byte {
	e.mu.RLock()
	defer e.mu.RUnlock()

	value := clampByte(raw)
	for _, h := range e.order {
		value = h.Blend(fixtureID, channelKey, value)
	}
	return byte(value)
}

// Delete removes group G.
func (e *Engine) Delete(number int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.handles[number]; !ok {
		return false
	}
	delete(e.handles, number)
	e.reorder()
	return true
}

func (e *Engine) update(number int, fn func(h *Handle)) (*Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.handles[number]
	if !ok {
		return nil, fmt.Errorf("group %d does not exist", number)
	}
	fn(h)
	return h.clone(), nil
}

// SetMode changes the blending mode of group G.
func (e *Engine) SetMode(number int, mode Mode) (*Handle, error) {
	return e.update(number, func(h *Handle) { h.Mode = mode })
}

// SetPriority changes the priority of group G, clamped to [0,100].
func (e *Engine) SetPriority(number, priority int) (*Handle, error) {
	return e.update(number, func(h *Handle) {
		h.Priority = clamp(priority, 0, 100)
		e.reorder()
	})
}

// SetIntensity changes the scaling percentage of group G, clamped to [0,100].
func (e *Engine) SetIntensity(number, percent int) (*Handle, error) {
	return e.update(number, func(h *Handle) { h.Intensity = clamp(percent, 0, 100) })
}

// SetActive activates or deactivates group G.
func (e *Engine) SetActive(number int, active bool) (*Handle, error) {
	return e.update(number, func(h *Handle) { h.Active = active })
}

// SetValue sets one override channel of group G.
func (e *Engine) SetValue(number int, channelKey string, value int) (*Handle, error) {
	return e.update(number, func(h *Handle) { h.Values[fixture.ChannelKey(channelKey)] = clampByte(value) })
}

// SetValues merges override values into group G.
func (e *Engine) SetValues(number int, values fixture.Values) (*Handle, error) {
	return e.update(number, func(h *Handle) {
		for k, v := range values {
			h.Values[fixture.ChannelKey(k)] = clampByte(v)
		}
	})
}

// SetName renames group G.
func (e *Engine) SetName(number int, name string) (*Handle, error) {
	return e.update(number, func(h *Handle) { h.Name = name })
}

// SetMembers replaces the member list of group G.
func (e *Engine) SetMembers(number int, members []string) (*Handle, error) {
	return e.update(number, func(h *Handle) { h.Members = dedupe(members) })
}

// RemoveFixture prunes a deleted fixture from every handle and returns the
// numbers of the handles that changed.
func (e *Engine) RemoveFixture(fixtureID string) []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	var changed []int
	for number, h := range e.handles {
		kept := h.Members[:0]
		for _, m := range h.Members {
			if m != fixtureID {
				kept = append(kept, m)
			}
		}
		if len(kept) != len(h.Members) {
			changed = append(changed, number)
		}
		h.Members = kept
	}
	sort.Ints(changed)
	return changed
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
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

func clampByte(value int) int {
	return clamp(value, 0, 255)
}
