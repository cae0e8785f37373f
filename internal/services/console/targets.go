package console

import (
	"fmt"
	"strconv"

	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/grouphandle"
)

// Target is anything that can be selected and given channel values: a patched
// fixture or a group handle acting as a virtual fixture. Both share one id
// space ("fx3", "4001").
type Target interface {
	ID() string
	// Channels returns the channel names the target accepts, in order.
	Channels() []string
	isTarget()
}

type realFixture struct {
	f *fixture.Fixture
}

func (r realFixture) ID() string { return r.f.ID }

func (r realFixture) Channels() []string {
	names := make([]string, len(r.f.Type.Channels))
	for i, ch := range r.f.Type.Channels {
		names[i] = ch.Name
	}
	return names
}

func (realFixture) isTarget() {}

type virtualFixture struct {
	h       *grouphandle.Handle
	members []*fixture.Fixture
}

func (v virtualFixture) ID() string { return v.h.IDString() }

// Channels is the union of the member channels, in member order.
func (v virtualFixture) Channels() []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range v.members {
		for _, ch := range f.Type.Channels {
			if !seen[ch.Key()] {
				seen[ch.Key()] = true
				names = append(names, ch.Name)
			}
		}
	}
	return names
}

func (virtualFixture) isTarget() {}

// lookup resolves an id in the shared address table. Caller holds the lock.
func (c *Console) lookup(id string) (Target, bool) {
	if f, ok := c.fixtures[id]; ok {
		return realFixture{f: f}, true
	}
	n, err := strconv.Atoi(id)
	if err != nil || n < grouphandle.BaseID {
		return nil, false
	}
	h, ok := c.groups.Get(n)
	if !ok {
		return nil, false
	}
	v := virtualFixture{h: h}
	for _, m := range h.Members {
		if f, ok := c.fixtures[m]; ok {
			v.members = append(v.members, f)
		}
	}
	return v, true
}

// FixtureIDs lists every addressable id: fixtures by number, then group handles.
func (c *Console) FixtureIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []string
	for _, f := range c.sortedFixtures() {
		ids = append(ids, f.ID)
	}
	for _, h := range c.groups.List() {
		ids = append(ids, h.IDString())
	}
	return ids
}

// SetSelectedFixtures replaces the selection. Unknown ids are rejected.
func (c *Console) SetSelectedFixtures(ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if _, ok := c.lookup(id); !ok {
			return fmt.Errorf("fixture %s: %w", id, ErrNotFound)
		}
	}
	c.selection = append([]string(nil), ids...)
	return nil
}

// SelectedFixtures returns the selected ids.
func (c *Console) SelectedFixtures() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.selection...)
}

// AvailableChannels returns the channels every selected target has, in the
// order of the first selected target.
func (c *Console) AvailableChannels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.commonChannels()
}

func (c *Console) commonChannels() []string {
	var common []string
	started := false
	for _, id := range c.selection {
		t, ok := c.lookup(id)
		if !ok {
			continue
		}
		names := t.Channels()
		if !started {
			common, started = names, true
			continue
		}
		have := make(map[string]bool, len(names))
		for _, n := range names {
			have[fixture.ChannelKey(n)] = true
		}
		kept := common[:0:0]
		for _, n := range common {
			if have[fixture.ChannelKey(n)] {
				kept = append(kept, n)
			}
		}
		common = kept
	}
	return common
}

// selectedTargets resolves the selection. Caller holds the lock.
func (c *Console) selectedTargets() []Target {
	targets := make([]Target, 0, len(c.selection))
	for _, id := range c.selection {
		if t, ok := c.lookup(id); ok {
			targets = append(targets, t)
		}
	}
	return targets
}

// selectedFixtures returns the real fixtures in the selection, expanding
// group handles to their members. Caller holds the lock.
func (c *Console) selectedFixtures() []*fixture.Fixture {
	seen := make(map[string]bool)
	var out []*fixture.Fixture
	add := func(f *fixture.Fixture) {
		if !seen[f.ID] {
			seen[f.ID] = true
			out = append(out, f)
		}
	}
	for _, t := range c.selectedTargets() {
		switch t := t.(type) {
		case realFixture:
			add(t.f)
		case virtualFixture:
			for _, f := range t.members {
				add(f)
			}
		}
	}
	return out
}
