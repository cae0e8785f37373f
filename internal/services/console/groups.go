package console

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/grouphandle"
)

func (c *Console) saveGroups(handles []*grouphandle.Handle) {
	for _, h := range handles {
		h := h
		c.persist("group", func(ctx context.Context, s Store) error { return s.SaveGroup(ctx, h) })
	}
}

func (c *Console) saveGroup(h *grouphandle.Handle, err error) error {
	if err != nil {
		return err
	}
	c.saveGroups([]*grouphandle.Handle{h})
	return nil
}

func (c *Console) selectedFixtureIDs() []string {
	fixtures := c.selectedFixtures()
	ids := make([]string, len(fixtures))
	for i, f := range fixtures {
		ids[i] = f.ID
	}
	return ids
}

// RecordGroup creates group number from the selected fixtures. Recording
// over an existing group replaces its members and name only.
func (c *Console) RecordGroup(number int, name string) error {
	c.mu.Lock()
	members := c.selectedFixtureIDs()
	if len(members) == 0 {
		c.mu.Unlock()
		return ErrNoSelection
	}
	var (
		h   *grouphandle.Handle
		err error
	)
	if _, ok := c.groups.ByNumber(number); ok {
		h, err = c.groups.SetMembers(number, members)
		if err == nil && name != "" {
			h, err = c.groups.SetName(number, name)
		}
	} else {
		h, err = c.groups.Create(number, name, members, nil)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	log.Info().Int("group", number).Int("members", len(h.Members)).Msg("👥 Group recorded")
	c.saveGroups([]*grouphandle.Handle{h})
	return nil
}

// UpdateGroup replaces the members of an existing group with the selection.
func (c *Console) UpdateGroup(number int) error {
	c.mu.Lock()
	if _, ok := c.groups.ByNumber(number); !ok {
		c.mu.Unlock()
		return fmt.Errorf("group %d: %w", number, ErrNotFound)
	}
	members := c.selectedFixtureIDs()
	if len(members) == 0 {
		c.mu.Unlock()
		return ErrNoSelection
	}
	h, err := c.groups.SetMembers(number, members)
	c.mu.Unlock()
	return c.saveGroup(h, err)
}

// RecordGroupFromExecutor creates group number from the fixtures an executor
// holds; the executor's values become the group's override values.
func (c *Console) RecordGroupFromExecutor(number, executor int, name string) error {
	c.mu.Lock()
	e, ok := c.executors[executor]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("executor %d: %w", executor, ErrNotFound)
	}
	var members []*fixture.Fixture
	for id := range e.Values {
		if f, ok := c.fixtures[id]; ok {
			members = append(members, f)
		}
	}
	if len(members) == 0 {
		c.mu.Unlock()
		return fmt.Errorf("executor %d holds no patched fixtures", executor)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Number < members[j].Number })

	ids := make([]string, len(members))
	values := fixture.Values{}
	for i, f := range members {
		ids[i] = f.ID
		for k, v := range e.Values[f.ID] {
			if _, seen := values[k]; !seen {
				values[k] = v
			}
		}
	}
	if name == "" {
		name = e.Name
	}
	h, err := c.groups.Create(number, name, ids, values)
	c.mu.Unlock()
	return c.saveGroup(h, err)
}

// RecallGroup selects the members of a group.
func (c *Console) RecallGroup(number int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.groups.ByNumber(number)
	if !ok {
		return fmt.Errorf("group %d: %w", number, ErrNotFound)
	}
	var members []string
	for _, id := range h.Members {
		if _, ok := c.fixtures[id]; ok {
			members = append(members, id)
		}
	}
	if len(members) == 0 {
		return fmt.Errorf("group %d has no patched members", number)
	}
	c.selection = members
	return nil
}

// SetGroupMode changes a group's blending mode.
func (c *Console) SetGroupMode(number int, mode string) error {
	m, err := grouphandle.ParseMode(mode)
	if err != nil {
		return err
	}
	return c.saveGroup(c.Groups().SetMode(number, m))
}

// SetGroupPriority changes a group's priority.
func (c *Console) SetGroupPriority(number, priority int) error {
	return c.saveGroup(c.Groups().SetPriority(number, priority))
}

// SetGroupIntensity changes a group's scaling percentage.
func (c *Console) SetGroupIntensity(number, percent int) error {
	return c.saveGroup(c.Groups().SetIntensity(number, percent))
}

// SetGroupActive switches a group on or off.
func (c *Console) SetGroupActive(number int, active bool) error {
	return c.saveGroup(c.Groups().SetActive(number, active))
}

// SetGroupValue sets one override channel of a group.
func (c *Console) SetGroupValue(number int, channel string, value int) error {
	return c.saveGroup(c.Groups().SetValue(number, channel, value))
}

// ApplyPresetToGroup copies a preset's values into a group's overrides,
// taking each channel from the first member the preset holds it for.
func (c *Console) ApplyPresetToGroup(number int, featureSet string, index int) error {
	c.mu.Lock()
	h, ok := c.groups.ByNumber(number)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("group %d: %w", number, ErrNotFound)
	}
	p, err := c.presetSlot(featureSet, index)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if p == nil {
		c.mu.Unlock()
		return fmt.Errorf("preset %d of %s: %w", index+1, featureSet, ErrNotFound)
	}
	values := fixture.Values{}
	for _, id := range h.Members {
		for k, v := range p.Values[id] {
			if _, seen := values[k]; !seen {
				values[k] = v
			}
		}
	}
	if len(values) == 0 {
		c.mu.Unlock()
		return fmt.Errorf("preset %d of %s holds no values for group %d", index+1, featureSet, number)
	}
	updated, err := c.groups.SetValues(number, values)
	c.mu.Unlock()
	return c.saveGroup(updated, err)
}

// DeleteGroup arms the deletion of a group; an empty line confirms it.
func (c *Console) DeleteGroup(number int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.groups.ByNumber(number)
	if !ok {
		return "", fmt.Errorf("group %d: %w", number, ErrNotFound)
	}
	desc := fmt.Sprintf("group %d", number)
	id := h.IDString()
	c.pending = &pendingDelete{description: desc, apply: func() error {
		c.mu.Lock()
		c.groups.Delete(number)
		c.selection = without(c.selection, id)
		c.mu.Unlock()
		c.persist("group", func(ctx context.Context, s Store) error { return s.DeleteGroup(ctx, number) })
		return nil
	}}
	return confirmMessage(desc), nil
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
