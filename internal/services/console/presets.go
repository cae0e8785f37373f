package console

import (
	"context"
	"fmt"

	"github.com/bbernstein/lacylights-console/internal/fixture"
)

// featureValues collects the programmer values of the given fixtures that
// belong to a feature set. Caller holds the lock.
func (c *Console) featureValues(featureSet string, fixtures []*fixture.Fixture) Snapshot {
	out := make(Snapshot)
	for _, f := range fixtures {
		stored, ok := c.programmer[f.ID]
		if !ok {
			continue
		}
		values := fixture.Values{}
		for key, v := range stored {
			if fixture.FeatureSetForChannel(key) == featureSet {
				values[key] = v
			}
		}
		if len(values) > 0 {
			out[f.ID] = values
		}
	}
	return out
}

// presetSources are the fixtures a preset operation works on: the selection,
// or every patched fixture when nothing is selected. Caller holds the lock.
func (c *Console) presetSources() []*fixture.Fixture {
	if fixtures := c.selectedFixtures(); len(fixtures) > 0 {
		return fixtures
	}
	return c.sortedFixtures()
}

func (c *Console) presetSlot(featureSet string, index int) (*Preset, error) {
	slots, ok := c.presets[featureSet]
	if !ok {
		return nil, fmt.Errorf("unknown feature set %q", featureSet)
	}
	if index < 0 || index >= len(slots) {
		return nil, fmt.Errorf("preset %d is out of range (1-%d)", index+1, len(slots))
	}
	return slots[index], nil
}

// RecordPreset stores the feature set's programmer values into a preset slot.
func (c *Console) RecordPreset(featureSet string, index int, name string) error {
	c.mu.Lock()
	existing, err := c.presetSlot(featureSet, index)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	values := c.featureValues(featureSet, c.presetSources())
	if len(values) == 0 {
		c.mu.Unlock()
		return fmt.Errorf("nothing to record: no %s values in the programmer", featureSet)
	}
	if name == "" {
		if existing != nil {
			name = existing.Name
		} else {
			name = fmt.Sprintf("%s %d", featureSet, index+1)
		}
	}
	p := &Preset{FeatureSet: featureSet, Index: index, Name: name, Values: values}
	c.presets[featureSet][index] = p
	saved := *p
	saved.Values = p.Values.Clone()
	c.mu.Unlock()

	c.persist("preset", func(ctx context.Context, s Store) error { return s.SavePreset(ctx, &saved) })
	return nil
}

// UpdatePreset merges the current programmer values into an existing preset.
func (c *Console) UpdatePreset(featureSet string, index int) error {
	c.mu.Lock()
	p, err := c.presetSlot(featureSet, index)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if p == nil {
		c.mu.Unlock()
		return fmt.Errorf("preset %d of %s: %w", index+1, featureSet, ErrNotFound)
	}
	for id, values := range c.featureValues(featureSet, c.presetSources()) {
		merged := p.Values[id].Clone()
		for k, v := range values {
			merged[k] = v
		}
		p.Values[id] = merged
	}
	saved := *p
	saved.Values = p.Values.Clone()
	c.mu.Unlock()

	c.persist("preset", func(ctx context.Context, s Store) error { return s.SavePreset(ctx, &saved) })
	return nil
}

// RecallPreset loads a preset into the programmer for the selected fixtures,
// or for every fixture it holds when nothing is selected. It reports false
// for an empty slot. Recalling the same preset twice leaves the same state.
func (c *Console) RecallPreset(featureSet string, index int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.presetSlot(featureSet, index)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, nil
	}

	apply := func(id string, values fixture.Values) {
		for k, v := range values {
			c.fades.Release(id, k)
			c.setValueLocked(id, k, v)
		}
	}
	if selected := c.selectedFixtures(); len(selected) > 0 {
		for _, f := range selected {
			if values, ok := p.Values[f.ID]; ok {
				apply(f.ID, values)
			}
		}
		return true, nil
	}
	for id, values := range p.Values {
		if _, ok := c.fixtures[id]; ok {
			apply(id, values)
		}
	}
	return true, nil
}

// DeletePreset arms the deletion of a preset; an empty line confirms it.
func (c *Console) DeletePreset(featureSet string, index int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.presetSlot(featureSet, index)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", fmt.Errorf("preset %d of %s: %w", index+1, featureSet, ErrNotFound)
	}
	num, _ := fixture.FeatureSetNumber(featureSet)
	desc := fmt.Sprintf("preset %d.%d", num, index+1)
	c.pending = &pendingDelete{description: desc, apply: func() error {
		c.mu.Lock()
		c.presets[featureSet][index] = nil
		c.mu.Unlock()
		c.persist("preset", func(ctx context.Context, s Store) error { return s.DeletePreset(ctx, featureSet, index) })
		return nil
	}}
	return confirmMessage(desc), nil
}

// Preset returns a copy of a preset slot.
func (c *Console) Preset(featureSet string, index int) (*Preset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, err := c.presetSlot(featureSet, index)
	if err != nil || p == nil {
		return nil, false
	}
	cp := *p
	cp.Values = p.Values.Clone()
	return &cp, true
}

func confirmMessage(desc string) string {
	return fmt.Sprintf("Delete %s? Press enter to confirm", desc)
}
