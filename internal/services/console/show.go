package console

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/pubsub"
)

// ShowStore is implemented by stores that can swap a whole show at once.
type ShowStore interface {
	ReplaceShow(ctx context.Context, show Show) error
}

// Show returns a copy of the stored objects: patch, presets, cues, group
// handles and executors, each ordered by number.
func (c *Console) Show() Show {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var show Show
	for _, f := range c.sortedFixtures() {
		cp := *f
		show.Fixtures = append(show.Fixtures, &cp)
	}
	for _, fs := range fixture.FeatureSets {
		for _, p := range c.presets[fs] {
			if p == nil {
				continue
			}
			show.Presets = append(show.Presets, &Preset{FeatureSet: p.FeatureSet, Index: p.Index, Name: p.Name, Values: p.Values.Clone()})
		}
	}
	for _, n := range c.cueNumbers() {
		cue := c.cues[n]
		show.Cues = append(show.Cues, &Cue{Number: cue.Number, Name: cue.Name, FadeTime: cue.FadeTime, Values: cue.Values.Clone()})
	}
	handles := c.groups.List()
	sort.Slice(handles, func(i, j int) bool { return handles[i].Number < handles[j].Number })
	for _, h := range handles {
		show.Groups = append(show.Groups, *h)
	}
	numbers := make([]int, 0, len(c.executors))
	for n := range c.executors {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		e := c.executors[n]
		show.Executors = append(show.Executors, &Executor{Number: e.Number, Name: e.Name, Values: e.Values.Clone(), Active: e.Active})
	}
	return show
}

// ReplaceShow restores a show and, when the store supports it, replaces the
// stored show with it. The programmer and selection are cleared.
func (c *Console) ReplaceShow(ctx context.Context, show Show) error {
	if err := c.Restore(show); err != nil {
		return err
	}

	c.mu.Lock()
	c.programmer = make(Snapshot)
	c.selection = nil
	c.current = 0
	c.pending = nil
	c.mu.Unlock()

	if rs, ok := c.store.(ShowStore); ok {
		if err := rs.ReplaceShow(ctx, show); err != nil {
			log.Error().Err(err).Msg("❌ Failed to persist imported show")
			return err
		}
	}
	c.publish(pubsub.TopicConsoleState, "", c.State())
	return nil
}
