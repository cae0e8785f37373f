package console

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/lacylights-console/internal/services/fade"
)

const cueFadeID = "cue"

// RecordCue stores the programmer as cue number; 0 picks the next free
// number. It returns the recorded cue number.
func (c *Console) RecordCue(number int, name string) (int, error) {
	c.mu.Lock()
	if len(c.programmer) == 0 {
		c.mu.Unlock()
		return 0, errors.New("nothing to record: the programmer is empty")
	}
	if number == 0 {
		number = c.nextCueNumber()
	}
	cue := &Cue{Number: number, Name: name, FadeTime: c.fadeTime, Values: c.programmer.Clone()}
	if existing, ok := c.cues[number]; ok {
		cue.FadeTime = existing.FadeTime
		if name == "" {
			cue.Name = existing.Name
		}
	}
	if cue.Name == "" {
		cue.Name = fmt.Sprintf("Cue %d", number)
	}
	c.cues[number] = cue
	c.current = number
	saved := copyCue(cue)
	c.mu.Unlock()

	log.Info().Int("cue", number).Str("name", saved.Name).Msg("🎬 Cue recorded")
	c.persist("cue", func(ctx context.Context, s Store) error { return s.SaveCue(ctx, saved) })
	return number, nil
}

func (c *Console) nextCueNumber() int {
	max := 0
	for n := range c.cues {
		if n > max {
			max = n
		}
	}
	return max + 1
}

// UpdateCue merges the programmer into a cue; 0 means the current cue.
func (c *Console) UpdateCue(number int) (int, error) {
	c.mu.Lock()
	if number == 0 {
		number = c.current
	}
	cue, ok := c.cues[number]
	if !ok {
		c.mu.Unlock()
		if number == 0 {
			return 0, errors.New("no cue is active")
		}
		return 0, fmt.Errorf("cue %d: %w", number, ErrNotFound)
	}
	for id, values := range c.programmer {
		merged := cue.Values[id].Clone()
		for k, v := range values {
			merged[k] = v
		}
		cue.Values[id] = merged
	}
	saved := copyCue(cue)
	c.mu.Unlock()

	c.persist("cue", func(ctx context.Context, s Store) error { return s.SaveCue(ctx, saved) })
	return number, nil
}

// RecallCue fades the programmer to a cue over the cue's fade time.
func (c *Console) RecallCue(number int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recallCueLocked(number)
}

func (c *Console) recallCueLocked(number int) error {
	cue, ok := c.cues[number]
	if !ok {
		return fmt.Errorf("cue %d: %w", number, ErrNotFound)
	}

	var targets []fade.Target
	for id, values := range cue.Values {
		f, ok := c.fixtures[id]
		if !ok {
			continue
		}
		for key, v := range values {
			targets = append(targets, fade.Target{
				FixtureID: id,
				Channel:   key,
				Start:     c.currentValue(f, key),
				Value:     v,
			})
		}
	}

	if cue.FadeTime <= 0 {
		for _, t := range targets {
			c.fades.Release(t.FixtureID, t.Channel)
			c.setValueLocked(t.FixtureID, t.Channel, t.Value)
		}
	} else {
		duration := time.Duration(cue.FadeTime * float64(time.Second))
		c.fades.FadeTo(targets, duration, cueFadeID, fade.EasingInOutSine, nil)
	}
	c.current = number
	log.Info().Int("cue", number).Float64("fadeTime", cue.FadeTime).Msg("🎬 Cue recalled")
	return nil
}

// GoCue recalls cue number, or the cue after the current one when number
// is 0. It returns the cue that was recalled.
func (c *Console) GoCue(number int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if number == 0 {
		numbers := c.cueNumbers()
		i := sort.SearchInts(numbers, c.current+1)
		if i >= len(numbers) {
			return 0, errors.New("no more cues")
		}
		number = numbers[i]
	}
	if err := c.recallCueLocked(number); err != nil {
		return 0, err
	}
	return number, nil
}

// SetCueTime changes the fade time of a cue.
func (c *Console) SetCueTime(number int, seconds float64) error {
	c.mu.Lock()
	cue, ok := c.cues[number]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("cue %d: %w", number, ErrNotFound)
	}
	cue.FadeTime = seconds
	saved := copyCue(cue)
	c.mu.Unlock()

	c.persist("cue", func(ctx context.Context, s Store) error { return s.SaveCue(ctx, saved) })
	return nil
}

// SetFadeTime sets the fade time given to newly recorded cues.
func (c *Console) SetFadeTime(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fadeTime = seconds
	return nil
}

// DeleteCue arms the deletion of a cue; an empty line confirms it.
func (c *Console) DeleteCue(number int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cues[number]; !ok {
		return "", fmt.Errorf("cue %d: %w", number, ErrNotFound)
	}
	desc := fmt.Sprintf("cue %d", number)
	c.pending = &pendingDelete{description: desc, apply: func() error {
		c.mu.Lock()
		delete(c.cues, number)
		if c.current == number {
			c.current = 0
		}
		c.mu.Unlock()
		c.persist("cue", func(ctx context.Context, s Store) error { return s.DeleteCue(ctx, number) })
		return nil
	}}
	return confirmMessage(desc), nil
}

// Cue returns a copy of a cue.
func (c *Console) Cue(number int) (*Cue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cue, ok := c.cues[number]
	if !ok {
		return nil, false
	}
	return copyCue(cue), true
}

func copyCue(cue *Cue) *Cue {
	cp := *cue
	cp.Values = cue.Values.Clone()
	return &cp
}

// RecordExecutor stores the programmer on an executor.
func (c *Console) RecordExecutor(number int, name string) error {
	c.mu.Lock()
	if len(c.programmer) == 0 {
		c.mu.Unlock()
		return errors.New("nothing to record: the programmer is empty")
	}
	e := &Executor{Number: number, Name: name, Values: c.programmer.Clone()}
	if existing, ok := c.executors[number]; ok {
		e.Active, e.order = existing.Active, existing.order
		if name == "" {
			e.Name = existing.Name
		}
	}
	if e.Name == "" {
		e.Name = fmt.Sprintf("Executor %d", number)
	}
	c.executors[number] = e
	saved := *e
	saved.Values = e.Values.Clone()
	c.mu.Unlock()

	c.persist("executor", func(ctx context.Context, s Store) error { return s.SaveExecutor(ctx, &saved) })
	return nil
}

// Executor switches an executor on ("go") or off ("off"). Active executors
// feed channels the programmer does not hold; the most recently started one
// wins.
func (c *Console) Executor(number int, action string) error {
	c.mu.Lock()
	e, ok := c.executors[number]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("executor %d: %w", number, ErrNotFound)
	}
	switch action {
	case "go":
		c.execOrder++
		e.Active, e.order = true, c.execOrder
	case "off":
		e.Active = false
	default:
		c.mu.Unlock()
		return fmt.Errorf("unknown executor action %q", action)
	}
	saved := *e
	saved.Values = e.Values.Clone()
	c.mu.Unlock()

	c.persist("executor", func(ctx context.Context, s Store) error { return s.SaveExecutor(ctx, &saved) })
	return nil
}

// activeExecutors returns active executors, most recently started first.
// Caller holds the lock.
func (c *Console) activeExecutors() []*Executor {
	var list []*Executor
	for _, e := range c.executors {
		if e.Active {
			list = append(list, e)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].order > list[j].order })
	return list
}
