package console

import (
	"fmt"
	"time"

	"github.com/bbernstein/lacylights-console/internal/command"
)

// stopwatch is the show clock.
type stopwatch struct {
	running bool
	started time.Time
	total   time.Duration
}

func (s *stopwatch) elapsed(now time.Time) time.Duration {
	if s.running {
		return s.total + now.Sub(s.started)
	}
	return s.total
}

// countdown is the operator timer.
type countdown struct {
	running  bool
	started  time.Time
	duration time.Duration
	used     time.Duration
}

func (t *countdown) remaining(now time.Time) time.Duration {
	used := t.used
	if t.running {
		used += now.Sub(t.started)
	}
	if left := t.duration - used; left > 0 {
		return left
	}
	return 0
}

// Clock starts, stops or resets the show clock.
func (c *Console) Clock(action string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	switch action {
	case "start":
		if !c.clock.running {
			c.clock.running = true
			c.clock.started = now
		}
	case "stop":
		c.clock.total = c.clock.elapsed(now)
		c.clock.running = false
	case "reset":
		c.clock = stopwatch{}
	default:
		return fmt.Errorf("unknown clock action %q", action)
	}
	return nil
}

// Timer starts, stops or resets the countdown, or sets its duration.
func (c *Console) Timer(action string, seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	switch action {
	case "set":
		c.timer = countdown{duration: time.Duration(seconds * float64(time.Second))}
	case "start":
		if c.timer.duration == 0 {
			return fmt.Errorf("timer has no duration: set one with timer SECONDS")
		}
		if !c.timer.running && c.timer.remaining(now) > 0 {
			c.timer.running = true
			c.timer.started = now
		}
	case "stop":
		if c.timer.running {
			c.timer.used += now.Sub(c.timer.started)
			c.timer.running = false
		}
	case "reset":
		c.timer = countdown{duration: c.timer.duration}
	default:
		return fmt.Errorf("unknown timer action %q", action)
	}
	return nil
}

// EvaluateCondition checks a conditional command's guard.
func (c *Console) EvaluateCondition(cond command.Condition) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var met bool
	switch cond.Kind {
	case "selection":
		met = len(c.selection) > 0
	case "blackout":
		met = c.blackout
	case "clock":
		met = c.clock.running
	case "timer":
		met = c.timer.running && c.timer.remaining(c.now()) > 0
	case "featureset":
		met = c.featureSet == cond.Arg
	default:
		return false, fmt.Errorf("unknown condition %q", cond.Kind)
	}
	if cond.Negate {
		met = !met
	}
	return met, nil
}
