package console

import (
	"fmt"

	"github.com/bbernstein/lacylights-console/internal/command"
	"github.com/bbernstein/lacylights-console/internal/dispatch"
	"github.com/bbernstein/lacylights-console/internal/services/pubsub"
)

// WindowEvent is published when a window opens, closes or is routed.
type WindowEvent struct {
	Window Window `json:"window"`
	Action string `json:"action"`
}

// VideoEvent is published on every video transport change.
type VideoEvent struct {
	Video  Video  `json:"video"`
	Action string `json:"action"`
}

// NDIRoute is published when an NDI source is routed to an output.
type NDIRoute struct {
	Source string `json:"source"`
	Output int    `json:"output"`
}

func (c *Console) window(number int) (*Window, bool) {
	if number < 1 || number > len(c.windows) {
		return nil, false
	}
	return c.windows[number-1], true
}

func (c *Console) windowByName(name string) (*Window, bool) {
	for _, w := range c.windows {
		if w.Name == name {
			return w, true
		}
	}
	return nil, false
}

func (c *Console) setWindow(number int, open bool) dispatch.WindowResult {
	c.mu.Lock()
	w, ok := c.window(number)
	if !ok {
		c.mu.Unlock()
		return dispatch.WindowResult{Message: fmt.Sprintf("No window %d (1-%d)", number, len(c.windows))}
	}
	w.Open = open
	snapshot := *w
	c.mu.Unlock()

	action := "closed"
	if open {
		action = "opened"
	}
	c.publish(pubsub.TopicWindow, snapshot.Name, WindowEvent{Window: snapshot, Action: action})
	return dispatch.WindowResult{Success: true, WindowName: snapshot.Name}
}

// OpenWindow opens a window of the registry by number.
func (c *Console) OpenWindow(number int) dispatch.WindowResult {
	return c.setWindow(number, true)
}

// CloseWindow closes a window of the registry by number.
func (c *Console) CloseWindow(number int) dispatch.WindowResult {
	return c.setWindow(number, false)
}

// RouteWindow makes dest show source ("video/1 output/2").
func (c *Console) RouteWindow(source, dest command.WindowRef) error {
	c.mu.Lock()
	if _, ok := c.windowByName(source.Name); !ok {
		c.mu.Unlock()
		return fmt.Errorf("window %s: %w", source.Name, ErrNotFound)
	}
	w, ok := c.windowByName(dest.Name)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("window %s: %w", dest.Name, ErrNotFound)
	}
	w.Source = source.Name
	if source.Object != "" {
		w.Source += "/" + source.Object
	}
	snapshot := *w
	c.mu.Unlock()

	c.publish(pubsub.TopicWindow, snapshot.Name, WindowEvent{Window: snapshot, Action: "routed"})
	return nil
}

// RecordView remembers the open windows as view number. An empty name keeps
// the existing name.
func (c *Console) RecordView(number int, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := &View{Number: number, Name: name}
	if existing, ok := c.views[number]; ok && name == "" {
		v.Name = existing.Name
	}
	if v.Name == "" {
		v.Name = fmt.Sprintf("View %d", number)
	}
	for _, w := range c.windows {
		if w.Open {
			v.Windows = append(v.Windows, w.Number)
		}
	}
	c.views[number] = v
	return nil
}

// RecallView opens exactly the windows a view remembers.
func (c *Console) RecallView(number int) error {
	c.mu.Lock()
	v, ok := c.views[number]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("view %d: %w", number, ErrNotFound)
	}
	open := make(map[int]bool, len(v.Windows))
	for _, n := range v.Windows {
		open[n] = true
	}
	var changed []Window
	for _, w := range c.windows {
		if w.Open != open[w.Number] {
			w.Open = open[w.Number]
			changed = append(changed, *w)
		}
	}
	c.mu.Unlock()

	for _, w := range changed {
		action := "closed"
		if w.Open {
			action = "opened"
		}
		c.publish(pubsub.TopicWindow, w.Name, WindowEvent{Window: w, Action: action})
	}
	return nil
}

// videoChange applies fn to a video input and publishes the new state.
// create allows an input that has never been played.
func (c *Console) videoChange(input int, action string, create bool, fn func(v *Video) error) dispatch.VideoResult {
	if input < 1 {
		return dispatch.VideoResult{Message: fmt.Sprintf("Invalid video input %d", input)}
	}
	c.mu.Lock()
	v, ok := c.videos[input]
	if !ok {
		if !create {
			c.mu.Unlock()
			return dispatch.VideoResult{Message: fmt.Sprintf("Video %d is not playing", input)}
		}
		v = &Video{Input: input, State: VideoStopped, Speed: 1}
		c.videos[input] = v
	}
	if err := fn(v); err != nil {
		c.mu.Unlock()
		return dispatch.VideoResult{Message: err.Error()}
	}
	snapshot := *v
	c.mu.Unlock()

	c.publish(pubsub.TopicVideo, fmt.Sprintf("video%d", input), VideoEvent{Video: snapshot, Action: action})
	return dispatch.VideoResult{Success: true, Message: fmt.Sprintf("Video %d %s", input, action)}
}

// VideoPlay starts a video input on an output.
func (c *Console) VideoPlay(input, output int) dispatch.VideoResult {
	if output < 1 {
		return dispatch.VideoResult{Message: fmt.Sprintf("Invalid video output %d", output)}
	}
	return c.videoChange(input, fmt.Sprintf("playing on output %d", output), true, func(v *Video) error {
		v.Output = output
		v.State = VideoPlaying
		return nil
	})
}

// VideoPause pauses a playing video.
func (c *Console) VideoPause(input int) dispatch.VideoResult {
	return c.videoChange(input, "paused", false, func(v *Video) error {
		if v.State != VideoPlaying {
			return fmt.Errorf("video %d is not playing", input)
		}
		v.State = VideoPaused
		return nil
	})
}

// VideoStop stops a video.
func (c *Console) VideoStop(input int) dispatch.VideoResult {
	return c.videoChange(input, "stopped", false, func(v *Video) error {
		v.State = VideoStopped
		return nil
	})
}

// VideoRestart plays a video from the start on its last output.
func (c *Console) VideoRestart(input int) dispatch.VideoResult {
	return c.videoChange(input, "restarted", false, func(v *Video) error {
		v.State = VideoPlaying
		return nil
	})
}

// VideoLoop switches looping.
func (c *Console) VideoLoop(input int, on bool) dispatch.VideoResult {
	action := "loop off"
	if on {
		action = "loop on"
	}
	return c.videoChange(input, action, true, func(v *Video) error {
		v.Loop = on
		return nil
	})
}

// VideoSpeed sets the playback speed factor.
func (c *Console) VideoSpeed(input int, speed float64) dispatch.VideoResult {
	return c.videoChange(input, fmt.Sprintf("speed %gx", speed), true, func(v *Video) error {
		v.Speed = speed
		return nil
	})
}

// RouteNDI sends an NDI source to a video output.
func (c *Console) RouteNDI(source string, output int) error {
	if output < 1 {
		return fmt.Errorf("invalid video output %d", output)
	}
	c.mu.Lock()
	c.ndi[output] = source
	c.mu.Unlock()
	c.publish(pubsub.TopicVideo, fmt.Sprintf("output%d", output), NDIRoute{Source: source, Output: output})
	return nil
}
