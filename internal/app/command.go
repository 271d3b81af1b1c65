package app

import (
	"fmt"

	"github.com/coreman2200/funtimes-cinecam/internal/control"
	"github.com/coreman2200/funtimes-cinecam/internal/input"
)

// Command is a control request from outside the loop.
type Command struct {
	Op      string  `json:"op"` // start | stop | scene | handoff | key | mouse | wheel
	Scene   string  `json:"scene,omitempty"`
	Instant bool    `json:"instant,omitempty"`
	Driver  string  `json:"driver,omitempty"` // live | sequence
	Key     string  `json:"key,omitempty"`
	Down    bool    `json:"down,omitempty"`
	DX      float64 `json:"dx,omitempty"`
	DY      float64 `json:"dy,omitempty"`
	Wheel   float64 `json:"wheel,omitempty"`
}

// Submit validates a command. Input events go straight to the input state,
// which is safe to share; everything else is queued for the loop.
func (c *Core) Submit(cmd Command) error {
	switch cmd.Op {
	case "key":
		k, ok := input.ParseKey(cmd.Key)
		if !ok {
			return fmt.Errorf("unknown key %q", cmd.Key)
		}
		if cmd.Down {
			c.Input.Press(k)
		} else {
			c.Input.Release(k)
		}
		return nil
	case "mouse":
		c.Input.Move(cmd.DX, cmd.DY)
		return nil
	case "wheel":
		c.Input.Scroll(cmd.Wheel)
		return nil
	case "start", "stop":
	case "scene":
		if _, ok := c.Scenes.Scene(cmd.Scene); !ok {
			return fmt.Errorf("unknown scene %q", cmd.Scene)
		}
	case "handoff":
		if _, err := parseDriver(cmd.Driver); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown op %q", cmd.Op)
	}
	select {
	case c.cmds <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *Core) drain() {
	for {
		select {
		case cmd := <-c.cmds:
			c.apply(cmd)
		default:
			return
		}
	}
}

func (c *Core) apply(cmd Command) {
	var err error
	switch cmd.Op {
	case "start":
		err = c.Scenes.Restart()
	case "stop":
		c.Scenes.Stop()
	case "scene":
		err = c.Scenes.SwitchTo(cmd.Scene, cmd.Instant)
	case "handoff":
		var d control.Driver
		if d, err = parseDriver(cmd.Driver); err == nil {
			c.Arbiter.Handoff(d)
		}
	}
	if err != nil {
		c.log.Warn().Err(err).Str("op", cmd.Op).Msg("control command")
		return
	}
	c.log.Debug().Str("op", cmd.Op).Msg("control command")
}

func parseDriver(s string) (control.Driver, error) {
	switch s {
	case "live", string(control.Live):
		return control.Live, nil
	case string(control.Scripted):
		return control.Scripted, nil
	}
	return "", fmt.Errorf("unknown driver %q", s)
}
