package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-cinecam/internal/config"
	"github.com/coreman2200/funtimes-cinecam/internal/control"
	diag "github.com/coreman2200/funtimes-cinecam/internal/diagnostics"
	"github.com/coreman2200/funtimes-cinecam/internal/input"
	"github.com/coreman2200/funtimes-cinecam/internal/lightrig"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
	"github.com/coreman2200/funtimes-cinecam/internal/scene"
)

// ErrQueueFull is returned by Submit when the loop is not keeping up.
var ErrQueueFull = errors.New("command queue full")

// Frame is what the loop publishes after every tick.
type Frame struct {
	ID       uint64               `json:"frame_id"`
	T        int64                `json:"t"`
	Scene    string               `json:"scene"`
	Step     string               `json:"step,omitempty"`
	Index    int                  `json:"index"`
	Progress float64              `json:"progress"`
	Driver   control.Driver       `json:"driver"`
	Pose     pose.Pose            `json:"pose"`
	Overlay  float64              `json:"overlay"`
	Levels   map[string]float64   `json:"levels,omitempty"`
	Lights   map[string]float64   `json:"lights,omitempty"`
	Actors   map[string]pose.Pose `json:"actors,omitempty"`
}

// Core owns the engine. Only the loop goroutine touches scenes, the arbiter
// and the controllers; other goroutines go through Submit and Latest.
type Core struct {
	RunID    string
	Input    *input.State
	Arbiter  *control.Arbiter
	Scenes   *scene.Manager
	Registry *scene.Registry
	Diag     *diag.Log

	start    string
	period   time.Duration
	maxDelta time.Duration
	mirror   *lightrig.Mirror
	cmds     chan Command
	log      zerolog.Logger

	mu     sync.RWMutex
	latest Frame
	subs   []func(Frame)
	id     uint64
}

type Options struct {
	Config   *config.Config
	Files    []*scene.File
	Registry *scene.Registry // nil means the built-in effects only
	Mirror   *lightrig.Mirror
	Diag     *diag.Log
	Logger   zerolog.Logger
}

// New wires input, controllers, arbiter and scene manager, and builds every
// scene file. Any scene that fails to build fails New.
func New(o Options) (*Core, error) {
	cfg := o.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	freq, _ := cfg.Frequency()
	if o.Registry == nil {
		o.Registry = scene.NewRegistry()
	}
	if o.Diag == nil {
		o.Diag = diag.NewLog(200)
	}
	runID := uuid.NewString()
	log := o.Logger.With().Str("run", runID).Logger()

	tuning := cfg.Tuning()
	fps := control.NewFPS(tuning)
	third := control.NewThirdPerson(tuning)
	live := map[string]control.Controller{
		"fps":   control.NewToggle(fps, third),
		"third": control.NewToggle(third, fps),
	}

	c := &Core{
		RunID:    runID,
		Input:    input.NewState(),
		Registry: o.Registry,
		Diag:     o.Diag,
		start:    cfg.StartScene,
		period:   freq.Period(),
		maxDelta: cfg.MaxDelta,
		mirror:   o.Mirror,
		cmds:     make(chan Command, 64),
		log:      log,
	}
	c.Arbiter = control.NewArbiter(live[cfg.Live.Mode], c.Input,
		control.WithArbiterLogger(log),
		control.OnSwitch(func(from, to control.Driver) {
			c.Diag.Push(diag.Diagnostic{
				Severity: diag.Info,
				Code:     diag.DriverSwitched,
				Summary:  "Camera driver changed",
				Evidence: map[string]any{"from": from, "to": to},
			})
		}),
	)
	c.Scenes = scene.NewManager(c.Arbiter,
		scene.WithLiveControllers(live),
		scene.WithTransition(cfg.Transition),
		scene.WithManagerLogger(log),
		scene.WithDiagnostics(c.Diag),
	)

	for _, f := range o.Files {
		s, err := scene.Build(f, scene.Options{
			Registry:       o.Registry,
			Logger:         log,
			Diagnostics:    c.Diag,
			PixelsPerLight: cfg.Rig.PixelsPerLight,
			WhiteCap:       cfg.Rig.WhiteCap,
		})
		if err != nil {
			c.Diag.Push(diag.Diagnostic{
				Severity:       diag.Err,
				Code:           diag.ConfigInvalid,
				Summary:        "Scene failed to build",
				Detail:         err.Error(),
				SuggestedFixes: []string{"check effect, ease and target names in the scene file"},
			})
			return nil, fmt.Errorf("build scene %q: %w", f.Name, err)
		}
		c.Scenes.Add(s)
	}
	if _, ok := c.Scenes.Scene(c.start); !ok {
		return nil, fmt.Errorf("start scene %q: %w", c.start, scene.ErrUnknownScene)
	}
	return c, nil
}

// Period is the frame period derived from the configured frame rate.
func (c *Core) Period() time.Duration { return c.period }

// OnFrame registers a frame observer, called on the loop goroutine.
func (c *Core) OnFrame(f func(Frame)) {
	c.mu.Lock()
	c.subs = append(c.subs, f)
	c.mu.Unlock()
}

// Latest returns the most recently published frame.
func (c *Core) Latest() Frame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Begin enters the start scene.
func (c *Core) Begin() error {
	return c.Scenes.SwitchTo(c.start, true)
}

// Step runs one frame: queued commands, then the scenes, then publication.
// dt is clamped to [0, max_delta] first.
func (c *Core) Step(dt time.Duration) Frame {
	dt = ClampDelta(dt, c.maxDelta)
	c.drain()
	p := c.Scenes.Tick(dt)
	f := c.snapshot(p)
	if cur := c.Scenes.Current(); cur != nil && c.mirror != nil {
		if err := c.mirror.Draw(cur.Rig.Frame()); err != nil {
			c.log.Debug().Err(err).Str("mirror", c.mirror.String()).Msg("draw lights")
		}
	}
	c.publish(f)
	return f
}

// Run ticks at the configured frame rate until ctx is done, measuring the
// real time between ticks.
func (c *Core) Run(ctx context.Context) error {
	if err := c.Begin(); err != nil {
		return err
	}
	tick := time.NewTicker(c.period)
	defer tick.Stop()
	last := time.Now()
	c.log.Info().Dur("period", c.period).Str("scene", c.start).Msg("frame loop starting")
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("frame loop stopped")
			return nil
		case now := <-tick.C:
			c.Step(now.Sub(last))
			last = now
		}
	}
}

// Close releases the light mirror.
func (c *Core) Close() error {
	return c.mirror.Close()
}

func (c *Core) snapshot(p pose.Pose) Frame {
	c.id++
	f := Frame{
		ID:      c.id,
		T:       time.Now().UnixNano(),
		Driver:  c.Arbiter.Active(),
		Pose:    p,
		Overlay: c.Scenes.Overlay(),
	}
	cur := c.Scenes.Current()
	if cur == nil {
		return f
	}
	f.Scene = cur.Name
	f.Index = cur.Camera.Index()
	f.Progress = cur.Camera.Progress()
	if st, ok := cur.Camera.Step(); ok {
		f.Step = st.Name
	}
	f.Levels = cur.Levels()
	if lights := cur.Rig.Lights(); len(lights) > 0 {
		f.Lights = make(map[string]float64, len(lights))
		for _, l := range lights {
			f.Lights[l.Name] = l.Intensity
		}
	}
	if len(cur.Actors) > 0 {
		f.Actors = cur.ActorPoses()
	}
	return f
}

func (c *Core) publish(f Frame) {
	c.mu.Lock()
	c.latest = f
	subs := append(([]func(Frame))(nil), c.subs...)
	c.mu.Unlock()
	for _, s := range subs {
		s(f)
	}
}

// SceneNames lists the loaded scenes. The set is fixed after New, so this is
// safe from any goroutine.
func (c *Core) SceneNames() []string { return c.Scenes.Names() }

// ClampDelta bounds a measured frame delta to [0, max]. A stalled frame
// advances at most max; a clock that steps backwards advances nothing.
func ClampDelta(dt, max time.Duration) time.Duration {
	if dt < 0 {
		return 0
	}
	if max > 0 && dt > max {
		return max
	}
	return dt
}
