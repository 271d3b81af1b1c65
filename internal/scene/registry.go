package scene

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/coreman2200/funtimes-cinecam/internal/control"
	"github.com/coreman2200/funtimes-cinecam/internal/ease"
)

// ErrNotReady marks an effect whose target is not available yet. Such
// effects are logged and skipped, never retried.
var ErrNotReady = errors.New("asset not ready")

// Effect parses the colon separated fields that follow the effect name in a
// trigger, e.g. "fade:ghost:in:1500ms" calls the "fade" effect with
// [ghost in 1500ms]. It runs while the scene is built, so bad arguments and
// unknown names fail the build. The returned Action runs when the trigger
// fires.
type Effect func(s *Scene, args []string) (Action, error)

// Action is a parsed effect. An error wrapping ErrNotReady is reported as a
// missing asset; any other error as a skipped effect.
type Action func(s *Scene) error

// Registry maps effect and reference names to callbacks. Scenes resolve
// names through it instead of reaching into global state.
type Registry struct {
	effects map[string]Effect
	refs    map[string]func() mgl64.Vec3
}

// NewRegistry returns a registry preloaded with the built-in effects.
func NewRegistry() *Registry {
	r := &Registry{
		effects: map[string]Effect{},
		refs:    map[string]func() mgl64.Vec3{},
	}
	r.Effect("fade", fadeEffect)
	r.Effect("show", levelEffect(1))
	r.Effect("hide", levelEffect(0))
	r.Effect("light", lightEffect)
	r.Effect("handoff", handoffEffect)
	r.Effect("start", actorEffect(true))
	r.Effect("stop", actorEffect(false))
	r.Effect("log", logEffect)
	return r
}

// Effect registers or replaces a named effect.
func (r *Registry) Effect(name string, e Effect) { r.effects[name] = e }

// Reference registers a named live position, usable by chase steps.
func (r *Registry) Reference(name string, f func() mgl64.Vec3) { r.refs[name] = f }

func (r *Registry) effect(name string) (Effect, bool) {
	e, ok := r.effects[name]
	return e, ok
}

func (r *Registry) reference(name string) (func() mgl64.Vec3, bool) {
	f, ok := r.refs[name]
	return f, ok
}

func splitEffect(spec string) (string, []string) {
	parts := strings.Split(spec, ":")
	return parts[0], parts[1:]
}

// fade:<target>:<in|out|level>:<duration>[:<ease>]
func fadeEffect(s *Scene, args []string) (Action, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("fade wants target, level and duration, got %v", args)
	}
	name := args[0]
	if !s.declared(name) {
		return nil, fmt.Errorf("fade target %q is not declared", name)
	}
	level, err := parseLevel(args[1])
	if err != nil {
		return nil, err
	}
	d, err := time.ParseDuration(args[2])
	if err != nil {
		return nil, fmt.Errorf("fade duration: %w", err)
	}
	if d < 0 {
		return nil, fmt.Errorf("fade duration %s is negative", d)
	}
	e := ease.Linear
	if len(args) > 3 {
		f, ok := ease.ByName(args[3])
		if !ok {
			return nil, fmt.Errorf("unknown ease %q", args[3])
		}
		e = f
	}
	return func(s *Scene) error {
		tgt, ok := s.Target(name)
		if !ok {
			return fmt.Errorf("fade target %q: %w", name, ErrNotReady)
		}
		s.Fader.To("target:"+name, tgt, level, d, e, nil)
		return nil
	}, nil
}

func levelEffect(level float64) Effect {
	return func(s *Scene, args []string) (Action, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("want one target, got %v", args)
		}
		name := args[0]
		if !s.declared(name) {
			return nil, fmt.Errorf("target %q is not declared", name)
		}
		return func(s *Scene) error {
			tgt, ok := s.Target(name)
			if !ok {
				return fmt.Errorf("target %q: %w", name, ErrNotReady)
			}
			s.Fader.Cancel("target:" + name)
			tgt.SetOpacity(level)
			return nil
		}, nil
	}
}

// light:<preset>[:<duration>]
func lightEffect(s *Scene, args []string) (Action, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("light wants a preset and an optional duration, got %v", args)
	}
	preset := args[0]
	if _, ok := s.file.Presets[preset]; !ok {
		return nil, fmt.Errorf("unknown light preset %q", preset)
	}
	d := time.Duration(0)
	if len(args) > 1 {
		var err error
		if d, err = time.ParseDuration(args[1]); err != nil {
			return nil, fmt.Errorf("light duration: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("light duration %s is negative", d)
		}
	}
	return func(s *Scene) error {
		tr, err := s.Rig.Transition(preset)
		if err != nil {
			return err
		}
		s.Fader.Start("light", tr, 0, 1, d, ease.InOutQuad, nil)
		return nil
	}, nil
}

// handoff:<live|sequence>
func handoffEffect(s *Scene, args []string) (Action, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("handoff wants a driver, got %v", args)
	}
	var to control.Driver
	switch args[0] {
	case "live":
		to = control.Live
	case "sequence":
		to = control.Scripted
	default:
		return nil, fmt.Errorf("unknown driver %q", args[0])
	}
	return func(s *Scene) error {
		if s.handoff == nil {
			return fmt.Errorf("no camera arbiter: %w", ErrNotReady)
		}
		s.handoff(to)
		return nil
	}, nil
}

func actorEffect(start bool) Effect {
	return func(s *Scene, args []string) (Action, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("want one actor, got %v", args)
		}
		name := args[0]
		if _, ok := s.file.Actors[name]; !ok {
			return nil, fmt.Errorf("unknown actor %q", name)
		}
		return func(s *Scene) error {
			a := s.Actors[name]
			if start {
				a.Start()
			} else {
				a.Stop()
			}
			return nil
		}, nil
	}
}

func logEffect(s *Scene, args []string) (Action, error) {
	msg := strings.Join(args, ":")
	return func(s *Scene) error {
		s.log.Info().Str("scene", s.Name).Msg(msg)
		return nil
	}, nil
}

func parseLevel(s string) (float64, error) {
	switch s {
	case "in":
		return 1, nil
	case "out":
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("fade level %q: %w", s, err)
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("fade level %v is outside [0, 1]", v)
	}
	return v, nil
}
