package scene

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-cinecam/internal/control"
	diag "github.com/coreman2200/funtimes-cinecam/internal/diagnostics"
	"github.com/coreman2200/funtimes-cinecam/internal/ease"
	"github.com/coreman2200/funtimes-cinecam/internal/fade"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
	"github.com/coreman2200/funtimes-cinecam/internal/sequence"
)

var (
	ErrUnknownScene = errors.New("unknown scene")
	ErrBusy         = errors.New("scene transition in progress")
)

const DefaultTransition = time.Second

// Manager owns the registered scenes, the one that is current and the
// overlay fade between them.
type Manager struct {
	scenes  map[string]*Scene
	current *Scene
	arb     *control.Arbiter
	live    map[string]control.Controller

	overlay       *fade.Value
	fader         *fade.Fader
	transitioning bool
	transition    time.Duration

	onChange func(from, to string)
	log      zerolog.Logger
	diag     diag.Sink
}

type ManagerOption func(*Manager)

// WithLiveControllers maps handoff modes ("fps", "third") to controllers.
func WithLiveControllers(live map[string]control.Controller) ManagerOption {
	return func(m *Manager) { m.live = live }
}

// OnSceneChange observes completed scene switches.
func OnSceneChange(f func(from, to string)) ManagerOption {
	return func(m *Manager) { m.onChange = f }
}

// WithTransition sets the total out-and-in overlay time.
func WithTransition(d time.Duration) ManagerOption {
	return func(m *Manager) { m.transition = d }
}

func WithManagerLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

func WithDiagnostics(s diag.Sink) ManagerOption {
	return func(m *Manager) { m.diag = s }
}

func NewManager(arb *control.Arbiter, opts ...ManagerOption) *Manager {
	m := &Manager{
		scenes:     map[string]*Scene{},
		arb:        arb,
		live:       map[string]control.Controller{},
		overlay:    &fade.Value{},
		fader:      fade.NewFader(),
		transition: DefaultTransition,
		log:        zerolog.Nop(),
		diag:       diag.Discard,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Add registers a scene, wiring its viewer reference and handoff effect to
// the manager's arbiter. A scene with the same name is replaced.
func (m *Manager) Add(s *Scene) {
	s.viewer = m.arb.Pose
	s.handoff = func(d control.Driver) {
		if d == control.Live && s.Handoff != "" {
			m.useController(s.Handoff)
		}
		m.arb.Handoff(d)
	}
	m.scenes[s.Name] = s
}

func (m *Manager) Scene(name string) (*Scene, bool) {
	s, ok := m.scenes[name]
	return s, ok
}

// Names lists registered scenes, sorted.
func (m *Manager) Names() []string {
	out := make([]string, 0, len(m.scenes))
	for k := range m.scenes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Current is the active scene, nil before the first switch.
func (m *Manager) Current() *Scene { return m.current }

func (m *Manager) Transitioning() bool { return m.transitioning }

// Overlay is the black overlay level, 1 at the midpoint of a transition.
func (m *Manager) Overlay() float64 { return m.overlay.V }

// SwitchTo exits the current scene and enters name. With instant, or when no
// scene is current yet, there is no overlay fade. Requests made while a
// transition runs are refused with ErrBusy.
func (m *Manager) SwitchTo(name string, instant bool) error {
	next, ok := m.scenes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScene, name)
	}
	if m.transitioning {
		return ErrBusy
	}
	if m.current == next {
		return nil
	}
	from := ""
	if m.current != nil {
		from = m.current.Name
	}
	m.log.Info().Str("from", from).Str("to", name).Bool("instant", instant).Msg("scene switch")

	if m.current == nil || instant || m.transition <= 0 {
		m.fader.Cancel("transition")
		m.overlay.V = 0
		m.swap(next)
		m.finish(from, name)
		return nil
	}

	m.transitioning = true
	half := m.transition / 2
	m.fader.Start("transition", m.overlay, m.overlay.V, 1, half, ease.InOutQuad, func() {
		m.swap(next)
		m.fader.Start("transition", m.overlay, 1, 0, half, ease.InOutQuad, func() {
			m.finish(from, name)
		})
	})
	return nil
}

func (m *Manager) swap(next *Scene) {
	if m.current != nil {
		m.current.Exit()
	}
	m.current = next
	m.enter(next)
}

func (m *Manager) enter(next *Scene) {
	m.arb.SetSequence(next.Camera)
	m.arb.Handoff(control.Scripted)
	next.Enter(sequence.Hooks{
		OnStepChange: func(from, to int, step string) {
			m.log.Debug().Str("scene", next.Name).Int("from", from).Int("to", to).Str("step", step).Msg("camera step")
		},
		OnComplete: func() { m.completed(next) },
	})
}

// Restart replays the current scene from the top, giving the camera back to
// the sequence.
func (m *Manager) Restart() error {
	if m.transitioning {
		return ErrBusy
	}
	if m.current == nil {
		return fmt.Errorf("%w: none is current", ErrUnknownScene)
	}
	m.current.Exit()
	m.enter(m.current)
	return nil
}

// Stop halts the current camera track where it is. The scene's completion
// chain does not run for a stopped track.
func (m *Manager) Stop() {
	if m.current != nil {
		m.current.Camera.Stop()
	}
}

func (m *Manager) finish(from, to string) {
	m.transitioning = false
	m.diag.Push(diag.Diagnostic{
		Severity: diag.Info,
		Code:     diag.SceneChanged,
		Summary:  "Scene changed",
		Evidence: map[string]any{"from": from, "to": to},
	})
	if m.onChange != nil {
		m.onChange(from, to)
	}
}

// completed runs when a scene's camera track ends: hand the camera to live
// input if the scene asks for it, then chain to the next scene.
func (m *Manager) completed(s *Scene) {
	if s != m.current {
		return
	}
	if s.Handoff != "" {
		m.useController(s.Handoff)
		m.arb.Handoff(control.Live)
	}
	if s.Next != "" {
		if err := m.SwitchTo(s.Next, false); err != nil {
			m.log.Warn().Err(err).Str("scene", s.Name).Str("next", s.Next).Msg("scene chain")
		}
	}
}

func (m *Manager) useController(mode string) {
	c, ok := m.live[mode]
	if !ok {
		m.log.Warn().Str("mode", mode).Msg("no live controller for mode")
		return
	}
	m.arb.SetController(c)
}

// Tick advances the transition overlay, then the camera and the current
// scene. While a transition runs the scenes are frozen and the last pose
// stands.
func (m *Manager) Tick(dt time.Duration) pose.Pose {
	m.fader.Tick(dt)
	if m.transitioning || m.current == nil {
		return m.arb.Pose()
	}
	cur := m.current
	p := m.arb.Tick(dt)
	if cur == m.current {
		cur.Tick(dt)
	}
	return p
}
