package scene

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-cinecam/internal/control"
	diag "github.com/coreman2200/funtimes-cinecam/internal/diagnostics"
	"github.com/coreman2200/funtimes-cinecam/internal/ease"
	"github.com/coreman2200/funtimes-cinecam/internal/fade"
	"github.com/coreman2200/funtimes-cinecam/internal/lightrig"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
	"github.com/coreman2200/funtimes-cinecam/internal/sequence"
)

// Scene is a built scene: a camera track, optional actor tracks, fade
// targets and lights, all advanced by the frame loop.
type Scene struct {
	Name    string
	Next    string
	Handoff string

	Camera *sequence.Player
	Actors map[string]*sequence.Player
	Fader  *fade.Fader
	Rig    *lightrig.Rig

	file       *File
	actorOrder []string
	values     map[string]*fade.Value
	groups     map[string][]string
	handles    map[string]bool
	bound      map[string]fade.Target
	warned     map[string]bool

	reg     *Registry
	viewer  func() pose.Pose
	handoff func(control.Driver)
	log     zerolog.Logger
	diag    diag.Sink
}

// Options carry the collaborators a scene is built with.
type Options struct {
	Registry       *Registry
	Logger         zerolog.Logger
	Diagnostics    diag.Sink
	PixelsPerLight int
	WhiteCap       float64
}

// Build validates a scene file and assembles its players. Unknown effects,
// eases, references or drive targets fail here rather than mid-playback, as
// do effect arguments naming undeclared targets, presets or actors.
func Build(f *File, o Options) (*Scene, error) {
	if o.Registry == nil {
		o.Registry = NewRegistry()
	}
	if o.Diagnostics == nil {
		o.Diagnostics = diag.Discard
	}
	s := &Scene{
		Name:    f.Name,
		Next:    f.Next,
		Handoff: f.Handoff,
		Actors:  map[string]*sequence.Player{},
		Fader:   fade.NewFader(),
		Rig:     lightrig.New(o.PixelsPerLight, o.WhiteCap),
		file:    f,
		values:  map[string]*fade.Value{},
		groups:  map[string][]string{},
		handles: map[string]bool{},
		bound:   map[string]fade.Target{},
		warned:  map[string]bool{},
		reg:     o.Registry,
		log:     o.Logger.With().Str("scene", f.Name).Logger(),
		diag:    o.Diagnostics,
	}
	switch f.Handoff {
	case "", "fps", "third":
	default:
		return nil, fmt.Errorf("scene %q: unknown handoff %q", f.Name, f.Handoff)
	}
	s.resetRig()
	if f.StartPreset != "" {
		if _, ok := f.Presets[f.StartPreset]; !ok {
			return nil, fmt.Errorf("scene %q: unknown start preset %q", f.Name, f.StartPreset)
		}
	}
	for _, t := range f.Targets {
		if t.Name == "" {
			return nil, fmt.Errorf("scene %q: target without a name", f.Name)
		}
		if len(t.Members) > 0 {
			s.groups[t.Name] = t.Members
			continue
		}
		if t.Handle {
			s.handles[t.Name] = true
			continue
		}
		s.values[t.Name] = &fade.Value{V: t.Level}
	}
	for g, members := range s.groups {
		for _, m := range members {
			if !s.declared(m) {
				return nil, fmt.Errorf("scene %q: group %q member %q is not declared", f.Name, g, m)
			}
		}
	}

	for name := range f.Actors {
		s.actorOrder = append(s.actorOrder, name)
	}
	sort.Strings(s.actorOrder)

	cam, err := s.buildTrack("camera", f.Camera)
	if err != nil {
		return nil, err
	}
	s.Camera = cam
	for _, name := range s.actorOrder {
		p, err := s.buildTrack(name, f.Actors[name])
		if err != nil {
			return nil, err
		}
		s.Actors[name] = p
	}
	return s, nil
}

func (s *Scene) buildTrack(name string, t TrackSpec) (*sequence.Player, error) {
	steps := make([]sequence.Step, 0, len(t.Steps))
	for i, ss := range t.Steps {
		st, err := s.buildStep(ss)
		if err != nil {
			return nil, fmt.Errorf("scene %q track %q step %d (%s): %w", s.Name, name, i, ss.Name, err)
		}
		steps = append(steps, st)
	}
	p, err := sequence.NewPlayer(s.Name+"/"+name, steps, sequence.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	if o := t.Origin.pose(); o != nil {
		p.SetOrigin(*o)
	}
	return p, nil
}

func (s *Scene) buildStep(ss StepSpec) (sequence.Step, error) {
	e, ok := ease.ByName(ss.Ease)
	if !ok {
		return sequence.Step{}, fmt.Errorf("unknown ease %q", ss.Ease)
	}
	st := sequence.Step{
		Name:     ss.Name,
		Duration: ss.Duration,
		From:     ss.From.pose(),
		To:       ss.To.pose(),
		Ease:     e,
	}
	for _, tr := range ss.Triggers {
		fire, err := s.effect(tr.Effect)
		if err != nil {
			return st, err
		}
		st.Triggers = append(st.Triggers, sequence.Trigger{Name: tr.Effect, At: tr.At, Fraction: tr.Fraction, Fire: fire})
	}
	for _, d := range ss.Drive {
		if !s.declared(d.Target) {
			return st, fmt.Errorf("drive target %q is not declared", d.Target)
		}
		st.Drives = append(st.Drives, sequence.Drive{Target: lazyTarget{s: s, name: d.Target}, From: d.From, To: d.To})
	}
	for _, w := range ss.Wobble {
		st.Wobble = append(st.Wobble, sequence.Wobble{
			Channel:   sequence.Channel(w.Channel),
			Cycles:    w.Cycles,
			Amplitude: w.Amplitude,
			Eased:     w.Eased,
		})
	}
	if lb := ss.LookBack; lb != nil {
		le, ok := ease.ByName(lb.Ease)
		if !ok {
			return st, fmt.Errorf("unknown look-back ease %q", lb.Ease)
		}
		onStart, err := s.optionalEffect(lb.OnStart)
		if err != nil {
			return st, err
		}
		onEnd, err := s.optionalEffect(lb.OnEnd)
		if err != nil {
			return st, err
		}
		st.LookBack = &sequence.LookBack{
			At: lb.At, Duration: lb.Duration, Hold: lb.Hold, Turn: lb.Turn, Pitch: lb.Pitch,
			Ease: le, OnStart: onStart, OnEnd: onEnd,
		}
	}
	if c := ss.Chase; c != nil {
		ref, err := s.resolveReference(c.Reference)
		if err != nil {
			return st, err
		}
		st.Chase = &sequence.Chase{Reference: ref, Offset: c.Offset, Gain: c.Gain}
	}
	if o := ss.Orbit; o != nil {
		st.Orbit = &sequence.Orbit{
			Center: mgl64.Vec3(o.Center),
			Radius: o.Radius, Height: o.Height, Speed: o.Speed, Phase: o.Phase,
		}
	}
	return st, nil
}

func (s *Scene) optionalEffect(spec string) (func(), error) {
	if spec == "" {
		return nil, nil
	}
	return s.effect(spec)
}

// effect parses an effect spec into a fire-once callback. Failures at fire
// time are logged and reported, never propagated into the tick.
func (s *Scene) effect(spec string) (func(), error) {
	name, args := splitEffect(spec)
	eff, ok := s.reg.effect(name)
	if !ok {
		return nil, fmt.Errorf("unknown effect %q", name)
	}
	run, err := eff(s, args)
	if err != nil {
		return nil, fmt.Errorf("effect %q: %w", spec, err)
	}
	return func() {
		if err := run(s); err != nil {
			s.skip(spec, err)
		}
	}, nil
}

func (s *Scene) skip(spec string, err error) {
	code := diag.EffectSkipped
	if errors.Is(err, ErrNotReady) {
		code = diag.AssetNotReady
	}
	s.log.Warn().Err(err).Str("effect", spec).Msg("effect skipped")
	s.diag.Push(diag.Diagnostic{
		Severity: diag.Warn,
		Code:     code,
		Summary:  "Scene effect skipped",
		Detail:   err.Error(),
		Evidence: map[string]any{"scene": s.Name, "effect": spec},
	})
}

func (s *Scene) resolveReference(name string) (func() mgl64.Vec3, error) {
	switch {
	case name == "viewer":
		return s.viewerPosition, nil
	case strings.HasPrefix(name, "actor:"):
		actor := strings.TrimPrefix(name, "actor:")
		if _, ok := s.file.Actors[actor]; !ok {
			return nil, fmt.Errorf("chase reference to unknown actor %q", actor)
		}
		return func() mgl64.Vec3 {
			if a, ok := s.Actors[actor]; ok {
				return a.Pose().Position
			}
			return s.viewerPosition()
		}, nil
	}
	if f, ok := s.reg.reference(name); ok {
		return f, nil
	}
	return nil, fmt.Errorf("unknown chase reference %q", name)
}

func (s *Scene) viewerPosition() mgl64.Vec3 {
	if s.viewer != nil {
		return s.viewer().Position
	}
	return s.Camera.Pose().Position
}

func (s *Scene) declared(name string) bool {
	if _, ok := s.values[name]; ok {
		return true
	}
	if _, ok := s.groups[name]; ok {
		return true
	}
	if s.handles[name] {
		return true
	}
	_, ok := s.Rig.Light(name)
	return ok
}

// Bind attaches a live handle (a mesh, a text sprite) under a target name.
// Bound handles take precedence over declared placeholder levels. A target
// declared with handle: true resolves only once bound; effects on it before
// then are skipped as not ready.
func (s *Scene) Bind(name string, t fade.Target) { s.bound[name] = t }

// Unbind removes a live handle.
func (s *Scene) Unbind(name string) { delete(s.bound, name) }

// Target resolves a fade target by name: bound handles, declared levels,
// groups, then lights.
func (s *Scene) Target(name string) (fade.Target, bool) {
	if t, ok := s.bound[name]; ok {
		return t, true
	}
	if v, ok := s.values[name]; ok {
		return v, true
	}
	if members, ok := s.groups[name]; ok {
		g := make(fade.Group, 0, len(members))
		for _, m := range members {
			t, ok := s.Target(m)
			if !ok {
				return nil, false
			}
			g = append(g, t)
		}
		return g, true
	}
	if l, ok := s.Rig.Light(name); ok {
		return l, true
	}
	return nil, false
}

// Levels reports every declared and bound target's level.
func (s *Scene) Levels() map[string]float64 {
	out := make(map[string]float64, len(s.values)+len(s.bound))
	for k, v := range s.values {
		out[k] = v.V
	}
	for k, t := range s.bound {
		out[k] = t.Opacity()
	}
	return out
}

// ActorPoses reports each actor's current pose.
func (s *Scene) ActorPoses() map[string]pose.Pose {
	out := make(map[string]pose.Pose, len(s.Actors))
	for k, a := range s.Actors {
		out[k] = a.Pose()
	}
	return out
}

func (s *Scene) resetRig() {
	s.Rig.Reset()
	for _, l := range s.file.Lights {
		s.Rig.Add(&lightrig.Light{
			Name:      l.Name,
			Color:     lightrig.RGB(l.Color),
			Intensity: l.Intensity,
			Max:       l.Max,
		})
	}
	for name, p := range s.file.Presets {
		s.Rig.AddPreset(name, p)
	}
}

// Enter resets the scene to its authored state and starts the camera and
// every non-manual actor. hooks observe the camera track.
func (s *Scene) Enter(hooks sequence.Hooks) {
	s.Fader = fade.NewFader()
	s.warned = map[string]bool{}
	for _, t := range s.file.Targets {
		if v, ok := s.values[t.Name]; ok {
			v.V = t.Level
		}
	}
	s.resetRig()
	if s.file.StartPreset != "" {
		if err := s.Rig.Apply(s.file.StartPreset); err != nil {
			s.log.Warn().Err(err).Msg("start preset")
		}
	}
	s.log.Info().Int("actors", len(s.Actors)).Msg("scene enter")
	for _, name := range s.actorOrder {
		a := s.Actors[name]
		a.Stop()
		if !s.file.Actors[name].Manual {
			a.Start()
		}
	}
	s.Camera.Stop()
	s.Camera.SetHooks(hooks)
	s.Camera.Start()
}

// Exit stops every track and drops running fades.
func (s *Scene) Exit() {
	s.Camera.Stop()
	for _, name := range s.actorOrder {
		s.Actors[name].Stop()
	}
	s.Fader = fade.NewFader()
	s.log.Info().Msg("scene exit")
}

// Tick advances actors and fades. The camera is advanced by the arbiter.
func (s *Scene) Tick(dt time.Duration) {
	for _, name := range s.actorOrder {
		s.Actors[name].Tick(dt)
	}
	s.Fader.Tick(dt)
}

// Done reports whether the camera track has completed.
func (s *Scene) Done() bool { return s.Camera.State() == sequence.Complete }

type lazyTarget struct {
	s    *Scene
	name string
}

func (l lazyTarget) Opacity() float64 {
	if t, ok := l.s.Target(l.name); ok {
		return t.Opacity()
	}
	return 0
}

func (l lazyTarget) SetOpacity(v float64) {
	if t, ok := l.s.Target(l.name); ok {
		t.SetOpacity(v)
		return
	}
	if !l.s.warned[l.name] {
		l.s.warned[l.name] = true
		l.s.skip("drive:"+l.name, fmt.Errorf("drive target %q: %w", l.name, ErrNotReady))
	}
}
