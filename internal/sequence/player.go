package sequence

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-cinecam/internal/ease"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
)

// Player walks an ordered list of steps, one tick at a time, computing a
// pose per tick and firing step triggers exactly once per activation.
type Player struct {
	name  string
	steps []Step
	order [][]int

	state   State
	idx     int
	elapsed time.Duration
	pose    pose.Pose
	origin  *pose.Pose

	// per-activation state; the step data itself is never mutated
	from, to pose.Pose
	fired    []bool
	chasePos mgl64.Vec3
	look     lookState
	looked   []bool // look-back guard per step, reset by Start

	// bumped by Start/Stop so re-entrant callbacks end the current tick
	run uint64

	hooks Hooks
	log   zerolog.Logger
}

type lookState struct {
	active     bool
	yaw, pitch float64
}

// Option configures a Player at construction.
type Option func(*Player)

// WithLogger routes step and completion events to l.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Player) { p.log = l }
}

// WithHooks registers observer hooks up front.
func WithHooks(h Hooks) Option {
	return func(p *Player) { p.hooks = h }
}

// NewPlayer validates steps and returns an idle player. Validation failures
// are *ConfigError values matching ErrConfig.
func NewPlayer(name string, steps []Step, opts ...Option) (*Player, error) {
	prepared, order, err := prepare(name, steps)
	if err != nil {
		return nil, err
	}
	p := &Player{
		name:   name,
		steps:  prepared,
		order:  order,
		state:  Idle,
		looked: make([]bool, len(prepared)),
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// SetHooks replaces the observer hooks.
func (p *Player) SetHooks(h Hooks) { p.hooks = h }

// SetOrigin overrides the start pose of the first step, e.g. an actor's
// spawn point. It applies from the next Start.
func (p *Player) SetOrigin(o pose.Pose) { p.origin = &o }

// Start plays from step 0. It is a no-op while already playing; from any
// other state it restarts.
func (p *Player) Start() {
	if p.state == Playing {
		return
	}
	p.run++
	p.state = Playing
	p.idx = 0
	p.elapsed = 0
	for i := range p.looked {
		p.looked[i] = false
	}
	p.log.Info().Str("sequence", p.name).Int("steps", len(p.steps)).Msg("sequence started")
	p.activate(0, true)
}

// Stop halts playback where it is and drops the observer hooks. The index and
// pose are left as they were.
func (p *Player) Stop() {
	if p.state != Playing {
		return
	}
	p.run++
	p.state = Stopped
	p.look = lookState{}
	p.hooks = Hooks{}
	p.log.Info().Str("sequence", p.name).Int("step", p.idx).Msg("sequence stopped")
}

// Tick advances the current step by dt. It does nothing unless playing.
// When a step finishes, any overshoot past its duration is dropped and the
// next step starts at zero elapsed time.
func (p *Player) Tick(dt time.Duration) {
	if p.state != Playing || dt < 0 {
		return
	}
	run := p.run
	st := &p.steps[p.idx]
	prev := p.elapsed
	p.elapsed += dt

	t := 1.0
	if st.Duration > 0 {
		t = ease.Clamp01(float64(p.elapsed) / float64(st.Duration))
	}
	p.pose = p.evaluate(st, t, dt)
	if p.run != run {
		return
	}
	if !p.fire(st, prev, p.elapsed, run) {
		return
	}
	if p.elapsed >= st.Duration {
		p.advance(run)
	}
}

// activate primes step i: resolves its start and end poses, clears its
// trigger flags and fires triggers sitting at threshold zero. With snap the
// pose jumps to the step's start; otherwise the pose that finished the
// previous step stands until the next tick.
func (p *Player) activate(i int, snap bool) {
	run := p.run
	st := &p.steps[i]
	from := p.pose
	switch {
	case i == 0 && p.origin != nil:
		from = *p.origin
	case st.From != nil:
		from = *st.From
	}
	to := from
	if st.To != nil {
		to = *st.To
	}
	p.from, p.to = from, to
	p.fired = make([]bool, len(st.Triggers))
	p.chasePos = from.Position
	p.look = lookState{}

	if snap {
		p.pose = from
		p.pose = p.evaluate(st, 0, 0)
		if p.run != run {
			return
		}
	}
	p.fire(st, -1, 0, run)
}

// fire runs triggers whose threshold lies in (prev, cur], ascending. It
// reports false when a callback restarted or stopped the player.
func (p *Player) fire(st *Step, prev, cur time.Duration, run uint64) bool {
	for _, i := range p.order[p.idx] {
		tr := st.Triggers[i]
		th := tr.threshold(st.Duration)
		if th > cur {
			break
		}
		if p.fired[i] || th <= prev {
			continue
		}
		p.fired[i] = true
		p.log.Debug().Str("sequence", p.name).Str("step", st.Name).Str("trigger", tr.Name).Dur("at", th).Msg("trigger")
		if tr.Fire != nil {
			tr.Fire()
			if p.run != run {
				return false
			}
		}
	}
	return true
}

func (p *Player) advance(run uint64) {
	if lb := p.steps[p.idx].LookBack; lb != nil && p.look.active {
		p.endLook(lb)
		if p.run != run {
			return
		}
	}
	prev := p.idx
	p.idx++
	p.elapsed = 0
	p.look = lookState{}

	if p.idx >= len(p.steps) {
		p.state = Complete
		p.log.Info().Str("sequence", p.name).Msg("sequence complete")
		if p.hooks.OnComplete != nil {
			p.hooks.OnComplete()
		}
		return
	}
	next := p.steps[p.idx].Name
	p.log.Debug().Str("sequence", p.name).Int("from", prev).Int("to", p.idx).Str("step", next).Msg("step change")
	if p.hooks.OnStepChange != nil {
		p.hooks.OnStepChange(prev, p.idx, next)
		if p.run != run {
			return
		}
	}
	p.activate(p.idx, false)
	if p.run != run {
		return
	}
	// zero-length steps land and hand on within the same tick
	if st := &p.steps[p.idx]; st.Duration == 0 {
		p.pose = p.evaluate(st, 1, 0)
		if p.run != run {
			return
		}
		p.advance(run)
	}
}

// Name is the sequence name given at construction.
func (p *Player) Name() string { return p.name }

// State reports the current state.
func (p *Player) State() State { return p.state }

// IsPlaying is State() == Playing.
func (p *Player) IsPlaying() bool { return p.state == Playing }

// Index is the current step index; it equals Len() once complete.
func (p *Player) Index() int { return p.idx }

// Elapsed is the time spent in the current step.
func (p *Player) Elapsed() time.Duration { return p.elapsed }

// Len is the number of steps.
func (p *Player) Len() int { return len(p.steps) }

// Pose is the most recently computed pose.
func (p *Player) Pose() pose.Pose { return p.pose }

// Step returns the current step, if any.
func (p *Player) Step() (Step, bool) {
	if p.idx < 0 || p.idx >= len(p.steps) {
		return Step{}, false
	}
	return p.steps[p.idx], true
}

// Progress is overall completion in [0,1], counting each step equally.
func (p *Player) Progress() float64 {
	if p.state == Complete || p.idx >= len(p.steps) {
		return 1
	}
	st := p.steps[p.idx]
	t := 1.0
	if st.Duration > 0 {
		t = ease.Clamp01(float64(p.elapsed) / float64(st.Duration))
	}
	n := float64(len(p.steps))
	return float64(p.idx)/n + t/n
}
