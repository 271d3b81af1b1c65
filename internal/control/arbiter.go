package control

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-cinecam/internal/input"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
)

// Driver names who owns the camera pose.
type Driver string

const (
	Scripted Driver = "sequence"
	Live     Driver = "live_input"
)

// Sequence is the scripted pose source; *sequence.Player satisfies it.
type Sequence interface {
	Tick(dt time.Duration)
	Pose() pose.Pose
	IsPlaying() bool
}

// Arbiter applies exactly one driver's pose per tick. The scripted sequence
// keeps ticking while live input drives, its pose is simply not applied.
type Arbiter struct {
	seq    Sequence
	live   Controller
	in     *input.State
	active Driver
	pose   pose.Pose

	handoffOnComplete bool
	onSwitch          func(from, to Driver)
	log               zerolog.Logger
}

// ArbiterOption configures an Arbiter.
type ArbiterOption func(*Arbiter)

// HandoffOnComplete gives control to live input as soon as a playing
// sequence completes.
func HandoffOnComplete() ArbiterOption {
	return func(a *Arbiter) { a.handoffOnComplete = true }
}

// OnSwitch observes driver changes.
func OnSwitch(f func(from, to Driver)) ArbiterOption {
	return func(a *Arbiter) { a.onSwitch = f }
}

func WithArbiterLogger(l zerolog.Logger) ArbiterOption {
	return func(a *Arbiter) { a.log = l }
}

// NewArbiter starts in the scripted driver.
func NewArbiter(live Controller, in *input.State, opts ...ArbiterOption) *Arbiter {
	a := &Arbiter{live: live, in: in, active: Scripted, log: zerolog.Nop()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// SetSequence swaps the scripted source, e.g. on scene change.
func (a *Arbiter) SetSequence(s Sequence) { a.seq = s }

// SetController swaps the live controller. If live input is driving, the new
// controller is seeded from the current pose.
func (a *Arbiter) SetController(c Controller) {
	a.live = c
	if a.active == Live && c != nil {
		c.Seed(a.pose)
	}
}

// Active is the current driver.
func (a *Arbiter) Active() Driver { return a.active }

// Pose is the pose applied on the last tick.
func (a *Arbiter) Pose() pose.Pose { return a.pose }

// Tick advances the sequence and returns the pose to apply this frame.
func (a *Arbiter) Tick(dt time.Duration) pose.Pose {
	wasPlaying := false
	if a.seq != nil {
		wasPlaying = a.seq.IsPlaying()
		a.seq.Tick(dt)
	}
	switch a.active {
	case Scripted:
		if a.seq != nil {
			a.pose = a.seq.Pose()
			if a.handoffOnComplete && wasPlaying && !a.seq.IsPlaying() {
				a.Handoff(Live)
			}
		}
	case Live:
		if a.live != nil {
			a.live.Update(dt, a.snapshot())
			a.pose = a.live.Pose()
		}
	}
	return a.pose
}

func (a *Arbiter) snapshot() input.Snapshot {
	if a.in == nil {
		return input.Snapshot{}
	}
	return a.in.Snapshot()
}

// Handoff switches drivers. Going live seeds the controller from the last
// scripted pose; going back to the sequence clears buffered live input. There
// is no blending either way.
func (a *Arbiter) Handoff(to Driver) {
	from := a.active
	if from == to {
		return
	}
	switch to {
	case Live:
		seed := a.pose
		if a.seq != nil {
			seed = a.seq.Pose()
		}
		a.pose = seed
		// mouse motion buffered while scripted must not jolt the first live tick
		_ = a.snapshot()
		if a.live != nil {
			a.live.Seed(seed)
		}
	case Scripted:
		if a.in != nil {
			a.in.Clear()
		}
	default:
		a.log.Warn().Str("driver", string(to)).Msg("unknown driver; ignoring handoff")
		return
	}
	a.active = to
	a.log.Info().Str("from", string(from)).Str("to", string(to)).Msg("camera driver handoff")
	if a.onSwitch != nil {
		a.onSwitch(from, to)
	}
}
