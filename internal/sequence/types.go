package sequence

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/coreman2200/funtimes-cinecam/internal/ease"
	"github.com/coreman2200/funtimes-cinecam/internal/fade"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
)

// State enumerates player states.
type State string

const (
	Idle     State = "idle"
	Playing  State = "playing"
	Complete State = "complete"
	Stopped  State = "stopped"
)

// Trigger is a fire-once side effect bound to a point inside a step.
// The threshold is At, or Fraction of the step duration when Fraction > 0.
type Trigger struct {
	Name     string
	At       time.Duration
	Fraction float64
	Fire     func()
}

func (t Trigger) threshold(d time.Duration) time.Duration {
	if t.Fraction > 0 {
		return time.Duration(t.Fraction * float64(d))
	}
	return t.At
}

// Drive ties a fade target's level to the step's raw progress for the whole
// step, e.g. a caption fading in while the camera holds.
type Drive struct {
	Target   fade.Target
	From, To float64
}

func (d Drive) apply(t float64) {
	if d.Target != nil {
		d.Target.SetOpacity(d.From + (d.To-d.From)*t)
	}
}

// Channel is the pose component a Wobble perturbs.
type Channel string

const (
	Yaw    Channel = "yaw"
	Pitch  Channel = "pitch"
	Height Channel = "height"
)

// Wobble adds sin(u*2π*Cycles)*Amplitude to one channel, where u is the raw
// step progress or, when Eased, the eased progress. Nods, running bounce and
// idle sway are all wobbles.
type Wobble struct {
	Channel   Channel
	Cycles    float64
	Amplitude float64
	Eased     bool
}

// LookBack temporarily turns the view away and back while the parent step
// keeps moving. Zero Hold, Turn and Ease take the defaults 0.25, π and
// InOutCubic.
type LookBack struct {
	At       time.Duration // offset into the parent step
	Duration time.Duration
	Hold     float64 // fraction of Duration spent fully turned
	Turn     float64 // yaw excursion in radians
	Pitch    float64 // pitch while turned
	Ease     ease.Func
	OnStart  func()
	OnEnd    func()
}

// Chase steers the pose toward a point Offset units from a live reference,
// along the reference-to-chaser line, closing Gain of the gap each tick.
// The step duration only bounds how long the chase runs.
type Chase struct {
	Reference func() mgl64.Vec3
	Offset    float64
	Gain      float64
}

// Orbit circles Center at Radius and Height above it, Speed radians per
// second starting at Phase, always facing Center.
type Orbit struct {
	Center mgl64.Vec3
	Radius float64
	Height float64
	Speed  float64
	Phase  float64
}

// Step is one keyframed segment. A nil From continues from wherever the
// player is when the step activates; a nil To holds the start pose. Chase
// and Orbit replace keyframe interpolation for their step.
type Step struct {
	Name     string
	Duration time.Duration
	From     *pose.Pose
	To       *pose.Pose
	Ease     ease.Func
	Triggers []Trigger
	Drives   []Drive
	Wobble   []Wobble
	LookBack *LookBack
	Chase    *Chase
	Orbit    *Orbit
}

// Hooks are observer callbacks. They are dropped by Stop.
type Hooks struct {
	// Called after the index advances to a new step.
	OnStepChange func(from, to int, name string)
	// Called once when the last step finishes.
	OnComplete func()
}
