// Package control holds the live (user-driven) camera controllers and the
// arbiter that decides, tick by tick, whether scripted sequences or live
// input own the camera pose.
package control

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/coreman2200/funtimes-cinecam/internal/input"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
)

// Controller turns live input into a pose.
type Controller interface {
	// Seed adopts p exactly so that taking control causes no visible jump.
	Seed(p pose.Pose)
	Update(dt time.Duration, in input.Snapshot)
	Pose() pose.Pose
}

// Tuning collects live control constants.
type Tuning struct {
	MoveSpeed        float64 // units per second
	SprintSpeed      float64
	LookSensitivity  float64 // radians per pixel, first person
	OrbitSensitivity float64 // radians per pixel, third person
	ZoomSensitivity  float64 // distance per wheel unit
	MaxPitch         float64
	MinElevation     float64
	MaxElevation     float64
	Distance         float64
	MinDistance      float64
	MaxDistance      float64
}

// DefaultTuning matches the forest scene's feel.
func DefaultTuning() Tuning {
	return Tuning{
		MoveSpeed:        25,
		SprintSpeed:      50,
		LookSensitivity:  0.002,
		OrbitSensitivity: 0.01,
		ZoomSensitivity:  0.05,
		MaxPitch:         math.Pi / 2.5,
		MinElevation:     -math.Pi / 3,
		MaxElevation:     math.Pi / 2.5,
		Distance:         80,
		MinDistance:      20,
		MaxDistance:      150,
	}
}

func (t Tuning) speed(in input.Snapshot, dt time.Duration) float64 {
	s := t.MoveSpeed
	if in.Down(input.Sprint) {
		s = t.SprintSpeed
	}
	return s * dt.Seconds()
}

// FPS is a free-fly first person camera: mouse look, WASD on the yaw plane,
// Q/E down and up.
type FPS struct {
	Tuning Tuning
	pose   pose.Pose
}

func NewFPS(t Tuning) *FPS { return &FPS{Tuning: t} }

func (c *FPS) Seed(p pose.Pose) { c.pose = p }

func (c *FPS) Pose() pose.Pose { return c.pose }

func (c *FPS) Update(dt time.Duration, in input.Snapshot) {
	if in.DX != 0 || in.DY != 0 {
		c.pose.Yaw -= in.DX * c.Tuning.LookSensitivity
		c.pose.Pitch -= in.DY * c.Tuning.LookSensitivity
		c.pose.Pitch = clamp(c.pose.Pitch, -c.Tuning.MaxPitch, c.Tuning.MaxPitch)
	}
	speed := c.Tuning.speed(in, dt)
	forward := mgl64.Vec3{math.Sin(c.pose.Yaw), 0, math.Cos(c.pose.Yaw)}
	right := mgl64.Vec3{-math.Cos(c.pose.Yaw), 0, math.Sin(c.pose.Yaw)}
	step := mgl64.Vec3{}
	if in.Down(input.Forward) {
		step = step.Add(forward)
	}
	if in.Down(input.Back) {
		step = step.Sub(forward)
	}
	if in.Down(input.Left) {
		step = step.Sub(right)
	}
	if in.Down(input.Right) {
		step = step.Add(right)
	}
	if in.Down(input.Down) {
		step = step.Sub(pose.WorldUp)
	}
	if in.Down(input.Up) {
		step = step.Add(pose.WorldUp)
	}
	c.pose.Position = c.pose.Position.Add(step.Mul(speed))
}

// ThirdPerson orbits a focus point. WASD moves the focus relative to the
// view, the mouse swings the orbit and the wheel zooms.
type ThirdPerson struct {
	Tuning Tuning
	orbit  pose.Orbit
}

func NewThirdPerson(t Tuning) *ThirdPerson {
	return &ThirdPerson{Tuning: t, orbit: pose.Orbit{Distance: t.Distance, Elevation: 0.3}}
}

// Seed places the focus Tuning.Distance ahead of p; limits are applied only
// once input arrives.
func (c *ThirdPerson) Seed(p pose.Pose) {
	c.orbit = pose.OrbitFrom(p, c.Tuning.Distance)
}

func (c *ThirdPerson) Pose() pose.Pose { return c.orbit.Pose() }

// Orbit exposes the current orbit parameters.
func (c *ThirdPerson) Orbit() pose.Orbit { return c.orbit }

func (c *ThirdPerson) Update(dt time.Duration, in input.Snapshot) {
	t := c.Tuning
	if in.DX != 0 || in.DY != 0 {
		c.orbit.Azimuth -= in.DX * t.OrbitSensitivity
		c.orbit.Elevation -= in.DY * t.OrbitSensitivity
		c.orbit.Elevation = clamp(c.orbit.Elevation, t.MinElevation, t.MaxElevation)
	}
	if in.Wheel != 0 {
		c.orbit.Distance = clamp(c.orbit.Distance+in.Wheel*t.ZoomSensitivity, t.MinDistance, t.MaxDistance)
	}
	speed := t.speed(in, dt)
	// the camera sits along +f from the focus, so "forward" is -f
	f := mgl64.Vec3{math.Sin(c.orbit.Azimuth), 0, math.Cos(c.orbit.Azimuth)}
	r := mgl64.Vec3{math.Cos(c.orbit.Azimuth), 0, -math.Sin(c.orbit.Azimuth)}
	step := mgl64.Vec3{}
	if in.Down(input.Forward) {
		step = step.Sub(f)
	}
	if in.Down(input.Back) {
		step = step.Add(f)
	}
	if in.Down(input.Left) {
		step = step.Sub(r)
	}
	if in.Down(input.Right) {
		step = step.Add(r)
	}
	c.orbit.Focus = c.orbit.Focus.Add(step.Mul(speed))
}

// Toggle switches between controllers on each press of the view-mode key,
// seeding the next one from the current pose.
type Toggle struct {
	modes   []Controller
	cur     int
	wasDown bool
}

func NewToggle(modes ...Controller) *Toggle { return &Toggle{modes: modes} }

func (t *Toggle) Current() Controller { return t.modes[t.cur] }

func (t *Toggle) Seed(p pose.Pose) { t.Current().Seed(p) }

func (t *Toggle) Pose() pose.Pose { return t.Current().Pose() }

func (t *Toggle) Update(dt time.Duration, in input.Snapshot) {
	down := in.Down(input.ViewMode)
	if down && !t.wasDown && len(t.modes) > 1 {
		p := t.Current().Pose()
		t.cur = (t.cur + 1) % len(t.modes)
		t.Current().Seed(p)
	}
	t.wasDown = down
	t.Current().Update(dt, in)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
