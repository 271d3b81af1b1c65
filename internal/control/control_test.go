package control

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-cinecam/internal/ease"
	"github.com/coreman2200/funtimes-cinecam/internal/input"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
	"github.com/coreman2200/funtimes-cinecam/internal/sequence"
)

func walk(t *testing.T) *sequence.Player {
	t.Helper()
	from := pose.At(0, 0, 0, 0.2, 0.1)
	to := pose.At(10, 2, 0, 0.6, -0.1)
	p, err := sequence.NewPlayer("walk", []sequence.Step{{
		Name: "walk", Duration: time.Second, From: &from, To: &to, Ease: ease.Linear,
	}})
	require.NoError(t, err)
	return p
}

func TestNoPopHandoff(t *testing.T) {
	for _, c := range []struct {
		name string
		ctl  Controller
	}{
		{"fps", NewFPS(DefaultTuning())},
		{"third person", NewThirdPerson(DefaultTuning())},
	} {
		t.Run(c.name, func(t *testing.T) {
			seq := walk(t)
			in := input.NewState()
			a := NewArbiter(c.ctl, in)
			a.SetSequence(seq)
			seq.Start()
			a.Tick(300 * time.Millisecond)
			last := seq.Pose()
			assertNoPop(t, a, in, c.ctl, last)
		})
	}
}

// A look-back or a long FPS spin leaves yaw outside (-π, π]; the live
// controller must pick it up without rewrapping.
func TestNoPopHandoffWoundYaw(t *testing.T) {
	from := pose.At(1, 2, 3, 4.0, 0.2)
	for _, c := range []struct {
		name string
		ctl  Controller
	}{
		{"fps", NewFPS(DefaultTuning())},
		{"third person", NewThirdPerson(DefaultTuning())},
		{"toggle", NewToggle(NewThirdPerson(DefaultTuning()), NewFPS(DefaultTuning()))},
	} {
		t.Run(c.name, func(t *testing.T) {
			seq, err := sequence.NewPlayer("hold", []sequence.Step{{Name: "hold", Duration: time.Second, From: &from}})
			require.NoError(t, err)
			in := input.NewState()
			a := NewArbiter(c.ctl, in)
			a.SetSequence(seq)
			seq.Start()
			a.Tick(100 * time.Millisecond)
			assertNoPop(t, a, in, c.ctl, from)
		})
	}
}

func TestToggleKeepsWoundYaw(t *testing.T) {
	fps := NewFPS(DefaultTuning())
	third := NewThirdPerson(DefaultTuning())
	tg := NewToggle(fps, third)
	start := pose.At(0, 1, 0, -5.5, 0.1)
	tg.Seed(start)

	in := input.NewState()
	in.Press(input.ViewMode)
	tg.Update(0, in.Snapshot())
	assert.Same(t, third, tg.Current())
	assert.True(t, pose.ApproxEqual(tg.Pose(), start, 1e-9), "got %+v", tg.Pose())
}

func assertNoPop(t *testing.T, a *Arbiter, in *input.State, ctl Controller, last pose.Pose) {
	t.Helper()
	in.Move(50, 50)
	a.Handoff(Live)
	assert.Equal(t, Live, a.Active())
	assert.True(t, pose.ApproxEqual(ctl.Pose(), last, 1e-9), "seeded %+v want %+v", ctl.Pose(), last)

	got := a.Tick(0)
	assert.True(t, pose.ApproxEqual(got, last, 1e-9), "first live tick jumped to %+v", got)
}

func TestLiveIgnoresSequencePose(t *testing.T) {
	seq := walk(t)
	in := input.NewState()
	fps := NewFPS(DefaultTuning())
	a := NewArbiter(fps, in)
	a.SetSequence(seq)
	seq.Start()
	a.Tick(100 * time.Millisecond)
	a.Handoff(Live)
	held := a.Pose()

	a.Tick(100 * time.Millisecond)
	assert.True(t, pose.ApproxEqual(a.Pose(), held, 1e-12))
	assert.Equal(t, 200*time.Millisecond, seq.Elapsed(), "sequence keeps its own clock")
}

func TestSuspendClearsInput(t *testing.T) {
	in := input.NewState()
	a := NewArbiter(NewFPS(DefaultTuning()), in)
	a.Handoff(Live)
	in.Press(input.Forward)
	in.Press(input.Sprint)
	a.Handoff(Scripted)
	assert.Empty(t, in.Snapshot().Held)
}

func TestHandoffOnComplete(t *testing.T) {
	var switches []Driver
	seq := walk(t)
	a := NewArbiter(NewFPS(DefaultTuning()), input.NewState(), HandoffOnComplete(),
		OnSwitch(func(from, to Driver) { switches = append(switches, to) }))
	a.SetSequence(seq)
	seq.Start()
	a.Tick(500 * time.Millisecond)
	assert.Equal(t, Scripted, a.Active())
	a.Tick(500 * time.Millisecond)
	assert.Equal(t, Live, a.Active())
	assert.Equal(t, []Driver{Live}, switches)
	assert.True(t, a.Pose().Position.ApproxEqualThreshold(mgl64.Vec3{10, 2, 0}, 1e-9))
}

func TestFPSMovement(t *testing.T) {
	tune := DefaultTuning()
	c := NewFPS(tune)
	c.Seed(pose.At(0, 0, 0, 0, 0))

	c.Update(time.Second, input.Snapshot{Held: map[input.Key]bool{input.Forward: true}})
	assert.True(t, c.Pose().Position.ApproxEqualThreshold(mgl64.Vec3{0, 0, 25}, 1e-9))

	c.Update(time.Second, input.Snapshot{Held: map[input.Key]bool{input.Right: true, input.Sprint: true}})
	assert.True(t, c.Pose().Position.ApproxEqualThreshold(mgl64.Vec3{-50, 0, 25}, 1e-9), "got %v", c.Pose().Position)

	c.Update(500*time.Millisecond, input.Snapshot{Held: map[input.Key]bool{input.Up: true}})
	assert.InDelta(t, 12.5, c.Pose().Position.Y(), 1e-9)
}

func TestFPSMouseLookClampsPitch(t *testing.T) {
	c := NewFPS(DefaultTuning())
	c.Seed(pose.At(0, 0, 0, 0, 0))
	c.Update(0, input.Snapshot{DX: 100})
	assert.InDelta(t, -0.2, c.Pose().Yaw, 1e-12)
	c.Update(0, input.Snapshot{DY: -100000})
	assert.InDelta(t, math.Pi/2.5, c.Pose().Pitch, 1e-12)
}

func TestThirdPersonZoomAndOrbit(t *testing.T) {
	c := NewThirdPerson(DefaultTuning())
	c.Seed(pose.At(0, 0, 0, 0, 0))
	c.Update(0, input.Snapshot{Wheel: 10000})
	assert.Equal(t, 150.0, c.Orbit().Distance)
	c.Update(0, input.Snapshot{Wheel: -10000})
	assert.Equal(t, 20.0, c.Orbit().Distance)
	c.Update(0, input.Snapshot{DY: 1000})
	assert.InDelta(t, -math.Pi/3, c.Orbit().Elevation, 1e-12)

	focus := c.Orbit().Focus
	_, _, ok := pose.Facing(c.Pose().Position, focus)
	require.True(t, ok)
	assert.InDelta(t, 20, c.Pose().Position.Sub(focus).Len(), 1e-9)
}

func TestToggleSwitchesOnPressEdge(t *testing.T) {
	fps := NewFPS(DefaultTuning())
	third := NewThirdPerson(DefaultTuning())
	tg := NewToggle(fps, third)
	tg.Seed(pose.At(1, 2, 3, 0.4, 0.1))

	v := input.Snapshot{Held: map[input.Key]bool{input.ViewMode: true}}
	tg.Update(0, v)
	assert.Same(t, third, tg.Current())
	assert.True(t, pose.ApproxEqual(tg.Pose(), pose.At(1, 2, 3, 0.4, 0.1), 1e-9))

	tg.Update(0, v)
	assert.Same(t, third, tg.Current(), "holding the key does not toggle again")
	tg.Update(0, input.Snapshot{})
	tg.Update(0, v)
	assert.Same(t, fps, tg.Current())
}
