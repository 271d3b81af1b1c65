package sequence

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-cinecam/internal/ease"
	"github.com/coreman2200/funtimes-cinecam/internal/fade"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
)

const ms = time.Millisecond

func ptr(p pose.Pose) *pose.Pose { return &p }

func move(name string, d time.Duration, from, to pose.Pose) Step {
	return Step{Name: name, Duration: d, From: ptr(from), To: ptr(to), Ease: ease.Linear}
}

func assertPos(t *testing.T, want mgl64.Vec3, p *Player) {
	t.Helper()
	got := p.Pose().Position
	assert.True(t, got.ApproxEqualThreshold(want, 1e-9), "position %v, want %v", got, want)
}

func TestTwoStepScenario(t *testing.T) {
	p, err := NewPlayer("scenario", []Step{
		move("a", 1000*ms, pose.At(0, 0, 0, 0, 0), pose.At(10, 0, 0, 0, 0)),
		move("b", 500*ms, pose.At(10, 0, 0, 0, 0), pose.At(10, 0, 5, 0, 0)),
	})
	require.NoError(t, err)
	p.Start()

	p.Tick(250 * ms)
	assertPos(t, mgl64.Vec3{2.5, 0, 0}, p)
	assert.Equal(t, 0, p.Index())

	p.Tick(250 * ms)
	p.Tick(250 * ms)
	p.Tick(250 * ms)
	assertPos(t, mgl64.Vec3{10, 0, 0}, p)
	assert.Equal(t, 1, p.Index())
	assert.Equal(t, time.Duration(0), p.Elapsed())

	p.Tick(250 * ms)
	assertPos(t, mgl64.Vec3{10, 0, 2.5}, p)
	p.Tick(250 * ms)
	assertPos(t, mgl64.Vec3{10, 0, 5}, p)
	assert.Equal(t, 2, p.Index())
	assert.Equal(t, Complete, p.State())
	assert.False(t, p.IsPlaying())
}

func TestOvershootIsNotCarried(t *testing.T) {
	p, err := NewPlayer("overshoot", []Step{
		move("short", 100*ms, pose.At(0, 0, 0, 0, 0), pose.At(1, 0, 0, 0, 0)),
		move("next", 1000*ms, pose.At(1, 0, 0, 0, 0), pose.At(11, 0, 0, 0, 0)),
	})
	require.NoError(t, err)
	p.Start()

	p.Tick(150 * ms)
	assertPos(t, mgl64.Vec3{1, 0, 0}, p)
	assert.Equal(t, 1, p.Index())
	// the extra 50ms is dropped, not carried into the next step
	assert.Equal(t, time.Duration(0), p.Elapsed())

	p.Tick(100 * ms)
	assert.Equal(t, 100*ms, p.Elapsed())
	assertPos(t, mgl64.Vec3{2, 0, 0}, p)
}

func TestCompletionNotBeforeTotal(t *testing.T) {
	durations := []time.Duration{300 * ms, 200 * ms, 500 * ms}
	var steps []Step
	for i, d := range durations {
		steps = append(steps, Step{Name: string(rune('a' + i)), Duration: d})
	}
	completed := 0
	p, err := NewPlayer("total", steps, WithHooks(Hooks{OnComplete: func() { completed++ }}))
	require.NoError(t, err)
	p.Start()

	var sum time.Duration
	for p.IsPlaying() {
		lastIndex := p.Index()
		p.Tick(100 * ms)
		sum += 100 * ms
		assert.GreaterOrEqual(t, p.Index(), lastIndex)
		if p.IsPlaying() {
			assert.LessOrEqual(t, int64(p.Elapsed()), int64(durations[p.Index()]))
		}
	}
	assert.Equal(t, 1000*ms, sum)
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1.0, p.Progress())
}

func TestIdleTickIsNoop(t *testing.T) {
	p, err := NewPlayer("idle", []Step{{Name: "a", Duration: time.Second}})
	require.NoError(t, err)
	p.Tick(500 * ms)
	assert.Equal(t, Idle, p.State())
	assert.Equal(t, 0, p.Index())
	assert.Equal(t, time.Duration(0), p.Elapsed())

	p.Start()
	p.Tick(200 * ms)
	p.Stop()
	p.Tick(500 * ms)
	assert.Equal(t, Stopped, p.State())
	assert.Equal(t, 200*ms, p.Elapsed())
}

func TestTriggerFiresOncePerStart(t *testing.T) {
	count := 0
	p, err := NewPlayer("once", []Step{{
		Name:     "a",
		Duration: time.Second,
		Triggers: []Trigger{{Name: "ghost_in", At: 500 * ms, Fire: func() { count++ }}},
	}})
	require.NoError(t, err)
	p.Start()
	for i := 0; i < 8; i++ {
		p.Tick(100 * ms)
	}
	assert.Equal(t, 1, count)

	p.Stop()
	p.Start()
	for i := 0; i < 10; i++ {
		p.Tick(100 * ms)
	}
	assert.Equal(t, 2, count)
}

func TestTriggersFireInThresholdOrder(t *testing.T) {
	var got []string
	rec := func(s string) func() { return func() { got = append(got, s) } }
	p, err := NewPlayer("order", []Step{{
		Name:     "a",
		Duration: time.Second,
		Triggers: []Trigger{
			{Name: "c", At: 300 * ms, Fire: rec("c")},
			{Name: "a", At: 100 * ms, Fire: rec("a")},
			{Name: "half", Fraction: 0.5, Fire: rec("half")},
			{Name: "b", At: 200 * ms, Fire: rec("b")},
		},
	}})
	require.NoError(t, err)
	p.Start()
	p.Tick(400 * ms)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	p.Tick(100 * ms)
	assert.Equal(t, []string{"a", "b", "c", "half"}, got)
}

func TestTriggerAtZeroFiresOnEntry(t *testing.T) {
	var got []string
	p, err := NewPlayer("entry", []Step{
		{Name: "a", Duration: 100 * ms},
		{Name: "b", Duration: 100 * ms, Triggers: []Trigger{{Name: "enter_b", Fire: func() { got = append(got, "b") }}}},
	}, WithHooks(Hooks{OnStepChange: func(from, to int, name string) {
		got = append(got, "change:"+name)
	}}))
	require.NoError(t, err)
	p.Start()
	assert.Empty(t, got)
	p.Tick(100 * ms)
	assert.Equal(t, []string{"change:b", "b"}, got)
	p.Tick(50 * ms)
	assert.Len(t, got, 2)
}

func TestZeroLengthStep(t *testing.T) {
	fired := 0
	p, err := NewPlayer("instant", []Step{
		{Name: "flash", Duration: 0, Triggers: []Trigger{{Name: "cut", Fire: func() { fired++ }}}},
		{Name: "hold", Duration: 100 * ms},
	})
	require.NoError(t, err)
	p.Start()
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, p.Index())

	p.Tick(16 * ms)
	assert.Equal(t, 1, p.Index())
	assert.Equal(t, time.Duration(0), p.Elapsed())
	assert.Equal(t, 1, fired)
}

func TestZeroLengthStepMidSequence(t *testing.T) {
	fired := 0
	var changes []string
	p, err := NewPlayer("cut", []Step{
		{Name: "a", Duration: 100 * ms},
		{Name: "cut", Duration: 0, To: ptr(pose.At(0, 0, 5, 0, 0)), Triggers: []Trigger{{Name: "flash", Fire: func() { fired++ }}}},
		{Name: "b", Duration: time.Second, Ease: ease.Linear,
			From: ptr(pose.At(0, 0, 0, 0, 0)), To: ptr(pose.At(10, 0, 0, 0, 0))},
	}, WithHooks(Hooks{OnStepChange: func(from, to int, step string) { changes = append(changes, step) }}))
	require.NoError(t, err)
	p.Start()

	p.Tick(100 * ms)
	assert.Equal(t, 2, p.Index())
	assert.Equal(t, 1, fired)
	assert.Equal(t, []string{"cut", "b"}, changes)
	assert.InDelta(t, 5.0, p.Pose().Position.Z(), 1e-9, "the cut's end pose stands until b ticks")

	p.Tick(100 * ms)
	assert.Equal(t, 100*ms, p.Elapsed())
	assertPos(t, mgl64.Vec3{1, 0, 0}, p)
}

func TestTrailingZeroLengthStepCompletes(t *testing.T) {
	done := false
	p, err := NewPlayer("tail", []Step{
		{Name: "a", Duration: 100 * ms},
		{Name: "end", Duration: 0},
	}, WithHooks(Hooks{OnComplete: func() { done = true }}))
	require.NoError(t, err)
	p.Start()
	p.Tick(100 * ms)
	assert.True(t, done)
	assert.Equal(t, Complete, p.State())
}

func TestTriggerStoppingPlayerEndsTick(t *testing.T) {
	var p *Player
	var err error
	p, err = NewPlayer("reentrant", []Step{
		{Name: "a", Duration: 100 * ms, Triggers: []Trigger{{Name: "stop", At: 100 * ms, Fire: func() { p.Stop() }}}},
		{Name: "b", Duration: 100 * ms},
	})
	require.NoError(t, err)
	p.Start()
	p.Tick(100 * ms)
	assert.Equal(t, Stopped, p.State())
	assert.Equal(t, 0, p.Index())
}

func TestStopDropsHooks(t *testing.T) {
	completed := 0
	p, err := NewPlayer("hooks", []Step{{Name: "a", Duration: 100 * ms}},
		WithHooks(Hooks{OnComplete: func() { completed++ }}))
	require.NoError(t, err)
	p.Start()
	p.Stop()
	p.Start()
	p.Tick(100 * ms)
	assert.Equal(t, Complete, p.State())
	assert.Equal(t, 0, completed)

	p.SetHooks(Hooks{OnComplete: func() { completed++ }})
	p.Start()
	p.Tick(100 * ms)
	assert.Equal(t, 1, completed)
}

func TestRestartAfterComplete(t *testing.T) {
	p, err := NewPlayer("restart", []Step{
		move("a", 100*ms, pose.At(0, 0, 0, 0, 0), pose.At(1, 0, 0, 0, 0)),
	})
	require.NoError(t, err)
	p.Start()
	p.Tick(100 * ms)
	require.Equal(t, Complete, p.State())

	p.Start()
	assert.Equal(t, Playing, p.State())
	assert.Equal(t, 0, p.Index())
	assertPos(t, mgl64.Vec3{0, 0, 0}, p)
}

func TestContinueAndHold(t *testing.T) {
	p, err := NewPlayer("continue", []Step{
		move("a", 100*ms, pose.At(0, 0, 0, 0, 0), pose.At(4, 0, 0, 0.5, 0)),
		{Name: "hold", Duration: 100 * ms},
		{Name: "glide", Duration: 100 * ms, To: ptr(pose.At(8, 0, 0, 0.5, 0)), Ease: ease.Linear},
	})
	require.NoError(t, err)
	p.Start()
	p.Tick(100 * ms)
	p.Tick(50 * ms)
	assertPos(t, mgl64.Vec3{4, 0, 0}, p)
	assert.InDelta(t, 0.5, p.Pose().Yaw, 1e-12)
	p.Tick(50 * ms)
	p.Tick(50 * ms)
	assertPos(t, mgl64.Vec3{6, 0, 0}, p)
}

func TestSetOriginOverridesFirstStep(t *testing.T) {
	p, err := NewPlayer("ghost", []Step{
		move("walk", time.Second, pose.At(0, 0, 0, 0, 0), pose.At(30, 0, 0, 0, 0)),
	})
	require.NoError(t, err)
	p.SetOrigin(pose.At(10, 0, 0, 0, 0))
	p.Start()
	assertPos(t, mgl64.Vec3{10, 0, 0}, p)
	p.Tick(500 * ms)
	assertPos(t, mgl64.Vec3{20, 0, 0}, p)
}

func TestProgress(t *testing.T) {
	p, err := NewPlayer("progress", []Step{
		{Name: "a", Duration: time.Second},
		{Name: "b", Duration: time.Second},
	})
	require.NoError(t, err)
	p.Start()
	p.Tick(500 * ms)
	assert.InDelta(t, 0.25, p.Progress(), 1e-12)
	p.Tick(500 * ms)
	p.Tick(500 * ms)
	assert.InDelta(t, 0.75, p.Progress(), 1e-12)
}

func TestLookBackExcursion(t *testing.T) {
	starts, ends := 0, 0
	level := pose.At(0, 0, 0, 0, 0)
	step := move("run_forward", 8000*ms, level, pose.At(0, 0, 100, 0, 0))
	step.LookBack = &LookBack{
		At:       4000 * ms,
		Duration: 1200 * ms,
		Ease:     ease.Linear,
		OnStart:  func() { starts++ },
		OnEnd:    func() { ends++ },
	}
	p, err := NewPlayer("forest", []Step{step})
	require.NoError(t, err)
	p.Start()

	advance := func(d time.Duration) {
		for d > 0 {
			p.Tick(100 * ms)
			d -= 100 * ms
		}
	}
	advance(4000 * ms)
	assert.Equal(t, 1, starts)
	assert.InDelta(t, 0, p.Pose().Yaw, 1e-9)

	advance(300 * ms)
	assert.InDelta(t, math.Pi/2, p.Pose().Yaw, 1e-9)
	assert.InDelta(t, 4300.0/8000*100, p.Pose().Position.Z(), 1e-9, "position keeps interpolating")

	advance(300 * ms)
	assert.InDelta(t, math.Pi, p.Pose().Yaw, 1e-9)
	advance(200 * ms)
	assert.InDelta(t, math.Pi, p.Pose().Yaw, 1e-9, "holding")

	advance(300 * ms)
	assert.InDelta(t, math.Pi/3, p.Pose().Yaw, 1e-9)

	advance(100 * ms)
	assert.InDelta(t, 0, p.Pose().Yaw, 1e-9)
	assert.Equal(t, 1, ends)

	advance(2000 * ms)
	assert.Equal(t, 1, starts, "guarded against re-triggering")

	p.Stop()
	p.Start()
	advance(4100 * ms)
	assert.Equal(t, 2, starts, "guard resets on start")
}

func TestLookBackCutShortByStepEnd(t *testing.T) {
	starts, ends := 0, 0
	step := Step{Name: "short", Duration: 500 * ms, LookBack: &LookBack{
		At: 400 * ms, Duration: time.Second,
		OnStart: func() { starts++ },
		OnEnd:   func() { ends++ },
	}}
	p, err := NewPlayer("abort", []Step{step, {Name: "after", Duration: time.Second}})
	require.NoError(t, err)
	p.Start()
	for i := 0; i < 4; i++ {
		p.Tick(100 * ms)
	}
	assert.Equal(t, 1, starts)
	assert.Equal(t, 0, ends)

	p.Tick(100 * ms)
	assert.Equal(t, 1, p.Index())
	assert.Equal(t, 1, ends, "the step ending closes the look-back")

	p.Tick(100 * ms)
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, ends)
}

func TestStopDuringLookBackSkipsOnEnd(t *testing.T) {
	ends := 0
	p, err := NewPlayer("stopped", []Step{{Name: "a", Duration: time.Second, LookBack: &LookBack{
		At: 100 * ms, Duration: 500 * ms, OnEnd: func() { ends++ },
	}}})
	require.NoError(t, err)
	p.Start()
	p.Tick(200 * ms)
	p.Stop()
	p.Tick(time.Second)
	assert.Equal(t, 0, ends)
}

func TestChaseKeepsOffsetFromMovingReference(t *testing.T) {
	ref := mgl64.Vec3{0, 0, 0}
	p, err := NewPlayer("ghost_chase", []Step{{
		Name:     "chase",
		Duration: 10 * time.Second,
		From:     ptr(pose.At(10, 0, 0, 0, 0)),
		Chase:    &Chase{Reference: func() mgl64.Vec3 { return ref }, Offset: 4, Gain: 0.5},
	}})
	require.NoError(t, err)
	p.Start()

	p.Tick(16 * ms)
	assertPos(t, mgl64.Vec3{7, 0, 0}, p)
	assert.InDelta(t, -math.Pi/2, p.Pose().Yaw, 1e-9)
	p.Tick(16 * ms)
	assertPos(t, mgl64.Vec3{5.5, 0, 0}, p)

	for i := 0; i < 60; i++ {
		p.Tick(16 * ms)
	}
	assertPos(t, mgl64.Vec3{4, 0, 0}, p)

	ref = mgl64.Vec3{0, 0, 20}
	for i := 0; i < 200; i++ {
		p.Tick(16 * ms)
	}
	assert.InDelta(t, 4, p.Pose().Position.Sub(ref).Len(), 1e-6)
}

func TestOrbitStep(t *testing.T) {
	p, err := NewPlayer("orbit", []Step{{
		Name:     "circle",
		Duration: 4 * time.Second,
		Orbit:    &Orbit{Radius: 10, Height: 5, Speed: math.Pi / 2},
	}})
	require.NoError(t, err)
	p.Start()
	assertPos(t, mgl64.Vec3{10, 5, 0}, p)
	p.Tick(time.Second)
	assertPos(t, mgl64.Vec3{0, 5, 10}, p)
	assert.InDelta(t, math.Pi, math.Abs(p.Pose().Yaw), 1e-9)
	assert.InDelta(t, math.Atan2(-5, 10), p.Pose().Pitch, 1e-9)
}

func TestWobbleAndDrive(t *testing.T) {
	caption := &fade.Value{}
	p, err := NewPlayer("nod", []Step{{
		Name:     "nod_yes",
		Duration: time.Second,
		From:     ptr(pose.At(0, 0, 0, 0, -0.245)),
		Wobble:   []Wobble{{Channel: Pitch, Cycles: 3, Amplitude: 0.15}},
		Drives:   []Drive{{Target: caption, From: 0, To: 1}},
	}})
	require.NoError(t, err)
	p.Start()
	p.Tick(250 * ms)
	want := -0.245 + math.Sin(0.25*math.Pi*2*3)*0.15
	assert.InDelta(t, want, p.Pose().Pitch, 1e-12)
	assert.InDelta(t, 0.25, caption.V, 1e-12)
}

func TestConfigErrors(t *testing.T) {
	ref := func() mgl64.Vec3 { return mgl64.Vec3{} }
	cases := []struct {
		name  string
		steps []Step
	}{
		{"no steps", nil},
		{"negative duration", []Step{{Name: "a", Duration: -ms}}},
		{"zero duration with timed trigger", []Step{{Name: "a", Triggers: []Trigger{{At: 10 * ms}}}}},
		{"threshold past end", []Step{{Name: "a", Duration: 100 * ms, Triggers: []Trigger{{At: 200 * ms}}}}},
		{"fraction out of range", []Step{{Name: "a", Duration: 100 * ms, Triggers: []Trigger{{Fraction: 1.5}}}}},
		{"chase and orbit", []Step{{Name: "a", Duration: ms, Chase: &Chase{Reference: ref, Gain: 0.1}, Orbit: &Orbit{}}}},
		{"chase without reference", []Step{{Name: "a", Duration: ms, Chase: &Chase{Gain: 0.1}}}},
		{"chase without gain", []Step{{Name: "a", Duration: ms, Chase: &Chase{Reference: ref}}}},
		{"look-back outside step", []Step{{Name: "a", Duration: time.Second, LookBack: &LookBack{At: 2 * time.Second, Duration: ms}}}},
		{"look-back hold too long", []Step{{Name: "a", Duration: time.Second, LookBack: &LookBack{Duration: ms, Hold: 0.6}}}},
		{"unknown wobble channel", []Step{{Name: "a", Duration: time.Second, Wobble: []Wobble{{Channel: "roll"}}}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewPlayer("bad", c.steps)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
			var ce *ConfigError
			assert.True(t, errors.As(err, &ce))
			assert.Equal(t, "bad", ce.Player)
		})
	}
}

func TestStepDataIsCopied(t *testing.T) {
	from := pose.At(0, 0, 0, 0, 0)
	to := pose.At(10, 0, 0, 0, 0)
	steps := []Step{{Name: "a", Duration: time.Second, From: &from, To: &to, Ease: ease.Linear}}
	p, err := NewPlayer("copy", steps)
	require.NoError(t, err)
	to.Position[0] = 100
	steps[0].Duration = time.Hour
	p.Start()
	p.Tick(500 * ms)
	assertPos(t, mgl64.Vec3{5, 0, 0}, p)
}

func TestMoveTo(t *testing.T) {
	done := false
	p, err := MoveTo(pose.At(0, 0, 0, 0, 0), pose.At(0, 10, 0, 0, 0), 200*ms, ease.Linear, func() { done = true })
	require.NoError(t, err)
	assert.True(t, p.IsPlaying())
	p.Tick(100 * ms)
	assertPos(t, mgl64.Vec3{0, 5, 0}, p)
	p.Tick(100 * ms)
	assert.True(t, done)
}
