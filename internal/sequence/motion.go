package sequence

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/coreman2200/funtimes-cinecam/internal/ease"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
)

// evaluate computes the pose for step st at raw progress t. dt is the time
// since the previous evaluation and only matters to chase steps.
func (p *Player) evaluate(st *Step, t float64, dt time.Duration) pose.Pose {
	e := ease.Apply(st.Ease, t)

	var out pose.Pose
	switch {
	case st.Chase != nil:
		out = p.chase(st.Chase, dt)
	case st.Orbit != nil:
		out = st.Orbit.at(p.elapsed, p.pose)
	default:
		out = pose.Lerp(p.from, p.to, e)
	}
	for _, w := range st.Wobble {
		out = w.apply(out, t, e)
	}
	if st.LookBack != nil {
		out = p.lookBack(st.LookBack, out)
	}
	for _, d := range st.Drives {
		d.apply(t)
	}
	return out
}

func (w Wobble) apply(p pose.Pose, t, e float64) pose.Pose {
	u := t
	if w.Eased {
		u = e
	}
	v := math.Sin(u*math.Pi*2*w.Cycles) * w.Amplitude
	switch w.Channel {
	case Yaw:
		p.Yaw += v
	case Pitch:
		p.Pitch += v
	case Height:
		p.Position[1] += v
	}
	return p
}

// chase moves the chaser a Gain fraction toward the point Offset units from
// the reference along the reference-to-chaser line. If the two coincide the
// chaser holds still.
func (p *Player) chase(c *Chase, dt time.Duration) pose.Pose {
	ref := c.Reference()
	if dt > 0 {
		target := p.chasePos
		if away := p.chasePos.Sub(ref); away.Len() > 1e-9 {
			target = ref.Add(away.Normalize().Mul(c.Offset))
		}
		p.chasePos = p.chasePos.Add(target.Sub(p.chasePos).Mul(c.Gain))
	}
	return pose.Toward(p.chasePos, ref, p.pose)
}

func (o *Orbit) at(elapsed time.Duration, fallback pose.Pose) pose.Pose {
	a := o.Phase + o.Speed*elapsed.Seconds()
	eye := o.Center.Add(mgl64.Vec3{math.Cos(a) * o.Radius, o.Height, math.Sin(a) * o.Radius})
	return pose.Toward(eye, o.Center, fallback)
}

// lookBack overlays the look-back excursion on base. It starts once the
// step's elapsed time reaches lb.At, at most once per step per Start, and
// ends when its own clock runs out or the step advances. OnEnd runs in both
// cases, so every OnStart is matched; Stop runs neither.
func (p *Player) lookBack(lb *LookBack, base pose.Pose) pose.Pose {
	if !p.look.active {
		if p.looked[p.idx] || p.elapsed < lb.At {
			return base
		}
		p.looked[p.idx] = true
		p.look = lookState{active: true, yaw: base.Yaw, pitch: base.Pitch}
		p.log.Debug().Str("sequence", p.name).Int("step", p.idx).Msg("look-back start")
		if lb.OnStart != nil {
			lb.OnStart()
		}
	}
	k := float64(p.elapsed-lb.At) / float64(lb.Duration)
	if k >= 1 {
		p.endLook(lb)
		return base
	}
	base.Yaw, base.Pitch = lb.orient(k, p.look.yaw, p.look.pitch, base.Yaw, base.Pitch)
	return base
}

func (p *Player) endLook(lb *LookBack) {
	p.look.active = false
	p.log.Debug().Str("sequence", p.name).Int("step", p.idx).Msg("look-back end")
	if lb.OnEnd != nil {
		lb.OnEnd()
	}
}

// orient splits the excursion into turn-away (first half), hold (Hold) and
// turn-back (remainder). The turn-back lands on the live base orientation so
// the hand-off back to the parent step is continuous.
func (lb *LookBack) orient(k, startYaw, startPitch, baseYaw, basePitch float64) (yaw, pitch float64) {
	turned := startYaw + lb.Turn
	switch {
	case k < lookHalf:
		e := ease.Apply(lb.Ease, k/lookHalf)
		return lerp(startYaw, turned, e), lerp(startPitch, lb.Pitch, e)
	case k < lookHalf+lb.Hold:
		return turned, lb.Pitch
	default:
		e := ease.Apply(lb.Ease, (k-lookHalf-lb.Hold)/(1-lookHalf-lb.Hold))
		return lerp(turned, baseYaw, e), lerp(lb.Pitch, basePitch, e)
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
