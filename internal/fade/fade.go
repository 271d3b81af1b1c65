// Package fade drives opacity-like values toward a target over time. Fades
// only advance when Tick is called, so they stay in lockstep with the frame
// loop and stop when the loop stops.
package fade

import (
	"time"

	"github.com/coreman2200/funtimes-cinecam/internal/ease"
)

// Target is anything with a fadeable 0..1 level: a mesh opacity, a light
// intensity, an overlay.
type Target interface {
	Opacity() float64
	SetOpacity(v float64)
}

// Value is a bare Target holding its level.
type Value struct {
	V float64
}

func (v *Value) Opacity() float64     { return v.V }
func (v *Value) SetOpacity(o float64) { v.V = ease.Clamp01(o) }

// Scaled maps a 0..1 level onto [0, Max] of another setter, e.g. a light
// whose full intensity is 3.0.
type Scaled struct {
	Max float64
	Get func() float64
	Set func(float64)
}

func (s Scaled) Opacity() float64 {
	if s.Max == 0 || s.Get == nil {
		return 0
	}
	return s.Get() / s.Max
}

func (s Scaled) SetOpacity(o float64) {
	if s.Set != nil {
		s.Set(ease.Clamp01(o) * s.Max)
	}
}

// Group fans one level out to several targets. Its Opacity is the first
// member's.
type Group []Target

func (g Group) Opacity() float64 {
	if len(g) == 0 {
		return 0
	}
	return g[0].Opacity()
}

func (g Group) SetOpacity(o float64) {
	for _, t := range g {
		t.SetOpacity(o)
	}
}

type fade struct {
	target   Target
	from, to float64
	duration time.Duration
	elapsed  time.Duration
	ease     ease.Func
	done     func()
}

// Fader runs named fades. Starting a fade under a name already running
// replaces it without calling the replaced fade's done callback.
type Fader struct {
	fades map[string]*fade
	order []string
}

func NewFader() *Fader {
	return &Fader{fades: map[string]*fade{}}
}

// Start begins fading target from one level to another. A non-positive
// duration applies the end level immediately. done may be nil.
func (f *Fader) Start(name string, target Target, from, to float64, d time.Duration, e ease.Func, done func()) {
	if target == nil {
		return
	}
	if d <= 0 {
		f.Cancel(name)
		target.SetOpacity(to)
		if done != nil {
			done()
		}
		return
	}
	target.SetOpacity(from)
	if _, ok := f.fades[name]; !ok {
		f.order = append(f.order, name)
	}
	f.fades[name] = &fade{target: target, from: from, to: to, duration: d, ease: e, done: done}
}

// To fades from the target's current level.
func (f *Fader) To(name string, target Target, to float64, d time.Duration, e ease.Func, done func()) {
	if target == nil {
		return
	}
	f.Start(name, target, target.Opacity(), to, d, e, done)
}

// Cancel drops a running fade, leaving the target where it is.
func (f *Fader) Cancel(name string) {
	if _, ok := f.fades[name]; !ok {
		return
	}
	delete(f.fades, name)
	for i, n := range f.order {
		if n == name {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// Active reports whether a fade with that name is still running.
func (f *Fader) Active(name string) bool {
	_, ok := f.fades[name]
	return ok
}

// Len is the number of running fades.
func (f *Fader) Len() int { return len(f.fades) }

// Tick advances every running fade by dt, in start order. Finished fades
// land exactly on their end level and call done after removal.
func (f *Fader) Tick(dt time.Duration) {
	if dt < 0 || len(f.fades) == 0 {
		return
	}
	var finished []*fade
	names := append([]string(nil), f.order...)
	for _, name := range names {
		fd, ok := f.fades[name]
		if !ok {
			continue
		}
		fd.elapsed += dt
		t := float64(fd.elapsed) / float64(fd.duration)
		if t >= 1 {
			fd.target.SetOpacity(fd.to)
			f.Cancel(name)
			finished = append(finished, fd)
			continue
		}
		k := ease.Apply(fd.ease, t)
		fd.target.SetOpacity(fd.from + (fd.to-fd.from)*k)
	}
	for _, fd := range finished {
		if fd.done != nil {
			fd.done()
		}
	}
}
