// Package ease holds the pure easing curves used by sequence steps, fades
// and look-back excursions. Every curve maps [0,1] onto [0,1] with f(0)=0
// and f(1)=1.
package ease

import "math"

// Func maps normalized progress t in [0,1] to eased progress.
type Func func(t float64) float64

// Clamp01 clamps x in [0,1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func Linear(t float64) float64 { return t }

func InQuad(t float64) float64 { return t * t }

func InCubic(t float64) float64 { return t * t * t }

func OutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

func InOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	u := -2*t + 2
	return 1 - u*u/2
}

func InOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

// OutExpo special-cases t==1 so the curve lands exactly on 1.
func OutExpo(t float64) float64 {
	if t >= 1 {
		return 1
	}
	return 1 - math.Pow(2, -10*t)
}

// Smoothstep is the classic 3x^2 - 2x^3.
func Smoothstep(t float64) float64 { return t * t * (3 - 2*t) }

// Smootherstep is 6x^5 - 15x^4 + 10x^3.
func Smootherstep(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

var named = map[string]Func{
	"linear":       Linear,
	"in_quad":      InQuad,
	"in_cubic":     InCubic,
	"out_cubic":    OutCubic,
	"in_out_quad":  InOutQuad,
	"in_out_cubic": InOutCubic,
	"out_expo":     OutExpo,
	"smooth":       Smoothstep,
	"smoother":     Smootherstep,
}

// ByName resolves a curve by its table name. The empty name resolves to
// InOutCubic, the default for camera steps.
func ByName(name string) (Func, bool) {
	if name == "" {
		return InOutCubic, true
	}
	f, ok := named[name]
	return f, ok
}

// Names lists the registered curve names.
func Names() []string {
	out := make([]string, 0, len(named))
	for k := range named {
		out = append(out, k)
	}
	return out
}

// Apply evaluates f at t clamped to [0,1], treating a nil f as Linear.
func Apply(f Func, t float64) float64 {
	t = Clamp01(t)
	if f == nil {
		return t
	}
	return f(t)
}
