// Package lightrig models a scene's named lights as fade targets, crossfades
// whole lighting presets, and renders the result as an LED strip frame.
package lightrig

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
)

// Light is a named light with a color and an intensity in [0, Max].
type Light struct {
	Name      string
	Color     color.NRGBA
	Intensity float64
	Max       float64
}

// Opacity exposes Intensity/Max so a light can be faded like any other target.
func (l *Light) Opacity() float64 {
	if l.Max <= 0 {
		return 0
	}
	return l.Intensity / l.Max
}

func (l *Light) SetOpacity(o float64) {
	l.Intensity = clamp01(o) * l.Max
}

// Level is one light's setting within a preset. Color is 0xRRGGBB.
type Level struct {
	Color     uint32  `yaml:"color" json:"color"`
	Intensity float64 `yaml:"intensity" json:"intensity"`
}

// Preset maps light names to levels.
type Preset map[string]Level

// Rig owns the lights of the active scene.
type Rig struct {
	lights  []*Light
	byName  map[string]*Light
	presets map[string]Preset

	PixelsPerLight int
	WhiteCap       float64
}

func New(pixelsPerLight int, whiteCap float64) *Rig {
	if pixelsPerLight <= 0 {
		pixelsPerLight = 1
	}
	return &Rig{
		byName:         map[string]*Light{},
		presets:        map[string]Preset{},
		PixelsPerLight: pixelsPerLight,
		WhiteCap:       whiteCap,
	}
}

// Add registers a light, replacing any light of the same name.
func (r *Rig) Add(l *Light) {
	if old, ok := r.byName[l.Name]; ok {
		*old = *l
		return
	}
	r.lights = append(r.lights, l)
	r.byName[l.Name] = l
}

// Light looks a light up by name.
func (r *Rig) Light(name string) (*Light, bool) {
	l, ok := r.byName[name]
	return l, ok
}

// Lights returns the lights in registration order.
func (r *Rig) Lights() []*Light { return r.lights }

// Reset drops every light and preset.
func (r *Rig) Reset() {
	r.lights = nil
	r.byName = map[string]*Light{}
	r.presets = map[string]Preset{}
}

func (r *Rig) AddPreset(name string, p Preset) { r.presets[name] = p }

// PresetNames lists known presets, sorted.
func (r *Rig) PresetNames() []string {
	out := make([]string, 0, len(r.presets))
	for k := range r.presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Apply sets every light named in the preset immediately.
func (r *Rig) Apply(name string) error {
	p, ok := r.presets[name]
	if !ok {
		return fmt.Errorf("unknown light preset %q", name)
	}
	for ln, lv := range p {
		if l, ok := r.byName[ln]; ok {
			l.Color = rgb(lv.Color)
			l.Intensity = lv.Intensity
		}
	}
	return nil
}

// Transition captures the current lighting and returns a fade target that
// mixes from it to the named preset as its level goes 0..1.
func (r *Rig) Transition(to string) (*Transition, error) {
	p, ok := r.presets[to]
	if !ok {
		return nil, fmt.Errorf("unknown light preset %q", to)
	}
	tr := &Transition{}
	for ln, lv := range p {
		l, ok := r.byName[ln]
		if !ok {
			continue
		}
		tr.legs = append(tr.legs, leg{
			light: l,
			from:  Level{Color: packed(l.Color), Intensity: l.Intensity},
			to:    lv,
		})
	}
	return tr, nil
}

// Transition is a preset crossfade in progress.
type Transition struct {
	legs  []leg
	alpha float64
}

type leg struct {
	light    *Light
	from, to Level
}

func (t *Transition) Opacity() float64 { return t.alpha }

func (t *Transition) SetOpacity(a float64) {
	t.alpha = clamp01(a)
	for _, lg := range t.legs {
		lg.light.Color = Mix(rgb(lg.from.Color), rgb(lg.to.Color), t.alpha)
		lg.light.Intensity = lg.from.Intensity + (lg.to.Intensity-lg.from.Intensity)*t.alpha
	}
}

// Frame renders each light as PixelsPerLight pixels on a one-row strip,
// scaled by Intensity/Max and passed through the white-cap limiter.
func (r *Rig) Frame() *image.NRGBA {
	w := len(r.lights) * r.PixelsPerLight
	img := image.NewNRGBA(image.Rect(0, 0, w, 1))
	for i, l := range r.lights {
		c := Scale(l.Color, l.Opacity())
		c = WhiteCap(c, r.WhiteCap)
		for j := 0; j < r.PixelsPerLight; j++ {
			img.SetNRGBA(i*r.PixelsPerLight+j, 0, c)
		}
	}
	return img
}

// Mix blends two colors by alpha in [0,1].
func Mix(a, b color.NRGBA, alpha float64) color.NRGBA {
	if alpha <= 0 {
		return a
	}
	if alpha >= 1 {
		return b
	}
	m := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x)*(1-alpha) + float64(y)*alpha))
	}
	return color.NRGBA{R: m(a.R, b.R), G: m(a.G, b.G), B: m(a.B, b.B), A: 0xFF}
}

// Scale dims a color by k in [0,1].
func Scale(c color.NRGBA, k float64) color.NRGBA {
	k = clamp01(k)
	s := func(x uint8) uint8 { return uint8(math.Round(float64(x) * k)) }
	return color.NRGBA{R: s(c.R), G: s(c.G), B: s(c.B), A: 0xFF}
}

// WhiteCap limits r+g+b to whiteCap*3*255, preserving hue. A cap outside
// (0,1) disables the limiter.
func WhiteCap(c color.NRGBA, whiteCap float64) color.NRGBA {
	if whiteCap <= 0 || whiteCap >= 1 {
		return c
	}
	limit := whiteCap * 3.0 * 255.0
	sum := float64(c.R) + float64(c.G) + float64(c.B)
	if sum <= limit || sum == 0 {
		return c
	}
	k := limit / sum
	return color.NRGBA{
		R: uint8(math.Round(float64(c.R) * k)),
		G: uint8(math.Round(float64(c.G) * k)),
		B: uint8(math.Round(float64(c.B) * k)),
		A: c.A,
	}
}

// RGB converts 0xRRGGBB to an opaque color.
func RGB(v uint32) color.NRGBA { return rgb(v) }

func rgb(v uint32) color.NRGBA {
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}

func packed(c color.NRGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
