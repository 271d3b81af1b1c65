package ease

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurveEndpointsAndMonotonic(t *testing.T) {
	names := Names()
	sort.Strings(names)
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			f, ok := ByName(name)
			require.True(t, ok)
			assert.InDelta(t, 0, f(0), 1e-9)
			assert.InDelta(t, 1, f(1), 1e-9)
			prev := f(0)
			for i := 1; i <= 1000; i++ {
				v := f(float64(i) / 1000)
				assert.GreaterOrEqual(t, v+1e-12, prev, "not monotonic at %d", i)
				prev = v
			}
		})
	}
}

func TestOutExpoExactAtOne(t *testing.T) {
	assert.Equal(t, 1.0, OutExpo(1))
	assert.Less(t, OutExpo(0.999), 1.0)
}

func TestKnownValues(t *testing.T) {
	cases := []struct {
		name string
		f    Func
		in   float64
		want float64
	}{
		{"cubic quarter", InOutCubic, 0.25, 0.0625},
		{"cubic half", InOutCubic, 0.5, 0.5},
		{"cubic three quarters", InOutCubic, 0.75, 0.9375},
		{"quad quarter", InOutQuad, 0.25, 0.125},
		{"quad three quarters", InOutQuad, 0.75, 0.875},
		{"in cubic half", InCubic, 0.5, 0.125},
		{"smooth half", Smoothstep, 0.5, 0.5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.InDelta(t, c.want, c.f(c.in), 1e-12)
		})
	}
}

func TestByName(t *testing.T) {
	f, ok := ByName("")
	require.True(t, ok)
	assert.InDelta(t, InOutCubic(0.3), f(0.3), 1e-12)

	_, ok = ByName("bounce")
	assert.False(t, ok)
}

func TestApplyClampsAndDefaults(t *testing.T) {
	assert.Equal(t, 0.0, Apply(InOutCubic, -2))
	assert.Equal(t, 1.0, Apply(InOutCubic, 7))
	assert.Equal(t, 0.4, Apply(nil, 0.4))
}
