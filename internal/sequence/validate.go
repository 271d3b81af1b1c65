package sequence

import (
	"fmt"
	"math"
	"sort"

	"github.com/coreman2200/funtimes-cinecam/internal/ease"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
)

const (
	defaultHold = 0.25
	lookHalf    = 0.5
)

// prepare validates steps and returns a private copy with defaults filled in,
// plus each step's trigger indices in ascending threshold order.
func prepare(name string, in []Step) ([]Step, [][]int, error) {
	if len(in) == 0 {
		return nil, nil, &ConfigError{Player: name, Step: -1, Reason: "no steps"}
	}
	steps := make([]Step, len(in))
	order := make([][]int, len(in))
	for i, s := range in {
		bad := func(format string, args ...any) error {
			return &ConfigError{Player: name, Step: i, Name: s.Name, Reason: fmt.Sprintf(format, args...)}
		}
		if s.Duration < 0 {
			return nil, nil, bad("negative duration %s", s.Duration)
		}
		if s.Ease == nil {
			s.Ease = ease.InOutCubic
		}
		s.From = clonePose(s.From)
		s.To = clonePose(s.To)
		s.Triggers = append([]Trigger(nil), s.Triggers...)
		s.Drives = append([]Drive(nil), s.Drives...)
		s.Wobble = append([]Wobble(nil), s.Wobble...)

		for j, tr := range s.Triggers {
			if tr.Fraction < 0 || tr.Fraction > 1 || math.IsNaN(tr.Fraction) {
				return nil, nil, bad("trigger %d (%s): fraction %v outside [0,1]", j, tr.Name, tr.Fraction)
			}
			th := tr.threshold(s.Duration)
			if th < 0 || th > s.Duration {
				if s.Duration == 0 {
					return nil, nil, bad("trigger %d (%s): zero-length step cannot hold threshold %s", j, tr.Name, th)
				}
				return nil, nil, bad("trigger %d (%s): threshold %s outside [0,%s]", j, tr.Name, th, s.Duration)
			}
		}
		idx := make([]int, len(s.Triggers))
		for j := range idx {
			idx[j] = j
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return s.Triggers[idx[a]].threshold(s.Duration) < s.Triggers[idx[b]].threshold(s.Duration)
		})
		order[i] = idx

		if s.Chase != nil && s.Orbit != nil {
			return nil, nil, bad("chase and orbit are exclusive")
		}
		if s.Chase != nil {
			c := *s.Chase
			if c.Reference == nil {
				return nil, nil, bad("chase without a reference")
			}
			if c.Gain <= 0 || c.Gain > 1 {
				return nil, nil, bad("chase gain %v outside (0,1]", c.Gain)
			}
			if c.Offset < 0 {
				return nil, nil, bad("negative chase offset %v", c.Offset)
			}
			s.Chase = &c
		}
		if s.Orbit != nil {
			o := *s.Orbit
			s.Orbit = &o
		}
		for j, w := range s.Wobble {
			switch w.Channel {
			case Yaw, Pitch, Height:
			default:
				return nil, nil, bad("wobble %d: unknown channel %q", j, w.Channel)
			}
		}
		if s.LookBack != nil {
			lb := *s.LookBack
			if lb.Hold == 0 {
				lb.Hold = defaultHold
			}
			if lb.Turn == 0 {
				lb.Turn = math.Pi
			}
			if lb.Ease == nil {
				lb.Ease = ease.InOutCubic
			}
			if lb.Duration <= 0 {
				return nil, nil, bad("look-back needs a positive duration")
			}
			if lb.At < 0 || lb.At >= s.Duration {
				return nil, nil, bad("look-back start %s outside step of %s", lb.At, s.Duration)
			}
			if lb.Hold < 0 || lookHalf+lb.Hold >= 1 {
				return nil, nil, bad("look-back hold %v leaves no time to turn back", lb.Hold)
			}
			s.LookBack = &lb
		}
		steps[i] = s
	}
	return steps, order, nil
}

func clonePose(p *pose.Pose) *pose.Pose {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
