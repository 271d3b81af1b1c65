package sequence

import (
	"time"

	"github.com/coreman2200/funtimes-cinecam/internal/ease"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
)

// MoveTo builds and starts a one-step player gliding from one pose to
// another. done runs when the move completes.
func MoveTo(from, to pose.Pose, d time.Duration, e ease.Func, done func(), opts ...Option) (*Player, error) {
	p, err := NewPlayer("move_to", []Step{{
		Name:     "move_to",
		Duration: d,
		From:     &from,
		To:       &to,
		Ease:     e,
	}}, opts...)
	if err != nil {
		return nil, err
	}
	p.SetHooks(Hooks{OnComplete: done})
	p.Start()
	return p, nil
}
