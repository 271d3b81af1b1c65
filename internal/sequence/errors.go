package sequence

import (
	"errors"
	"fmt"
)

// ErrConfig is matched by every construction-time validation failure.
var ErrConfig = errors.New("invalid sequence configuration")

// ConfigError names the sequence and step that failed validation. Step is -1
// when the problem concerns the sequence as a whole.
type ConfigError struct {
	Player string
	Step   int
	Name   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("sequence %q: %s", e.Player, e.Reason)
	}
	return fmt.Sprintf("sequence %q step %d (%s): %s", e.Player, e.Step, e.Name, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }
