// Package input buffers live camera input: held keys plus accumulated mouse
// and wheel deltas. Producers (websocket readers) and the frame loop run on
// different goroutines, so State is mutex guarded.
package input

import (
	"strings"
	"sync"
)

// Key names a bindable key.
type Key string

const (
	Forward  Key = "w"
	Left     Key = "a"
	Back     Key = "s"
	Right    Key = "d"
	Down     Key = "q"
	Up       Key = "e"
	Sprint   Key = "shift"
	ViewMode Key = "v"
)

// ParseKey normalizes a key name from the wire.
func ParseKey(s string) (Key, bool) {
	k := Key(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case Forward, Left, Back, Right, Down, Up, Sprint, ViewMode:
		return k, true
	}
	return "", false
}

// Snapshot is what a controller sees for one tick.
type Snapshot struct {
	Held   map[Key]bool
	DX, DY float64
	Wheel  float64
}

// Down reports whether k is held.
func (s Snapshot) Down(k Key) bool { return s.Held[k] }

// State accumulates input between ticks.
type State struct {
	mu     sync.Mutex
	held   map[Key]bool
	dx, dy float64
	wheel  float64
}

func NewState() *State {
	return &State{held: map[Key]bool{}}
}

func (s *State) Press(k Key) {
	s.mu.Lock()
	s.held[k] = true
	s.mu.Unlock()
}

func (s *State) Release(k Key) {
	s.mu.Lock()
	delete(s.held, k)
	s.mu.Unlock()
}

// Move accumulates a mouse delta in pixels.
func (s *State) Move(dx, dy float64) {
	s.mu.Lock()
	s.dx += dx
	s.dy += dy
	s.mu.Unlock()
}

// Scroll accumulates a wheel delta.
func (s *State) Scroll(d float64) {
	s.mu.Lock()
	s.wheel += d
	s.mu.Unlock()
}

// Clear forgets held keys and pending deltas, as on window blur or when live
// control is suspended.
func (s *State) Clear() {
	s.mu.Lock()
	s.held = map[Key]bool{}
	s.dx, s.dy, s.wheel = 0, 0, 0
	s.mu.Unlock()
}

// Snapshot copies the held set and drains the accumulated deltas.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := make(map[Key]bool, len(s.held))
	for k, v := range s.held {
		held[k] = v
	}
	snap := Snapshot{Held: held, DX: s.dx, DY: s.dy, Wheel: s.wheel}
	s.dx, s.dy, s.wheel = 0, 0, 0
	return snap
}
