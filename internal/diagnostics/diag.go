package diagnostics

import (
	"sync"
	"time"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
	At             time.Time      `json:"at"`
}

// Codes raised by the playback engine.
const (
	EffectSkipped  = "EFFECT.SKIPPED"
	AssetNotReady  = "ASSET.NOT_READY"
	SceneChanged   = "SCENE.CHANGED"
	DriverSwitched = "CAMERA.DRIVER"
	ConfigInvalid  = "CONFIG.INVALID"
)

// Sink receives diagnostics.
type Sink interface {
	Push(d Diagnostic)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Diagnostic)

func (f SinkFunc) Push(d Diagnostic) { f(d) }

// Discard drops everything.
var Discard Sink = SinkFunc(func(Diagnostic) {})

// Log keeps the most recent diagnostics in memory and forwards each one to
// an optional downstream sink.
type Log struct {
	mu   sync.Mutex
	max  int
	list []Diagnostic
	Next Sink
}

func NewLog(max int) *Log {
	if max <= 0 {
		max = 100
	}
	return &Log{max: max}
}

func (l *Log) Push(d Diagnostic) {
	if d.At.IsZero() {
		d.At = time.Now()
	}
	l.mu.Lock()
	l.list = append(l.list, d)
	if len(l.list) > l.max {
		l.list = l.list[len(l.list)-l.max:]
	}
	next := l.Next
	l.mu.Unlock()
	if next != nil {
		next.Push(d)
	}
}

// Recent returns a copy of the retained diagnostics, oldest first.
func (l *Log) Recent() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Diagnostic(nil), l.list...)
}
