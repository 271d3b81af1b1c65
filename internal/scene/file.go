package scene

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-cinecam/internal/lightrig"
	"github.com/coreman2200/funtimes-cinecam/internal/pose"
)

// File is the on-disk description of one scene.
type File struct {
	Name        string                     `yaml:"name"`
	Next        string                     `yaml:"next,omitempty"`
	Handoff     string                     `yaml:"handoff,omitempty"` // live controller after the camera track: "fps", "third" or empty
	StartPreset string                     `yaml:"start_preset,omitempty"`
	Lights      []LightSpec                `yaml:"lights,omitempty"`
	Presets     map[string]lightrig.Preset `yaml:"presets,omitempty"`
	Targets     []TargetSpec               `yaml:"targets,omitempty"`
	Camera      TrackSpec                  `yaml:"camera"`
	Actors      map[string]TrackSpec       `yaml:"actors,omitempty"`
}

type LightSpec struct {
	Name      string  `yaml:"name"`
	Color     uint32  `yaml:"color"`
	Intensity float64 `yaml:"intensity"`
	Max       float64 `yaml:"max"`
}

// TargetSpec declares a fade target. With Members it is a group fanning out
// to other targets or lights. A Handle target has no placeholder level and
// waits for Scene.Bind.
type TargetSpec struct {
	Name    string   `yaml:"name"`
	Level   float64  `yaml:"level"`
	Members []string `yaml:"members,omitempty"`
	Handle  bool     `yaml:"handle,omitempty"`
}

type TrackSpec struct {
	Origin *PoseSpec  `yaml:"origin,omitempty"`
	Manual bool       `yaml:"manual,omitempty"` // started by a start:<actor> effect instead of on enter
	Steps  []StepSpec `yaml:"steps"`
}

type PoseSpec struct {
	Pos   [3]float64 `yaml:"pos"`
	Yaw   float64    `yaml:"yaw"`
	Pitch float64    `yaml:"pitch"`
}

func (p *PoseSpec) pose() *pose.Pose {
	if p == nil {
		return nil
	}
	out := pose.At(p.Pos[0], p.Pos[1], p.Pos[2], p.Yaw, p.Pitch)
	return &out
}

type StepSpec struct {
	Name     string        `yaml:"name"`
	Duration time.Duration `yaml:"duration"`
	Ease     string        `yaml:"ease,omitempty"`
	From     *PoseSpec     `yaml:"from,omitempty"`
	To       *PoseSpec     `yaml:"to,omitempty"`
	Triggers []TriggerSpec `yaml:"triggers,omitempty"`
	Drive    []DriveSpec   `yaml:"drive,omitempty"`
	Wobble   []WobbleSpec  `yaml:"wobble,omitempty"`
	LookBack *LookBackSpec `yaml:"look_back,omitempty"`
	Chase    *ChaseSpec    `yaml:"chase,omitempty"`
	Orbit    *OrbitSpec    `yaml:"orbit,omitempty"`
}

// TriggerSpec fires Effect once when the step crosses At (or Fraction of its
// duration). Effects are "verb:arg:arg", see Registry.
type TriggerSpec struct {
	At       time.Duration `yaml:"at,omitempty"`
	Fraction float64       `yaml:"fraction,omitempty"`
	Effect   string        `yaml:"effect"`
}

type DriveSpec struct {
	Target string  `yaml:"target"`
	From   float64 `yaml:"from"`
	To     float64 `yaml:"to"`
}

type WobbleSpec struct {
	Channel   string  `yaml:"channel"`
	Cycles    float64 `yaml:"cycles"`
	Amplitude float64 `yaml:"amplitude"`
	Eased     bool    `yaml:"eased,omitempty"`
}

type LookBackSpec struct {
	At       time.Duration `yaml:"at"`
	Duration time.Duration `yaml:"duration"`
	Hold     float64       `yaml:"hold,omitempty"`
	Turn     float64       `yaml:"turn,omitempty"`
	Pitch    float64       `yaml:"pitch,omitempty"`
	Ease     string        `yaml:"ease,omitempty"`
	OnStart  string        `yaml:"on_start,omitempty"`
	OnEnd    string        `yaml:"on_end,omitempty"`
}

type ChaseSpec struct {
	Reference string  `yaml:"reference"`
	Offset    float64 `yaml:"offset"`
	Gain      float64 `yaml:"gain"`
}

type OrbitSpec struct {
	Center [3]float64 `yaml:"center"`
	Radius float64    `yaml:"radius"`
	Height float64    `yaml:"height"`
	Speed  float64    `yaml:"speed"`
	Phase  float64    `yaml:"phase,omitempty"`
}

// Parse decodes a scene file, rejecting unknown fields.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if f.Name == "" {
		return nil, fmt.Errorf("scene has no name")
	}
	return &f, nil
}

// Marshal encodes a scene file.
func Marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}

// LoadDir parses every *.yaml file in dir, sorted by file name.
func LoadDir(dir string) ([]*File, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// LoadFS parses every *.yaml file under root in fsys.
func LoadFS(fsys fs.FS, root string) ([]*File, error) {
	matches, err := fs.Glob(fsys, path.Join(root, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	var out []*File
	for _, m := range matches {
		b, err := fs.ReadFile(fsys, m)
		if err != nil {
			return nil, err
		}
		f, err := Parse(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m, err)
		}
		out = append(out, f)
	}
	return out, nil
}
