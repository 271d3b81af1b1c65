package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/funtimes-cinecam/internal/control"
)

type Live struct {
	Mode             string  `yaml:"mode"` // "fps" | "third", used when a scene hands off without naming one
	MoveSpeed        float64 `yaml:"move_speed"`
	SprintSpeed      float64 `yaml:"sprint_speed"`
	LookSensitivity  float64 `yaml:"look_sensitivity"`
	OrbitSensitivity float64 `yaml:"orbit_sensitivity"`
	ZoomSensitivity  float64 `yaml:"zoom_sensitivity"`
	Distance         float64 `yaml:"distance"`
}

type Rig struct {
	Driver         string  `yaml:"driver"` // "none" | "screen" | "spi"
	Port           string  `yaml:"port,omitempty"`
	PixelsPerLight int     `yaml:"pixels_per_light"`
	WhiteCap       float64 `yaml:"white_cap"`
}

type Config struct {
	Addr       string        `yaml:"addr"`
	FrameRate  string        `yaml:"frame_rate"` // e.g. 60Hz
	MaxDelta   time.Duration `yaml:"max_delta"`
	Transition time.Duration `yaml:"transition"`
	LogLevel   string        `yaml:"log_level"`
	StartScene string        `yaml:"start_scene"`
	ScenesDir  string        `yaml:"scenes_dir,omitempty"` // empty means the bundled scenes

	Live Live `yaml:"live"`
	Rig  Rig  `yaml:"rig"`
}

func Default() *Config {
	t := control.DefaultTuning()
	return &Config{
		Addr:       ":8080",
		FrameRate:  "60Hz",
		MaxDelta:   100 * time.Millisecond,
		Transition: time.Second,
		LogLevel:   "info",
		StartScene: "opening",
		Live: Live{
			Mode:             "fps",
			MoveSpeed:        t.MoveSpeed,
			SprintSpeed:      t.SprintSpeed,
			LookSensitivity:  t.LookSensitivity,
			OrbitSensitivity: t.OrbitSensitivity,
			ZoomSensitivity:  t.ZoomSensitivity,
			Distance:         t.Distance,
		},
		Rig: Rig{Driver: "none", PixelsPerLight: 4, WhiteCap: 0.8},
	}
}

// Load reads path over the defaults, so a partial file only overrides what
// it names.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	if _, err := c.Frequency(); err != nil {
		return err
	}
	if c.MaxDelta <= 0 {
		return fmt.Errorf("max_delta must be positive, got %s", c.MaxDelta)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.Live.Mode {
	case "fps", "third":
	default:
		return fmt.Errorf("live.mode %q: want fps or third", c.Live.Mode)
	}
	if c.Rig.PixelsPerLight <= 0 {
		return fmt.Errorf("rig.pixels_per_light must be positive")
	}
	return nil
}

// Frequency parses FrameRate.
func (c *Config) Frequency() (physic.Frequency, error) {
	var f physic.Frequency
	if err := f.Set(c.FrameRate); err != nil {
		return 0, fmt.Errorf("frame_rate %q: %w", c.FrameRate, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("frame_rate %q must be positive", c.FrameRate)
	}
	return f, nil
}

// Tuning overlays the live settings on the default control tuning. Zero
// fields keep the default.
func (c *Config) Tuning() control.Tuning {
	t := control.DefaultTuning()
	set := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	set(&t.MoveSpeed, c.Live.MoveSpeed)
	set(&t.SprintSpeed, c.Live.SprintSpeed)
	set(&t.LookSensitivity, c.Live.LookSensitivity)
	set(&t.OrbitSensitivity, c.Live.OrbitSensitivity)
	set(&t.ZoomSensitivity, c.Live.ZoomSensitivity)
	set(&t.Distance, c.Live.Distance)
	return t
}
