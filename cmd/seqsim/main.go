// Command seqsim plays scenes headless at a fixed frame rate and logs the
// camera as it goes. Useful for checking a scene file without a viewer.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-cinecam/internal/app"
	"github.com/coreman2200/funtimes-cinecam/internal/config"
	"github.com/coreman2200/funtimes-cinecam/internal/control"
	"github.com/coreman2200/funtimes-cinecam/internal/scene"
)

func main() {
	var (
		dir     = flag.String("scenes", "", "directory of scene *.yaml files (default: bundled scenes)")
		start   = flag.String("scene", "opening", "scene to start in")
		rate    = flag.String("rate", "60Hz", "simulation frame rate")
		every   = flag.Int("every", 30, "log every Nth frame")
		limit   = flag.Duration("limit", 2*time.Minute, "stop after this much simulated time")
		verbose = flag.Bool("v", false, "debug logging (step changes, triggers)")
	)
	flag.Parse()
	if *every < 1 {
		*every = 1
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var (
		files []*scene.File
		err   error
	)
	if *dir != "" {
		files, err = scene.LoadDir(*dir)
	} else {
		files, err = scene.Builtin()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("load scenes")
	}

	cfg := config.Default()
	cfg.StartScene = *start
	cfg.FrameRate = *rate
	core, err := app.New(app.Options{Config: cfg, Files: files, Logger: log.Logger})
	if err != nil {
		log.Fatal().Err(err).Msg("init core")
	}
	if err := core.Begin(); err != nil {
		log.Fatal().Err(err).Msg("start")
	}

	dt := core.Period()
	var simulated time.Duration
	for frame := 1; simulated < *limit; frame++ {
		f := core.Step(dt)
		simulated += dt
		if frame%*every == 0 {
			log.Info().
				Str("scene", f.Scene).
				Str("step", f.Step).
				Float64("progress", f.Progress).
				Floats64("pos", f.Pose.Position[:]).
				Float64("yaw", f.Pose.Yaw).
				Float64("pitch", f.Pose.Pitch).
				Float64("overlay", f.Overlay).
				Msg("frame")
		}
		if f.Driver == control.Live && !core.Scenes.Transitioning() {
			log.Info().Str("scene", f.Scene).Dur("at", simulated).Msg("handed off to live input; done")
			return
		}
	}
	log.Warn().Dur("limit", *limit).Msg("simulation limit reached")
}
