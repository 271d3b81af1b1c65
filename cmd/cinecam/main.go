package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/funtimes-cinecam/internal/app"
	"github.com/coreman2200/funtimes-cinecam/internal/config"
	"github.com/coreman2200/funtimes-cinecam/internal/lightrig"
	"github.com/coreman2200/funtimes-cinecam/internal/scene"
	"github.com/coreman2200/funtimes-cinecam/internal/ws"
)

func main() {
	// ---- Flags (config.yaml overrides where it sets a value) ----
	var (
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		start      = flag.String("scene", "", "scene to start in (default from config)")
		scenesDir  = flag.String("scenes", "", "directory of scene *.yaml files (default: bundled scenes)")
		frameRate  = flag.String("rate", "", "frame rate, e.g. 60Hz")
		rigDriver  = flag.String("rig", "", "light mirror: none | screen | spi")
		spiPort    = flag.String("spi-port", "", "SPI port name for the light mirror")
		level      = flag.String("log-level", "", "log level")
		writeCfg   = flag.Bool("write-config", false, "write the effective config to -config and exit")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Load config.yaml (optional) ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults and flags")
		cfg = config.Default()
	}

	// ---- Effective params ----
	if *addr != ":8080" || cfg.Addr == "" {
		cfg.Addr = *addr
	}
	overrideString(&cfg.StartScene, *start)
	overrideString(&cfg.ScenesDir, *scenesDir)
	overrideString(&cfg.FrameRate, *frameRate)
	overrideString(&cfg.Rig.Driver, *rigDriver)
	overrideString(&cfg.Rig.Port, *spiPort)
	overrideString(&cfg.LogLevel, *level)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if *writeCfg {
		if err := config.Save(*configPath, cfg); err != nil {
			log.Fatal().Err(err).Msg("write config")
		}
		log.Info().Str("path", *configPath).Msg("config written")
		return
	}

	// ---- Scenes ----
	var files []*scene.File
	if cfg.ScenesDir != "" {
		files, err = scene.LoadDir(cfg.ScenesDir)
	} else {
		files, err = scene.Builtin()
	}
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ScenesDir).Msg("load scenes")
	}

	// ---- Light mirror ----
	pixels := cfg.Rig.PixelsPerLight * maxLights(files)
	mirror, err := lightrig.Open(cfg.Rig.Driver, cfg.Rig.Port, pixels, log.Logger)
	if err != nil {
		log.Warn().Err(err).Str("driver", cfg.Rig.Driver).Msg("light mirror init failed; running without")
		mirror = nil
	}

	// ---- Core ----
	core, err := app.New(app.Options{Config: cfg, Files: files, Mirror: mirror, Logger: log.Logger})
	if err != nil {
		log.Fatal().Err(err).Msg("init core")
	}
	defer core.Close()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      ws.New(core, log.Logger).Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ---- Run frame loop & server until a signal ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return core.Run(ctx) })
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("mirror", mirror.String()).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("exited with error")
		os.Exit(1)
	}
}

func overrideString(dst *string, flagVal string) {
	if flagVal != "" {
		*dst = flagVal
	}
}

func maxLights(files []*scene.File) int {
	n := 1
	for _, f := range files {
		if len(f.Lights) > n {
			n = len(f.Lights)
		}
	}
	return n
}
