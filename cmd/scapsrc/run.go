package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go2tv.app/scapsrc/capture"
	"go2tv.app/scapsrc/capture/screencast"
	"go2tv.app/scapsrc/internal/config"
	"go2tv.app/scapsrc/internal/logging"
	"go2tv.app/scapsrc/internal/pipeline"
	"go2tv.app/scapsrc/scapsrc"
)

// Flags that override config keys of the same meaning.
var runFlags = []struct {
	flag string
	key  string
}{
	{"fps", "fps"},
	{"show-cursor", "show_cursor"},
	{"preroll", "perform_internal_preroll"},
	{"backend", "backend"},
	{"output", "output"},
	{"num-buffers", "num_buffers"},
	{"accept-caps", "accept_caps"},
	{"log-level", "log.level"},
}

func newRunCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture the screen into a sink",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(*cfgFile, nil)
			for _, f := range runFlags {
				if err := loader.Viper().BindPFlag(f.key, cmd.Flags().Lookup(f.flag)); err != nil {
					return err
				}
			}

			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			log := logging.New(cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())
			slog.SetDefault(log.Logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPipeline(ctx, loader, cfg, log)
		},
	}

	d := config.Default()
	cmd.Flags().Uint32("fps", d.FPS, "capture frame rate")
	cmd.Flags().Bool("show-cursor", d.ShowCursor, "embed the pointer into frames")
	cmd.Flags().Bool("preroll", d.PerformInternalPreroll, "pull one frame while pausing to learn the format early")
	cmd.Flags().String("backend", d.Backend, "capture backend: portal or pattern")
	cmd.Flags().StringP("output", "o", d.Output, "write raw frames to this file instead of discarding them")
	cmd.Flags().IntP("num-buffers", "n", d.NumBuffers, "stop after this many frames (0 = until interrupted)")
	cmd.Flags().String("accept-caps", d.AcceptCaps, "caps the sink accepts, e.g. \"video/x-raw, format=BGRx\"")
	cmd.Flags().String("log-level", d.Log.Level, "debug, info, warn or error")
	return cmd
}

func runPipeline(ctx context.Context, loader *config.Loader, cfg *config.Config, log *logging.Logger) error {
	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}
	settings := cfg.Settings()
	src, err := scapsrc.New(scapsrc.Options{
		Builder:      builder,
		Settings:     &settings,
		FrameTimeout: cfg.FrameTimeout,
		Logger:       log.L("scapsrc"),
	})
	if err != nil {
		return err
	}

	sink, err := newSink(cfg, log.L("sink"))
	if err != nil {
		return err
	}

	if loader.ConfigFile() != "" {
		loader.Watch(func(next *config.Config) {
			log.SetLevel(next.Log.Level)
			if err := src.SetSettings(next.Settings()); err != nil {
				log.Warn("config: element rejected settings", logging.KeyError, err)
			}
		})
	}

	log.Info("starting capture",
		"element", src.Name(),
		"backend", cfg.Backend,
		"config", loader.ConfigFile(),
	)
	return pipeline.New(src, sink, pipeline.Options{
		NumBuffers:    cfg.NumBuffers,
		StatsInterval: cfg.StatsInterval,
		Logger:        log.L("pipeline"),
	}).Run(ctx)
}

func newBuilder(cfg *config.Config) (capture.Builder, error) {
	switch cfg.Backend {
	case config.BackendPattern:
		tag, ok := capture.ParsePixelTag(cfg.Pattern.Format)
		if !ok {
			return nil, fmt.Errorf("unknown pattern format %q", cfg.Pattern.Format)
		}
		return capture.PatternBuilder{
			Width:  cfg.Pattern.Width,
			Height: cfg.Pattern.Height,
			Tag:    tag,
		}, nil
	case config.BackendPortal:
		return screencast.Builder(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newSink(cfg *config.Config, log *slog.Logger) (pipeline.Sink, error) {
	accept, err := scapsrc.ParseCaps(cfg.AcceptCaps)
	if err != nil {
		return nil, err
	}
	if cfg.Output != "" {
		return pipeline.NewFileSink(cfg.Output, accept, log)
	}
	return pipeline.NewFakeSink(accept), nil
}
