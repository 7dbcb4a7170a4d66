package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wolfeidau/bundler/internal/assets"
)

type BuildCmd struct {
	ModeFlags    `embed:""`
	ProjectFlags `embed:""`

	Watch bool `help:"rebuild whenever a source file changes" default:"false"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, log := setupLogger(ctx, globals)

	cfg, err := c.BuildConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("version", globals.Version).
		Str("mode", cfg.Mode.String()).
		Bool("watch", c.Watch).
		Msg("Starting build")

	flush := startTelemetry(ctx, log, c.Tracing, globals.Version)
	defer flush()

	pipeline := assets.New(cfg, c.assetsConfig())

	if c.Watch {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return pipeline.Watch(ctx)
	}

	res, err := pipeline.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build js assets: %w", err)
	}

	log.Info().
		Str("build_id", res.BuildID).
		Strs("outputs", res.Outputs).
		Int("transformed", len(res.Transformed)).
		Int64("bytes", res.Bytes).
		Msg("Build finished")

	return nil
}
