package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/wolfeidau/bundler/internal/assets"
	"github.com/wolfeidau/bundler/internal/buildconfig"
	"github.com/wolfeidau/bundler/internal/logger"
	"github.com/wolfeidau/bundler/internal/telemetry"
)

type Globals struct {
	Debug   bool
	Version string
}

// ModeFlags select the environment mode for commands that assemble the build configuration.
type ModeFlags struct {
	NodeEnv    string `name:"node-env" help:"environment mode stamped into the bundle, production when empty" env:"NODE_ENV"`
	StrictMode bool   `help:"reject environment modes other than development and production" default:"false" env:"BUNDLER_STRICT_MODE"`
}

// BuildConfig assembles the build configuration for the selected mode.
func (m ModeFlags) BuildConfig() (buildconfig.BuildConfig, error) {
	if m.StrictMode {
		mode, err := buildconfig.ParseEnvironmentMode(m.NodeEnv)
		if err != nil {
			return buildconfig.BuildConfig{}, err
		}
		return buildconfig.New(mode), nil
	}
	return buildconfig.New(buildconfig.ModeFromValue(m.NodeEnv)), nil
}

// ProjectFlags locate the project and the files written next to the bundle.
type ProjectFlags struct {
	Dir         string `help:"project directory entry and output paths resolve against" default:"." type:"existingdir" env:"BUNDLER_DIR"`
	Metafile    string `help:"metafile path relative to the project directory" default:"_build/meta.json" env:"BUNDLER_METAFILE"`
	Precompress bool   `help:"write gzip and zstd copies of each artifact" default:"false" env:"BUNDLER_PRECOMPRESS"`
	Tracing     bool   `help:"enable tracing" default:"false" env:"BUNDLER_TRACING"`
}

func (p ProjectFlags) assetsConfig() assets.Config {
	return assets.Config{
		WorkDir:      p.Dir,
		MetafilePath: p.Metafile,
		Precompress:  p.Precompress,
	}
}

// setupLogger configures the global logger and returns a context carrying it.
func setupLogger(ctx context.Context, globals *Globals) (context.Context, zerolog.Logger) {
	log := logger.Setup(globals.Debug)
	zlog.Logger = log
	return log.WithContext(ctx), log
}

// startTelemetry initialises exporters when enabled and returns a flush function.
func startTelemetry(ctx context.Context, log zerolog.Logger, enabled bool, version string) func() {
	if !enabled {
		return func() {}
	}

	log.Info().Msg("Tracing is enabled")
	shutdown, err := telemetry.InitTelemetry(ctx, "bundler", version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
