package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/bundler/internal/assets"
	"github.com/wolfeidau/bundler/internal/buildconfig"
	httpmiddleware "github.com/wolfeidau/bundler/internal/http"
	"golang.org/x/sync/errgroup"
)

type ServeCmd struct {
	ModeFlags    `embed:""`
	ProjectFlags `embed:""`

	Listen       string   `help:"HTTP server listen address" default:"127.0.0.1:8080" env:"BUNDLER_LISTEN"`
	CORSOrigins  []string `help:"allowed CORS origins for bundle requests" default:"http://localhost:8080" env:"BUNDLER_CORS_ORIGINS"`
	Template     string   `help:"page template file, the built in page when empty" type:"path" env:"BUNDLER_TEMPLATE"`
	TemplateName string   `help:"template to render for the page" default:"index"`
	Title        string   `help:"page title" default:"bundler"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, log := setupLogger(ctx, globals)

	cfg, err := c.BuildConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("version", globals.Version).
		Str("mode", cfg.Mode.String()).
		Msg("Starting dev server")

	flush := startTelemetry(ctx, log, c.Tracing, globals.Version)
	defer flush()

	pipeline, err := assets.NewWithTemplate(cfg, c.assetsConfig(), c.Template)
	if err != nil {
		return fmt.Errorf("failed to load assets pipeline: %w", err)
	}

	handler, err := c.routes(pipeline, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := configureHTTPServer(c.Listen, handler)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pipeline.Watch(ctx)
	})

	g.Go(func() error {
		log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// routes serves the page at / and the artifacts of the latest build at their
// paths relative to the project, so script URLs from the metafile resolve.
func (c *ServeCmd) routes(pipeline *assets.Pipeline, log zerolog.Logger) (http.Handler, error) {
	cfg := pipeline.BuildConfig()

	entry, ok := cfg.Entry[buildconfig.EntryName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", assets.ErrNoEntryPoints, buildconfig.EntryName)
	}

	page, err := pipeline.Handler(c.TemplateName, c.Title, entry, func(ctx context.Context) any {
		return map[string]string{"mode": cfg.Mode.String()}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page handler: %w", err)
	}

	// output files live at / when the bundle is written to the project root
	prefix := "/"
	if outDir := path.Dir(filepath.ToSlash(cfg.Output.Filename)); outDir != "." {
		prefix = "/" + outDir + "/"
	}

	mux := http.NewServeMux()
	mux.Handle(prefix, http.FileServer(pipeline.OutputFS()))
	mux.HandleFunc("GET /{$}", page)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: c.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	})

	return httpmiddleware.AccessLog(log)(corsMiddleware.Handler(gzhttp.GzipHandler(mux))), nil
}
