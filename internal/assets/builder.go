package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/bundler/internal/buildconfig"
	"github.com/wolfeidau/bundler/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Build runs esbuild with the translated build configuration and loads metadata
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pl, err := p.plan()
	if err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx)
	log.Info().
		Strs("entrypoints", pl.entryPoints).
		Str("mode", p.build.Mode.String()).
		Msg("Building assets")

	p.resetTransformed()
	started := time.Now()
	result := api.Build(pl.options)

	return p.processResult(ctx, pl, result, started)
}

// Watch builds once and then rebuilds whenever an input changes, refreshing
// metadata after every successful rebuild. It blocks until ctx is done.
func (p *Pipeline) Watch(ctx context.Context) error {
	pl, err := p.plan()
	if err != nil {
		return err
	}

	log := zerolog.Ctx(ctx)

	pl.options.Plugins = append(pl.options.Plugins, api.Plugin{
		Name: "rebuild-results",
		Setup: func(build api.PluginBuild) {
			var started time.Time
			build.OnStart(func() (api.OnStartResult, error) {
				started = time.Now()
				p.resetTransformed()
				return api.OnStartResult{}, nil
			})
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				p.mu.Lock()
				defer p.mu.Unlock()

				if _, err := p.processResult(ctx, pl, *result, started); err != nil {
					log.Error().Err(err).Msg("Rebuild failed")
				}
				return api.OnEndResult{}, nil
			})
		},
	})

	buildCtx, ctxErr := api.Context(pl.options)
	if ctxErr != nil {
		for _, msg := range ctxErr.Errors {
			log.Error().Str("error", msg.Text).Msg("Build error")
		}
		return fmt.Errorf("%w: %d errors creating build context", ErrBuildFailed, len(ctxErr.Errors))
	}
	defer buildCtx.Dispose()

	if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to watch: %w", err)
	}

	log.Info().Strs("entrypoints", pl.entryPoints).Msg("Watching for changes")

	<-ctx.Done()
	return nil
}

// processResult logs and records a finished build, then writes and caches its
// metadata. Callers hold p.mu.
func (p *Pipeline) processResult(ctx context.Context, pl plan, result api.BuildResult, started time.Time) (*Result, error) {
	buildID := uuid.NewString()
	log := zerolog.Ctx(ctx).With().Str("build_id", buildID).Logger()
	metrics := telemetry.GetMetrics()
	modeAttr := metric.WithAttributes(attribute.String("build.mode", p.build.Mode.String()))

	ctx, span := telemetry.Tracer().Start(ctx, "bundler.build",
		trace.WithTimestamp(started),
		trace.WithAttributes(
			attribute.String("build.id", buildID),
			attribute.String("build.mode", p.build.Mode.String()),
			attribute.StringSlice("build.entrypoints", pl.entryPoints),
		))
	defer span.End()

	metrics.BuildsTotal.Add(ctx, 1, modeAttr)
	metrics.BuildDuration.Record(ctx, float64(time.Since(started).Milliseconds()), modeAttr)

	if pl.logWarnings {
		for _, msg := range result.Warnings {
			log.Warn().Str("warning", msg.Text).Str("file", location(msg)).Msg("Build warning")
		}
	}

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("error", msg.Text).Str("file", location(msg)).Msg("Build error")
		}
		metrics.BuildErrorsTotal.Add(ctx, 1, modeAttr)
		err := fmt.Errorf("%w: %s", ErrBuildFailed, result.Errors[0].Text)
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	workDir := pl.options.AbsWorkingDir
	metafilePath := filepath.Join(workDir, p.config.MetafilePath)
	if err := os.MkdirAll(filepath.Dir(metafilePath), 0o750); err != nil {
		return nil, err
	}
	if err := os.WriteFile(metafilePath, []byte(result.Metafile), 0o600); err != nil {
		return nil, err
	}

	res := &Result{
		BuildID:     buildID,
		Outputs:     slices.Sorted(maps.Keys(metadata.Outputs)),
		Transformed: p.transformedFiles(workDir),
		Warnings:    len(result.Warnings),
	}

	for _, output := range res.Outputs {
		info := metadata.Outputs[output]
		res.Bytes += info.Bytes
		log.Info().Str("file", output).Int64("bytes", info.Bytes).Msg("Built file")
	}

	if p.config.Precompress {
		compressed, err := precompress(workDir, res.Outputs)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		res.Compressed = compressed
	}

	metrics.OutputBytes.Add(ctx, res.Bytes, modeAttr)
	metrics.TransformedFiles.Add(ctx, int64(len(res.Transformed)), modeAttr)
	metrics.ArtifactsWritten.Add(ctx, int64(len(res.Outputs)+len(res.Compressed)), modeAttr)
	span.SetAttributes(attribute.Int64("build.bytes", res.Bytes))

	log.Debug().
		Strs("transformed", res.Transformed).
		Dur("duration", time.Since(started)).
		Msg("Build complete")

	p.metadata = &metadata
	return res, nil
}

// transformPlugin loads files matched by a transform rule with that rule's
// loader. Rules are tried in order and the first match wins; unmatched files
// fall through to esbuild's default loaders.
func (p *Pipeline) transformPlugin(rules []buildconfig.Rule, ruleLoaders []api.Loader) api.Plugin {
	return api.Plugin{
		Name: transformPluginName,
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					for i, rule := range rules {
						if !rule.Matches(args.Path) {
							continue
						}

						source, err := os.ReadFile(args.Path)
						if err != nil {
							return api.OnLoadResult{}, err
						}
						contents := string(source)
						p.recordTransformed(args.Path)

						return api.OnLoadResult{
							Contents:   &contents,
							Loader:     ruleLoaders[i],
							ResolveDir: filepath.Dir(args.Path),
						}, nil
					}
					return api.OnLoadResult{}, nil
				})
		},
	}
}

func (p *Pipeline) resetTransformed() {
	p.transformMu.Lock()
	defer p.transformMu.Unlock()
	p.transformed = make(map[string]struct{})
}

func (p *Pipeline) recordTransformed(path string) {
	p.transformMu.Lock()
	defer p.transformMu.Unlock()
	if p.transformed == nil {
		p.transformed = make(map[string]struct{})
	}
	p.transformed[path] = struct{}{}
}

func (p *Pipeline) transformedFiles(workDir string) []string {
	p.transformMu.Lock()
	defer p.transformMu.Unlock()

	files := make([]string, 0, len(p.transformed))
	for path := range p.transformed {
		if rel, err := filepath.Rel(workDir, path); err == nil {
			path = filepath.ToSlash(rel)
		}
		files = append(files, path)
	}
	slices.Sort(files)
	return files
}

func location(msg api.Message) string {
	if msg.Location == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", msg.Location.File, msg.Location.Line, msg.Location.Column)
}

// LoadScripts returns the ordered list of script paths needed for the given entrypoint
// and the main entrypoint file path
func (p *Pipeline) LoadScripts(entryPointPath string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, "", ErrNotBuilt
	}

	entryPointPath = filepath.ToSlash(filepath.Clean(entryPointPath))

	scripts := []string{}
	visited := make(map[string]bool)
	var entrypoint string

	// Find the output file for this entrypoint
	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath {
			entrypoint = "/" + outputPath
			scripts = append(scripts, entrypoint)
			visited[outputPath] = true
			p.addDependencies(info, &scripts, visited)
			return scripts, entrypoint, nil
		}
	}

	return nil, "", fmt.Errorf("%w: %s", ErrEntryPointNotFound, entryPointPath)
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if !visited[imp.Path] {
			visited[imp.Path] = true
			*scripts = append(*scripts, "/"+imp.Path)

			if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
				p.addDependencies(chunkInfo, scripts, visited)
			}
		}
	}
}

// Handler returns an http.HandlerFunc that renders the given template and entrypoint with its scripts
func (p *Pipeline) Handler(templateName, title, entryPointPath string, contextFn func(ctx context.Context) any) (http.HandlerFunc, error) {
	if p.tmpl == nil {
		return nil, ErrTemplateNotLoaded
	}
	if p.tmpl.Lookup(templateName) == nil {
		return nil, fmt.Errorf("template %q not defined", templateName)
	}

	if contextFn == nil {
		contextFn = func(ctx context.Context) any {
			return nil
		}
	}

	metrics := telemetry.GetMetrics()

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := zerolog.Ctx(ctx)
		metrics.PageRendersTotal.Add(ctx, 1)

		scripts, _, err := p.LoadScripts(entryPointPath)
		if err != nil {
			metrics.PageRenderErrors.Add(ctx, 1)
			log.Error().Err(err).Msg("Failed to load scripts")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := map[string]any{
			"Title":   title,
			"Scripts": scripts,
			"Context": contextFn(ctx),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := p.tmpl.ExecuteTemplate(w, templateName, data); err != nil {
			metrics.PageRenderErrors.Add(ctx, 1)
			log.Error().Err(err).Msg("Failed to render template")
		}
	}, nil
}
