package assets

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"maps"
	"sync"

	"github.com/wolfeidau/bundler/internal/buildconfig"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// DefaultTemplate is the name of the page template shipped with the pipeline.
const DefaultTemplate = "index"

type BuildMetadata struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type InputInfo struct {
	Bytes int64 `json:"bytes"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
	Bytes      int64        `json:"bytes"`
}

type ImportInfo struct {
	Path string `json:"path"`
}

// Result summarises a single build run.
type Result struct {
	BuildID string
	// Output paths relative to the working directory, sorted
	Outputs []string
	// Source files loaded through a transform rule, relative to the working directory, sorted
	Transformed []string
	// Artifacts written by precompression
	Compressed []string
	Warnings   int
	Bytes      int64
}

// Pipeline interprets a build configuration with esbuild and serves pages
// referencing the emitted scripts.
type Pipeline struct {
	build    buildconfig.BuildConfig
	config   Config
	metadata *BuildMetadata
	tmpl     *template.Template
	mu       sync.RWMutex

	transformMu sync.Mutex
	transformed map[string]struct{}
}

// New creates a new asset pipeline for the given build configuration
func New(build buildconfig.BuildConfig, config Config) *Pipeline {
	return &Pipeline{
		build:  build,
		config: config,
	}
}

// NewWithTemplate creates a new asset pipeline and loads a single template,
// an empty path loads the embedded default
func NewWithTemplate(build buildconfig.BuildConfig, config Config, templatePath string) (*Pipeline, error) {
	return NewWithTemplateAndFuncs(build, config, templatePath, nil)
}

// NewWithTemplateAndFuncs creates a new asset pipeline and loads a single template with custom functions
func NewWithTemplateAndFuncs(build buildconfig.BuildConfig, config Config, templatePath string, customFuncs template.FuncMap) (*Pipeline, error) {
	p := New(build, config)

	funcs := template.FuncMap{
		"marshal": marshal,
	}

	// Merge custom functions
	maps.Copy(funcs, customFuncs)

	var (
		tmpl *template.Template
		err  error
	)
	if templatePath == "" {
		tmpl, err = template.New("pages").Funcs(funcs).ParseFS(defaultTemplates, "templates/*.html")
	} else {
		tmpl, err = template.New(templatePath).Funcs(funcs).ParseFiles(templatePath)
	}
	if err != nil {
		return nil, err
	}
	p.tmpl = tmpl
	return p, nil
}

// BuildConfig returns the configuration the pipeline interprets.
func (p *Pipeline) BuildConfig() buildconfig.BuildConfig {
	return p.build
}

// Metadata returns the metadata of the most recent successful build.
func (p *Pipeline) Metadata() (*BuildMetadata, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, ErrNotBuilt
	}
	return p.metadata, nil
}

func marshal(value any) string {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		panic(errors.New("context can only be json serializable"))
	}

	return buf.String()
}
