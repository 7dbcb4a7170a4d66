package assets

import "errors"

var (
	// ErrNoEntryPoints indicates the build configuration names no entry point
	ErrNoEntryPoints = errors.New("no entry points configured")
	// ErrUnsupportedDevtool indicates a source map policy esbuild cannot honour
	ErrUnsupportedDevtool = errors.New("unsupported devtool")
	// ErrUnsupportedLoader indicates a transform rule names an unknown loader
	ErrUnsupportedLoader = errors.New("unsupported loader")
	// ErrUnsupportedPlugin indicates a post-processor with no esbuild equivalent
	ErrUnsupportedPlugin = errors.New("unsupported plugin")
	// ErrBuildFailed indicates esbuild reported errors
	ErrBuildFailed = errors.New("esbuild failed with errors")
	// ErrNotBuilt indicates metadata was requested before the first build
	ErrNotBuilt = errors.New("assets not built yet, call Build() first")
	// ErrEntryPointNotFound indicates the entry point is absent from the build metadata
	ErrEntryPointNotFound = errors.New("entrypoint not found in metadata")
	// ErrTemplateNotLoaded indicates a page handler was requested without templates
	ErrTemplateNotLoaded = errors.New("template not loaded, use NewWithTemplate")
)
