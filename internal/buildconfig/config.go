// Package buildconfig describes how the bundler compiles the application.
//
// The descriptor is plain data: New assembles the same record for the same
// mode every time and nothing in this package performs I/O beyond the
// injected environment lookup. Interpreting the record is the job of the
// bundler adapter in internal/assets.
package buildconfig

import "encoding/json"

// SourceMapPolicy selects whether and how debug mapping artifacts are emitted.
type SourceMapPolicy string

const (
	SourceMapNone       SourceMapPolicy = "none"
	SourceMapExternal   SourceMapPolicy = "source-map"
	SourceMapInline     SourceMapPolicy = "inline-source-map"
	SourceMapHidden     SourceMapPolicy = "hidden-source-map"
	SourceMapUnassigned SourceMapPolicy = ""
)

const (
	// EntryName is the logical name of the application entry point.
	EntryName = "filename"
	// EntryPath is where bundling starts.
	EntryPath = "./app.js"
	// OutputPath is where the bundle is written.
	OutputPath = "_build/bundle.js"

	// ScriptPattern matches script files handled by the transform rule.
	ScriptPattern = `\.js$`
	// DependencyPattern matches paths inside the dependency directory.
	DependencyPattern = `node_modules`
	// ScriptLoader transpiles script files.
	ScriptLoader = "babel-loader"
	// ScriptPreset is the transpiler preset, leaving module syntax for the bundler.
	ScriptPreset = "es2015-native-modules"

	// PluginMinify names the size reduction step.
	PluginMinify = "UglifyJsPlugin"
	// PluginDefine names the environment injection step.
	PluginDefine = "DefinePlugin"
)

// BuildConfig is the record the bundler reads at invocation time. Field
// names on the wire follow the bundler's configuration contract.
type BuildConfig struct {
	Mode    EnvironmentMode   `json:"-" yaml:"-"`
	Devtool SourceMapPolicy   `json:"devtool" yaml:"devtool"`
	Entry   map[string]string `json:"entry" yaml:"entry"`
	Output  Output            `json:"output" yaml:"output"`
	Module  Module            `json:"module" yaml:"module"`
	Plugins []Plugin          `json:"plugins" yaml:"plugins"`
}

type Output struct {
	Filename string `json:"filename" yaml:"filename"`
}

type Module struct {
	// Rules are tried in order; the first match wins.
	Rules []Rule `json:"rules" yaml:"rules"`
}

// Plugin is a named post-processing step and its options.
type Plugin struct {
	Name    string         `json:"name" yaml:"name"`
	Options map[string]any `json:"options" yaml:"options"`
}

// New assembles the build configuration for mode. It is pure: every call
// returns a fresh record, structurally equal for equal modes.
func New(mode EnvironmentMode) BuildConfig {
	return BuildConfig{
		Mode:    mode,
		Devtool: SourceMapExternal,
		Entry: map[string]string{
			EntryName: EntryPath,
		},
		Output: Output{
			Filename: OutputPath,
		},
		Module: Module{
			Rules: []Rule{
				{
					Test:    MustPattern(ScriptPattern),
					Exclude: MustPattern(DependencyPattern),
					Loader:  ScriptLoader,
					Options: map[string]any{
						"presets": []string{ScriptPreset},
					},
				},
			},
		},
		Plugins: []Plugin{
			minifyPlugin(),
			definePlugin(mode),
		},
	}
}

// NewFromEnvironment resolves the mode through lookup and builds the record.
func NewFromEnvironment(lookup LookupFunc) BuildConfig {
	return New(ResolveEnvironmentMode(lookup))
}

func minifyPlugin() Plugin {
	return Plugin{
		Name: PluginMinify,
		Options: map[string]any{
			"compress":  map[string]any{"warnings": false},
			"output":    map[string]any{"comments": false},
			"sourceMap": true,
		},
	}
}

func definePlugin(mode EnvironmentMode) Plugin {
	return Plugin{
		Name: PluginDefine,
		Options: map[string]any{
			"process.env": map[string]any{
				EnvironmentModeKey: jsonString(mode.String()),
			},
		},
	}
}

// MatchRule returns the first rule accepting path.
func (c BuildConfig) MatchRule(path string) (Rule, bool) {
	for _, rule := range c.Module.Rules {
		if rule.Matches(path) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Plugin returns the first plugin with the given name.
func (c BuildConfig) Plugin(name string) (Plugin, bool) {
	for _, p := range c.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin{}, false
}

// DefinedMode returns the mode stamped into the environment injection step,
// decoded from its source literal.
func (c BuildConfig) DefinedMode() (EnvironmentMode, bool) {
	p, ok := c.Plugin(PluginDefine)
	if !ok {
		return "", false
	}
	env, ok := p.Options["process.env"].(map[string]any)
	if !ok {
		return "", false
	}
	literal, ok := env[EnvironmentModeKey].(string)
	if !ok {
		return "", false
	}
	var mode string
	if err := json.Unmarshal([]byte(literal), &mode); err != nil {
		return "", false
	}
	return EnvironmentMode(mode), true
}

// jsonString quotes s as a source literal, like JSON.stringify.
func jsonString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// strings always marshal
		panic(err)
	}
	return string(b)
}
