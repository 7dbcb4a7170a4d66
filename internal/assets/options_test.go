package assets

import (
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/bundler/internal/buildconfig"
)

func TestBuildOptions_Defaults(t *testing.T) {
	dir := t.TempDir()
	p := New(buildconfig.New(buildconfig.ModeProduction), testConfig(dir))

	opts, err := p.BuildOptions()
	require.NoError(t, err)

	assert.Equal(t, dir, opts.AbsWorkingDir)
	assert.Equal(t, []string{"./app.js"}, opts.EntryPoints)
	assert.Equal(t, "_build/bundle.js", opts.Outfile)
	assert.Empty(t, opts.Outdir)
	assert.Equal(t, api.SourceMapLinked, opts.Sourcemap)
	assert.Equal(t, api.ES2015, opts.Target)
	assert.True(t, opts.Bundle)
	assert.True(t, opts.Metafile)
	assert.True(t, opts.MinifyWhitespace)
	assert.True(t, opts.MinifyIdentifiers)
	assert.True(t, opts.MinifySyntax)
	assert.Equal(t, api.LegalCommentsNone, opts.LegalComments)
	assert.Equal(t, map[string]string{"process.env.NODE_ENV": `"production"`}, opts.Define)

	require.Len(t, opts.Plugins, 1)
	assert.Equal(t, "transform-rules", opts.Plugins[0].Name)
}

func TestBuildOptions_DefineFollowsMode(t *testing.T) {
	p := New(buildconfig.New("staging"), testConfig(t.TempDir()))

	opts, err := p.BuildOptions()
	require.NoError(t, err)
	assert.Equal(t, `"staging"`, opts.Define["process.env.NODE_ENV"])
}

func TestBuildOptions_MultipleEntries(t *testing.T) {
	cfg := buildconfig.New(buildconfig.ModeProduction)
	cfg.Entry["admin"] = "./admin.js"
	p := New(cfg, testConfig(t.TempDir()))

	opts, err := p.BuildOptions()
	require.NoError(t, err)

	assert.Empty(t, opts.EntryPoints)
	assert.Empty(t, opts.Outfile)
	assert.Equal(t, "_build", opts.Outdir)
	assert.Equal(t, []api.EntryPoint{
		{InputPath: "./admin.js", OutputPath: "admin"},
		{InputPath: "./app.js", OutputPath: "filename"},
	}, opts.EntryPointsAdvanced)
}

func TestBuildOptions_Devtool(t *testing.T) {
	tests := []struct {
		devtool  buildconfig.SourceMapPolicy
		expected api.SourceMap
		wantErr  bool
	}{
		{devtool: "source-map", expected: api.SourceMapLinked},
		{devtool: "inline-source-map", expected: api.SourceMapInline},
		{devtool: "hidden-source-map", expected: api.SourceMapExternal},
		{devtool: "none", expected: api.SourceMapNone},
		{devtool: "", expected: api.SourceMapNone},
		{devtool: "eval-cheap-module-source-map", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.devtool), func(t *testing.T) {
			cfg := buildconfig.New(buildconfig.ModeProduction)
			cfg.Devtool = tt.devtool

			opts, err := New(cfg, testConfig(t.TempDir())).BuildOptions()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedDevtool)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, opts.Sourcemap)
		})
	}
}

func TestBuildOptions_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *buildconfig.BuildConfig)
		err    error
	}{
		{
			name:   "no entries",
			mutate: func(cfg *buildconfig.BuildConfig) { cfg.Entry = nil },
			err:    ErrNoEntryPoints,
		},
		{
			name:   "unknown loader",
			mutate: func(cfg *buildconfig.BuildConfig) { cfg.Module.Rules[0].Loader = "coffee-loader" },
			err:    ErrUnsupportedLoader,
		},
		{
			name: "unknown plugin",
			mutate: func(cfg *buildconfig.BuildConfig) {
				cfg.Plugins = append(cfg.Plugins, buildconfig.Plugin{Name: "HtmlWebpackPlugin"})
			},
			err: ErrUnsupportedPlugin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := buildconfig.New(buildconfig.ModeProduction)
			tt.mutate(&cfg)

			_, err := New(cfg, testConfig(t.TempDir())).BuildOptions()
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestBuildOptions_WithoutPlugins(t *testing.T) {
	cfg := buildconfig.New(buildconfig.ModeProduction)
	cfg.Plugins = nil
	cfg.Module.Rules = nil

	opts, err := New(cfg, testConfig(t.TempDir())).BuildOptions()
	require.NoError(t, err)

	assert.False(t, opts.MinifyWhitespace)
	assert.Nil(t, opts.Define)
	assert.Empty(t, opts.Plugins)
	assert.Equal(t, api.ESNext, opts.Target)
}

func TestLowerTarget(t *testing.T) {
	tests := []struct {
		name     string
		current  api.Target
		presets  []string
		expected api.Target
	}{
		{name: "no presets", current: api.ESNext, presets: nil, expected: api.ESNext},
		{name: "native modules preset", current: api.ESNext, presets: []string{"es2015-native-modules"}, expected: api.ES2015},
		{name: "lowest wins", current: api.ES2017, presets: []string{"es2019", "es2016"}, expected: api.ES2016},
		{name: "higher preset ignored", current: api.ES2015, presets: []string{"es2020"}, expected: api.ES2015},
		{name: "unknown preset ignored", current: api.ESNext, presets: []string{"react"}, expected: api.ESNext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, lowerTarget(tt.current, tt.presets))
		})
	}
}

func TestFlattenDefines(t *testing.T) {
	out := map[string]string{}
	err := flattenDefines("", map[string]any{
		"process.env": map[string]any{
			"NODE_ENV": `"development"`,
			"DEBUG":    true,
		},
		"VERSION": 3,
	}, out)
	require.NoError(t, err)

	require.Equal(t, map[string]string{
		"process.env.NODE_ENV": `"development"`,
		"process.env.DEBUG":    "true",
		"VERSION":              "3",
	}, out)
}

func TestApplyPlugin_MinifyWarnings(t *testing.T) {
	pl := plan{logWarnings: true}
	require.NoError(t, applyPlugin(&pl, buildconfig.Plugin{
		Name:    buildconfig.PluginMinify,
		Options: map[string]any{"compress": map[string]any{"warnings": false}},
	}))
	require.False(t, pl.logWarnings)
	require.Equal(t, api.LegalCommentsDefault, pl.options.LegalComments, "comments kept unless disabled")

	pl = plan{logWarnings: true}
	require.NoError(t, applyPlugin(&pl, buildconfig.Plugin{Name: buildconfig.PluginMinify}))
	require.True(t, pl.logWarnings)
}
