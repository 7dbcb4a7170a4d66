package assets

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/bundler/internal/buildconfig"
)

// loaders maps transformer names in transform rules to esbuild loaders.
var loaders = map[string]api.Loader{
	"babel-loader": api.LoaderJS,
	"ts-loader":    api.LoaderTS,
	"jsx-loader":   api.LoaderJSX,
	"json-loader":  api.LoaderJSON,
	"raw-loader":   api.LoaderText,
}

// presetTargets maps transpiler preset families to the language level they emit.
var presetTargets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"env":    api.ES2015,
}

const transformPluginName = "transform-rules"

// plan is the esbuild translation of a build configuration.
type plan struct {
	options     api.BuildOptions
	entryPoints []string
	// false when the minifier was configured to suppress warnings
	logWarnings bool
}

// BuildOptions translates the build configuration into esbuild options.
func (p *Pipeline) BuildOptions() (api.BuildOptions, error) {
	pl, err := p.plan()
	if err != nil {
		return api.BuildOptions{}, err
	}
	return pl.options, nil
}

func (p *Pipeline) plan() (plan, error) {
	workDir, err := p.workDir()
	if err != nil {
		return plan{}, err
	}

	pl := plan{
		options: api.BuildOptions{
			AbsWorkingDir: workDir,
			Bundle:        true,
			Write:         true,
			Metafile:      true,
			Format:        api.FormatIIFE,
			Platform:      api.PlatformBrowser,
			Target:        api.ESNext,
			TreeShaking:   api.TreeShakingTrue,
		},
		logWarnings: true,
	}

	if err := applyEntries(&pl, p.build); err != nil {
		return plan{}, err
	}

	sourcemap, err := sourceMap(p.build.Devtool)
	if err != nil {
		return plan{}, err
	}
	pl.options.Sourcemap = sourcemap

	if len(p.build.Module.Rules) > 0 {
		ruleLoaders := make([]api.Loader, len(p.build.Module.Rules))
		for i, rule := range p.build.Module.Rules {
			loader, ok := loaders[rule.Loader]
			if !ok {
				return plan{}, fmt.Errorf("%w: %q in rule %d", ErrUnsupportedLoader, rule.Loader, i)
			}
			ruleLoaders[i] = loader
			pl.options.Target = lowerTarget(pl.options.Target, rule.Presets())
		}
		pl.options.Plugins = append(pl.options.Plugins, p.transformPlugin(p.build.Module.Rules, ruleLoaders))
	}

	for _, plugin := range p.build.Plugins {
		if err := applyPlugin(&pl, plugin); err != nil {
			return plan{}, err
		}
	}

	return pl, nil
}

func (p *Pipeline) workDir() (string, error) {
	if p.config.WorkDir != "" {
		return filepath.Abs(p.config.WorkDir)
	}
	return os.Getwd()
}

// applyEntries writes a single entry straight to the output file, several
// entries into the output file's directory under their logical names.
func applyEntries(pl *plan, build buildconfig.BuildConfig) error {
	if len(build.Entry) == 0 {
		return ErrNoEntryPoints
	}

	names := slices.Sorted(maps.Keys(build.Entry))
	for _, name := range names {
		pl.entryPoints = append(pl.entryPoints, build.Entry[name])
	}

	if len(names) == 1 {
		pl.options.EntryPoints = pl.entryPoints
		pl.options.Outfile = build.Output.Filename
		return nil
	}

	for _, name := range names {
		pl.options.EntryPointsAdvanced = append(pl.options.EntryPointsAdvanced, api.EntryPoint{
			InputPath:  build.Entry[name],
			OutputPath: name,
		})
	}
	pl.options.Outdir = filepath.Dir(build.Output.Filename)
	return nil
}

func sourceMap(policy buildconfig.SourceMapPolicy) (api.SourceMap, error) {
	switch policy {
	case buildconfig.SourceMapExternal:
		return api.SourceMapLinked, nil
	case buildconfig.SourceMapInline:
		return api.SourceMapInline, nil
	case buildconfig.SourceMapHidden:
		return api.SourceMapExternal, nil
	case buildconfig.SourceMapNone, buildconfig.SourceMapUnassigned:
		return api.SourceMapNone, nil
	default:
		return api.SourceMapNone, fmt.Errorf("%w: %q", ErrUnsupportedDevtool, policy)
	}
}

// lowerTarget returns the lowest language level required by current and presets.
func lowerTarget(current api.Target, presets []string) api.Target {
	for _, preset := range presets {
		family, _, _ := strings.Cut(preset, "-")
		if target, ok := presetTargets[family]; ok && targetRank(target) < targetRank(current) {
			current = target
		}
	}
	return current
}

// targetRank orders language levels; esbuild numbers ESNext before ES5.
func targetRank(t api.Target) int {
	if t == api.ESNext || t == api.DefaultTarget {
		return math.MaxInt
	}
	return int(t)
}

func applyPlugin(pl *plan, plugin buildconfig.Plugin) error {
	switch plugin.Name {
	case buildconfig.PluginMinify:
		pl.options.MinifyWhitespace = true
		pl.options.MinifyIdentifiers = true
		pl.options.MinifySyntax = true
		if warnings, ok := nestedBool(plugin.Options, "compress", "warnings"); ok {
			pl.logWarnings = warnings
		}
		if comments, ok := nestedBool(plugin.Options, "output", "comments"); ok && !comments {
			pl.options.LegalComments = api.LegalCommentsNone
		}
		return nil
	case buildconfig.PluginDefine:
		if pl.options.Define == nil {
			pl.options.Define = map[string]string{}
		}
		return flattenDefines("", plugin.Options, pl.options.Define)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedPlugin, plugin.Name)
	}
}

func nestedBool(options map[string]any, section, key string) (bool, bool) {
	inner, ok := options[section].(map[string]any)
	if !ok {
		return false, false
	}
	v, ok := inner[key].(bool)
	return v, ok
}

// flattenDefines turns nested define options into dotted replacement keys,
// {"process.env": {"NODE_ENV": `"production"`}} becomes process.env.NODE_ENV.
// String leaves are source expressions already, other leaves are JSON encoded.
func flattenDefines(prefix string, options map[string]any, out map[string]string) error {
	for key, value := range options {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}

		switch v := value.(type) {
		case map[string]any:
			if err := flattenDefines(name, v, out); err != nil {
				return err
			}
		case string:
			out[name] = v
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("define %s: %w", name, err)
			}
			out[name] = string(b)
		}
	}
	return nil
}
