package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/bundler/cmd/bundler/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode."`
		Version kong.VersionFlag
		Build   commands.BuildCmd  `cmd:"" help:"Bundle the application"`
		Config  commands.ConfigCmd `cmd:"" help:"Print the build configuration"`
		Serve   commands.ServeCmd  `cmd:"" help:"Rebuild on change and serve the application"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("bundler"),
		kong.Description("Bundle a module based application with esbuild."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
