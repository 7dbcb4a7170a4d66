package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type ConfigCmd struct {
	ModeFlags `embed:""`

	Format string `help:"output format" default:"json" enum:"json,yaml" short:"f"`

	out io.Writer `kong:"-"`
}

func (c *ConfigCmd) Run(globals *Globals) error {
	cfg, err := c.BuildConfig()
	if err != nil {
		return err
	}

	out := c.out
	if out == nil {
		out = os.Stdout
	}

	switch c.Format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return nil
	}
}
