package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/catrace/internal/cli/output"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after merging defaults, catrace.yaml,
CATRACE_* environment variables and flags. The output is valid
catrace.yaml content.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfig(cmd)
		},
	}
}

func runConfig(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(cc.Cfg)
	}

	data, err := yaml.Marshal(cc.Cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if cc.Cfg.ConfigFile != "" {
		r.Muted("# loaded from " + cc.Cfg.ConfigFile)
	}
	r.Printf("%s", data)
	return nil
}
