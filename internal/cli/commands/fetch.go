package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/catrace/internal/cli/output"
	"github.com/leapstack-labs/catrace/internal/pipeline"
)

// FetchOptions holds options for the fetch command.
type FetchOptions struct {
	OutputDir string
}

// FetchOutput is the JSON result of the fetch command.
type FetchOutput struct {
	*pipeline.Plan
	Bytes int64 `json:"bytes"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	opts := &FetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <ID>",
		Short: "Download a structure file without tracing it",
		Long: `Download the PDB file for a structure identifier into the work
directory (or --dir) and leave it there.`,
		Example: `  catrace fetch 1crn
  catrace fetch 4hhb --dir /tmp/structures`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.OutputDir, "dir", "", "Directory to save into (default: work_dir)")

	return cmd
}

func runFetch(cmd *cobra.Command, id string, opts *FetchOptions) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	dir := cc.Cfg.WorkDir
	if opts.OutputDir != "" {
		dir = opts.OutputDir
	}

	plan, err := pipeline.NewPlan(id, cc.Cfg.URLTemplate, dir)
	if err != nil {
		return err
	}

	r.Status(fmt.Sprintf("Downloading pdb assembly %s from %s", plan.Identifier, plan.URL))
	n, err := cc.NewRetriever().Download(cmd.Context(), plan.URL, plan.ArtifactPath)
	if err != nil {
		return pipeline.NewStageError(pipeline.StageRetrieve, err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(FetchOutput{Plan: plan, Bytes: n})
	}
	r.Success(fmt.Sprintf("Saved %s (%d bytes)", filepath.Clean(plan.ArtifactPath), n))
	return nil
}
