package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/catrace/internal/cli/output"
	"github.com/leapstack-labs/catrace/internal/pipeline"
)

// DisplayOptions holds options for the display pipeline.
type DisplayOptions struct {
	SkipBuild bool
	Keep      bool
	DryRun    bool
}

// AddDisplayFlags registers the display flags on fs. The root command and
// the display subcommand share them.
func AddDisplayFlags(fs *pflag.FlagSet, opts *DisplayOptions) {
	fs.BoolVar(&opts.SkipBuild, "skip-build", false, "Use the existing tracer binary without building it")
	fs.BoolVar(&opts.Keep, "keep", false, "Keep the downloaded structure file")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Download and extract only; do not build or trace")
}

// NewDisplayCommand creates the display command.
func NewDisplayCommand() *cobra.Command {
	opts := &DisplayOptions{}

	cmd := &cobra.Command{
		Use:   "display <ID>",
		Short: "Download a structure and ray trace its alpha carbons",
		Long: `Download a PDB structure, extract the coordinates of its alpha-carbon
atoms, build the ray tracer and run it with one "x,y,z" argument per atom.

The downloaded file is removed after a successful run. This is also what
"catrace <ID>" runs.`,
		Example: `  # Trace hemoglobin
  catrace display 4hhb

  # Reuse an already built tracer and keep the structure file
  catrace display 1crn --skip-build --keep

  # Only show the coordinates that would be traced
  catrace display 1crn --dry-run -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunDisplay(cmd, args[0], opts)
		},
	}

	AddDisplayFlags(cmd.Flags(), opts)

	return cmd
}

// RunDisplay runs the full pipeline for id.
func RunDisplay(cmd *cobra.Command, id string, opts *DisplayOptions) error {
	cc := NewCommandContext(cmd)
	cfg := cc.Cfg
	r := cc.Renderer

	pcfg := pipeline.Config{
		URLTemplate: cfg.URLTemplate,
		WorkDir:     cfg.WorkDir,
		Retriever:   cc.NewRetriever(),
		Extractor:   cc.NewExtractor(),
		Tracer:      cc.NewTracer(),
		Reporter:    r,
		Options: pipeline.Options{
			SkipBuild:    opts.SkipBuild,
			KeepArtifact: opts.Keep || cfg.KeepArtifact,
			DryRun:       opts.DryRun,
		},
		Logger: cc.Logger,
	}

	if cfg.HistoryEnabled() {
		store, cleanup, err := cc.OpenStore()
		if err != nil {
			// History is optional; the run still goes ahead.
			cc.Logger.Warn("run history disabled", slog.String("error", err.Error()))
		} else {
			defer cleanup()
			pcfg.Recorder = store
		}
	}

	p, err := pipeline.New(pcfg)
	if err != nil {
		return err
	}

	res, err := p.Run(cmd.Context(), id)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}
	if opts.DryRun {
		r.Muted(fmt.Sprintf("dry run: %d coordinates, would run %s in %s and then %s",
			len(res.Coordinates), strings.Join(cfg.Tracer.BuildCommand, " "), cfg.Tracer.ProjectDir, cfg.Tracer.Binary))
	}
	return nil
}
