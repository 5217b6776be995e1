package commands

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/catrace/internal/cli/output"
	"github.com/leapstack-labs/catrace/internal/state"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Long: `List the most recent display runs recorded in the state database,
newest first. Failed runs show the stage that failed.`,
		Example: `  catrace history
  catrace history --limit 5 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", state.DefaultListLimit, "Maximum number of runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	if !cc.Cfg.HistoryEnabled() {
		return errors.New("run history is disabled (state_path is empty)")
	}

	store, cleanup, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := store.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	}

	if len(runs) == 0 {
		r.Muted("No runs recorded yet")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.Identifier,
			string(run.Status),
			strconv.Itoa(run.CoordinateCount),
			run.FailedStage,
			run.StartedAt.Local().Format(time.DateTime),
			run.Duration().Round(time.Millisecond).String(),
		})
	}
	r.Table([]string{"ID", "Structure", "Status", "Atoms", "Failed Stage", "Started", "Duration"}, rows)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
