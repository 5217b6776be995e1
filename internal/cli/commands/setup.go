package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/catrace/internal/cli/config"
	"github.com/leapstack-labs/catrace/internal/cli/output"
	"github.com/leapstack-labs/catrace/internal/fetch"
	"github.com/leapstack-labs/catrace/internal/pdb"
	"github.com/leapstack-labs/catrace/internal/state"
	"github.com/leapstack-labs/catrace/internal/tracer"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext reads the config and logger stored by the root command
// and creates a renderer for cmd's output streams.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// NewRetriever creates the download stage from the config.
func (c *CommandContext) NewRetriever() *fetch.Retriever {
	return fetch.New(fetch.Config{
		Timeout:   c.Cfg.HTTPTimeout,
		ChunkSize: c.Cfg.ChunkSize,
		Logger:    c.Logger,
	})
}

// NewExtractor creates the coordinate extractor from the config.
func (c *CommandContext) NewExtractor() *pdb.Extractor {
	ext := pdb.NewExtractor(c.Logger)
	ext.RecordMarker = c.Cfg.Extract.Record
	ext.AtomNameMarker = c.Cfg.Extract.Atom
	return ext
}

// NewTracer creates the build/trace stage. Subprocess output follows the
// renderer so JSON output stays parseable.
func (c *CommandContext) NewTracer() *tracer.Tracer {
	return tracer.New(tracer.Config{
		ProjectDir:   c.Cfg.Tracer.ProjectDir,
		BuildCommand: c.Cfg.Tracer.BuildCommand,
		Binary:       c.Cfg.Tracer.Binary,
		Stdout:       c.Renderer.ProcessOut(),
		Stderr:       c.Renderer.ErrOut(),
		Logger:       c.Logger,
	})
}

// OpenStore opens and migrates the run-history database.
// Returns the store and a cleanup function that must be called (typically via defer).
func (c *CommandContext) OpenStore() (*state.SQLiteStore, func(), error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = store.Close()
	}
	if err := store.Migrate(); err != nil {
		cleanup()
		return nil, nil, err
	}
	return store, cleanup, nil
}
