// Package pipeline runs the display pipeline: download a structure,
// extract its alpha-carbon coordinates, build the ray tracer, trace, and
// remove the download.
//
// Every stage returns an explicit error; the first failure stops the run
// and is reported as a *StageError. Cleanup only runs when every earlier
// stage succeeded, so a failed run may leave its download on disk.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/catrace/internal/fetch"
	"github.com/leapstack-labs/catrace/internal/pdb"
	"github.com/leapstack-labs/catrace/internal/state"
)

// Retriever downloads a URL to a local file.
type Retriever interface {
	Download(ctx context.Context, url, dest string) (int64, error)
}

// Extractor reads coordinates from a structure file.
type Extractor interface {
	ExtractFile(path string) (pdb.Coordinates, error)
}

// Tracer builds and runs the external ray tracer.
type Tracer interface {
	Build(ctx context.Context) error
	Trace(ctx context.Context, args []string) error
}

// Recorder stores run history. It is optional.
type Recorder interface {
	CreateRun(ctx context.Context, identifier, url, artifact string) (*state.Run, error)
	CompleteRun(ctx context.Context, id string, outcome state.RunOutcome) error
}

// Reporter receives the console-facing progress of a run.
type Reporter interface {
	Status(msg string)
	Coordinates(coords pdb.Coordinates)
}

// Options toggles optional stages.
type Options struct {
	// SkipBuild uses the tracer binary as it is.
	SkipBuild bool
	// KeepArtifact leaves the download on disk.
	KeepArtifact bool
	// DryRun stops after extraction. The artifact is still removed unless
	// KeepArtifact is set.
	DryRun bool
}

// Config wires a Pipeline.
type Config struct {
	URLTemplate string
	// WorkDir receives the download. Empty means the current directory.
	WorkDir   string
	Retriever Retriever
	Extractor Extractor
	Tracer    Tracer
	Recorder  Recorder
	Reporter  Reporter
	Options   Options
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Plan is everything derived from the identifier before any side effect.
// The artifact path is computed once here and reused by every stage.
type Plan struct {
	Identifier   pdb.Identifier `json:"identifier"`
	URL          string         `json:"url"`
	ArtifactName string         `json:"artifact_name"`
	ArtifactPath string         `json:"artifact_path"`
}

// NewPlan validates rawID and derives the URL and artifact location.
func NewPlan(rawID, urlTemplate, workDir string) (*Plan, error) {
	id, err := pdb.ParseIdentifier(rawID)
	if err != nil {
		return nil, NewStageError(StageInput, err)
	}
	u, err := pdb.SourceURL(urlTemplate, id)
	if err != nil {
		return nil, NewStageError(StageInput, err)
	}
	name, err := fetch.ArtifactName(u)
	if err != nil {
		return nil, NewStageError(StageInput, err)
	}
	return &Plan{
		Identifier:   id,
		URL:          u,
		ArtifactName: name,
		ArtifactPath: filepath.Join(workDir, name),
	}, nil
}

// Result summarizes a finished run.
type Result struct {
	Plan        *Plan           `json:"plan"`
	RunID       string          `json:"run_id,omitempty"`
	Bytes       int64           `json:"bytes"`
	Coordinates pdb.Coordinates `json:"coordinates"`
	Built       bool            `json:"built"`
	Traced      bool            `json:"traced"`
	Removed     bool            `json:"removed"`
	Duration    time.Duration   `json:"duration"`
}

// Pipeline executes the stages in order.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline. Retriever, Extractor and Tracer are required.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Retriever == nil || cfg.Extractor == nil || cfg.Tracer == nil {
		return nil, errors.New("pipeline requires a retriever, an extractor and a tracer")
	}
	if cfg.Reporter == nil {
		cfg.Reporter = nopReporter{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{cfg: cfg, logger: logger}, nil
}

// Run executes the pipeline for rawID.
func (p *Pipeline) Run(ctx context.Context, rawID string) (*Result, error) {
	start := time.Now()

	plan, err := NewPlan(rawID, p.cfg.URLTemplate, p.cfg.WorkDir)
	if err != nil {
		return nil, p.fail(ctx, nil, err)
	}
	res := &Result{Plan: plan}
	run := p.startRun(ctx, plan)
	if run != nil {
		res.RunID = run.ID
	}

	if err := p.execute(ctx, plan, res); err != nil {
		return res, p.fail(ctx, run, err)
	}

	res.Duration = time.Since(start)
	p.completeRun(ctx, run, state.RunOutcome{
		Status:          state.RunStatusCompleted,
		CoordinateCount: len(res.Coordinates),
	})
	p.logger.Info("pipeline completed",
		slog.String("identifier", plan.Identifier.String()),
		slog.Int("coordinates", len(res.Coordinates)),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, plan *Plan, res *Result) error {
	opts := p.cfg.Options
	rep := p.cfg.Reporter

	rep.Status(fmt.Sprintf("Downloading pdb assembly %s from %s", plan.Identifier, plan.URL))
	n, err := p.cfg.Retriever.Download(ctx, plan.URL, plan.ArtifactPath)
	if err != nil {
		return NewStageError(StageRetrieve, err)
	}
	res.Bytes = n

	coords, err := p.cfg.Extractor.ExtractFile(plan.ArtifactPath)
	if err != nil {
		return NewStageError(StageExtract, err)
	}
	res.Coordinates = coords
	rep.Coordinates(coords)

	if !opts.DryRun {
		if !opts.SkipBuild {
			if err := p.cfg.Tracer.Build(ctx); err != nil {
				return NewStageError(StageBuild, err)
			}
			res.Built = true
		}

		rep.Status("tracing rays")
		if err := p.cfg.Tracer.Trace(ctx, coords.Args()); err != nil {
			return NewStageError(StageTrace, err)
		}
		res.Traced = true
	}

	if opts.KeepArtifact {
		p.logger.Debug("keeping artifact", slog.String("path", plan.ArtifactPath))
		return nil
	}
	rep.Status("cleaning up")
	if err := RemoveArtifact(plan.ArtifactPath); err != nil {
		return NewStageError(StageCleanup, err)
	}
	res.Removed = true
	return nil
}

// RemoveArtifact deletes the downloaded file. A missing file is an error
// wrapping ErrArtifactMissing, not a silent success.
func RemoveArtifact(path string) error {
	err := os.Remove(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s was never created or already removed: %w", ErrArtifactMissing, path, err)
	}
	return fmt.Errorf("failed to remove %s: %w", path, err)
}

func (p *Pipeline) fail(ctx context.Context, run *state.Run, err error) error {
	var se *StageError
	if !errors.As(err, &se) {
		se = &StageError{Err: err}
	}
	p.logger.Error("pipeline failed",
		slog.String("stage", string(se.Stage)),
		slog.String("kind", string(se.Kind)),
		slog.String("error", se.Err.Error()),
	)
	p.completeRun(ctx, run, state.RunOutcome{
		Status:      state.RunStatusFailed,
		FailedStage: string(se.Stage),
		Error:       se.Err.Error(),
	})
	return se
}

// startRun records the run start. History is best-effort: a failing
// recorder is logged and ignored.
func (p *Pipeline) startRun(ctx context.Context, plan *Plan) *state.Run {
	if p.cfg.Recorder == nil {
		return nil
	}
	run, err := p.cfg.Recorder.CreateRun(ctx, plan.Identifier.String(), plan.URL, plan.ArtifactPath)
	if err != nil {
		p.logger.Warn("failed to record run", slog.String("error", err.Error()))
		return nil
	}
	return run
}

func (p *Pipeline) completeRun(ctx context.Context, run *state.Run, outcome state.RunOutcome) {
	if p.cfg.Recorder == nil || run == nil {
		return
	}
	// The run context may already be cancelled; history should still land.
	if err := p.cfg.Recorder.CompleteRun(context.WithoutCancel(ctx), run.ID, outcome); err != nil {
		p.logger.Warn("failed to record run outcome", slog.String("run", run.ID), slog.String("error", err.Error()))
	}
}

type nopReporter struct{}

func (nopReporter) Status(string) {}

func (nopReporter) Coordinates(pdb.Coordinates) {}
