package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/leapstack-labs/catrace/internal/fetch"
	"github.com/leapstack-labs/catrace/internal/pdb"
)

// Stage names a step of the display pipeline.
type Stage string

// Pipeline stages, in execution order.
const (
	StageInput    Stage = "input"
	StageRetrieve Stage = "retrieve"
	StageExtract  Stage = "extract"
	StageBuild    Stage = "build"
	StageTrace    Stage = "trace"
	StageCleanup  Stage = "cleanup"
)

// Kind classifies a pipeline failure.
type Kind string

// Failure kinds.
const (
	KindInput      Kind = "input"
	KindNetwork    Kind = "network"
	KindFilesystem Kind = "filesystem"
	KindFormat     Kind = "format"
	KindBuild      Kind = "build"
	KindExecution  Kind = "execution"
	KindCleanup    Kind = "cleanup"
	KindCancelled  Kind = "cancelled"
)

// ErrArtifactMissing is wrapped by cleanup errors when the downloaded file
// does not exist.
var ErrArtifactMissing = errors.New("artifact missing")

// StageError is returned for any pipeline failure. It names the stage that
// failed and wraps the underlying cause.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s error): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or "" if err is not a StageError.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// StageOf returns the Stage of err, or "" if err is not a StageError.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// NewStageError wraps err as a failure of stage, classifying its Kind.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Kind: classify(stage, err), Err: err}
}

// classify maps a stage failure to a Kind.
func classify(stage Stage, err error) Kind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// A request timeout surfaces as DeadlineExceeded inside a url.Error.
		var ue *url.Error
		if stage == StageRetrieve && errors.As(err, &ue) && ue.Timeout() {
			return KindNetwork
		}
		return KindCancelled
	}

	switch stage {
	case StageInput:
		return KindInput
	case StageRetrieve:
		var fe *fetch.FileError
		if errors.As(err, &fe) {
			return KindFilesystem
		}
		return KindNetwork
	case StageExtract:
		var fe *pdb.FormatError
		if errors.As(err, &fe) {
			return KindFormat
		}
		return KindFilesystem
	case StageBuild:
		return KindBuild
	case StageTrace:
		return KindExecution
	case StageCleanup:
		return KindCleanup
	}
	return ""
}
