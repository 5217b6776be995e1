// Package tracer builds and runs the external ray-tracing executable.
//
// The tracer is an opaque collaborator: catrace only knows how to build it
// (a command run inside its project directory) and where the resulting
// binary lives. The coordinate strings are handed over as process
// arguments; their interpretation belongs to the tracer.
package tracer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Defaults for the bundled Rust ray tracer.
const (
	DefaultProjectDir = "ray-tracing"
	DefaultBinary     = "ray-tracing/target/release/ray-tracing"
)

// DefaultBuildCommand produces an optimized tracer binary.
var DefaultBuildCommand = []string{"cargo", "build", "--release"}

// ExitError reports an external command that ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
}

// StartError reports an external command that could not be started, for
// example because the executable is missing or not executable.
type StartError struct {
	Command string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// Config configures a Tracer.
type Config struct {
	// ProjectDir is the working directory of the build command.
	ProjectDir string
	// BuildCommand is the argv of the build step.
	BuildCommand []string
	// Binary is the path of the executable produced by the build.
	Binary string
	// Stdout and Stderr receive the output of both commands. Nil discards.
	Stdout io.Writer
	Stderr io.Writer
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Tracer drives the build and trace subprocesses.
type Tracer struct {
	projectDir   string
	buildCommand []string
	binary       string
	stdout       io.Writer
	stderr       io.Writer
	logger       *slog.Logger
}

// New creates a Tracer, filling unset fields with the defaults.
func New(cfg Config) *Tracer {
	t := &Tracer{
		projectDir:   cfg.ProjectDir,
		buildCommand: cfg.BuildCommand,
		binary:       cfg.Binary,
		stdout:       cfg.Stdout,
		stderr:       cfg.Stderr,
		logger:       cfg.Logger,
	}
	if t.projectDir == "" {
		t.projectDir = DefaultProjectDir
	}
	if len(t.buildCommand) == 0 {
		t.buildCommand = DefaultBuildCommand
	}
	if t.binary == "" {
		t.binary = DefaultBinary
	}
	if t.stdout == nil {
		t.stdout = io.Discard
	}
	if t.stderr == nil {
		t.stderr = io.Discard
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	return t
}

// ProjectDir returns the directory the build runs in.
func (t *Tracer) ProjectDir() string {
	return t.projectDir
}

// Binary returns the tracer executable path.
func (t *Tracer) Binary() string {
	return t.binary
}

// BuildCommand returns the build argv.
func (t *Tracer) BuildCommand() []string {
	return append([]string(nil), t.buildCommand...)
}

// Build runs the build command with its working directory set to the
// project directory. The process working directory is left untouched.
func (t *Tracer) Build(ctx context.Context) error {
	info, err := os.Stat(t.projectDir)
	if err != nil {
		return fmt.Errorf("tracer project directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("tracer project directory %s is not a directory", t.projectDir)
	}

	return t.run(ctx, t.projectDir, t.buildCommand[0], t.buildCommand[1:])
}

// Trace runs the tracer binary with args as its full argument list. A
// relative binary path is resolved against the process working directory.
func (t *Tracer) Trace(ctx context.Context, args []string) error {
	return t.run(ctx, "", t.binary, args)
}

func (t *Tracer) run(ctx context.Context, dir, name string, args []string) error {
	display := strings.Join(append([]string{name}, args...), " ")
	if len(args) > 8 {
		display = fmt.Sprintf("%s (%d args)", name, len(args))
	}

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // commands come from configuration
	cmd.Dir = dir
	cmd.Stdout = t.stdout
	cmd.Stderr = t.stderr

	t.logger.Debug("running command", slog.String("command", display), slog.String("dir", dir))
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return &StartError{Command: name, Err: err}
	}

	err := cmd.Wait()
	t.logger.Debug("command finished", slog.String("command", name), slog.Duration("duration", time.Since(start)))
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s interrupted: %w", name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: name, ExitCode: exitErr.ExitCode()}
	}
	return fmt.Errorf("failed to run %s: %w", name, err)
}
