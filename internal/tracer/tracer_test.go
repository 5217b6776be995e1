package tracer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/catrace/internal/testutil"
)

func TestNew_Defaults(t *testing.T) {
	tr := New(Config{})

	assert.Equal(t, DefaultProjectDir, tr.ProjectDir())
	assert.Equal(t, DefaultBinary, tr.Binary())
	assert.Equal(t, []string{"cargo", "build", "--release"}, tr.BuildCommand())
}

func TestBuild_RunsInProjectDir(t *testing.T) {
	root := t.TempDir()
	project := filepath.Join(root, "ray-tracing")
	require.NoError(t, os.MkdirAll(project, 0o750))
	build := testutil.WriteScript(t, root, "build.sh", `pwd > built.txt; echo "building $1"`)

	wdBefore, err := os.Getwd()
	require.NoError(t, err)

	var stdout bytes.Buffer
	tr := New(Config{
		ProjectDir:   project,
		BuildCommand: []string{build, "--release"},
		Stdout:       &stdout,
		Logger:       testutil.NewTestLogger(t),
	})
	require.NoError(t, tr.Build(context.Background()))

	wdAfter, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wdBefore, wdAfter, "process working directory must not change")

	built, err := os.ReadFile(filepath.Join(project, "built.txt"))
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(project)
	require.NoError(t, err)
	assert.Equal(t, resolved, strings.TrimSpace(string(built)))
	assert.Equal(t, "building --release\n", stdout.String())
}

func TestBuild_Failures(t *testing.T) {
	root := t.TempDir()
	failing := testutil.WriteScript(t, root, "fail.sh", "exit 3")

	tests := []struct {
		name       string
		projectDir string
		command    []string
		check      func(t *testing.T, err error)
	}{
		{
			name:       "non-zero exit",
			projectDir: root,
			command:    []string{failing},
			check: func(t *testing.T, err error) {
				var exitErr *ExitError
				require.True(t, errors.As(err, &exitErr))
				assert.Equal(t, 3, exitErr.ExitCode)
			},
		},
		{
			name:       "command not found",
			projectDir: root,
			command:    []string{"catrace-no-such-build-tool"},
			check: func(t *testing.T, err error) {
				var startErr *StartError
				assert.True(t, errors.As(err, &startErr))
			},
		},
		{
			name:       "missing project dir",
			projectDir: filepath.Join(root, "absent"),
			command:    []string{failing},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, os.ErrNotExist))
			},
		},
		{
			name:       "project dir is a file",
			projectDir: failing,
			command:    []string{failing},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "not a directory")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(Config{ProjectDir: tt.projectDir, BuildCommand: tt.command})
			err := tr.Build(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestTrace_PassesArguments(t *testing.T) {
	root := t.TempDir()
	bin := testutil.WriteScript(t, root, "target/release/ray-tracing", `for a in "$@"; do echo "$a"; done`)

	var stdout bytes.Buffer
	tr := New(Config{Binary: bin, Stdout: &stdout})

	args := []string{"1.000,2.000,3.000", "4.500,5.250,-6.125"}
	require.NoError(t, tr.Trace(context.Background(), args))
	assert.Equal(t, strings.Join(args, "\n")+"\n", stdout.String())
}

func TestTrace_Failures(t *testing.T) {
	root := t.TempDir()
	crash := testutil.WriteScript(t, root, "crash.sh", "echo boom >&2; exit 101")

	var stderr bytes.Buffer
	err := New(Config{Binary: crash, Stderr: &stderr}).Trace(context.Background(), []string{"1,2,3"})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 101, exitErr.ExitCode)
	assert.Equal(t, "boom\n", stderr.String())

	err = New(Config{Binary: filepath.Join(root, "missing")}).Trace(context.Background(), nil)
	var startErr *StartError
	require.True(t, errors.As(err, &startErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestTrace_Cancelled(t *testing.T) {
	root := t.TempDir()
	slow := testutil.WriteScript(t, root, "slow.sh", "sleep 5")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(Config{Binary: slow}).Trace(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
