package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain_ExitStatus re-runs the test binary as catrace and checks the
// process exit status.
func TestMain_ExitStatus(t *testing.T) {
	if os.Getenv("CATRACE_RUN_MAIN") == "1" {
		os.Args = append([]string{"catrace"}, filepath.SplitList(os.Getenv("CATRACE_MAIN_ARGS"))...)
		main()
		return
	}

	tests := []struct {
		name     string
		args     string
		wantCode int
	}{
		{name: "version", args: "version", wantCode: 0},
		{name: "missing identifier", args: "", wantCode: 1},
		{name: "unknown command flag", args: "history" + string(os.PathListSeparator) + "--bogus", wantCode: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(os.Args[0], "-test.run=^TestMain_ExitStatus$") //nolint:gosec // re-exec of the test binary
			cmd.Dir = t.TempDir()
			cmd.Env = append(os.Environ(), "CATRACE_RUN_MAIN=1", "CATRACE_MAIN_ARGS="+tt.args)
			out, err := cmd.CombinedOutput()

			if tt.wantCode == 0 {
				require.NoError(t, err, string(out))
				return
			}
			var exitErr *exec.ExitError
			require.ErrorAs(t, err, &exitErr, string(out))
			assert.Equal(t, tt.wantCode, exitErr.ExitCode())
			assert.Contains(t, string(out), "Error:")
		})
	}
}
