package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/catrace/internal/testutil"
)

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_RequiresIdentifier(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := runRoot(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"display", "fetch", "extract", "history", "config", "version", "completion"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"skip-build", "keep", "dry-run"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "root should accept display flag %q", flag)
	}
}

func TestRootCmd_Version(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := runRoot(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "catrace "+Version+"\n", out)

	out, _, err = runRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "catrace v"+Version)
}

func TestRootCmd_Completion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, _, err := runRoot(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "catrace")
		})
	}

	_, _, err := runRoot(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestRootCmd_ConfigLayers(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catrace.yaml"), []byte("work_dir: structures\nchunk_size: 512\n"), 0o600))
	t.Setenv("CATRACE_EXTRACT_ATOM", "CB")

	out, _, err := runRoot(t, "config", "-o", "json", "--keep", "--http-timeout", "3s")
	require.Error(t, err, "config does not define --keep")

	out, _, err = runRoot(t, "config", "-o", "json", "--http-timeout", "3s")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "structures"), got["work_dir"])
	assert.Equal(t, float64(512), got["chunk_size"])
	assert.Equal(t, float64(3e9), got["http_timeout"])
	assert.Equal(t, "CB", got["extract"].(map[string]any)["atom"])
	assert.Equal(t, "json", got["output"])
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := runRoot(t, "config", "-o", "markdown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRootCmd_Extract(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "1TST.pdb")
	require.NoError(t, os.WriteFile(path, []byte(testutil.SamplePDB), 0o600))

	out, _, err := runRoot(t, "extract", path)
	require.NoError(t, err)
	assert.Equal(t, "1.000,2.000,3.000\n4.500,5.250,-6.125\n", out)
}

func TestRootCmd_InvalidIdentifier(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := runRoot(t, "--state", "", "not/valid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input failed")
}
