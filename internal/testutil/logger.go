// Package testutil provides shared helpers for catrace tests.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// WriteScript writes an executable shell script named name into dir and
// returns its path. Tests that rely on it are skipped on Windows.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create script directory: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil { //nolint:gosec // test script must be executable
		t.Fatalf("failed to write script %s: %v", name, err)
	}
	return path
}

// Sample structure file with two alpha carbons, one side-chain atom and one
// HETATM record.
const SamplePDB = `HEADER    TEST STRUCTURE                          01-JAN-00   1TST
ATOM      1  N   GLY A   1      -1.000   0.500   0.250  1.00  0.00           N
ATOM      2  CA  GLY A   1       1.000   2.000   3.000  1.00  0.00           C
ATOM      3  CA  ALA A   2       4.500   5.250  -6.125  1.00  0.00           C
HETATM    4  O   HOH A   3       7.000   8.000   9.000  1.00  0.00           O
END
`
