// Package testutil provides utilities for testing ghrel in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv points every ghrel directory at per-test temp locations so
// tests never touch:
// - the user's real package files
// - the user's state file and its lock
// - binaries in ~/.local/bin
//
// The cleanup function is automatically handled by t.TempDir(),
// so callers don't need to manually clean up.
// It returns the temp root for tests that need to place fixtures.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	t.Setenv("GHREL_CONFIG_DIR", filepath.Join(tmpDir, "config"))
	t.Setenv("GHREL_STATE_DIR", filepath.Join(tmpDir, "state"))
	t.Setenv("GHREL_BIN", filepath.Join(tmpDir, "bin"))

	// Tests never hit the real API; an inherited token must not leak in.
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GHREL_NO_TOKEN_WARNING", "1")
	t.Setenv("GHREL_API_BASE", "")

	dirs := []string{
		filepath.Join(tmpDir, "config"),
		filepath.Join(tmpDir, "config", "packages"),
		filepath.Join(tmpDir, "state"),
		filepath.Join(tmpDir, "bin"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return tmpDir
}
