// Package paths resolves the directories ghrel reads and writes.
//
// Every directory can be overridden through a GHREL_* environment variable.
// Without an override, config and state follow the XDG base directory spec
// and binaries land in ~/.local/bin.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const appDirName = "ghrel"

// ConfigDir returns the root configuration directory
// (GHREL_CONFIG_DIR or $XDG_CONFIG_HOME/ghrel).
func ConfigDir() string {
	if dir := os.Getenv("GHREL_CONFIG_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(xdg.ConfigHome, appDirName)
}

// PackagesDir returns the directory holding package descriptor files.
func PackagesDir() string {
	return filepath.Join(ConfigDir(), "packages")
}

// KeysDir returns the directory holding armored GPG public keys referenced
// by descriptors.
func KeysDir() string {
	return filepath.Join(ConfigDir(), "keys")
}

// StateDir returns the state directory
// (GHREL_STATE_DIR or $XDG_STATE_HOME/ghrel).
func StateDir() string {
	if dir := os.Getenv("GHREL_STATE_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(xdg.StateHome, appDirName)
}

// BinDir returns the binary install directory
// (GHREL_BIN or ~/.local/bin).
func BinDir() string {
	if dir := os.Getenv("GHREL_BIN"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fall back to a relative path; callers will surface the
		// mkdir failure with a usable message.
		return filepath.Join(".local", "bin")
	}
	return filepath.Join(home, ".local", "bin")
}

// DisplayPath renders a path with ~ substituted for the home directory.
func DisplayPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+string(os.PathSeparator)) {
		return "~" + path[len(home):]
	}
	return path
}
