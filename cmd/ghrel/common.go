package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/github"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/install"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/paths"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/platform"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/reconcile"
)

// buildReconciler wires the full stack for a command run: platform
// detection, GitHub client, installer, and reconciler.
func buildReconciler(ctx context.Context) (*reconcile.Reconciler, *platform.Info, error) {
	info, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		return nil, nil, err
	}

	stateDir := paths.StateDir()
	binDir := paths.BinDir()
	keysDir := paths.KeysDir()

	token := os.Getenv("GITHUB_TOKEN")
	warnIfNoToken(token)

	client := github.NewClient(token)
	client.SetProgress(term.IsTerminal(int(os.Stderr.Fd())))

	installer := install.NewInstaller(client, binDir, keysDir)

	r := reconcile.New(reconcile.Config{
		Provider:  client,
		Installer: installer,
		StateDir:  stateDir,
		BinDir:    binDir,
		Platform:  info,
		Out:       os.Stdout,
	})
	return r, info, nil
}

// localReconciler wires only what the offline commands (list, prune) need:
// state access and output. No GitHub client, no platform detection.
func localReconciler() *reconcile.Reconciler {
	return reconcile.New(reconcile.Config{
		StateDir: paths.StateDir(),
		Out:      os.Stdout,
	})
}

// warnIfNoToken nudges toward authenticated API access once per run.
// GitHub's anonymous rate limit is 60 requests/hour, which a handful of
// packages exhausts quickly.
func warnIfNoToken(token string) {
	if token != "" || os.Getenv("GHREL_NO_TOKEN_WARNING") == "1" {
		return
	}
	fmt.Fprintln(os.Stderr, "WARN: GITHUB_TOKEN not set, using anonymous API access (60 requests/hour)")
	fmt.Fprintln(os.Stderr, "      set GHREL_NO_TOKEN_WARNING=1 to silence this warning")
}

// packagesDir resolves the descriptor directory, honoring an explicit
// positional override.
func packagesDir(override string) string {
	if override != "" {
		return override
	}
	return paths.PackagesDir()
}
