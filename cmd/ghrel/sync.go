package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/descriptor"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/logging"
)

// runSync handles the `ghrel sync` subcommand.
// Returns an exit code (0 = all packages converged, 1 = at least one failed)
// and an error for fatal conditions that aborted the run.
func runSync(args []string) (int, error) {
	showHelp := false
	dryRun := false
	verbosity := 0
	dirOverride := ""

	for _, arg := range args {
		switch arg {
		case "--help", "-h":
			showHelp = true
		case "--dry-run", "-n":
			dryRun = true
		case "--verbose", "-v":
			verbosity++
		default:
			if dirOverride != "" {
				return 1, fmt.Errorf("unexpected argument: %s", arg)
			}
			dirOverride = arg
		}
	}

	if showHelp {
		printSyncHelp()
		return 0, nil
	}

	logging.Setup(verbosity)

	// Ctrl-C mid-download leaves partial files in temp dirs only; installed
	// binaries are never touched until the final rename.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r, info, err := buildReconciler(ctx)
	if err != nil {
		return 1, err
	}

	dir := packagesDir(dirOverride)

	descriptors, err := descriptor.NewLoader(info).LoadAll(dir)
	if err != nil {
		return 1, err
	}
	defer descriptor.CloseAll(descriptors)

	if len(descriptors) == 0 {
		fmt.Printf("No package files found in %s\n", dir)
		return 0, nil
	}

	summary, err := r.Sync(ctx, descriptors, dryRun)
	if err != nil {
		return 1, err
	}
	if summary.HasFailures() {
		return 1, nil
	}
	return 0, nil
}

func printSyncHelp() {
	fmt.Println("Usage: ghrel sync [options] [packages-dir]")
	fmt.Println()
	fmt.Println("Reconcile installed binaries against package files.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -n, --dry-run    Show what would change without changing anything")
	fmt.Println("  -v, --verbose    Increase log verbosity (repeatable)")
	fmt.Println("  -h, --help       Show this help")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  GITHUB_TOKEN             Token for authenticated GitHub API access")
	fmt.Println("  GHREL_CONFIG_DIR         Override config directory")
	fmt.Println("  GHREL_STATE_DIR          Override state directory")
	fmt.Println("  GHREL_BIN                Override install directory (default ~/.local/bin)")
	fmt.Println("  GHREL_NO_TOKEN_WARNING   Set to 1 to silence the missing-token warning")
}
