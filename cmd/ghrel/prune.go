package main

import (
	"fmt"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/descriptor"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/logging"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/paths"
)

// runPrune handles the `ghrel prune` subcommand.
func runPrune(args []string) (int, error) {
	showHelp := false
	dryRun := false
	verbosity := 0

	for _, arg := range args {
		switch arg {
		case "--help", "-h":
			showHelp = true
		case "--dry-run", "-n":
			dryRun = true
		case "--verbose", "-v":
			verbosity++
		default:
			return 1, fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	if showHelp {
		printPruneHelp()
		return 0, nil
	}

	logging.Setup(verbosity)

	r := localReconciler()

	names, err := descriptor.ListNames(paths.PackagesDir())
	if err != nil {
		return 1, err
	}

	summary, err := r.Prune(keys(names), dryRun)
	if err != nil {
		return 1, err
	}
	if summary.HasFailures() {
		return 1, nil
	}
	return 0, nil
}

func printPruneHelp() {
	fmt.Println("Usage: ghrel prune [options]")
	fmt.Println()
	fmt.Println("Remove binaries and state for packages whose package file is gone.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -n, --dry-run    Show what would be removed without removing it")
	fmt.Println("  -v, --verbose    Increase log verbosity (repeatable)")
	fmt.Println("  -h, --help       Show this help")
}
