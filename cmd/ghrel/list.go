package main

import (
	"fmt"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/descriptor"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/logging"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/paths"
)

// runList handles the `ghrel list` subcommand.
func runList(args []string) (int, error) {
	showHelp := false
	verbose := false
	verbosity := 0

	for _, arg := range args {
		switch arg {
		case "--help", "-h":
			showHelp = true
		case "--verbose", "-v":
			verbose = true
			verbosity++
		default:
			return 1, fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	if showHelp {
		printListHelp()
		return 0, nil
	}

	logging.Setup(verbosity)

	r := localReconciler()

	names, err := descriptor.ListNames(paths.PackagesDir())
	if err != nil {
		return 1, err
	}

	if err := r.List(keys(names), verbose); err != nil {
		return 1, err
	}
	return 0, nil
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	return out
}

func printListHelp() {
	fmt.Println("Usage: ghrel list [options]")
	fmt.Println()
	fmt.Println("List installed packages and their versions.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -v, --verbose    Show binary path, checksum, and install time")
	fmt.Println("  -h, --help       Show this help")
}
