package reconcile

import (
	"fmt"
	"sort"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/paths"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/state"
)

// List prints the installed packages from state, flagging orphans whose
// descriptor no longer exists. It reads state without taking the lock.
func (r *Reconciler) List(descriptorNames []string, verbose bool) error {
	known := make(map[string]bool, len(descriptorNames))
	for _, name := range descriptorNames {
		known[name] = true
	}

	doc, err := state.Load(r.stateDir)
	if err != nil {
		return err
	}

	names := sortedKeys(doc.Packages)
	if len(names) == 0 {
		fmt.Fprintln(r.out, "No packages installed")
		return nil
	}

	width := 0
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}

	for _, name := range names {
		record := doc.Packages[name]
		line := fmt.Sprintf("%-*s  %s", width, name, record.Version)
		if !known[name] {
			line += "  (orphan - no package file)"
		}
		fmt.Fprintln(r.out, line)
		if verbose {
			fmt.Fprintf(r.out, "  binary:    %s\n", paths.DisplayPath(record.BinaryPath))
			fmt.Fprintf(r.out, "  checksum:  %s\n", record.Checksum)
			fmt.Fprintf(r.out, "  installed: %s\n", record.InstalledAt)
		}
	}
	return nil
}

// OrphanNames returns state entries with no matching descriptor, sorted.
func OrphanNames(doc *state.Document, descriptorNames []string) []string {
	known := make(map[string]bool, len(descriptorNames))
	for _, name := range descriptorNames {
		known[name] = true
	}
	var orphans []string
	for name := range doc.Packages {
		if !known[name] {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	return orphans
}
