package reconcile

import (
	"fmt"
	"os"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/paths"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/state"
)

// Prune removes orphaned state entries and their installed binaries.
// Orphans are state records whose name has no matching descriptor in
// descriptorNames. A dry run only reports what would be removed and takes
// no lock; a real prune holds the state lock for its duration.
func (r *Reconciler) Prune(descriptorNames []string, dryRun bool) (*Summary, error) {
	summary := &Summary{}

	if dryRun {
		doc, err := state.Load(r.stateDir)
		if err != nil {
			return nil, err
		}
		for _, name := range OrphanNames(doc, descriptorNames) {
			record := doc.Packages[name]
			fmt.Fprintf(r.out, "Would remove %s (%s)\n", name, paths.DisplayPath(record.BinaryPath))
			summary.add(Outcome{Name: name, Kind: OutcomePruned, Version: displayVersion(record.Version)})
		}
		if len(summary.Outcomes) == 0 {
			fmt.Fprintln(r.out, "Nothing to prune")
		}
		return summary, nil
	}

	lock, err := state.AcquireLock(r.stateDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	doc, err := state.Load(r.stateDir)
	if err != nil {
		return nil, err
	}

	orphans := OrphanNames(doc, descriptorNames)

	if len(orphans) == 0 {
		fmt.Fprintln(r.out, "Nothing to prune")
		return summary, nil
	}

	for _, name := range orphans {
		record := doc.Packages[name]
		if err := os.Remove(record.BinaryPath); err != nil && !os.IsNotExist(err) {
			summary.add(Outcome{Name: name, Kind: OutcomeFailed, Err: fmt.Errorf("removing %s: %w", record.BinaryPath, err)})
			continue
		}
		delete(doc.Packages, name)
		fmt.Fprintf(r.out, "Removed %s (%s)\n", name, paths.DisplayPath(record.BinaryPath))
		summary.add(Outcome{Name: name, Kind: OutcomePruned, Version: displayVersion(record.Version)})
	}

	if err := state.Save(r.stateDir, doc); err != nil {
		return nil, err
	}

	r.printFailures(summary)
	return summary, nil
}
