// Package reconcile drives the sync state machine: it compares loaded
// descriptors against persisted state, decides what to install, upgrade or
// leave alone, runs the installer per package, and aggregates outcomes.
//
// Failures are independent across packages. The only fatal conditions are
// lock contention, state corruption, and invalid API credentials; anything
// that goes wrong for one package is recorded and the run moves on.
package reconcile

import "fmt"

// OutcomeKind classifies what happened to one package during a run.
type OutcomeKind int

const (
	// OutcomeInstalled means a fresh install succeeded.
	OutcomeInstalled OutcomeKind = iota
	// OutcomeUpgraded means an existing install was replaced.
	OutcomeUpgraded
	// OutcomeUnchanged means the package was already up to date.
	OutcomeUnchanged
	// OutcomeOrphaned means a state record has no descriptor.
	OutcomeOrphaned
	// OutcomeFailed means the package's install or hooks failed.
	OutcomeFailed
	// OutcomePruned means prune removed the package.
	OutcomePruned
)

// String returns the outcome kind's display name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeInstalled:
		return "installed"
	case OutcomeUpgraded:
		return "upgraded"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeOrphaned:
		return "orphaned"
	case OutcomeFailed:
		return "failed"
	case OutcomePruned:
		return "pruned"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Outcome is the per-package result of a run. Never persisted.
type Outcome struct {
	Name        string
	Kind        OutcomeKind
	Version     string // target version, where applicable
	FromVersion string // previous version, for upgrades
	Err         error  // reason, for failures
}

// Summary aggregates every package outcome of one run.
type Summary struct {
	Outcomes []Outcome
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
}

// Failures returns the failed outcomes in run order.
func (s *Summary) Failures() []Outcome {
	var failures []Outcome
	for _, o := range s.Outcomes {
		if o.Kind == OutcomeFailed {
			failures = append(failures, o)
		}
	}
	return failures
}

// HasFailures reports whether any package failed.
func (s *Summary) HasFailures() bool {
	return len(s.Failures()) > 0
}
