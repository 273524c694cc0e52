package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/descriptor"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/github"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/install"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/logging"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/paths"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/platform"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/state"
)

// PackageInstaller installs one package. *install.Installer implements it;
// tests substitute fakes.
type PackageInstaller interface {
	Install(ctx context.Context, desc *descriptor.Descriptor, release *github.Release, asset github.Asset) (*state.Record, error)
}

// Config wires a Reconciler.
type Config struct {
	Provider  ReleaseProvider
	Installer PackageInstaller
	StateDir  string
	BinDir    string
	Platform  *platform.Info
	Out       io.Writer
}

// Reconciler compares descriptors against persisted state and converges
// them, one package at a time.
type Reconciler struct {
	provider  ReleaseProvider
	installer PackageInstaller
	stateDir  string
	binDir    string
	platform  *platform.Info
	out       io.Writer
}

// New creates a Reconciler.
func New(cfg Config) *Reconciler {
	return &Reconciler{
		provider:  cfg.Provider,
		installer: cfg.Installer,
		stateDir:  cfg.StateDir,
		binDir:    cfg.BinDir,
		platform:  cfg.Platform,
		out:       cfg.Out,
	}
}

// Sync reconciles every descriptor against the persisted state under the
// exclusive state lock. Per-package failures are recorded in the summary
// and processing continues; only lock contention, state corruption, and
// invalid credentials abort the run. State is persisted once, at the end:
// new records for packages that fully succeeded, prior records untouched
// for everything else, orphans retained.
func (r *Reconciler) Sync(ctx context.Context, descriptors []*descriptor.Descriptor, dryRun bool) (*Summary, error) {
	log := logging.GetLogger("reconcile")

	lock, err := state.AcquireLock(r.stateDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	doc, err := state.Load(r.stateDir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}

	byName := make(map[string]*descriptor.Descriptor, len(descriptors))
	for _, desc := range descriptors {
		byName[desc.Name] = desc
	}

	for _, name := range sortedKeys(doc.Packages) {
		if byName[name] == nil {
			fmt.Fprintf(r.out, "%s: WARN orphan (use 'ghrel prune' to remove)\n", name)
			summary.add(Outcome{Name: name, Kind: OutcomeOrphaned, Version: displayVersion(doc.Packages[name].Version)})
		}
	}

	for _, desc := range descriptors {
		current := recordFor(doc, desc.Name)

		p, err := makePlan(ctx, desc, current, r.provider, r.platform.OS, r.platform.Arch, r.binDir)
		if err != nil {
			var authErr *github.AuthError
			if errors.As(err, &authErr) {
				// Every later API call would fail identically.
				return nil, err
			}
			summary.add(Outcome{Name: desc.Name, Kind: OutcomeFailed, Err: err})
			continue
		}

		if p.reason != "" {
			r.printDriftWarning(desc.Name, p.reason)
		}

		if dryRun {
			r.printPlan(p, true, false)
			continue
		}

		if p.action == actionUpToDate {
			summary.add(r.verifyUnchanged(p))
			continue
		}

		log.Info().Str("package", desc.Name).Str("version", p.desired).Msg("installing")
		record, err := r.installer.Install(ctx, desc, p.release, p.asset)
		if err != nil {
			summary.add(Outcome{Name: desc.Name, Kind: OutcomeFailed, Err: err})
			continue
		}

		doc.Packages[desc.Name] = *record
		summary.add(outcomeFor(p))
		r.printPlan(p, false, !desc.HasVerify())
	}

	if !dryRun {
		if err := state.Save(r.stateDir, doc); err != nil {
			return nil, err
		}
	}

	r.printFailures(summary)
	return summary, nil
}

// verifyUnchanged handles an up-to-date package. Hooks are not skipped
// just because nothing was downloaded: the verify hook still runs against
// the installed binary, and its failure is a package failure (the record
// stays, and with the checksum still matching the next run will retry
// verify without re-downloading).
func (r *Reconciler) verifyUnchanged(p *plan) Outcome {
	if p.desc.HasVerify() {
		hctx := descriptor.HookContext{
			Version:    p.desired,
			BinaryName: filepath.Base(p.current.BinaryPath),
			BinaryPath: p.current.BinaryPath,
			Checksum:   p.current.Checksum,
			Repo:       p.desc.Repo,
			BinDir:     r.binDir,
		}
		if err := p.desc.Verify(hctx); err != nil {
			hookErr := &install.HookError{Phase: "verify", Err: err}
			return Outcome{Name: p.desc.Name, Kind: OutcomeFailed, Err: hookErr}
		}
	}

	fmt.Fprintf(r.out, "%s: ok (up to date)\n", p.desc.Name)
	return Outcome{Name: p.desc.Name, Kind: OutcomeUnchanged, Version: displayVersion(p.desired)}
}

// outcomeFor maps a completed plan to its outcome. Drift reinstalls count
// as installs when the binary had vanished and as upgrades when content
// changed under the same tag.
func outcomeFor(p *plan) Outcome {
	switch p.action {
	case actionUpdate:
		return Outcome{
			Name:        p.desc.Name,
			Kind:        OutcomeUpgraded,
			Version:     displayVersion(p.desired),
			FromVersion: displayVersion(p.current.Version),
		}
	case actionReinstall:
		if p.reason == reasonBinaryMissing {
			return Outcome{Name: p.desc.Name, Kind: OutcomeInstalled, Version: displayVersion(p.desired)}
		}
		return Outcome{
			Name:        p.desc.Name,
			Kind:        OutcomeUpgraded,
			Version:     displayVersion(p.desired),
			FromVersion: displayVersion(p.current.Version),
		}
	default:
		return Outcome{Name: p.desc.Name, Kind: OutcomeInstalled, Version: displayVersion(p.desired)}
	}
}

func (r *Reconciler) printDriftWarning(name, reason string) {
	var message string
	switch reason {
	case reasonBinaryMissing:
		message = "WARN binary missing, re-downloading"
	case reasonChecksumMismatch:
		message = "WARN checksum mismatch, re-downloading"
	case reasonPathChanged:
		message = "WARN binary path changed, re-downloading"
	default:
		message = "WARN re-downloading"
	}
	fmt.Fprintf(r.out, "%s: %s\n", name, message)
}

func (r *Reconciler) printPlan(p *plan, dryRun, verifyMissing bool) {
	name := p.desc.Name
	var line string
	switch p.action {
	case actionUpToDate:
		fmt.Fprintf(r.out, "%s: ok (up to date)\n", name)
		return
	case actionInstall:
		if dryRun {
			line = fmt.Sprintf("%s: would install %s", name, p.desired)
		} else {
			line = fmt.Sprintf("%s: installed %s", name, p.desired)
		}
	case actionUpdate:
		line = fmt.Sprintf("%s: %s -> %s", name, p.current.Version, p.desired)
	case actionReinstall:
		if dryRun {
			line = fmt.Sprintf("%s: would reinstall %s", name, p.desired)
		} else {
			line = fmt.Sprintf("%s: reinstalled %s", name, p.desired)
		}
	}

	if verifyMissing && !dryRun {
		line += " (no verify hook)"
	}
	fmt.Fprintln(r.out, line)

	if dryRun {
		binaryDisplay := p.desc.Binary
		if !p.desc.Archive || binaryDisplay == "" {
			binaryDisplay = p.asset.Name
		}
		fmt.Fprintf(r.out, "  asset: %s\n", p.asset.DownloadURL)
		fmt.Fprintf(r.out, "  binary: %s -> %s\n", binaryDisplay, paths.DisplayPath(p.installPath))
	}
}

func (r *Reconciler) printFailures(summary *Summary) {
	failures := summary.Failures()
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(r.out, "\nFailed: %d package(s)\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(r.out, "  %s: %v\n", f.Name, f.Err)
	}
}

// recordFor returns a copy of the package's record, or nil when absent.
func recordFor(doc *state.Document, name string) *state.Record {
	if record, ok := doc.Packages[name]; ok {
		return &record
	}
	return nil
}

// displayVersion strips a leading "v" from a release tag for display and
// outcome reporting; records keep the tag verbatim.
func displayVersion(tag string) string {
	return strings.TrimPrefix(tag, "v")
}

func sortedKeys(m map[string]state.Record) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
