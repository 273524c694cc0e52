package reconcile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/descriptor"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/github"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/install"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/state"
)

// ReleaseProvider resolves release metadata. *github.Client implements it;
// tests substitute fakes.
type ReleaseProvider interface {
	LatestRelease(ctx context.Context, repo string) (*github.Release, error)
	ReleaseByTag(ctx context.Context, repo, tag string) (*github.Release, error)
}

// action is the reconciliation decision for one package.
type action int

const (
	actionInstall action = iota
	actionUpdate
	actionReinstall
	actionUpToDate
)

// Drift reasons attached to reinstall decisions.
const (
	reasonBinaryMissing    = "binary_missing"
	reasonChecksumMismatch = "checksum_mismatch"
	reasonPathChanged      = "binary_path_changed"
)

// plan is the resolved intent for one package: which release and asset,
// where it installs, and what action reconciliation decided on.
type plan struct {
	desc        *descriptor.Descriptor
	current     *state.Record
	desired     string
	release     *github.Release
	asset       github.Asset
	installPath string
	action      action
	reason      string // drift reason, empty unless reinstalling
}

// makePlan resolves the desired version and asset for a descriptor and
// compares them to the current record. Content is the source of truth, not
// the version tag: a record whose binary is missing or whose checksum no
// longer matches triggers a reinstall even when the tag is current.
func makePlan(ctx context.Context, desc *descriptor.Descriptor, current *state.Record, provider ReleaseProvider, osName, arch, binDir string) (*plan, error) {
	var release *github.Release
	var err error
	if desc.VersionPin != "" {
		release, err = provider.ReleaseByTag(ctx, desc.Repo, desc.VersionPin)
	} else {
		release, err = provider.LatestRelease(ctx, desc.Repo)
	}
	if err != nil {
		return nil, err
	}

	asset, err := install.SelectAsset(release.Assets, desc.AssetPattern, osName, arch, release.Tag)
	if err != nil {
		return nil, err
	}

	p := &plan{
		desc:        desc,
		current:     current,
		desired:     release.Tag,
		release:     release,
		asset:       asset,
		installPath: filepath.Join(binDir, desc.InstallName(asset.Name)),
	}

	if current == nil {
		p.action = actionInstall
		return p, nil
	}

	if current.BinaryPath != p.installPath {
		p.action = actionReinstall
		p.reason = reasonPathChanged
		return p, nil
	}

	if current.Version != p.desired {
		p.action = actionUpdate
		return p, nil
	}

	if _, err := os.Stat(current.BinaryPath); err != nil {
		p.action = actionReinstall
		p.reason = reasonBinaryMissing
		return p, nil
	}

	onDisk, err := install.FileChecksum(current.BinaryPath)
	if err != nil {
		return nil, err
	}
	if onDisk != current.Checksum {
		p.action = actionReinstall
		p.reason = reasonChecksumMismatch
		return p, nil
	}

	p.action = actionUpToDate
	return p, nil
}
