package install

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/archive"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/descriptor"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/github"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/logging"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/state"
)

// Downloader is the slice of the release provider the installer needs.
type Downloader interface {
	DownloadAsset(ctx context.Context, url, destPath string, size int64) error
}

// Installer performs the atomic install sequence for one package:
// download -> (verify signature) -> extract -> locate -> copy -> checksum ->
// chmod -> rename -> hooks.
//
// Nothing observable changes at the final install path until the rename,
// which is a single filesystem operation on a sibling .tmp file in the
// install directory itself, so it never crosses filesystems.
type Installer struct {
	downloader Downloader
	binDir     string
	keysDir    string
	clock      Clock
}

// NewInstaller creates an installer writing into binDir. keysDir is where
// descriptor-referenced GPG keys live.
func NewInstaller(downloader Downloader, binDir, keysDir string) *Installer {
	return &Installer{
		downloader: downloader,
		binDir:     binDir,
		keysDir:    keysDir,
		clock:      RealClock{},
	}
}

// SetClock overrides the clock used for installed_at timestamps.
func (i *Installer) SetClock(clock Clock) {
	i.clock = clock
}

// Install runs the full install sequence and returns the record to
// persist. On any error the package's previous binary (if it survived this
// far untouched) and previous state record remain valid; the caller never
// persists partial data.
//
// A post-install hook failure leaves the new binary in place (the rename
// already happened) but returns an error so no record is written; the next
// sync retries install and hooks. The temporary download/extraction
// directory is removed once the post-install phase finishes, whatever its
// outcome, so the verify hook never sees it.
func (i *Installer) Install(ctx context.Context, desc *descriptor.Descriptor, release *github.Release, asset github.Asset) (*state.Record, error) {
	log := logging.GetLogger("install")

	if err := os.MkdirAll(i.binDir, 0o755); err != nil {
		return nil, fmt.Errorf("create install dir: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "ghrel-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	assetPath := filepath.Join(tmpDir, asset.Name)
	log.Debug().Str("package", desc.Name).Str("asset", asset.Name).Str("url", asset.DownloadURL).Msg("downloading asset")
	if err := i.downloader.DownloadAsset(ctx, asset.DownloadURL, assetPath, asset.Size); err != nil {
		return nil, fmt.Errorf("download asset %s: %w", asset.Name, err)
	}

	if desc.SignaturePattern != "" {
		if err := i.verifyAssetSignature(ctx, desc, release, asset, assetPath, tmpDir); err != nil {
			return nil, err
		}
	}

	sourcePath := assetPath
	extractedDir := ""
	if desc.Archive {
		extractedDir = filepath.Join(tmpDir, "extract")
		if err := archive.Extract(assetPath, extractedDir); err != nil {
			return nil, err
		}
		sourcePath, err = LocateBinary(extractedDir, desc.Binary)
		if err != nil {
			return nil, err
		}
	}

	installName := desc.InstallName(asset.Name)
	destPath := filepath.Join(i.binDir, installName)
	checksum, err := i.installBinary(sourcePath, destPath)
	if err != nil {
		return nil, err
	}

	record := &state.Record{
		Version:     release.Tag,
		Checksum:    checksum,
		InstalledAt: timestamp(i.clock.Now()),
		BinaryPath:  destPath,
	}

	hctx := descriptor.HookContext{
		Version:      release.Tag,
		BinaryName:   installName,
		BinaryPath:   destPath,
		Checksum:     checksum,
		Repo:         desc.Repo,
		BinDir:       i.binDir,
		ExtractedDir: extractedDir,
	}

	if desc.HasPostInstall() {
		log.Debug().Str("package", desc.Name).Msg("running post_install hook")
		if err := desc.PostInstall(hctx); err != nil {
			return nil, &HookError{Phase: "post_install", Err: err}
		}
	}

	// The extraction tree is gone from here on; the verify hook works
	// against the installed binary only.
	os.RemoveAll(tmpDir)
	hctx.ExtractedDir = ""

	if desc.HasVerify() {
		log.Debug().Str("package", desc.Name).Msg("running verify hook")
		if err := desc.Verify(hctx); err != nil {
			return nil, &HookError{Phase: "verify", Err: err}
		}
	}

	return record, nil
}

// installBinary copies the resolved binary next to its final name with a
// .tmp suffix, verifies the copy's checksum against the source, marks it
// executable, and atomically renames it into place. Returns the checksum.
func (i *Installer) installBinary(sourcePath, destPath string) (string, error) {
	tmpPath := destPath + ".tmp"

	if err := copyFile(sourcePath, tmpPath); err != nil {
		return "", err
	}

	sourceChecksum, err := FileChecksum(sourcePath)
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	tmpChecksum, err := FileChecksum(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if sourceChecksum != tmpChecksum {
		os.Remove(tmpPath)
		return "", &CopyIntegrityError{Source: sourcePath, Dest: destPath}
	}

	// Archives and raw downloads alike may lack the executable bit.
	if err := os.Chmod(tmpPath, 0o755); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("set executable: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename into place: %w", err)
	}

	return sourceChecksum, nil
}

// verifyAssetSignature downloads the descriptor's detached-signature asset
// and checks it against the configured GPG key before anything is
// extracted or installed.
func (i *Installer) verifyAssetSignature(ctx context.Context, desc *descriptor.Descriptor, release *github.Release, asset github.Asset, assetPath, tmpDir string) error {
	var matches []github.Asset
	for _, candidate := range release.Assets {
		if ok, _ := path.Match(desc.SignaturePattern, candidate.Name); ok {
			matches = append(matches, candidate)
		}
	}
	if len(matches) != 1 {
		return &SignatureError{
			Asset: asset.Name,
			Err:   fmt.Errorf("signature pattern %q matched %d assets, expected exactly 1", desc.SignaturePattern, len(matches)),
		}
	}

	sigPath := filepath.Join(tmpDir, matches[0].Name)
	if err := i.downloader.DownloadAsset(ctx, matches[0].DownloadURL, sigPath, matches[0].Size); err != nil {
		return &SignatureError{Asset: asset.Name, Err: fmt.Errorf("download signature: %w", err)}
	}

	keyPath := filepath.Join(i.keysDir, desc.GPGKey)
	if err := VerifySignature(assetPath, sigPath, keyPath); err != nil {
		return &SignatureError{Asset: asset.Name, Err: err}
	}

	return nil
}

func copyFile(sourcePath, destPath string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source binary: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(destPath)
		return fmt.Errorf("copy binary: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("close %s: %w", destPath, err)
	}

	return nil
}
