package install

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/descriptor"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/github"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/platform"
)

// fakeDownloader serves canned bytes per URL instead of hitting the network.
type fakeDownloader struct {
	files map[string][]byte
	calls []string
}

func (f *fakeDownloader) DownloadAsset(_ context.Context, url, destPath string, _ int64) error {
	f.calls = append(f.calls, url)
	body, ok := f.files[url]
	if !ok {
		return fmt.Errorf("unexpected download: %s", url)
	}
	return os.WriteFile(destPath, body, 0o644)
}

// tarGzWithBinary builds an archive laid out like a typical release:
// tool-<ver>/<binary> plus a license file.
func tarGzWithBinary(t *testing.T, dir, binaryName string, body []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	entries := []struct {
		name string
		body []byte
		mode int64
	}{
		{name: dir + "/", mode: 0o755},
		{name: dir + "/" + binaryName, body: body, mode: 0o644},
		{name: dir + "/LICENSE", body: []byte("mit"), mode: 0o644},
	}
	for _, e := range entries {
		typeflag := byte(tar.TypeReg)
		if strings.HasSuffix(e.name, "/") {
			typeflag = tar.TypeDir
		}
		hdr := &tar.Header{Name: e.name, Mode: e.mode, Size: int64(len(e.body)), Typeflag: typeflag}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if typeflag == tar.TypeReg {
			if _, err := tw.Write(e.body); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func loadTestDescriptor(t *testing.T, body string) *descriptor.Descriptor {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pkg.lua"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	info := &platform.Info{OS: "linux", Arch: "amd64", ArchRaw: "amd64"}
	descriptors, err := descriptor.NewLoader(info).LoadAll(dir)
	if err != nil {
		t.Fatalf("load descriptor: %v", err)
	}
	t.Cleanup(func() { descriptor.CloseAll(descriptors) })
	return descriptors[0]
}

func testRelease(assetName string, tag string) (*github.Release, github.Asset) {
	asset := github.Asset{
		Name:        assetName,
		DownloadURL: "https://example.com/" + assetName,
		Size:        1024,
	}
	return &github.Release{Tag: tag, Assets: []github.Asset{asset}}, asset
}

func TestInstallArchive(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	desc := loadTestDescriptor(t, `
		repo = "sharkdp/fd"
		binary = "fd"
	`)

	archiveBytes := tarGzWithBinary(t, "fd-v10.2.0", "fd", []byte("fd binary"))
	release, asset := testRelease("fd-v10.2.0-x86_64-linux.tar.gz", "v10.2.0")
	dl := &fakeDownloader{files: map[string][]byte{asset.DownloadURL: archiveBytes}}

	installer := NewInstaller(dl, binDir, t.TempDir())
	installer.SetClock(TestClock{FixedTime: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)})

	record, err := installer.Install(context.Background(), desc, release, asset)
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}

	if record.Version != "v10.2.0" {
		t.Errorf("Version = %q", record.Version)
	}
	if record.InstalledAt != "2026-01-15T10:30:00Z" {
		t.Errorf("InstalledAt = %q", record.InstalledAt)
	}
	if record.BinaryPath != filepath.Join(binDir, "fd") {
		t.Errorf("BinaryPath = %q", record.BinaryPath)
	}
	if !strings.HasPrefix(record.Checksum, "sha256:") {
		t.Errorf("Checksum = %q", record.Checksum)
	}

	body, err := os.ReadFile(record.BinaryPath)
	if err != nil {
		t.Fatalf("read installed binary: %v", err)
	}
	if string(body) != "fd binary" {
		t.Errorf("installed content = %q", body)
	}

	info, err := os.Stat(record.BinaryPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %o, want 0755", info.Mode().Perm())
	}
}

func TestInstallRawAsset(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	desc := loadTestDescriptor(t, `
		repo = "kubernetes/kubectl"
		archive = false
	`)

	release, asset := testRelease("kubectl-linux-amd64", "v1.31.0")
	dl := &fakeDownloader{files: map[string][]byte{asset.DownloadURL: []byte("kubectl binary")}}

	installer := NewInstaller(dl, binDir, t.TempDir())
	record, err := installer.Install(context.Background(), desc, release, asset)
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}

	// Raw assets install under the asset filename.
	if record.BinaryPath != filepath.Join(binDir, "kubectl-linux-amd64") {
		t.Errorf("BinaryPath = %q", record.BinaryPath)
	}
}

func TestInstallInstallAsRename(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	desc := loadTestDescriptor(t, `
		repo = "BurntSushi/ripgrep"
		binary = "rg"
		install_as = "ripgrep"
	`)

	archiveBytes := tarGzWithBinary(t, "ripgrep-14.1.0", "rg", []byte("rg"))
	release, asset := testRelease("ripgrep-14.1.0-x86_64-linux.tar.gz", "14.1.0")
	dl := &fakeDownloader{files: map[string][]byte{asset.DownloadURL: archiveBytes}}

	installer := NewInstaller(dl, binDir, t.TempDir())
	record, err := installer.Install(context.Background(), desc, release, asset)
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	if filepath.Base(record.BinaryPath) != "ripgrep" {
		t.Errorf("BinaryPath = %q, want install_as name", record.BinaryPath)
	}
}

func TestInstallBinaryMissingFromArchive(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	desc := loadTestDescriptor(t, `
		repo = "owner/tool"
		binary = "tool"
	`)

	archiveBytes := tarGzWithBinary(t, "tool-1.0", "other-name", []byte("x"))
	release, asset := testRelease("tool-1.0.tar.gz", "v1.0.0")
	dl := &fakeDownloader{files: map[string][]byte{asset.DownloadURL: archiveBytes}}

	installer := NewInstaller(dl, binDir, t.TempDir())
	_, err := installer.Install(context.Background(), desc, release, asset)

	var notFound *BinaryNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want BinaryNotFoundError", err)
	}
	if len(notFound.Entries) == 0 {
		t.Error("error should list archive contents")
	}

	// Nothing must appear in the install dir on failure.
	entries, _ := os.ReadDir(binDir)
	if len(entries) != 0 {
		t.Errorf("install dir should stay empty, got %v", entries)
	}
}

func TestInstallPostInstallHookRuns(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	markerPath := filepath.Join(t.TempDir(), "marker")
	desc := loadTestDescriptor(t, fmt.Sprintf(`
		repo = "owner/tool"
		binary = "tool"

		function post_install(ctx)
			run("touch", %q)
			if ctx.extracted_dir == nil then
				error("post_install must see extracted_dir")
			end
		end
	`, markerPath))

	archiveBytes := tarGzWithBinary(t, "tool-1.0", "tool", []byte("x"))
	release, asset := testRelease("tool-1.0.tar.gz", "v1.0.0")
	dl := &fakeDownloader{files: map[string][]byte{asset.DownloadURL: archiveBytes}}

	installer := NewInstaller(dl, binDir, t.TempDir())
	if _, err := installer.Install(context.Background(), desc, release, asset); err != nil {
		t.Fatalf("Install() error: %v", err)
	}

	if _, err := os.Stat(markerPath); err != nil {
		t.Errorf("post_install hook did not run: %v", err)
	}
}

func TestInstallHookFailureReturnsNoRecord(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	desc := loadTestDescriptor(t, `
		repo = "owner/tool"
		binary = "tool"

		function post_install(ctx)
			error("smoke test failed")
		end
	`)

	archiveBytes := tarGzWithBinary(t, "tool-1.0", "tool", []byte("x"))
	release, asset := testRelease("tool-1.0.tar.gz", "v1.0.0")
	dl := &fakeDownloader{files: map[string][]byte{asset.DownloadURL: archiveBytes}}

	installer := NewInstaller(dl, binDir, t.TempDir())
	record, err := installer.Install(context.Background(), desc, release, asset)
	if record != nil {
		t.Error("no record must be returned when a hook fails")
	}

	var hookErr *HookError
	if !errors.As(err, &hookErr) {
		t.Fatalf("error = %v, want HookError", err)
	}
	if hookErr.Phase != "post_install" {
		t.Errorf("Phase = %q", hookErr.Phase)
	}

	// The rename already happened; the binary stays for the retry.
	if _, statErr := os.Stat(filepath.Join(binDir, "tool")); statErr != nil {
		t.Errorf("binary should remain installed: %v", statErr)
	}
}

func TestInstallVerifyHookSeesNoExtractedDir(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	desc := loadTestDescriptor(t, `
		repo = "owner/tool"
		binary = "tool"

		function verify(ctx)
			if ctx.extracted_dir ~= nil then
				error("verify must not see extracted_dir")
			end
			if ctx.binary_path == nil or ctx.binary_path == "" then
				error("missing binary_path")
			end
		end
	`)

	archiveBytes := tarGzWithBinary(t, "tool-1.0", "tool", []byte("x"))
	release, asset := testRelease("tool-1.0.tar.gz", "v1.0.0")
	dl := &fakeDownloader{files: map[string][]byte{asset.DownloadURL: archiveBytes}}

	installer := NewInstaller(dl, binDir, t.TempDir())
	if _, err := installer.Install(context.Background(), desc, release, asset); err != nil {
		t.Fatalf("Install() error: %v", err)
	}
}

func TestInstallDownloadFailure(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	desc := loadTestDescriptor(t, `
		repo = "owner/tool"
		binary = "tool"
	`)

	release, asset := testRelease("tool-1.0.tar.gz", "v1.0.0")
	dl := &fakeDownloader{files: map[string][]byte{}}

	installer := NewInstaller(dl, binDir, t.TempDir())
	_, err := installer.Install(context.Background(), desc, release, asset)
	if err == nil {
		t.Fatal("Install() should fail when the download fails")
	}
}

func TestInstallSignatureAssetMissing(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	desc := loadTestDescriptor(t, `
		repo = "owner/tool"
		binary = "tool"
		signature = "*.sig"
		gpg_key = "owner.asc"
	`)

	archiveBytes := tarGzWithBinary(t, "tool-1.0", "tool", []byte("x"))
	release, asset := testRelease("tool-1.0.tar.gz", "v1.0.0")
	dl := &fakeDownloader{files: map[string][]byte{asset.DownloadURL: archiveBytes}}

	installer := NewInstaller(dl, binDir, t.TempDir())
	_, err := installer.Install(context.Background(), desc, release, asset)

	var sigErr *SignatureError
	if !errors.As(err, &sigErr) {
		t.Fatalf("error = %v, want SignatureError", err)
	}
}
