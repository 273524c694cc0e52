package main

import (
	"archive/tar"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/state"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/testutil"
)

// fakeForge serves a minimal GitHub-shaped API: one latest release per
// repo with one downloadable tar.gz asset.
func fakeForge(t *testing.T, repo, tag, assetName string, archiveBytes []byte) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/repos/"+repo+"/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tag_name":%q,"assets":[{"name":%q,"browser_download_url":%q,"size":%d}]}`,
			tag, assetName, server.URL+"/download/"+assetName, len(archiveBytes))
	})
	mux.HandleFunc("/download/"+assetName, func(w http.ResponseWriter, r *http.Request) {
		w.Write(archiveBytes)
	})

	t.Setenv("GHREL_API_BASE", server.URL)
	return server
}

func buildArchive(t *testing.T, dir, binaryName string, body []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	if err := tw.WriteHeader(&tar.Header{Name: dir + "/", Mode: 0o755, Typeflag: tar.TypeDir}); err != nil {
		t.Fatal(err)
	}
	if err := tw.WriteHeader(&tar.Header{Name: dir + "/" + binaryName, Mode: 0o644, Size: int64(len(body))}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(body); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writePackageFile(t *testing.T, name, body string) {
	t.Helper()
	path := filepath.Join(os.Getenv("GHREL_CONFIG_DIR"), "packages", name+".lua")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunSyncEndToEnd(t *testing.T) {
	testutil.SetupTestEnv(t)

	archiveBytes := buildArchive(t, "fd-v10.2.0", "fd", []byte("fd binary"))
	fakeForge(t, "sharkdp/fd", "v10.2.0", "fd-v10.2.0-x86_64-unknown-linux-gnu.tar.gz", archiveBytes)

	writePackageFile(t, "fd", `
		repo = "sharkdp/fd"
		binary = "fd"
		asset = "*x86_64*linux*"
	`)

	code, err := runSync(nil)
	if err != nil {
		t.Fatalf("runSync() error: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	binaryPath := filepath.Join(os.Getenv("GHREL_BIN"), "fd")
	body, err := os.ReadFile(binaryPath)
	if err != nil {
		t.Fatalf("binary not installed: %v", err)
	}
	if string(body) != "fd binary" {
		t.Errorf("installed content = %q", body)
	}

	doc, err := state.Load(os.Getenv("GHREL_STATE_DIR"))
	if err != nil {
		t.Fatal(err)
	}
	record, ok := doc.Packages["fd"]
	if !ok {
		t.Fatal("no state record written")
	}
	if record.Version != "v10.2.0" {
		t.Errorf("record version = %q", record.Version)
	}

	// Second run converges to a no-op.
	code, err = runSync(nil)
	if err != nil || code != 0 {
		t.Fatalf("second runSync() = %d, %v", code, err)
	}
}

func TestRunSyncDryRun(t *testing.T) {
	testutil.SetupTestEnv(t)

	archiveBytes := buildArchive(t, "fd-v10.2.0", "fd", []byte("fd binary"))
	fakeForge(t, "sharkdp/fd", "v10.2.0", "fd-v10.2.0-x86_64-unknown-linux-gnu.tar.gz", archiveBytes)

	writePackageFile(t, "fd", `
		repo = "sharkdp/fd"
		binary = "fd"
		asset = "*x86_64*linux*"
	`)

	code, err := runSync([]string{"--dry-run"})
	if err != nil {
		t.Fatalf("runSync() error: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	if _, err := os.Stat(filepath.Join(os.Getenv("GHREL_BIN"), "fd")); !os.IsNotExist(err) {
		t.Error("dry run must not install")
	}
}

func TestRunSyncNoPackages(t *testing.T) {
	testutil.SetupTestEnv(t)

	code, err := runSync(nil)
	if err != nil {
		t.Fatalf("runSync() error: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, empty package dir is not an error", code)
	}
}

func TestRunSyncFailedPackageExitCode(t *testing.T) {
	testutil.SetupTestEnv(t)

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	t.Setenv("GHREL_API_BASE", server.URL)

	writePackageFile(t, "ghost", `
		repo = "owner/ghost"
		binary = "ghost"
	`)

	code, err := runSync(nil)
	if err != nil {
		t.Fatalf("runSync() error: %v", err)
	}
	if code != 1 {
		t.Errorf("exit code = %d, want 1 when a package fails", code)
	}
}

func TestRunSyncRejectsExtraArgs(t *testing.T) {
	testutil.SetupTestEnv(t)

	_, err := runSync([]string{"dir-one", "dir-two"})
	if err == nil {
		t.Fatal("two positional arguments should be rejected")
	}
	if !strings.Contains(err.Error(), "unexpected argument") {
		t.Errorf("error = %v", err)
	}
}

func TestRunListAndPrune(t *testing.T) {
	testutil.SetupTestEnv(t)

	archiveBytes := buildArchive(t, "fd-v10.2.0", "fd", []byte("fd binary"))
	fakeForge(t, "sharkdp/fd", "v10.2.0", "fd-v10.2.0-x86_64-unknown-linux-gnu.tar.gz", archiveBytes)

	writePackageFile(t, "fd", `
		repo = "sharkdp/fd"
		binary = "fd"
		asset = "*x86_64*linux*"
	`)

	if code, err := runSync(nil); err != nil || code != 0 {
		t.Fatalf("runSync() = %d, %v", code, err)
	}

	if code, err := runList(nil); err != nil || code != 0 {
		t.Fatalf("runList() = %d, %v", code, err)
	}

	// Remove the package file; prune should drop the install.
	if err := os.Remove(filepath.Join(os.Getenv("GHREL_CONFIG_DIR"), "packages", "fd.lua")); err != nil {
		t.Fatal(err)
	}
	if code, err := runPrune(nil); err != nil || code != 0 {
		t.Fatalf("runPrune() = %d, %v", code, err)
	}

	if _, err := os.Stat(filepath.Join(os.Getenv("GHREL_BIN"), "fd")); !os.IsNotExist(err) {
		t.Error("pruned binary should be gone")
	}
	doc, err := state.Load(os.Getenv("GHREL_STATE_DIR"))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Packages) != 0 {
		t.Errorf("state = %v, want empty after prune", doc.Packages)
	}
}
