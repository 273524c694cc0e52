package install

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	content := []byte("release binary bytes")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FileChecksum(path)
	if err != nil {
		t.Fatalf("FileChecksum() error: %v", err)
	}

	sum := sha256.Sum256(content)
	want := ChecksumPrefix + hex.EncodeToString(sum[:])
	if got != want {
		t.Errorf("FileChecksum() = %q, want %q", got, want)
	}
	if !strings.HasPrefix(got, "sha256:") {
		t.Errorf("checksum should carry the algorithm prefix: %q", got)
	}
}

func TestFileChecksumMissingFile(t *testing.T) {
	_, err := FileChecksum(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("FileChecksum() on missing file should fail")
	}
}
