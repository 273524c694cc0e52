package install

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVerifySignatureMissingKey(t *testing.T) {
	dir := t.TempDir()
	assetPath := filepath.Join(dir, "asset")
	sigPath := filepath.Join(dir, "asset.sig")
	for _, p := range []string{assetPath, sigPath} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	err := VerifySignature(assetPath, sigPath, filepath.Join(dir, "missing.asc"))
	if err == nil {
		t.Fatal("VerifySignature() should fail with a missing key file")
	}
}

func TestVerifySignatureGarbageKey(t *testing.T) {
	dir := t.TempDir()
	assetPath := filepath.Join(dir, "asset")
	sigPath := filepath.Join(dir, "asset.sig")
	keyPath := filepath.Join(dir, "key.asc")
	for _, p := range []string{assetPath, sigPath} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(keyPath, []byte("not a key"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := VerifySignature(assetPath, sigPath, keyPath)
	if err == nil {
		t.Fatal("VerifySignature() should fail with an unparseable key")
	}
}
