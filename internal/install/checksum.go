package install

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ChecksumPrefix tags the hash algorithm in persisted checksums.
const ChecksumPrefix = "sha256:"

// FileChecksum computes the SHA-256 of a file, streaming in bounded chunks
// so multi-hundred-MB binaries do not get buffered whole. The result is
// prefixed with the algorithm tag, e.g. "sha256:ab12...".
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	buf := make([]byte, 1<<20)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", fmt.Errorf("read file for checksum: %w", err)
	}

	return ChecksumPrefix + hex.EncodeToString(hasher.Sum(nil)), nil
}
