package install

import (
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// VerifySignature checks a detached GPG signature over the downloaded
// asset against an armored public key. Both armored (.asc) and binary
// (.sig) signatures are accepted.
func VerifySignature(assetPath, signaturePath, keyPath string) error {
	keyring, err := loadKeyring(keyPath)
	if err != nil {
		return err
	}

	assetFile, err := os.Open(assetPath)
	if err != nil {
		return fmt.Errorf("open asset: %w", err)
	}
	defer assetFile.Close()

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sigFile.Close()

	// Try armored first, then raw binary signature
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, assetFile, sigFile, nil)
	if err != nil {
		assetFile.Seek(0, io.SeekStart)
		sigFile.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(keyring, assetFile, sigFile, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}

	return nil
}

// loadKeyring reads a public keyring, accepting armored and raw formats.
func loadKeyring(keyPath string) (openpgp.EntityList, error) {
	keyFile, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("open GPG key: %w", err)
	}
	defer keyFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		keyFile.Seek(0, io.SeekStart)
		keyring, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read GPG key: %w", err)
		}
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("GPG key file %s contains no keys", keyPath)
	}

	return keyring, nil
}
