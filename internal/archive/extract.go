package archive

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Extract unpacks archivePath into destDir, creating it if needed.
// Every entry path is validated against destDir before anything is written.
func Extract(archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create extraction dir: %w", err)
	}

	f := detectFormat(archivePath)
	if f == formatZip {
		return extractZip(archivePath, destDir)
	}
	if f == formatUnknown {
		return &UnsupportedError{Path: archivePath}
	}
	return extractTar(archivePath, destDir, f)
}

// tarReader wraps the archive file in the decompressor the format needs.
// The returned closer releases the decompressor, not the underlying file.
func tarReader(archiveFile *os.File, archivePath string, f format) (*tar.Reader, func(), error) {
	switch f {
	case formatTarGz:
		gz, err := gzip.NewReader(archiveFile)
		if err != nil {
			return nil, nil, &CorruptError{Path: archivePath, Err: err}
		}
		return tar.NewReader(gz), func() { gz.Close() }, nil
	case formatTarXz:
		xr, err := xz.NewReader(archiveFile)
		if err != nil {
			return nil, nil, &CorruptError{Path: archivePath, Err: err}
		}
		return tar.NewReader(xr), func() {}, nil
	case formatTarZst:
		zr, err := zstd.NewReader(archiveFile)
		if err != nil {
			return nil, nil, &CorruptError{Path: archivePath, Err: err}
		}
		return tar.NewReader(zr), func() { zr.Close() }, nil
	default:
		return tar.NewReader(archiveFile), func() {}, nil
	}
}

func extractTar(archivePath, destDir string, f format) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	tr, closer, err := tarReader(archiveFile, archivePath, f)
	if err != nil {
		return err
	}
	defer closer()

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &CorruptError{Path: archivePath, Err: err}
		}

		target, err := safeTarget(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode&0o777))
			if err != nil {
				return fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(outFile, tr); err != nil {
				outFile.Close()
				return fmt.Errorf("write file %s: %w", target, err)
			}
			outFile.Close()

		case tar.TypeSymlink, tar.TypeLink:
			return &UnsafeEntryError{Name: header.Name, Reason: "link entries are not allowed"}

		default:
			// Skip other types (char devices, block devices, fifos)
			continue
		}
	}

	return nil
}

func extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return &CorruptError{Path: archivePath, Err: err}
	}
	defer zr.Close()

	for _, file := range zr.File {
		target, err := safeTarget(destDir, file.Name)
		if err != nil {
			return err
		}

		if file.Mode()&os.ModeSymlink != 0 {
			return &UnsafeEntryError{Name: file.Name, Reason: "link entries are not allowed"}
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", target, err)
		}

		rc, err := file.Open()
		if err != nil {
			return &CorruptError{Path: archivePath, Err: err}
		}
		outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, file.Mode().Perm())
		if err != nil {
			rc.Close()
			return fmt.Errorf("create file %s: %w", target, err)
		}
		if _, err := io.Copy(outFile, rc); err != nil {
			outFile.Close()
			rc.Close()
			return fmt.Errorf("write file %s: %w", target, err)
		}
		outFile.Close()
		rc.Close()
	}

	return nil
}

// safeTarget resolves an entry name under destDir and rejects absolute
// names and traversal attempts. An entry resolving to destDir itself
// (the "./" member tar emits for the archive root) is allowed.
func safeTarget(destDir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", &UnsafeEntryError{Name: name, Reason: "absolute path"}
	}
	dest := filepath.Clean(destDir)
	target := filepath.Join(dest, name)
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", &UnsafeEntryError{Name: name, Reason: "path traversal"}
	}
	return target, nil
}
