// Package archive extracts downloaded release archives.
//
// Supported formats: .tar.gz/.tgz, .tar.xz, .tar.zst, .tar, and .zip.
// Extraction rejects entries that would escape the destination directory
// and link entries (symlinks, hardlinks), since a release archive for a
// single binary has no business containing either.
package archive

import (
	"fmt"
	"strings"
)

// UnsupportedError indicates the file is not a recognized archive format.
type UnsupportedError struct {
	Path string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported archive format: %s\nHint: only .tar.gz, .tgz, .tar.xz, .tar.zst, .tar and .zip archives are supported", e.Path)
}

// CorruptError indicates the archive could not be read.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt archive %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// UnsafeEntryError indicates an archive entry that would escape the
// destination directory or create a link.
type UnsafeEntryError struct {
	Name   string
	Reason string
}

func (e *UnsafeEntryError) Error() string {
	return fmt.Sprintf("unsafe entry in archive: %s (%s)", e.Name, e.Reason)
}

// format identifies an archive container and its compression.
type format int

const (
	formatUnknown format = iota
	formatTar
	formatTarGz
	formatTarXz
	formatTarZst
	formatZip
)

// detectFormat classifies an archive by filename.
func detectFormat(path string) format {
	name := strings.ToLower(path)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return formatTarGz
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return formatTarXz
	case strings.HasSuffix(name, ".tar.zst"):
		return formatTarZst
	case strings.HasSuffix(name, ".tar"):
		return formatTar
	case strings.HasSuffix(name, ".zip"):
		return formatZip
	default:
		return formatUnknown
	}
}
