// Package install implements the per-package install pipeline: asset
// selection, binary location, checksums, signature verification, and the
// atomic download-extract-copy-verify-chmod-rename sequence.
//
// Every error here is package-scoped. A failed install never aborts the
// overall sync run and never touches the package's persisted record.
package install

import (
	"fmt"
	"strings"
)

// NoAssetMatchError indicates no release asset matched the pattern or the
// platform heuristic. Assets carries every asset filename so the user can
// write a pattern.
type NoAssetMatchError struct {
	Pattern string // empty when the platform heuristic was used
	Tag     string
	Assets  []string
}

func (e *NoAssetMatchError) Error() string {
	var b strings.Builder
	if e.Pattern != "" {
		fmt.Fprintf(&b, "no assets match pattern %q for release %s", e.Pattern, e.Tag)
		b.WriteString("\nHint: make the pattern less specific, or check the release assets")
	} else {
		fmt.Fprintf(&b, "no assets match this platform for release %s", e.Tag)
		b.WriteString("\nHint: set an explicit asset pattern in the package file")
	}
	if len(e.Assets) > 0 {
		b.WriteString("\nRelease assets:")
		for _, name := range e.Assets {
			b.WriteString("\n  - " + name)
		}
	}
	return b.String()
}

// AmbiguousAssetError indicates more than one asset matched. Never
// auto-resolved: picking one silently risks installing the wrong build.
type AmbiguousAssetError struct {
	Pattern string // empty when the platform heuristic was used
	Tag     string
	Matches []string
}

func (e *AmbiguousAssetError) Error() string {
	var b strings.Builder
	if e.Pattern != "" {
		fmt.Fprintf(&b, "multiple assets match pattern %q for release %s: %s", e.Pattern, e.Tag, strings.Join(e.Matches, ", "))
		b.WriteString("\nHint: make the pattern more specific")
	} else {
		fmt.Fprintf(&b, "multiple assets match this platform for release %s: %s", e.Tag, strings.Join(e.Matches, ", "))
		b.WriteString("\nHint: set an explicit asset pattern in the package file")
	}
	return b.String()
}

// BinaryNotFoundError indicates the binary spec matched nothing in the
// extracted tree. Entries lists the tree so the user can correct the spec.
type BinaryNotFoundError struct {
	Spec    string
	Entries []string
}

func (e *BinaryNotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "binary %q not found in archive", e.Spec)
	if len(e.Entries) == 0 {
		b.WriteString("\nArchive contents: (empty)")
	} else {
		b.WriteString("\nArchive contents:")
		for _, entry := range e.Entries {
			b.WriteString("\n  - " + entry)
		}
	}
	return b.String()
}

// AmbiguousBinaryError indicates the binary spec matched several files.
// Never auto-picks the first.
type AmbiguousBinaryError struct {
	Spec       string
	Candidates []string
}

func (e *AmbiguousBinaryError) Error() string {
	return fmt.Sprintf("binary %q matched multiple files: %s\nHint: use an explicit path for the binary in the package file",
		e.Spec, strings.Join(e.Candidates, ", "))
}

// CopyIntegrityError indicates the copied binary's checksum differs from
// the source's. This distinguishes disk or copy corruption from a
// deliberate upstream change.
type CopyIntegrityError struct {
	Source string
	Dest   string
}

func (e *CopyIntegrityError) Error() string {
	return fmt.Sprintf("checksum mismatch copying %s to %s", e.Source, e.Dest)
}

// SignatureError indicates GPG verification of the downloaded asset failed.
type SignatureError struct {
	Asset string
	Err   error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature verification failed for %s: %v", e.Asset, e.Err)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// HookError indicates a lifecycle hook failed. Phase is "post_install" or
// "verify".
type HookError struct {
	Phase string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook failed: %v", e.Phase, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }
