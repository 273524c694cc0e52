package install

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocateBinary finds the binary named by spec inside an extracted archive
// tree.
//
// A spec containing a path separator is an exact relative path under root.
// A bare filename is searched in two passes: immediate children of root
// first, then all descendants. Root-level matches take priority — if any
// exist, subdirectory matches are not considered. Multiple candidates in
// the winning pass are an error, never resolved by picking the first.
func LocateBinary(root, spec string) (string, error) {
	if strings.Contains(spec, "/") {
		candidate := filepath.Join(root, filepath.FromSlash(spec))
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
		entries, listErr := listTree(root)
		if listErr != nil {
			entries = nil
		}
		return "", &BinaryNotFoundError{Spec: spec, Entries: entries}
	}

	rootMatches, err := matchChildren(root, spec)
	if err != nil {
		return "", err
	}
	switch len(rootMatches) {
	case 1:
		return rootMatches[0], nil
	default:
		if len(rootMatches) > 1 {
			return "", &AmbiguousBinaryError{Spec: spec, Candidates: relPaths(root, rootMatches)}
		}
	}

	deepMatches, err := matchTree(root, spec)
	if err != nil {
		return "", err
	}
	switch len(deepMatches) {
	case 0:
		entries, listErr := listTree(root)
		if listErr != nil {
			entries = nil
		}
		return "", &BinaryNotFoundError{Spec: spec, Entries: entries}
	case 1:
		return deepMatches[0], nil
	default:
		return "", &AmbiguousBinaryError{Spec: spec, Candidates: relPaths(root, deepMatches)}
	}
}

// matchChildren returns regular files directly under root whose name
// equals spec.
func matchChildren(root, spec string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read extracted dir: %w", err)
	}

	var matches []string
	for _, entry := range entries {
		if entry.Name() != spec {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		matches = append(matches, filepath.Join(root, entry.Name()))
	}
	return matches, nil
}

// matchTree returns regular files anywhere under root whose name equals
// spec.
func matchTree(root, spec string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != spec {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		matches = append(matches, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk extracted dir: %w", err)
	}
	return matches, nil
}

// listTree returns every file path under root relative to it, for error
// hints.
func listTree(root string) ([]string, error) {
	var entries []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			rel += "/"
		}
		entries = append(entries, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func relPaths(root string, paths []string) []string {
	rels := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		rels[i] = filepath.ToSlash(rel)
	}
	return rels
}
