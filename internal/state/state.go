// Package state persists the set of installed binaries.
//
// The state document is a single JSON file replaced atomically on save and
// guarded by an exclusive, non-blocking lock for mutating commands. Reads
// (the list command) never lock: the atomic replace means a concurrent
// reader always sees either the old or the new document, never a partial
// one.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const stateFileName = "state.json"

// Record is the persisted state of one installed binary. A record is only
// ever written after a fully successful install, hooks included.
type Record struct {
	Version     string `json:"version"`
	Checksum    string `json:"checksum"`
	InstalledAt string `json:"installed_at"`
	BinaryPath  string `json:"binary_path"`
}

// Document is the full persisted state: package name -> record.
// Unknown JSON keys are ignored on load, never rejected, so the format can
// grow additively.
type Document struct {
	Packages map[string]Record `json:"packages"`
}

// NewDocument returns an empty state document.
func NewDocument() *Document {
	return &Document{Packages: make(map[string]Record)}
}

// CorruptError indicates the state file exists but cannot be used.
// There is no auto-repair: the user inspects and fixes or deletes the file.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("state file %s is corrupt: %v\nHint: check the file for errors, or delete it to reset state", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Path returns the state file path inside stateDir.
func Path(stateDir string) string {
	return filepath.Join(stateDir, stateFileName)
}

// Load reads the state document from stateDir. A missing file yields an
// empty document; an unreadable or invalid file is a CorruptError.
func Load(stateDir string) (*Document, error) {
	path := Path(stateDir)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	if doc.Packages == nil {
		doc.Packages = make(map[string]Record)
	}

	for name, record := range doc.Packages {
		if err := validateRecord(name, record); err != nil {
			return nil, &CorruptError{Path: path, Err: err}
		}
	}

	return &doc, nil
}

// Save writes the state document atomically: marshal to a sibling temp
// file, then rename over the final path.
func Save(stateDir string, doc *Document) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	path := Path(stateDir)
	tmp, err := os.CreateTemp(stateDir, stateFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

func validateRecord(name string, record Record) error {
	switch {
	case record.Version == "":
		return fmt.Errorf("package %q: missing version", name)
	case record.Checksum == "":
		return fmt.Errorf("package %q: missing checksum", name)
	case record.InstalledAt == "":
		return fmt.Errorf("package %q: missing installed_at", name)
	case record.BinaryPath == "":
		return fmt.Errorf("package %q: missing binary_path", name)
	}
	return nil
}
