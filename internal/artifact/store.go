// Package artifact provides atomic read/write of JSON artifact documents in
// per-session directories. Writers never leave a truncated file behind: the
// full content goes to a temp file in the same directory first, followed by
// a single rename.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"playbookd/internal/model"
)

const schemaVersion = "1.0"

// Metadata describes when and how an artifact was written.
type Metadata struct {
	CreatedAt     string `json:"created_at"`
	Filename      string `json:"filename"`
	SchemaVersion string `json:"schema_version"`
}

// envelope is the on-disk format: payload nested under "data" alongside
// metadata. Readers also accept legacy files with the payload at top level.
type envelope struct {
	Metadata Metadata      `json:"metadata"`
	Data     model.Payload `json:"data"`
}

// EncodeError reports a payload that could not be serialized to JSON.
type EncodeError struct {
	Name string
	Err  error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("encode %s: %v", e.Name, e.Err) }
func (e *EncodeError) Unwrap() error { return e.Err }

// WriteError reports an I/O failure while writing an artifact. Permission
// failures are distinguishable via errors.Is(err, fs.ErrPermission).
type WriteError struct {
	Name string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Name, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// ParseError reports a file that exists but does not contain valid JSON.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Name, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Write atomically writes payload as the named artifact in dir, wrapped in
// the metadata envelope. If any step fails the previously existing file, if
// any, is left untouched.
func Write(dir, name string, payload model.Payload) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Name: name, Err: err}
	}

	enc, err := json.MarshalIndent(envelope{
		Metadata: Metadata{
			CreatedAt:     time.Now().UTC().Format(time.RFC3339),
			Filename:      name,
			SchemaVersion: schemaVersion,
		},
		Data: payload,
	}, "", "  ")
	if err != nil {
		return &EncodeError{Name: name, Err: err}
	}

	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return &WriteError{Name: name, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(enc); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &WriteError{Name: name, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &WriteError{Name: name, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Name: name, Err: err}
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Name: name, Err: err}
	}
	return nil
}

// Read returns the named artifact's payload, unwrapping the metadata
// envelope when present. A missing file is not an error: Read returns
// (nil, nil). A file that exists but is not valid JSON yields a *ParseError.
func Read(dir, name string) (model.Payload, error) {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	var doc model.Payload
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}

	// Wrapped format: payload nested under "data". Legacy files carry the
	// payload at top level.
	if data, ok := doc["data"].(map[string]any); ok {
		return data, nil
	}
	return doc, nil
}

// Exists reports whether the named artifact file is present.
func Exists(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.Mode().IsRegular()
}

// Info holds file-level metadata for one artifact.
type Info struct {
	Filename   string `json:"filename"`
	Path       string `json:"path"`
	SizeBytes  int64  `json:"size_bytes"`
	ModifiedAt string `json:"modified_at"`
}

// Inventory describes every artifact in a session directory.
type Inventory struct {
	Exists        bool   `json:"exists"`
	Directory     string `json:"directory"`
	ArtifactCount int    `json:"artifact_count"`
	Artifacts     []Info `json:"artifacts"`
	HasPlaybook   bool   `json:"has_playbook"`
}

// List scans dir and returns an inventory of its JSON artifacts, plus
// whether the rendered playbook is present.
func List(dir string) Inventory {
	inv := Inventory{Directory: dir, Artifacts: []Info{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return inv
	}
	inv.Exists = true

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		inv.Artifacts = append(inv.Artifacts, Info{
			Filename:   entry.Name(),
			Path:       filepath.Join(dir, entry.Name()),
			SizeBytes:  fi.Size(),
			ModifiedAt: fi.ModTime().UTC().Format(time.RFC3339),
		})
	}
	inv.ArtifactCount = len(inv.Artifacts)
	inv.HasPlaybook = Exists(dir, model.PlaybookFile)
	return inv
}

// CleanupTemp removes temp files left behind by crashed writers and returns
// how many were removed.
func CleanupTemp(dir string) int {
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		return 0
	}
	removed := 0
	for _, m := range matches {
		if os.Remove(m) == nil {
			removed++
		}
	}
	return removed
}
