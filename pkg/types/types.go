// Package types provides the core data model shared by the export pipeline
package types

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// VersionKeyLength is the fixed width of a normalized engine version ("5.3")
const VersionKeyLength = 3

// OperationKind classifies an executed deployment operation
type OperationKind string

const (
	OperationCopyFile    OperationKind = "copy-file"
	OperationCopyTree    OperationKind = "copy-tree"
	OperationMakeArchive OperationKind = "make-archive"
)

// ProjectDescriptor is a parsed project declaration. Use project.Load or
// NewProjectDescriptor to build one; the fields are not meant to change afterwards.
type ProjectDescriptor struct {
	Name                string `json:"name" yaml:"name"`
	EngineTag           string `json:"engineTag" yaml:"engineTag"`
	AssetDir            string `json:"assetDir" yaml:"assetDir"`
	CodeDir             string `json:"codeDir,omitempty" yaml:"codeDir,omitempty"`
	HasSecondaryRuntime bool   `json:"hasSecondaryRuntime" yaml:"hasSecondaryRuntime"`
	Root                string `json:"root" yaml:"root"`
}

// NewProjectDescriptor creates a validated project descriptor
func NewProjectDescriptor(root, name, engineTag, assetDir, codeDir string, secondaryRuntime bool) (*ProjectDescriptor, error) {
	p := &ProjectDescriptor{
		Name:                name,
		EngineTag:           engineTag,
		AssetDir:            filepath.Clean(assetDir),
		CodeDir:             codeDir,
		HasSecondaryRuntime: secondaryRuntime,
		Root:                root,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate reports the first missing required field
func (p *ProjectDescriptor) Validate() error {
	switch {
	case p.Root == "":
		return &MissingFieldError{Field: "root"}
	case p.Name == "":
		return &MissingFieldError{Field: "info.name"}
	case p.EngineTag == "":
		return &MissingFieldError{Field: "require.engine"}
	case p.AssetDir == "" || p.AssetDir == ".":
		return &MissingFieldError{Field: "content.assets"}
	}
	return nil
}

// AssetRoot returns the absolute path of the active asset directory
func (p *ProjectDescriptor) AssetRoot() string {
	return filepath.Join(p.Root, p.AssetDir)
}

// CodeRoot returns the absolute path of the source tree, empty when none is declared
func (p *ProjectDescriptor) CodeRoot() string {
	if p.CodeDir == "" {
		return ""
	}
	return filepath.Join(p.Root, p.CodeDir)
}

// BinaryDir returns the directory holding the project's compiled binaries
func (p *ProjectDescriptor) BinaryDir() string {
	return filepath.Join(p.Root, "bin", "win_x64")
}

// MissingFieldError reports a required descriptor field that was empty
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// EngineMetadata describes a resolved engine installation
type EngineMetadata struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Version string `json:"version" yaml:"version" toml:"version"`
	Path    string `json:"path" yaml:"path" toml:"path"`
	Tag     string `json:"tag" yaml:"tag" toml:"tag"`
}

// NewEngineMetadata normalizes version to its version key and validates the result
func NewEngineMetadata(name, version, path, tag string) (*EngineMetadata, error) {
	key, err := VersionKey(version)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("engine %s: empty install path", tag)
	}
	return &EngineMetadata{
		Name:    name,
		Version: key,
		Path:    filepath.Clean(path),
		Tag:     tag,
	}, nil
}

// VersionKey reduces a version string such as "5.3.1" to its 3-character key
func VersionKey(version string) (string, error) {
	version = strings.TrimSpace(version)
	if len(version) < VersionKeyLength {
		return "", fmt.Errorf("version %q is shorter than %d characters", version, VersionKeyLength)
	}
	return version[:VersionKeyLength], nil
}

// Operation is one executed copy or archive step
type Operation struct {
	Kind   OperationKind `json:"kind" yaml:"kind"`
	Source string        `json:"source" yaml:"source"`
	Dest   string        `json:"dest" yaml:"dest"`
}

// Manifest records operations as they execute. Safe for concurrent use.
type Manifest struct {
	mu  sync.Mutex
	ops []Operation
}

// Record appends an operation
func (m *Manifest) Record(kind OperationKind, source, dest string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, Operation{Kind: kind, Source: source, Dest: filepath.ToSlash(dest)})
}

// Operations returns a snapshot of the recorded operations
func (m *Manifest) Operations() []Operation {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Operation, len(m.ops))
	copy(out, m.ops)
	return out
}

// Count returns how many operations of the given kind were recorded
func (m *Manifest) Count(kind OperationKind) int {
	n := 0
	for _, op := range m.Operations() {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// ArchiveUnit is one top-level asset item that is either copied or archived
type ArchiveUnit struct {
	Name   string `json:"name" yaml:"name"`
	Source string `json:"source" yaml:"source"`
	IsFile bool   `json:"isFile" yaml:"isFile"`
}

// OutputName returns the file name the unit produces under the asset folder
func (u ArchiveUnit) OutputName(archiveExt string) string {
	if u.IsFile {
		return u.Name
	}
	return u.Name + archiveExt
}
