// Package quirks applies per-engine-version fixups to a finished deployment
package quirks

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cryexport/cryexport/pkg/logger"
	"github.com/cryexport/cryexport/pkg/utils"
)

const (
	// DefaultPluginManifest is the project file 5.2/5.3 runtimes expect next to system.cfg
	DefaultPluginManifest = "cryplugin.csv"
	// LegacyEntryBinary is the game library name the 5.0 runtime loads
	LegacyEntryBinary = "CryGameSDK.dll"
)

// Target is the deployment a quirk operates on
type Target struct {
	ProjectRoot    string
	DestRoot       string
	EntryBinary    string
	PluginManifest string
}

// Quirk is one version-specific fixup. It may change t.EntryBinary.
type Quirk interface {
	Name() string
	Apply(ctx context.Context, t *Target) error
}

// Table maps a version key to its quirks
type Table map[string][]Quirk

// DefaultTable returns the known engine quirks
func DefaultTable() Table {
	return Table{
		"5.0": {RenameEntryBinary{NewName: LegacyEntryBinary}},
		"5.2": {CopyProjectFile{}},
		"5.3": {CopyProjectFile{}},
	}
}

// CopyProjectFile copies the plugin manifest from the project root into the
// deployment root. A missing file is not an error.
type CopyProjectFile struct{}

// Name implements Quirk
func (CopyProjectFile) Name() string { return "copy-plugin-manifest" }

// Apply implements Quirk
func (CopyProjectFile) Apply(_ context.Context, t *Target) error {
	name := t.PluginManifest
	if name == "" {
		name = DefaultPluginManifest
	}

	src := filepath.Join(t.ProjectRoot, name)
	if !utils.FileExists(src) {
		return nil
	}
	return utils.CopyFile(src, filepath.Join(t.DestRoot, name))
}

// RenameEntryBinary renames the deployed entry binary to NewName
type RenameEntryBinary struct {
	NewName string
}

// Name implements Quirk
func (RenameEntryBinary) Name() string { return "rename-entry-binary" }

// Apply implements Quirk
func (q RenameEntryBinary) Apply(_ context.Context, t *Target) error {
	if t.EntryBinary == q.NewName {
		return nil
	}

	binDir := filepath.Join(t.DestRoot, filepath.FromSlash(utils.EngineBinaryDir))
	src := filepath.Join(binDir, t.EntryBinary)
	if err := utils.MoveFile(src, filepath.Join(binDir, q.NewName)); err != nil {
		return fmt.Errorf("rename %s: %w", t.EntryBinary, err)
	}
	t.EntryBinary = q.NewName
	return nil
}

// Applier runs the quirks registered for an engine version
type Applier struct {
	table  Table
	logger logger.Logger
}

// NewApplier creates an applier over table; nil uses DefaultTable
func NewApplier(table Table, log logger.Logger) *Applier {
	if table == nil {
		table = DefaultTable()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Applier{table: table, logger: log}
}

// For lists the quirks registered for version
func (a *Applier) For(version string) []Quirk {
	return a.table[version]
}

// Apply runs every quirk for version in order and returns the entry binary name
// afterwards
func (a *Applier) Apply(ctx context.Context, version string, target Target) (string, error) {
	for _, q := range a.table[version] {
		if err := ctx.Err(); err != nil {
			return target.EntryBinary, err
		}
		if err := q.Apply(ctx, &target); err != nil {
			return target.EntryBinary, fmt.Errorf("quirk %s for %s: %w", q.Name(), version, err)
		}
		a.logger.Debug("Applied quirk",
			logger.WithField("quirk", q.Name()),
			logger.WithField("version", version))
	}
	return target.EntryBinary, nil
}
