// Package assets packages a project's asset folder for shipping
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cryexport/cryexport/internal/workers"
	"github.com/cryexport/cryexport/pkg/archive"
	"github.com/cryexport/cryexport/pkg/logger"
	"github.com/cryexport/cryexport/pkg/types"
	"github.com/cryexport/cryexport/pkg/utils"
)

const (
	// LevelsDir holds level data, which ships as a reduced file set instead of an archive
	LevelsDir = "levels"
	// EditorArchiveSuffix marks tool-generated metadata archives that only the editor reads
	EditorArchiveSuffix = ".cryasset.pak"
)

// ErrDuplicateOutput is returned when two asset items would produce the same file
var ErrDuplicateOutput = errors.New("duplicate asset output")

// LevelFiles are the only files under levels the runtime needs
var LevelFiles = []string{"filelist.xml", "terraintexture.pak", "level.pak"}

// Packager converts top-level asset items into shipped units
type Packager struct {
	builder     archive.Builder
	logger      logger.Logger
	parallelism int
	manifest    *types.Manifest
}

// NewPackager creates a packager archiving directories with builder
func NewPackager(builder archive.Builder, log logger.Logger, parallelism int, manifest *types.Manifest) *Packager {
	if log == nil {
		log = logger.Discard()
	}
	return &Packager{
		builder:     builder,
		logger:      log,
		parallelism: parallelism,
		manifest:    manifest,
	}
}

// IsEditorArchive reports whether name is an editor-only metadata archive
func IsEditorArchive(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), EditorArchiveSuffix)
}

// Plan lists the units PackageAssets would produce for assetRoot, without
// touching the filesystem beyond reading the directory
func (p *Packager) Plan(assetRoot string) ([]types.ArchiveUnit, error) {
	entries, err := os.ReadDir(assetRoot)
	if err != nil {
		return nil, &utils.CopyError{Src: assetRoot, Dst: "", Err: err}
	}

	var units []types.ArchiveUnit
	outputs := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()

		// Levels are handled by CopyLevels
		if utils.HasPathSegment(name, LevelsDir) {
			p.logger.Debug("Skipping levels folder", logger.WithField("item", name))
			continue
		}
		if IsEditorArchive(name) {
			p.logger.Debug("Skipping editor archive", logger.WithField("item", name))
			continue
		}

		source := filepath.Join(assetRoot, name)
		info, err := os.Stat(source)
		if err != nil {
			return nil, &utils.CopyError{Src: source, Err: err}
		}

		unit := types.ArchiveUnit{
			Name:   name,
			Source: source,
			IsFile: !info.IsDir(),
		}

		// Units run in parallel; a shared output path would race
		out := strings.ToLower(unit.OutputName(archive.Extension))
		if prev, ok := outputs[out]; ok {
			return nil, fmt.Errorf("%w: %s and %s both produce %s",
				ErrDuplicateOutput, prev, name, unit.OutputName(archive.Extension))
		}
		outputs[out] = name
		units = append(units, unit)
	}

	return units, nil
}

// PackageAssets copies loose files and archives directories from assetRoot
// into destAssetRoot. Units are processed concurrently; the first failure
// aborts the rest.
func (p *Packager) PackageAssets(ctx context.Context, assetRoot, destAssetRoot string) ([]types.ArchiveUnit, error) {
	units, err := p.Plan(assetRoot)
	if err != nil {
		return nil, err
	}

	if err := utils.EnsureDirectory(destAssetRoot); err != nil {
		return nil, &utils.CopyError{Src: assetRoot, Dst: destAssetRoot, Err: err}
	}

	group, gctx := workers.NewSafeGroup(ctx, p.logger, p.parallelism)
	for _, unit := range units {
		unit := unit
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return p.packageUnit(gctx, unit, destAssetRoot)
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return units, nil
}

func (p *Packager) packageUnit(ctx context.Context, unit types.ArchiveUnit, destAssetRoot string) error {
	if unit.IsFile {
		dest := filepath.Join(destAssetRoot, unit.Name)
		if err := utils.CopyFile(unit.Source, dest); err != nil {
			return err
		}
		p.manifest.Record(types.OperationCopyFile, unit.Source, dest)
		p.logger.Debug("Copied asset", logger.WithField("file", unit.Name))
		return nil
	}

	dest := archive.PathFor(destAssetRoot, unit.Name)
	if err := p.builder.ArchiveDirectory(ctx, unit.Source, dest); err != nil {
		return fmt.Errorf("packaging %s: %w", unit.Name, err)
	}
	p.manifest.Record(types.OperationMakeArchive, unit.Source, dest)
	p.logger.Info(fmt.Sprintf("Created %s", filepath.Base(dest)), logger.WithField("backend", p.builder.Name()))
	return nil
}

// CopyLevels copies the runtime subset of every level under assetRoot/levels
// into destAssetRoot, preserving the directory structure. A project without a
// levels folder copies nothing.
func (p *Packager) CopyLevels(ctx context.Context, assetRoot, destAssetRoot string) (int, error) {
	levelsName, ok := utils.FindChildFold(assetRoot, LevelsDir)
	if !ok {
		p.logger.Debug("No levels folder", logger.WithField("assets", assetRoot))
		return 0, nil
	}

	var files []string
	levelsRoot := filepath.Join(assetRoot, levelsName)
	err := filepath.WalkDir(levelsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isLevelFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(assetRoot, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return 0, &utils.CopyError{Src: levelsRoot, Dst: destAssetRoot, Err: err}
	}

	group, gctx := workers.NewSafeGroup(ctx, p.logger, p.parallelism)
	for _, rel := range files {
		rel := rel
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src := filepath.Join(assetRoot, rel)
			dst := filepath.Join(destAssetRoot, rel)
			if err := utils.CopyFile(src, dst); err != nil {
				return err
			}
			p.manifest.Record(types.OperationCopyFile, src, dst)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}

	p.logger.Debug("Copied level files", logger.WithField("files", len(files)))
	return len(files), nil
}

func isLevelFile(name string) bool {
	for _, f := range LevelFiles {
		if name == f {
			return true
		}
	}
	return false
}
