// Package copier mirrors filtered directory subtrees into the export directory
package copier

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync/atomic"

	"github.com/cryexport/cryexport/internal/workers"
	"github.com/cryexport/cryexport/pkg/logger"
	"github.com/cryexport/cryexport/pkg/types"
	"github.com/cryexport/cryexport/pkg/utils"
)

// TreeCopier copies directory subtrees file by file, honoring a filter
type TreeCopier struct {
	logger      logger.Logger
	parallelism int
	manifest    *types.Manifest
}

// New creates a TreeCopier. parallelism <= 0 uses one worker per CPU; manifest may be nil.
func New(log logger.Logger, parallelism int, manifest *types.Manifest) *TreeCopier {
	if log == nil {
		log = logger.Discard()
	}
	return &TreeCopier{
		logger:      log,
		parallelism: parallelism,
		manifest:    manifest,
	}
}

// CopyTree walks sourceRoot/relDir and copies every file whose path relative to
// sourceRoot is not excluded by filter to the same relative path under destRoot.
// The first I/O error aborts the copy and is returned as *utils.CopyError.
func (c *TreeCopier) CopyTree(ctx context.Context, sourceRoot, destRoot, relDir string, filter utils.Filter) (int, error) {
	files, skipped, err := c.collect(sourceRoot, relDir, filter)
	if err != nil {
		return 0, err
	}

	var copied int64
	group, gctx := workers.NewSafeGroup(ctx, c.logger, c.parallelism)
	for _, rel := range files {
		rel := rel
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := utils.CopyFile(filepath.Join(sourceRoot, rel), filepath.Join(destRoot, rel)); err != nil {
				return err
			}
			atomic.AddInt64(&copied, 1)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return int(copied), err
	}

	c.manifest.Record(types.OperationCopyTree, filepath.Join(sourceRoot, relDir), relDir)
	c.logger.Debug("Copied tree",
		logger.WithField("dir", filepath.ToSlash(relDir)),
		logger.WithField("files", copied),
		logger.WithField("skipped", skipped))

	return int(copied), nil
}

// collect lists the files to copy, relative to sourceRoot
func (c *TreeCopier) collect(sourceRoot, relDir string, filter utils.Filter) ([]string, int, error) {
	var files []string
	skipped := 0
	start := filepath.Join(sourceRoot, relDir)

	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return err
		}

		if filter != nil && filter.IsExcluded(rel) {
			c.logger.Debug("Excluded", logger.WithField("path", filepath.ToSlash(rel)))
			skipped++
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, 0, &utils.CopyError{Src: start, Dst: relDir, Err: err}
	}

	return files, skipped, nil
}
