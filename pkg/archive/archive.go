// Package archive turns asset directories into .pak containers
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/cryexport/cryexport/pkg/logger"
)

// Extension is the container extension the engine mounts
const Extension = ".pak"

// ErrArchiveFailed marks a failed archive step
var ErrArchiveFailed = errors.New("archive failed")

// Error describes a failed archive of Source into Dest
type Error struct {
	Backend string
	Source  string
	Dest    string
	Output  string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: archive %s -> %s: %v", e.Backend, e.Source, e.Dest, e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrArchiveFailed) match every archive Error
func (e *Error) Is(target error) bool {
	return target == ErrArchiveFailed
}

//go:generate mockgen -destination=../mocks/mock_archive.go -package=mocks github.com/cryexport/cryexport/pkg/archive Builder

// Builder produces one container holding a directory's full recursive contents,
// rooted at the directory's own name
type Builder interface {
	Name() string
	ArchiveDirectory(ctx context.Context, sourceDir, destArchivePath string) error
}

// Backend names an archive implementation
type Backend string

const (
	BackendAuto     Backend = "auto"
	BackendBuiltin  Backend = "builtin"
	BackendSevenZip Backend = "7z"
)

// SelectOptions controls backend selection
type SelectOptions struct {
	Backend      Backend
	SevenZipPath string
	// SearchDirs are searched for a 7z executable after PATH
	SearchDirs []string
	// LookPath defaults to exec.LookPath
	LookPath func(file string) (string, error)
}

// DefaultSevenZipDirs returns the install locations checked for 7-Zip
func DefaultSevenZipDirs() []string {
	if runtime.GOOS != "windows" {
		return nil
	}
	dirs := []string{`C:\Program Files\7-Zip`}
	if pf := os.Getenv("ProgramFiles"); pf != "" {
		dirs = append([]string{filepath.Join(pf, "7-Zip")}, dirs...)
	}
	return dirs
}

// Select resolves the archive backend once. Callers only ever see a Builder.
func Select(opts SelectOptions, log logger.Logger) (Builder, error) {
	if log == nil {
		log = logger.Discard()
	}
	if opts.Backend == "" {
		opts.Backend = BackendAuto
	}

	switch opts.Backend {
	case BackendBuiltin:
		return NewZipBuilder(), nil
	case BackendSevenZip:
		path, ok := findSevenZip(opts)
		if !ok {
			return nil, fmt.Errorf("7z backend requested but no 7z executable was found")
		}
		return NewSevenZipBuilder(path), nil
	case BackendAuto:
		if path, ok := findSevenZip(opts); ok {
			log.Debug("Using 7-Zip for archives", logger.WithField("path", path))
			return NewSevenZipBuilder(path), nil
		}
		log.Debug("7-Zip not found, using built-in archive writer")
		return NewZipBuilder(), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", opts.Backend)
	}
}

func findSevenZip(opts SelectOptions) (string, bool) {
	if opts.SevenZipPath != "" {
		if info, err := os.Stat(opts.SevenZipPath); err == nil && !info.IsDir() {
			return opts.SevenZipPath, true
		}
		return "", false
	}

	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, name := range []string{"7z", "7za"} {
		if path, err := lookPath(name); err == nil {
			return path, true
		}
	}

	for _, dir := range opts.SearchDirs {
		for _, name := range []string{"7z.exe", "7z"} {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, true
			}
		}
	}

	return "", false
}

// PathFor returns the archive path for a unit named name under destDir
func PathFor(destDir, name string) string {
	return filepath.Join(destDir, name+Extension)
}
