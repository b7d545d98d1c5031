package archive

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
)

// SevenZipBuilder shells out to a 7-Zip executable
type SevenZipBuilder struct {
	executable string
}

// NewSevenZipBuilder creates a builder invoking the given 7z executable
func NewSevenZipBuilder(executable string) *SevenZipBuilder {
	return &SevenZipBuilder{executable: executable}
}

// Name implements Builder
func (b *SevenZipBuilder) Name() string {
	return string(BackendSevenZip)
}

// Args returns the 7z arguments used to archive sourceDir into destArchivePath:
// zip format, recursive, stored without compression.
func (b *SevenZipBuilder) Args(sourceDir, destArchivePath string) []string {
	return []string{"a", "-r", "-tzip", "-mx0", destArchivePath, filepath.Clean(sourceDir)}
}

// ArchiveDirectory implements Builder
func (b *SevenZipBuilder) ArchiveDirectory(ctx context.Context, sourceDir, destArchivePath string) error {
	fail := func(output string, err error) error {
		return &Error{Backend: b.Name(), Source: sourceDir, Dest: destArchivePath, Output: output, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(destArchivePath), 0755); err != nil {
		return fail("", err)
	}
	// 7z updates an existing archive in place; always start fresh
	if err := os.Remove(destArchivePath); err != nil && !os.IsNotExist(err) {
		return fail("", err)
	}

	cmd := exec.CommandContext(ctx, b.executable, b.Args(sourceDir, destArchivePath)...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return fail(output.String(), err)
	}
	return nil
}
