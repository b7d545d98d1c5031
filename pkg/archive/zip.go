package archive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// ZipBuilder writes zip-format containers in-process
type ZipBuilder struct {
	method uint16
}

// NewZipBuilder creates a built-in archive writer using deflate
func NewZipBuilder() *ZipBuilder {
	return &ZipBuilder{method: zip.Deflate}
}

// Name implements Builder
func (b *ZipBuilder) Name() string {
	return string(BackendBuiltin)
}

// ArchiveDirectory implements Builder. The archive is written next to
// destArchivePath and renamed into place once complete.
func (b *ZipBuilder) ArchiveDirectory(ctx context.Context, sourceDir, destArchivePath string) error {
	if err := b.write(ctx, sourceDir, destArchivePath); err != nil {
		return &Error{Backend: b.Name(), Source: sourceDir, Dest: destArchivePath, Err: err}
	}
	return nil
}

func (b *ZipBuilder) write(ctx context.Context, sourceDir, destArchivePath string) error {
	if err := os.MkdirAll(filepath.Dir(destArchivePath), 0755); err != nil {
		return err
	}

	tempPath := destArchivePath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	defer os.Remove(tempPath)

	zw := zip.NewWriter(out)
	parent := filepath.Dir(filepath.Clean(sourceDir))

	walkErr := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}

		if d.IsDir() {
			header.Name = name + "/"
			_, err := zw.CreateHeader(header)
			return err
		}

		header.Name = name
		header.Method = b.method
		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		return copyInto(w, path)
	})

	if walkErr != nil {
		zw.Close()
		out.Close()
		return walkErr
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Rename(tempPath, destArchivePath)
}

func copyInto(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
