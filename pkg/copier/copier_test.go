package copier_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cryexport/cryexport/pkg/copier"
	"github.com/cryexport/cryexport/pkg/logger"
	"github.com/cryexport/cryexport/pkg/types"
	"github.com/cryexport/cryexport/pkg/utils"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCopyTree_AppliesEngineBinaryFilter(t *testing.T) {
	engine := t.TempDir()
	dest := t.TempDir()

	kept := []string{
		"bin/win_x64/CrySystem.dll",
		"bin/win_x64/GameLauncher.exe",
		"bin/win_x64/plugins/CryDefaultEntities.dll",
	}
	excluded := []string{
		"bin/win_x64/Sandbox.exe",
		"bin/win_x64/EditorCommon.dll",
		"bin/win_x64/Editor/Plugins/EditorAudio.dll",
		"bin/win_x64/imageformats/qjpeg.dll",
		"bin/win_x64/Qt5Core.dll",
		"bin/win_x64/CryEngine.Core.dll",
		"bin/win_x64/crashrpt1403.dll",
	}
	for _, p := range append(append([]string{}, kept...), excluded...) {
		writeFile(t, filepath.Join(engine, p), p)
	}
	writeFile(t, filepath.Join(engine, "bin/win32/CrySystem.dll"), "x86")

	var manifest types.Manifest
	tc := copier.New(logger.Discard(), 4, &manifest)
	n, err := tc.CopyTree(context.Background(), engine, dest, filepath.FromSlash("bin/win_x64"), utils.NewEngineBinaryFilter())
	if err != nil {
		t.Fatalf("CopyTree failed: %v", err)
	}
	if n != len(kept) {
		t.Errorf("expected %d files copied, got %d", len(kept), n)
	}

	for _, p := range kept {
		data, err := os.ReadFile(filepath.Join(dest, p))
		if err != nil {
			t.Errorf("expected %s in destination: %v", p, err)
			continue
		}
		if string(data) != p {
			t.Errorf("unexpected content in %s", p)
		}
	}
	for _, p := range excluded {
		if _, err := os.Stat(filepath.Join(dest, p)); !os.IsNotExist(err) {
			t.Errorf("excluded file %s reached the destination", p)
		}
	}
	if _, err := os.Stat(filepath.Join(dest, "bin/win32")); !os.IsNotExist(err) {
		t.Error("only the requested subtree should be copied")
	}
	if manifest.Count(types.OperationCopyTree) != 1 {
		t.Errorf("expected one copy-tree operation, got %d", manifest.Count(types.OperationCopyTree))
	}
}

func TestCopyTree_ExistingDestinationDirectories(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFile(t, filepath.Join(src, "data/a/one.txt"), "1")
	writeFile(t, filepath.Join(src, "data/a/two.txt"), "2")
	if err := os.MkdirAll(filepath.Join(dest, "data/a"), 0755); err != nil {
		t.Fatal(err)
	}

	tc := copier.New(nil, 0, nil)
	n, err := tc.CopyTree(context.Background(), src, dest, "data", nil)
	if err != nil {
		t.Fatalf("CopyTree failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 files, got %d", n)
	}
}

func TestCopyTree_MissingSourceIsCopyFailure(t *testing.T) {
	tc := copier.New(logger.Discard(), 1, nil)
	_, err := tc.CopyTree(context.Background(), t.TempDir(), t.TempDir(), "bin/common", nil)
	if !errors.Is(err, utils.ErrCopyFailed) {
		t.Fatalf("expected ErrCopyFailed, got %v", err)
	}
}

func TestCopyTree_CancelledContext(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "data/file.txt"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tc := copier.New(logger.Discard(), 1, nil)
	if _, err := tc.CopyTree(ctx, src, t.TempDir(), "data", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
