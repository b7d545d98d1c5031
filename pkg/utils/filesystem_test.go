package utils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cryexport/cryexport/pkg/utils"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	if err := os.WriteFile(src, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "nested", "deeper", "dst.txt")
	if err := utils.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("failed to read copy: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected hello, got %q", data)
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := utils.CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
	if !errors.Is(err, utils.ErrCopyFailed) {
		t.Fatalf("expected ErrCopyFailed, got %v", err)
	}

	var copyErr *utils.CopyError
	if !errors.As(err, &copyErr) {
		t.Fatalf("expected *CopyError, got %T", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("expected the underlying not-exist error to be preserved")
	}
}

func TestRecreateDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "export")
	if err := os.MkdirAll(filepath.Join(dir, "stale"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := utils.RecreateDirectory(dir); err != nil {
		t.Fatalf("RecreateDirectory failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty directory, found %d entries", len(entries))
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.dll", "a.dll"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	names, err := utils.ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(names) != 2 || names[0] != "a.dll" || names[1] != "b.dll" {
		t.Errorf("unexpected listing %v", names)
	}
}

func TestFindChildFold(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "Levels"), 0755); err != nil {
		t.Fatal(err)
	}

	name, ok := utils.FindChildFold(dir, "levels")
	if !ok {
		t.Fatal("expected to find Levels")
	}
	if name != "Levels" && name != "levels" {
		t.Errorf("unexpected name %q", name)
	}

	if _, ok := utils.FindChildFold(dir, "textures"); ok {
		t.Error("did not expect to find textures")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}

	for _, tt := range tests {
		if got := utils.FormatBytes(tt.bytes); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestGetDirectorySize(t *testing.T) {
	dir := t.TempDir()
	for name, size := range map[string]int{"a.bin": 100, "nested/b.bin": 24} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
	}

	size, err := utils.GetDirectorySize(dir)
	if err != nil {
		t.Fatalf("GetDirectorySize failed: %v", err)
	}
	if size != 124 {
		t.Errorf("size = %d, want 124", size)
	}

	if _, err := utils.GetDirectorySize(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}
