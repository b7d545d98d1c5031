package types_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/cryexport/cryexport/pkg/types"
)

func TestVersionKey(t *testing.T) {
	tests := []struct {
		version string
		want    string
		wantErr bool
	}{
		{"5.3", "5.3", false},
		{"5.3.1", "5.3", false},
		{" 5.2.0 ", "5.2", false},
		{"5", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := types.VersionKey(tt.version)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VersionKey(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("VersionKey(%q) = %q, want %q", tt.version, got, tt.want)
			}
		})
	}
}

func TestNewEngineMetadata(t *testing.T) {
	meta, err := types.NewEngineMetadata("CRYENGINE", "5.3.1", "/opt/cryengine/", "engine-5.3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Version != "5.3" {
		t.Errorf("expected version 5.3, got %s", meta.Version)
	}
	if meta.Path != "/opt/cryengine" {
		t.Errorf("expected cleaned path, got %s", meta.Path)
	}

	if _, err := types.NewEngineMetadata("x", "5.3", "", "engine-5.3"); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestNewProjectDescriptor_MissingFields(t *testing.T) {
	tests := []struct {
		name      string
		pname     string
		tag       string
		assets    string
		wantField string
	}{
		{"missing name", "", "engine-5.3", "Assets", "info.name"},
		{"missing engine", "Game", "", "Assets", "require.engine"},
		{"missing assets", "Game", "engine-5.3", "", "content.assets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := types.NewProjectDescriptor("/proj", tt.pname, tt.tag, tt.assets, "Code", false)
			var missing *types.MissingFieldError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingFieldError, got %v", err)
			}
			if missing.Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, missing.Field)
			}
		})
	}
}

func TestProjectDescriptor_Paths(t *testing.T) {
	p, err := types.NewProjectDescriptor("/proj", "Game", "engine-5.3", "Assets/", "Code", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.AssetDir != "Assets" {
		t.Errorf("expected cleaned asset dir, got %q", p.AssetDir)
	}
	if p.AssetRoot() != "/proj/Assets" {
		t.Errorf("unexpected asset root %s", p.AssetRoot())
	}
	if p.BinaryDir() != "/proj/bin/win_x64" {
		t.Errorf("unexpected binary dir %s", p.BinaryDir())
	}
	if p.CodeRoot() != "/proj/Code" {
		t.Errorf("unexpected code root %s", p.CodeRoot())
	}

	noCode, err := types.NewProjectDescriptor("/proj", "Game", "engine-5.3", "Assets", "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if noCode.CodeRoot() != "" {
		t.Errorf("expected empty code root, got %q", noCode.CodeRoot())
	}
}

func TestManifest_ConcurrentRecord(t *testing.T) {
	var m types.Manifest
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(types.OperationCopyFile, "a", "b")
		}()
	}
	wg.Wait()

	if got := m.Count(types.OperationCopyFile); got != 50 {
		t.Errorf("expected 50 operations, got %d", got)
	}
	if got := m.Count(types.OperationMakeArchive); got != 0 {
		t.Errorf("expected 0 archive operations, got %d", got)
	}
}

func TestArchiveUnit_OutputName(t *testing.T) {
	file := types.ArchiveUnit{Name: "readme.txt", IsFile: true}
	dir := types.ArchiveUnit{Name: "textures"}

	if file.OutputName(".pak") != "readme.txt" {
		t.Errorf("file unit should keep its name, got %s", file.OutputName(".pak"))
	}
	if dir.OutputName(".pak") != "textures.pak" {
		t.Errorf("directory unit should become an archive, got %s", dir.OutputName(".pak"))
	}
}
