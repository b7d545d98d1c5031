package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/cryexport/cryexport/pkg/engine"
	"github.com/cryexport/cryexport/pkg/mocks"
	"github.com/cryexport/cryexport/pkg/types"
)

const registryJSON = `{
  "engine-5.4": {
    "uri": "file:///opt/crytek/CRYENGINE_5.4/cryengine.cryengine",
    "info": {"name": "CRYENGINE 5.4", "version": "5.4.1"}
  },
  "engine-dev": {
    "uri": "/src/cryengine",
    "info": {"version": "5.6.0"}
  }
}`

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cryengine.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInstallPathFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"file:///opt/crytek/CRYENGINE_5.4/cryengine.cryengine", "/opt/crytek/CRYENGINE_5.4"},
		{"file:///C:/Program Files/Crytek/CRYENGINE_5.3/cryengine.cryengine", "C:/Program Files/Crytek/CRYENGINE_5.3"},
		{"file:///C:/Program%20Files/Crytek/CRYENGINE_5.6/cryengine.cryengine", "C:/Program Files/Crytek/CRYENGINE_5.6"},
		{"file://localhost/opt/crytek/CRYENGINE%205.5", "/opt/crytek/CRYENGINE 5.5"},
		{"file://C:/Engines/5.7/cryengine.cryengine", "C:/Engines/5.7"},
		{"file://buildserver/engines/5.5", "//buildserver/engines/5.5"},
		{"C:\\Engines\\5.5\\Engine.CRYENGINE", "C:/Engines/5.5"},
		{"/src/cryengine/", "/src/cryengine"},
		{"/src/cryengine", "/src/cryengine"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got := engine.InstallPathFromURI(tt.uri)
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("InstallPathFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

func TestRegistryFileStrategy_Lookup(t *testing.T) {
	file := writeRegistry(t, registryJSON)
	s := engine.NewRegistryFileStrategy([]string{file}, nil)

	meta, err := s.Lookup(context.Background(), "engine-5.4")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	want := &types.EngineMetadata{
		Name:    "CRYENGINE 5.4",
		Version: "5.4",
		Path:    filepath.FromSlash("/opt/crytek/CRYENGINE_5.4"),
		Tag:     "engine-5.4",
	}
	if *meta != *want {
		t.Errorf("got %+v, want %+v", *meta, *want)
	}

	meta, err = s.Lookup(context.Background(), "engine-dev")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if meta.Name != "engine-dev" {
		t.Errorf("expected tag as fallback name, got %q", meta.Name)
	}
	if meta.Version != "5.6" {
		t.Errorf("expected version key 5.6, got %q", meta.Version)
	}
}

func TestRegistryFileStrategy_SkipsMissingAndMalformedFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.json")
	malformed := writeRegistry(t, "{not json")
	valid := writeRegistry(t, registryJSON)

	s := engine.NewRegistryFileStrategy([]string{missing, malformed, valid}, nil)
	meta, err := s.Lookup(context.Background(), "engine-5.4")
	if err != nil {
		t.Fatalf("expected lookup to fall through to the valid file: %v", err)
	}
	if meta.Version != "5.4" {
		t.Errorf("unexpected version %q", meta.Version)
	}
}

func TestRegistryFileStrategy_ShortVersionIsAnError(t *testing.T) {
	file := writeRegistry(t, `{"engine-x": {"uri": "/e", "info": {"version": "5"}}}`)
	s := engine.NewRegistryFileStrategy([]string{file}, nil)

	if _, err := s.Lookup(context.Background(), "engine-x"); err == nil {
		t.Fatal("expected error for a version shorter than the version key")
	}
}

func TestLegacyVersionKey(t *testing.T) {
	tests := []struct {
		tag     string
		want    string
		wantErr bool
	}{
		{"engine-5.0", "5.0", false},
		{"engine-5.3", "5.3", false},
		{"engine-5.4", "", true},
		{"engine-dev", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := engine.LegacyVersionKey(tt.tag)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LegacyVersionKey(%q) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("LegacyVersionKey(%q) = %q, want %q", tt.tag, got, tt.want)
			}
		})
	}
}

func TestLegacyTagStrategy_RegistryHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockInstallRegistry(ctrl)
	registry.EXPECT().Lookup("5.2").Return("/engines/5.2", true, nil)

	s := engine.NewLegacyTagStrategy(registry)
	meta, err := s.Lookup(context.Background(), "engine-5.2")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if meta.Version != "5.2" || meta.Path != filepath.Clean("/engines/5.2") {
		t.Errorf("unexpected metadata %+v", *meta)
	}
}

func TestLegacyTagStrategy_CurrentInstallFallback(t *testing.T) {
	tests := []struct {
		name      string
		current   engine.CurrentInstall
		hasCurr   bool
		wantFound bool
	}{
		{"matching prefix", engine.CurrentInstall{Version: "5.1.2", Path: "/engines/current"}, true, true},
		{"different version", engine.CurrentInstall{Version: "5.2.0", Path: "/engines/current"}, true, false},
		{"no current install", engine.CurrentInstall{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			registry := mocks.NewMockInstallRegistry(ctrl)
			registry.EXPECT().Lookup("5.1").Return("", false, nil)
			registry.EXPECT().Current().Return(tt.current, tt.hasCurr, nil)

			meta, err := engine.NewLegacyTagStrategy(registry).Lookup(context.Background(), "engine-5.1")
			if tt.wantFound {
				if err != nil {
					t.Fatalf("expected fallback to succeed: %v", err)
				}
				if meta.Version != "5.1" || meta.Path != filepath.Clean(tt.current.Path) {
					t.Errorf("unexpected metadata %+v", *meta)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected no match, got %+v", *meta)
			}
		})
	}
}

func TestLegacyTagStrategy_IgnoresNonLegacyTags(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockInstallRegistry(ctrl)

	if _, err := engine.NewLegacyTagStrategy(registry).Lookup(context.Background(), "engine-5.5"); err == nil {
		t.Fatal("expected non-legacy tag to be rejected")
	}
}

func TestResolver_FirstSuccessWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mocks.NewMockStrategy(ctrl)
	second := mocks.NewMockStrategy(ctrl)

	want := &types.EngineMetadata{Name: "CRYENGINE 5.3", Version: "5.3", Path: "/e", Tag: "engine-5.3"}
	first.EXPECT().Lookup(gomock.Any(), "engine-5.3").Return(want, nil)
	first.EXPECT().Name().Return("first").AnyTimes()

	r := engine.NewResolver(nil, first, second)
	got, err := r.Resolve(context.Background(), "engine-5.3")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != want {
		t.Errorf("expected metadata from first strategy")
	}
}

func TestResolver_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	failing := mocks.NewMockStrategy(ctrl)
	failing.EXPECT().Name().Return("broken").AnyTimes()
	failing.EXPECT().Lookup(gomock.Any(), "engine-9.9").Return(nil, errors.New("registry unavailable"))

	r := engine.NewResolver(nil, failing, engine.NewLegacyTagStrategy(nil))

	_, err := r.Resolve(context.Background(), "engine-9.9")
	if !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var nf *engine.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
	if nf.Tag != "engine-9.9" || len(nf.Tried) != 2 {
		t.Errorf("unexpected error details %+v", nf)
	}
	if !strings.Contains(err.Error(), "registry unavailable") {
		t.Errorf("expected strategy failure in message, got %q", err.Error())
	}
}

func TestDefaultResolver_RegistryFileThenLegacy(t *testing.T) {
	file := writeRegistry(t, registryJSON)
	registry := engine.NewStaticRegistry(map[string]string{"5.3": "/engines/legacy-5.3"}, nil)
	r := engine.NewDefaultResolver(nil, []string{file}, registry)

	meta, err := r.Resolve(context.Background(), "engine-5.4")
	if err != nil || meta.Version != "5.4" {
		t.Fatalf("expected registry file resolution, got %v, %v", meta, err)
	}

	meta, err = r.Resolve(context.Background(), "engine-5.3")
	if err != nil {
		t.Fatalf("expected legacy resolution: %v", err)
	}
	if meta.Path != filepath.Clean("/engines/legacy-5.3") || meta.Name != "CRYENGINE 5.3" {
		t.Errorf("unexpected metadata %+v", *meta)
	}

	if _, err := r.Resolve(context.Background(), "engine-5.5"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown tag, got %v", err)
	}
}

func TestResolver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := engine.NewDefaultResolver(nil, nil, nil)
	if _, err := r.Resolve(ctx, "engine-5.3"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRegistryFileStrategy_Entries(t *testing.T) {
	first := writeRegistry(t, registryJSON)
	second := writeRegistry(t, `{"engine-5.4": {"uri": "/elsewhere", "info": {"version": "5.4.9"}},
		"engine-5.5": {"uri": "/engines/5.5", "info": {"version": "5.5.0"}},
		"engine-bad": {"uri": "", "info": {"version": "5.5.0"}}}`)

	entries := engine.NewRegistryFileStrategy([]string{first, second}, nil).Entries()

	var tags []string
	for _, e := range entries {
		tags = append(tags, e.Tag)
	}
	if strings.Join(tags, ",") != "engine-5.4,engine-5.5,engine-dev" {
		t.Fatalf("unexpected tags %v", tags)
	}
	if entries[0].Path != filepath.FromSlash("/opt/crytek/CRYENGINE_5.4") {
		t.Errorf("first file should win for duplicate tags, got %q", entries[0].Path)
	}
}
