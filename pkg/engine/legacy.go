package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cryexport/cryexport/pkg/types"
)

// LegacyTags are the engine tags older projects declare, which resolve through
// the installation registry instead of registry files
var LegacyTags = []string{"engine-5.0", "engine-5.1", "engine-5.2", "engine-5.3"}

// CurrentInstall is the single "currently installed engine" registry entry
type CurrentInstall struct {
	Version string
	Path    string
}

// InstallRegistry is the platform's engine installation registry, keyed by
// 3-character version
type InstallRegistry interface {
	// Lookup returns the install path registered for versionKey
	Lookup(versionKey string) (string, bool, error)
	// Current returns the currently installed engine, if any
	Current() (CurrentInstall, bool, error)
	// Versions lists every registered version; for diagnostics only
	Versions() (map[string]string, error)
}

// LegacyTagStrategy resolves whitelisted legacy tags through an InstallRegistry
type LegacyTagStrategy struct {
	registry InstallRegistry
}

// NewLegacyTagStrategy creates the legacy strategy
func NewLegacyTagStrategy(registry InstallRegistry) *LegacyTagStrategy {
	if registry == nil {
		registry = NewStaticRegistry(nil, nil)
	}
	return &LegacyTagStrategy{registry: registry}
}

// Name implements Strategy
func (s *LegacyTagStrategy) Name() string {
	return "install-registry"
}

// IsLegacyTag reports whether tag is in the legacy whitelist
func IsLegacyTag(tag string) bool {
	for _, t := range LegacyTags {
		if t == tag {
			return true
		}
	}
	return false
}

// LegacyVersionKey derives the version key from a legacy tag ("engine-5.3" -> "5.3")
func LegacyVersionKey(tag string) (string, error) {
	if !IsLegacyTag(tag) {
		return "", fmt.Errorf("%q is not a legacy engine tag", tag)
	}
	return types.VersionKey(tag[strings.LastIndex(tag, "-")+1:])
}

// Lookup implements Strategy. The current-install fallback is only accepted when
// its recorded version starts with the requested key.
func (s *LegacyTagStrategy) Lookup(_ context.Context, tag string) (*types.EngineMetadata, error) {
	if !IsLegacyTag(tag) {
		return nil, fmt.Errorf("%w: tag is not a legacy tag", errNoMatch)
	}

	key, err := LegacyVersionKey(tag)
	if err != nil {
		return nil, err
	}

	path, ok, err := s.registry.Lookup(key)
	if err != nil {
		return nil, fmt.Errorf("registry lookup for %s: %w", key, err)
	}
	if ok {
		return types.NewEngineMetadata(legacyName(key), key, path, tag)
	}

	current, ok, err := s.registry.Current()
	if err != nil {
		return nil, fmt.Errorf("current engine lookup: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: version %s not registered", errNoMatch, key)
	}
	if !strings.HasPrefix(current.Version, key) {
		return nil, fmt.Errorf("%w: version %s not registered and the installed engine is %s",
			errNoMatch, key, current.Version)
	}

	return types.NewEngineMetadata(legacyName(key), current.Version, current.Path, tag)
}

func legacyName(key string) string {
	return "CRYENGINE " + key
}

// StaticRegistry is an InstallRegistry backed by fixed values, used where the
// platform has no installation registry and for configured engine locations
type StaticRegistry struct {
	versions map[string]string
	current  *CurrentInstall
}

// NewStaticRegistry creates a registry from version key -> install path entries
func NewStaticRegistry(versions map[string]string, current *CurrentInstall) *StaticRegistry {
	copied := make(map[string]string, len(versions))
	for k, v := range versions {
		copied[k] = v
	}
	return &StaticRegistry{versions: copied, current: current}
}

// Lookup implements InstallRegistry
func (r *StaticRegistry) Lookup(versionKey string) (string, bool, error) {
	path, ok := r.versions[versionKey]
	return path, ok && path != "", nil
}

// Current implements InstallRegistry
func (r *StaticRegistry) Current() (CurrentInstall, bool, error) {
	if r.current == nil || r.current.Path == "" {
		return CurrentInstall{}, false, nil
	}
	return *r.current, true, nil
}

// Versions implements InstallRegistry
func (r *StaticRegistry) Versions() (map[string]string, error) {
	copied := make(map[string]string, len(r.versions))
	for k, v := range r.versions {
		copied[k] = v
	}
	return copied, nil
}

// SortedVersions returns the registry's version keys in order
func SortedVersions(registry InstallRegistry) ([]string, map[string]string, error) {
	versions, err := registry.Versions()
	if err != nil {
		return nil, nil, err
	}
	keys := make([]string, 0, len(versions))
	for k := range versions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, versions, nil
}
