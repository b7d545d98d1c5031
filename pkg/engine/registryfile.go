package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cryexport/cryexport/pkg/logger"
	"github.com/cryexport/cryexport/pkg/types"
)

// DescriptorExt is the engine descriptor file an install URI may point at
const DescriptorExt = ".cryengine"

// registryEntry is one engine registration keyed by tag in a registry file
type registryEntry struct {
	URI  string `json:"uri"`
	Info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"info"`
}

// DefaultRegistryFiles returns the well-known engine registration files in lookup order
func DefaultRegistryFiles() []string {
	var files []string
	if programData := os.Getenv("ProgramData"); programData != "" {
		files = append(files, filepath.Join(programData, "Crytek", "CRYENGINE", "cryengine.json"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".cryengine", "cryengine.json"))
	}
	return files
}

// RegistryFileStrategy looks the tag up in JSON registration files
type RegistryFileStrategy struct {
	files  []string
	logger logger.Logger
}

// NewRegistryFileStrategy creates a strategy scanning files in order
func NewRegistryFileStrategy(files []string, log logger.Logger) *RegistryFileStrategy {
	if log == nil {
		log = logger.Discard()
	}
	return &RegistryFileStrategy{files: files, logger: log}
}

// Name implements Strategy
func (s *RegistryFileStrategy) Name() string {
	return "registry-file"
}

// Lookup implements Strategy. Missing files are skipped; unreadable or malformed
// files are skipped with a warning.
func (s *RegistryFileStrategy) Lookup(ctx context.Context, tag string) (*types.EngineMetadata, error) {
	for _, file := range s.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, err := readRegistryFile(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.logger.Debug("Registry file not present", logger.WithField("file", file))
			} else {
				s.logger.Warn("Skipping registry file", logger.WithField("file", file), logger.WithField("error", err))
			}
			continue
		}

		entry, ok := entries[tag]
		if !ok {
			continue
		}

		name := entry.Info.Name
		if name == "" {
			name = tag
		}
		meta, err := types.NewEngineMetadata(name, entry.Info.Version, InstallPathFromURI(entry.URI), tag)
		if err != nil {
			return nil, fmt.Errorf("%s: entry %q: %w", file, tag, err)
		}
		return meta, nil
	}

	return nil, errNoMatch
}

// Entries lists every valid registration across the files, first file winning
// for duplicate tags, sorted by tag
func (s *RegistryFileStrategy) Entries() []types.EngineMetadata {
	seen := make(map[string]bool)
	var out []types.EngineMetadata

	for _, file := range s.files {
		entries, err := readRegistryFile(file)
		if err != nil {
			continue
		}
		for tag, entry := range entries {
			if seen[tag] {
				continue
			}
			name := entry.Info.Name
			if name == "" {
				name = tag
			}
			meta, err := types.NewEngineMetadata(name, entry.Info.Version, InstallPathFromURI(entry.URI), tag)
			if err != nil {
				s.logger.Debug("Skipping invalid registration", logger.WithField("tag", tag), logger.WithField("error", err))
				continue
			}
			seen[tag] = true
			out = append(out, *meta)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

func readRegistryFile(path string) (map[string]registryEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries map[string]registryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return entries, nil
}

var driveURIPath = regexp.MustCompile(`^/[A-Za-z]:`)

// InstallPathFromURI turns an install URI into a directory: a file:// URI is
// decoded to its path and a trailing engine descriptor file is reduced to its
// directory. Plain paths are used as given.
func InstallPathFromURI(uri string) string {
	p := strings.TrimSpace(uri)
	if strings.HasPrefix(strings.ToLower(p), "file://") {
		p = filePathFromURI(p)
	}
	if p == "" {
		return ""
	}

	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasSuffix(strings.ToLower(p), DescriptorExt) {
		p = p[:strings.LastIndex(p, "/")+1]
	}
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return ""
	}
	return filepath.FromSlash(p)
}

func filePathFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		// Not a well-formed URI; strip the scheme and keep the rest verbatim
		return trimDriveSlash(uri[len("file://"):])
	}

	switch {
	case u.Host == "" || strings.EqualFold(u.Host, "localhost"):
		return trimDriveSlash(u.Path)
	case driveHost.MatchString(u.Host):
		// file://C:/path
		return u.Host + u.Path
	default:
		// UNC share
		return "//" + u.Host + u.Path
	}
}

var driveHost = regexp.MustCompile(`^[A-Za-z]:$`)

func trimDriveSlash(p string) string {
	if driveURIPath.MatchString(p) {
		return p[1:]
	}
	return p
}
