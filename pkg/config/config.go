// Package config loads cryexport settings from files, environment and defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/cryexport/cryexport/pkg/archive"
	"github.com/cryexport/cryexport/pkg/engine"
	"github.com/cryexport/cryexport/pkg/quirks"
)

const (
	// FileName is the settings file base name; any viper-supported extension works
	FileName = "cryexport"
	// EnvPrefix prefixes environment overrides, e.g. CRYEXPORT_ARCHIVER=7z
	EnvPrefix = "CRYEXPORT"
)

// ErrInvalidSettings is returned when settings fail validation
var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds everything an export run needs besides the project itself
type Settings struct {
	// ExportRoot is the parent of per-project deployment directories; empty means ~/Desktop
	ExportRoot     string            `mapstructure:"exportRoot"`
	Archiver       string            `mapstructure:"archiver"`
	SevenZipPath   string            `mapstructure:"sevenZipPath"`
	RegistryFiles  []string          `mapstructure:"registryFiles"`
	LegacyEngines  map[string]string `mapstructure:"legacyEngines"`
	Parallelism    int               `mapstructure:"parallelism"`
	PluginManifest string            `mapstructure:"pluginManifest"`
	Notify         bool              `mapstructure:"notify"`
	LogFile        string            `mapstructure:"logFile"`
	LogLevel       string            `mapstructure:"logLevel"`
	WatchDebounce  time.Duration     `mapstructure:"watchDebounce"`
}

// LoadOptions controls where settings are read from
type LoadOptions struct {
	// ConfigFile is an explicit settings file; it must exist when set
	ConfigFile string
	// SearchDirs are searched in order for cryexport.{yaml,json,toml}
	SearchDirs []string
}

// DefaultSearchDirs returns the project directory followed by ~/.cryexport
func DefaultSearchDirs(projectDir string) []string {
	dirs := []string{projectDir}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".cryexport"))
	}
	return dirs
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("exportRoot", "")
	v.SetDefault("archiver", string(archive.BackendAuto))
	v.SetDefault("sevenZipPath", "")
	v.SetDefault("registryFiles", engine.DefaultRegistryFiles())
	v.SetDefault("parallelism", runtime.NumCPU())
	v.SetDefault("pluginManifest", quirks.DefaultPluginManifest)
	v.SetDefault("notify", false)
	v.SetDefault("logFile", "")
	v.SetDefault("logLevel", "info")
	v.SetDefault("watchDebounce", "1s")
}

// New returns a viper instance with defaults and environment binding applied.
// Keys are split on "::" so version keys such as "5.3" survive as map keys.
func New() *viper.Viper {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("::", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads settings into a fresh viper instance
func Load(opts LoadOptions) (*Settings, string, error) {
	v := New()
	used, err := ReadInto(v, opts)
	if err != nil {
		return nil, "", err
	}
	s, err := FromViper(v)
	if err != nil {
		return nil, used, err
	}
	return s, used, nil
}

// ReadInto reads the settings file into v and returns the file used, if any.
// A missing file is only an error when it was named explicitly.
func ReadInto(v *viper.Viper, opts LoadOptions) (string, error) {
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(FileName)
		for _, dir := range opts.SearchDirs {
			if dir != "" {
				v.AddConfigPath(dir)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read settings: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// FromViper decodes and validates settings held by v
func FromViper(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Default returns validated default settings
func Default() *Settings {
	s, err := FromViper(New())
	if err != nil {
		// defaults are static; failing here means SetDefaults is broken
		panic(err)
	}
	return s
}

// Validate checks value ranges and enumerations
func (s *Settings) Validate() error {
	switch archive.Backend(s.Archiver) {
	case archive.BackendAuto, archive.BackendBuiltin, archive.BackendSevenZip:
	default:
		return fmt.Errorf("%w: archiver %q (want auto, builtin or 7z)", ErrInvalidSettings, s.Archiver)
	}
	if s.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism must not be negative", ErrInvalidSettings)
	}
	if _, err := logrus.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("%w: logLevel: %v", ErrInvalidSettings, err)
	}
	if s.WatchDebounce <= 0 {
		return fmt.Errorf("%w: watchDebounce must be positive", ErrInvalidSettings)
	}
	if strings.ContainsAny(s.PluginManifest, `/\`) {
		return fmt.Errorf("%w: pluginManifest must be a file name", ErrInvalidSettings)
	}
	for key := range s.LegacyEngines {
		if len(key) != 3 {
			return fmt.Errorf("%w: legacyEngines key %q is not a version key like 5.3", ErrInvalidSettings, key)
		}
	}
	return nil
}

// ExportDir returns the deployment directory for a project
func (s *Settings) ExportDir(projectName string) (string, error) {
	root := s.ExportRoot
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		root = filepath.Join(home, "Desktop")
	}
	return filepath.Join(root, projectName), nil
}

// InstallRegistry returns the registry legacy tags resolve through: configured
// engines when present, otherwise the platform registry
func (s *Settings) InstallRegistry() engine.InstallRegistry {
	if len(s.LegacyEngines) > 0 {
		return engine.NewStaticRegistry(s.LegacyEngines, nil)
	}
	return engine.NewInstallRegistry()
}

// ArchiveOptions maps settings onto archive backend selection
func (s *Settings) ArchiveOptions() archive.SelectOptions {
	return archive.SelectOptions{
		Backend:      archive.Backend(s.Archiver),
		SevenZipPath: s.SevenZipPath,
		SearchDirs:   archive.DefaultSevenZipDirs(),
	}
}
