//go:build windows

package engine

import (
	"errors"

	"golang.org/x/sys/windows/registry"
)

const (
	enginesKeyPath  = `SOFTWARE\Crytek\CryEngine`
	settingsKeyPath = `SOFTWARE\Crytek\Settings`
)

// WindowsRegistry reads engine registrations from the Windows registry
type WindowsRegistry struct{}

// NewInstallRegistry returns the platform installation registry
func NewInstallRegistry() InstallRegistry {
	return &WindowsRegistry{}
}

// Lookup implements InstallRegistry
func (r *WindowsRegistry) Lookup(versionKey string) (string, bool, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, enginesKeyPath, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	defer k.Close()

	path, _, err := k.GetStringValue(versionKey)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return path, path != "", nil
}

// Current implements InstallRegistry
func (r *WindowsRegistry) Current() (CurrentInstall, bool, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, settingsKeyPath, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return CurrentInstall{}, false, nil
		}
		return CurrentInstall{}, false, err
	}
	defer k.Close()

	path, _, err := k.GetStringValue("ENG_RootPath")
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return CurrentInstall{}, false, nil
		}
		return CurrentInstall{}, false, err
	}
	version, _, err := k.GetStringValue("ENG_Version")
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return CurrentInstall{}, false, err
	}

	return CurrentInstall{Version: version, Path: path}, path != "", nil
}

// Versions implements InstallRegistry. The key's first value is unnamed and skipped.
func (r *WindowsRegistry) Versions() (map[string]string, error) {
	versions := make(map[string]string)

	k, err := registry.OpenKey(registry.CURRENT_USER, enginesKeyPath, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return versions, nil
		}
		return nil, err
	}
	defer k.Close()

	names, err := k.ReadValueNames(0)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		path, _, err := k.GetStringValue(name)
		if err != nil {
			continue
		}
		versions[name] = path
	}
	return versions, nil
}
