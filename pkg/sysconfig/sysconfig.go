// Package sysconfig writes the runtime system.cfg for a deployment
package sysconfig

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cryexport/cryexport/pkg/utils"
)

// FileName is the runtime configuration file written into the deployment root
const FileName = "system.cfg"

// Config is the content of system.cfg
type Config struct {
	AssetFolder string
	EntryBinary string
}

// Render returns the file contents
func (c Config) Render() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "sys_game_folder=%s\n", filepath.ToSlash(c.AssetFolder))
	fmt.Fprintf(&b, "sys_dll_game=%s\n", c.EntryBinary)
	b.WriteString("sys_PakLogInvalidFileAccess=0\n")
	return []byte(b.String())
}

// Write (over)writes destRoot/system.cfg
func Write(destRoot string, cfg Config) (string, error) {
	if cfg.AssetFolder == "" || cfg.EntryBinary == "" {
		return "", fmt.Errorf("system config needs both an asset folder and an entry binary")
	}

	path := filepath.Join(destRoot, FileName)
	if err := utils.WriteFileAtomic(path, cfg.Render()); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
