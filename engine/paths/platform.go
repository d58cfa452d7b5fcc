package paths

import (
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/compozy/storagectl/pkg/config"
)

// Cache directory names created by the application runtime under its data directory.
var cacheDirNames = []string{"Cache", "Code Cache", "GPUCache"}

// Platform describes the operating-system locations the resolver falls back to.
type Platform struct {
	// AppDataDir is the per-application data directory. It is also the
	// protected directory that Move never deletes from.
	AppDataDir string
}

// DefaultPlatform returns the XDG data location for appName
// (~/.local/share/<app> on Linux, ~/Library/Application Support/<app> on macOS,
// %LOCALAPPDATA%\<app> on Windows).
func DefaultPlatform(appName string) Platform {
	return Platform{AppDataDir: filepath.Join(xdg.DataHome, appName)}
}

// ConfigFile is where the storage config is persisted.
func (p Platform) ConfigFile() string {
	return filepath.Join(p.AppDataDir, config.DefaultFileName)
}

// CacheDirs returns the auxiliary cache directories. They do not follow the base path.
func (p Platform) CacheDirs() []string {
	dirs := make([]string, 0, len(cacheDirNames))
	for _, name := range cacheDirNames {
		dirs = append(dirs, filepath.Join(p.AppDataDir, name))
	}
	return dirs
}
