package storage

import (
	"context"

	"github.com/compozy/storagectl/engine/core"
	"github.com/compozy/storagectl/pkg/config"
)

// OperationResult is returned by link, move, export and import. Failures are
// reported in the result, never as a Go error.
type OperationResult struct {
	Success bool      `json:"success" yaml:"success"`
	Path    string    `json:"path,omitempty" yaml:"path,omitempty"`
	Error   string    `json:"error,omitempty" yaml:"error,omitempty"`
	Code    core.Kind `json:"code,omitempty" yaml:"code,omitempty"`
}

// Paths lists the resolved data locations.
type Paths struct {
	BasePath    string `json:"basePath" yaml:"base_path"`
	ProjectPath string `json:"projectPath" yaml:"project_path"`
	MediaPath   string `json:"mediaPath" yaml:"media_path"`
	CachePath   string `json:"cachePath" yaml:"cache_path"`
}

type ClearCacheRequest struct {
	OlderThanDays *int `json:"olderThanDays,omitempty" yaml:"older_than_days,omitempty"`
}

type ClearCacheResult struct {
	Success      bool      `json:"success" yaml:"success"`
	ClearedBytes *int64    `json:"clearedBytes,omitempty" yaml:"cleared_bytes,omitempty"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`
	Code         core.Kind `json:"code,omitempty" yaml:"code,omitempty"`
}

type UpdateConfigRequest struct {
	AutoCleanEnabled *bool `json:"autoCleanEnabled,omitempty" yaml:"auto_clean_enabled,omitempty"`
	AutoCleanDays    *int  `json:"autoCleanDays,omitempty" yaml:"auto_clean_days,omitempty"`
}

// Ack acknowledges a config update and echoes the resulting config.
type Ack struct {
	Success bool                 `json:"success" yaml:"success"`
	Config  config.StorageConfig `json:"config" yaml:"config"`
	Error   string               `json:"error,omitempty" yaml:"error,omitempty"`
	Code    core.Kind            `json:"code,omitempty" yaml:"code,omitempty"`
}

// DirectoryPicker asks the user for a directory. It returns "" when the user cancels.
type DirectoryPicker interface {
	PickDirectory(ctx context.Context) (string, error)
}

// ConfigStore is the config store the service owns.
type ConfigStore interface {
	Get() config.StorageConfig
	Merge(ctx context.Context, patch config.Patch) (config.StorageConfig, error)
	Reload(ctx context.Context) (config.StorageConfig, bool)
}

func failure(err error) OperationResult {
	return OperationResult{Success: false, Error: err.Error(), Code: core.KindOf(err)}
}
