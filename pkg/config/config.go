package config

import (
	"fmt"

	"dario.cat/mergo"
)

const (
	DefaultAutoCleanDays = 7
	MaxAutoCleanDays     = 3650
	DefaultFileName      = "storage-config.yaml"
	DefaultEnvPrefix     = "STORAGECTL_"
)

// StorageConfig is the persisted record describing where application data lives
// and how auxiliary caches are pruned.
type StorageConfig struct {
	// BasePath is the canonical data root; projects/ and media/ live below it.
	BasePath string `koanf:"base_path"          yaml:"base_path"              json:"basePath"         validate:"omitempty,abspath"`
	// ProjectPath and MediaPath are only read from configs written before
	// BasePath existed. Link and Move clear them.
	ProjectPath      string `koanf:"project_path"       yaml:"project_path,omitempty" json:"projectPath,omitempty"`
	MediaPath        string `koanf:"media_path"         yaml:"media_path,omitempty"   json:"mediaPath,omitempty"`
	AutoCleanEnabled bool   `koanf:"auto_clean_enabled" yaml:"auto_clean_enabled"     json:"autoCleanEnabled"`
	AutoCleanDays    int    `koanf:"auto_clean_days"    yaml:"auto_clean_days"        json:"autoCleanDays"    validate:"min=1,max=3650"`
}

// Default returns the configuration used when no file exists or it cannot be parsed.
func Default() StorageConfig {
	return StorageConfig{
		AutoCleanEnabled: false,
		AutoCleanDays:    DefaultAutoCleanDays,
	}
}

// Patch is a partial update. Nil fields are left untouched; non-nil fields
// overwrite, including explicit empty strings.
type Patch struct {
	BasePath         *string `json:"basePath,omitempty"`
	ProjectPath      *string `json:"projectPath,omitempty"`
	MediaPath        *string `json:"mediaPath,omitempty"`
	AutoCleanEnabled *bool   `json:"autoCleanEnabled,omitempty"`
	AutoCleanDays    *int    `json:"autoCleanDays,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

func patchOf(cfg StorageConfig) Patch {
	return Patch{
		BasePath:         &cfg.BasePath,
		ProjectPath:      &cfg.ProjectPath,
		MediaPath:        &cfg.MediaPath,
		AutoCleanEnabled: &cfg.AutoCleanEnabled,
		AutoCleanDays:    &cfg.AutoCleanDays,
	}
}

func (p Patch) toConfig() StorageConfig {
	var cfg StorageConfig
	if p.BasePath != nil {
		cfg.BasePath = *p.BasePath
	}
	if p.ProjectPath != nil {
		cfg.ProjectPath = *p.ProjectPath
	}
	if p.MediaPath != nil {
		cfg.MediaPath = *p.MediaPath
	}
	if p.AutoCleanEnabled != nil {
		cfg.AutoCleanEnabled = *p.AutoCleanEnabled
	}
	if p.AutoCleanDays != nil {
		cfg.AutoCleanDays = *p.AutoCleanDays
	}
	return cfg
}

// Apply returns cfg with the patch's set fields overwritten. cfg is not modified.
func (p Patch) Apply(cfg StorageConfig) (StorageConfig, error) {
	dst := patchOf(cfg)
	// WithoutDereference makes a pointer to "" count as set, so legacy fields can be cleared.
	if err := mergo.Merge(&dst, p, mergo.WithOverride, mergo.WithoutDereference); err != nil {
		return cfg, fmt.Errorf("failed to merge config patch: %w", err)
	}
	return dst.toConfig(), nil
}

// LinkPatch points the config at basePath and clears the legacy fields.
func LinkPatch(basePath string) Patch {
	empty := ""
	return Patch{
		BasePath:    &basePath,
		ProjectPath: &empty,
		MediaPath:   &empty,
	}
}
