package paths

import (
	"path/filepath"
	"strings"

	"github.com/compozy/storagectl/pkg/config"
)

// Strategy derives a base path from the config. It reports false when it does not apply.
type Strategy interface {
	Name() string
	Resolve(cfg config.StorageConfig) (string, bool)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc struct {
	name string
	fn   func(cfg config.StorageConfig) (string, bool)
}

func NewStrategy(name string, fn func(cfg config.StorageConfig) (string, bool)) StrategyFunc {
	return StrategyFunc{name: name, fn: fn}
}

func (s StrategyFunc) Name() string { return s.name }

func (s StrategyFunc) Resolve(cfg config.StorageConfig) (string, bool) {
	return s.fn(cfg)
}

// ExplicitBase uses base_path when set.
func ExplicitBase() Strategy {
	return NewStrategy("base_path", func(cfg config.StorageConfig) (string, bool) {
		base := strings.TrimSpace(cfg.BasePath)
		if base == "" {
			return "", false
		}
		return filepath.Clean(base), true
	})
}

// LegacyProjectParent treats the parent of a legacy project_path as the base.
// Relative values are skipped; a base path is always absolute.
func LegacyProjectParent() Strategy {
	return NewStrategy("legacy_project_path", func(cfg config.StorageConfig) (string, bool) {
		project := strings.TrimSpace(cfg.ProjectPath)
		if project == "" || !filepath.IsAbs(project) {
			return "", false
		}
		return filepath.Dir(filepath.Clean(project)), true
	})
}

// PlatformDefault always applies and returns dir.
func PlatformDefault(dir string) Strategy {
	return NewStrategy("platform_default", func(config.StorageConfig) (string, bool) {
		return filepath.Clean(dir), true
	})
}

// DefaultStrategies is the standard fallback chain, most specific first.
func DefaultStrategies(platform Platform) []Strategy {
	return []Strategy{
		ExplicitBase(),
		LegacyProjectParent(),
		PlatformDefault(platform.AppDataDir),
	}
}
