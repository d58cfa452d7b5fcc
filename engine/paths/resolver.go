// Package paths derives the on-disk layout of the data tree from the storage config.
package paths

import (
	"fmt"
	"path/filepath"

	"github.com/compozy/storagectl/pkg/config"
	"github.com/compozy/storagectl/pkg/fsutil"
	"github.com/spf13/afero"
)

const (
	ProjectsDir = "projects"
	MediaDir    = "media"
	// NestedProjectsDir holds the per-project layout projects/_p/<id>/.
	NestedProjectsDir = "_p"
	// MigrationMarker lives in the project root once the one-time data migration has run.
	MigrationMarker = ".migration-complete"
)

// ConfigSource supplies the current storage config.
type ConfigSource interface {
	Get() config.StorageConfig
}

// Resolver maps the current config to concrete directories.
type Resolver struct {
	source     ConfigSource
	fs         afero.Fs
	platform   Platform
	strategies []Strategy
}

type Option func(*Resolver)

// WithStrategies replaces the fallback chain. The platform default is still
// used when no strategy applies.
func WithStrategies(strategies ...Strategy) Option {
	return func(r *Resolver) {
		r.strategies = strategies
	}
}

func NewResolver(source ConfigSource, fsys afero.Fs, platform Platform, opts ...Option) *Resolver {
	r := &Resolver{
		source:     source,
		fs:         fsys,
		platform:   platform,
		strategies: DefaultStrategies(platform),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Platform returns the platform locations the resolver was built with.
func (r *Resolver) Platform() Platform {
	return r.platform
}

// BasePath returns the effective base path. It never fails.
func (r *Resolver) BasePath() string {
	path, _ := r.resolve(r.source.Get())
	return path
}

// Strategy reports which strategy produced the current base path.
func (r *Resolver) Strategy() string {
	_, name := r.resolve(r.source.Get())
	return name
}

func (r *Resolver) resolve(cfg config.StorageConfig) (string, string) {
	for _, s := range r.strategies {
		if path, ok := s.Resolve(cfg); ok {
			return path, s.Name()
		}
	}
	return filepath.Clean(r.platform.AppDataDir), "platform_default"
}

// ProjectDir returns basePath/projects without touching the filesystem.
func (r *Resolver) ProjectDir() string {
	return filepath.Join(r.BasePath(), ProjectsDir)
}

// MediaDir returns basePath/media without touching the filesystem.
func (r *Resolver) MediaDir() string {
	return filepath.Join(r.BasePath(), MediaDir)
}

// ProjectRoot returns basePath/projects, creating it if absent.
func (r *Resolver) ProjectRoot() (string, error) {
	return r.ensure(r.ProjectDir())
}

// MediaRoot returns basePath/media, creating it if absent.
func (r *Resolver) MediaRoot() (string, error) {
	return r.ensure(r.MediaDir())
}

func (r *Resolver) ensure(dir string) (string, error) {
	if err := fsutil.EnsureDir(r.fs, dir); err != nil {
		return dir, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	return dir, nil
}

// CacheDirs returns the cache directories. They are independent of the base path.
func (r *Resolver) CacheDirs() []string {
	return r.platform.CacheDirs()
}
