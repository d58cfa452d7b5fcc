// Package migrate implements the operations that relocate, snapshot and
// restore the data tree: link, move, export and import.
//
// None of the operations lock against each other; callers run one at a time.
package migrate

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/compozy/storagectl/engine/core"
	"github.com/compozy/storagectl/engine/paths"
	"github.com/compozy/storagectl/engine/validate"
	"github.com/compozy/storagectl/pkg/config"
	"github.com/compozy/storagectl/pkg/fsutil"
	"github.com/compozy/storagectl/pkg/logger"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ConfigStore is the part of the config store the engine mutates.
type ConfigStore interface {
	Get() config.StorageConfig
	Merge(ctx context.Context, patch config.Patch) (config.StorageConfig, error)
}

type Engine struct {
	fs        afero.Fs
	store     ConfigStore
	resolver  *paths.Resolver
	validator *validate.Validator
	now       func() time.Time
	tempDir   string
	newID     func() string
}

type Option func(*Engine)

// WithClock sets the time source used to name export snapshots.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithTempDir sets where import backups are created.
func WithTempDir(dir string) Option {
	return func(e *Engine) {
		e.tempDir = dir
	}
}

// WithIDGenerator sets the generator for backup directory names.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

func NewEngine(
	fsys afero.Fs,
	store ConfigStore,
	resolver *paths.Resolver,
	validator *validate.Validator,
	opts ...Option,
) *Engine {
	e := &Engine{
		fs:        fsys,
		store:     store,
		resolver:  resolver,
		validator: validator,
		now:       time.Now,
		tempDir:   os.TempDir(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// normalize turns a user-supplied path into a cleaned absolute path.
func normalize(op, path string) (string, error) {
	abs, err := core.AbsPath(path)
	if err != nil {
		return "", core.NewError(core.KindInvalidPath, op, path, err)
	}
	if abs == "" {
		return "", core.NewError(core.KindInvalidPath, op, path, nil)
	}
	return abs, nil
}

func (e *Engine) requireDir(op, path string) error {
	if !fsutil.IsDir(e.fs, path) {
		return core.NewError(core.KindDirectoryNotFound, op, path, nil)
	}
	return nil
}

// repoint moves the config to basePath and clears the legacy fields.
func (e *Engine) repoint(ctx context.Context, op, basePath string) error {
	if _, err := e.store.Merge(ctx, config.LinkPatch(basePath)); err != nil {
		return core.NewError(core.KindInvalidConfig, op, basePath, err)
	}
	return nil
}

// protected reports whether dir lies in the platform application-data
// directory, which is never deleted from.
func (e *Engine) protected(dir string) bool {
	appData := e.resolver.Platform().AppDataDir
	return core.SamePath(appData, dir) || core.IsWithin(appData, dir)
}

func dataDirs(base string) (string, string) {
	return filepath.Join(base, paths.ProjectsDir), filepath.Join(base, paths.MediaDir)
}

func logFrom(ctx context.Context, op string) logger.Logger {
	return logger.FromContext(ctx).With("operation", op)
}
