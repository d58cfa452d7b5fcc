// Package storage is the entry point callers use to manage the data tree.
// Every operation reports failure through its result instead of panicking or
// returning raw filesystem errors.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/compozy/storagectl/engine/cache"
	"github.com/compozy/storagectl/engine/core"
	"github.com/compozy/storagectl/engine/infra/monitoring"
	"github.com/compozy/storagectl/engine/migrate"
	"github.com/compozy/storagectl/engine/paths"
	"github.com/compozy/storagectl/engine/validate"
	"github.com/compozy/storagectl/pkg/config"
	"github.com/compozy/storagectl/pkg/fsutil"
	"github.com/compozy/storagectl/pkg/logger"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

var (
	// ErrNoPicker is returned by SelectDirectory when no picker was configured.
	ErrNoPicker = errors.New("no directory picker configured")
	// ErrLocked is returned when another process holds the storage lock.
	ErrLocked = errors.New("storage is locked by another process")
)

const (
	lockRetryDelay     = 50 * time.Millisecond
	DefaultLockTimeout = 30 * time.Second
)

type Service struct {
	store     ConfigStore
	resolver  *paths.Resolver
	validator *validate.Validator
	engine    *migrate.Engine
	cache     *cache.Manager
	scheduler *cache.Scheduler
	picker    DirectoryPicker
	metrics   atomic.Pointer[monitoring.StorageMetrics]

	// opMu serializes operations that touch the data or cache directories.
	opMu sync.Mutex
	// fileLock extends opMu across processes when set.
	fileLock    *flock.Flock
	lockTimeout time.Duration
}

type options struct {
	picker       DirectoryPicker
	metrics      *monitoring.StorageMetrics
	migrateOpts  []migrate.Option
	cacheOpts    []cache.Option
	resolverOpts []paths.Option
	lockPath     string
	lockTimeout  time.Duration
}

type Option func(*options)

func WithPicker(p DirectoryPicker) Option {
	return func(o *options) {
		o.picker = p
	}
}

func WithMetrics(m *monitoring.StorageMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithProcessLock guards operations with a file lock at path, waiting at most
// timeout for it. A non-positive timeout uses DefaultLockTimeout.
func WithProcessLock(path string, timeout time.Duration) Option {
	return func(o *options) {
		o.lockPath = path
		o.lockTimeout = timeout
	}
}

// WithClock sets the time source for export names and cache age cutoffs.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.migrateOpts = append(o.migrateOpts, migrate.WithClock(now))
		o.cacheOpts = append(o.cacheOpts, cache.WithClock(now))
	}
}

// WithTempDir sets where import backups are created.
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.migrateOpts = append(o.migrateOpts, migrate.WithTempDir(dir))
	}
}

// WithMigrateOptions passes options through to the migration engine.
func WithMigrateOptions(opts ...migrate.Option) Option {
	return func(o *options) {
		o.migrateOpts = append(o.migrateOpts, opts...)
	}
}

// WithResolverOptions passes options through to the path resolver.
func WithResolverOptions(opts ...paths.Option) Option {
	return func(o *options) {
		o.resolverOpts = append(o.resolverOpts, opts...)
	}
}

func NewService(fsys afero.Fs, store ConfigStore, platform paths.Platform, opts ...Option) *Service {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	resolver := paths.NewResolver(store, fsys, platform, o.resolverOpts...)
	validator := validate.New(fsys)
	s := &Service{
		store:     store,
		resolver:  resolver,
		validator: validator,
		engine:    migrate.NewEngine(fsys, store, resolver, validator, o.migrateOpts...),
		cache:     cache.NewManager(fsys, resolver.CacheDirs(), o.cacheOpts...),
		picker:    o.picker,
	}
	s.metrics.Store(o.metrics)
	if o.lockPath != "" {
		s.fileLock = flock.New(o.lockPath)
		s.lockTimeout = o.lockTimeout
		if s.lockTimeout <= 0 {
			s.lockTimeout = DefaultLockTimeout
		}
	}
	s.scheduler = cache.NewScheduler(store, s.autoClean)
	return s
}

// SetMetrics replaces the metrics recorder. nil disables recording.
func (s *Service) SetMetrics(m *monitoring.StorageMetrics) {
	s.metrics.Store(m)
}

// Resolver exposes the path resolver for read-only callers.
func (s *Service) Resolver() *paths.Resolver {
	return s.resolver
}

// Config returns the current storage config.
func (s *Service) Config() config.StorageConfig {
	return s.store.Get()
}

// GetPaths resolves the data roots, creating them if needed.
func (s *Service) GetPaths(ctx context.Context) (Paths, error) {
	project, err := s.resolver.ProjectRoot()
	if err != nil {
		logger.FromContext(ctx).Error("failed to resolve project root", "error", err)
		return Paths{}, err
	}
	media, err := s.resolver.MediaRoot()
	if err != nil {
		logger.FromContext(ctx).Error("failed to resolve media root", "error", err)
		return Paths{}, err
	}
	var cachePath string
	if dirs := s.resolver.CacheDirs(); len(dirs) > 0 {
		cachePath = dirs[0]
	}
	return Paths{
		BasePath:    s.resolver.BasePath(),
		ProjectPath: project,
		MediaPath:   media,
		CachePath:   cachePath,
	}, nil
}

// SelectDirectory asks the picker for a directory. ok is false when the user cancelled.
func (s *Service) SelectDirectory(ctx context.Context) (path string, ok bool, err error) {
	if s.picker == nil {
		return "", false, ErrNoPicker
	}
	path, err = s.picker.PickDirectory(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to select directory: %w", err)
	}
	return path, path != "", nil
}

// ValidateDataDir checks whether path looks like a data directory.
func (s *Service) ValidateDataDir(ctx context.Context, path string) validate.Result {
	abs, err := core.AbsPath(path)
	if err != nil {
		err = core.NewError(core.KindInvalidPath, "validate", path, err)
		return validate.Result{Valid: false, Error: err.Error(), Err: err}
	}
	return s.validator.Validate(ctx, abs)
}

func (s *Service) LinkData(ctx context.Context, path string) OperationResult {
	return s.run(ctx, "link", func(ctx context.Context) (string, error) {
		return s.engine.Link(ctx, path)
	})
}

func (s *Service) MoveData(ctx context.Context, path string) OperationResult {
	return s.run(ctx, "move", func(ctx context.Context) (string, error) {
		return s.engine.Move(ctx, path)
	})
}

// ExportData writes a snapshot under targetPath; the result path is the snapshot directory.
func (s *Service) ExportData(ctx context.Context, targetPath string) OperationResult {
	return s.run(ctx, "export", func(ctx context.Context) (string, error) {
		return s.engine.Export(ctx, targetPath)
	})
}

func (s *Service) ImportData(ctx context.Context, sourcePath string) OperationResult {
	return s.run(ctx, "import", func(ctx context.Context) (string, error) {
		return "", s.engine.Import(ctx, sourcePath)
	})
}

// run checks ctx once before starting; operations are not cancelled midway.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (string, error)) (res OperationResult) {
	if err := ctx.Err(); err != nil {
		return failure(core.NewError(core.KindInternal, op, "", err))
	}
	start := time.Now()
	unlock, err := s.acquire(ctx, op)
	if err != nil {
		s.metrics.Load().RecordOperation(ctx, op, string(core.KindOf(err)), time.Since(start))
		return failure(err)
	}
	defer unlock()
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("operation panicked", "operation", op, "panic", r)
			res = failure(core.NewError(core.KindInternal, op, "", fmt.Errorf("panic: %v", r)))
		}
		s.metrics.Load().RecordOperation(ctx, op, string(res.Code), time.Since(start))
	}()
	path, err := fn(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("operation failed", "operation", op, "error", err)
		return failure(err)
	}
	return OperationResult{Success: true, Path: path}
}

// GetCacheSize measures the cache directories.
func (s *Service) GetCacheSize(ctx context.Context) (cache.SizeReport, error) {
	report, err := s.cache.Size(ctx)
	for _, d := range report.Details {
		s.metrics.Load().RecordCacheSize(ctx, d.Path, d.Size)
	}
	return report, err
}

// ClearCache empties the cache directories, or prunes by age when OlderThanDays is set.
func (s *Service) ClearCache(ctx context.Context, req ClearCacheRequest) ClearCacheResult {
	const op = "clear_cache"
	if err := ctx.Err(); err != nil {
		return ClearCacheResult{Error: err.Error(), Code: core.KindInternal}
	}
	start := time.Now()
	unlock, err := s.acquire(ctx, op)
	if err != nil {
		s.metrics.Load().RecordOperation(ctx, op, string(core.KindOf(err)), time.Since(start))
		return ClearCacheResult{Error: err.Error(), Code: core.KindOf(err)}
	}
	defer unlock()
	res, err := s.cache.Clear(ctx, req.OlderThanDays)
	mode := "all"
	if req.OlderThanDays != nil {
		mode = "age"
	}
	s.metrics.Load().RecordCacheCleared(ctx, mode, res.ClearedBytes)
	if err != nil {
		kind := core.KindOf(err)
		s.metrics.Load().RecordOperation(ctx, op, string(kind), time.Since(start))
		return ClearCacheResult{Success: false, Error: err.Error(), Code: kind}
	}
	s.metrics.Load().RecordOperation(ctx, op, "", time.Since(start))
	cleared := res.ClearedBytes
	return ClearCacheResult{Success: true, ClearedBytes: &cleared}
}

// UpdateConfig changes the auto-clean policy and re-arms the schedule.
func (s *Service) UpdateConfig(ctx context.Context, req UpdateConfigRequest) Ack {
	patch := config.Patch{
		AutoCleanEnabled: req.AutoCleanEnabled,
		AutoCleanDays:    req.AutoCleanDays,
	}
	cfg, err := s.store.Merge(ctx, patch)
	if err != nil {
		err = core.NewError(core.KindInvalidConfig, "update config", "", err)
		return Ack{Success: false, Config: s.store.Get(), Error: err.Error(), Code: core.KindInvalidConfig}
	}
	if err := s.scheduler.Schedule(ctx); err != nil {
		logger.FromContext(ctx).Error("failed to schedule auto-clean", "error", err)
		return Ack{Success: false, Config: cfg, Error: err.Error(), Code: core.KindInternal}
	}
	return Ack{Success: true, Config: cfg}
}

// StartAutoClean applies the stored auto-clean policy.
func (s *Service) StartAutoClean(ctx context.Context) error {
	return s.scheduler.Schedule(ctx)
}

// AutoCleanArmed reports whether a recurring auto-clean is scheduled.
func (s *Service) AutoCleanArmed() bool {
	return s.scheduler.Armed()
}

// ReloadConfig re-reads the config file and re-arms the schedule when the policy changed.
func (s *Service) ReloadConfig(ctx context.Context) error {
	prev := s.store.Get()
	cfg, changed := s.store.Reload(ctx)
	if !changed {
		return nil
	}
	logger.FromContext(ctx).Info("storage config reloaded", "base_path", s.resolver.BasePath())
	if prev.AutoCleanEnabled == cfg.AutoCleanEnabled && prev.AutoCleanDays == cfg.AutoCleanDays {
		return nil
	}
	return s.scheduler.Schedule(ctx)
}

// Close stops the auto-clean schedule.
func (s *Service) Close() {
	s.scheduler.Stop()
}

func (s *Service) autoClean(ctx context.Context, days int) {
	log := logger.FromContext(ctx)
	start := time.Now()
	unlock, err := s.acquire(ctx, "auto_clean")
	if err != nil {
		log.Warn("auto-clean skipped", "error", err)
		return
	}
	defer unlock()
	res, err := s.cache.Clear(ctx, &days)
	s.metrics.Load().RecordCacheCleared(ctx, "auto", res.ClearedBytes)
	if err != nil {
		s.metrics.Load().RecordOperation(ctx, "auto_clean", string(core.KindOf(err)), time.Since(start))
		log.Error("auto-clean failed", "older_than_days", days, "error", err)
		return
	}
	s.metrics.Load().RecordOperation(ctx, "auto_clean", "", time.Since(start))
	log.Info("auto-clean finished", "older_than_days", days, "bytes", res.ClearedBytes)
}

// acquire takes the in-process lock and, when configured, the file lock.
func (s *Service) acquire(ctx context.Context, op string) (func(), error) {
	s.opMu.Lock()
	if s.fileLock == nil {
		return s.opMu.Unlock, nil
	}
	path := s.fileLock.Path()
	if err := fsutil.EnsureDir(afero.NewOsFs(), filepath.Dir(path)); err != nil {
		s.opMu.Unlock()
		return nil, core.NewError(core.KindInternal, op, path, err)
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	ok, err := s.fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !ok {
		s.opMu.Unlock()
		if err == nil {
			err = ErrLocked
		} else {
			err = fmt.Errorf("%w: %w", ErrLocked, err)
		}
		return nil, core.NewError(core.KindInternal, op, path, err)
	}
	return func() {
		if err := s.fileLock.Unlock(); err != nil {
			logger.FromContext(ctx).Warn("failed to release storage lock", "path", path, "error", err)
		}
		s.opMu.Unlock()
	}, nil
}
