package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/compozy/storagectl/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPatch is returned by Merge when the patched config fails validation.
var ErrInvalidPatch = errors.New("invalid config patch")

// PersistErrorHandler receives failures to write the config file. The
// in-memory config stays authoritative when it is called.
type PersistErrorHandler func(ctx context.Context, path string, err error)

// Store owns the single StorageConfig of a process. It is safe for concurrent
// use; every mutation replaces the whole record.
type Store struct {
	fs             afero.Fs
	path           string
	envPrefix      string
	validator      *validator.Validate
	onPersistError PersistErrorHandler

	mu      sync.RWMutex
	current StorageConfig

	persistMu sync.Mutex
}

type Option func(*Store)

// WithFs sets the filesystem the config file is read from and written to.
func WithFs(fsys afero.Fs) Option {
	return func(s *Store) {
		s.fs = fsys
	}
}

// WithPersistErrorHandler replaces the default log-and-continue handler.
func WithPersistErrorHandler(h PersistErrorHandler) Option {
	return func(s *Store) {
		if h != nil {
			s.onPersistError = h
		}
	}
}

// WithEnvPrefix sets the environment override prefix. An empty prefix disables overrides.
func WithEnvPrefix(prefix string) Option {
	return func(s *Store) {
		s.envPrefix = prefix
	}
}

func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		fs:             afero.NewOsFs(),
		path:           filepath.Clean(path),
		envPrefix:      DefaultEnvPrefix,
		validator:      newValidator(),
		onPersistError: logPersistError,
		current:        Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func logPersistError(ctx context.Context, path string, err error) {
	logger.FromContext(ctx).Error("failed to persist storage config", "path", path, "error", err)
}

// Path returns the config file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the config file into memory. A missing or unreadable file
// yields defaults; Load never fails.
func (s *Store) Load(ctx context.Context) StorageConfig {
	cfg := s.read(ctx)
	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()
	return cfg
}

// Reload re-reads the file and reports whether the config changed.
func (s *Store) Reload(ctx context.Context) (StorageConfig, bool) {
	cfg := s.read(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if reflect.DeepEqual(s.current, cfg) {
		return cfg, false
	}
	s.current = cfg
	return cfg, true
}

func (s *Store) read(ctx context.Context) StorageConfig {
	log := logger.FromContext(ctx)
	l := newLoader(s.validator, s.envPrefix)
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to read storage config, using defaults", "path", s.path, "error", err)
		data = nil
	}
	cfg, err := l.load(data)
	if err == nil {
		return cfg
	}
	log.Warn("invalid storage config, using defaults", "path", s.path, "error", err)
	cfg, err = l.load(nil)
	if err != nil {
		log.Warn("invalid environment overrides ignored", "error", err)
		return Default()
	}
	return cfg
}

// Get returns a copy of the current config.
func (s *Store) Get() StorageConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Merge applies patch, replaces the in-memory config and persists it.
// Only an invalid patch is returned as an error; persistence failures go to
// the PersistErrorHandler.
func (s *Store) Merge(ctx context.Context, patch Patch) (StorageConfig, error) {
	s.mu.Lock()
	next, err := patch.Apply(s.current)
	if err != nil {
		s.mu.Unlock()
		return s.current, err
	}
	if err := s.validator.Struct(next); err != nil {
		s.mu.Unlock()
		return s.current, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	s.current = next
	s.mu.Unlock()

	if err := s.persist(next); err != nil {
		s.onPersistError(ctx, s.path, err)
	}
	return next, nil
}

// Save writes the current config to disk.
func (s *Store) Save(_ context.Context) error {
	return s.persist(s.Get())
}

// persist writes through a temp file and rename so a crash never leaves a torn file.
func (s *Store) persist(cfg StorageConfig) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}
