// Package cache measures and prunes the auxiliary cache directories.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compozy/storagectl/engine/core"
	"github.com/compozy/storagectl/pkg/fsutil"
	"github.com/compozy/storagectl/pkg/logger"
	"github.com/spf13/afero"
)

const day = 24 * time.Hour

// DirSize is the recursive size of one cache directory.
type DirSize struct {
	Path string `json:"path" yaml:"path"`
	Size int64  `json:"size" yaml:"size"`
}

// SizeReport lists every cache directory with the total across them.
type SizeReport struct {
	Total   int64     `json:"total" yaml:"total"`
	Details []DirSize `json:"details" yaml:"details"`
}

// ClearResult summarizes a clear. Files and dirs are only counted for age-based clears.
type ClearResult struct {
	ClearedBytes int64 `json:"clearedBytes" yaml:"cleared_bytes"`
	FilesRemoved int   `json:"filesRemoved,omitempty" yaml:"files_removed,omitempty"`
	DirsRemoved  int   `json:"dirsRemoved,omitempty" yaml:"dirs_removed,omitempty"`
}

type Manager struct {
	fs   afero.Fs
	dirs []string
	now  func() time.Time
}

type Option func(*Manager)

// WithClock sets the time source used to compute age cutoffs.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(fsys afero.Fs, dirs []string, opts ...Option) *Manager {
	m := &Manager{
		fs:   fsys,
		dirs: append([]string(nil), dirs...),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dirs returns the managed cache directories.
func (m *Manager) Dirs() []string {
	return append([]string(nil), m.dirs...)
}

// Size measures every cache directory. Missing directories count as zero.
// A directory that cannot be measured is reported with the bytes seen so far
// and its error is joined into the result.
func (m *Manager) Size(ctx context.Context) (SizeReport, error) {
	report := SizeReport{Details: make([]DirSize, 0, len(m.dirs))}
	var errs []error
	for _, dir := range m.dirs {
		size, err := fsutil.DirSize(m.fs, dir)
		if err != nil {
			logger.FromContext(ctx).Warn("failed to measure cache directory", "path", dir, "error", err)
			errs = append(errs, err)
		}
		report.Details = append(report.Details, DirSize{Path: dir, Size: size})
		report.Total += size
	}
	return report, errors.Join(errs...)
}

// Clear empties the cache directories. With olderThanDays nil each directory
// is deleted and recreated; otherwise only files last modified before
// now - olderThanDays are deleted, along with directories that deletion emptied.
func (m *Manager) Clear(ctx context.Context, olderThanDays *int) (ClearResult, error) {
	if olderThanDays == nil {
		return m.clearAll(ctx)
	}
	if *olderThanDays < 0 {
		return ClearResult{}, core.NewError(
			core.KindInvalidConfig, "clear cache", "",
			fmt.Errorf("olderThanDays must not be negative, got %d", *olderThanDays),
		)
	}
	return m.clearOlderThan(ctx, *olderThanDays)
}

func (m *Manager) clearAll(ctx context.Context) (ClearResult, error) {
	log := logger.FromContext(ctx)
	var result ClearResult
	var errs []error
	for _, dir := range m.dirs {
		size, err := fsutil.DirSize(m.fs, dir)
		if err != nil {
			log.Warn("failed to measure cache directory before clearing", "path", dir, "error", err)
		}
		if err := fsutil.RemoveAll(ctx, m.fs, dir); err != nil {
			errs = append(errs, err)
			continue
		}
		result.ClearedBytes += size
		if err := fsutil.EnsureDir(m.fs, dir); err != nil {
			errs = append(errs, err)
		}
	}
	log.Info("cache cleared", "bytes", result.ClearedBytes)
	return result, errors.Join(errs...)
}

func (m *Manager) clearOlderThan(ctx context.Context, days int) (ClearResult, error) {
	log := logger.FromContext(ctx)
	cutoff := m.now().Add(-time.Duration(days) * day)
	var result ClearResult
	var errs []error
	for _, dir := range m.dirs {
		pruned, err := fsutil.PruneOlderThan(m.fs, dir, cutoff)
		result.ClearedBytes += pruned.BytesFreed
		result.FilesRemoved += pruned.FilesRemoved
		result.DirsRemoved += pruned.DirsRemoved
		if err != nil {
			errs = append(errs, err)
		}
	}
	log.Info("cache pruned",
		"older_than_days", days,
		"bytes", result.ClearedBytes,
		"files", result.FilesRemoved,
		"dirs", result.DirsRemoved,
	)
	return result, errors.Join(errs...)
}
