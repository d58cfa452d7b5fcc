package cache

import (
	"context"
	"testing"
	"time"

	"github.com/compozy/storagectl/engine/core"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDirs = []string{"/app/Cache", "/app/Code Cache", "/app/GPUCache"}
	testNow  = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

func setupCache(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	files := map[string]struct {
		content string
		age     time.Duration
	}{
		"/app/Cache/old.bin":           {"0123456789", 30 * day},
		"/app/Cache/fresh.bin":         {"abc", time.Hour},
		"/app/Code Cache/js/stale.js":  {"12345", 10 * day},
		"/app/Code Cache/js/recent.js": {"1", 2 * day},
		"/app/Code Cache/wasm/x.wasm":  {"1234", 8 * day},
	}
	for path, f := range files {
		require.NoError(t, afero.WriteFile(fsys, path, []byte(f.content), 0o644))
		ts := testNow.Add(-f.age)
		require.NoError(t, fsys.Chtimes(path, ts, ts))
	}
	return fsys
}

func TestManager_Size(t *testing.T) {
	t.Run("Should report per-directory sizes with missing dirs as zero", func(t *testing.T) {
		m := NewManager(setupCache(t), testDirs)
		report, err := m.Size(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(23), report.Total)
		assert.Equal(t, []DirSize{
			{Path: "/app/Cache", Size: 13},
			{Path: "/app/Code Cache", Size: 10},
			{Path: "/app/GPUCache", Size: 0},
		}, report.Details)
	})
}

func TestManager_Clear(t *testing.T) {
	ctx := context.Background()

	t.Run("Should empty every directory and report bytes freed", func(t *testing.T) {
		fsys := setupCache(t)
		m := NewManager(fsys, testDirs)

		res, err := m.Clear(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(23), res.ClearedBytes)

		for _, dir := range testDirs {
			exists, err := afero.DirExists(fsys, dir)
			require.NoError(t, err)
			assert.True(t, exists, dir)
			empty, err := afero.IsEmpty(fsys, dir)
			require.NoError(t, err)
			assert.True(t, empty, dir)
		}
		report, err := m.Size(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Total)
	})

	t.Run("Should delete only files older than the threshold", func(t *testing.T) {
		fsys := setupCache(t)
		m := NewManager(fsys, testDirs, WithClock(func() time.Time { return testNow }))
		days := 7

		res, err := m.Clear(ctx, &days)
		require.NoError(t, err)
		assert.Equal(t, int64(19), res.ClearedBytes)
		assert.Equal(t, 3, res.FilesRemoved)
		assert.Equal(t, 1, res.DirsRemoved)

		for path, want := range map[string]bool{
			"/app/Cache/old.bin":           false,
			"/app/Cache/fresh.bin":         true,
			"/app/Code Cache/js/stale.js":  false,
			"/app/Code Cache/js/recent.js": true,
			"/app/Code Cache/wasm":         false,
			"/app/Code Cache":              true,
		} {
			exists, err := afero.Exists(fsys, path)
			require.NoError(t, err)
			assert.Equal(t, want, exists, path)
		}
	})

	t.Run("Should reject a negative threshold", func(t *testing.T) {
		m := NewManager(setupCache(t), testDirs)
		days := -1
		_, err := m.Clear(ctx, &days)
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
	})

	t.Run("Should report removal failures", func(t *testing.T) {
		fsys := afero.NewReadOnlyFs(setupCache(t))
		m := NewManager(fsys, testDirs)
		_, err := m.Clear(ctx, nil)
		assert.Error(t, err)
	})
}
