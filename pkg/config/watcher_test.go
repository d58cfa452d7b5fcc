package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_Watch(t *testing.T) {
	t.Run("Should notify when the store rewrites the file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, DefaultFileName)
		watcher, err := NewWatcher(path)
		require.NoError(t, err)
		defer watcher.Close()

		var calls atomic.Int32
		watcher.OnChange(func() { calls.Add(1) })
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, watcher.Watch(ctx))

		s := NewStore(path, WithFs(afero.NewOsFs()), WithEnvPrefix(""))
		s.Load(ctx)
		_, err = s.Merge(ctx, Patch{AutoCleanEnabled: ptr(true)})
		require.NoError(t, err)

		assert.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("Should coalesce a burst of writes into one callback", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, DefaultFileName)
		watcher, err := NewWatcher(path)
		require.NoError(t, err)
		defer watcher.Close()

		var calls atomic.Int32
		watcher.OnChange(func() { calls.Add(1) })
		require.NoError(t, watcher.Watch(context.Background()))

		for i := range 3 {
			require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("auto_clean_days: %d\n", i+1)), 0o600))
		}
		assert.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 20*time.Millisecond)
		time.Sleep(300 * time.Millisecond)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Should ignore other files in the directory", func(t *testing.T) {
		dir := t.TempDir()
		watcher, err := NewWatcher(filepath.Join(dir, DefaultFileName))
		require.NoError(t, err)
		defer watcher.Close()

		var calls atomic.Int32
		watcher.OnChange(func() { calls.Add(1) })
		require.NoError(t, watcher.Watch(context.Background()))

		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o600))
		time.Sleep(200 * time.Millisecond)
		assert.Zero(t, calls.Load())
	})

	t.Run("Should fail when the directory does not exist", func(t *testing.T) {
		watcher, err := NewWatcher(filepath.Join(t.TempDir(), "missing", DefaultFileName))
		require.NoError(t, err)
		defer watcher.Close()
		assert.Error(t, watcher.Watch(context.Background()))
	})

	t.Run("Should close idempotently", func(t *testing.T) {
		watcher, err := NewWatcher(filepath.Join(t.TempDir(), DefaultFileName))
		require.NoError(t, err)
		require.NoError(t, watcher.Close())
		require.NoError(t, watcher.Close())
	})
}
