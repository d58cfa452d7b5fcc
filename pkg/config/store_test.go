package config

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigPath = "/app/storage-config.yaml"

func newTestStore(fsys afero.Fs, opts ...Option) *Store {
	opts = append([]Option{WithFs(fsys), WithEnvPrefix("")}, opts...)
	return NewStore(testConfigPath, opts...)
}

func TestStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return defaults when the file is missing", func(t *testing.T) {
		s := newTestStore(afero.NewMemMapFs())
		assert.Equal(t, Default(), s.Load(ctx))
		assert.Equal(t, Default(), s.Get())
	})

	t.Run("Should return defaults when the file is corrupt", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fsys, testConfigPath, []byte("base_path: [unterminated"), 0o600))
		s := newTestStore(fsys)
		assert.Equal(t, Default(), s.Load(ctx))
	})

	t.Run("Should return defaults when the file fails validation", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fsys, testConfigPath, []byte("auto_clean_days: 0\n"), 0o600))
		s := newTestStore(fsys)
		assert.Equal(t, Default(), s.Load(ctx))
	})

	t.Run("Should keep defaults for keys absent from the file", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fsys, testConfigPath, []byte("base_path: /data/app\n"), 0o600))
		s := newTestStore(fsys)
		cfg := s.Load(ctx)
		assert.Equal(t, "/data/app", cfg.BasePath)
		assert.Equal(t, DefaultAutoCleanDays, cfg.AutoCleanDays)
	})

	t.Run("Should read legacy fields", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		data := []byte("project_path: /legacy/projects\nmedia_path: /legacy/media\n")
		require.NoError(t, afero.WriteFile(fsys, testConfigPath, data, 0o600))
		cfg := newTestStore(fsys).Load(ctx)
		assert.Equal(t, "/legacy/projects", cfg.ProjectPath)
		assert.Equal(t, "/legacy/media", cfg.MediaPath)
		assert.Empty(t, cfg.BasePath)
	})

	t.Run("Should apply environment overrides", func(t *testing.T) {
		t.Setenv("STORAGECTL_TEST_AUTO_CLEAN_DAYS", "30")
		t.Setenv("STORAGECTL_TEST_AUTO_CLEAN_ENABLED", "true")
		s := NewStore(testConfigPath, WithFs(afero.NewMemMapFs()), WithEnvPrefix("STORAGECTL_TEST_"))
		cfg := s.Load(ctx)
		assert.Equal(t, 30, cfg.AutoCleanDays)
		assert.True(t, cfg.AutoCleanEnabled)
	})
}

func TestStore_Merge(t *testing.T) {
	ctx := context.Background()

	t.Run("Should persist merged config", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		s := newTestStore(fsys)
		s.Load(ctx)

		cfg, err := s.Merge(ctx, Patch{AutoCleanEnabled: ptr(true), AutoCleanDays: ptr(3)})
		require.NoError(t, err)
		assert.True(t, cfg.AutoCleanEnabled)
		assert.Equal(t, 3, cfg.AutoCleanDays)

		reloaded := newTestStore(fsys).Load(ctx)
		assert.Equal(t, cfg, reloaded)
		exists, err := afero.Exists(fsys, testConfigPath+".tmp")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Should clear legacy fields on link", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		data := []byte("project_path: /legacy/projects\nmedia_path: /legacy/media\n")
		require.NoError(t, afero.WriteFile(fsys, testConfigPath, data, 0o600))
		s := newTestStore(fsys)
		s.Load(ctx)

		_, err := s.Merge(ctx, LinkPatch("/data/new"))
		require.NoError(t, err)

		raw, err := afero.ReadFile(fsys, testConfigPath)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "base_path: /data/new")
		assert.NotContains(t, string(raw), "project_path")
		assert.NotContains(t, string(raw), "media_path")
	})

	t.Run("Should reject an invalid patch and keep the current config", func(t *testing.T) {
		s := newTestStore(afero.NewMemMapFs())
		s.Load(ctx)

		_, err := s.Merge(ctx, Patch{AutoCleanDays: ptr(0)})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPatch)
		assert.Equal(t, Default(), s.Get())
	})

	t.Run("Should keep the in-memory config when persisting fails", func(t *testing.T) {
		var persistErr error
		s := newTestStore(afero.NewReadOnlyFs(afero.NewMemMapFs()),
			WithPersistErrorHandler(func(_ context.Context, _ string, err error) {
				persistErr = err
			}),
		)
		s.Load(ctx)

		cfg, err := s.Merge(ctx, Patch{BasePath: ptr("/data/new")})
		require.NoError(t, err)
		assert.Equal(t, "/data/new", cfg.BasePath)
		assert.Equal(t, "/data/new", s.Get().BasePath)
		assert.Error(t, persistErr)
	})
}

func TestStore_Save(t *testing.T) {
	t.Run("Should return the write error", func(t *testing.T) {
		s := newTestStore(afero.NewReadOnlyFs(afero.NewMemMapFs()))
		err := s.Save(context.Background())
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrInvalidPatch))
	})
}

func TestStore_Reload(t *testing.T) {
	ctx := context.Background()

	t.Run("Should report whether the file changed", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		s := newTestStore(fsys)
		s.Load(ctx)

		_, changed := s.Reload(ctx)
		assert.False(t, changed)

		require.NoError(t, afero.WriteFile(fsys, testConfigPath, []byte("auto_clean_enabled: true\n"), 0o600))
		cfg, changed := s.Reload(ctx)
		assert.True(t, changed)
		assert.True(t, cfg.AutoCleanEnabled)
		assert.True(t, s.Get().AutoCleanEnabled)
	})
}

func TestContextWithStore(t *testing.T) {
	t.Run("Should round trip the store through the context", func(t *testing.T) {
		s := newTestStore(afero.NewMemMapFs())
		ctx := ContextWithStore(context.Background(), s)
		assert.Same(t, s, StoreFromContext(ctx))
		assert.Nil(t, StoreFromContext(context.Background()))
	})
}
