package migrate

import (
	"context"
	"testing"

	"github.com/compozy/storagectl/engine/core"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Move(t *testing.T) {
	ctx := context.Background()
	liveFiles := map[string]string{
		"/data/old/projects/a.json":      "a",
		"/data/old/projects/_p/p1/x.bin": "x",
		"/data/old/media/img.png":        "img",
	}

	t.Run("Should copy data, repoint config and delete the old roots", func(t *testing.T) {
		fx := newFixture(t, afero.NewMemMapFs(), "/data/old")
		writeFiles(t, fx.fs, liveFiles)
		writeFiles(t, fx.fs, map[string]string{"/data/new/projects/a.json": "stale"})

		path, err := fx.engine.Move(ctx, "/data/new")
		require.NoError(t, err)
		assert.Equal(t, "/data/new", path)
		assert.Equal(t, "/data/new", fx.store.Get().BasePath)
		assert.Equal(t, map[string]string{"a.json": "a", "_p/p1/x.bin": "x"}, tree(t, fx.fs, "/data/new/projects"))
		assert.Equal(t, map[string]string{"img.png": "img"}, tree(t, fx.fs, "/data/new/media"))
		assert.False(t, exists(t, fx.fs, "/data/old/projects"))
		assert.False(t, exists(t, fx.fs, "/data/old/media"))
	})

	t.Run("Should do nothing when the target is the current base", func(t *testing.T) {
		fx := newFixture(t, afero.NewMemMapFs(), "/data/old")
		writeFiles(t, fx.fs, liveFiles)

		path, err := fx.engine.Move(ctx, "/data/old/")
		require.NoError(t, err)
		assert.Equal(t, "/data/old", path)
		assert.Equal(t, "a", tree(t, fx.fs, "/data/old/projects")["a.json"])
	})

	t.Run("Should reject a target inside the current base", func(t *testing.T) {
		fx := newFixture(t, afero.NewMemMapFs(), "/data/old")
		_, err := fx.engine.Move(ctx, "/data/old/nested")
		require.ErrorIs(t, err, core.ErrPathConflict)
		conflict, ok := core.ConflictOf(err)
		require.True(t, ok)
		assert.Equal(t, core.SourceIsAncestor, conflict)
		assert.False(t, exists(t, fx.fs, "/data/old/nested"))
	})

	t.Run("Should reject a target containing the current base", func(t *testing.T) {
		fx := newFixture(t, afero.NewMemMapFs(), "/data/old")
		_, err := fx.engine.Move(ctx, "/data")
		require.ErrorIs(t, err, core.ErrPathConflict)
		conflict, _ := core.ConflictOf(err)
		assert.Equal(t, core.DestIsAncestor, conflict)
	})

	t.Run("Should keep old roots inside the application data directory", func(t *testing.T) {
		fx := newFixture(t, afero.NewMemMapFs(), "")
		writeFiles(t, fx.fs, map[string]string{appDataDir + "/projects/a.json": "a"})

		_, err := fx.engine.Move(ctx, "/data/new")
		require.NoError(t, err)
		assert.Equal(t, "a", tree(t, fx.fs, "/data/new/projects")["a.json"])
		assert.True(t, exists(t, fx.fs, appDataDir+"/projects/a.json"))
	})

	t.Run("Should keep the old base authoritative when the copy fails", func(t *testing.T) {
		fsys := &failFs{Fs: afero.NewMemMapFs()}
		fx := newFixture(t, fsys, "/data/old")
		writeFiles(t, fsys, liveFiles)
		fsys.arm("/data/new/media", 1)

		_, err := fx.engine.Move(ctx, "/data/new")
		require.ErrorIs(t, err, core.ErrCopyFailure)
		assert.ErrorIs(t, err, errInjected)
		assert.Equal(t, "/data/old", fx.store.Get().BasePath)
		assert.Equal(t, "img", tree(t, fsys, "/data/old/media")["img.png"])
		assert.Equal(t, "a", tree(t, fsys, "/data/old/projects")["a.json"])
	})

	t.Run("Should reject an empty target", func(t *testing.T) {
		fx := newFixture(t, afero.NewMemMapFs(), "/data/old")
		_, err := fx.engine.Move(ctx, " ")
		assert.ErrorIs(t, err, core.ErrInvalidPath)
	})
}
