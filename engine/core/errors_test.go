package core

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Is(t *testing.T) {
	t.Run("Should match the sentinel of its kind through wrapping", func(t *testing.T) {
		err := fmt.Errorf("move: %w", NewConflictError("move", "/data/sub", SourceIsAncestor))
		assert.ErrorIs(t, err, ErrPathConflict)
		assert.NotErrorIs(t, err, ErrInvalidPath)
		conflict, ok := ConflictOf(err)
		require.True(t, ok)
		assert.Equal(t, SourceIsAncestor, conflict)
	})

	t.Run("Should unwrap to the underlying cause", func(t *testing.T) {
		err := NewError(KindCopyFailure, "import", "/src", fs.ErrPermission)
		assert.ErrorIs(t, err, ErrCopyFailure)
		assert.ErrorIs(t, err, fs.ErrPermission)
		assert.Equal(t, KindCopyFailure, KindOf(err))
		assert.Contains(t, err.Error(), "import: ")
	})

	t.Run("Should report internal kind for foreign errors", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
		_, ok := ConflictOf(errors.New("boom"))
		assert.False(t, ok)
	})

	t.Run("Should describe empty path errors", func(t *testing.T) {
		err := NewError(KindInvalidPath, "link", "", nil)
		assert.Equal(t, "link: path must not be empty", err.Error())
	})
}

func TestIsWithin(t *testing.T) {
	root := filepath.FromSlash("/data/app")
	testCases := []struct {
		name   string
		parent string
		child  string
		want   bool
	}{
		{"nested child", root, filepath.Join(root, "projects"), true},
		{"deep child", root, filepath.Join(root, "a", "b"), true},
		{"same path", root, root, false},
		{"sibling with shared prefix", root, root + "-backup", false},
		{"parent of parent", root, filepath.Dir(root), false},
		{"unclean child", root, root + "/x/../y", true},
	}
	for _, tc := range testCases {
		t.Run("Should handle "+tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsWithin(tc.parent, tc.child))
		})
	}
}

func TestAbsPath(t *testing.T) {
	t.Run("Should keep empty input empty", func(t *testing.T) {
		p, err := AbsPath("   ")
		require.NoError(t, err)
		assert.Empty(t, p)
	})

	t.Run("Should clean absolute paths", func(t *testing.T) {
		p, err := AbsPath("/data//old/../new/")
		require.NoError(t, err)
		assert.Equal(t, filepath.Clean("/data/new"), p)
	})

	t.Run("Should resolve relative paths against the working directory", func(t *testing.T) {
		p, err := AbsPath("relative")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(p))
	})
}
