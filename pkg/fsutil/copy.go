// Package fsutil holds the directory-tree primitives the storage engine is
// built on: recursive copy, recursive size, age-based pruning and retried
// removal. Every function works against an afero.Fs so the engine can run on
// the real disk or on an in-memory filesystem.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"github.com/spf13/afero"
)

const (
	DirPerm  os.FileMode = 0o755
	FilePerm os.FileMode = 0o644
)

// CopyTree copies every entry of src into dst, creating dst when needed.
// Existing files at the destination are overwritten; existing directories are
// merged. Symlinks are copied as links and other special files are skipped.
//
// On the OS filesystem the copy is delegated to otiai10/copy. Other afero
// backends are walked entry by entry.
func CopyTree(fsys afero.Fs, src, dst string) error {
	info, err := fsys.Stat(src)
	if err != nil {
		return fmt.Errorf("stat copy source %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("copy source %s is not a directory", src)
	}
	if _, ok := fsys.(*afero.OsFs); ok {
		return copyOnDisk(src, dst)
	}
	return copyWithFs(fsys, src, dst)
}

func copyOnDisk(src, dst string) error {
	opts := copy.Options{
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Shallow
		},
		OnDirExists: func(_, _ string) copy.DirExistsAction {
			return copy.Merge
		},
		PreserveTimes: true,
	}
	if err := copy.Copy(src, dst, opts); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}

func copyWithFs(fsys afero.Fs, src, dst string) error {
	return afero.Walk(fsys, src, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk %s: %w", path, walkErr)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		switch {
		case info.IsDir():
			if err := fsys.MkdirAll(target, info.Mode().Perm()|0o700); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			return nil
		case info.Mode().IsRegular():
			return copyFile(fsys, path, target, info)
		case info.Mode()&os.ModeSymlink != 0:
			return copySymlink(fsys, path, target)
		default:
			return nil
		}
	})
}

func copyFile(fsys afero.Fs, src, dst string, info os.FileInfo) (err error) {
	in, err := fsys.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	out, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dst, cerr)
		}
	}()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := fsys.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("preserve times on %s: %w", dst, err)
	}
	return nil
}

func copySymlink(fsys afero.Fs, src, dst string) error {
	reader, ok := fsys.(afero.LinkReader)
	if !ok {
		return nil
	}
	linker, ok := fsys.(afero.Linker)
	if !ok {
		return nil
	}
	target, err := reader.ReadlinkIfPossible(src)
	if err != nil {
		return fmt.Errorf("read link %s: %w", src, err)
	}
	if err := fsys.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replace link %s: %w", dst, err)
	}
	return linker.SymlinkIfPossible(target, dst)
}
