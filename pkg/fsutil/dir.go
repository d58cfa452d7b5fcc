package fsutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/afero"
)

const (
	removeRetries = 3
	removeBackoff = 50 * time.Millisecond
)

// Exists reports whether path exists. Stat errors other than not-exist are returned.
func Exists(fsys afero.Fs, path string) (bool, error) {
	_, err := fsys.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// IsDir reports whether path exists and is a directory.
func IsDir(fsys afero.Fs, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && info.IsDir()
}

// IsEmptyDir reports whether dir has no entries. A missing dir counts as empty.
func IsEmptyDir(fsys afero.Fs, dir string) (bool, error) {
	f, err := fsys.Open(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("open %s: %w", dir, err)
	}
	defer f.Close()
	names, err := f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read directory %s: %w", dir, err)
	}
	return len(names) == 0, nil
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(fsys afero.Fs, dir string) error {
	if err := fsys.MkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// RemoveAll deletes path recursively, retrying transient failures such as
// files briefly held open by another process.
func RemoveAll(ctx context.Context, fsys afero.Fs, path string) error {
	backoff := retry.WithMaxRetries(removeRetries, retry.NewExponential(removeBackoff))
	err := retry.Do(context.WithoutCancel(ctx), backoff, func(_ context.Context) error {
		if err := fsys.RemoveAll(path); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
