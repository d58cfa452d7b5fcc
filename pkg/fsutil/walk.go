package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// DirSize sums the sizes of every regular file under root.
// A missing root has size zero.
func DirSize(fsys afero.Fs, root string) (int64, error) {
	if _, err := fsys.Stat(root); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat %s: %w", root, err)
	}
	var total int64
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			// entries can vanish while a cache is being measured
			if errors.Is(walkErr, os.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("walk %s: %w", path, walkErr)
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	return total, nil
}

// PruneResult reports what an age-based prune removed.
type PruneResult struct {
	FilesRemoved int   `json:"filesRemoved"`
	DirsRemoved  int   `json:"dirsRemoved"`
	BytesFreed   int64 `json:"bytesFreed"`
}

func (r *PruneResult) add(other PruneResult) {
	r.FilesRemoved += other.FilesRemoved
	r.DirsRemoved += other.DirsRemoved
	r.BytesFreed += other.BytesFreed
}

// PruneOlderThan deletes regular files under root whose modification time is
// before cutoff, then removes directories that those deletions left empty.
// Directories that were already empty and root itself are kept. A missing
// root prunes nothing.
func PruneOlderThan(fsys afero.Fs, root string, cutoff time.Time) (PruneResult, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return PruneResult{}, nil
		}
		return PruneResult{}, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return PruneResult{}, fmt.Errorf("prune root %s is not a directory", root)
	}
	res, _, err := pruneDir(fsys, root, cutoff)
	return res, err
}

// pruneDir returns whether anything below dir was removed.
func pruneDir(fsys afero.Fs, dir string, cutoff time.Time) (PruneResult, bool, error) {
	var res PruneResult
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return res, false, fmt.Errorf("read directory %s: %w", dir, err)
	}
	removed := false
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			sub, subRemoved, err := pruneDir(fsys, path, cutoff)
			res.add(sub)
			if err != nil {
				return res, removed || subRemoved, err
			}
			if !subRemoved {
				continue
			}
			removed = true
			empty, err := IsEmptyDir(fsys, path)
			if err != nil {
				return res, removed, err
			}
			if empty {
				if err := fsys.Remove(path); err != nil {
					return res, removed, fmt.Errorf("remove empty directory %s: %w", path, err)
				}
				res.DirsRemoved++
			}
			continue
		}
		if !entry.Mode().IsRegular() || !entry.ModTime().Before(cutoff) {
			continue
		}
		if err := fsys.Remove(path); err != nil {
			return res, removed, fmt.Errorf("remove %s: %w", path, err)
		}
		res.FilesRemoved++
		res.BytesFreed += entry.Size()
		removed = true
	}
	return res, removed, nil
}
