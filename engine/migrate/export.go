package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compozy/storagectl/engine/core"
	"github.com/compozy/storagectl/engine/paths"
	"github.com/compozy/storagectl/pkg/fsutil"
)

const (
	exportPrefix = "export-"
	// exportTimeLayout sorts lexicographically and avoids ':' for Windows.
	exportTimeLayout = "2006-01-02T15-04-05Z"
	maxExportSuffix  = 1000
)

// Export copies the live project and media roots into a new timestamped
// directory under target and returns its path. Live data and config are
// never modified; a failed export may leave a partial snapshot behind.
func (e *Engine) Export(ctx context.Context, target string) (string, error) {
	const op = "export"
	log := logFrom(ctx, op)
	parent, err := normalize(op, target)
	if err != nil {
		return "", err
	}
	liveProjects, liveMedia := e.resolver.ProjectDir(), e.resolver.MediaDir()
	for _, root := range []string{liveProjects, liveMedia} {
		if core.SamePath(root, parent) || core.IsWithin(root, parent) {
			return "", core.NewConflictError(op, parent, core.SourceIsAncestor)
		}
	}
	if err := fsutil.EnsureDir(e.fs, parent); err != nil {
		return "", core.NewError(core.KindCopyFailure, op, parent, err)
	}
	snapshot, err := e.createSnapshotDir(parent)
	if err != nil {
		return "", core.NewError(core.KindCopyFailure, op, parent, err)
	}

	for _, kind := range []struct{ live, name string }{
		{liveProjects, paths.ProjectsDir},
		{liveMedia, paths.MediaDir},
	} {
		dst := filepath.Join(snapshot, kind.name)
		if err := fsutil.EnsureDir(e.fs, dst); err != nil {
			return snapshot, core.NewError(core.KindCopyFailure, op, dst, err)
		}
		if !fsutil.IsDir(e.fs, kind.live) {
			continue
		}
		if err := fsutil.CopyTree(e.fs, kind.live, dst); err != nil {
			log.Error("export incomplete", "snapshot", snapshot, "error", err)
			return snapshot, core.NewError(core.KindCopyFailure, op, dst, err)
		}
	}
	log.Info("data exported", "snapshot", snapshot)
	return snapshot, nil
}

// createSnapshotDir creates a fresh directory named after the current time.
// An existing snapshot with the same name gets a numeric suffix instead of
// being merged into.
func (e *Engine) createSnapshotDir(parent string) (string, error) {
	base := exportPrefix + e.now().UTC().Format(exportTimeLayout)
	name := base
	for i := 2; i <= maxExportSuffix; i++ {
		dir := filepath.Join(parent, name)
		err := e.fs.Mkdir(dir, fsutil.DirPerm)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create snapshot directory %s: %w", dir, err)
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("too many snapshots named %s in %s", base, parent)
}
