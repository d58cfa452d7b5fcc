package migrate

import (
	"context"

	"github.com/compozy/storagectl/engine/core"
	"github.com/compozy/storagectl/pkg/fsutil"
)

// Move copies the live data to target, switches the config to it and then
// deletes the old roots. The config is only updated after both copies
// succeed, so an interrupted move leaves the old base authoritative.
func (e *Engine) Move(ctx context.Context, target string) (string, error) {
	const op = "move"
	log := logFrom(ctx, op)
	dest, err := normalize(op, target)
	if err != nil {
		return "", err
	}
	current := e.resolver.BasePath()
	if core.SamePath(current, dest) {
		log.Info("target is already the data directory", "path", dest)
		return dest, nil
	}
	if core.IsWithin(current, dest) {
		return "", core.NewConflictError(op, dest, core.SourceIsAncestor)
	}
	if core.IsWithin(dest, current) {
		return "", core.NewConflictError(op, dest, core.DestIsAncestor)
	}

	oldProjects, err := e.resolver.ProjectRoot()
	if err != nil {
		return "", core.NewError(core.KindCopyFailure, op, oldProjects, err)
	}
	oldMedia, err := e.resolver.MediaRoot()
	if err != nil {
		return "", core.NewError(core.KindCopyFailure, op, oldMedia, err)
	}
	newProjects, newMedia := dataDirs(dest)
	for _, pair := range [][2]string{{oldProjects, newProjects}, {oldMedia, newMedia}} {
		if err := fsutil.EnsureDir(e.fs, pair[1]); err != nil {
			return "", core.NewError(core.KindCopyFailure, op, pair[1], err)
		}
		if err := fsutil.CopyTree(e.fs, pair[0], pair[1]); err != nil {
			log.Error("copy failed, keeping current data directory", "from", pair[0], "to", pair[1], "error", err)
			return "", core.NewError(core.KindCopyFailure, op, pair[1], err)
		}
	}

	if err := e.repoint(ctx, op, dest); err != nil {
		return "", err
	}
	log.Info("data copied", "from", current, "to", dest)

	for _, old := range []string{oldProjects, oldMedia} {
		if e.protected(old) {
			log.Debug("keeping old root inside application data directory", "path", old)
			continue
		}
		if err := fsutil.RemoveAll(ctx, e.fs, old); err != nil {
			log.Warn("failed to remove old data root", "path", old, "error", err)
		}
	}
	return dest, nil
}
