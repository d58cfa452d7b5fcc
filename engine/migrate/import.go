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
	"github.com/compozy/storagectl/pkg/logger"
)

const backupPrefix = "storagectl-import-"

// ImportState tracks how far an import got, which decides what a failure has to undo.
type ImportState int

const (
	StateIdle ImportState = iota
	StateBackedUp
	StateSwapping
	StateCommitted
	StateRollingBack
)

func (s ImportState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBackedUp:
		return "backed_up"
	case StateSwapping:
		return "swapping"
	case StateCommitted:
		return "committed"
	case StateRollingBack:
		return "rolling_back"
	default:
		return fmt.Sprintf("ImportState(%d)", int(s))
	}
}

type dataKind struct {
	name     string
	live     string
	source   string
	backedUp bool
	touched  bool
}

// importTx replaces the live roots with the source roots. Live data is copied
// into a backup snapshot first; a failure while swapping restores every
// touched root from it. The swap is copy based, not rename based, so a hard
// crash mid-swap can leave live data partially replaced.
type importTx struct {
	ctx       context.Context
	e         *Engine
	log       logger.Logger
	state     ImportState
	backupDir string
	kinds     []*dataKind
	present   []*dataKind
}

// Import replaces live data with the projects/ and media/ trees found in
// source. Kinds missing from source are left untouched.
func (e *Engine) Import(ctx context.Context, source string) error {
	const op = "import"
	src, err := normalize(op, source)
	if err != nil {
		return err
	}
	if err := e.requireDir(op, src); err != nil {
		return err
	}
	if !e.validator.HasDataDirs(src) {
		return core.NewError(core.KindNoValidData, op, src, nil)
	}
	if err := e.checkImportOverlap(op, src); err != nil {
		return err
	}
	base := e.resolver.BasePath()

	tx := e.newImportTx(ctx, src)
	if err := tx.backup(); err != nil {
		tx.discardBackup()
		return core.NewError(core.KindCopyFailure, op, src, err)
	}
	if err := tx.swap(); err != nil {
		tx.log.Error("import failed, restoring previous data", "source", src, "error", err)
		tx.rollback()
		return core.NewError(core.KindCopyFailure, op, src, err)
	}
	tx.commit()
	tx.log.Info("data imported", "source", src, "base", base)
	return nil
}

// checkImportOverlap rejects a source that lives inside a live root, or whose
// projects/ or media/ contains one. Any other placement, including a snapshot
// under the base directory, is a separate tree.
func (e *Engine) checkImportOverlap(op, src string) error {
	roots := []string{e.resolver.ProjectDir(), e.resolver.MediaDir()}
	for _, root := range roots {
		if core.SamePath(root, src) || core.IsWithin(root, src) {
			return core.NewConflictError(op, src, core.SourceIsAncestor)
		}
	}
	for _, name := range []string{paths.ProjectsDir, paths.MediaDir} {
		dir := filepath.Join(src, name)
		for _, root := range roots {
			if core.SamePath(dir, root) || core.IsWithin(dir, root) {
				return core.NewConflictError(op, src, core.DestIsAncestor)
			}
		}
	}
	return nil
}

func (e *Engine) newImportTx(ctx context.Context, src string) *importTx {
	tx := &importTx{
		ctx:       ctx,
		e:         e,
		log:       logFrom(ctx, "import"),
		state:     StateIdle,
		backupDir: filepath.Join(e.tempDir, backupPrefix+e.newID()),
	}
	for _, k := range []struct{ name, live string }{
		{paths.ProjectsDir, e.resolver.ProjectDir()},
		{paths.MediaDir, e.resolver.MediaDir()},
	} {
		kind := &dataKind{name: k.name, live: k.live, source: filepath.Join(src, k.name)}
		tx.kinds = append(tx.kinds, kind)
		if fsutil.IsDir(e.fs, kind.source) {
			tx.present = append(tx.present, kind)
		}
	}
	return tx
}

// backup copies each non-empty live root into the snapshot directory.
func (tx *importTx) backup() error {
	fs := tx.e.fs
	if err := fs.MkdirAll(tx.backupDir, 0o700); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	for _, kind := range tx.kinds {
		empty, err := fsutil.IsEmptyDir(fs, kind.live)
		if err != nil {
			return err
		}
		if empty {
			continue
		}
		if err := fsutil.CopyTree(fs, kind.live, filepath.Join(tx.backupDir, kind.name)); err != nil {
			return fmt.Errorf("back up %s: %w", kind.name, err)
		}
		kind.backedUp = true
	}
	tx.transition(StateBackedUp)
	return nil
}

// swap replaces each present kind, then clears the migration marker so
// one-time migrations run again against the imported data.
func (tx *importTx) swap() error {
	tx.transition(StateSwapping)
	for _, kind := range tx.present {
		kind.touched = true
		if err := fsutil.RemoveAll(tx.ctx, tx.e.fs, kind.live); err != nil {
			return err
		}
		if err := fsutil.CopyTree(tx.e.fs, kind.source, kind.live); err != nil {
			return err
		}
	}
	marker := filepath.Join(tx.e.resolver.ProjectDir(), paths.MigrationMarker)
	if err := tx.e.fs.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear migration marker: %w", err)
	}
	return nil
}

// rollback restores touched roots from the backup. Failures are logged and
// never replace the error that caused the rollback.
func (tx *importTx) rollback() {
	tx.transition(StateRollingBack)
	for _, kind := range tx.kinds {
		if !kind.touched {
			continue
		}
		if err := tx.restore(kind); err != nil {
			rbErr := core.NewError(core.KindRollbackFailure, "import", kind.live, err)
			tx.log.Error("failed to restore data root", "path", kind.live, "error", rbErr)
		}
	}
	tx.discardBackup()
	tx.transition(StateIdle)
}

func (tx *importTx) restore(kind *dataKind) error {
	if err := fsutil.RemoveAll(tx.ctx, tx.e.fs, kind.live); err != nil {
		return err
	}
	if !kind.backedUp {
		return fsutil.EnsureDir(tx.e.fs, kind.live)
	}
	return fsutil.CopyTree(tx.e.fs, filepath.Join(tx.backupDir, kind.name), kind.live)
}

func (tx *importTx) commit() {
	tx.transition(StateCommitted)
	tx.discardBackup()
}

func (tx *importTx) discardBackup() {
	if err := fsutil.RemoveAll(tx.ctx, tx.e.fs, tx.backupDir); err != nil {
		tx.log.Warn("failed to remove import backup", "path", tx.backupDir, "error", err)
	}
}

func (tx *importTx) transition(next ImportState) {
	tx.log.Debug("import state", "from", tx.state.String(), "to", next.String())
	tx.state = next
}
