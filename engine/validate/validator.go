// Package validate inspects candidate data directories without modifying them.
package validate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/compozy/storagectl/engine/core"
	"github.com/compozy/storagectl/engine/paths"
	"github.com/compozy/storagectl/pkg/logger"
	"github.com/spf13/afero"
)

// Result is the outcome of validating a directory. Counts are only set when Valid.
type Result struct {
	Valid        bool   `json:"valid"                  yaml:"valid"`
	Error        string `json:"error,omitempty"        yaml:"error,omitempty"`
	ProjectCount *int   `json:"projectCount,omitempty" yaml:"project_count,omitempty"`
	MediaCount   *int   `json:"mediaCount,omitempty"   yaml:"media_count,omitempty"`
	// Err carries the typed error behind Error.
	Err error `json:"-" yaml:"-"`
}

// Counts holds the number of recognizable entities in a data directory.
type Counts struct {
	Projects int
	Media    int
}

type Validator struct {
	fs afero.Fs
}

func New(fsys afero.Fs) *Validator {
	return &Validator{fs: fsys}
}

// Validate reports whether path looks like a data root.
func (v *Validator) Validate(ctx context.Context, path string) Result {
	counts, err := v.Inspect(path)
	if err != nil {
		logger.FromContext(ctx).Debug("data directory rejected", "path", path, "error", err)
		return Result{Valid: false, Error: err.Error(), Err: err}
	}
	return Result{Valid: true, ProjectCount: &counts.Projects, MediaCount: &counts.Media}
}

// Inspect counts projects and media under path. It fails with ErrInvalidPath,
// ErrDirectoryNotFound or ErrNoValidData.
func (v *Validator) Inspect(path string) (Counts, error) {
	const op = "validate"
	if strings.TrimSpace(path) == "" {
		return Counts{}, core.NewError(core.KindInvalidPath, op, path, nil)
	}
	path = filepath.Clean(path)
	info, err := v.fs.Stat(path)
	if err != nil || !info.IsDir() {
		return Counts{}, core.NewError(core.KindDirectoryNotFound, op, path, err)
	}
	projects, err := v.countProjects(filepath.Join(path, paths.ProjectsDir))
	if err != nil {
		return Counts{}, core.NewError(core.KindInternal, op, path, err)
	}
	media, err := v.countVisible(filepath.Join(path, paths.MediaDir), false)
	if err != nil {
		return Counts{}, core.NewError(core.KindInternal, op, path, err)
	}
	if projects == 0 && media == 0 {
		return Counts{}, core.NewError(core.KindNoValidData, op, path, nil)
	}
	return Counts{Projects: projects, Media: media}, nil
}

// HasDataDirs reports whether path contains a projects/ or media/ directory,
// empty or not. Link only requires this weaker condition.
func (v *Validator) HasDataDirs(path string) bool {
	for _, name := range []string{paths.ProjectsDir, paths.MediaDir} {
		info, err := v.fs.Stat(filepath.Join(path, name))
		if err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// countProjects takes the larger of the flat file count in projects/ and the
// nested directory count in projects/_p/.
func (v *Validator) countProjects(dir string) (int, error) {
	flat, err := v.countVisible(dir, true)
	if err != nil {
		return 0, err
	}
	nested, err := v.countDirs(filepath.Join(dir, paths.NestedProjectsDir))
	if err != nil {
		return 0, err
	}
	return max(flat, nested), nil
}

func (v *Validator) countVisible(dir string, filesOnly bool) (int, error) {
	entries, err := v.readDir(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if filesOnly && !e.Mode().IsRegular() {
			continue
		}
		n++
	}
	return n, nil
}

func (v *Validator) countDirs(dir string) (int, error) {
	entries, err := v.readDir(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			n++
		}
	}
	return n, nil
}

// readDir treats a missing or non-directory path as empty.
func (v *Validator) readDir(dir string) ([]os.FileInfo, error) {
	info, err := v.fs.Stat(dir)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	entries, err := afero.ReadDir(v.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	return entries, nil
}
