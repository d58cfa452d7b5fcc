package migrate

import (
	"context"

	"github.com/compozy/storagectl/engine/core"
)

// Link points the config at an existing data directory without copying.
// The directory must contain projects/ or media/. Linking the current base
// again is harmless.
func (e *Engine) Link(ctx context.Context, path string) (string, error) {
	const op = "link"
	target, err := normalize(op, path)
	if err != nil {
		return "", err
	}
	if err := e.requireDir(op, target); err != nil {
		return "", err
	}
	if !e.validator.HasDataDirs(target) {
		return "", core.NewError(core.KindNoValidData, op, target, nil)
	}
	if err := e.repoint(ctx, op, target); err != nil {
		return "", err
	}
	logFrom(ctx, op).Info("data directory linked", "path", target)
	return target, nil
}
