package cmd

import (
	"context"

	"github.com/compozy/storagectl/cli/helpers"
	"github.com/compozy/storagectl/engine/core"
)

// OutputResult writes data and turns a failed result into a non-zero exit.
func (e *CommandExecutor) OutputResult(data any, success bool, code core.Kind, message string) error {
	if err := e.Output(data); err != nil {
		return err
	}
	if success {
		return nil
	}
	return helpers.ResultError(code, message)
}

// PathArg returns args[0], or asks the directory picker when no path was given.
func (e *CommandExecutor) PathArg(ctx context.Context, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	path, ok, err := e.service.SelectDirectory(ctx)
	if err != nil {
		return "", helpers.NewCliError("NO_PATH", "no path given and no directory could be picked", err.Error())
	}
	if !ok {
		return "", context.Canceled
	}
	return path, nil
}
