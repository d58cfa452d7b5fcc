// Package data holds the commands that locate, validate and relocate the data tree.
package data

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/compozy/storagectl/cli/cmd"
	"github.com/compozy/storagectl/cli/helpers"
	"github.com/compozy/storagectl/engine/core"
	"github.com/compozy/storagectl/engine/storage"
	"github.com/compozy/storagectl/engine/validate"
	"github.com/compozy/storagectl/pkg/logger"
	"github.com/spf13/cobra"
)

// Commands returns the top-level data commands.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		NewPathsCommand(),
		NewSelectCommand(),
		NewValidateCommand(),
		NewLinkCommand(),
		NewMoveCommand(),
		NewExportCommand(),
		NewImportCommand(),
	}
}

type pathsView struct {
	storage.Paths `yaml:",inline"`
	Strategy string `json:"strategy" yaml:"strategy"`
}

func (v pathsView) Render() string {
	return helpers.RenderKeyValues("Storage paths",
		helpers.KV{Key: "base", Value: v.BasePath},
		helpers.KV{Key: "projects", Value: v.ProjectPath},
		helpers.KV{Key: "media", Value: v.MediaPath},
		helpers.KV{Key: "cache", Value: v.CachePath},
		helpers.KV{Key: "resolved by", Value: v.Strategy},
	)
}

func NewPathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show the resolved data locations",
		Long:  "Resolve the data root and print the project, media and cache locations, creating the roots if needed.",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{JSON: handlePaths}, args)
		},
	}
}

func handlePaths(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
	p, err := e.Service().GetPaths(ctx)
	if err != nil {
		return err
	}
	return e.Output(pathsView{Paths: p, Strategy: e.Service().Resolver().Strategy()})
}

type selectView struct {
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Selected bool   `json:"selected"       yaml:"selected"`
}

func (v selectView) Render() string {
	if !v.Selected {
		return "No directory selected"
	}
	return helpers.RenderSuccess("Selected " + v.Path)
}

func NewSelectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "select",
		Short: "Pick a directory interactively",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{JSON: handleSelect}, args)
		},
	}
}

func handleSelect(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
	path, ok, err := e.Service().SelectDirectory(ctx)
	if err != nil {
		return err
	}
	return e.Output(selectView{Path: path, Selected: ok})
}

type validateView struct {
	Path string `json:"path" yaml:"path"`
	validate.Result `yaml:",inline"`
}

func (v validateView) Render() string {
	if !v.Valid {
		return helpers.RenderKeyValues("Not a data directory",
			helpers.KV{Key: "path", Value: v.Path},
			helpers.KV{Key: "reason", Value: v.Error},
		)
	}
	return helpers.RenderKeyValues("Valid data directory",
		helpers.KV{Key: "path", Value: v.Path},
		helpers.KV{Key: "projects", Value: strconv.Itoa(*v.ProjectCount)},
		helpers.KV{Key: "media", Value: strconv.Itoa(*v.MediaCount)},
	)
}

func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Check whether a directory holds project or media data",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{JSON: handleValidate}, args)
		},
	}
}

func handleValidate(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, args []string) error {
	path, err := e.PathArg(ctx, args)
	if err != nil {
		return err
	}
	res := e.Service().ValidateDataDir(ctx, path)
	return e.OutputResult(validateView{Path: path, Result: res}, res.Valid, core.KindOf(res.Err), res.Error)
}

type operationView struct {
	Operation string `json:"operation" yaml:"operation"`
	storage.OperationResult `yaml:",inline"`
}

func (v operationView) Render() string {
	if v.Success {
		if v.Path == "" {
			return helpers.RenderSuccess(v.Operation + " complete")
		}
		return helpers.RenderSuccess(fmt.Sprintf("%s complete: %s", v.Operation, v.Path))
	}
	return helpers.RenderKeyValues(v.Operation+" failed",
		helpers.KV{Key: "code", Value: string(v.Code)},
		helpers.KV{Key: "error", Value: v.Error},
	)
}

type operation func(s *storage.Service, ctx context.Context, path string) storage.OperationResult

func newOperationCommand(use, short, long string, op operation) *cobra.Command {
	name := strings.Fields(use)[0]
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			handler := func(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, posArgs []string) error {
				path, err := e.PathArg(ctx, posArgs)
				if err != nil {
					return err
				}
				log := logger.FromContext(ctx).With("operation", name, "path", path)
				log.Debug("starting storage operation")
				res := op(e.Service(), ctx, path)
				log.Debug("storage operation finished", "success", res.Success, "code", res.Code)
				view := operationView{Operation: name, OperationResult: res}
				return e.OutputResult(view, res.Success, res.Code, res.Error)
			}
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{JSON: handler}, args)
		},
	}
}

func NewLinkCommand() *cobra.Command {
	return newOperationCommand(
		"link [path]",
		"Point the config at an existing data directory",
		"Repoint the data root at a directory that already contains projects/ or media/. No files are copied.",
		(*storage.Service).LinkData,
	)
}

func NewMoveCommand() *cobra.Command {
	return newOperationCommand(
		"move [path]",
		"Copy the data tree to a new location and switch to it",
		"Copy projects/ and media/ into the target, repoint the config, then remove the old copies.",
		(*storage.Service).MoveData,
	)
}

func NewExportCommand() *cobra.Command {
	return newOperationCommand(
		"export [path]",
		"Write a timestamped snapshot of the data tree",
		"Create export-<UTC timestamp>/ under the target holding copies of projects/ and media/.",
		(*storage.Service).ExportData,
	)
}

func NewImportCommand() *cobra.Command {
	return newOperationCommand(
		"import [path]",
		"Replace the live data with the contents of a directory",
		"Back up the live data, replace it with the source's projects/ and media/, and roll back if any copy fails.",
		(*storage.Service).ImportData,
	)
}
