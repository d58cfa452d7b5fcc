// Package cache holds the commands that measure and clear the cache directories.
package cache

import (
	"context"
	"fmt"

	"github.com/compozy/storagectl/cli/cmd"
	"github.com/compozy/storagectl/cli/helpers"
	enginecache "github.com/compozy/storagectl/engine/cache"
	"github.com/compozy/storagectl/engine/storage"
	"github.com/spf13/cobra"
)

const flagOlderThanDays = "older-than-days"

// NewCacheCommand creates the cache command group
func NewCacheCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear cache directories",
	}
	command.AddCommand(NewSizeCommand(), NewClearCommand())
	return command
}

type sizeView struct {
	enginecache.SizeReport `yaml:",inline"`
}

func (v sizeView) Render() string {
	rows := make([]helpers.KV, 0, len(v.Details)+1)
	for _, d := range v.Details {
		rows = append(rows, helpers.KV{Key: d.Path, Value: helpers.FormatBytes(d.Size)})
	}
	rows = append(rows, helpers.KV{Key: "total", Value: helpers.FormatBytes(v.Total)})
	return helpers.RenderKeyValues("Cache size", rows...)
}

func NewSizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Measure the cache directories",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{JSON: handleSize}, args)
		},
	}
}

// handleSize prints partial sizes even when a directory could not be measured.
func handleSize(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
	report, err := e.Service().GetCacheSize(ctx)
	if outErr := e.Output(sizeView{SizeReport: report}); outErr != nil {
		return outErr
	}
	return err
}

type clearView struct {
	storage.ClearCacheResult `yaml:",inline"`
	OlderThanDays            *int `json:"olderThanDays,omitempty" yaml:"olderThanDays,omitempty"`
}

func (v clearView) Render() string {
	if !v.Success {
		return helpers.RenderKeyValues("Cache clear failed",
			helpers.KV{Key: "code", Value: string(v.Code)},
			helpers.KV{Key: "error", Value: v.Error},
		)
	}
	msg := "Cleared " + helpers.FormatBytes(*v.ClearedBytes)
	if v.OlderThanDays != nil {
		msg += fmt.Sprintf(" older than %d days", *v.OlderThanDays)
	}
	return helpers.RenderSuccess(msg)
}

func NewClearCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "clear",
		Short: "Clear the cache directories",
		Long:  "Delete everything in the cache directories, or with --older-than-days only files not modified within that many days.",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{JSON: handleClear}, args)
		},
	}
	command.Flags().Int(flagOlderThanDays, 0, "Only delete files older than this many days")
	return command
}

func handleClear(ctx context.Context, cobraCmd *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
	var req storage.ClearCacheRequest
	if cobraCmd.Flags().Changed(flagOlderThanDays) {
		days, err := cobraCmd.Flags().GetInt(flagOlderThanDays)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", flagOlderThanDays, err)
		}
		req.OlderThanDays = &days
	}
	res := e.Service().ClearCache(ctx, req)
	return e.OutputResult(clearView{ClearCacheResult: res, OlderThanDays: req.OlderThanDays}, res.Success, res.Code, res.Error)
}
