package config

import (
	"context"
	"fmt"
	"strconv"

	"github.com/compozy/storagectl/cli/cmd"
	"github.com/compozy/storagectl/cli/helpers"
	"github.com/compozy/storagectl/engine/storage"
	pkgconfig "github.com/compozy/storagectl/pkg/config"
	"github.com/compozy/storagectl/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	flagAutoClean     = "auto-clean"
	flagAutoCleanDays = "auto-clean-days"
)

// NewConfigCommand creates the config command using the unified command pattern
func NewConfigCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Show or change the storage configuration",
	}
	command.AddCommand(
		NewConfigShowCommand(),
		NewConfigSetCommand(),
	)
	return command
}

type showView struct {
	File   string                  `json:"file"   yaml:"file"`
	Config pkgconfig.StorageConfig `json:"config" yaml:"config"`
}

func (v showView) Render() string {
	return renderConfig("Storage config", v.File, v.Config)
}

func renderConfig(title, file string, cfg pkgconfig.StorageConfig) string {
	rows := []helpers.KV{
		{Key: "file", Value: file},
		{Key: "base_path", Value: orUnset(cfg.BasePath)},
	}
	if cfg.ProjectPath != "" {
		rows = append(rows, helpers.KV{Key: "project_path (legacy)", Value: cfg.ProjectPath})
	}
	if cfg.MediaPath != "" {
		rows = append(rows, helpers.KV{Key: "media_path (legacy)", Value: cfg.MediaPath})
	}
	rows = append(rows,
		helpers.KV{Key: "auto_clean_enabled", Value: strconv.FormatBool(cfg.AutoCleanEnabled)},
		helpers.KV{Key: "auto_clean_days", Value: strconv.Itoa(cfg.AutoCleanDays)},
	)
	return helpers.RenderKeyValues(title, rows...)
}

func orUnset(s string) string {
	if s == "" {
		return "(platform default)"
	}
	return s
}

// NewConfigShowCommand creates the config show subcommand
func NewConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration values",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{JSON: handleConfigShow}, args)
		},
	}
}

func handleConfigShow(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
	logger.FromContext(ctx).Debug("executing config show command")
	var file string
	if store := e.Store(); store != nil {
		file = store.Path()
	}
	return e.Output(showView{File: file, Config: e.Service().Config()})
}

type setView struct {
	storage.Ack `yaml:",inline"`
	file        string
}

func (v setView) Render() string {
	if !v.Success {
		return helpers.RenderKeyValues("Config update failed",
			helpers.KV{Key: "code", Value: string(v.Code)},
			helpers.KV{Key: "error", Value: v.Error},
		)
	}
	return renderConfig("Storage config updated", v.file, v.Config)
}

// NewConfigSetCommand creates the config set subcommand
func NewConfigSetCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "set",
		Short: "Change the auto-clean policy",
		Long:  "Update the auto-clean policy, persist it and re-arm the daily clean.",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{JSON: handleConfigSet}, args)
		},
	}
	command.Flags().Bool(flagAutoClean, false, "Enable or disable the daily cache clean")
	command.Flags().Int(flagAutoCleanDays, pkgconfig.DefaultAutoCleanDays, "Age in days past which auto-clean deletes cache files")
	return command
}

func handleConfigSet(ctx context.Context, cobraCmd *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
	req, err := updateRequest(cobraCmd)
	if err != nil {
		return err
	}
	if req.AutoCleanEnabled == nil && req.AutoCleanDays == nil {
		return helpers.NewCliError("MISSING_FLAG", "nothing to change",
			fmt.Sprintf("set --%s or --%s", flagAutoClean, flagAutoCleanDays))
	}
	ack := e.Service().UpdateConfig(ctx, req)
	var file string
	if store := e.Store(); store != nil {
		file = store.Path()
	}
	return e.OutputResult(setView{Ack: ack, file: file}, ack.Success, ack.Code, ack.Error)
}

func updateRequest(cobraCmd *cobra.Command) (storage.UpdateConfigRequest, error) {
	var req storage.UpdateConfigRequest
	flags := cobraCmd.Flags()
	if flags.Changed(flagAutoClean) {
		v, err := flags.GetBool(flagAutoClean)
		if err != nil {
			return req, fmt.Errorf("failed to get %s flag: %w", flagAutoClean, err)
		}
		req.AutoCleanEnabled = &v
	}
	if flags.Changed(flagAutoCleanDays) {
		v, err := flags.GetInt(flagAutoCleanDays)
		if err != nil {
			return req, fmt.Errorf("failed to get %s flag: %w", flagAutoCleanDays, err)
		}
		req.AutoCleanDays = &v
	}
	return req, nil
}
