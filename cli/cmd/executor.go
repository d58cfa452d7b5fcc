package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/storagectl/cli/helpers"
	"github.com/compozy/storagectl/cli/tui/models"
	"github.com/compozy/storagectl/engine/storage"
	"github.com/compozy/storagectl/pkg/config"
	"github.com/compozy/storagectl/pkg/logger"
	"github.com/spf13/cobra"
)

// ErrNoService is returned when a command runs without the root setup.
var ErrNoService = errors.New("storage service not found in context")

// CommandExecutor handles common setup and execution patterns for CLI commands:
// service lookup, mode detection and error rendering.
type CommandExecutor struct {
	mode    models.Mode
	service *storage.Service
	store   *config.Store
	out     *helpers.OutputWriter
}

// HandlerFunc defines the signature for command handlers.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, executor *CommandExecutor, args []string) error

// ModeHandlers contains handlers for different execution modes. TUI falls back to JSON when unset.
type ModeHandlers struct {
	JSON HandlerFunc
	TUI  HandlerFunc
}

// ContextWithService stores the storage service in the context
func ContextWithService(ctx context.Context, svc *storage.Service) context.Context {
	return context.WithValue(ctx, helpers.ServiceKey, svc)
}

// ServiceFromContext retrieves the storage service from the context, or nil.
func ServiceFromContext(ctx context.Context) *storage.Service {
	svc, _ := ctx.Value(helpers.ServiceKey).(*storage.Service)
	return svc
}

// NewCommandExecutor creates a new command executor with all necessary setup.
func NewCommandExecutor(cmd *cobra.Command) (*CommandExecutor, error) {
	ctx := cmd.Context()
	mode := helpers.DetectMode(cmd)
	logger.FromContext(ctx).Debug("detected execution mode", "mode", mode)
	svc := ServiceFromContext(ctx)
	if svc == nil {
		return nil, ErrNoService
	}
	return &CommandExecutor{
		mode:    mode,
		service: svc,
		store:   config.StoreFromContext(ctx),
		out:     helpers.NewOutputWriter(cmd.OutOrStdout(), helpers.DetectFormat(cmd)),
	}, nil
}

// Execute runs the appropriate handler based on the detected mode.
func (e *CommandExecutor) Execute(ctx context.Context, cmd *cobra.Command, handlers ModeHandlers, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	switch e.mode {
	case models.ModeJSON:
		if handlers.JSON == nil {
			return fmt.Errorf("JSON mode handler not implemented")
		}
		return handlers.JSON(ctx, cmd, e, args)
	case models.ModeTUI:
		if handlers.TUI == nil {
			if handlers.JSON == nil {
				return fmt.Errorf("TUI mode handler not implemented")
			}
			return handlers.JSON(ctx, cmd, e, args)
		}
		return handlers.TUI(ctx, cmd, e, args)
	default:
		return fmt.Errorf("unsupported mode: %s", e.mode)
	}
}

// Service returns the storage service.
func (e *CommandExecutor) Service() *storage.Service {
	return e.service
}

// Store returns the config store, or nil if none was set up.
func (e *CommandExecutor) Store() *config.Store {
	return e.store
}

// GetMode returns the detected execution mode.
func (e *CommandExecutor) GetMode() models.Mode {
	return e.mode
}

// Output writes data in the detected format.
func (e *CommandExecutor) Output(data any) error {
	return e.out.WriteData(data)
}

// ExecuteCommand is a convenience function that combines executor creation and execution.
func ExecuteCommand(cmd *cobra.Command, handlers ModeHandlers, args []string) error {
	executor, err := NewCommandExecutor(cmd)
	if err != nil {
		return HandleCommonErrors(cmd, err, helpers.DetectMode(cmd))
	}
	return HandleCommonErrors(cmd, executor.Execute(cmd.Context(), cmd, handlers, args), executor.GetMode())
}

// HandleCommonErrors provides consistent error handling across all commands.
// The error is printed here so cobra is configured with SilenceErrors.
func HandleCommonErrors(cmd *cobra.Command, err error, mode models.Mode) error {
	if err == nil {
		return nil
	}
	if cliErr := helpers.CategorizeError(err); cliErr != nil {
		err = cliErr
	}
	helpers.OutputError(cmd.ErrOrStderr(), err, mode)
	return &ReportedError{Err: err}
}

// ReportedError wraps an error that was already printed to the user.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string {
	return e.Err.Error()
}

func (e *ReportedError) Unwrap() error {
	return e.Err
}
