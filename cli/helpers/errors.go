package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/storagectl/cli/tui/models"
	"github.com/compozy/storagectl/engine/core"
)

// ErrOperationFailed marks a storage result that reported Success=false.
var ErrOperationFailed = errors.New("operation failed")

// CliError represents a CLI-specific error with enhanced context
type CliError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   string         `json:"details,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	cause     error
}

func (e *CliError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CliError) Unwrap() error {
	return e.cause
}

// NewCliError creates a new CLI error with context
func NewCliError(code, message string, details ...string) *CliError {
	err := &CliError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// WithContext adds context to the error
func (e *CliError) WithContext(key string, value any) *CliError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ResultError converts a failed storage result into a CliError carrying its code.
func ResultError(code core.Kind, message string) *CliError {
	if code == "" {
		code = core.KindInternal
	}
	err := NewCliError(string(code), message)
	err.cause = ErrOperationFailed
	return err
}

// CategorizeError converts well-known errors into structured CLI errors, or nil.
func CategorizeError(err error) *CliError {
	var cliErr *CliError
	switch {
	case errors.As(err, &cliErr):
		return cliErr
	case errors.Is(err, context.Canceled):
		return NewCliError("OPERATION_CANCELED", "Operation was canceled by user")
	case errors.Is(err, context.DeadlineExceeded):
		return NewCliError("OPERATION_TIMEOUT", "Operation timed out")
	}
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		c := NewCliError(string(coreErr.Kind), coreErr.Error())
		c.cause = err
		if coreErr.Path != "" {
			c.WithContext("path", coreErr.Path)
		}
		return c
	}
	return nil
}

// FormatError formats errors based on output mode
func FormatError(err error, mode models.Mode) string {
	if err == nil {
		return ""
	}
	if mode == models.ModeTUI {
		return formatErrorTUI(err)
	}
	return formatErrorJSON(err)
}

func formatErrorJSON(err error) string {
	resp := map[string]any{"error": err.Error(), "details": ""}
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		resp = map[string]any{
			"error":   cliErr.Message,
			"code":    cliErr.Code,
			"details": cliErr.Details,
		}
	}
	data, mErr := json.MarshalIndent(resp, "", "  ")
	if mErr != nil {
		return `{"error": "JSON marshaling failed", "details": ""}`
	}
	return string(data)
}

func formatErrorTUI(err error) string {
	message, details := err.Error(), ""
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		message, details = cliErr.Message, cliErr.Details
	}
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF6B6B")).
		Bold(true)
	result := "✗ " + style.Render(message)
	if details != "" {
		detailStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
		result += "\n" + detailStyle.Render("Details: "+details)
	}
	return result
}

// OutputError writes an error to w in the appropriate format
func OutputError(w io.Writer, err error, mode models.Mode) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, FormatError(err, mode))
}
