package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

// Renderer is implemented by values with a styled terminal view.
type Renderer interface {
	Render() string
}

// OutputWriter handles different output formats
type OutputWriter struct {
	writer io.Writer
	format OutputFormat
}

// NewOutputWriter creates a new output writer
func NewOutputWriter(writer io.Writer, format OutputFormat) *OutputWriter {
	return &OutputWriter{writer: writer, format: format}
}

// Format returns the format the writer renders in.
func (ow *OutputWriter) Format() OutputFormat {
	return ow.format
}

// WriteData writes data in the configured format
func (ow *OutputWriter) WriteData(data any) error {
	switch ow.format {
	case OutputFormatJSON, OutputFormatAuto, "":
		return ow.writeJSON(data)
	case OutputFormatYAML:
		return ow.writeYAML(data)
	case OutputFormatTUI:
		return ow.writeTUI(data)
	default:
		return fmt.Errorf("unsupported output format: %s", ow.format)
	}
}

func (ow *OutputWriter) writeJSON(data any) error {
	encoder := json.NewEncoder(ow.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (ow *OutputWriter) writeYAML(data any) error {
	encoder := yaml.NewEncoder(ow.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return encoder.Close()
}

// writeTUI falls back to YAML for values without a styled view.
func (ow *OutputWriter) writeTUI(data any) error {
	r, ok := data.(Renderer)
	if !ok {
		return ow.writeYAML(data)
	}
	_, err := fmt.Fprintln(ow.writer, r.Render())
	return err
}

// KV is one row of a key/value view.
type KV struct {
	Key   string
	Value string
}

// RenderKeyValues renders a titled, aligned key/value block.
func RenderKeyValues(title string, rows ...KV) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r.Key))
	}
	var b strings.Builder
	if title != "" {
		b.WriteString(titleStyle.Render(title))
		b.WriteString("\n")
	}
	for i, r := range rows {
		b.WriteString(keyStyle.Render(fmt.Sprintf("%-*s", width, r.Key)))
		b.WriteString("  ")
		b.WriteString(r.Value)
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderSuccess renders a one-line success message.
func RenderSuccess(message string) string {
	return okStyle.Render("✓ " + message)
}

// FormatBytes renders a byte count in IEC units.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
