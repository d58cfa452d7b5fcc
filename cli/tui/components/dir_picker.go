package components

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// DirPicker asks for a directory with a terminal file browser.
type DirPicker struct {
	title      string
	startDir   string
	showHidden bool
}

type DirPickerOption func(*DirPicker)

// WithTitle sets the prompt shown above the browser.
func WithTitle(title string) DirPickerOption {
	return func(p *DirPicker) {
		p.title = title
	}
}

// WithStartDir sets the directory the browser opens in. A missing directory falls back to home.
func WithStartDir(dir string) DirPickerOption {
	return func(p *DirPicker) {
		p.startDir = dir
	}
}

// WithHidden lists dot-directories.
func WithHidden(show bool) DirPickerOption {
	return func(p *DirPicker) {
		p.showHidden = show
	}
}

func NewDirPicker(opts ...DirPickerOption) *DirPicker {
	p := &DirPicker{title: "Select a directory"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PickDirectory runs the browser and returns the chosen directory, or "" if the user aborted.
func (p *DirPicker) PickDirectory(ctx context.Context) (string, error) {
	start, err := p.startDirectory()
	if err != nil {
		return "", err
	}
	var selected string
	form := p.form(start, &selected)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", nil
		}
		return "", fmt.Errorf("directory picker failed: %w", err)
	}
	return selected, nil
}

// startDirectory is the configured start if it is an existing directory, else the home directory.
func (p *DirPicker) startDirectory() (string, error) {
	if p.startDir != "" {
		if info, err := os.Stat(p.startDir); err == nil && info.IsDir() {
			return p.startDir, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return home, nil
}

func (p *DirPicker) form(start string, value *string) *huh.Form {
	picker := huh.NewFilePicker().
		Title(p.title).
		Description("enter opens a directory, select picks it").
		CurrentDirectory(start).
		DirAllowed(true).
		FileAllowed(false).
		ShowHidden(p.showHidden).
		Picking(true).
		Value(value)
	return huh.NewForm(huh.NewGroup(picker)).WithTheme(huh.ThemeCharm())
}
