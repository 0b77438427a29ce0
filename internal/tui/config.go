package tui

import (
	"github.com/CirroBio/cirro-annotation/internal/tui/themes"
	"github.com/CirroBio/cirro-annotation/internal/workflow"
)

// Config holds TUI configuration.
type Config struct {
	Theme themes.Theme
	// Editor defaults to an editor on the default document.
	Editor *workflow.Editor
	// OutputPath is where ctrl+s writes the zip.
	OutputPath string
	// ImportPath pre-fills the ctrl+o prompt.
	ImportPath string
	// Processes are the "Name (id)" labels offered for the process fields.
	Processes []string
	Width     int
	Height    int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:      themes.Default,
		OutputPath: workflow.ArchiveName,
		ImportPath: ".",
		Width:      80,
		Height:     24,
	}
}

// WithEditor sets the editor whose document is shown.
func WithEditor(editor *workflow.Editor) Option {
	return func(c *Config) {
		c.Editor = editor
	}
}

// WithOutputPath sets where the zip is saved.
func WithOutputPath(path string) Option {
	return func(c *Config) {
		c.OutputPath = path
	}
}

// WithImportPath sets the default directory or zip offered for loading.
func WithImportPath(path string) Option {
	return func(c *Config) {
		c.ImportPath = path
	}
}

// WithProcesses sets the process labels listed for parent and child processes.
func WithProcesses(labels []string) Option {
	return func(c *Config) {
		c.Processes = labels
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}
