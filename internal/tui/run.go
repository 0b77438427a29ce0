package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/CirroBio/cirro-annotation/internal/workflow"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the workflow form until the user quits and returns the editor
// holding the final state.
func Run(ctx context.Context, opts ...Option) (*workflow.Editor, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	m, err := newModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return m.editor, ctx.Err()
		}
		return m.editor, fmt.Errorf("TUI error: %w", err)
	}
	return m.editor, nil
}
