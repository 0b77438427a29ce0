// Package tui renders the workflow configuration form as a terminal program.
package tui

import (
	"errors"
	"fmt"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/tui/themes"
	"github.com/CirroBio/cirro-annotation/internal/workflow"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Tab is one page of the form.
type Tab int

// Tabs in display order. Every tab but Builder and Changes shows one
// exported file.
const (
	TabBuilder Tab = iota
	TabDynamo
	TabForm
	TabInput
	TabCompute
	TabPreprocess
	TabOutput
	TabChanges
)

var tabNames = []string{"Builder", "Dynamo", "Form", "Input", "Compute", "Preprocess", "Output", "Changes"}

func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return fmt.Sprintf("tab(%d)", int(t))
}

// documentKey is the exported section a file tab shows.
func (t Tab) documentKey() string {
	switch t {
	case TabDynamo:
		return workflow.KeyDynamo
	case TabForm:
		return workflow.KeyForm
	case TabInput:
		return workflow.KeyInput
	case TabCompute:
		return workflow.KeyCompute
	case TabPreprocess:
		return workflow.KeyPreprocess
	case TabOutput:
		return workflow.KeyOutput
	default:
		return ""
	}
}

type mode int

const (
	modeBrowse mode = iota
	modeEdit
	modeImport
)

// Model holds the form state.
type Model struct {
	theme    themes.Theme
	lastErr  error
	editor   *workflow.Editor
	input    textinput.Model
	help     help.Model
	config   Config
	keymap   KeyMap
	status   string
	width    int
	height   int
	cursor   int
	tab      Tab
	mode     mode
	quitting bool
}

// newModel creates a new model with the given configuration.
func newModel(cfg Config) (Model, error) {
	if cfg.Editor == nil {
		editor, err := workflow.NewEditor(nil)
		if err != nil {
			return Model{}, err
		}
		cfg.Editor = editor
	}

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 1024

	return Model{
		theme:  cfg.Theme,
		editor: cfg.Editor,
		input:  input,
		help:   help.New(),
		config: cfg,
		keymap: DefaultKeyMap(),
		width:  cfg.Width,
		height: cfg.Height,
	}, nil
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("failed to save %s: %w", msg.path, msg.err))
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Saved %s", msg.path))
		return m, nil

	case importedMsg:
		m.applyImport(msg)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeEdit:
			return m.updateEdit(msg)
		case modeImport:
			return m.updateImport(msg)
		default:
			return m.updateBrowse(msg)
		}
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.NextTab):
		m.tab = (m.tab + 1) % Tab(len(tabNames))
	case key.Matches(msg, m.keymap.PrevTab):
		m.tab = (m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames))
	case key.Matches(msg, m.keymap.Up):
		if m.tab == TabBuilder && m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keymap.Down):
		if m.tab == TabBuilder && m.cursor < len(workflow.Fields)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keymap.Edit):
		if m.tab == TabBuilder {
			return m, m.startEdit()
		}
	case key.Matches(msg, m.keymap.Undo):
		m.undo()
	case key.Matches(msg, m.keymap.Redo):
		m.redo()
	case key.Matches(msg, m.keymap.Save):
		m.setStatus("Saving...")
		return m, saveArchive(m.config.OutputPath, m.editor.Document())
	case key.Matches(msg, m.keymap.Import):
		m.mode = modeImport
		m.input.Reset()
		m.input.Placeholder = "directory or zip"
		m.input.SetValue(m.config.ImportPath)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) startEdit() tea.Cmd {
	c, err := m.editor.Config()
	if err != nil {
		m.setError(err)
		return nil
	}
	field := m.currentField()
	m.mode = modeEdit
	m.input.Reset()
	m.input.Placeholder = field.Label()
	m.input.SetValue(c.Source.Get(field))
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.stopInput()
		return m, nil
	case key.Matches(msg, m.keymap.Commit):
		field := m.currentField()
		changed, err := m.editor.Set(field, m.input.Value())
		if err != nil {
			// Stay in the field so the value can be corrected.
			m.setError(err)
			return m, nil
		}
		m.stopInput()
		if changed {
			common.LogDebug("workflow field updated", common.Fields{
				"field":      field.String(),
				"generation": m.editor.Generation(),
			})
			m.setStatus(fmt.Sprintf("Updated %s", field.Label()))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateImport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.stopInput()
		return m, nil
	case key.Matches(msg, m.keymap.Commit):
		path := m.input.Value()
		m.stopInput()
		if path == "" {
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Loading %s...", path))
		return m, loadFiles(path)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) applyImport(msg importedMsg) {
	if msg.err != nil {
		m.setError(msg.err)
		return
	}
	doc, modified, err := workflow.Import(m.editor.Document(), msg.files)
	if err != nil {
		m.setError(err)
		return
	}
	if !modified {
		m.setStatus(fmt.Sprintf("No configuration files found in %s", msg.from))
		return
	}
	if _, err := m.editor.Replace(doc); err != nil {
		m.setError(err)
		return
	}
	m.setStatus(fmt.Sprintf("Loaded configuration from %s", msg.from))
}

func (m *Model) undo() {
	if err := m.editor.Undo(); err != nil {
		if errors.Is(err, common.ErrNothingToUndo) {
			m.setStatus("Nothing to undo")
			return
		}
		m.setError(err)
		return
	}
	m.setStatus("Undone")
}

func (m *Model) redo() {
	if err := m.editor.Redo(); err != nil {
		if errors.Is(err, common.ErrNothingToRedo) {
			m.setStatus("Nothing to redo")
			return
		}
		m.setError(err)
		return
	}
	m.setStatus("Redone")
}

func (m *Model) stopInput() {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) currentField() workflow.Field {
	return workflow.Fields[m.cursor]
}

func (m *Model) setStatus(status string) {
	m.status = status
	m.lastErr = nil
}

func (m *Model) setError(err error) {
	m.status = ""
	m.lastErr = err
}
