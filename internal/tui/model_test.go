package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CirroBio/cirro-annotation/internal/tui/themes"
	"github.com/CirroBio/cirro-annotation/internal/workflow"
	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel(t *testing.T) Model {
	t.Helper()
	cfg := defaultConfig()
	cfg.Theme = themes.Default
	cfg.OutputPath = filepath.Join(t.TempDir(), workflow.ArchiveName)
	cfg.Processes = []string{"Ingest (ingest-1)", "RNA-seq (proc-rna)"}
	m, err := newModel(cfg)
	require.NoError(t, err)
	// A blinking cursor would make every focus command wait on a timer.
	_ = m.input.Cursor.SetMode(cursor.CursorStatic)
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send feeds msgs through Update, running any returned command once and
// feeding savedMsg and importedMsg results back in.
func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, cmd := m.Update(msg)
		m = next.(Model)
		if cmd == nil {
			continue
		}
		switch result := cmd().(type) {
		case savedMsg, importedMsg:
			next, _ = m.Update(result)
			m = next.(Model)
		}
	}
	return m
}

func currentName(t *testing.T, m Model) string {
	t.Helper()
	c, err := m.editor.Config()
	require.NoError(t, err)
	return c.Source.Name
}

func TestEditField(t *testing.T) {
	m := testModel(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, modeEdit, m.mode)
	assert.Equal(t, workflow.FieldName, m.currentField())
	assert.Equal(t, "My Workflow Name", m.input.Value())

	m.input.SetValue("RNA-se")
	m.input.CursorEnd()
	m = send(t, m, runes("q"), tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, "RNA-seq", currentName(t, m))
	assert.Equal(t, 1, m.editor.HistoryLen())
	assert.Contains(t, m.View(), "Updated Workflow Name")
}

func TestEditField_Cancel(t *testing.T) {
	m := testModel(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes("zzz"), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, 0, m.editor.HistoryLen())
}

func TestEditField_InvalidValue(t *testing.T) {
	m := testModel(t)

	for m.currentField() != workflow.FieldExecutor {
		m = send(t, m, runes("j"))
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m.input.SetValue("spark")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, modeEdit, m.mode, "invalid input keeps the field open")
	require.ErrorIs(t, m.lastErr, workflow.ErrInvalidValue)
	assert.Equal(t, 0, m.editor.HistoryLen())
}

func TestUndoRedoKeys(t *testing.T) {
	m := testModel(t)
	_, err := m.editor.Set(workflow.FieldName, "first")
	require.NoError(t, err)
	_, err = m.editor.Set(workflow.FieldName, "second")
	require.NoError(t, err)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlZ})
	assert.Equal(t, "first", currentName(t, m))
	assert.Equal(t, "Undone", m.status)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Equal(t, "second", currentName(t, m))

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Equal(t, "Nothing to redo", m.status)
}

func TestSaveKey(t *testing.T) {
	m := testModel(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NoError(t, m.lastErr)
	assert.Equal(t, "Saved "+m.config.OutputPath, m.status)

	files, err := workflow.ReadArchive(m.config.OutputPath)
	require.NoError(t, err)
	assert.Len(t, files, 6)
}

func TestImportKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "preprocess.py"), []byte("print('ready')\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "process-dynamo.json"), []byte(`{"name": "Imported", "code": {}}`), 0o600))

	m := testModel(t)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	require.Equal(t, modeImport, m.mode)

	m.input.SetValue(dir)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.NoError(t, m.lastErr)
	assert.Equal(t, "Loaded configuration from "+dir, m.status)
	assert.Equal(t, "Imported", currentName(t, m))
	assert.Equal(t, 1, m.editor.HistoryLen())

	doc := m.editor.Document()
	assert.Equal(t, "print('ready')\n", doc[workflow.KeyPreprocess])
}

func TestImportKey_Missing(t *testing.T) {
	m := testModel(t)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	m.input.SetValue(filepath.Join(t.TempDir(), "nope"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Error(t, m.lastErr)
	assert.Equal(t, 0, m.editor.HistoryLen())
}

func TestTabs(t *testing.T) {
	m := testModel(t)
	_, err := m.editor.Set(workflow.FieldName, "RNA-seq")
	require.NoError(t, err)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabDynamo, m.tab)
	view := m.View()
	assert.Contains(t, view, "process-dynamo.json")
	assert.Contains(t, view, `"name": "RNA-seq"`)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab}, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, TabChanges, m.tab)
	assert.Contains(t, m.View(), `+    "name": "RNA-seq",`)

	// Cursor keys only move within the builder.
	m = send(t, m, runes("j"))
	assert.Equal(t, 0, m.cursor)
}

func TestBuilderView(t *testing.T) {
	m := testModel(t)
	_, err := m.editor.SetProcesses(workflow.FieldParentProcessIDs, []string{"RNA-seq (proc-rna)"})
	require.NoError(t, err)

	for m.currentField() != workflow.FieldParentProcessIDs {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	view := m.View()
	assert.Contains(t, view, "Cirro - Workflow Configuration")
	assert.Contains(t, view, "[x] RNA-seq (proc-rna)")
	assert.Contains(t, view, "[ ] Ingest (ingest-1)")
	for _, name := range tabNames {
		assert.True(t, strings.Contains(view, name), name)
	}
}

func TestQuit(t *testing.T) {
	m := testModel(t)
	next, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.True(t, next.(Model).quitting)
	assert.Empty(t, next.(Model).View())
}
