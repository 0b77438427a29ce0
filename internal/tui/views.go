package tui

import (
	"fmt"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/workflow"
	"github.com/charmbracelet/lipgloss"
)

// View renders the current state.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Cirro - Workflow Configuration"))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	switch m.tab {
	case TabBuilder:
		b.WriteString(m.renderBuilder())
	case TabChanges:
		b.WriteString(m.renderChanges())
	default:
		b.WriteString(m.renderFile(m.tab.documentKey()))
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keymap))
	return b.String()
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		style := m.theme.TabInactive
		if Tab(i) == m.tab {
			style = m.theme.TabActive
		}
		tabs = append(tabs, style.Render(name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

func (m Model) renderBuilder() string {
	c, err := m.editor.Config()
	if err != nil {
		return m.theme.StatusError.Render(err.Error())
	}

	var b strings.Builder
	for i, field := range workflow.Fields {
		label := m.theme.Label.Render(field.Label())
		value := c.Source.Get(field)
		if value == "" {
			value = m.theme.Help.Render("(empty)")
		}

		line := fmt.Sprintf("%s %s", label, value)
		if i == m.cursor {
			if m.mode == modeEdit {
				line = fmt.Sprintf("%s %s", label, m.input.View())
			} else {
				line = m.theme.Selected.Render(fmt.Sprintf("%s %s", field.Label(), c.Source.Get(field)))
			}
		}
		b.WriteString(line)
		b.WriteString("\n")

		if i == m.cursor {
			if help := field.Help(); help != "" {
				b.WriteString(m.theme.Help.Render("  " + help))
				b.WriteString("\n")
			}
			if field.IsList() && len(m.config.Processes) > 0 {
				b.WriteString(m.renderProcesses(c.Source.Get(field)))
			}
		}
	}

	if m.mode == modeImport {
		b.WriteString("\n")
		b.WriteString(m.theme.Label.Render("Load configuration from"))
		b.WriteString(" ")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderProcesses(current string) string {
	ids := strings.Split(current, ", ")
	selected := workflow.SelectedLabels(m.config.Processes, ids)

	var b strings.Builder
	for _, label := range m.config.Processes {
		mark := "[ ]"
		for _, s := range selected {
			if s == label {
				mark = "[x]"
				break
			}
		}
		b.WriteString(m.theme.Help.Render(fmt.Sprintf("    %s %s", mark, label)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderFile(docKey string) string {
	files, err := workflow.Files(m.editor.Document())
	if err != nil {
		return m.theme.StatusError.Render(err.Error())
	}
	for _, f := range files {
		if f.Key != docKey {
			continue
		}
		text := f.Text
		if text == "" {
			text = m.theme.Help.Render("(empty)")
		}
		header := m.theme.Label.Render(f.Name)
		return header + "\n" + m.theme.RoundedBox.Render(m.theme.Code.Render(text))
	}
	return ""
}

func (m Model) renderChanges() string {
	previous := m.editor.Previous()
	if previous == nil {
		return m.theme.Help.Render("No changes yet")
	}
	diff, err := workflow.Diff(previous, m.editor.Document())
	if err != nil {
		return m.theme.StatusError.Render(err.Error())
	}

	lines := strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = m.theme.Label.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = m.theme.DiffHunk.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = m.theme.DiffAdd.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = m.theme.DiffRemove.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatus() string {
	history := fmt.Sprintf("undo %d | redo %d", m.editor.HistoryLen(), m.editor.FutureLen())
	switch {
	case m.lastErr != nil:
		return m.theme.StatusError.Render("Error: "+m.lastErr.Error()) + "  " + m.theme.Help.Render(history)
	case m.status != "":
		return m.theme.StatusSuccess.Render(m.status) + "  " + m.theme.Help.Render(history)
	default:
		return m.theme.Help.Render(history)
	}
}
