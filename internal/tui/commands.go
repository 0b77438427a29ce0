package tui

import (
	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/config"
	"github.com/CirroBio/cirro-annotation/internal/workflow"
	tea "github.com/charmbracelet/bubbletea"
)

// saveArchive writes doc to path off the update loop.
func saveArchive(path string, doc map[string]any) tea.Cmd {
	return func() tea.Msg {
		err := workflow.ExportFile(path, doc)
		if err != nil {
			common.LogError(err, "failed to save workflow configuration", common.Fields{"path": path})
		}
		return savedMsg{path: path, err: err}
	}
}

// loadFiles reads configuration files from a directory or zip.
func loadFiles(path string) tea.Cmd {
	return func() tea.Msg {
		path = config.ExpandPath(path)
		files, err := workflow.ReadDir(path)
		if err == nil {
			common.LogDebug("read workflow configuration files", common.Fields{"path": path, "files": len(files)})
		}
		return importedMsg{from: path, files: files, err: err}
	}
}
