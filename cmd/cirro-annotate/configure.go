package main

import (
	"fmt"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/cli"
	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/config"
	"github.com/CirroBio/cirro-annotation/internal/tui"
	"github.com/CirroBio/cirro-annotation/internal/workflow"
	"github.com/spf13/cobra"
)

func configureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Build a workflow configuration bundle",
		Long: `Edit the workflow source, form, inputs, outputs, compute and preprocess
configuration in a tabbed editor and save them as a zip bundle.

With --batch the editor is skipped: --set values are applied to the starting
configuration and the bundle is written straight away.`,
		RunE: runConfigure,
	}

	cmd.Flags().StringP("output", "o", workflow.ArchiveName, "path of the configuration bundle")
	cmd.Flags().String("from", "", "directory or zip of existing configuration files to start from")
	cmd.Flags().StringArray("set", nil, "source field assignment, e.g. --set name=\"RNA-seq\" (repeatable)")
	cmd.Flags().Bool("batch", false, "write the bundle without opening the editor")
	cmd.Flags().Bool("offline", false, "do not list processes from the portal")

	return cmd
}

func runConfigure(cmd *cobra.Command, _ []string) error {
	output, _ := cmd.Flags().GetString("output")
	from, _ := cmd.Flags().GetString("from")
	assignments, _ := cmd.Flags().GetStringArray("set")
	batch, _ := cmd.Flags().GetBool("batch")
	offline, _ := cmd.Flags().GetBool("offline")

	editor, err := startingEditor(config.ExpandPath(from))
	if err != nil {
		return err
	}
	if err := applyAssignments(editor, assignments); err != nil {
		return err
	}

	output = config.ExpandPath(output)
	out := cmd.OutOrStdout()
	if batch {
		if err := workflow.ExportFile(output, editor.Document()); err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Saved %s", output)))
		return nil
	}

	opts := []tui.Option{
		tui.WithEditor(editor),
		tui.WithOutputPath(output),
	}
	if from != "" {
		opts = append(opts, tui.WithImportPath(from))
	}
	if !offline {
		opts = append(opts, tui.WithProcesses(processLabels(cmd)))
	}

	if _, err := tui.Run(cmd.Context(), opts...); err != nil {
		return fmt.Errorf("configuration editor failed: %w", err)
	}
	return nil
}

// startingEditor seeds the editor with the defaults, overlaid with any
// configuration files found at from.
func startingEditor(from string) (*workflow.Editor, error) {
	if from == "" {
		return workflow.NewEditor(nil)
	}

	files, err := workflow.ReadDir(from)
	if err != nil {
		return nil, err
	}
	doc, ok, err := workflow.Import(workflow.DefaultDocument(), files)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no configuration files in %s", common.ErrNotFound, from)
	}
	return workflow.NewEditor(doc)
}

func applyAssignments(editor *workflow.Editor, assignments []string) error {
	for _, assignment := range assignments {
		name, value, ok := strings.Cut(assignment, "=")
		if !ok {
			return fmt.Errorf("%w: --set expects field=value, got %q", common.ErrInvalidConfig, assignment)
		}
		_, err := editor.Update(func(c *workflow.Config) error {
			return c.Source.SetByName(strings.TrimSpace(name), value)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// processLabels lists the portal's processes for the parent/child pickers.
// The editor still works without them.
func processLabels(cmd *cobra.Command) []string {
	settings, err := loadSettings()
	if err != nil {
		common.LogError(err, "Could not load settings for process list", nil)
		return nil
	}
	client, err := portalClient(cmd.Context(), settings)
	if err != nil {
		common.LogError(err, "Could not connect to portal for process list", nil)
		return nil
	}
	processes, err := client.ListProcesses(cmd.Context())
	if err != nil {
		common.LogError(err, "Could not list processes", nil)
		return nil
	}
	return workflow.ProcessLabels(processes)
}
