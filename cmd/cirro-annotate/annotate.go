package main

import (
	"fmt"

	"github.com/CirroBio/cirro-annotation/internal/annotate"
	"github.com/CirroBio/cirro-annotation/internal/cli"
	"github.com/CirroBio/cirro-annotation/internal/pattern"
	"github.com/CirroBio/cirro-annotation/internal/portal"
	"github.com/spf13/cobra"
)

func annotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Annotate the files and columns of a pipeline's outputs",
		Long: `Pick a project, process and exemplar dataset, download it, and walk through
its files and columns. The column mapping is saved to the fields file and a
manifest is written next to the downloaded dataset.`,
		PreRunE: bindFlags(map[string]string{
			"annotate.data_dir":       "data-dir",
			"annotate.fields_file":    "fields-file",
			"annotate.template_match": "match",
		}),
		RunE: runAnnotate,
	}

	cmd.Flags().String("data-dir", "", "directory datasets are downloaded under")
	cmd.Flags().String("fields-file", "", "JSON file holding the column mapping")
	cmd.Flags().String("match", "", "template matching mode (full, prefix)")
	cmd.Flags().String("glob", "", "only annotate downloaded files matching this pattern (a pattern without a slash matches file names)")
	cmd.Flags().Bool("summary", false, "write a summary manifest instead of transforms")

	return cmd
}

func runAnnotate(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	if err := requireSettings(cmd, map[string]string{
		"annotate.data_dir":    settings.Annotate.DataDir,
		"annotate.fields_file": settings.Annotate.FieldsFile,
	}); err != nil {
		return err
	}

	mode, err := pattern.ParseMode(settings.Annotate.TemplateMatch)
	if err != nil {
		return err
	}
	glob, _ := cmd.Flags().GetString("glob")
	summary, _ := cmd.Flags().GetBool("summary")

	out := cmd.OutOrStdout()
	interrupts := cli.NewInterruptHandler(out, "Annotation", "Downloaded files are kept, run annotate again to resume")
	ctx := interrupts.HandleInterrupts(cmd.Context())

	client, err := portalClient(ctx, settings)
	if err != nil {
		return err
	}

	prompter := cli.NewCLIPrompter(cmd.InOrStdin(), out)
	annotator := annotate.New(client, prompter, annotate.Config{
		DataDir:    settings.Annotate.DataDir,
		FieldsFile: settings.Annotate.FieldsFile,
		Glob:       glob,
		Extensions: settings.Annotate.Extensions,
		Mode:       mode,
		Summary:    summary,
	},
		annotate.WithNotifier(prompter),
		annotate.WithProgress(func(total int, description string) portal.Progress {
			return prompter.Progress(total, description)
		}),
	)

	result, err := annotator.Run(ctx)
	switch {
	case err == nil:
	case interrupts.WasInterrupted() && isCanceled(err):
		return nil
	case annotate.IsNothingToAnnotate(err):
		// The annotator already warned.
		return nil
	case annotate.IsInputError(err):
		prompter.Warn(err.Error())
		return err
	default:
		if msg, ok := userMessage(err); ok {
			prompter.Warn(msg)
		}
		return fmt.Errorf("annotation failed: %w", err)
	}
	if result == nil {
		return nil
	}

	rows := [][]string{
		{"Project", result.Project.Name},
		{"Process", result.Process.Label()},
		{"Dataset", result.Dataset.Label()},
		{"File groups", fmt.Sprint(len(result.Groups))},
		{"Column groups", fmt.Sprint(len(result.ColumnGroups))},
		{"New columns", fmt.Sprint(len(result.NewColumns))},
		{"Manifest", result.ManifestPath},
	}
	prompter.Box("Annotation", cli.RenderTable([]string{"Item", "Value"}, rows))
	if result.Downloaded {
		prompter.Info(fmt.Sprintf("Dataset downloaded to %s", result.Download))
	}
	return nil
}
