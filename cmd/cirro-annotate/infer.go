package main

import (
	"fmt"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/cli"
	"github.com/CirroBio/cirro-annotation/internal/infer"
	"github.com/CirroBio/cirro-annotation/internal/portal"
	"github.com/spf13/cobra"
)

func inferSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infer-schema",
		Short: "Sample dataset headers to build the shared terms file",
		Long: `Sample the column headers of recent datasets from each allowed process,
record them in the observation ledger, and fold every observation into the
terms file. Processes already present in the terms file or the ledger are
skipped; use "terms forget" to sample one again.`,
		PreRunE: bindFlags(map[string]string{
			"infer.terms_file": "terms-file",
			"infer.processes":  "process",
			"infer.projects":   "project",
			"infer.max_rows":   "max-rows",
			"database.path":    "db",
		}),
		RunE: runInferSchema,
	}

	cmd.Flags().String("terms-file", "", "JSON file the terms are written to")
	cmd.Flags().StringSlice("process", nil, "process names to sample (repeatable)")
	cmd.Flags().StringSlice("project", nil, "project names to sample from (repeatable)")
	cmd.Flags().Int("max-rows", 0, "datasets sampled per process")
	cmd.Flags().String("db", "", "observation ledger path")

	return cmd
}

func runInferSchema(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	if err := requireSettings(cmd, map[string]string{
		"infer.terms_file": settings.Infer.TermsFile,
		"infer.processes":  strings.Join(settings.Infer.Processes, ""),
		"infer.projects":   strings.Join(settings.Infer.Projects, ""),
	}); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	interrupts := cli.NewInterruptHandler(out, "Schema inference", "Sampled processes are kept in the ledger")
	ctx := interrupts.HandleInterrupts(cmd.Context())

	store, err := initStorage(ctx, settings.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := portalClient(ctx, settings)
	if err != nil {
		return err
	}

	prompter := cli.NewCLIPrompter(cmd.InOrStdin(), out)
	inferrer := infer.NewInferrer(client, store, infer.Config{
		TermsFile: settings.Infer.TermsFile,
		Processes: settings.Infer.Processes,
		Projects:  settings.Infer.Projects,
		MaxRows:   settings.Infer.MaxRows,
	},
		infer.WithNotifier(prompter),
		infer.WithProgress(func(total int, description string) portal.Progress {
			return prompter.Progress(total, description)
		}),
	)

	report, err := inferrer.Run(ctx)
	if err != nil {
		if interrupts.WasInterrupted() && isCanceled(err) {
			return nil
		}
		if msg, ok := userMessage(err); ok {
			prompter.Warn(msg)
		}
		return fmt.Errorf("schema inference failed: %w", err)
	}

	prompter.Box("Schema inference", renderReport(report))
	prompter.Success(fmt.Sprintf("Wrote %s", settings.Infer.TermsFile))
	return nil
}

func renderReport(report *infer.Report) string {
	rows := [][]string{
		{"Sampled", listOrNone(report.Sampled)},
		{"Skipped", listOrNone(report.Skipped)},
		{"Failed", listOrNone(report.Failed)},
		{"Files read", fmt.Sprint(report.Files)},
		{"Observations", fmt.Sprint(report.Observations)},
		{"New terms", fmt.Sprint(report.Changes.Terms)},
		{"New columns", fmt.Sprint(report.Changes.Columns)},
		{"New metadata", fmt.Sprint(report.Changes.Metadata)},
	}
	return cli.RenderTable([]string{"Item", "Value"}, rows)
}

func listOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
