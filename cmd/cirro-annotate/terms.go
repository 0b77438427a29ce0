package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/cli"
	"github.com/CirroBio/cirro-annotation/internal/config"
	"github.com/CirroBio/cirro-annotation/internal/infer"
	"github.com/CirroBio/cirro-annotation/internal/model"
	"github.com/CirroBio/cirro-annotation/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func termsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Inspect and publish the inferred terms",
	}

	cmd.PersistentFlags().String("terms-file", "", "JSON file holding the terms")

	cmd.AddCommand(termsListCmd())
	cmd.AddCommand(termsExportCmd())
	cmd.AddCommand(termsForgetCmd())
	return cmd
}

func termsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List every term with its columns and sources",
		PreRunE: bindFlags(map[string]string{"infer.terms_file": "terms-file"}),
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			terms, err := infer.LoadTerms(settings.Infer.TermsFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(terms) == 0 {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("No terms in %s", settings.Infer.TermsFile)))
				return nil
			}
			fmt.Fprintln(out, cli.RenderTable([]string{"Term", "Columns", "Sources"}, termRows(terms)))
			return nil
		},
	}
}

func termRows(terms model.Terms) [][]string {
	names := make([]string, 0, len(terms))
	for name := range terms {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		term := terms[name]
		sources := make([]string, 0, len(term.Metadata))
		for _, md := range term.Metadata {
			if md.Process == model.Wildcard {
				continue
			}
			sources = append(sources, md.Process+": "+md.File)
		}
		rows = append(rows, []string{name, strings.Join(term.Column, ", "), strings.Join(sources, "; ")})
	}
	return rows
}

func termsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "export",
		Short:   "Write the terms to a Google Sheet",
		PreRunE: bindFlags(map[string]string{"infer.terms_file": "terms-file"}),
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			terms, err := infer.LoadTerms(settings.Infer.TermsFile)
			if err != nil {
				return err
			}

			sheetsConfig, err := config.LoadSheetsConfig(viper.GetViper())
			if err != nil {
				return err
			}
			writer, err := sheets.NewWriter(cmd.Context(), *sheetsConfig, nil)
			if err != nil {
				return err
			}
			id, err := writer.WriteTerms(cmd.Context(), terms)
			if err != nil {
				return fmt.Errorf("failed to export terms: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("Exported %d terms to https://docs.google.com/spreadsheets/d/%s", len(terms), id)))
			return nil
		},
	}
}

func termsForgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "forget <process>",
		Short:   "Drop a process from the observation ledger so it is sampled again",
		Args:    cobra.ExactArgs(1),
		PreRunE: bindFlags(map[string]string{"database.path": "db"}),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context(), settings.DatabasePath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.DeleteProcess(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("Removed %d observations for %s", n, args[0])))
			return nil
		},
	}
	cmd.Flags().String("db", "", "observation ledger path")
	return cmd
}
