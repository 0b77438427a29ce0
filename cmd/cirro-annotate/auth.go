package main

import (
	"fmt"
	"log/slog"

	"github.com/CirroBio/cirro-annotation/internal/cli"
	"github.com/CirroBio/cirro-annotation/internal/config"
	"github.com/CirroBio/cirro-annotation/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
		Long:  `Authenticate with the data portal and Google Sheets.`,
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the data portal",
		Long: `Log in to the data portal with a device code.

This command will:
1. Request a login code from the portal
2. Open the approval page in your browser
3. Wait until you approve the login
4. Save the token for future commands`,
		RunE: runAuthLogin,
	}

	cmd.Flags().Bool("no-browser", false, "print the login URL without opening a browser")

	return cmd
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if settings.Portal.UseLocalPortal() {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("A local portal is configured, no login needed"))
		return nil
	}
	if err := settings.Portal.Validate(); err != nil {
		return err
	}

	login, err := newAuthenticator(settings.Portal).Begin(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.RenderBox("Portal login", fmt.Sprintf(
		"Open %s\nand confirm the code %s", login.URL(), login.UserCode())))
	if noBrowser, _ := cmd.Flags().GetBool("no-browser"); !noBrowser {
		openBrowser(login.URL())
	}

	if _, err := login.Wait(ctx); err != nil {
		return err
	}

	fmt.Fprintln(out, cli.FormatSuccess("Logged in to the data portal"))
	return nil
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

This command will:
1. Open your browser to authenticate with Google
2. Save the token for future use

You'll need to run this once before "terms export".`,
		RunE: runAuthSheets,
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")
	cmd.Flags().Bool("save", false, "store the client credentials in the config file")

	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sheetsConfig := sheets.DefaultConfig()
	sheetsConfig.ClientID = viper.GetString("sheets.client_id")
	sheetsConfig.ClientSecret = viper.GetString("sheets.client_secret")

	// Override with flags if provided
	if flagID, _ := cmd.Flags().GetString("client-id"); flagID != "" {
		sheetsConfig.ClientID = flagID
	}
	if flagSecret, _ := cmd.Flags().GetString("client-secret"); flagSecret != "" {
		sheetsConfig.ClientSecret = flagSecret
	}

	// Environment variables as fallback
	sheetsConfig.LoadFromEnv()

	if sheetsConfig.ClientID == "" || sheetsConfig.ClientSecret == "" {
		return fmt.Errorf("OAuth2 credentials not found. Please set sheets.client_id and sheets.client_secret in config or use --client-id and --client-secret flags")
	}

	tokenFile := config.ExpandPath(config.SheetsTokenFile(viper.GetViper()))
	slog.Info("Starting Google Sheets authentication", "token_file", tokenFile)

	out := cmd.OutOrStdout()
	_, err := sheets.ListenAndAuthorize(ctx, sheets.OAuth2Config{
		ClientID:     sheetsConfig.ClientID,
		ClientSecret: sheetsConfig.ClientSecret,
		TokenFile:    tokenFile,
	}, func(authURL string) {
		fmt.Fprintln(out, cli.RenderBox("Google Sheets", "Open this URL to authorize access:\n"+authURL))
		openBrowser(authURL)
	})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		viper.Set("sheets.client_id", sheetsConfig.ClientID)
		viper.Set("sheets.client_secret", sheetsConfig.ClientSecret)
		if err := saveConfig(); err != nil {
			slog.Warn("Failed to update config file with client credentials", "error", err)
		}
	}

	fmt.Fprintln(out, cli.FormatSuccess("Google Sheets is now configured. Run 'cirro-annotate terms export' to publish terms."))
	return nil
}
