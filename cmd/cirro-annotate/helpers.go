package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/config"
	"github.com/CirroBio/cirro-annotation/internal/portal"
	"github.com/CirroBio/cirro-annotation/internal/session"
	"github.com/CirroBio/cirro-annotation/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadSettings reads the typed settings from the global viper instance.
func loadSettings() (config.Settings, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// requireSettings reports every unset value in one error and prints the
// command help so the user can see which flags fill them in.
func requireSettings(cmd *cobra.Command, required map[string]string) error {
	var missing []string
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	_ = cmd.Help()
	return fmt.Errorf("%w: %s", common.ErrMissingConfig, strings.Join(missing, ", "))
}

// bindFlags binds viper keys to the named flags of the command being run.
// Several commands share a key, so binding happens only once the command is known.
func bindFlags(bindings map[string]string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		for key, name := range bindings {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
		return nil
	}
}

func newAuthenticator(p config.PortalSettings) *portal.Authenticator {
	tokenFile := p.TokenFile
	if !p.CacheToken {
		tokenFile = ""
	}
	return portal.NewAuthenticator(portal.AuthConfig{
		ClientID:      p.ClientID,
		AuthEndpoint:  p.AuthEndpoint,
		TokenEndpoint: p.TokenEndpoint,
		TokenFile:     tokenFile,
		Timeout:       p.LoginTimeout,
	})
}

// portalClient returns a memoized portal client for this command run. A
// configured local root takes precedence over the remote API.
func portalClient(ctx context.Context, settings config.Settings) (portal.Client, error) {
	var client portal.Client
	if settings.Portal.UseLocalPortal() {
		local, err := portal.NewLocalClient(settings.Portal.LocalRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to open local portal: %w", err)
		}
		client = local
	} else {
		if err := settings.Portal.Validate(); err != nil {
			return nil, err
		}
		httpClient, err := newAuthenticator(settings.Portal).Client(ctx)
		if err != nil {
			return nil, err
		}
		client = portal.NewHTTPClient(settings.Portal.BaseURL, settings.Portal.Region, httpClient)
	}

	s := session.New()
	common.LogDebug("Portal session started", common.Fields{"session": s.ID, "local": settings.Portal.UseLocalPortal()})
	return portal.NewCached(client, s), nil
}

// initStorage opens the observation ledger and brings its schema up to date.
func initStorage(ctx context.Context, path string) (*storage.SQLiteStorage, error) {
	dbPath := config.ExpandPath(path)
	if dbPath == "" {
		dbPath = config.ExpandPath(config.DefaultDatabasePath)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// userMessage returns the message of a UserError anywhere in err's chain.
func userMessage(err error) (string, bool) {
	var userErr *common.UserError
	if !errors.As(err, &userErr) {
		return "", false
	}
	return userErr.UserMessage, true
}

// isCanceled reports whether err came from an interrupted context.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// openBrowser tries to open the URL in the default browser.
func openBrowser(url string) {
	var err error
	switch goos := runtime.GOOS; goos {
	case "linux":
		err = exec.Command("xdg-open", url).Start() //nolint:gosec,forbidigo
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start() //nolint:gosec,forbidigo
	case "darwin":
		err = exec.Command("open", url).Start() //nolint:gosec,forbidigo
	}
	if err != nil {
		slog.Debug("Failed to open browser", "error", err)
	}
}

// saveConfig writes the current viper settings back to the config file in use.
func saveConfig() error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		configFile = filepath.Join(home, ".config", "cirro", "config.yaml")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configFile), 0o750); err != nil {
		return err
	}

	return viper.WriteConfigAs(configFile)
}
