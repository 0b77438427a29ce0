package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"golang.org/x/oauth2"
)

// AuthConfig configures the device authorization login.
type AuthConfig struct {
	ClientID      string
	AuthEndpoint  string
	TokenEndpoint string
	// TokenFile caches the token between runs when set.
	TokenFile string
	Scopes    []string
	Timeout   time.Duration
}

// Authenticator logs in to the portal with the OAuth2 device authorization grant.
type Authenticator struct {
	oauth  *oauth2.Config
	config AuthConfig
}

// NewAuthenticator creates an authenticator from cfg.
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Authenticator{
		config: cfg,
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{
				DeviceAuthURL: cfg.AuthEndpoint,
				TokenURL:      cfg.TokenEndpoint,
				AuthStyle:     oauth2.AuthStyleInParams,
			},
			Scopes: cfg.Scopes,
		},
	}
}

// Login is an in-progress device login.
type Login struct {
	auth     *Authenticator
	response *oauth2.DeviceAuthResponse
}

// URL is where the user approves the login.
func (l *Login) URL() string {
	if l.response.VerificationURIComplete != "" {
		return l.response.VerificationURIComplete
	}
	return l.response.VerificationURI
}

// UserCode is the code the user confirms on the login page.
func (l *Login) UserCode() string {
	return l.response.UserCode
}

// Begin requests a device code and returns as soon as the login URL is known.
func (a *Authenticator) Begin(ctx context.Context) (*Login, error) {
	resp, err := a.oauth.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start portal login: %w", err)
	}
	return &Login{auth: a, response: resp}, nil
}

// Wait blocks until the user approves the login, the code expires, ctx is
// canceled, or the configured timeout passes. The token is cached when the
// authenticator has a token file.
func (l *Login) Wait(ctx context.Context) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, l.auth.config.Timeout)
	defer cancel()

	token, err := l.auth.oauth.DeviceAccessToken(ctx, l.response)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("login timed out after %s: %w", l.auth.config.Timeout, err)
		}
		return nil, fmt.Errorf("failed to complete portal login: %w", err)
	}

	if l.auth.config.TokenFile != "" {
		if err := SaveToken(l.auth.config.TokenFile, token); err != nil {
			slog.Warn("Failed to save token to file", "error", err, "file", l.auth.config.TokenFile)
		} else {
			slog.Info("Token saved successfully", "file", l.auth.config.TokenFile)
		}
	}
	return token, nil
}

// Client returns an HTTP client authorized with the cached token. Refreshed
// tokens are written back to the token file.
func (a *Authenticator) Client(ctx context.Context) (*http.Client, error) {
	if a.config.TokenFile == "" {
		return nil, fmt.Errorf("%w: no token file configured", common.ErrUnauthorized)
	}

	token, err := LoadToken(a.config.TokenFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: run `cirro-annotate auth login` first", common.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	source := &savingTokenSource{
		base: a.oauth.TokenSource(ctx, token),
		path: a.config.TokenFile,
		last: token.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, source)), nil
}

type savingTokenSource struct {
	base oauth2.TokenSource
	path string
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := SaveToken(s.path, token); err != nil {
			slog.Warn("Failed to save refreshed token", "error", err)
		}
	}
	return token, nil
}

// LoadToken loads a token from file.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(token)
	return token, err
}

// SaveToken saves a token to file with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}
