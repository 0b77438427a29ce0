package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/CirroBio/cirro-annotation/internal/portal"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// ErrAuthorization is returned when the browser callback is rejected.
var ErrAuthorization = errors.New("sheets authorization failed")

// OAuth2Config holds OAuth2 configuration.
type OAuth2Config struct {
	// Endpoint defaults to google.Endpoint.
	Endpoint     oauth2.Endpoint
	ClientID     string
	ClientSecret string
	TokenFile    string // Where to save the token
	Timeout      time.Duration
}

const (
	successPage = `<html><body>
	<h1>Authentication Successful!</h1>
	<p>You can close this window and return to the terminal.</p>
	<script>window.setTimeout(function(){window.close();}, 3000);</script>
</body></html>`
	failurePage = `<html><body>
	<h1>Authentication Failed</h1>
	<p>%s. Please try again.</p>
</body></html>`
)

// ListenAndAuthorize runs Authorize on an ephemeral loopback port.
func ListenAndAuthorize(ctx context.Context, config OAuth2Config, show func(authURL string)) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}
	return Authorize(ctx, config, listener, show)
}

// Authorize performs the OAuth2 authorization code flow. It serves the
// redirect on listener, hands the consent URL to show and blocks until the
// browser calls back, the timeout passes or ctx is done. The listener is
// closed on return.
func Authorize(ctx context.Context, config OAuth2Config, listener net.Listener, show func(authURL string)) (*oauth2.Token, error) {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	endpoint := config.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}

	oauthConfig := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  fmt.Sprintf("http://%s/callback", listener.Addr().String()),
		Scopes:       []string{sheets.SpreadsheetsScope},
	}

	state := uuid.NewString()
	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)
	fail := func(err error) {
		select {
		case errorChan <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != state {
			fail(fmt.Errorf("%w: state mismatch", ErrAuthorization))
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, failurePage, "The request could not be verified")
			return
		}
		if reason := query.Get("error"); reason != "" {
			fail(fmt.Errorf("%w: %s", ErrAuthorization, reason))
			_, _ = fmt.Fprintf(w, failurePage, "Access was not granted")
			return
		}
		code := query.Get("code")
		if code == "" {
			fail(fmt.Errorf("%w: no authorization code received", ErrAuthorization))
			_, _ = fmt.Fprintf(w, failurePage, "No authorization code received")
			return
		}

		select {
		case codeChan <- code:
		default:
		}
		_, _ = fmt.Fprint(w, successPage)
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail(fmt.Errorf("failed to serve callback: %w", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Error shutting down callback server", "error", err)
		}
	}()

	// Offline access so the response carries a refresh token.
	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if show != nil {
		show(authURL)
	}

	timer := time.NewTimer(config.Timeout)
	defer timer.Stop()

	var authCode string
	select {
	case authCode = <-codeChan:
		slog.Debug("Received authorization code")
	case err := <-errorChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("authentication timeout - no response received within %s", config.Timeout)
	}

	token, err := oauthConfig.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if config.TokenFile != "" {
		if err := portal.SaveToken(config.TokenFile, token); err != nil {
			slog.Warn("Failed to save token to file", "error", err, "file", config.TokenFile)
		} else {
			slog.Info("Token saved successfully", "file", config.TokenFile)
		}
	}

	return token, nil
}
