package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/oauth2"
)

type deviceServer struct {
	*httptest.Server
	polls   atomic.Int32
	pending int32
	denied  bool
}

func newDeviceServer(t *testing.T, pending int32) *deviceServer {
	t.Helper()
	ds := &deviceServer{pending: pending}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /device", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "cli-client", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_code":               "dev-123",
			"user_code":                 "ABCD-EFGH",
			"verification_uri":          "https://portal.example/activate",
			"verification_uri_complete": "https://portal.example/activate?code=ABCD-EFGH",
			"expires_in":                600,
			"interval":                  1,
		})
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "dev-123", r.PostForm.Get("device_code"))
		w.Header().Set("Content-Type", "application/json")

		n := ds.polls.Add(1)
		switch {
		case ds.denied:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"access_denied"}`))
		case n <= ds.pending:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"authorization_pending"}`))
		default:
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","refresh_token":"ref-1","expires_in":3600}`))
		}
	})

	ds.Server = httptest.NewServer(mux)
	return ds
}

func (ds *deviceServer) config(tokenFile string, timeout time.Duration) AuthConfig {
	return AuthConfig{
		ClientID:      "cli-client",
		AuthEndpoint:  ds.URL + "/device",
		TokenEndpoint: ds.URL + "/token",
		TokenFile:     tokenFile,
		Timeout:       timeout,
	}
}

func TestLogin_URLThenToken(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ds := newDeviceServer(t, 1)
	defer ds.Close()

	tokenFile := filepath.Join(t.TempDir(), "cirro", "token.json")
	auth := NewAuthenticator(ds.config(tokenFile, 10*time.Second))
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, ds.Client())

	login, err := auth.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/activate?code=ABCD-EFGH", login.URL())
	assert.Equal(t, "ABCD-EFGH", login.UserCode())
	assert.Zero(t, ds.polls.Load(), "URL is available before any token poll")

	token, err := login.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token.AccessToken)
	assert.GreaterOrEqual(t, ds.polls.Load(), int32(2))

	info, err := os.Stat(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	saved, err := LoadToken(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "ref-1", saved.RefreshToken)
}

func TestLogin_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ds := newDeviceServer(t, 1000)
	defer ds.Close()

	auth := NewAuthenticator(ds.config("", 1500*time.Millisecond))
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, ds.Client())

	login, err := auth.Begin(ctx)
	require.NoError(t, err)

	start := time.Now()
	_, err = login.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLogin_Denied(t *testing.T) {
	ds := newDeviceServer(t, 0)
	ds.denied = true
	defer ds.Close()

	auth := NewAuthenticator(ds.config("", 10*time.Second))
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, ds.Client())

	login, err := auth.Begin(ctx)
	require.NoError(t, err)
	_, err = login.Wait(ctx)
	assert.Error(t, err)
}

func TestAuthenticator_Client(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token.json")
	auth := NewAuthenticator(AuthConfig{ClientID: "cli", TokenFile: tokenFile})

	_, err := auth.Client(context.Background())
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	require.NoError(t, SaveToken(tokenFile, &oauth2.Token{
		AccessToken: "tok-1",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	httpClient, err := auth.Client(context.Background())
	require.NoError(t, err)

	projects, err := NewHTTPClient(srv.URL, "", httpClient).ListProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestAuthenticator_NoTokenFile(t *testing.T) {
	_, err := NewAuthenticator(AuthConfig{}).Client(context.Background())
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}
