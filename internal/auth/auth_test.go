package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	s := NewStore(path)

	_, err := s.Load()
	require.ErrorIs(t, err, ErrNotLoggedIn)

	tok := StoredToken{AccessToken: "gho_abc", TokenType: "bearer", Scope: "repo,workflow", Login: "octo", CreatedAt: time.Unix(0, 0).UTC()}
	require.NoError(t, s.Save(tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, tok, got)

	ts, err := s.TokenSource()
	require.NoError(t, err)
	ot, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "gho_abc", ot.AccessToken)

	require.NoError(t, s.Delete())
	require.NoError(t, s.Delete(), "deleting twice is fine")
	_, err = s.Load()
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0600))
	_, err := NewStore(path).Load()
	require.ErrorContains(t, err, "parse token file")

	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":""}`), 0600))
	_, err = NewStore(path).Load()
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestDeviceFlow_Login(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/device/code", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		assert.Equal(t, "repo workflow", r.PostForm.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_code":"dc-1","user_code":"WDJB-MJHT","verification_uri":"https://github.com/login/device","expires_in":900,"interval":1}`))
	})
	mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "dc-1", r.PostForm.Get("device_code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_device","token_type":"bearer","scope":"repo,workflow"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	flow := NewDeviceFlow("cid", DeviceOptions{
		DeviceAuthURL: srv.URL + "/login/device/code",
		TokenURL:      srv.URL + "/login/oauth/access_token",
		HTTPClient:    srv.Client(),
	})

	var prompt Prompt
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tok, err := flow.Login(ctx, func(p Prompt) { prompt = p })
	require.NoError(t, err)

	assert.Equal(t, "WDJB-MJHT", prompt.UserCode)
	assert.Equal(t, "https://github.com/login/device", prompt.VerificationURI)
	assert.Equal(t, "gho_device", tok.AccessToken)
	assert.Equal(t, "repo,workflow", tok.Scope)
	assert.False(t, tok.CreatedAt.IsZero())
}

func TestDeviceFlow_DeviceCodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	flow := NewDeviceFlow("cid", DeviceOptions{DeviceAuthURL: srv.URL, TokenURL: srv.URL, HTTPClient: srv.Client()})
	_, err := flow.Login(context.Background(), nil)
	require.ErrorContains(t, err, "request device code")
}
