package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/almostacms/almostacms/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "gho_test"}), Options{
		APIURL: srv.URL,
		Owner:  "ada",
		Repo:   "site",
		Branch: "main",
	})
}

func TestGetFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/repos/ada/site/contents/docs/data/hero.json", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		assert.Equal(t, "Bearer gho_test", r.Header.Get("Authorization"))

		enc := base64.StdEncoding.EncodeToString([]byte(`{"headline":"Hi"}`))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"path":     "docs/data/hero.json",
			"sha":      "abc123",
			"size":     17,
			"encoding": "base64",
			"content":  enc[:8] + "\n" + enc[8:],
		})
	})

	f, err := c.GetFile(context.Background(), "docs/data/hero.json")
	require.NoError(t, err)
	assert.Equal(t, "abc123", f.SHA)
	assert.Equal(t, `{"headline":"Hi"}`, string(f.Content))
	assert.Equal(t, "ada/site", c.Repo())
}

func TestGetFile_DirectoryAndMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/ada/site/contents/data" {
			_ = json.NewEncoder(w).Encode(map[string]any{"type": "dir"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	_, err := c.GetFile(context.Background(), "data")
	require.ErrorIs(t, err, ErrNotAFile)

	_, err = c.GetFile(context.Background(), "data/nope.json")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPutFile(t *testing.T) {
	var got putRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/repos/ada/site/contents/data/hero.json", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":{"sha":"new"},"commit":{"sha":"c0ffee","html_url":"https://github.com/ada/site/commit/c0ffee"}}`))
	})

	commit, err := c.PutFile(context.Background(), "data/hero.json", []byte("{}"), "Update hero via AlmostaCMS", "old")
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", commit.SHA)
	assert.Equal(t, "new", commit.FileSHA)

	assert.Equal(t, "Update hero via AlmostaCMS", got.Message)
	assert.Equal(t, "old", got.SHA)
	assert.Equal(t, "main", got.Branch)
	decoded, err := base64.StdEncoding.DecodeString(got.Content)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(decoded))
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		want    string
	}{
		{"unauthorized", http.StatusUnauthorized, nil, "Authentication failed. Please log in again."},
		{"forbidden", http.StatusForbidden, nil, "Permission denied. Check repository access."},
		{"rate limited", http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "0", "X-RateLimit-Reset": "0"}, "API rate limit exceeded."},
		{"conflict", http.StatusConflict, nil, "sha does not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"sha does not match"}`))
			})

			_, err := c.PutFile(context.Background(), "data/x.json", nil, "m", "")
			var upstream *domain.UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, tt.status, upstream.Status)
			assert.Contains(t, upstream.Detail(), tt.want)
			assert.True(t, domain.IsKind(err, domain.KindUpstream))
		})
	}
}

func TestAuthenticatedUserAndRateLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			_, _ = w.Write([]byte(`{"login":"ada","name":"Ada Lovelace"}`))
		case "/rate_limit":
			_, _ = w.Write([]byte(`{"rate":{"limit":5000,"remaining":4999,"reset":1700000000}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	u, err := c.AuthenticatedUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Login)

	rl, err := c.RateLimit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4999, rl.Remaining)
	assert.Equal(t, int64(1700000000), rl.Reset.Unix())
}

func TestTransportFailureIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(nil, Options{APIURL: srv.URL, Owner: "a", Repo: "b"})

	_, err := c.AuthenticatedUser(context.Background())
	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Zero(t, upstream.Status)
}
