package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/domain"
)

func TestHTTP_FetchCachesAndForgets(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/.almostacms.json":
			_, _ = w.Write([]byte(`{"sections":[]}`))
		case "/data/broken.json":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL+"/", nil, time.Minute)
	ctx := context.Background()

	for range 3 {
		data, err := h.Fetch(ctx, "/admin/../.almostacms.json")
		require.NoError(t, err)
		assert.Equal(t, `{"sections":[]}`, string(data))
	}
	assert.EqualValues(t, 1, hits.Load())

	h.Forget(ctx, "/.almostacms.json")
	_, err := h.Fetch(ctx, "/.almostacms.json")
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())

	_, err = h.Fetch(ctx, "/data/missing.json")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = h.Fetch(ctx, "/data/broken.json")
	assert.True(t, domain.IsKind(err, domain.KindUpstream))
}

func TestHTTP_NoCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, srv.Client(), 0)
	for range 2 {
		_, err := h.Fetch(context.Background(), "/data/a.json")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, hits.Load())
}

func TestHTTP_SaveIsReadOnly(t *testing.T) {
	h := NewHTTP("https://example.github.io", nil, 0)
	err := h.Save(context.Background(), "hero.json", content.MustParse(`{}`))
	require.ErrorIs(t, err, ErrReadOnly)
	assert.Contains(t, err.Error(), "hero.json")
}
