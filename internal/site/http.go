package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/almostacms/almostacms/internal/cachemanager"
	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/domain"
	"github.com/almostacms/almostacms/internal/log"
)

// DefaultHTTPCacheTTL is how long fetched documents are reused.
const DefaultHTTPCacheTTL = 30 * time.Second

// HTTP reads a published site over HTTP. Responses are cached for a short
// TTL; it is read-only.
type HTTP struct {
	baseURL string
	client  *http.Client
	ttl     time.Duration
	cache   *cachemanager.ReadThroughCache[string, []byte, string]
}

var (
	_ Source    = (*HTTP)(nil)
	_ Persister = (*HTTP)(nil)
)

// ErrReadOnly is returned by Save on a published site.
var ErrReadOnly = errors.New("site is read-only")

// NewHTTP returns a source for the site at baseURL. A ttl of 0 disables
// caching.
func NewHTTP(baseURL string, client *http.Client, ttl time.Duration) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	h := &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		ttl:     ttl,
	}
	store := cachemanager.NewInMemoryCacheManager[string, []byte]("site-http", ttl, cachemanager.DefaultCleanupInterval)
	h.cache = cachemanager.NewReadThroughCache[string, []byte, string](store, h.get, ttl <= 0)
	return h
}

func (h *HTTP) Fetch(ctx context.Context, p string) ([]byte, error) {
	clean := Clean(p)
	return h.cache.Get(ctx, clean, clean, h.ttl)
}

// Forget drops a cached path, e.g. after the file changed upstream.
func (h *HTTP) Forget(ctx context.Context, p string) {
	h.cache.Invalidate(ctx, Clean(p))
}

func (h *HTTP) get(ctx context.Context, p string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+p, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Service: "site", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	log.Debug(log.CatSite, "fetched", "url", req.URL.String(), "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &domain.UpstreamError{Service: "site", Status: resp.StatusCode, Description: http.StatusText(resp.StatusCode)}
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

// Save always fails: a published site has no write path.
func (h *HTTP) Save(_ context.Context, dataFile string, _ content.Value) error {
	return fmt.Errorf("save %s to %s: %w", dataFile, h.baseURL, ErrReadOnly)
}
