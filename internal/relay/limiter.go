package relay

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/almostacms/almostacms/internal/cachemanager"
)

// limiterIdle is how long an IP's bucket is kept after its last request.
const limiterIdle = 10 * time.Minute

// Limiter is a per-client token bucket. Buckets live in a cache so idle
// clients are forgotten.
type Limiter struct {
	limit   rate.Limit
	burst   int
	buckets cachemanager.CacheManager[string, *rate.Limiter]
}

// NewLimiter allows rps requests per second per client with the given
// burst. rps <= 0 disables limiting.
func NewLimiter(rps float64, burst int) *Limiter {
	l := &Limiter{limit: rate.Limit(rps), burst: burst}
	if rps > 0 {
		l.buckets = cachemanager.NewInMemoryCacheManager[string, *rate.Limiter]("relay-ratelimit", limiterIdle, 2*limiterIdle)
	}
	return l
}

// Enabled reports whether requests are limited at all.
func (l *Limiter) Enabled() bool { return l.buckets != nil }

// Allow takes a token from key's bucket.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if !l.Enabled() {
		return true
	}
	b, ok := l.buckets.GetWithRefresh(ctx, key, limiterIdle)
	if !ok {
		b, _ = l.buckets.GetOrAdd(ctx, key, rate.NewLimiter(l.limit, l.burst), limiterIdle)
	}
	return b.Allow()
}

// ClientIP is the host part of the request's remote address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
