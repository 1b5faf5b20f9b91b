package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter spaces out requests to the same host.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    time.Duration
}

// NewHostLimiter allows one request per host every interval. A non-positive
// interval disables limiting.
func NewHostLimiter(every time.Duration) *HostLimiter {
	return &HostLimiter{limiters: map[string]*rate.Limiter{}, every: every}
}

// Wait blocks until a request to rawURL's host is allowed.
func (l *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil || l.every <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	return l.limiterFor(parsed.Host).Wait(ctx)
}

func (l *HostLimiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(l.every), 1)
		l.limiters[host] = limiter
	}
	return limiter
}
