// Package ratelimit throttles outgoing requests per host.
package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter hands out one token bucket per host. A nil *HostLimiter
// allows everything.
type HostLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
	waits    int64
}

// NewHostLimiter allows perSecond requests per host with the given burst.
// A non-positive perSecond returns nil, meaning unlimited.
func NewHostLimiter(perSecond float64, burst int) *HostLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to rawURL's host may proceed or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if h == nil {
		return nil
	}
	l := h.forHost(hostOf(rawURL))
	if l.Tokens() < 1 {
		h.mu.Lock()
		h.waits++
		h.mu.Unlock()
	}
	return l.Wait(ctx)
}

func (h *HostLimiter) forHost(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.limiters[host] = l
	}
	return l
}

// Stats reports the number of tracked hosts and of requests that had to wait.
func (h *HostLimiter) Stats() map[string]interface{} {
	if h == nil {
		return map[string]interface{}{"hosts": 0, "waits": int64(0)}
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	return map[string]interface{}{
		"hosts": len(h.limiters),
		"waits": h.waits,
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}
