package httpcache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Rate limiting.
var globalRateLimiter = newDomainRateLimiter(250*time.Millisecond, map[string]time.Duration{
	"codeforces.com": 500 * time.Millisecond, // API allows ~2 calls/second
})

type domainRateLimiter struct {
	overrides   map[string]time.Duration
	lastRequest map[string]time.Time
	locks       map[string]*sync.Mutex
	mu          sync.Mutex
	minDelay    time.Duration
}

func newDomainRateLimiter(minDelay time.Duration, overrides map[string]time.Duration) *domainRateLimiter {
	return &domainRateLimiter{
		overrides:   overrides,
		lastRequest: make(map[string]time.Time),
		locks:       make(map[string]*sync.Mutex),
		minDelay:    minDelay,
	}
}

// Wait blocks until a request to host is allowed or ctx is done.
// Requests to the same host are serialized and spaced by the host's delay.
func (r *domainRateLimiter) Wait(ctx context.Context, host string, logger *slog.Logger) error {
	if host == "" {
		return nil
	}

	r.mu.Lock()
	hostMu, ok := r.locks[host]
	if !ok {
		hostMu = &sync.Mutex{}
		r.locks[host] = hostMu
	}
	r.mu.Unlock()

	hostMu.Lock()
	defer hostMu.Unlock()

	delay := r.minDelay
	if override, ok := r.overrides[host]; ok {
		delay = override
	}

	r.mu.Lock()
	last, seen := r.lastRequest[host]
	r.mu.Unlock()

	if seen {
		if elapsed := time.Since(last); elapsed < delay {
			wait := delay - elapsed
			if logger != nil {
				logger.DebugContext(ctx, "rate limit pause", "domain", host, "wait", wait)
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	r.mu.Lock()
	r.lastRequest[host] = time.Now()
	r.mu.Unlock()
	return nil
}
