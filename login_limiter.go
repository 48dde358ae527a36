package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiterConfig controls per-email login throttling
type LoginLimiterConfig struct {
	Rate            rate.Limit
	Burst           int
	CleanupInterval time.Duration
}

// DefaultLoginLimiterConfig allows 10 attempts per email and refills one
// every 6 seconds.
func DefaultLoginLimiterConfig() LoginLimiterConfig {
	return LoginLimiterConfig{
		Rate:            rate.Limit(10.0 / 60.0),
		Burst:           10,
		CleanupInterval: 5 * time.Minute,
	}
}

type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LoginLimiter throttles login attempts keyed by normalized email
type LoginLimiter struct {
	config   LoginLimiterConfig
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	now      func() time.Time
}

// NewLoginLimiter creates a limiter. Call Run to evict idle keys.
func NewLoginLimiter(config LoginLimiterConfig) *LoginLimiter {
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	return &LoginLimiter{
		config:   config,
		limiters: make(map[string]*keyLimiter),
		now:      time.Now,
	}
}

// Allow consumes one attempt for key
func (l *LoginLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	key = NormalizeEmail(key)
	now := l.now()

	l.mu.Lock()
	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(l.config.Rate, l.config.Burst)}
		l.limiters[key] = kl
	}
	kl.lastAccess = now
	l.mu.Unlock()

	return kl.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys
func (l *LoginLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Run evicts idle keys until ctx is done
func (l *LoginLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}

// Cleanup drops keys idle for more than twice the cleanup interval
func (l *LoginLimiter) Cleanup() {
	ttl := l.config.CleanupInterval * 2
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, kl := range l.limiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(l.limiters, key)
		}
	}
}
