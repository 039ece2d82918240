package resilience

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// LimiterRegistry holds one token-bucket limiter per AI provider so that
// concurrent fallback searches and sequential pipeline phases share the same
// budget against each API.
type LimiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	defaults func(provider string) *rate.Limiter
}

// DefaultProviderLimits returns the standard per-provider limits: roughly one
// request per second with a small burst, which keeps a four-way concurrent
// gap fill inside typical API rate limits.
func DefaultProviderLimits() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"perplexity": rate.NewLimiter(1, 2),
		"openai":     rate.NewLimiter(2, 4),
	}
}

// NewLimiterRegistry creates a registry seeded with the given limiters.
// Providers without an entry get a fresh limiter of one request per second.
func NewLimiterRegistry(seed map[string]*rate.Limiter) *LimiterRegistry {
	limiters := make(map[string]*rate.Limiter, len(seed))
	for k, v := range seed {
		limiters[k] = v
	}
	return &LimiterRegistry{
		limiters: limiters,
		defaults: func(string) *rate.Limiter { return rate.NewLimiter(1, 1) },
	}
}

// Limiter returns the limiter for a provider, creating a default one the
// first time an unknown provider is seen.
func (r *LimiterRegistry) Limiter(provider string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	lim, ok := r.limiters[provider]
	if !ok {
		lim = r.defaults(provider)
		r.limiters[provider] = lim
	}
	return lim
}

// Wait blocks until the provider's limiter grants a token or ctx is done.
func (r *LimiterRegistry) Wait(ctx context.Context, provider string) error {
	return r.Limiter(provider).Wait(ctx)
}
