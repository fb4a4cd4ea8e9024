package capture

import (
	"context"
	"time"

	"github.com/livetemplate/tinkerpen/internal/cache"
	"github.com/livetemplate/tinkerpen/internal/config"
)

// CachedCapturer wraps a Capturer so that capturing the same document at the
// same size twice within the TTL reuses the first PNG.
type CachedCapturer struct {
	inner Capturer
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedCapturer creates a caching wrapper. A zero TTL disables caching
// and returns inner unchanged.
func NewCachedCapturer(inner Capturer, c cache.Cache, ttl time.Duration) Capturer {
	if ttl <= 0 || c == nil {
		return inner
	}
	return &CachedCapturer{inner: inner, cache: c, ttl: ttl}
}

// FromConfig builds the capturer described by cfg: nil when screenshots are
// disabled, a ChromeCapturer otherwise, wrapped in a memory cache when a
// cache TTL is set. The returned stop function releases the cache.
func FromConfig(cfg config.ScreenshotConfig, debug bool) (Capturer, func()) {
	chrome := NewChromeCapturer(cfg, debug)
	if chrome == nil {
		return nil, func() {}
	}

	ttl := cfg.GetCacheTTL()
	if ttl <= 0 {
		return chrome, func() {}
	}

	mc := cache.NewMemoryCache()
	return NewCachedCapturer(chrome, mc, ttl), mc.Stop
}

// Capture returns a cached PNG when available, otherwise delegates and
// caches successful results. Failures are never cached.
func (c *CachedCapturer) Capture(ctx context.Context, document string, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cache.Key(document, opts.Width, opts.Height)
	if data, found := c.cache.Get(key); found {
		return data, nil
	}

	data, err := c.inner.Capture(ctx, document, opts)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, data, c.ttl)
	return data, nil
}
