package auth

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/oauth2"
)

// SharedCache is a process-wide access token cache. Token managers that
// share one cache and the same identity perform at most one exchange at a
// time between them.
type SharedCache struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, *oauth2.Token]
}

// NewSharedCache creates an empty cache. Entries are evicted when they
// reach the refresh threshold; Close stops the eviction goroutine.
func NewSharedCache() *SharedCache {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *oauth2.Token](),
	)

	go cache.Start()

	return &SharedCache{cache: cache}
}

// Len returns the number of cached tokens
func (c *SharedCache) Len() int {
	return c.cache.Len()
}

// Clear drops every cached token
func (c *SharedCache) Clear() {
	c.cache.DeleteAll()
}

// Close stops the eviction goroutine
func (c *SharedCache) Close() {
	c.cache.Stop()
}

// fetch returns the cached token for key when usable, otherwise calls
// refresh while holding the cache lock and stores its result.
func (c *SharedCache) fetch(
	key string,
	usable func(*oauth2.Token) bool,
	ttl func(*oauth2.Token) time.Duration,
	refresh func() (*oauth2.Token, error),
) (*oauth2.Token, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item := c.cache.Get(key); item != nil && usable(item.Value()) {
		return item.Value(), true, nil
	}

	tok, err := refresh()
	if err != nil {
		return nil, false, err
	}

	if d := ttl(tok); d > 0 {
		c.cache.Set(key, tok, d)
	} else {
		c.cache.Delete(key)
	}
	return tok, false, nil
}

func cacheKey(clientEmail, tokenURL, scope string) string {
	return clientEmail + "|" + tokenURL + "|" + scope
}
