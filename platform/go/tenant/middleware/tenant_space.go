package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	platformauth "github.com/optoplus-health/optoplus/platform/go/auth"
	"github.com/optoplus-health/optoplus/platform/go/tenant"
)

// Config controls middleware behavior.
type Config struct {
	// Optional small in-memory TTL cache to avoid registry hits; zero disables caching.
	CacheTTL time.Duration
}

// WithClinicSpace resolves the request's clinic via the given resolver and
// attaches the tenant Space to the context. Requests that cannot be bound to
// a clinic are rejected before any handler runs.
func WithClinicSpace(resolver tenant.Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}

	var cache *spaceCache
	if cfg.CacheTTL > 0 {
		cache = newSpaceCache(cfg.CacheTTL)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := overrideCacheKey(r)
			if cached := cacheGet(cache, key); cached != nil {
				ctx := tenant.WithSpace(r.Context(), *cached)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			space, err := resolver.Resolve(r.Context(), r)
			if err != nil {
				switch {
				case errors.Is(err, tenant.ErrClinicRequired):
					http.Error(w, "clinic required", http.StatusUnauthorized)
				case errors.Is(err, tenant.ErrOverrideDenied):
					http.Error(w, "forbidden", http.StatusForbidden)
				default:
					http.Error(w, "clinic not found", http.StatusNotFound)
				}
				return
			}

			cachePut(cache, key, space)

			ctx := tenant.WithSpace(r.Context(), space)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// overrideCacheKey scopes cached override resolutions to the authenticated
// principal. A cached Space is an authorization decision as much as a lookup
// result; serving it across principals would let anyone replay an admin's
// override header, so entries are keyed by user id plus header and an
// unauthenticated or header-less request never touches the cache.
func overrideCacheKey(r *http.Request) string {
	override := r.Header.Get(tenant.OverrideHeader)
	if override == "" {
		return ""
	}
	creds, ok := platformauth.UserFromContext(r.Context())
	if !ok || creds == nil || creds.UserID == 0 {
		return ""
	}
	return strconv.FormatInt(creds.UserID, 10) + "\n" + override
}

// spaceCache keys resolved spaces by principal and override header value;
// session bound resolutions are not cached because the claim already avoids
// a registry hit on the hot path once pools exist.
type spaceCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]cacheItem
}

type cacheItem struct {
	space     tenant.Space
	expiresAt time.Time
}

func newSpaceCache(ttl time.Duration) *spaceCache {
	return &spaceCache{ttl: ttl, items: make(map[string]cacheItem)}
}

func cacheGet(c *spaceCache, key string) *tenant.Space {
	if c == nil || key == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[key]
	if !ok || time.Now().After(item.expiresAt) {
		return nil
	}
	return &item.space
}

func cachePut(c *spaceCache, key string, space tenant.Space) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem{space: space, expiresAt: time.Now().Add(c.ttl)}
}
