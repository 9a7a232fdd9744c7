package catalog

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// CacheConfig bounds a Cache.
type CacheConfig struct {
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
	Capacity int           `mapstructure:"capacity" yaml:"capacity" json:"capacity"`
}

// DefaultCacheConfig keeps results for 15 seconds, 256 queries at most.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 15 * time.Second, Capacity: 256}
}

type cacheEntry struct {
	at    time.Time
	cards []Candidate
}

// Cache is a Searcher that remembers the results of another. Entries leave
// only by expiring, by capacity eviction of the least recently used, or by
// Purge. Failed calls are not cached.
type Cache struct {
	next Searcher
	ttl  time.Duration
	lru  *lru.Cache
	now  func() time.Time
}

// NewCache wraps next.
func NewCache(next Searcher, cfg CacheConfig) (*Cache, error) {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	l, err := lru.New(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{next: next, ttl: cfg.TTL, lru: l, now: time.Now}, nil
}

// Search returns cached fuzzy results for query or fetches them.
func (c *Cache) Search(ctx context.Context, query string) ([]Candidate, error) {
	return c.get(ctx, "fname:"+query, func() ([]Candidate, error) { return c.next.Search(ctx, query) })
}

// Lookup returns cached exact-name results for name or fetches them.
func (c *Cache) Lookup(ctx context.Context, name string) ([]Candidate, error) {
	return c.get(ctx, "name:"+name, func() ([]Candidate, error) { return c.next.Lookup(ctx, name) })
}

func (c *Cache) get(_ context.Context, key string, fetch func() ([]Candidate, error)) ([]Candidate, error) {
	if v, ok := c.lru.Get(key); ok {
		e := v.(cacheEntry)
		if c.now().Sub(e.at) <= c.ttl {
			cacheLookups.WithLabelValues("hit").Inc()
			return e.cards, nil
		}
		c.lru.Remove(key)
	}
	cacheLookups.WithLabelValues("miss").Inc()

	cards, err := fetch()
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, cacheEntry{at: c.now(), cards: cards})
	return cards, nil
}

// Len reports how many entries are held, expired ones included.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge drops every entry.
func (c *Cache) Purge() { c.lru.Purge() }
