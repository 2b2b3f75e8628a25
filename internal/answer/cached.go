package answer

import (
	"context"

	"budgetadvisor/internal/cache"
	"budgetadvisor/internal/knowledge"
)

// Cached memoizes successful answers by normalized query. Both strategies
// decode deterministically, so a repeated question gives the same text.
type Cached struct {
	inner Answerer
	cache *cache.LRUCache[string]
}

// NewCached wraps inner with c.
func NewCached(inner Answerer, c *cache.LRUCache[string]) *Cached {
	return &Cached{inner: inner, cache: c}
}

// Answer returns a cached answer when present. Errors are not cached.
func (c *Cached) Answer(ctx context.Context, query string) (string, error) {
	key := knowledge.NormalizeText(query)
	if key == "" {
		return "", ErrEmptyQuery
	}
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	out, err := c.inner.Answer(ctx, query)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, out)
	return out, nil
}
