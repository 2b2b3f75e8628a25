package embed

import (
	"context"
	"fmt"
	"log/slog"

	"budgetadvisor/internal/cache"
)

// VectorStore is a persistent embedding store such as storage.SQLiteStore.
type VectorStore interface {
	Get(ctx context.Context, modelID, text string) ([]float32, bool, error)
	Put(ctx context.Context, modelID, text string, vec []float32) error
}

// Cached memoizes an Embedder in memory and, optionally, in a VectorStore.
// Lookups go memory, store, then the wrapped embedder; only misses reach the
// model and they are sent in a single batch.
type Cached struct {
	inner  Embedder
	mem    *cache.LRUCache[[]float32]
	store  VectorStore
	logger *slog.Logger
}

// NewCached wraps inner. store may be nil.
func NewCached(inner Embedder, mem *cache.LRUCache[[]float32], store VectorStore, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{inner: inner, mem: mem, store: store, logger: logger}
}

// Embed returns vectors for texts, calling the wrapped embedder for misses only.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	modelID := c.inner.ModelID()
	out := make([][]float32, len(texts))
	var missing []int

	for i, t := range texts {
		key := modelID + "|" + t
		if c.mem != nil {
			if vec, ok := c.mem.Get(key); ok {
				out[i] = cloneVector(vec)
				continue
			}
		}
		if c.store != nil {
			vec, ok, err := c.store.Get(ctx, modelID, t)
			if err != nil {
				c.logger.WarnContext(ctx, "Embedding store read failed", "error", err, "model", modelID)
			} else if ok {
				c.remember(key, vec)
				out[i] = vec
				continue
			}
		}
		missing = append(missing, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	vecs, err := c.inner.Embed(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(vecs), len(batch))
	}

	for j, i := range missing {
		vec := vecs[j]
		out[i] = vec
		c.remember(modelID+"|"+texts[i], vec)
		if c.store != nil {
			if err := c.store.Put(ctx, modelID, texts[i], vec); err != nil {
				c.logger.WarnContext(ctx, "Embedding store write failed", "error", err, "model", modelID)
			}
		}
	}
	c.logger.DebugContext(ctx, "Embedded texts", "model", modelID, "requested", len(texts), "computed", len(missing))
	return out, nil
}

func (c *Cached) remember(key string, vec []float32) {
	if c.mem != nil {
		c.mem.Set(key, cloneVector(vec))
	}
}

// ModelID returns the wrapped model id.
func (c *Cached) ModelID() string { return c.inner.ModelID() }

// Close closes the wrapped embedder.
func (c *Cached) Close() error { return c.inner.Close() }
