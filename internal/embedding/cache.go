package embedding

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cached memoises vectors of another Embedder in memory, keyed by model id and text.
type Cached struct {
	inner Embedder
	cache *cache.Cache
}

// NewCached wraps inner. A non-positive ttl keeps entries until the process exits.
func NewCached(inner Embedder, ttl time.Duration) *Cached {
	cleanup := 2 * ttl
	if ttl <= 0 {
		ttl = cache.NoExpiration
		cleanup = 0
	}
	return &Cached{
		inner: inner,
		cache: cache.New(ttl, cleanup),
	}
}

func (c *Cached) ModelID() string {
	return c.inner.ModelID()
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int {
	return c.cache.ItemCount()
}

func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		keys[i] = c.key(text)
		if v, ok := c.cache.Get(keys[i]); ok {
			out[i] = cloneVector(v.([]float32))
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, errUnexpectedCount(len(missing), len(vecs))
	}

	for j, vec := range vecs {
		i := missingIdx[j]
		c.cache.Set(keys[i], cloneVector(vec), cache.DefaultExpiration)
		out[i] = vec
	}
	return out, nil
}

func (c *Cached) key(text string) string {
	h := sha1.New()
	_, _ = io.WriteString(h, c.inner.ModelID())
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, text)
	return hex.EncodeToString(h.Sum(nil))
}
