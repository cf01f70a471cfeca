// Package cache wraps an ai.Embedder with an in-process, TTL-bounded cache.
//
// Queries are often repeated within a conversation, and each dense lookup
// starts with an embedding call. Cached vectors are keyed by the BLAKE2b
// content ID of the text. Failed calls are never cached.
package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/poiesic/sessionrag/ai"
	"github.com/poiesic/sessionrag/core"
)

const (
	// DefaultTTL is how long an embedding stays cached.
	DefaultTTL = 30 * time.Minute
	// DefaultCleanupInterval is how often expired entries are purged.
	DefaultCleanupInterval = 10 * time.Minute
)

// CachingEmbedder implements ai.Embedder on top of another Embedder.
type CachingEmbedder struct {
	next   ai.Embedder
	cache  *gocache.Cache
	logger *slog.Logger
}

var _ ai.Embedder = (*CachingEmbedder)(nil)

// Option configures a CachingEmbedder.
type Option func(*options)

type options struct {
	ttl             time.Duration
	cleanupInterval time.Duration
	logger          *slog.Logger
}

// WithTTL sets the expiration of cached vectors.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithCleanupInterval sets how often expired entries are purged.
func WithCleanupInterval(interval time.Duration) Option {
	return func(o *options) {
		o.cleanupInterval = interval
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewCachingEmbedder wraps next with a cache.
func NewCachingEmbedder(next ai.Embedder, opts ...Option) *CachingEmbedder {
	o := &options{
		ttl:             DefaultTTL,
		cleanupInterval: DefaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &CachingEmbedder{
		next:   next,
		cache:  gocache.New(o.ttl, o.cleanupInterval),
		logger: o.logger.With("component", "embedding-cache"),
	}
}

// EmbedText returns the cached vector for text or computes and caches it.
func (c *CachingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if v, ok := c.get(key); ok {
		c.logger.Debug("embedding cache hit", "length", len(text))
		return v, nil
	}

	v, err := c.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.put(key, v)
	return clone(v), nil
}

// EmbedTexts serves cached vectors and embeds the misses in one batch call.
func (c *CachingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if v, ok := c.get(cacheKey(text)); ok {
			results[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	c.logger.Debug("embedding cache batch", "total", len(texts), "misses", len(missTexts))
	if len(missTexts) == 0 {
		return results, nil
	}

	vectors, err := c.next.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, v := range vectors {
		if j >= len(missIdx) {
			break
		}
		c.put(cacheKey(missTexts[j]), v)
		results[missIdx[j]] = clone(v)
	}
	return results, nil
}

// Len returns the number of cached vectors, including expired ones not yet purged.
func (c *CachingEmbedder) Len() int {
	return c.cache.ItemCount()
}

// Flush drops every cached vector.
func (c *CachingEmbedder) Flush() {
	c.cache.Flush()
}

func (c *CachingEmbedder) get(key string) ([]float32, bool) {
	x, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	return clone(x.([]float32)), true
}

func (c *CachingEmbedder) put(key string, v []float32) {
	if len(v) == 0 {
		return
	}
	c.cache.Set(key, clone(v), gocache.DefaultExpiration)
}

func cacheKey(text string) string {
	return strconv.FormatUint(uint64(core.IDFromContent(text)), 16)
}

// clone keeps callers from mutating cached vectors in place.
func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
