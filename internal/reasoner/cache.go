package reasoner

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"neurosym/internal/logging"
)

// Cached memoizes reasoning calls by fact fingerprint. The forward pass
// issues one synchronous reasoning call per input instance, which makes the
// reasoner the dominant latency cost of training and inference; datasets
// revisit the same instances every epoch, so the hit rate is high.
//
// AddKnowledge purges the cache, since new rules can change any result.
type Cached struct {
	inner Reasoner
	cache *lru.Cache[string, Result]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCached wraps inner with an LRU of the given size.
func NewCached(inner Reasoner, size int) (*Cached, error) {
	cache, err := lru.New[string, Result](size)
	if err != nil {
		return nil, fmt.Errorf("reasoner: cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Reason implements Reasoner.
func (c *Cached) Reason(ctx context.Context, facts []Fact, query string) (Result, error) {
	key := fmt.Sprintf("%s|%x", query, fingerprint(facts))
	if result, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return result, nil
	}

	result, err := c.inner.Reason(ctx, facts, query)
	if err != nil {
		return Result{}, err
	}
	c.misses.Add(1)
	c.cache.Add(key, result)
	return result, nil
}

// AddKnowledge implements Reasoner, invalidating all cached results.
func (c *Cached) AddKnowledge(rules []string) error {
	if err := c.inner.AddKnowledge(rules); err != nil {
		return err
	}
	c.cache.Purge()
	logging.ReasoningDebug("reasoning cache purged after knowledge update")
	return nil
}

// ExplainReasoning implements Reasoner.
func (c *Cached) ExplainReasoning(result Result) string {
	return c.inner.ExplainReasoning(result)
}

// OutputSize implements Reasoner.
func (c *Cached) OutputSize() int { return c.inner.OutputSize() }

// Stats returns cache hit and miss counts.
func (c *Cached) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
