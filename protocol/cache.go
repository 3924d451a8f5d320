package protocol

import (
	"errors"
	"sync"

	"github.com/rony4d/go-opera-forks/validation"
)

// ErrNoRuleSet is returned when a build produced neither a rule set nor an
// error, including a build that panicked.
var ErrNoRuleSet = errors.New("rule set build produced no result")

// Builder compiles one era's options into a rule set.
type Builder[T comparable] func(T) (*validation.RuleSet, error)

// RuleCache memoizes Builder results by options value.
//
// The build for a given value runs at most once for the lifetime of the
// cache. Concurrent callers asking for the same unseen value wait for that
// single build and never observe a partially built set. Build errors are
// cached as well since building is deterministic.
type RuleCache[T comparable] struct {
	build   Builder[T]
	metrics *Metrics

	mu      sync.Mutex
	entries map[T]*cacheEntry
}

type cacheEntry struct {
	once sync.Once
	set  *validation.RuleSet
	err  error
}

// NewRuleCache creates an empty cache around build. metrics may be nil.
func NewRuleCache[T comparable](build Builder[T], metrics *Metrics) *RuleCache[T] {
	return &RuleCache[T]{
		build:   build,
		metrics: metrics,
		entries: make(map[T]*cacheEntry),
	}
}

// GetOrBuild returns the rule set for opts, building it on first use.
func (c *RuleCache[T]) GetOrBuild(opts T) (*validation.RuleSet, error) {
	c.mu.Lock()
	e, hit := c.entries[opts]
	if !hit {
		e = new(cacheEntry)
		c.entries[opts] = e
	}
	c.mu.Unlock()

	c.metrics.lookup(hit)
	e.once.Do(func() {
		e.set, e.err = c.build(opts)
		c.metrics.built(e.err)
	})
	if e.set == nil && e.err == nil {
		return nil, ErrNoRuleSet
	}
	return e.set, e.err
}

// Len returns the number of distinct options seen so far.
func (c *RuleCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
