package analyses

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"summarize-backend/internal/parse"
)

// ResultCache keeps recently parsed results keyed by prompt hash. A nil cache is disabled.
type ResultCache struct {
	entries *lru.Cache[string, parse.Result]
}

// NewResultCache returns a cache holding up to size results, or nil when size is not positive.
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.New[string, parse.Result](size)
	if err != nil {
		return nil, err
	}
	return &ResultCache{entries: entries}, nil
}

// Get returns a copy of the cached result for key.
func (c *ResultCache) Get(key string) (parse.Result, bool) {
	if c == nil {
		return parse.Result{}, false
	}
	r, ok := c.entries.Get(key)
	if !ok {
		return parse.Result{}, false
	}
	return cloneResult(r), true
}

// Add stores a copy of r under key.
func (c *ResultCache) Add(key string, r parse.Result) {
	if c == nil {
		return
	}
	c.entries.Add(key, cloneResult(r))
}

// Len reports the number of cached results.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
