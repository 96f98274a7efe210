package parser

import (
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
)

// DefaultCacheSize is the number of parse results a Cache keeps.
const DefaultCacheSize = 128

type cacheKey struct {
	name string
	sum  uint64
}

type cacheEntry struct {
	root *cst.Node
	err  error
}

// Cache memoizes parse results by file name and content hash, so an
// unchanged file is parsed once however often it is validated. Trees are
// immutable and safe to share. A Cache is safe for concurrent use.
type Cache struct {
	entries *lru.Cache[cacheKey, cacheEntry]
	opts    []Option
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCache returns a cache holding up to size results, parsing with opts
// on a miss.
func NewCache(size int, opts ...Option) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[cacheKey, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, opts: opts}, nil
}

// Parse returns the cached result for name and input, parsing on a miss.
// Syntax errors are cached too.
func (c *Cache) Parse(name, input string) (*cst.Node, error) {
	key := cacheKey{name: name, sum: xxhash.Sum64String(input)}
	if e, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return e.root, e.err
	}
	c.misses.Add(1)

	opts := append([]Option{WithFilename(name)}, c.opts...)
	root, err := Parse(input, opts...)
	c.entries.Add(key, cacheEntry{root: root, err: err})
	return root, err
}

// ParseFile reads path and parses it through the cache.
func (c *Cache) ParseFile(path string) (*cst.Node, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.Parse(path, string(content))
}

// Stats returns the hit and miss counts so far.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every cached result.
func (c *Cache) Purge() {
	c.entries.Purge()
}
