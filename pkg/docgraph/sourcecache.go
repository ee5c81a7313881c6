package docgraph

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SourceCache caches a document's raw fetched source bytes by URI,
// generalizing the teacher's CacheConfig.Backend enum (local/s3/...) to
// local/redis for this module's single cacheable artifact.
type SourceCache interface {
	Get(ctx context.Context, uri string) ([]byte, bool)
	Add(ctx context.Context, uri string, source []byte)
}

// localSourceCache is the default in-process cache, an LRU bounded at
// sourceCacheSize entries.
type localSourceCache struct {
	cache *lru.Cache[string, []byte]
}

func newLocalSourceCache(size int) *localSourceCache {
	cache, _ := lru.New[string, []byte](size)
	return &localSourceCache{cache: cache}
}

func (c *localSourceCache) Get(_ context.Context, uri string) ([]byte, bool) {
	return c.cache.Get(uri)
}

func (c *localSourceCache) Add(_ context.Context, uri string, source []byte) {
	c.cache.Add(uri, source)
}
