// AngelaMos | 2026
// cache.go

package configurator

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

// DocumentCache holds published documents keyed by configurator id.
// Entries expire on their own; mutations remove them eagerly.
//
// Every removal bumps a generation counter. A loader reads the generation
// before going to the database and hands it back to Add, which drops the
// document if anything was invalidated in between.
type DocumentCache struct {
	mu         sync.Mutex
	generation uint64
	docs       *lru.LRU[string, *Document]
}

func NewDocumentCache(size int, ttl time.Duration) *DocumentCache {
	if size < 10 {
		size = 10
	}
	return &DocumentCache{docs: lru.NewLRU[string, *Document](size, nil, ttl)}
}

func (c *DocumentCache) Get(configuratorID string) (*Document, bool) {
	doc, ok := c.docs.Get(configuratorID)
	if ok {
		core.EmbedCacheLookups.WithLabelValues("hit").Inc()
	} else {
		core.EmbedCacheLookups.WithLabelValues("miss").Inc()
	}
	return doc, ok
}

// Generation is read before loading a document that will be passed to Add.
func (c *DocumentCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Add stores doc unless the cache was invalidated after generation was
// read. It reports whether the document was stored.
func (c *DocumentCache) Add(generation uint64, doc *Document) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return false
	}
	c.docs.Add(doc.Configurator.ID, doc)
	return true
}

func (c *DocumentCache) Invalidate(configuratorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.docs.Remove(configuratorID)
}

// Purge drops everything. Used when a tenant-level theme changes, since
// any number of configurators may reference it.
func (c *DocumentCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.docs.Purge()
}

func (c *DocumentCache) Len() int {
	return c.docs.Len()
}
