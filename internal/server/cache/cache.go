// Package cache holds listing pages so repeated board reads skip the store.
//
// The whole cache is invalidated on every successful write. Keys carry a
// generation number that InvalidateAll bumps, so a page computed from data
// read before an invalidation can never be served after it.
package cache

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dominikcirko/kanban-app/internal/server/models"
)

type TaskPage = models.Page[models.Task]

// PageCache is a bounded cache of task pages backed by ristretto.
type PageCache struct {
	pages *ristretto.Cache[string, TaskPage]
	gen   atomic.Uint64
}

// New builds a cache holding at most maxPages pages.
func New(maxPages int64) (*PageCache, error) {
	pages, err := ristretto.NewCache(&ristretto.Config[string, TaskPage]{
		NumCounters: maxPages * 10,
		MaxCost:     maxPages,
		BufferItems: 64,
		// cost counts pages, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize page cache: %w", err)
	}
	return &PageCache{pages: pages}, nil
}

// Generation is the current invalidation epoch. Capture it before reading
// the store and hand it to Put.
func (c *PageCache) Generation() uint64 {
	return c.gen.Load()
}

// Get returns the page stored under key in the current generation.
func (c *PageCache) Get(key string) (TaskPage, bool) {
	page, ok := c.pages.Get(c.versioned(c.gen.Load(), key))
	if !ok {
		return TaskPage{}, false
	}
	page.Content = slices.Clone(page.Content)
	return page, true
}

// Put stores page under key for generation gen. Pages from an older
// generation are discarded.
func (c *PageCache) Put(gen uint64, key string, page TaskPage) {
	if gen != c.gen.Load() {
		return
	}
	page.Content = slices.Clone(page.Content)
	c.pages.Set(c.versioned(gen, key), page, 1)
	c.pages.Wait()
}

// InvalidateAll drops every cached page.
func (c *PageCache) InvalidateAll() {
	c.gen.Add(1)
	c.pages.Clear()
}

func (c *PageCache) Close() {
	c.pages.Close()
}

func (c *PageCache) versioned(gen uint64, key string) string {
	return fmt.Sprintf("%d/%s", gen, key)
}
