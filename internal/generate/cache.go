package generate

import (
	"context"
	"sync"

	"github.com/jonathan/apply-agent/internal/types"
)

// ContentStore is the durable side of the content cache. *store.DB implements
// it; a nil store leaves the cache memory-only.
type ContentStore interface {
	SaveContent(ctx context.Context, content *types.GeneratedContent) error
	GetContent(ctx context.Context, fingerprint string) (*types.GeneratedContent, error)
}

// Cache maps fingerprints to generated content, memory-first with
// write-through to the store. Entries are invalidated only by the candidate
// profile version changing, which changes the fingerprint itself.
type Cache struct {
	mu    sync.RWMutex
	mem   map[string]*types.GeneratedContent
	store ContentStore
}

// NewCache creates a content cache. store may be nil.
func NewCache(store ContentStore) *Cache {
	return &Cache{
		mem:   make(map[string]*types.GeneratedContent),
		store: store,
	}
}

// Get returns the cached content for a fingerprint, consulting memory first
// and then the store. A store hit is promoted into memory.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*types.GeneratedContent, error) {
	c.mu.RLock()
	content, ok := c.mem[fingerprint]
	c.mu.RUnlock()
	if ok {
		return content, nil
	}

	if c.store == nil {
		return nil, nil
	}
	content, err := c.store.GetContent(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if content != nil {
		c.mu.Lock()
		c.mem[fingerprint] = content
		c.mu.Unlock()
	}
	return content, nil
}

// Put stores content under its fingerprint, writing through to the store.
func (c *Cache) Put(ctx context.Context, content *types.GeneratedContent) error {
	c.mu.Lock()
	c.mem[content.Fingerprint] = content
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	return c.store.SaveContent(ctx, content)
}
