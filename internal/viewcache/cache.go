// Package viewcache provides the rendered-view cache the webhook trigger and
// call handlers invalidate when call state changes. Views are keyed by their
// page path ("/campaigns", "/campaigns/<id>"). The store is in-memory and
// single-process, matching the event layer's deployment scope.
package viewcache

import (
	"strings"
	"sync"
	"time"
)

// Invalidator is the collaborator interface consumed by the webhook trigger.
type Invalidator interface {
	// Invalidate drops the cached rendering of a single view.
	Invalidate(view string)
	// InvalidatePrefix drops every cached view under a path prefix.
	InvalidatePrefix(prefix string)
}

// ListView is the campaigns list page path.
const ListView = "/campaigns"

// DetailView returns the detail page path for a call.
func DetailView(callID string) string {
	return ListView + "/" + callID
}

type entry struct {
	body      []byte
	expiresAt time.Time
}

// Cache is an in-memory TTL store for rendered views.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

// New creates a cache whose entries expire after ttl. A zero ttl means
// entries only leave the cache through invalidation.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// Get returns the cached body for a view, if present and unexpired.
func (c *Cache) Get(view string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[view]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.Invalidate(view)
		return nil, false
	}
	return e.body, true
}

// Set stores a rendered view.
func (c *Cache) Set(view string, body []byte) {
	e := entry{body: body}
	if c.ttl > 0 {
		e.expiresAt = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[view] = e
	c.mu.Unlock()
}

// Invalidate drops a single view.
func (c *Cache) Invalidate(view string) {
	c.mu.Lock()
	delete(c.entries, view)
	c.mu.Unlock()
}

// InvalidatePrefix drops every view whose path starts with prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	for view := range c.entries {
		if strings.HasPrefix(view, prefix) {
			delete(c.entries, view)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of cached views.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ Invalidator = (*Cache)(nil)
