// ABOUTME: TTL- and size-bounded set of recently seen chat event ids
// ABOUTME: Used by the bot to drop events the homeserver delivers twice

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type seenKey struct {
	key string
	at  time.Time
}

// Cache remembers keys for ttl, holding at most maxSize of them.
// Keys are kept in arrival order so expiry and eviction both pop from the front.
type Cache struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List // of seenKey, oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a dedupe cache with the specified TTL and maximum size.
func New(ttl time.Duration, maxSize int) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Seen reports whether key was already recorded within the TTL, and records it if not.
// Check and mark happen under one lock.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneLocked(now)

	if _, ok := c.index[key]; ok {
		return true
	}

	if c.order.Len() >= c.maxSize {
		c.removeLocked(c.order.Front())
	}
	c.index[key] = c.order.PushBack(seenKey{key: key, at: now})
	return false
}

// Len returns the number of keys currently remembered.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.now())
	return c.order.Len()
}

// pruneLocked drops expired keys from the front. Must be called with mu held.
func (c *Cache) pruneLocked(now time.Time) {
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		entry, _ := front.Value.(seenKey)
		if now.Sub(entry.at) < c.ttl {
			return
		}
		c.removeLocked(front)
	}
}

func (c *Cache) removeLocked(e *list.Element) {
	if e == nil {
		return
	}
	entry, _ := e.Value.(seenKey)
	c.order.Remove(e)
	delete(c.index, entry.key)
}
