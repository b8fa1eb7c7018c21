// ABOUTME: Thread-safe TTL cache for deduplicating inbound transport messages.
// ABOUTME: Admission is atomic check-and-insert so a message id is forwarded at most once per window.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// cacheEntry stores admission metadata for a message id.
type cacheEntry struct {
	firstSeen time.Time
	processed bool
	element   *list.Element
}

// Cache provides a thread-safe, TTL-based, size-limited admission cache for
// inbound message ids. Within the TTL window a given id is admitted at most
// once; ids that reappear after the window are treated as new. Uses a
// doubly-linked list to maintain insertion order for O(1) eviction.
type Cache struct {
	mu      sync.RWMutex
	seen    map[string]*cacheEntry
	order   *list.List // keys in insertion order, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a dedupe cache with the given TTL and maximum size. A
// background goroutine sweeps expired entries every TTL interval.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.sweeper()
	return c
}

// ShouldProcess atomically decides whether the message id may be forwarded.
// Returns false if an unexpired entry for id exists; otherwise records a new
// unexpired, unprocessed entry and returns true. The check and insert happen
// under one lock so concurrent webhook deliveries cannot both admit the same
// id.
func (c *Cache) ShouldProcess(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.seen[id]; ok && time.Since(entry.firstSeen) < c.ttl {
		return false
	}

	c.insertLocked(id)
	return true
}

// MarkProcessed flips the processed flag for id. Diagnostics only: admission
// is decided solely by entry presence and age, never by this flag.
func (c *Cache) MarkProcessed(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.seen[id]; ok {
		entry.processed = true
	}
}

// Seen reports whether an unexpired entry exists for id, without admitting it.
func (c *Cache) Seen(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.seen[id]
	return ok && time.Since(entry.firstSeen) < c.ttl
}

// Processed reports whether id has an unexpired entry marked processed.
func (c *Cache) Processed(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.seen[id]
	return ok && time.Since(entry.firstSeen) < c.ttl && entry.processed
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.seen)
}

// insertLocked records a fresh entry for id. Must be called with mu held.
// An existing (expired) entry is re-timestamped and moved to the back.
func (c *Cache) insertLocked(id string) {
	now := time.Now()

	if entry, exists := c.seen[id]; exists {
		entry.firstSeen = now
		entry.processed = false
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(id)
	c.seen[id] = &cacheEntry{
		firstSeen: now,
		element:   elem,
	}
}

// evictOldest removes the oldest entry. Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, key)
}

// sweeper runs in a background goroutine, removing expired entries on a
// fixed timer equal to the TTL.
func (c *Cache) sweeper() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.done:
			return
		}
	}
}

// Sweep removes all entries older than the TTL. Expired ids are collected
// under a read lock first, then deleted under the write lock, so a long scan
// never blocks concurrent admission for its full duration.
func (c *Cache) Sweep() {
	now := time.Now()

	c.mu.RLock()
	var expired []string
	for key, entry := range c.seen {
		if now.Sub(entry.firstSeen) > c.ttl {
			expired = append(expired, key)
		}
	}
	c.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range expired {
		entry, ok := c.seen[key]
		if !ok {
			continue
		}
		// Re-check age: the entry may have been re-admitted between locks.
		if now.Sub(entry.firstSeen) > c.ttl {
			c.order.Remove(entry.element)
			delete(c.seen, key)
		}
	}
}

// Close stops the background sweeper. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
