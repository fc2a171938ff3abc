// ABOUTME: TTL-bounded nonce cache for signature replay protection
// ABOUTME: Size-limited with O(1) oldest-first eviction

package authz

import (
	"container/list"
	"sync"
	"time"
)

type nonceEntry struct {
	timestamp time.Time
	element   *list.Element
}

// nonceCache tracks seen nonces so a captured signed request cannot be
// replayed inside the timestamp window.
type nonceCache struct {
	mu      sync.Mutex
	seen    map[string]*nonceEntry
	order   *list.List
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

func newNonceCache(ttl time.Duration, maxSize int) *nonceCache {
	c := &nonceCache{
		seen:    make(map[string]*nonceEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// checkAndMark atomically tests and records a nonce. Returns true when the
// nonce was already seen inside the TTL.
func (c *nonceCache) checkAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.seen[key]; ok && time.Since(entry.timestamp) < c.ttl {
		return true
	}

	now := time.Now()
	if entry, ok := c.seen[key]; ok {
		entry.timestamp = now
		c.order.MoveToBack(entry.element)
		return false
	}
	if len(c.seen) >= c.maxSize {
		if front := c.order.Front(); front != nil {
			oldest, _ := front.Value.(string)
			c.order.Remove(front)
			delete(c.seen, oldest)
		}
	}
	elem := c.order.PushBack(key)
	c.seen[key] = &nonceEntry{timestamp: now, element: elem}
	return false
}

func (c *nonceCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.seen {
				if now.Sub(entry.timestamp) > c.ttl {
					c.order.Remove(entry.element)
					delete(c.seen, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

func (c *nonceCache) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
