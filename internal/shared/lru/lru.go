// Package lru tracks recency for a bounded set of integer keys.
//
// The directory uses it to cap how many background sessions stay alive: every
// backgrounded session is Put, a foregrounded one is Removed, and an evicted key
// names the session to reclaim.
package lru

import (
	"container/list"
	"sync"
)

// NoEviction is returned by Put when nothing was evicted
const NoEviction int32 = -1

// Cache is a fixed-capacity recency tracker. The front of the list is the most
// recently used key.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[int32]*list.Element
}

// New creates a cache holding at most capacity keys. A capacity below one is treated as one.
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[int32]*list.Element, capacity),
	}
}

// Visit reports whether key is tracked and, if so, marks it most recently used
func (c *Cache) Visit(key int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		return false
	}
	c.order.MoveToFront(elem)
	return true
}

// Put inserts key as most recently used and returns the evicted key, or
// NoEviction. Putting a tracked key only refreshes it.
func (c *Cache) Put(key int32) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.order.MoveToFront(elem)
		return NoEviction
	}

	c.index[key] = c.order.PushFront(key)
	if c.order.Len() <= c.capacity {
		return NoEviction
	}

	oldest := c.order.Back()
	c.order.Remove(oldest)
	evicted := oldest.Value.(int32)
	delete(c.index, evicted)
	return evicted
}

// Remove stops tracking key. Absent keys are ignored.
func (c *Cache) Remove(key int32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.order.Remove(elem)
		delete(c.index, key)
	}
}

// Len returns the number of tracked keys
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns tracked keys from most to least recently used
func (c *Cache) Keys() []int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]int32, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(int32))
	}
	return keys
}
