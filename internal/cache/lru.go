package cache

import (
	"container/list"
	"sync"
)

// LRUCache is a size-bounded cache. Entries leave only by eviction or Purge.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	lru     *list.List
	onEvict func(key string)
}

type cacheItem[T any] struct {
	key  string
	data T
}

// NewLRUCache creates a new LRU cache. maxSize <= 0 means unbounded.
// onEvict, if set, is called with the key of each entry pushed out by Set,
// while the caller of Set still holds whatever locks it took.
func NewLRUCache[T any](maxSize int, onEvict func(key string)) *LRUCache[T] {
	return &LRUCache[T]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		onEvict: onEvict,
	}
}

// Get retrieves a value and marks it most recently used.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheItem[T]).data, true
}

// Set stores a value, evicting the least recently used entry when full.
func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	var evicted string
	if elem, exists := c.items[key]; exists {
		elem.Value = &cacheItem[T]{key: key, data: data}
		c.lru.MoveToFront(elem)
	} else {
		c.items[key] = c.lru.PushFront(&cacheItem[T]{key: key, data: data})
		if c.maxSize > 0 && c.lru.Len() > c.maxSize {
			oldest := c.lru.Back()
			evicted = oldest.Value.(*cacheItem[T]).key
			delete(c.items, evicted)
			c.lru.Remove(oldest)
		}
	}
	c.mu.Unlock()

	if evicted != "" && c.onEvict != nil {
		c.onEvict(evicted)
	}
}

// Keys returns the keys, most recently used first.
func (c *LRUCache[T]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*cacheItem[T]).key)
	}
	return keys
}

// Purge drops every entry without calling onEvict.
func (c *LRUCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.lru.Init()
}
