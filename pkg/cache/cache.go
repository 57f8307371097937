// Package cache provides a bounded LRU cache of source file contents keyed by
// path, with explicit invalidation.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Entry represents a cache entry with metadata.
type Entry struct {
	Path       string
	Data       []byte
	AccessedAt time.Time
	CreatedAt  time.Time
}

// listItem is an item in the doubly-linked list.
type listItem struct {
	Entry
	prev *listItem
	next *listItem
}

// list represents a doubly-linked list.
type list struct {
	head *listItem // most recently accessed
	tail *listItem // least recently accessed
	len  int
}

func (l *list) unlink(item *listItem) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		l.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		l.tail = item.prev
	}
	item.prev, item.next = nil, nil
	l.len--
}

func (l *list) pushFront(item *listItem) {
	item.next = l.head
	item.prev = nil
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
	l.len++
}

func (l *list) moveToFront(item *listItem) {
	if item == l.head {
		return
	}
	l.unlink(item)
	l.pushFront(item)
}

// Options configures the file cache.
type Options struct {
	// MaxEntries is the maximum number of files. 0 means unlimited.
	MaxEntries int

	// MaxBytes is the maximum total content size. 0 means unlimited.
	MaxBytes int64

	// OnEvict is called when a file is evicted or invalidated.
	OnEvict func(path string)
}

// Stats returns cache statistics.
type Stats struct {
	Length       int   `json:"length"`
	CurrentBytes int64 `json:"current_bytes"`
	HitCount     int64 `json:"hit_count"`
	MissCount    int64 `json:"miss_count"`
	Evictions    int64 `json:"evictions"`
}

// FileCache is an in-memory LRU cache of file contents.
type FileCache struct {
	mu           sync.Mutex
	items        map[string]*listItem
	lru          *list
	maxEntries   int
	maxBytes     int64
	currentBytes int64
	onEvict      func(path string)

	hits      int64
	misses    int64
	evictions int64
}

// New creates a new file cache with the given options.
func New(opts Options) *FileCache {
	return &FileCache{
		items:      make(map[string]*listItem),
		lru:        &list{},
		maxEntries: opts.MaxEntries,
		maxBytes:   opts.MaxBytes,
		onEvict:    opts.OnEvict,
	}
}

// Get returns the cached contents of path.
func (c *FileCache) Get(path string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[path]
	if !found {
		c.misses++
		return nil, false
	}

	c.hits++
	item.AccessedAt = time.Now()
	c.lru.moveToFront(item)
	return item.Data, true
}

// Put stores the contents of path. Files larger than MaxBytes are not cached.
func (c *FileCache) Put(path string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(data))
	if c.maxBytes > 0 && size > c.maxBytes {
		return
	}

	now := time.Now()
	if item, exists := c.items[path]; exists {
		c.currentBytes += size - int64(len(item.Data))
		item.Data = data
		item.AccessedAt = now
		c.lru.moveToFront(item)
		c.evictIfNeeded()
		return
	}

	item := &listItem{Entry: Entry{Path: path, Data: data, AccessedAt: now, CreatedAt: now}}
	c.items[path] = item
	c.lru.pushFront(item)
	c.currentBytes += size
	c.evictIfNeeded()
}

// Invalidate drops path from the cache. It reports whether it was present.
func (c *FileCache) Invalidate(path string) bool {
	c.mu.Lock()
	item, found := c.items[path]
	if found {
		c.remove(item)
	}
	c.mu.Unlock()

	if found && c.onEvict != nil {
		c.onEvict(path)
	}
	return found
}

// InvalidatePrefix drops every path at or below dir and returns how many
// entries were removed.
func (c *FileCache) InvalidatePrefix(dir string) int {
	prefix := strings.TrimSuffix(dir, "/") + "/"

	c.mu.Lock()
	var dropped []string
	for path, item := range c.items {
		if path == dir || strings.HasPrefix(path, prefix) {
			c.remove(item)
			dropped = append(dropped, path)
		}
	}
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, path := range dropped {
			c.onEvict(path)
		}
	}
	return len(dropped)
}

// Clear removes all entries from the cache.
func (c *FileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*listItem)
	c.lru = &list{}
	c.currentBytes = 0
}

// Len returns the number of cached files.
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the cache counters.
func (c *FileCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Length:       len(c.items),
		CurrentBytes: c.currentBytes,
		HitCount:     c.hits,
		MissCount:    c.misses,
		Evictions:    c.evictions,
	}
}

// HitRate returns the cache hit rate.
func (c *FileCache) HitRate() float64 {
	s := c.Stats()
	total := s.HitCount + s.MissCount
	if total == 0 {
		return 0
	}
	return float64(s.HitCount) / float64(total)
}

// remove must be called with c.mu held.
func (c *FileCache) remove(item *listItem) {
	c.lru.unlink(item)
	delete(c.items, item.Path)
	c.currentBytes -= int64(len(item.Data))
}

// evictIfNeeded must be called with c.mu held.
func (c *FileCache) evictIfNeeded() {
	for c.shouldEvict() {
		item := c.lru.tail
		if item == nil {
			return
		}
		c.remove(item)
		c.evictions++
		if c.onEvict != nil {
			c.onEvict(item.Path)
		}
	}
}

func (c *FileCache) shouldEvict() bool {
	if c.maxEntries > 0 && c.lru.len > c.maxEntries {
		return true
	}
	if c.maxBytes > 0 && c.currentBytes > c.maxBytes {
		return true
	}
	return false
}
