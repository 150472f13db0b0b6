package pattern

import (
	"container/list"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultCacheCapacity bounds the number of compiled matchers kept.
const DefaultCacheCapacity = 128

type cacheEntry struct {
	key     uint64
	mode    Mode
	source  string
	options Options
	matcher *Matcher
}

// Cache is an LRU of compiled matchers keyed by an xxhash of mode, options
// and pattern. Compile errors are not cached.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[uint64]*list.Element
	order    *list.List
}

// NewCache creates a cache holding up to capacity matchers.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[uint64]*list.Element),
		order:    list.New(),
	}
}

// Compile returns a cached matcher or compiles and stores a new one.
func (c *Cache) Compile(pattern string, mode Mode, options Options) (*Matcher, error) {
	options = options.withDefaults()
	key := cacheKey(pattern, mode, options)

	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		if entry.mode == mode && entry.source == pattern && entry.options == options {
			c.order.MoveToFront(elem)
			c.mu.Unlock()
			return entry.matcher, nil
		}
	}
	c.mu.Unlock()

	matcher, err := Compile(pattern, mode, options)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{
		key:     key,
		mode:    mode,
		source:  pattern,
		options: options,
		matcher: matcher,
	})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	return matcher, nil
}

// Len returns the number of cached matchers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func cacheKey(pattern string, mode Mode, options Options) uint64 {
	h := xxhash.New()
	h.WriteString(mode.String())
	h.WriteString("\x00")
	h.WriteString(strconv.FormatBool(options.IgnoreCase))
	h.WriteString("\x00")
	h.WriteString(options.Timeout.String())
	h.WriteString("\x00")
	h.WriteString(strconv.Itoa(options.MaxMatches))
	h.WriteString("\x00")
	h.WriteString(pattern)
	return h.Sum64()
}
