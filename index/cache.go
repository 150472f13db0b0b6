package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/lexandro/sandboxfs-mcp/vpath"
)

// Cache defaults.
const (
	DefaultTTL      = 30 * time.Second
	DefaultCapacity = 5
)

// State is the lifecycle position of one cached root.
type State int

const (
	StateAbsent State = iota
	StateFresh
	StateStale
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "absent"
	}
}

// BuildFunc produces a new index generation for root.
type BuildFunc func(ctx context.Context, root string, options BuildOptions) (*FileIndex, error)

// CacheOptions configure a Cache. Zero values select the defaults.
type CacheOptions struct {
	TTL      time.Duration
	Capacity int
	Now      func() time.Time
	Build    BuildFunc
	Logger   *slog.Logger
}

// Cache holds at most Capacity index generations keyed by canonical root.
//
// Builds run outside the lock and there is no in-flight deduplication:
// concurrent callers on the same stale root may each rebuild it and the last
// one to finish wins. Eviction removes the entry with the oldest build time.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*FileIndex
	ttl      time.Duration
	capacity int
	now      func() time.Time
	build    BuildFunc
	logger   *slog.Logger
}

// NewCache creates an empty cache.
func NewCache(options CacheOptions) *Cache {
	c := &Cache{
		entries:  make(map[string]*FileIndex),
		ttl:      options.TTL,
		capacity: options.Capacity,
		now:      options.Now,
		build:    options.Build,
		logger:   options.Logger,
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.capacity <= 0 {
		c.capacity = DefaultCapacity
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.build == nil {
		c.build = Build
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// GetOrBuild returns the cached generation for root while it is younger than
// the TTL, otherwise builds and stores a new one.
func (c *Cache) GetOrBuild(ctx context.Context, root string, options BuildOptions) (*FileIndex, error) {
	root = filepath.Clean(root)

	c.mu.Lock()
	cached, ok := c.entries[root]
	if ok && c.now().Sub(cached.BuiltAt) < c.ttl {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	return c.rebuild(ctx, root, options)
}

// Rebuild evicts root and builds it again.
func (c *Cache) Rebuild(ctx context.Context, root string, options BuildOptions) (*FileIndex, error) {
	root = filepath.Clean(root)
	c.Invalidate(root)
	return c.rebuild(ctx, root, options)
}

// Invalidate drops root; the next access rebuilds it lazily.
func (c *Cache) Invalidate(root string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, filepath.Clean(root))
}

// InvalidatePath drops every cached root that contains absolutePath or lies
// beneath it. Returns the number of dropped roots.
func (c *Cache) InvalidatePath(absolutePath string) int {
	absolutePath = filepath.Clean(absolutePath)

	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for root := range c.entries {
		if vpath.Within(root, absolutePath) || vpath.Within(absolutePath, root) {
			delete(c.entries, root)
			dropped++
		}
	}
	return dropped
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*FileIndex)
}

// State reports where root currently is in its lifecycle.
func (c *Cache) State(root string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.entries[filepath.Clean(root)]
	switch {
	case !ok:
		return StateAbsent
	case c.now().Sub(cached.BuiltAt) < c.ttl:
		return StateFresh
	default:
		return StateStale
	}
}

// EntryInfo summarizes one cached generation.
type EntryInfo struct {
	Root      string
	BuiltAt   time.Time
	Age       time.Duration
	FileCount int
	DirCount  int
	Truncated bool
	State     State
}

// Entries lists cached generations sorted by root.
func (c *Cache) Entries() []EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	infos := make([]EntryInfo, 0, len(c.entries))
	for root, idx := range c.entries {
		state := StateFresh
		if now.Sub(idx.BuiltAt) >= c.ttl {
			state = StateStale
		}
		infos = append(infos, EntryInfo{
			Root:      root,
			BuiltAt:   idx.BuiltAt,
			Age:       now.Sub(idx.BuiltAt),
			FileCount: idx.FileCount,
			DirCount:  idx.DirCount,
			Truncated: idx.Truncated,
			State:     state,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Root < infos[j].Root })
	return infos
}

// TTL returns the configured freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) rebuild(ctx context.Context, root string, options BuildOptions) (*FileIndex, error) {
	start := c.now()
	idx, err := c.build(ctx, root, options)
	if err != nil {
		return nil, err
	}
	idx.BuiltAt = c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[root]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[root] = idx

	c.logger.Debug("index built",
		"root", root,
		"files", idx.FileCount,
		"dirs", idx.DirCount,
		"truncated", idx.Truncated,
		"elapsed", idx.BuiltAt.Sub(start),
	)
	return idx, nil
}

func (c *Cache) evictOldestLocked() {
	var oldestRoot string
	var oldest time.Time
	first := true
	for root, idx := range c.entries {
		if first || idx.BuiltAt.Before(oldest) {
			oldestRoot = root
			oldest = idx.BuiltAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestRoot)
		c.logger.Debug("index evicted", "root", oldestRoot)
	}
}
