// Package cache provides the in-memory amenity cache: a TTL map keyed by
// (entity, category) with lazy expiry and an optional LRU bound.
package cache

import (
	"container/list"
	"hash/fnv"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nestfind/nestfind/pkg/models"
)

// DefaultShards is the number of lock stripes used when none is configured.
const DefaultShards = 16

// Metrics receives cache lifecycle events.
type Metrics interface {
	Hit()
	Miss()
	Eviction()
	Expire()
}

// NoopMetrics ignores all events.
type NoopMetrics struct{}

func (NoopMetrics) Hit()      {}
func (NoopMetrics) Miss()     {}
func (NoopMetrics) Eviction() {}
func (NoopMetrics) Expire()   {}

type entry struct {
	key       string
	records   []models.AmenityRecord
	expiresAt time.Time
}

// shard owns a slice of the keyspace. order holds the most recently used
// entry at the front.
type shard struct {
	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List
}

// Cache is a concurrency-safe TTL cache of amenity lists.
type Cache struct {
	shards   []*shard
	perShard int
	now      func() time.Time
	metrics  Metrics

	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
}

// Option configures a Cache.
type Option func(*config)

type config struct {
	now        func() time.Time
	maxEntries int
	shards     int
	metrics    Metrics
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithMaxEntries bounds the cache size. Least recently used entries are
// evicted once the bound is reached. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *config) { c.maxEntries = n }
}

// WithShards sets the number of lock stripes.
func WithShards(n int) Option {
	return func(c *config) { c.shards = n }
}

// WithMetrics registers a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	cfg := config{now: time.Now, shards: DefaultShards}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.shards < 1 {
		cfg.shards = 1
	}
	if cfg.maxEntries > 0 && cfg.shards > cfg.maxEntries {
		cfg.shards = cfg.maxEntries
	}
	if cfg.metrics == nil {
		cfg.metrics = NoopMetrics{}
	}

	c := &Cache{
		shards:  make([]*shard, cfg.shards),
		now:     cfg.now,
		metrics: cfg.metrics,
	}
	if cfg.maxEntries > 0 {
		c.perShard = (cfg.maxEntries + cfg.shards - 1) / cfg.shards
	}
	for i := range c.shards {
		c.shards[i] = &shard{items: make(map[string]*list.Element), order: list.New()}
	}
	return c
}

// Key builds the composite cache key for an entity and category.
func Key(entityID, category string) string {
	return entityID + ":" + category
}

func (c *Cache) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Get returns the cached records for the pair if present and unexpired.
// An entry observed at or after its expiry is removed.
func (c *Cache) Get(entityID, category string) ([]models.AmenityRecord, bool) {
	key := Key(entityID, category)
	sh := c.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	el, ok := sh.items[key]
	if !ok {
		c.miss()
		return nil, false
	}
	ent := el.Value.(*entry)
	if !c.now().Before(ent.expiresAt) {
		sh.order.Remove(el)
		delete(sh.items, key)
		c.expirations.Add(1)
		c.metrics.Expire()
		c.miss()
		return nil, false
	}

	sh.order.MoveToFront(el)
	c.hits.Add(1)
	c.metrics.Hit()
	return slices.Clone(ent.records), true
}

// Set stores records for the pair, replacing any previous entry.
func (c *Cache) Set(entityID, category string, records []models.AmenityRecord, ttl time.Duration) {
	key := Key(entityID, category)
	sh := c.shardFor(key)
	ent := &entry{
		key:       key,
		records:   slices.Clone(records),
		expiresAt: c.now().Add(ttl),
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if el, ok := sh.items[key]; ok {
		el.Value = ent
		sh.order.MoveToFront(el)
		return
	}

	if c.perShard > 0 {
		for sh.order.Len() >= c.perShard {
			back := sh.order.Back()
			sh.order.Remove(back)
			delete(sh.items, back.Value.(*entry).key)
			c.evictions.Add(1)
			c.metrics.Eviction()
		}
	}
	sh.items[key] = sh.order.PushFront(ent)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	n := 0
	for _, sh := range c.shards {
		sh.mu.Lock()
		n += len(sh.items)
		sh.mu.Unlock()
	}
	return n
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	for _, sh := range c.shards {
		sh.mu.Lock()
		sh.items = make(map[string]*list.Element)
		sh.order.Init()
		sh.mu.Unlock()
	}
}

// Stats returns cache performance counters.
func (c *Cache) Stats() (models.CacheStats, error) {
	return models.CacheStats{
		Entries:     int64(c.Len()),
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
	}, nil
}

func (c *Cache) miss() {
	c.misses.Add(1)
	c.metrics.Miss()
}
