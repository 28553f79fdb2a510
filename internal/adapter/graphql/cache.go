package graphql

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
	"github.com/couchcryptid/prevailing-winds/internal/observability"
)

// Source is the upstream interface the cache decorates.
type Source interface {
	Metadata(ctx context.Context) (domain.Metadata, error)
	Weather(ctx context.Context, q domain.WeatherQuery) (domain.WeatherResult, error)
}

// CachedSource wraps a Source with an LRU cache for weather results and a TTL cache
// for the metadata. Errors are never cached.
type CachedSource struct {
	inner   Source
	weather *lruCache[string, domain.WeatherResult]
	metrics *observability.Metrics
	clock   clockwork.Clock
	ttl     time.Duration

	metaMu      sync.Mutex
	meta        *domain.Metadata
	metaFetched time.Time
}

// NewCachedSource creates a cache decorator around a source. A nil clock uses the
// real clock.
func NewCachedSource(inner Source, maxEntries int, metaTTL time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedSource{
		inner:   inner,
		weather: newLRUCache[string, domain.WeatherResult](maxEntries),
		metrics: metrics,
		clock:   clock,
		ttl:     metaTTL,
	}
}

// Metadata returns the cached metadata while it is younger than the TTL.
func (c *CachedSource) Metadata(ctx context.Context) (domain.Metadata, error) {
	c.metaMu.Lock()
	if c.meta != nil && c.clock.Since(c.metaFetched) < c.ttl {
		meta := *c.meta
		c.metaMu.Unlock()
		c.metrics.UpstreamCache.WithLabelValues(operationMeta, "hit").Inc()
		return meta, nil
	}
	c.metaMu.Unlock()
	c.metrics.UpstreamCache.WithLabelValues(operationMeta, "miss").Inc()

	meta, err := c.inner.Metadata(ctx)
	if err != nil {
		return meta, err
	}

	c.metaMu.Lock()
	c.meta = &meta
	c.metaFetched = c.clock.Now()
	c.metaMu.Unlock()
	return meta, nil
}

// Weather returns a cached result for an identical query, or asks the inner source.
func (c *CachedSource) Weather(ctx context.Context, q domain.WeatherQuery) (domain.WeatherResult, error) {
	key := weatherKey(q)
	if res, ok := c.weather.get(key); ok {
		c.metrics.UpstreamCache.WithLabelValues(operationWeather, "hit").Inc()
		return res, nil
	}
	c.metrics.UpstreamCache.WithLabelValues(operationWeather, "miss").Inc()

	res, err := c.inner.Weather(ctx, q)
	if err != nil {
		return res, err
	}
	c.weather.put(key, res)
	c.metrics.CacheEntries.Set(float64(c.weather.len()))
	return res, nil
}

func weatherKey(q domain.WeatherQuery) string {
	r := q.Rect
	return fmt.Sprintf("%s|%s|%.6f,%.6f,%.6f,%.6f", q.TimeRange, q.Month, r.Lats[0], r.Lats[1], r.Lngs[0], r.Lngs[1])
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*entry[K, V]
	head       *entry[K, V] // most recently used
	tail       *entry[K, V] // least recently used
}

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		entries:    make(map[K]*entry[K, V]),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[K, V]) addToFront(e *entry[K, V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[K, V]) remove(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[K, V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
