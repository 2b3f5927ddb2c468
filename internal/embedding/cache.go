package embedding

import (
	"container/list"
	"sync"
)

// CacheStats reports the activity of an EmbeddingCache.
type CacheStats struct {
	Capacity  int    `json:"capacity"`
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// EmbeddingCache is a least-recently-used map from normalized text to its embedding for one
// model. Stored vectors are shared with callers and must be treated as read-only.
type EmbeddingCache struct {
	capacity int

	mu      sync.Mutex
	byText  map[string]*list.Element
	order   *list.List
	hits    uint64
	misses  uint64
	evicted uint64
}

type cacheEntry struct {
	text string
	vec  []float32
}

// NewEmbeddingCache creates a cache holding at most capacity vectors.
// A capacity of zero or less disables caching.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		byText:   make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the embedding for text and marks it most recently used.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.byText[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).vec, true
}

// Set stores vec for text. When full, the least recently used vector is dropped.
func (c *EmbeddingCache) Set(text string, vec []float32) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byText[text]; ok {
		elem.Value.(*cacheEntry).vec = vec
		c.order.MoveToFront(elem)
		return
	}
	c.byText[text] = c.order.PushFront(&cacheEntry{text: text, vec: vec})
	for c.order.Len() > c.capacity {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.byText, last.Value.(*cacheEntry).text)
		c.evicted++
	}
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *EmbeddingCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Capacity:  c.capacity,
		Entries:   c.order.Len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evicted,
	}
}
