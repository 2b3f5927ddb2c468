package embedding

import "context"

// CachedEmbedder consults an in-memory LRU, then an optional persistent store, before calling
// the wrapped embedder. Store failures degrade to a miss.
// Stored vectors are keyed by the origin's fingerprint, so a model served by a fallback provider
// never reads or overwrites the vectors of its real provider.
type CachedEmbedder struct {
	inner  Embedder
	origin Origin
	cache  *EmbeddingCache
	store  VectorStore
}

// NewCachedEmbedder wraps inner, whose vectors come from origin. store may be nil.
func NewCachedEmbedder(inner Embedder, origin Origin, cacheSize int, store VectorStore) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		origin: origin,
		cache:  NewEmbeddingCache(cacheSize),
		store:  store,
	}
}

// Embed returns the cached embedding for text or computes and caches it.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if emb, ok := e.lookup(ctx, text); ok {
		return emb, nil
	}
	emb, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.remember(ctx, text, emb)
	return emb, nil
}

// EmbedBatch resolves cached texts and sends the remaining distinct texts to the wrapped
// embedder in one call.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	pending := make(map[string][]int)
	var misses []string
	for i, text := range texts {
		if emb, ok := e.lookup(ctx, text); ok {
			out[i] = emb
			continue
		}
		if _, seen := pending[text]; !seen {
			misses = append(misses, text)
		}
		pending[text] = append(pending[text], i)
	}
	if len(misses) == 0 {
		return out, nil
	}
	embs, err := e.inner.EmbedBatch(ctx, misses)
	if err != nil {
		return nil, err
	}
	for j, text := range misses {
		e.remember(ctx, text, embs[j])
		for _, i := range pending[text] {
			out[i] = embs[j]
		}
	}
	return out, nil
}

func (e *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	if emb, ok := e.cache.Get(text); ok {
		return emb, true
	}
	if e.store == nil {
		return nil, false
	}
	emb, ok, err := e.store.GetEmbedding(ctx, e.origin.ModelID, e.origin.Fingerprint(), text)
	if err != nil || !ok || len(emb) != e.inner.Dimensions() {
		return nil, false
	}
	e.cache.Set(text, emb)
	return emb, true
}

func (e *CachedEmbedder) remember(ctx context.Context, text string, emb []float32) {
	e.cache.Set(text, emb)
	if e.store != nil {
		_ = e.store.PutEmbedding(ctx, e.origin.ModelID, e.origin.Fingerprint(), text, emb)
	}
}

// Provider returns the provider computing the vectors, e.g. "hash" when a fallback is in use.
func (e *CachedEmbedder) Provider() string {
	return e.origin.Provider
}

// Dimensions returns the wrapped embedder's dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close closes the wrapped embedder.
func (e *CachedEmbedder) Close() error {
	return e.inner.Close()
}

// CacheLen returns the number of embeddings held in memory.
func (e *CachedEmbedder) CacheLen() int {
	return e.cache.Len()
}

// CacheStats returns the in-memory cache counters.
func (e *CachedEmbedder) CacheStats() CacheStats {
	return e.cache.Stats()
}
