// Package embedding provides sentence-embedding providers, their caches, and the per-model loader.
package embedding

import "context"

// Embedder produces vector embeddings for text.
// Returned slices may be shared with a cache and must not be modified.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// VectorStore persists embeddings keyed by model, provider fingerprint and text.
type VectorStore interface {
	GetEmbedding(ctx context.Context, modelID, fingerprint, text string) ([]float32, bool, error)
	PutEmbedding(ctx context.Context, modelID, fingerprint, text string, vec []float32) error
}

// Origin names what computes a model's vectors: the provider and, for onnx and openai, the model
// file or API endpoint behind it.
type Origin struct {
	ModelID  string
	Provider string
	Source   string
}

// Fingerprint is the store key for the origin, e.g. "onnx:/models/all-MiniLM-L6-v2/model.onnx"
// or "hash".
func (o Origin) Fingerprint() string {
	if o.Source == "" {
		return o.Provider
	}
	return o.Provider + ":" + o.Source
}

// embedEach calls embed for every text in order.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
