package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/hyperjump/textsim/pkg/utils"
)

const (
	wordWeight    = 1.0
	trigramWeight = 0.5
)

// HashEmbedder is a deterministic, offline embedder based on signed feature hashing of
// lowercased words and their character trigrams. The same text always gets the same vector,
// and texts sharing vocabulary score higher than unrelated ones. It stands in for a neural
// model in tests and when no model runtime is available.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns an embedder that produces unit-length vectors of the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the hashed feature vector for text, normalized to unit length.
// Text without any word characters yields the zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	for _, word := range SplitWords(strings.ToLower(text)) {
		if !hasWordRune(word) {
			continue
		}
		e.add(emb, "w:"+word, wordWeight)
		padded := []rune("<" + word + ">")
		for i := 0; i+3 <= len(padded); i++ {
			e.add(emb, "t:"+string(padded[i:i+3]), trigramWeight)
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

func (e *HashEmbedder) add(emb []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	emb[idx] += weight
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Provider returns "hash".
func (e *HashEmbedder) Provider() string { return ProviderHash }

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}
