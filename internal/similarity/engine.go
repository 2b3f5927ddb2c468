// Package similarity compares two texts by the cosine similarity of their sentence embeddings.
package similarity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/textsim/internal/embedding"
	"github.com/hyperjump/textsim/internal/models"
	"github.com/hyperjump/textsim/internal/textproc"
	"github.com/hyperjump/textsim/internal/vector"
	"github.com/hyperjump/textsim/pkg/utils"
)

// Interpretation thresholds, inclusive on the lower bound.
const (
	VerySimilarThreshold       = 0.8
	ModeratelySimilarThreshold = 0.6
	SomewhatSimilarThreshold   = 0.3
)

// DefaultMaxTextLength is the longest accepted text, in characters.
const DefaultMaxTextLength = 10000

// Engine compares texts using models obtained from a Loader.
type Engine struct {
	loader        *embedding.Loader
	maxTextLength int
	previewLength int
}

// NewEngine creates an engine. maxTextLength <= 0 uses DefaultMaxTextLength; previewLength <= 0
// keeps whole texts in result previews.
func NewEngine(loader *embedding.Loader, maxTextLength, previewLength int) *Engine {
	if maxTextLength <= 0 {
		maxTextLength = DefaultMaxTextLength
	}
	return &Engine{loader: loader, maxTextLength: maxTextLength, previewLength: previewLength}
}

// Loader returns the loader the engine draws models from.
func (e *Engine) Loader() *embedding.Loader {
	return e.loader
}

// MaxTextLength returns the longest accepted text, in characters.
func (e *Engine) MaxTextLength() int {
	return e.maxTextLength
}

// Validate returns an error wrapping models.ErrInvalidInput when text is empty, whitespace
// only, or longer than the maximum length.
func (e *Engine) Validate(name, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %s is empty", models.ErrInvalidInput, name)
	}
	if n := utils.RuneCount(text); n > e.maxTextLength {
		return fmt.Errorf("%w: %s is %d characters, maximum is %d", models.ErrInvalidInput, name, n, e.maxTextLength)
	}
	return nil
}

// Encode returns the embedding of text under the model held by h.
func (e *Engine) Encode(ctx context.Context, h *embedding.Handle, text string) ([]float32, error) {
	if err := e.Validate("text", text); err != nil {
		return nil, err
	}
	vec, err := h.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("encode with %s: %w", h.Descriptor.ID, err)
	}
	if len(vec) != h.Descriptor.Dimensions {
		return nil, fmt.Errorf("encode with %s: got %d dimensions, want %d", h.Descriptor.ID, len(vec), h.Descriptor.Dimensions)
	}
	return vec, nil
}

// Compare normalizes both texts with opts, encodes them with the model modelID (empty selects
// the default model) and scores them.
func (e *Engine) Compare(ctx context.Context, modelID, text1, text2 string, opts textproc.Options) (*models.ComparisonResult, error) {
	start := time.Now()

	if err := e.Validate("text1", text1); err != nil {
		return nil, err
	}
	if err := e.Validate("text2", text2); err != nil {
		return nil, err
	}
	n1 := textproc.Normalize(text1, opts)
	n2 := textproc.Normalize(text2, opts)
	if strings.TrimSpace(n1) == "" || strings.TrimSpace(n2) == "" {
		return nil, fmt.Errorf("%w: text is empty after preprocessing", models.ErrInvalidInput)
	}

	h, err := e.loader.Get(ctx, modelID)
	if err != nil {
		return nil, err
	}
	v1, err := e.Encode(ctx, h, n1)
	if err != nil {
		return nil, err
	}
	v2, err := e.Encode(ctx, h, n2)
	if err != nil {
		return nil, err
	}
	cos, err := vector.Cosine(v1, v2)
	if err != nil {
		return nil, err
	}
	score := vector.Clamp01(cos)
	interp := Interpret(score)

	t1 := h.CountTokens(n1)
	t2 := h.CountTokens(n2)
	return &models.ComparisonResult{
		ID:             uuid.NewString(),
		Score:          score,
		Percentage:     score * 100,
		Interpretation: interp,
		Label:          interp.Label(),
		Color:          interp.Color(),
		ElapsedMS:      float64(time.Since(start).Microseconds()) / 1000,
		ModelID:        h.Descriptor.ID,
		Provider:       h.Provider,
		Text1Preview:   utils.Truncate(text1, e.previewLength),
		Text2Preview:   utils.Truncate(text2, e.previewLength),
		Tokens: models.TokenInfo{
			Text1:        t1,
			Text2:        t2,
			Total:        t1 + t2,
			MaxSeqLength: h.Descriptor.MaxSeqLength,
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

// Interpret maps a score in [0, 1] to its band.
func Interpret(score float64) models.Interpretation {
	switch {
	case score >= VerySimilarThreshold:
		return models.VerySimilar
	case score >= ModeratelySimilarThreshold:
		return models.ModeratelySimilar
	case score >= SomewhatSimilarThreshold:
		return models.SomewhatSimilar
	default:
		return models.NotSimilar
	}
}

// Analysis returns the reading of a result used in reports.
func Analysis(score float64, i models.Interpretation) string {
	overlap := "are semantically distinct"
	switch {
	case score > ModeratelySimilarThreshold:
		overlap = "share significant semantic content"
	case score > SomewhatSimilarThreshold:
		overlap = "have limited semantic overlap"
	}
	return fmt.Sprintf("The semantic similarity between the two texts is %s.\nThis score indicates that the texts %s.",
		strings.ToLower(i.Label()), overlap)
}
