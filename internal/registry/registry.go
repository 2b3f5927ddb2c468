// Package registry holds the fixed set of sentence-embedding models textsim can use.
package registry

import (
	"fmt"

	"github.com/hyperjump/textsim/internal/models"
)

// DefaultModelID is used when a request does not name a model.
const DefaultModelID = "all-MiniLM-L6-v2"

var descriptors = []models.ModelDescriptor{
	{
		ID:             "all-MiniLM-L6-v2",
		Name:           "MiniLM L6 v2",
		Description:    "Fast and efficient model, good balance of speed and accuracy",
		Dimensions:     384,
		MaxSeqLength:   256,
		SpeedTier:      models.SpeedFast,
		AccuracyTier:   models.AccuracyGood,
		RecommendedFor: "General purpose, quick comparisons",
	},
	{
		ID:             "all-mpnet-base-v2",
		Name:           "MPNet Base v2",
		Description:    "High-quality model with better accuracy, slower processing",
		Dimensions:     768,
		MaxSeqLength:   384,
		SpeedTier:      models.SpeedSlow,
		AccuracyTier:   models.AccuracyExcellent,
		RecommendedFor: "High accuracy requirements",
	},
	{
		ID:             "all-distilroberta-v1",
		Name:           "DistilRoBERTa v1",
		Description:    "RoBERTa-based model, good for semantic search",
		Dimensions:     768,
		MaxSeqLength:   512,
		SpeedTier:      models.SpeedMedium,
		AccuracyTier:   models.AccuracyGood,
		RecommendedFor: "Semantic search, longer texts",
	},
	{
		ID:             "paraphrase-multilingual-MiniLM-L12-v2",
		Name:           "Multilingual MiniLM",
		Description:    "Multilingual model supporting 50+ languages",
		Dimensions:     384,
		MaxSeqLength:   128,
		SpeedTier:      models.SpeedMedium,
		AccuracyTier:   models.AccuracyGood,
		RecommendedFor: "Multi-language text comparison",
	},
	{
		ID:             "paraphrase-albert-small-v2",
		Name:           "ALBERT Small v2",
		Description:    "Lightweight model, fastest processing",
		Dimensions:     768,
		MaxSeqLength:   100,
		SpeedTier:      models.SpeedFast,
		AccuracyTier:   models.AccuracyFair,
		RecommendedFor: "Speed-critical applications",
	},
}

// All returns a copy of every registered descriptor in display order.
func All() []models.ModelDescriptor {
	out := make([]models.ModelDescriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// IDs returns the registered model ids in display order.
func IDs() []string {
	ids := make([]string, len(descriptors))
	for i, d := range descriptors {
		ids[i] = d.ID
	}
	return ids
}

// Lookup returns the descriptor for id.
func Lookup(id string) (models.ModelDescriptor, bool) {
	for _, d := range descriptors {
		if d.ID == id {
			return d, true
		}
	}
	return models.ModelDescriptor{}, false
}

// Resolve is Lookup with the default applied to an empty id and an error for unknown ids.
// The error wraps both models.ErrModelLoad and models.ErrUnknownModel.
func Resolve(id string) (models.ModelDescriptor, error) {
	if id == "" {
		id = DefaultModelID
	}
	d, ok := Lookup(id)
	if !ok {
		return models.ModelDescriptor{}, fmt.Errorf("%w: %w: %q", models.ErrModelLoad, models.ErrUnknownModel, id)
	}
	return d, nil
}
