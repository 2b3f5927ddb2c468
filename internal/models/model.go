// Package models defines the data types shared by the similarity core, the batch runner and the API.
package models

// SpeedTier is a coarse inference speed rating for a model.
type SpeedTier string

const (
	SpeedFast   SpeedTier = "fast"
	SpeedMedium SpeedTier = "medium"
	SpeedSlow   SpeedTier = "slow"
)

// AccuracyTier is a coarse quality rating for a model.
type AccuracyTier string

const (
	AccuracyFair      AccuracyTier = "fair"
	AccuracyGood      AccuracyTier = "good"
	AccuracyExcellent AccuracyTier = "excellent"
)

// ModelDescriptor describes a sentence-embedding model known to the registry.
type ModelDescriptor struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Dimensions     int          `json:"dimensions"`
	MaxSeqLength   int          `json:"max_seq_length"`
	SpeedTier      SpeedTier    `json:"speed_tier"`
	AccuracyTier   AccuracyTier `json:"accuracy_tier"`
	RecommendedFor string       `json:"recommended_for"`
}
