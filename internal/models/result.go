package models

import "time"

// Interpretation is the human-facing band a similarity score falls into.
type Interpretation string

const (
	VerySimilar       Interpretation = "very_similar"
	ModeratelySimilar Interpretation = "moderately_similar"
	SomewhatSimilar   Interpretation = "somewhat_similar"
	NotSimilar        Interpretation = "not_similar"
)

// Label returns the display label for the band, e.g. "Very Similar".
func (i Interpretation) Label() string {
	switch i {
	case VerySimilar:
		return "Very Similar"
	case ModeratelySimilar:
		return "Moderately Similar"
	case SomewhatSimilar:
		return "Somewhat Similar"
	default:
		return "Not Similar"
	}
}

// Color returns the hex color used to render the band.
func (i Interpretation) Color() string {
	switch i {
	case VerySimilar:
		return "#28a745"
	case ModeratelySimilar:
		return "#ffc107"
	case SomewhatSimilar:
		return "#17a2b8"
	default:
		return "#dc3545"
	}
}

// TokenInfo reports token counts of the two compared texts.
type TokenInfo struct {
	Text1        int `json:"text1_tokens"`
	Text2        int `json:"text2_tokens"`
	Total        int `json:"total_tokens"`
	MaxSeqLength int `json:"max_seq_length"`
}

// ComparisonResult is the outcome of comparing two texts. It is not modified after creation.
type ComparisonResult struct {
	ID             string         `json:"id"`
	Score          float64        `json:"score"`
	Percentage     float64        `json:"percentage"`
	Interpretation Interpretation `json:"interpretation"`
	Label          string         `json:"label"`
	Color          string         `json:"color"`
	ElapsedMS      float64        `json:"elapsed_ms"`
	ModelID        string         `json:"model_id"`
	Provider       string         `json:"provider"`
	Text1Preview   string         `json:"text1_preview"`
	Text2Preview   string         `json:"text2_preview"`
	Tokens         TokenInfo      `json:"tokens"`
	Timestamp      time.Time      `json:"timestamp"`
}

// BatchRow is one row of a batch run: either Result or Error is set.
type BatchRow struct {
	PairID       int               `json:"pair_id"`
	Text1Preview string            `json:"text1"`
	Text2Preview string            `json:"text2"`
	Result       *ComparisonResult `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// OK reports whether the row produced a score.
func (r *BatchRow) OK() bool {
	return r.Result != nil && r.Error == ""
}

// HistogramBin counts scores in [Lower, Upper). The last bin includes 1.0.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// BatchStats aggregates the successful rows of a batch run.
type BatchStats struct {
	Count        int            `json:"count"`
	Succeeded    int            `json:"succeeded"`
	Failed       int            `json:"failed"`
	Mean         float64        `json:"mean"`
	Min          float64        `json:"min"`
	Max          float64        `json:"max"`
	Distribution []HistogramBin `json:"distribution"`
}

// BatchResult is the outcome of a batch run. Stats is nil when no row succeeded.
type BatchResult struct {
	ID        string      `json:"id"`
	ModelID   string      `json:"model_id"`
	Rows      []*BatchRow `json:"rows"`
	Stats     *BatchStats `json:"stats,omitempty"`
	ElapsedMS float64     `json:"elapsed_ms"`
	CreatedAt time.Time   `json:"created_at"`
}

// TextPair is one (text1, text2) input row.
type TextPair struct {
	Text1 string `json:"text1"`
	Text2 string `json:"text2"`
}
