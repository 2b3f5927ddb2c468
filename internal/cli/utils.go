// Package cli provides CLI output helpers for textsim.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/textsim/internal/models"
	"github.com/hyperjump/textsim/internal/similarity"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" and "json". Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

const rule = "─────────────────────────────────────────────────────────"

// WriteComparison writes a comparison result to w in the given format.
func WriteComparison(w io.Writer, res *models.ComparisonResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Similarity: %.4f (%.1f%%)\n", res.Score, res.Percentage)
	fmt.Fprintf(w, "Interpretation: %s\n", res.Label)
	fmt.Fprintf(w, "Model: %s | Time: %.1fms\n", res.ModelID, res.ElapsedMS)
	if res.Provider == "hash" {
		fmt.Fprintln(w, "Warning: hash fallback in use; scores reflect word overlap, not meaning")
	}
	fmt.Fprintf(w, "Tokens: %d + %d (max %d per text)\n", res.Tokens.Text1, res.Tokens.Text2, res.Tokens.MaxSeqLength)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, similarity.Analysis(res.Score, res.Interpretation))
	return nil
}

// WriteBatch writes a batch summary and its rows to w in the given format.
func WriteBatch(w io.Writer, res *models.BatchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "\nProcessed %d pairs with %s in %.0fms\n\n", len(res.Rows), res.ModelID, res.ElapsedMS)
	for _, row := range res.Rows {
		if row.OK() {
			fmt.Fprintf(w, "#%-4d %.4f  %-18s %s | %s\n", row.PairID, row.Result.Score, row.Result.Label,
				TruncateWords(row.Text1Preview, 8), TruncateWords(row.Text2Preview, 8))
			continue
		}
		fmt.Fprintf(w, "#%-4d error: %s\n", row.PairID, row.Error)
	}
	if s := res.Stats; s != nil {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Mean: %.4f  Min: %.4f  Max: %.4f  (%d ok, %d failed)\n", s.Mean, s.Min, s.Max, s.Succeeded, s.Failed)
	}
	return nil
}

// WriteModels writes the model catalogue to w, marking the default model.
func WriteModels(w io.Writer, descs []models.ModelDescriptor, defaultID string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"models": descs, "default": defaultID})
	}
	for _, d := range descs {
		mark := " "
		if d.ID == defaultID {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-38s %4dd  max %3d tokens  %s\n", mark, d.ID, d.Dimensions, d.MaxSeqLength, d.Description)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
