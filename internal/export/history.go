package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/hyperjump/textsim/internal/models"
)

// HistoryCSV writes history entries, oldest first.
func HistoryCSV(w io.Writer, entries []*models.ComparisonResult) error {
	cw := csv.NewWriter(w)
	header := []string{"timestamp", "model", "text1_preview", "text2_preview", "similarity_score", "similarity_percentage", "interpretation", "processing_time_ms"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range entries {
		rec := []string{
			r.Timestamp.Format(timeLayout),
			r.ModelID,
			r.Text1Preview,
			r.Text2Preview,
			formatScore(r.Score),
			strconv.FormatFloat(r.Percentage, 'f', 1, 64),
			string(r.Interpretation),
			strconv.FormatFloat(r.ElapsedMS, 'f', 1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
