// Package export renders comparison results, batch results and history for download.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/hyperjump/textsim/internal/models"
	"github.com/hyperjump/textsim/internal/similarity"
	"github.com/hyperjump/textsim/pkg/utils"
)

// ReportPreviewLength is the number of characters of each text quoted in a report.
const ReportPreviewLength = 200

const timeLayout = "2006-01-02 15:04:05"

// Report writes a plain-text report of res. text1 and text2 are the full compared texts.
func Report(w io.Writer, res *models.ComparisonResult, text1, text2 string) error {
	generated := res.Timestamp
	if generated.IsZero() {
		generated = time.Now()
	}
	_, err := fmt.Fprintf(w, `Text Similarity Analysis Report
Generated on: %s

Model Used: %s
Processing Time: %.3f seconds

Text 1 (Length: %d characters):
%s

Text 2 (Length: %d characters):
%s

RESULTS:
Similarity Score: %.3f
Similarity Percentage: %.1f%%
Interpretation: %s

Analysis:
%s
`,
		generated.Format(timeLayout),
		res.ModelID,
		res.ElapsedMS/1000,
		utils.RuneCount(text1), utils.Truncate(text1, ReportPreviewLength),
		utils.RuneCount(text2), utils.Truncate(text2, ReportPreviewLength),
		res.Score, res.Percentage, res.Label,
		similarity.Analysis(res.Score, res.Interpretation))
	return err
}
