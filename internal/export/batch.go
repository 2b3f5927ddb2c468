package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/textsim/internal/models"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts json, csv and xlsx. An empty string means json.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV, FormatXLSX:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: export format %q", models.ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

var batchHeader = []string{"pair_id", "text1", "text2", "similarity_score", "similarity_percentage", "interpretation", "error"}

// Batch writes res in format f.
func Batch(w io.Writer, f Format, res *models.BatchResult) error {
	switch f {
	case FormatCSV:
		return BatchCSV(w, res)
	case FormatXLSX:
		return BatchXLSX(w, res)
	case FormatJSON:
		return BatchJSON(w, res)
	}
	return fmt.Errorf("%w: export format %q", models.ErrUnsupportedFormat, f)
}

// BatchJSON writes res as indented JSON.
func BatchJSON(w io.Writer, res *models.BatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// BatchCSV writes one line per row. Failed rows leave the score columns empty.
func BatchCSV(w io.Writer, res *models.BatchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(batchHeader); err != nil {
		return err
	}
	for _, row := range res.Rows {
		if err := cw.Write(batchRecord(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func batchRecord(row *models.BatchRow) []string {
	rec := []string{strconv.Itoa(row.PairID), row.Text1Preview, row.Text2Preview, "", "", "", row.Error}
	if row.OK() {
		rec[3] = formatScore(row.Result.Score)
		rec[4] = strconv.FormatFloat(row.Result.Percentage, 'f', 1, 64)
		rec[5] = string(row.Result.Interpretation)
	}
	return rec
}

// BatchXLSX writes a workbook with a Results sheet and, when any row succeeded, a Summary sheet.
func BatchXLSX(w io.Writer, res *models.BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	const results = "Results"
	if err := f.SetSheetName("Sheet1", results); err != nil {
		return err
	}
	if err := setRow(f, results, 1, batchHeader); err != nil {
		return err
	}
	for i, row := range res.Rows {
		rec := batchRecord(row)
		cells := make([]interface{}, len(rec))
		for j, v := range rec {
			cells[j] = v
		}
		cells[0] = row.PairID
		if row.OK() {
			cells[3] = row.Result.Score
			cells[4] = row.Result.Percentage
		}
		if err := f.SetSheetRow(results, cellName(1, i+2), &cells); err != nil {
			return err
		}
	}

	if s := res.Stats; s != nil {
		const summary = "Summary"
		if _, err := f.NewSheet(summary); err != nil {
			return err
		}
		rows := [][]interface{}{
			{"model", res.ModelID},
			{"count", s.Count},
			{"succeeded", s.Succeeded},
			{"failed", s.Failed},
			{"mean", s.Mean},
			{"min", s.Min},
			{"max", s.Max},
		}
		for i := range rows {
			if err := f.SetSheetRow(summary, cellName(1, i+1), &rows[i]); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cellName(1, row), &cells)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 4, 64)
}
