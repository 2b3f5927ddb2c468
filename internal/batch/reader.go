package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/textsim/internal/models"
)

// Column names a batch table must carry.
const (
	ColumnText1 = "text1"
	ColumnText2 = "text2"
)

// Read parses a batch table, choosing the format by the extension of name (.csv or .xlsx).
func Read(name string, r io.Reader, maxRows int) ([]models.TextPair, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r, maxRows)
	case ".xlsx":
		return ReadXLSX(r, maxRows)
	default:
		return nil, fmt.Errorf("%w: %s (expected .csv or .xlsx)", models.ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string, maxRows int) ([]models.TextPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(path, f, maxRows)
}

// ReadCSV parses CSV with a header row containing text1 and text2. Other columns are ignored.
// A missing column is reported before any data row is parsed.
func ReadCSV(r io.Reader, maxRows int) ([]models.TextPair, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", models.ErrSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSchema, err)
	}
	i1, i2, err := columns(header)
	if err != nil {
		return nil, err
	}

	var pairs []models.TextPair
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrSchema, err)
		}
		if maxRows > 0 && len(pairs) >= maxRows {
			return nil, fmt.Errorf("%w: more than %d rows", models.ErrInvalidInput, maxRows)
		}
		pairs = append(pairs, models.TextPair{Text1: cell(record, i1), Text2: cell(record, i2)})
	}
	return pairs, nil
}

// ReadXLSX parses the first sheet of a workbook with the same layout as ReadCSV.
func ReadXLSX(r io.Reader, maxRows int) ([]models.TextPair, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSchema, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", models.ErrSchema)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSchema, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %s is empty", models.ErrSchema, sheets[0])
	}
	i1, i2, err := columns(rows[0])
	if err != nil {
		return nil, err
	}

	var pairs []models.TextPair
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		if maxRows > 0 && len(pairs) >= maxRows {
			return nil, fmt.Errorf("%w: more than %d rows", models.ErrInvalidInput, maxRows)
		}
		pairs = append(pairs, models.TextPair{Text1: cell(row, i1), Text2: cell(row, i2)})
	}
	return pairs, nil
}

func columns(header []string) (int, int, error) {
	i1, i2 := -1, -1
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		switch strings.TrimSpace(name) {
		case ColumnText1:
			if i1 < 0 {
				i1 = i
			}
		case ColumnText2:
			if i2 < 0 {
				i2 = i
			}
		}
	}
	var missing []string
	if i1 < 0 {
		missing = append(missing, ColumnText1)
	}
	if i2 < 0 {
		missing = append(missing, ColumnText2)
	}
	if len(missing) > 0 {
		return 0, 0, fmt.Errorf("%w: missing column(s) %s; the table must have columns %q and %q",
			models.ErrSchema, strings.Join(missing, ", "), ColumnText1, ColumnText2)
	}
	return i1, i2, nil
}

func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
