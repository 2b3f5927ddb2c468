package watcher

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/textsim/internal/batch"
	"github.com/hyperjump/textsim/internal/embedding"
	"github.com/hyperjump/textsim/internal/models"
	"github.com/hyperjump/textsim/internal/similarity"
)

func newInbox(dir string) *Inbox {
	factory := func(_ context.Context, desc models.ModelDescriptor) (embedding.Embedder, embedding.Tokenizer, error) {
		return embedding.NewHashEmbedder(desc.Dimensions), &embedding.SimpleTokenizer{}, nil
	}
	engine := similarity.NewEngine(embedding.NewLoader(factory, nil), 0, 50)
	runner := batch.NewRunner(engine, 2, 100, nil)
	return NewInbox(runner, InboxConfig{
		Directories: []string{dir},
		Extensions:  []string{".csv", ".xlsx"},
	}, nil, WithDebounce(20*time.Millisecond))
}

const inboxCSV = "text1,text2\nThe cat sat.,A cat sat.\nHello,\nQuantum physics,Chocolate cake\n"

func readResults(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}

func TestInbox_Process(t *testing.T) {
	dir := t.TempDir()
	in := newInbox(dir)
	input := filepath.Join(dir, "pairs.csv")
	if err := os.WriteFile(input, []byte(inboxCSV), 0600); err != nil {
		t.Fatal(err)
	}
	out, err := in.Process(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	if out != filepath.Join(dir, "pairs.csv.results.csv") {
		t.Errorf("results path: got %s", out)
	}
	records := readResults(t, out)
	if len(records) != 4 {
		t.Fatalf("records: got %d", len(records))
	}
	if records[2][6] == "" || records[1][3] == "" || records[3][3] == "" {
		t.Errorf("row 2 should fail and the others succeed: %v", records)
	}
}

func TestInbox_ProcessSchemaError(t *testing.T) {
	dir := t.TempDir()
	in := newInbox(dir)
	input := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(input, []byte("text1,other\na,b\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := in.Process(context.Background(), input); !errors.Is(err, models.ErrSchema) {
		t.Errorf("expected ErrSchema, got %v", err)
	}
	if _, err := os.Stat(ResultPath(input)); !os.IsNotExist(err) {
		t.Error("no results file should be written on schema error")
	}
}

func TestInbox_WatchesDirectory(t *testing.T) {
	dir := t.TempDir()
	in := newInbox(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := in.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer in.Stop()

	if err := os.WriteFile(filepath.Join(dir, "dropped.csv"), []byte(inboxCSV), 0600); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "dropped.csv.results.csv")
	if !waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(out)
		return err == nil
	}) {
		t.Fatal("results file was not written")
	}
}

func TestResultPath(t *testing.T) {
	if got := ResultPath("/in/pairs.xlsx"); got != "/in/pairs.xlsx.results.csv" {
		t.Errorf("got %s", got)
	}
	if ResultPath("/in/pairs.csv") == ResultPath("/in/pairs.xlsx") {
		t.Error("inputs differing only by extension must not share a results file")
	}
	if !IsResultFile("/in/PAIRS.RESULTS.CSV") || IsResultFile("/in/pairs.csv") {
		t.Error("unexpected IsResultFile result")
	}
}

func TestInbox_ProcessSameNameDifferentFormats(t *testing.T) {
	dir := t.TempDir()
	in := newInbox(dir)

	csvInput := filepath.Join(dir, "pairs.csv")
	if err := os.WriteFile(csvInput, []byte(inboxCSV), 0600); err != nil {
		t.Fatal(err)
	}
	xlsxInput := filepath.Join(dir, "pairs.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range [][]interface{}{{"text1", "text2"}, {"Good morning", "Good evening"}} {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(xlsxInput); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	csvOut, err := in.Process(context.Background(), csvInput)
	if err != nil {
		t.Fatal(err)
	}
	xlsxOut, err := in.Process(context.Background(), xlsxInput)
	if err != nil {
		t.Fatal(err)
	}
	if csvOut == xlsxOut {
		t.Fatalf("both inputs wrote %s", csvOut)
	}
	if got := len(readResults(t, csvOut)); got != 4 {
		t.Errorf("csv results: got %d records, want 4", got)
	}
	if got := len(readResults(t, xlsxOut)); got != 2 {
		t.Errorf("xlsx results: got %d records, want 2", got)
	}
}
