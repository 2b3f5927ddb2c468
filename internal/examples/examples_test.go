package examples

import (
	"strings"
	"testing"

	"github.com/hyperjump/textsim/internal/batch"
)

func TestPairs(t *testing.T) {
	got := Pairs()
	if len(got) != 4 {
		t.Fatalf("pairs: got %d", len(got))
	}
	if got[0].Name != "Identical" || got[0].Text1 != got[0].Text2 {
		t.Errorf("first example should be identical texts: %+v", got[0])
	}
	got[0].Name = "changed"
	if Pairs()[0].Name != "Identical" {
		t.Error("Pairs should return a copy")
	}
	if _, ok := Lookup("Different"); !ok {
		t.Error("expected Different example")
	}
	if _, ok := Lookup("Unknown"); ok {
		t.Error("unexpected example")
	}
}

func TestSampleCSVParses(t *testing.T) {
	pairs, err := batch.ReadCSV(strings.NewReader(SampleCSV), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 5 {
		t.Fatalf("pairs: got %d", len(pairs))
	}
	if pairs[2].Text2 != "A feline rested on the rug." {
		t.Errorf("row 3: got %+v", pairs[2])
	}
}
