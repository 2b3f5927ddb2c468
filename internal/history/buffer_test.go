package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/hyperjump/textsim/internal/models"
)

func result(i int) *models.ComparisonResult {
	return &models.ComparisonResult{ID: fmt.Sprintf("r%d", i), Score: float64(i) / 10}
}

func ids(rs []*models.ComparisonResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestBuffer_EvictsOldestFirst(t *testing.T) {
	b := NewBuffer(0)
	for i := 1; i <= 6; i++ {
		b.Record(result(i))
		if b.Len() > DefaultCapacity {
			t.Fatalf("len %d exceeds capacity", b.Len())
		}
	}
	got := ids(b.Snapshot())
	want := []string{"r2", "r3", "r4", "r5", "r6"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuffer_ManyRecords(t *testing.T) {
	b := NewBuffer(3)
	for i := 1; i <= 11; i++ {
		b.Record(result(i))
	}
	if got := fmt.Sprint(ids(b.Snapshot())); got != "[r9 r10 r11]" {
		t.Errorf("got %s", got)
	}
}

func TestBuffer_Clear(t *testing.T) {
	b := NewBuffer(5)
	b.Record(result(1))
	b.Record(result(2))
	b.Clear()
	if b.Len() != 0 || len(b.Snapshot()) != 0 {
		t.Error("buffer should be empty after clear")
	}
	b.Record(result(3))
	if got := fmt.Sprint(ids(b.Snapshot())); got != "[r3]" {
		t.Errorf("got %s", got)
	}
}

func TestBuffer_SnapshotIsCopy(t *testing.T) {
	b := NewBuffer(2)
	b.Record(result(1))
	snap := b.Snapshot()
	b.Record(result(2))
	b.Record(result(3))
	if len(snap) != 1 || snap[0].ID != "r1" {
		t.Errorf("snapshot changed: %v", ids(snap))
	}
}

func TestBuffer_Concurrent(t *testing.T) {
	b := NewBuffer(5)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Record(result(i))
			_ = b.Snapshot()
		}(i)
	}
	wg.Wait()
	if b.Len() != 5 {
		t.Errorf("len: got %d", b.Len())
	}
}
