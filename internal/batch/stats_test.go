package batch

import (
	"math"
	"testing"

	"github.com/hyperjump/textsim/internal/models"
)

func scored(scores ...float64) []*models.BatchRow {
	rows := make([]*models.BatchRow, len(scores))
	for i, s := range scores {
		if s < 0 {
			rows[i] = &models.BatchRow{PairID: i + 1, Error: "failed"}
			continue
		}
		rows[i] = &models.BatchRow{PairID: i + 1, Result: &models.ComparisonResult{Score: s}}
	}
	return rows
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(scored(0.2, -1, 0.5, 1.0, 0.0))
	if stats == nil {
		t.Fatal("expected stats")
	}
	if stats.Count != 5 || stats.Succeeded != 4 || stats.Failed != 1 {
		t.Errorf("counts: %+v", stats)
	}
	if math.Abs(stats.Mean-0.425) > 1e-9 {
		t.Errorf("mean: got %f", stats.Mean)
	}
	if stats.Min != 0 || stats.Max != 1 {
		t.Errorf("min/max: got %f/%f", stats.Min, stats.Max)
	}
	if len(stats.Distribution) != HistogramBins {
		t.Fatalf("bins: got %d", len(stats.Distribution))
	}
	total := 0
	for _, b := range stats.Distribution {
		total += b.Count
	}
	if total != 4 {
		t.Errorf("histogram total: got %d", total)
	}
	if stats.Distribution[0].Count != 1 || stats.Distribution[4].Count != 1 ||
		stats.Distribution[10].Count != 1 || stats.Distribution[19].Count != 1 {
		t.Errorf("distribution: %+v", stats.Distribution)
	}
	if stats.Distribution[19].Upper != 1 {
		t.Errorf("last bin upper: got %f", stats.Distribution[19].Upper)
	}
}

func TestComputeStats_NoSuccess(t *testing.T) {
	if stats := ComputeStats(scored(-1, -1)); stats != nil {
		t.Errorf("expected nil, got %+v", stats)
	}
	if stats := ComputeStats(nil); stats != nil {
		t.Errorf("expected nil for empty batch, got %+v", stats)
	}
}
