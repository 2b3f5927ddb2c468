package batch

import "github.com/hyperjump/textsim/internal/models"

// HistogramBins is the number of equal-width bins over [0, 1] in batch distributions.
const HistogramBins = 20

// ComputeStats aggregates the successful rows. It returns nil when no row succeeded.
func ComputeStats(rows []*models.BatchRow) *models.BatchStats {
	stats := &models.BatchStats{Count: len(rows), Distribution: make([]models.HistogramBin, HistogramBins)}
	for i := range stats.Distribution {
		stats.Distribution[i].Lower = float64(i) / HistogramBins
		stats.Distribution[i].Upper = float64(i+1) / HistogramBins
	}

	var sum float64
	for _, row := range rows {
		if !row.OK() {
			stats.Failed++
			continue
		}
		score := row.Result.Score
		if stats.Succeeded == 0 || score < stats.Min {
			stats.Min = score
		}
		if stats.Succeeded == 0 || score > stats.Max {
			stats.Max = score
		}
		stats.Succeeded++
		sum += score

		bin := int(score * HistogramBins)
		if bin >= HistogramBins {
			bin = HistogramBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		stats.Distribution[bin].Count++
	}
	if stats.Succeeded == 0 {
		return nil
	}
	stats.Mean = sum / float64(stats.Succeeded)
	return stats
}
