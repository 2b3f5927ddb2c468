package utils

import "math"

// NormalizeL2 normalizes the slice in place to unit L2 norm.
// If the norm is zero, the slice is unchanged.
func NormalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := 1.0 / math.Sqrt(sum)
	for i := range x {
		x[i] = float32(float64(x[i]) * norm)
	}
}

// MeanPool averages the rows of a row-major [tokens x dims] matrix whose mask entry is non-zero.
// It returns the zero vector when the mask selects no rows.
func MeanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var n float64
	acc := make([]float64, dims)
	for tok, m := range mask {
		if m == 0 || (tok+1)*dims > len(hidden) {
			continue
		}
		row := hidden[tok*dims : (tok+1)*dims]
		for j, v := range row {
			acc[j] += float64(v)
		}
		n++
	}
	if n == 0 {
		return out
	}
	for j := range acc {
		out[j] = float32(acc[j] / n)
	}
	return out
}
