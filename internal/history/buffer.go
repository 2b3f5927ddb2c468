// Package history keeps the most recent comparison results of each client session in memory.
package history

import (
	"sync"

	"github.com/hyperjump/textsim/internal/models"
)

// DefaultCapacity is the number of results a buffer keeps.
const DefaultCapacity = 5

// Buffer is a fixed-capacity ring of results. When full, recording evicts the oldest entry.
type Buffer struct {
	mu    sync.Mutex
	items []*models.ComparisonResult
	start int
	n     int
}

// NewBuffer returns an empty buffer. capacity <= 0 uses DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{items: make([]*models.ComparisonResult, capacity)}
}

// Record appends r, evicting the oldest result if the buffer is full.
func (b *Buffer) Record(r *models.ComparisonResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.n < len(b.items) {
		b.items[(b.start+b.n)%len(b.items)] = r
		b.n++
		return
	}
	b.items[b.start] = r
	b.start = (b.start + 1) % len(b.items)
}

// Clear removes every result.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		b.items[i] = nil
	}
	b.start, b.n = 0, 0
}

// Snapshot returns the results oldest first.
func (b *Buffer) Snapshot() []*models.ComparisonResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*models.ComparisonResult, b.n)
	for i := 0; i < b.n; i++ {
		out[i] = b.items[(b.start+i)%len(b.items)]
	}
	return out
}

// Len returns the number of results held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Capacity returns the maximum number of results held.
func (b *Buffer) Capacity() int {
	return len(b.items)
}
