// Package batch runs the similarity engine over tables of text pairs.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/textsim/internal/models"
	"github.com/hyperjump/textsim/internal/similarity"
	"github.com/hyperjump/textsim/internal/textproc"
	"github.com/hyperjump/textsim/pkg/utils"
)

// Runner compares pairs with a bounded pool of workers.
type Runner struct {
	engine        *similarity.Engine
	workers       int
	previewLength int
	logger        *zap.Logger
}

// NewRunner creates a runner. workers < 1 runs rows one at a time.
func NewRunner(engine *similarity.Engine, workers, previewLength int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{engine: engine, workers: workers, previewLength: previewLength, logger: logger}
}

// Run compares every pair with the model modelID. Rows keep the input order. A row that fails
// gets an error message and does not stop the others. The returned error is non-nil only when
// the model cannot be loaded or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, modelID string, pairs []models.TextPair, opts textproc.Options) (*models.BatchResult, error) {
	start := time.Now()
	h, err := r.engine.Loader().Get(ctx, modelID)
	if err != nil {
		return nil, err
	}

	rows := make([]*models.BatchRow, len(pairs))
	for i, p := range pairs {
		rows[i] = &models.BatchRow{
			PairID:       i + 1,
			Text1Preview: utils.Truncate(p.Text1, r.previewLength),
			Text2Preview: utils.Truncate(p.Text2, r.previewLength),
		}
	}

	workers := r.workers
	if workers > len(pairs) {
		workers = len(pairs)
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := r.engine.Compare(ctx, h.Descriptor.ID, pairs[i].Text1, pairs[i].Text2, opts)
				if err != nil {
					rows[i].Error = err.Error()
					continue
				}
				rows[i].Result = res
			}
		}()
	}
feed:
	for i := range pairs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &models.BatchResult{
		ID:        uuid.NewString(),
		ModelID:   h.Descriptor.ID,
		Rows:      rows,
		Stats:     ComputeStats(rows),
		ElapsedMS: float64(time.Since(start).Microseconds()) / 1000,
		CreatedAt: time.Now().UTC(),
	}
	succeeded := 0
	if result.Stats != nil {
		succeeded = result.Stats.Succeeded
	}
	r.logger.Info("batch completed",
		zap.String("batch_id", result.ID),
		zap.String("model", result.ModelID),
		zap.Int("rows", len(rows)),
		zap.Int("succeeded", succeeded),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}
