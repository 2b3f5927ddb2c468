package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/textsim/internal/embedding"
	"github.com/hyperjump/textsim/internal/models"
	"github.com/hyperjump/textsim/internal/similarity"
	"github.com/hyperjump/textsim/internal/textproc"
)

func newRunner(workers int) *Runner {
	factory := func(_ context.Context, desc models.ModelDescriptor) (embedding.Embedder, embedding.Tokenizer, error) {
		return embedding.NewHashEmbedder(desc.Dimensions), &embedding.SimpleTokenizer{}, nil
	}
	engine := similarity.NewEngine(embedding.NewLoader(factory, nil), 0, 50)
	return NewRunner(engine, workers, 100, nil)
}

func TestRun_RowErrorIsIsolated(t *testing.T) {
	pairs := []models.TextPair{
		{Text1: "The weather is beautiful today.", Text2: "Today's weather is lovely."},
		{Text1: "I love reading books.", Text2: "Reading novels is my hobby."},
		{Text1: "The cat sat on the mat.", Text2: ""},
		{Text1: "Technology is advancing rapidly.", Text2: "Scientific progress is accelerating."},
		{Text1: "The ocean waves crashed.", Text2: "Grocery shopping takes time."},
	}
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			res, err := newRunner(workers).Run(context.Background(), "", pairs, textproc.Options{})
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Rows) != len(pairs) {
				t.Fatalf("rows: got %d", len(res.Rows))
			}
			for i, row := range res.Rows {
				if row.PairID != i+1 || row.Text1Preview != pairs[i].Text1 {
					t.Errorf("row %d out of order: %+v", i, row)
				}
				if i == 2 {
					if row.OK() || row.Error == "" {
						t.Errorf("row 3 should carry an error, got %+v", row)
					}
					continue
				}
				if !row.OK() {
					t.Errorf("row %d failed: %s", i+1, row.Error)
					continue
				}
				if row.Result.Score < 0 || row.Result.Score > 1 {
					t.Errorf("row %d: score %f", i+1, row.Result.Score)
				}
			}
			if res.Stats == nil {
				t.Fatal("expected stats")
			}
			if res.Stats.Count != 5 || res.Stats.Succeeded != 4 || res.Stats.Failed != 1 {
				t.Errorf("stats: got %+v", res.Stats)
			}
			if res.ModelID != "all-MiniLM-L6-v2" || res.ID == "" {
				t.Errorf("result: model %s id %q", res.ModelID, res.ID)
			}
		})
	}
}

func TestRun_NoSuccessMeansNoStats(t *testing.T) {
	pairs := []models.TextPair{{Text1: "", Text2: "x"}, {Text1: " ", Text2: ""}}
	res, err := newRunner(2).Run(context.Background(), "", pairs, textproc.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats != nil {
		t.Errorf("expected nil stats, got %+v", res.Stats)
	}
	for _, row := range res.Rows {
		if row.OK() {
			t.Errorf("row %d should fail", row.PairID)
		}
	}
}

func TestRun_Empty(t *testing.T) {
	res, err := newRunner(4).Run(context.Background(), "", nil, textproc.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 0 || res.Stats != nil {
		t.Errorf("got %+v", res)
	}
}

func TestRun_UnknownModel(t *testing.T) {
	_, err := newRunner(1).Run(context.Background(), "nope", []models.TextPair{{Text1: "a", Text2: "b"}}, textproc.Options{})
	if !errors.Is(err, models.ErrModelLoad) {
		t.Errorf("expected ErrModelLoad, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pairs := make([]models.TextPair, 50)
	for i := range pairs {
		pairs[i] = models.TextPair{Text1: "a", Text2: "b"}
	}
	if _, err := newRunner(2).Run(ctx, "", pairs, textproc.Options{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestRun_PreviewTruncated(t *testing.T) {
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	res, err := newRunner(1).Run(context.Background(), "", []models.TextPair{{Text1: string(long), Text2: "b"}}, textproc.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Rows[0].Text1Preview; len(got) != 103 {
		t.Errorf("preview length: got %d", len(got))
	}
}
