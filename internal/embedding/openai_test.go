package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// fakeEmbeddingsServer answers /v1/embeddings with dims-long vectors whose first component is
// the input index, listed in reverse order.
func fakeEmbeddingsServer(t *testing.T, dims int, failFirst int32, status int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if n <= failFirst {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dims)
			vec[0] = float32(i)
			data = append(data, item{Object: "embedding", Embedding: vec, Index: i})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestOpenAI(t *testing.T, baseURL string, dims int) *OpenAIEmbedder {
	t.Helper()
	e, err := NewOpenAIEmbedder(context.Background(), OpenAIOptions{
		APIKey:     "test-key",
		BaseURL:    baseURL + "/v1",
		Model:      "all-MiniLM-L6-v2",
		Dimensions: dims,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOpenAIEmbedder_BatchOrder(t *testing.T) {
	srv, calls := fakeEmbeddingsServer(t, 4, 0, 0)
	e := newTestOpenAI(t, srv.URL, 4)

	out, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v[0] != float32(i) {
			t.Errorf("row %d: got first component %v", i, v[0])
		}
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("calls: got %d", got)
	}
	if e.Dimensions() != 4 {
		t.Errorf("dimensions: got %d", e.Dimensions())
	}
}

func TestOpenAIEmbedder_RetriesServerErrors(t *testing.T) {
	srv, calls := fakeEmbeddingsServer(t, 4, 1, http.StatusInternalServerError)
	e := newTestOpenAI(t, srv.URL, 4)

	if _, err := e.Embed(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Errorf("calls: got %d, want 2", got)
	}
}

func TestOpenAIEmbedder_NoRetryOnClientError(t *testing.T) {
	srv, calls := fakeEmbeddingsServer(t, 4, 10, http.StatusBadRequest)
	e := newTestOpenAI(t, srv.URL, 4)

	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("calls: got %d, want 1", got)
	}
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv, calls := fakeEmbeddingsServer(t, 8, 0, 0)
	e := newTestOpenAI(t, srv.URL, 4)

	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected dimension error")
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("dimension errors should not be retried, got %d calls", got)
	}
}

func TestNewOpenAIEmbedder_RequiresKeyOrBaseURL(t *testing.T) {
	if _, err := NewOpenAIEmbedder(context.Background(), OpenAIOptions{Dimensions: 4}); err == nil {
		t.Error("expected error without key or base URL")
	}
}
