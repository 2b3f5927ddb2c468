package embedding

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/textsim/internal/config"
	"github.com/hyperjump/textsim/internal/models"
	"github.com/hyperjump/textsim/internal/registry"
)

func TestNewFactory_UnknownProvider(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Provider = "word2vec"
	if _, err := NewFactory(cfg, nil, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
	cfg = config.Default().Embedding
	cfg.Fallback = "random"
	if _, err := NewFactory(cfg, nil, nil); err == nil {
		t.Error("expected error for unknown fallback")
	}
}

func TestNewFactory_Hash(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Provider = ProviderHash
	factory, err := NewFactory(cfg, newMemStore(), nil)
	if err != nil {
		t.Fatal(err)
	}
	desc, _ := registry.Lookup("all-mpnet-base-v2")
	emb, tok, err := factory(context.Background(), desc)
	if err != nil {
		t.Fatal(err)
	}
	if emb.Dimensions() != 768 {
		t.Errorf("dimensions: got %d", emb.Dimensions())
	}
	if _, ok := emb.(*CachedEmbedder); !ok {
		t.Errorf("expected cached embedder, got %T", emb)
	}
	if tok == nil {
		t.Error("expected tokenizer")
	}
}

func TestNewFactory_ONNXMissingModelFallsBackToHash(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Provider = ProviderONNX
	cfg.Fallback = ProviderHash
	cfg.ModelDir = t.TempDir()
	factory, err := NewFactory(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	desc, _ := registry.Lookup(registry.DefaultModelID)
	emb, _, err := factory(context.Background(), desc)
	if err != nil {
		t.Fatal(err)
	}
	cached := emb.(*CachedEmbedder)
	if _, ok := cached.inner.(*HashEmbedder); !ok {
		t.Errorf("expected hash fallback, got %T", cached.inner)
	}
	if cached.Provider() != ProviderHash || cached.origin.Fingerprint() != "hash" {
		t.Errorf("origin: got %+v", cached.origin)
	}
}

func TestNewFactory_DefaultConfigDoesNotFallBack(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.ModelDir = t.TempDir()
	factory, err := NewFactory(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	desc, _ := registry.Lookup(registry.DefaultModelID)
	if _, _, err := factory(context.Background(), desc); err == nil {
		t.Error("default config should surface a missing model")
	}
}

func TestNewFactory_ONNXMissingModelNoFallback(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Provider = ProviderONNX
	cfg.Fallback = ProviderNone
	cfg.ModelDir = t.TempDir()
	factory, err := NewFactory(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	desc, _ := registry.Lookup(registry.DefaultModelID)
	if _, _, err := factory(context.Background(), desc); err == nil {
		t.Error("expected error without fallback")
	}
}

func TestNewFactory_ONNXMissingVocab(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.ModelDir = t.TempDir()
	desc, _ := registry.Lookup(registry.DefaultModelID)
	dir := filepath.Join(cfg.ModelDir, desc.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "model.onnx"), []byte("onnx"), 0600); err != nil {
		t.Fatal(err)
	}
	factory, err := NewFactory(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = factory(context.Background(), desc)
	if err == nil || !strings.Contains(err.Error(), "vocab.txt") {
		t.Errorf("expected vocabulary error, got %v", err)
	}

	l := NewLoader(factory, nil)
	if _, err := l.Get(context.Background(), desc.ID); !errors.Is(err, models.ErrModelLoad) {
		t.Errorf("loader: expected ErrModelLoad, got %v", err)
	}
}

func TestONNXOptions_Tokenizer(t *testing.T) {
	if _, err := (ONNXOptions{}).tokenizer(); err == nil {
		t.Error("expected error without vocab")
	}
	if _, err := (ONNXOptions{VocabPath: filepath.Join(t.TempDir(), "missing.txt")}).tokenizer(); err == nil {
		t.Error("expected error for missing vocab")
	}
	override := &SimpleTokenizer{}
	if tok, err := (ONNXOptions{Tokenizer: override}).tokenizer(); err != nil || tok != override {
		t.Errorf("override: got %T, %v", tok, err)
	}
	vocab := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(vocab, []byte("[PAD]\n[UNK]\n[CLS]\n[SEP]\nhello\n"), 0600); err != nil {
		t.Fatal(err)
	}
	tok, err := (ONNXOptions{VocabPath: vocab}).tokenizer()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tok.(*WordPieceTokenizer); !ok {
		t.Errorf("expected WordPiece tokenizer, got %T", tok)
	}
}

func TestONNXInputs(t *testing.T) {
	tests := []struct {
		name     string
		declared []string
		want     []string
		wantErr  bool
	}{
		{"bert", []string{"input_ids", "token_type_ids", "attention_mask"}, []string{"input_ids", "attention_mask", "token_type_ids"}, false},
		{"mpnet", []string{"input_ids", "attention_mask"}, []string{"input_ids", "attention_mask"}, false},
		{"no mask", []string{"input_ids"}, nil, true},
		{"unknown input", []string{"input_ids", "attention_mask", "position_ids"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := onnxInputs(tt.declared)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err: %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
