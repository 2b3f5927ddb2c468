package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperjump/textsim/internal/config"
	"github.com/hyperjump/textsim/internal/models"
)

// Provider names accepted in embedding.provider and embedding.fallback.
const (
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
	ProviderNone   = "none"
)

// Pooling modes for ONNX model outputs.
const (
	PoolingMean = "mean"
	PoolingNone = "none"
)

// ONNXOptions describes one ONNX model on disk.
type ONNXOptions struct {
	ModelPath         string
	VocabPath         string
	SharedLibraryPath string
	Dimensions        int
	MaxTokens         int
	OutputName        string
	Pooling           string
	// Tokenizer overrides the one loaded from VocabPath.
	Tokenizer Tokenizer
}

// tokenizer returns the override or the WordPiece tokenizer for VocabPath. A model without a
// readable vocabulary cannot be tokenized and is an error.
func (o ONNXOptions) tokenizer() (Tokenizer, error) {
	if o.Tokenizer != nil {
		return o.Tokenizer, nil
	}
	if o.VocabPath == "" {
		return nil, errors.New("no vocabulary configured")
	}
	t, err := LoadWordPieceTokenizer(o.VocabPath, true)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", o.VocabPath, err)
	}
	return t, nil
}

// Tensor names of sentence-transformers encoder inputs.
const (
	inputNameIDs     = "input_ids"
	inputNameMask    = "attention_mask"
	inputNameTypeIDs = "token_type_ids"
)

// onnxInputs orders the inputs a model declares for binding. BERT exports take token_type_ids
// and MPNet exports do not; any input the tokenizer cannot fill is an error.
func onnxInputs(declared []string) ([]string, error) {
	has := make(map[string]bool, len(declared))
	for _, name := range declared {
		switch name {
		case inputNameIDs, inputNameMask, inputNameTypeIDs:
			has[name] = true
		default:
			return nil, fmt.Errorf("unsupported model input %q", name)
		}
	}
	for _, name := range []string{inputNameIDs, inputNameMask} {
		if !has[name] {
			return nil, fmt.Errorf("model has no %q input", name)
		}
	}
	inputs := []string{inputNameIDs, inputNameMask}
	if has[inputNameTypeIDs] {
		inputs = append(inputs, inputNameTypeIDs)
	}
	return inputs, nil
}

// Factory builds the embedder and tokenizer for one model.
type Factory func(ctx context.Context, desc models.ModelDescriptor) (Embedder, Tokenizer, error)

// NewFactory returns a Factory for the configured provider. Every embedder it builds is wrapped
// in a CachedEmbedder backed by an LRU of cfg.CacheSize entries and, when store is non-nil,
// the persistent store.
func NewFactory(cfg config.EmbeddingConfig, store VectorStore, logger *zap.Logger) (Factory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case ProviderONNX, ProviderOpenAI, ProviderHash:
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	switch cfg.Fallback {
	case "", ProviderNone, ProviderHash:
	default:
		return nil, fmt.Errorf("unknown embedding fallback %q", cfg.Fallback)
	}

	return func(ctx context.Context, desc models.ModelDescriptor) (Embedder, Tokenizer, error) {
		emb, tok, origin, err := build(ctx, cfg.Provider, cfg, desc)
		if err != nil {
			if cfg.Fallback != ProviderHash || cfg.Provider == ProviderHash {
				return nil, nil, err
			}
			logger.Warn("embedding provider unavailable, using hash fallback",
				zap.String("provider", cfg.Provider),
				zap.String("model", desc.ID),
				zap.Error(err))
			emb, tok, origin, err = build(ctx, ProviderHash, cfg, desc)
			if err != nil {
				return nil, nil, err
			}
		}
		return NewCachedEmbedder(emb, origin, cfg.CacheSize, store), tok, nil
	}, nil
}

func build(ctx context.Context, provider string, cfg config.EmbeddingConfig, desc models.ModelDescriptor) (Embedder, Tokenizer, Origin, error) {
	origin := Origin{ModelID: desc.ID, Provider: provider}
	switch provider {
	case ProviderONNX:
		dir := filepath.Join(cfg.ModelDir, desc.ID)
		modelPath := filepath.Join(dir, "model.onnx")
		if _, err := os.Stat(modelPath); err != nil {
			return nil, nil, origin, fmt.Errorf("model file for %s: %w", desc.ID, err)
		}
		opts := ONNXOptions{
			ModelPath:         modelPath,
			VocabPath:         filepath.Join(dir, "vocab.txt"),
			SharedLibraryPath: cfg.SharedLibraryPath,
			Dimensions:        desc.Dimensions,
			MaxTokens:         desc.MaxSeqLength,
			OutputName:        cfg.OutputName,
			Pooling:           cfg.Pooling,
		}
		tok, err := opts.tokenizer()
		if err != nil {
			return nil, nil, origin, fmt.Errorf("tokenizer for %s: %w", desc.ID, err)
		}
		opts.Tokenizer = tok
		emb, err := NewONNXEmbedder(opts)
		if err != nil {
			return nil, nil, origin, err
		}
		origin.Source = modelPath
		return emb, tok, origin, nil
	case ProviderOpenAI:
		emb, err := NewOpenAIEmbedder(ctx, OpenAIOptions{
			APIKey:     os.Getenv(cfg.APIKeyEnv),
			BaseURL:    cfg.BaseURL,
			Model:      desc.ID,
			Dimensions: desc.Dimensions,
			MaxRetries: cfg.MaxRetries,
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, nil, origin, err
		}
		origin.Source = cfg.BaseURL
		if origin.Source == "" {
			origin.Source = openai.DefaultConfig("").BaseURL
		}
		return emb, &SimpleTokenizer{}, origin, nil
	case ProviderHash:
		return NewHashEmbedder(desc.Dimensions), &SimpleTokenizer{}, origin, nil
	}
	return nil, nil, origin, fmt.Errorf("unknown embedding provider %q", provider)
}
