//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/textsim/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs a sentence-transformers model exported to ONNX. It requires CGO and the
// onnxruntime shared library.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	meanPool   bool
	tokenizer  Tokenizer
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

var ortInit sync.Once
var ortInitErr error

// NewONNXEmbedder creates an ONNX embedder for the model described by opts.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	ortInit.Do(func() {
		if opts.SharedLibraryPath != "" {
			ort.SetSharedLibraryPath(opts.SharedLibraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", ortInitErr)
	}

	tokenizer, err := opts.tokenizer()
	if err != nil {
		return nil, err
	}
	declared, _, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read inputs of %s: %w", opts.ModelPath, err)
	}
	names := make([]string, len(declared))
	for i, info := range declared {
		names[i] = info.Name
	}
	inputNames, err := onnxInputs(names)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.ModelPath, err)
	}

	maxTokens := opts.MaxTokens
	ids, mask, typeIDs := tokenizer.Tokenize("", maxTokens)

	var tensors []interface{ Destroy() error }
	destroy := func() {
		for _, t := range tensors {
			_ = t.Destroy()
		}
	}

	shape := ort.NewShape(1, int64(maxTokens))
	inputIDsTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	tensors = append(tensors, inputIDsTensor)
	attentionMaskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tensors = append(tensors, attentionMaskTensor)
	inputs := []ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor}
	// nil for models without a token_type_ids input
	var tokenTypeIDsTensor *ort.Tensor[int64]
	if len(inputNames) == 3 {
		tokenTypeIDsTensor, err = ort.NewTensor(shape, typeIDs)
		if err != nil {
			destroy()
			return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
		}
		tensors = append(tensors, tokenTypeIDsTensor)
		inputs = append(inputs, tokenTypeIDsTensor)
	}

	meanPool := opts.Pooling != PoolingNone
	outShape := ort.NewShape(1, int64(opts.Dimensions))
	outLen := opts.Dimensions
	if meanPool {
		outShape = ort.NewShape(1, int64(maxTokens), int64(opts.Dimensions))
		outLen = maxTokens * opts.Dimensions
	}
	outputTensor, err := ort.NewTensor(outShape, make([]float32, outLen))
	if err != nil {
		destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	tensors = append(tensors, outputTensor)

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		inputNames,
		[]string{opts.OutputName},
		inputs,
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		destroy()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", opts.ModelPath, err)
	}

	return &ONNXEmbedder{
		session:             session,
		dimensions:          opts.Dimensions,
		maxTokens:           maxTokens,
		meanPool:            meanPool,
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

// Embed runs one inference. Sessions share pre-allocated tensors, so calls are serialized.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, mask, typeIDs := e.tokenizer.Tokenize(text, e.maxTokens)

	copy(e.inputIDsTensor.GetData(), ids)
	copy(e.attentionMaskTensor.GetData(), mask)
	if e.tokenTypeIDsTensor != nil {
		copy(e.tokenTypeIDsTensor.GetData(), typeIDs)
	}

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := e.outputTensor.GetData()
	var embedding []float32
	if e.meanPool {
		embedding = utils.MeanPool(outputData, mask, e.dimensions)
	} else {
		embedding = make([]float32, e.dimensions)
		copy(embedding, outputData[:e.dimensions])
	}
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Provider returns "onnx".
func (e *ONNXEmbedder) Provider() string { return ProviderONNX }

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
		e.tokenTypeIDsTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
