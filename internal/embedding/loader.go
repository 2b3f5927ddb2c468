package embedding

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/textsim/internal/models"
	"github.com/hyperjump/textsim/internal/registry"
)

// Handle is a loaded model. Provider names what computes its vectors, which differs from the
// configured provider when the hash fallback is in use.
type Handle struct {
	Descriptor models.ModelDescriptor
	Embedder   Embedder
	Tokenizer  Tokenizer
	Provider   string
	LoadedAt   time.Time
}

type providerNamer interface {
	Provider() string
}

// CountTokens returns the untruncated token count of text for this model.
func (h *Handle) CountTokens(text string) int {
	if h.Tokenizer == nil {
		return 0
	}
	return h.Tokenizer.CountTokens(text)
}

// Loader keeps at most one Handle per model id for its lifetime. The first Get for an id
// builds the handle; concurrent callers for the same id wait for that build.
// A failed build is forgotten so a later Get retries it.
type Loader struct {
	factory Factory
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]*loadEntry
}

type loadEntry struct {
	done   chan struct{}
	handle *Handle
	err    error
}

// NewLoader creates a loader that builds handles with factory.
func NewLoader(factory Factory, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		factory: factory,
		logger:  logger,
		entries: make(map[string]*loadEntry),
	}
}

// Get returns the handle for id, loading it if needed. An empty id selects the default model.
// Errors wrap models.ErrModelLoad.
func (l *Loader) Get(ctx context.Context, id string) (*Handle, error) {
	desc, err := registry.Resolve(id)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	e, ok := l.entries[desc.ID]
	if !ok {
		e = &loadEntry{done: make(chan struct{})}
		l.entries[desc.ID] = e
	}
	l.mu.Unlock()

	if !ok {
		l.load(context.WithoutCancel(ctx), desc, e)
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.handle, nil
}

func (l *Loader) load(ctx context.Context, desc models.ModelDescriptor, e *loadEntry) {
	defer close(e.done)

	start := time.Now()
	emb, tok, err := l.factory(ctx, desc)
	if err == nil && emb.Dimensions() != desc.Dimensions {
		_ = emb.Close()
		err = fmt.Errorf("embedder dimension %d does not match %d", emb.Dimensions(), desc.Dimensions)
	}
	if err != nil {
		e.err = fmt.Errorf("%w: %s: %w", models.ErrModelLoad, desc.ID, err)
		l.mu.Lock()
		if l.entries[desc.ID] == e {
			delete(l.entries, desc.ID)
		}
		l.mu.Unlock()
		l.logger.Error("model load failed", zap.String("model", desc.ID), zap.Error(err))
		return
	}

	e.handle = &Handle{Descriptor: desc, Embedder: emb, Tokenizer: tok, LoadedAt: time.Now()}
	if p, ok := emb.(providerNamer); ok {
		e.handle.Provider = p.Provider()
	}
	l.logger.Info("model loaded",
		zap.String("model", desc.ID),
		zap.String("provider", e.handle.Provider),
		zap.Int("dimensions", desc.Dimensions),
		zap.Duration("elapsed", time.Since(start)))
}

// Loaded returns the descriptors of models loaded successfully, sorted by id.
func (l *Loader) Loaded() []models.ModelDescriptor {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.ModelDescriptor
	for _, e := range l.entries {
		select {
		case <-e.done:
			if e.handle != nil {
				out = append(out, e.handle.Descriptor)
			}
		default:
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close closes every loaded embedder. The loader must not be used afterwards.
func (l *Loader) Close() error {
	l.mu.Lock()
	entries := l.entries
	l.entries = make(map[string]*loadEntry)
	l.mu.Unlock()

	var firstErr error
	for _, e := range entries {
		<-e.done
		if e.handle == nil {
			continue
		}
		if err := e.handle.Embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
