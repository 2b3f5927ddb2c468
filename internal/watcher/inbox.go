package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/textsim/internal/batch"
	"github.com/hyperjump/textsim/internal/export"
	"github.com/hyperjump/textsim/internal/textproc"
)

// ResultSuffix is appended to an input file's base name to form its results file.
const ResultSuffix = ".results.csv"

// Inbox runs each batch table that appears in its directories and writes the scores to
// <name>.<ext>.results.csv beside the input.
type Inbox struct {
	runner  *batch.Runner
	modelID string
	opts    textproc.Options
	maxRows int
	logger  *zap.Logger
	watcher *Watcher
}

// InboxConfig configures an Inbox.
type InboxConfig struct {
	Directories []string
	Extensions  []string
	ModelID     string
	Options     textproc.Options
	MaxRows     int
}

// NewInbox creates an inbox. Call Start to begin watching.
func NewInbox(runner *batch.Runner, cfg InboxConfig, logger *zap.Logger, opts ...Option) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	in := &Inbox{
		runner:  runner,
		modelID: cfg.ModelID,
		opts:    cfg.Options,
		maxRows: cfg.MaxRows,
		logger:  logger,
	}
	opts = append([]Option{WithLogger(logger), WithIgnore(IsResultFile)}, opts...)
	in.watcher = NewWatcher(cfg.Directories, cfg.Extensions, in.handle, opts...)
	return in
}

// Start watches the directories and processes files already present.
func (in *Inbox) Start(ctx context.Context) error {
	if err := in.watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	go in.watcher.SyncExistingFiles()
	return nil
}

// Stop stops watching.
func (in *Inbox) Stop() {
	in.watcher.Stop()
}

// Directories returns the watched directories.
func (in *Inbox) Directories() []string {
	return in.watcher.Directories()
}

func (in *Inbox) handle(path string) {
	out, err := in.Process(context.Background(), path)
	if err != nil {
		in.logger.Error("batch inbox file failed", zap.String("path", path), zap.Error(err))
		return
	}
	in.logger.Info("batch inbox file processed", zap.String("path", path), zap.String("results", out))
}

// Process runs the batch table at path and writes its results file, returning that file's path.
// Files whose results are newer than the input are skipped.
func (in *Inbox) Process(ctx context.Context, path string) (string, error) {
	out := ResultPath(path)
	if upToDate(path, out) {
		return out, nil
	}
	pairs, err := batch.ReadFile(path, in.maxRows)
	if err != nil {
		return "", err
	}
	res, err := in.runner.Run(ctx, in.modelID, pairs, in.opts)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(filepath.Dir(out), filepath.Base(out)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if err := export.BatchCSV(f, res); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return out, nil
}

// ResultPath returns the results file for the input at path. The input's extension is kept so
// pairs.csv and pairs.xlsx in one directory do not share a results file.
func ResultPath(path string) string {
	return path + ResultSuffix
}

// IsResultFile reports whether path is a results file written by an Inbox.
func IsResultFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ResultSuffix)
}

func upToDate(in, out string) bool {
	inInfo, err := os.Stat(in)
	if err != nil {
		return false
	}
	outInfo, err := os.Stat(out)
	if err != nil {
		return false
	}
	return !outInfo.ModTime().Before(inInfo.ModTime())
}
