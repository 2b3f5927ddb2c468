// Package main is the textsim CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/textsim/internal/batch"
	"github.com/hyperjump/textsim/internal/cli"
	"github.com/hyperjump/textsim/internal/config"
	"github.com/hyperjump/textsim/internal/embedding"
	"github.com/hyperjump/textsim/internal/examples"
	"github.com/hyperjump/textsim/internal/export"
	"github.com/hyperjump/textsim/internal/extract"
	"github.com/hyperjump/textsim/internal/history"
	"github.com/hyperjump/textsim/internal/registry"
	"github.com/hyperjump/textsim/internal/server"
	"github.com/hyperjump/textsim/internal/similarity"
	"github.com/hyperjump/textsim/internal/storage"
	"github.com/hyperjump/textsim/internal/textproc"
	"github.com/hyperjump/textsim/internal/watcher"
	"github.com/hyperjump/textsim/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/textsim/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if present, and a missing default file yields the built-in defaults.
// TEXTSIM_* environment variables (including those from .env) are applied last.
// Returns the config and the path that was actually loaded, or "" for defaults.
func loadConfig(path string) (*config.Config, string, error) {
	_ = godotenv.Load()

	var (
		cfg      *config.Config
		resolved string
		err      error
	)
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err = config.Load(path)
	switch {
	case err == nil:
		resolved = path
	case path == defaultConfigPath && errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	default:
		return nil, "", err
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "compare":
		runCompare()
	case "batch":
		runBatch()
	case "watch":
		runWatch()
	case "models":
		runModels()
	case "examples":
		runExamples()
	case "version", "--version", "-v":
		fmt.Printf("textsim version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store  *storage.EmbeddingStore
	Loader *embedding.Loader
	Engine *similarity.Engine
	Runner *batch.Runner
}

// Close releases loaded models and the embedding store.
func (c *Components) Close() {
	if c.Loader != nil {
		_ = c.Loader.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	var store embedding.VectorStore
	if cfg.Storage.DatabasePath != "" {
		s, err := storage.NewEmbeddingStore(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		c.Store = s
		store = s
	}

	factory, err := embedding.NewFactory(cfg.Embedding, store, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embeddings: %w", err)
	}
	c.Loader = embedding.NewLoader(factory, logger)
	c.Engine = similarity.NewEngine(c.Loader, similarity.DefaultMaxTextLength, cfg.Similarity.PreviewLength)
	c.Runner = batch.NewRunner(c.Engine, cfg.Batch.Workers, cfg.Batch.PreviewLength, logger)
	return c, nil
}

func newLogger(debug bool) *zap.Logger {
	logger, err := utils.NewLogger(debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func mustLoadConfig(path string) (*config.Config, string) {
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved
}

func preprocessOptions(cfg *config.Config, lowercase, stripPunctuation bool) textproc.Options {
	return textproc.Options{
		Lowercase:        cfg.Similarity.Lowercase || lowercase,
		StripPunctuation: cfg.Similarity.StripPunctuation || stripPunctuation,
	}
}

func newInbox(cfg *config.Config, runner *batch.Runner, model string, logger *zap.Logger) *watcher.Inbox {
	return watcher.NewInbox(runner, watcher.InboxConfig{
		Directories: cfg.Watch.Directories,
		Extensions:  cfg.Watch.Extensions,
		ModelID:     model,
		Options:     preprocessOptions(cfg, false, false),
		MaxRows:     cfg.Batch.MaxRows,
	}, logger)
}

func waitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	preload := fs.Bool("preload", false, "load the default model before accepting requests")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath := mustLoadConfig(*configPath)
	debugMode := cfg.Debug || *debug
	logger := newLogger(debugMode)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("provider", cfg.Embedding.Provider),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *preload {
		if _, err := components.Loader.Get(ctx, cfg.Similarity.DefaultModel); err != nil {
			logger.Warn("preload failed", zap.String("model", cfg.Similarity.DefaultModel), zap.Error(err))
		}
	}

	sessions := history.NewSessions(history.DefaultCapacity, time.Duration(cfg.Server.SessionIdleMinutes)*time.Minute)
	go sessions.Run(ctx, time.Minute)

	var watch server.WatchService
	if len(cfg.Watch.Directories) > 0 {
		inbox := newInbox(cfg, components.Runner, cfg.Similarity.DefaultModel, logger)
		if err := inbox.Start(ctx); err != nil {
			logger.Fatal("Failed to start batch inbox", zap.Error(err))
		}
		defer inbox.Stop()
		watch = inbox
	}

	var counter server.EmbeddingCounter
	if components.Store != nil {
		counter = components.Store
	}
	srv := server.NewServer(components.Engine, components.Runner, sessions, counter, watch, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	waitForSignal()

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// readTexts returns the two texts to compare, from files when given, otherwise from args.
func readTexts(file1, file2 string, args []string) (string, string, error) {
	ex := extract.NewExtractor()
	texts := make([]string, 2)
	files := []string{file1, file2}
	next := 0
	for i := range texts {
		if files[i] != "" {
			t, err := ex.Extract(files[i])
			if err != nil {
				return "", "", fmt.Errorf("%s: %w", files[i], err)
			}
			texts[i] = t
			continue
		}
		if next >= len(args) {
			return "", "", errors.New("two texts are required")
		}
		texts[i] = args[next]
		next++
	}
	if next != len(args) {
		return "", "", fmt.Errorf("unexpected arguments: %s", strings.Join(args[next:], " "))
	}
	return texts[0], texts[1], nil
}

func runCompare() {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	model := fs.String("model", "", "model id (default from config)")
	file1 := fs.String("file1", "", "read the first text from a .txt, .md, .pdf or .docx file")
	file2 := fs.String("file2", "", "read the second text from a .txt, .md, .pdf or .docx file")
	lowercase := fs.Bool("lowercase", false, "lowercase both texts before encoding")
	strip := fs.Bool("strip-punctuation", false, "remove punctuation before encoding")
	report := fs.Bool("report", false, "print the plain-text report instead of the summary")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	text1, text2, err := readTexts(*file1, *file2, fs.Args())
	if err != nil {
		fmt.Printf("Usage: textsim compare [flags] <text1> <text2>\n%v\n", err)
		os.Exit(1)
	}

	cfg, _ := mustLoadConfig(*configPath)
	logger := newLogger(cfg.Debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	modelID := *model
	if modelID == "" {
		modelID = cfg.Similarity.DefaultModel
	}
	res, err := components.Engine.Compare(context.Background(), modelID, text1, text2, preprocessOptions(cfg, *lowercase, *strip))
	if err != nil {
		fmt.Printf("Comparison failed: %v\n", err)
		os.Exit(1)
	}
	if *report {
		err = export.Report(os.Stdout, res, text1, text2)
	} else {
		err = cli.WriteComparison(os.Stdout, res, format)
	}
	if err != nil {
		fmt.Printf("Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runBatch() {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	model := fs.String("model", "", "model id (default from config)")
	lowercase := fs.Bool("lowercase", false, "lowercase both texts before encoding")
	strip := fs.Bool("strip-punctuation", false, "remove punctuation before encoding")
	out := fs.String("out", "", "write results to this file; the format follows its extension (.json, .csv, .xlsx)")
	output := fs.String("output", "text", "stdout format when --out is not set: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		fmt.Println("Usage: textsim batch [flags] <file.csv|file.xlsx>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	var outFormat export.Format
	if *out != "" {
		outFormat, err = export.ParseFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(*out)), "."))
		if err != nil {
			fmt.Printf("Invalid --out: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, _ := mustLoadConfig(*configPath)
	logger := newLogger(cfg.Debug)
	defer logger.Sync()

	pairs, err := batch.ReadFile(fs.Arg(0), cfg.Batch.MaxRows)
	if err != nil {
		fmt.Printf("Failed to read %s: %v\n", fs.Arg(0), err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	modelID := *model
	if modelID == "" {
		modelID = cfg.Similarity.DefaultModel
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	res, err := components.Runner.Run(ctx, modelID, pairs, preprocessOptions(cfg, *lowercase, *strip))
	if err != nil {
		fmt.Printf("Batch failed: %v\n", err)
		os.Exit(1)
	}

	if *out == "" {
		if err := cli.WriteBatch(os.Stdout, res, format); err != nil {
			fmt.Printf("Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	f, err := os.Create(*out)
	if err != nil {
		fmt.Printf("Failed to create %s: %v\n", *out, err)
		os.Exit(1)
	}
	if err := export.Batch(f, outFormat, res); err != nil {
		_ = f.Close()
		fmt.Printf("Export failed: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Printf("Export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d rows to %s\n", len(res.Rows), *out)
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	model := fs.String("model", "", "model id (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _ := mustLoadConfig(*configPath)
	if fs.NArg() > 0 {
		cfg.Watch.Directories = nil
		for _, d := range fs.Args() {
			abs, err := filepath.Abs(d)
			if err != nil {
				fmt.Printf("Invalid directory %s: %v\n", d, err)
				os.Exit(1)
			}
			cfg.Watch.Directories = append(cfg.Watch.Directories, abs)
		}
	}
	if len(cfg.Watch.Directories) == 0 {
		fmt.Println("Usage: textsim watch [flags] [directory...]")
		fmt.Println("No directories given and none configured under watch.directories")
		os.Exit(1)
	}

	logger := newLogger(cfg.Debug || *debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	modelID := *model
	if modelID == "" {
		modelID = cfg.Similarity.DefaultModel
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inbox := newInbox(cfg, components.Runner, modelID, logger)
	if err := inbox.Start(ctx); err != nil {
		logger.Fatal("Failed to start batch inbox", zap.Error(err))
	}
	logger.Info("watching for batch files", zap.Strings("directories", inbox.Directories()))

	waitForSignal()
	inbox.Stop()
}

func runModels() {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	cfg, _ := mustLoadConfig(*configPath)
	if err := cli.WriteModels(os.Stdout, registry.All(), cfg.Similarity.DefaultModel, format); err != nil {
		fmt.Printf("Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runExamples() {
	fs := flag.NewFlagSet("examples", flag.ExitOnError)
	csvOut := fs.String("csv", "", "write the sample batch CSV to this path")
	_ = fs.Parse(os.Args[2:])

	if *csvOut != "" {
		if err := os.WriteFile(*csvOut, []byte(examples.SampleCSV), 0644); err != nil {
			fmt.Printf("Failed to write %s: %v\n", *csvOut, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote sample CSV to %s\n", *csvOut)
		return
	}
	for _, ex := range examples.Pairs() {
		fmt.Printf("%s\n  text1: %s\n  text2: %s\n\n", ex.Name, ex.Text1, ex.Text2)
	}
}

func printUsage() {
	fmt.Println(`textsim - Semantic text similarity with sentence embeddings

Usage:
  textsim server [flags]                   Start the HTTP server
  textsim compare [flags] <text1> <text2>  Compare two texts
  textsim batch [flags] <file>             Score every text1/text2 row of a CSV or XLSX file
  textsim watch [flags] [directory...]     Score batch files dropped into directories
  textsim models [flags]                   List available models
  textsim examples [flags]                 Show example pairs
  textsim version                          Show version
  textsim help                             Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/textsim/config.yaml)
  --debug            Enable debug logging
  --preload          Load the default model at startup

Compare Flags:
  --model string          Model id (default from config)
  --file1, --file2 string Read a text from a .txt, .md, .pdf or .docx file
  --lowercase             Lowercase texts before encoding
  --strip-punctuation     Remove punctuation before encoding
  --report                Print the plain-text report
  --output string         Output format: text or json (default: text)

Batch Flags:
  --model string     Model id (default from config)
  --out string       Write results to .json, .csv or .xlsx
  --output string    Stdout format when --out is not set: text or json

Examples:
  textsim compare "The cat sat on the mat." "A feline rested on the rug."
  textsim compare --model all-mpnet-base-v2 --report --file1 a.txt --file2 b.docx
  textsim batch --out results.xlsx pairs.csv
  textsim examples --csv sample.csv
  textsim watch ~/textsim-inbox`)
}
