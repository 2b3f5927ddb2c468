// Package config provides configuration loading and structs for the textsim server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Batch      BatchConfig      `yaml:"batch"`
	Storage    StorageConfig    `yaml:"storage"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// MaxUploadBytes bounds multipart uploads (text files and batch tables).
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	// SessionIdleMinutes is how long an unused history session is kept.
	SessionIdleMinutes int `yaml:"session_idle_minutes"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "onnx", "openai", "hash".
	Provider string `yaml:"provider"`
	// Fallback is used when Provider cannot construct a model: "none" (default) or "hash".
	// With "hash", scores are lexical and results report provider "hash".
	Fallback string `yaml:"fallback"`
	// ModelDir holds one directory per model id containing model.onnx and vocab.txt.
	ModelDir          string `yaml:"model_dir"`
	SharedLibraryPath string `yaml:"shared_library_path"`
	OutputName        string `yaml:"output_name"`
	// Pooling is "mean" for token-level outputs or "none" for pooled outputs.
	Pooling string `yaml:"pooling"`
	// BaseURL of an OpenAI-compatible embeddings endpoint.
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	MaxRetries     int    `yaml:"max_retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheSize      int    `yaml:"cache_size"`
}

// SimilarityConfig holds comparison settings. The 10,000-character text limit and the
// five-entry history are fixed and not configurable.
type SimilarityConfig struct {
	DefaultModel     string `yaml:"default_model"`
	PreviewLength    int    `yaml:"preview_length"`
	Lowercase        bool   `yaml:"lowercase"`
	StripPunctuation bool   `yaml:"strip_punctuation"`
}

// BatchConfig holds batch runner settings.
type BatchConfig struct {
	Workers       int `yaml:"workers"`
	MaxRows       int `yaml:"max_rows"`
	PreviewLength int `yaml:"preview_length"`
}

// StorageConfig holds the path of the persistent embedding store. Empty disables it.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// WatchConfig holds batch inbox directories.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ModelDir = expandPath(cfg.Embedding.ModelDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from TEXTSIM_* environment variables.
// Invalid numeric values are reported as errors.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	str := map[string]*string{
		"TEXTSIM_HOST":               &cfg.Server.Host,
		"TEXTSIM_EMBEDDING_PROVIDER": &cfg.Embedding.Provider,
		"TEXTSIM_EMBEDDING_FALLBACK": &cfg.Embedding.Fallback,
		"TEXTSIM_MODEL_DIR":          &cfg.Embedding.ModelDir,
		"TEXTSIM_ONNXRUNTIME_LIB":    &cfg.Embedding.SharedLibraryPath,
		"TEXTSIM_OPENAI_BASE_URL":    &cfg.Embedding.BaseURL,
		"TEXTSIM_DEFAULT_MODEL":      &cfg.Similarity.DefaultModel,
		"TEXTSIM_DATABASE_PATH":      &cfg.Storage.DatabasePath,
	}
	for key, dst := range str {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	ints := map[string]*int{
		"TEXTSIM_PORT":          &cfg.Server.Port,
		"TEXTSIM_BATCH_WORKERS": &cfg.Batch.Workers,
	}
	for key, dst := range ints {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}
	if v := strings.TrimSpace(getenv("TEXTSIM_DEBUG")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TEXTSIM_DEBUG: %w", err)
		}
		cfg.Debug = b
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
