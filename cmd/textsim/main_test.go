package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadTexts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("from file"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		file1, file2 string
		args         []string
		want1, want2 string
		wantErr      bool
	}{
		{name: "two args", args: []string{"one", "two"}, want1: "one", want2: "two"},
		{name: "first from file", file1: path, args: []string{"two"}, want1: "from file", want2: "two"},
		{name: "second from file", file2: path, args: []string{"one"}, want1: "one", want2: "from file"},
		{name: "both files", file1: path, file2: path, want1: "from file", want2: "from file"},
		{name: "missing text", args: []string{"one"}, wantErr: true},
		{name: "extra args", args: []string{"one", "two", "three"}, wantErr: true},
		{name: "unsupported file", file1: filepath.Join(dir, "a.png"), args: []string{"two"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got1, got2, err := readTexts(tt.file1, tt.file2, tt.args)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got1 != tt.want1 || got2 != tt.want2 {
				t.Errorf("readTexts() = %q, %q; want %q, %q", got1, got2, tt.want1, tt.want2)
			}
		})
	}
}

func TestLoadConfig_explicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEXTSIM_BATCH_WORKERS", "7")
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved: got %s", resolved)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if cfg.Batch.Workers != 7 {
		t.Errorf("env override: workers got %d", cfg.Batch.Workers)
	}
}

func TestLoadConfig_explicitMissing(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}
}

func TestLoadConfig_defaultPrefersWorkingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9191\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != filepath.Join(dir, "config.yaml") {
		t.Errorf("resolved: got %s", resolved)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
}

func TestLoadConfig_defaultMissingUsesDefaults(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a default config is installed on this machine")
	}
	t.Chdir(t.TempDir())
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved: got %q", resolved)
	}
	if cfg.Server.Port == 0 || cfg.Similarity.DefaultModel == "" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
