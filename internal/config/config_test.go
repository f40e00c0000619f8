package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
store:
  path: "/tmp/kb.json"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Store.Path != "/tmp/kb.json" {
		t.Errorf("store path = %s", cfg.Store.Path)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
store:
  path: "./data/knowledge_base.json"
watch:
  directories: ["./manuals"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantStore := filepath.Join(dir, "data", "knowledge_base.json")
	if cfg.Store.Path != wantStore {
		t.Errorf("store path = %s, want %s", cfg.Store.Path, wantStore)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	wantWatch := filepath.Join(dir, "manuals")
	if cfg.Watch.Directories[0] != wantWatch {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], wantWatch)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Ingest.ChunkSize != 500 || cfg.Ingest.ChunkOverlap != 50 {
		t.Errorf("chunking defaults: got size=%d overlap=%d", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Search.DefaultTopK != 5 {
		t.Errorf("default top_k: got %d", cfg.Search.DefaultTopK)
	}
	if cfg.Search.SimilarityThreshold != 0.1 || cfg.Search.LexicalThreshold != 0.1 {
		t.Errorf("thresholds: got %f / %f", cfg.Search.SimilarityThreshold, cfg.Search.LexicalThreshold)
	}
	if cfg.Confidence.Floor != 0.1 || cfg.Confidence.Max != 0.95 {
		t.Errorf("confidence bounds: got floor=%f max=%f", cfg.Confidence.Floor, cfg.Confidence.Max)
	}
	if cfg.Embedding.Workers != 4 {
		t.Errorf("embedding workers: got %d", cfg.Embedding.Workers)
	}
	if cfg.Watch.Extensions == nil {
		t.Error("watch extensions should be set by default")
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if !w.RecursiveOrDefault() {
			t.Error("RecursiveOrDefault() = false, want true")
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if w.RecursiveOrDefault() {
			t.Error("RecursiveOrDefault() = true, want false")
		}
	})
}
