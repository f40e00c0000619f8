// Package config provides configuration loading and structs for the Kiban server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Search     SearchConfig     `yaml:"search"`
	Confidence ConfidenceConfig `yaml:"confidence"`
	History    HistoryConfig    `yaml:"history"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig holds the knowledge store snapshot path.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig holds ONNX embedder settings. When ModelPath is empty or the
// model fails to load, the engine runs in lexical-only mode.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	Workers    int    `yaml:"workers"`
}

// IngestConfig holds text normalization and chunking settings.
type IngestConfig struct {
	ChunkSize     int `yaml:"chunk_size"`
	ChunkOverlap  int `yaml:"chunk_overlap"`
	MinTextLength int `yaml:"min_text_length"`
	MinLineLength int `yaml:"min_line_length"`
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	DefaultTopK         int     `yaml:"default_top_k"`
	MaxTopK             int     `yaml:"max_top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	LexicalThreshold    float64 `yaml:"lexical_threshold"`
}

// ConfidenceConfig holds the confidence scorer's tuning parameters.
// The shape of the formula is fixed; the constants are tunable.
type ConfidenceConfig struct {
	Floor            float64 `yaml:"floor"`
	PerResultBonus   float64 `yaml:"per_result_bonus"`
	CorroborationCap float64 `yaml:"corroboration_cap"`
	QuestionBonus    float64 `yaml:"question_bonus"`
	Max              float64 `yaml:"max"`
}

// HistoryConfig holds the chat history database path.
type HistoryConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// WatchConfig holds directory watch settings for auto-ingestion.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
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
	cfg.Store.Path = expandPath(cfg.Store.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.History.DatabasePath = expandPath(cfg.History.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
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
