package config

// Default returns a Config with all defaults applied (no config file needed).
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "/usr/local/var/kiban/data/knowledge_base.json"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Workers == 0 {
		cfg.Embedding.Workers = 4
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 500
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 50
	}
	if cfg.Ingest.MinTextLength == 0 {
		cfg.Ingest.MinTextLength = 10
	}
	if cfg.Ingest.MinLineLength == 0 {
		cfg.Ingest.MinLineLength = 4
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 5
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 50
	}
	if cfg.Search.SimilarityThreshold == 0 {
		cfg.Search.SimilarityThreshold = 0.1
	}
	if cfg.Search.LexicalThreshold == 0 {
		cfg.Search.LexicalThreshold = 0.1
	}
	if cfg.Confidence.Floor == 0 {
		cfg.Confidence.Floor = 0.1
	}
	if cfg.Confidence.PerResultBonus == 0 {
		cfg.Confidence.PerResultBonus = 0.1
	}
	if cfg.Confidence.CorroborationCap == 0 {
		cfg.Confidence.CorroborationCap = 0.3
	}
	if cfg.Confidence.QuestionBonus == 0 {
		cfg.Confidence.QuestionBonus = 0.1
	}
	if cfg.Confidence.Max == 0 {
		cfg.Confidence.Max = 0.95
	}
	if cfg.History.DatabasePath == "" {
		cfg.History.DatabasePath = "/usr/local/var/kiban/data/history.db"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx"}
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
