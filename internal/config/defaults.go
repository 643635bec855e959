package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Source.Extensions == nil {
		cfg.Source.Extensions = []string{".pdf", ".txt", ".md", ".docx", ".xlsx"}
	}
	if cfg.Chunking.MaxSize == 0 {
		cfg.Chunking.MaxSize = 1500
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 200
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.ServerURL == "" {
		cfg.Embedding.ServerURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Store.DatabasePath == "" {
		cfg.Store.DatabasePath = "/usr/local/var/atsume/data/index.db"
	}
	if cfg.Store.PersistDir == "" {
		cfg.Store.PersistDir = "/usr/local/var/atsume/data/chromem"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "chunks"
	}
	if cfg.Store.OnChange == "" {
		cfg.Store.OnChange = "replace"
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 4
	}
	if cfg.Sync.LockPath == "" {
		cfg.Sync.LockPath = "/usr/local/var/atsume/run.lock"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 2000
	}
}
