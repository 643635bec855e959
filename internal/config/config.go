// Package config provides configuration loading and structs for the Atsume indexer.
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
	Debug     bool            `yaml:"debug"`
	Source    SourceConfig    `yaml:"source"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Sync      SyncConfig      `yaml:"sync"`
	Server    ServerConfig    `yaml:"server"`
	Watch     WatchConfig     `yaml:"watch"`
}

// SourceConfig names the folder to index and which files in it count.
type SourceConfig struct {
	Folder     string   `yaml:"folder"`
	Extensions []string `yaml:"extensions"`
}

// ChunkingConfig holds chunk sizing settings.
type ChunkingConfig struct {
	MaxSize int `yaml:"max_size"`
	Overlap int `yaml:"overlap"`
}

// NormalizeConfig holds text cleanup settings.
type NormalizeConfig struct {
	TruncateReferences *bool `yaml:"truncate_references"`
}

// TruncateReferencesOrDefault reports whether trailing reference sections are
// dropped before chunking; defaults to true when unset.
func (n *NormalizeConfig) TruncateReferencesOrDefault() bool {
	if n.TruncateReferences != nil {
		return *n.TruncateReferences
	}
	return true
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	ServerURL  string `yaml:"server_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// StoreConfig holds durable index settings.
type StoreConfig struct {
	Backend      string `yaml:"backend"`
	DatabasePath string `yaml:"database_path"`
	PersistDir   string `yaml:"persist_dir"`
	Collection   string `yaml:"collection"`
	OnChange     string `yaml:"on_change"`
	PruneDeleted bool   `yaml:"prune_deleted"`
}

// SyncConfig holds run execution settings.
type SyncConfig struct {
	Workers  int    `yaml:"workers"`
	LockPath string `yaml:"lock_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WatchConfig holds source folder watch settings.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMs int  `yaml:"debounce_ms"`
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
	cfg.Source.Folder = expandPath(cfg.Source.Folder, configDir)
	cfg.Store.DatabasePath = expandPath(cfg.Store.DatabasePath, configDir)
	cfg.Store.PersistDir = expandPath(cfg.Store.PersistDir, configDir)
	cfg.Sync.LockPath = expandPath(cfg.Sync.LockPath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
