// Package main is the Atsume CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kitsunelab/atsume/internal/chunker"
	"github.com/kitsunelab/atsume/internal/config"
	"github.com/kitsunelab/atsume/internal/embedding"
	"github.com/kitsunelab/atsume/internal/extract"
	"github.com/kitsunelab/atsume/internal/pipeline"
	"github.com/kitsunelab/atsume/internal/runlock"
	"github.com/kitsunelab/atsume/internal/server"
	"github.com/kitsunelab/atsume/internal/store"
	"github.com/kitsunelab/atsume/internal/watcher"
	"github.com/kitsunelab/atsume/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/atsume/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "atsume serve" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "sync":
		runSync()
	case "serve":
		runServe()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("atsume version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runSync() {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file processing, state transitions, etc.)")
	prune := fs.Bool("prune", false, "also remove stored entries for files deleted from the source folder")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *prune {
		cfg.Store.PruneDeleted = true
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	lock := runlock.New(cfg.Sync.LockPath)
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, runlock.ErrHeld) {
			fmt.Println("Another sync is already running")
			os.Exit(1)
		}
		logger.Fatal("Failed to acquire run lock", zap.Error(err))
	}
	defer lock.Release()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := components.Pipeline.Run(ctx)
	if err != nil {
		logger.Error("sync failed", zap.Error(err))
		os.Exit(1)
	}
	printReport(report)
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file processing, state transitions, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	lock := runlock.New(cfg.Sync.LockPath)
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, runlock.ErrHeld) {
			fmt.Println("Another atsume process holds the run lock")
			os.Exit(1)
		}
		logger.Fatal("Failed to acquire run lock", zap.Error(err))
	}
	defer lock.Release()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initial sync so the index is current before requests arrive.
	go func() {
		if report, err := components.Pipeline.Run(ctx); err != nil {
			logger.Warn("initial sync failed", zap.Error(err))
		} else {
			logger.Info("initial sync complete",
				zap.Int("files_merged", report.FilesMerged),
				zap.Int("chunks_merged", report.ChunksMerged))
		}
	}()

	if cfg.Watch.Enabled {
		watchOpts := []watcher.Option{
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMs) * time.Millisecond),
		}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		p := components.Pipeline
		w := watcher.New(cfg.Source.Folder, cfg.Source.Extensions, func() {
			if _, err := p.Run(context.Background()); err != nil && !errors.Is(err, pipeline.ErrBusy) {
				logger.Warn("watch-triggered sync failed", zap.Error(err))
			}
		}, watchOpts...)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		logger.Info("watching source folder", zap.String("folder", cfg.Source.Folder))
	}

	srv := server.NewServer(components.Pipeline, components.Store, cfg, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}
}

type statusResponse struct {
	State   string                 `json:"state"`
	Files   int                    `json:"files"`
	Entries int                    `json:"entries"`
	LastRun map[string]interface{} `json:"last_run"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct store mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL; use empty (--server \"\") for direct store access")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		if resp, err := statusViaHTTP(*serverURL); err == nil {
			fmt.Printf("State:   %s\n", resp.State)
			fmt.Printf("Files:   %d\n", resp.Files)
			fmt.Printf("Entries: %d\n", resp.Entries)
			if resp.LastRun != nil {
				out, _ := json.MarshalIndent(resp.LastRun, "", "  ")
				fmt.Printf("Last run:\n%s\n", out)
			}
			return
		}
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	st, err := store.New(cfg.Store.Backend, store.Options{
		DatabasePath: cfg.Store.DatabasePath,
		PersistDir:   cfg.Store.PersistDir,
		Collection:   cfg.Store.Collection,
		OnChange:     cfg.Store.OnChange,
	})
	if err != nil {
		fmt.Printf("Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()
	stats, err := st.Stats(context.Background())
	if err != nil {
		fmt.Printf("Failed to read store stats: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Backend: %s\n", cfg.Store.Backend)
	fmt.Printf("Files:   %d\n", stats.Files)
	fmt.Printf("Entries: %d\n", stats.Entries)
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func printReport(report interface{}) {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", report)
		return
	}
	fmt.Println(string(out))
}

// Components holds initialized services.
type Components struct {
	Store    store.Store
	Embedder embedding.Embedder
	Pipeline *pipeline.Pipeline
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	st, err := store.New(cfg.Store.Backend, store.Options{
		DatabasePath: cfg.Store.DatabasePath,
		PersistDir:   cfg.Store.PersistDir,
		Collection:   cfg.Store.Collection,
		OnChange:     cfg.Store.OnChange,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	embedder, err := embedding.NewEmbedder(
		cfg.Embedding.Provider,
		cfg.Embedding.ServerURL,
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
	)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to create embedder, falling back to mock",
				zap.String("provider", cfg.Embedding.Provider),
				zap.Error(err))
		}
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithWorkers(cfg.Sync.Workers),
		pipeline.WithTruncateReferences(cfg.Normalize.TruncateReferencesOrDefault()),
		pipeline.WithPruneDeleted(cfg.Store.PruneDeleted),
	}
	if debug && logger != nil {
		pipeOpts = append(pipeOpts, pipeline.WithLogger(logger))
	}
	p := pipeline.New(
		cfg.Source.Folder,
		cfg.Source.Extensions,
		chunker.New(cfg.Chunking.MaxSize, cfg.Chunking.Overlap),
		extract.New(),
		embedder,
		st,
		pipeOpts...,
	)

	return &Components{
		Store:    st,
		Embedder: embedder,
		Pipeline: p,
	}, nil
}

func printUsage() {
	fmt.Println(`atsume - Incremental document chunk indexer

Usage:
  atsume sync [flags]     Run one incremental index pass
  atsume serve [flags]    Start the HTTP server (and folder watcher, if enabled)
  atsume status [flags]   Show index status
  atsume version          Show version
  atsume help             Show this help

Sync Flags:
  --config string    Config file path (default: /usr/local/etc/atsume/config.yaml)
  --debug            Enable debug logging (file processing, state transitions, etc.)
  --prune            Also remove stored entries for files deleted from the source folder

Serve Flags:
  --config string    Config file path
  --debug            Enable debug logging

Status Flags:
  --config string    Config file path (for direct store mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct store access.

Examples:
  atsume sync
  atsume sync --prune
  atsume serve --debug
  atsume status
  atsume status --server ""`)
}
