// Package main is the Kiban CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kiban/internal/cli"
	"github.com/hyperjump/kiban/internal/config"
	"github.com/hyperjump/kiban/internal/embedding"
	"github.com/hyperjump/kiban/internal/engine"
	"github.com/hyperjump/kiban/internal/extract"
	"github.com/hyperjump/kiban/internal/history"
	"github.com/hyperjump/kiban/internal/models"
	"github.com/hyperjump/kiban/internal/server"
	"github.com/hyperjump/kiban/internal/store"
	"github.com/hyperjump/kiban/internal/watcher"
	"github.com/hyperjump/kiban/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kiban/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml
// in the current directory takes precedence so running from the project dir
// picks up the project's config.
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
	switch os.Args[1] {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "clear":
		runClear()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kiban version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
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
		zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	eng := components.Engine
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	var watch *watcher.Watcher
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		watch = watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) { ingestFile(watchCtx, eng, logger, path) },
			watchOpts...,
		)
		if err := watch.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watch.SyncExisting()
	}

	srv := server.NewServer(eng, components.History, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watch != nil {
		watch.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// ingestFile extracts a file and feeds it to the engine, keyed by basename.
func ingestFile(ctx context.Context, eng *engine.Engine, logger *zap.Logger, path string) {
	text, err := extract.ExtractFile(path)
	if err != nil {
		logger.Warn("extraction failed", zap.String("path", path), zap.Error(err))
		return
	}
	meta := map[string]interface{}{models.MetaKeyFilename: filepath.Base(path)}
	if !eng.Ingest(ctx, text, meta) {
		logger.Warn("document rejected", zap.String("path", path))
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kiban ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	components, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n := 0
		entries, err := os.ReadDir(path)
		if err != nil {
			fmt.Printf("Failed to read directory: %v\n", err)
			os.Exit(1)
		}
		for _, entry := range entries {
			if entry.IsDir() || !extract.Supported(filepath.Ext(entry.Name())) {
				continue
			}
			ingestFile(ctx, components.Engine, logger, filepath.Join(path, entry.Name()))
			n++
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}
	ingestFile(ctx, components.Engine, logger, path)
	fmt.Printf("Document ingested: %s\n", filepath.Base(path))
}

// joinQuery joins all positional args with spaces so multi-word queries work
// with or without shell quoting.
func joinQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func parseFormat(name string) cli.OutputFormat {
	switch name {
	case "json":
		return cli.OutputJSON
	case "text":
		return cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", name)
		os.Exit(1)
		return cli.OutputText
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct store access)`)
	topK := fs.Int("top-k", 5, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kiban search [flags] <query>")
		os.Exit(1)
	}
	query := joinQuery(fs.Args())
	format := parseFormat(*outputFormat)

	var response *models.SearchResponse
	if *serverURL != "" {
		var err error
		response, err = searchViaHTTP(*serverURL, query, *topK)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, logger := mustInitialize(*configPath)
		defer components.Close()
		defer logger.Sync()
		response = components.Engine.Search(context.Background(), query, *topK)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL, query string, topK int) (*models.SearchResponse, error) {
	body, err := json.Marshal(map[string]interface{}{"query": query, "top_k": topK})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct store access)`)
	sessionID := fs.String("session", "", "chat session ID to continue")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kiban ask [flags] <question>")
		os.Exit(1)
	}
	question := joinQuery(fs.Args())
	format := parseFormat(*outputFormat)

	var answer *models.Answer
	if *serverURL != "" {
		var err error
		answer, err = askViaHTTP(*serverURL, question, *sessionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, logger := mustInitialize(*configPath)
		defer components.Close()
		defer logger.Sync()
		answer = components.Engine.Ask(context.Background(), question)
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if answer.SessionID != "" && format == cli.OutputText {
		fmt.Printf("Session: %s\n", answer.SessionID)
	}
}

func askViaHTTP(serverURL, question, sessionID string) (*models.Answer, error) {
	body, err := json.Marshal(map[string]string{"message": question, "session_id": sessionID})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var answer models.Answer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &answer, nil
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	yes := fs.Bool("yes", false, "skip confirmation")
	_ = fs.Parse(os.Args[2:])

	if !*yes {
		fmt.Print("This removes every document from the knowledge base. Continue? [y/N] ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	components, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()

	stats := components.Engine.Clear()
	fmt.Printf("Removed %d document(s), %d chunk(s)\n", stats.DocumentsRemoved, stats.ChunksRemoved)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct store access)`)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	var status engine.Status
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err == nil && resp.StatusCode == http.StatusOK {
			defer resp.Body.Close()
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
				os.Exit(1)
			}
			if err := cli.WriteStatus(os.Stdout, &status, format); err != nil {
				fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
				os.Exit(1)
			}
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		// Server not reachable, fall through to direct access.
	}

	components, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()
	if err := cli.WriteStatus(os.Stdout, components.Engine.Status(), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store   *store.KnowledgeStore
	Engine  *engine.Engine
	History *history.Store
}

func (c *Components) Close() {
	if c.Engine != nil {
		_ = c.Engine.Close()
	}
	if c.History != nil {
		_ = c.History.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	st := store.Open(cfg.Store.Path, store.WithLogger(logger))

	// Embedding is optional. When the model fails to load the engine runs in
	// lexical-only mode and every document stays reachable by keyword.
	var embedder embedding.Embedder
	onnx, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("embedding model unavailable, running in lexical mode", zap.Error(err))
	} else {
		embedder = onnx
	}

	eng := engine.New(cfg, st, embedder, logger)

	var hist *history.Store
	if cfg.History.DatabasePath != "" {
		hist, err = history.Open(cfg.History.DatabasePath)
		if err != nil {
			logger.Warn("chat history unavailable", zap.Error(err))
			hist = nil
		}
	}

	return &Components{Store: st, Engine: eng, History: hist}, nil
}

func mustInitialize(configPath string) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return components, logger
}

func printUsage() {
	fmt.Println(`kiban - Knowledge base retrieval engine

Usage:
  kiban server [flags]            Start the HTTP server
  kiban ingest [flags] <path>     Ingest a manual file or directory
  kiban search [flags] <query>    Search the knowledge base
  kiban ask [flags] <question>    Ask a question, get a grounded answer
  kiban clear [flags]             Remove all documents
  kiban status [flags]            Show knowledge base status
  kiban version                   Show version
  kiban help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kiban/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string    Config file path (for direct store mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct store access.
  --top-k int        Number of results (default: 5)
  --output string    Output format: text or json (default: text)

Ask Flags:
  --server string    Server URL (default: http://localhost:8080)
  --session string   Chat session ID to continue
  --output string    Output format: text or json (default: text)

Examples:
  kiban server
  kiban ingest manuals/cnc-mill.pdf
  kiban search spindle speed
  kiban ask "how often should filters be replaced?"
  kiban status --output json
  kiban clear --yes`)
}
