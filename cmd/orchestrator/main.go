// RAG orchestrator server — drives multi-turn agentic conversations between
// users, the knowledge base, and the configured model endpoints, exposed over
// HTTP with SSE streaming.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/agent/controller"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/agent/orchestrator"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/api"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/cleanup"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/config"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/conversation"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/database"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/embedder"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/llm"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/metrics"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/tools"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/vector"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/version"
)

func main() {
	envFile := flag.String("env-file", ".env", "Path to environment file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		slog.Warn("Could not load env file, continuing with existing environment",
			"path", *envFile, "error", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx := context.Background()

	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("Starting orchestrator",
		"version", version.Full(),
		"listen_addr", cfg.ListenAddr,
		"strategy", cfg.Loop.Strategy,
		"storage_mode", cfg.Conversation.StorageMode)

	// 2. Conversation storage
	var store conversation.Store
	if cfg.Conversation.StorageMode == config.StorageModeDatabase {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := db.Close(); err != nil {
				slog.Error("Error closing database", "error", err)
			}
		}()
		store = conversation.NewPostgresStore(db)
		slog.Info("Connected to PostgreSQL database")
	} else {
		store = conversation.NewMemoryStore()
		slog.Info("Using in-memory conversation storage")
	}
	manager := conversation.NewManager(store, cfg.Conversation.RollingWindowSize)

	if cfg.Conversation.RetentionDays > 0 {
		retention := cleanup.NewService(cleanup.Config{
			RetentionDays: cfg.Conversation.RetentionDays,
			Interval:      cfg.Conversation.CleanupInterval,
		}, store)
		retention.Start(ctx)
		defer retention.Stop()
	}

	// 3. Knowledge base: vector store + embedder + RAG tool
	vectors, err := vector.NewQdrantStore(cfg.Qdrant)
	if err != nil {
		slog.Error("Failed to initialize vector store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := vectors.Close(); err != nil {
			slog.Error("Error closing vector store", "error", err)
		}
	}()

	emb := embedder.NewOpenAIEmbedder(cfg.Embedding)
	rag := tools.NewRAGTool(emb, vectors)
	registry := tools.NewRegistry(rag, tools.NewFinalizeTool())
	slog.Info("Tool registry initialized", "tools", len(registry.GetDefinitions()))

	// 4. Model providers and strategy
	qwen := llm.NewOpenAIProvider("qwen", cfg.Qwen, true, cfg.Loop.RequestTimeout)
	deepseek := llm.NewOpenAIProvider("deepseek", cfg.DeepSeek, true, cfg.Loop.RequestTimeout)
	strategy := controller.NewStrategy(cfg, qwen, deepseek)
	slog.Info("Strategy selected", "strategy", strategy.Name())

	// 5. Orchestrator and HTTP server
	m := metrics.New(prometheus.DefaultRegisterer)
	orch := orchestrator.New(manager, registry, rag, strategy, qwen, cfg.Loop, cfg.Finalizer, m)
	server := api.NewServer(orch, manager, registry, vectors, cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	// 6. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 7. Graceful shutdown: in-flight turns get a bounded drain window.
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
