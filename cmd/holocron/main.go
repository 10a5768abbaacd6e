package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/galaxyops/holocron/internal/alignment"
	"github.com/galaxyops/holocron/internal/catalog"
	"github.com/galaxyops/holocron/internal/config"
	"github.com/galaxyops/holocron/internal/embedder"
	"github.com/galaxyops/holocron/internal/index"
	"github.com/galaxyops/holocron/internal/team"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "holocron",
		Short: "Holocron — character catalog with semantic search and team building",
		Long:  "Holocron maintains a character catalog with alignment classification, capacity-bounded team rosters, and vector-based semantic search over character biographies.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		mcpCmd(),
		seedCmd(),
		searchCmd(),
		classifyCmd(),
		teamCmd(),
		charactersCmd(),
		reindexCmd(),
		healthCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newEmbedder(logger *slog.Logger) embedder.Embedder {
	if cfg.Embedding.Provider == "openai" {
		return embedder.NewOpenAIEmbedder(
			cfg.Embedding.OpenAIAPIKey,
			cfg.Embedding.OpenAIModel,
			int(cfg.Embedding.Dimension),
			logger,
		)
	}
	return embedder.NewOllamaEmbedder(
		cfg.Embedding.OllamaBaseURL,
		cfg.Embedding.OllamaModel,
		int(cfg.Embedding.Dimension),
		logger,
	)
}

func newVectorStore(logger *slog.Logger) (index.VectorStore, error) {
	return index.NewQdrantVectorStore(
		cfg.Qdrant.Host,
		cfg.Qdrant.GRPCPort,
		cfg.Qdrant.Collection,
		cfg.Embedding.Dimension,
		cfg.Qdrant.UseTLS,
		logger,
	)
}

func newIndex(logger *slog.Logger) (*index.Index, error) {
	vectors, err := newVectorStore(logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to vector store: %w", err)
	}
	timeout := time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second
	return index.New(newEmbedder(logger), vectors, timeout, logger), nil
}

func newCatalog() (catalog.Store, error) {
	return catalog.OpenSQLite(cfg.Storage.SQLitePath)
}

func newEngine(store catalog.Store, logger *slog.Logger) *team.Engine {
	classifier := alignment.NewClassifier(cfg.Alignment.EvilAffiliations, logger)
	return team.NewEngine(store, classifier, logger)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
