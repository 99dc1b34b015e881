package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"servicedesk/internal/audit"
	"servicedesk/internal/config"
	"servicedesk/internal/desk"
	"servicedesk/internal/llm"
	"servicedesk/internal/logging"
	"servicedesk/internal/metrics"
	"servicedesk/internal/rag"
	"servicedesk/internal/server"
	"servicedesk/internal/session"
	"servicedesk/internal/tools"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "servicedesk",
		Short:        "Enterprise service desk orchestrator",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(serveCmd(), reindexCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/SSE service",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewComponentLogger("Main")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			deps, err := buildDeps(cfg)
			if err != nil {
				return err
			}
			logger.Info("starting service desk on %s (provider=%s threshold=%.2f)",
				cfg.Addr(), cfg.Provider, cfg.ConfidenceThreshold)

			srv := server.New(cfg.Addr(), deps)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
}

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex <domain>",
		Short: "Rebuild a domain's retrieval corpus from its docs directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			_, indexer, err := buildRetrieval(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			stats, err := indexer.Reindex(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("reindexed %s: %d files, %d chunks, %d errors\n",
				args[0], stats.Files, stats.Chunks, stats.Errors)
			return nil
		},
	}
}

func buildRetrieval(cfg *config.Config) (rag.Retriever, *rag.Indexer, error) {
	var embedder rag.Embedder
	if key := cfg.APIKey("openai"); key != "" {
		var err error
		embedder, err = rag.NewEmbedder(rag.EmbedderConfig{Model: cfg.EmbeddingModel, APIKey: key})
		if err != nil {
			return nil, nil, err
		}
	} else {
		embedder = rag.NewLocalEmbedder()
	}

	store, err := rag.NewVectorStore(rag.StoreConfig{PersistPath: cfg.VectorDir}, embedder)
	if err != nil {
		return nil, nil, err
	}

	chunker, err := rag.NewChunker(rag.ChunkerConfig{})
	if err != nil {
		return nil, nil, err
	}

	indexer := rag.NewIndexer(rag.IndexerConfig{DataDir: cfg.DataDir}, chunker, store)
	return rag.NewRetriever(store), indexer, nil
}

func buildDeps(cfg *config.Config) (server.Deps, error) {
	retriever, indexer, err := buildRetrieval(cfg)
	if err != nil {
		return server.Deps{}, err
	}

	sessionStore, err := session.NewFileStore(cfg.SessionDir)
	if err != nil {
		return server.Deps{}, err
	}

	orchestrator := desk.New(desk.Params{
		Provider:            llm.NewFactory(cfg),
		Store:               sessionStore,
		Retriever:           retriever,
		Toolset:             tools.NewSimToolset(time.Now().UnixNano()),
		Journal:             audit.NewJournal(cfg.AuditPath),
		Metrics:             metrics.Default(),
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	})

	return server.Deps{
		Orchestrator:   orchestrator,
		Indexer:        indexer,
		AllowedOrigins: cfg.AllowedOrigins,
	}, nil
}
