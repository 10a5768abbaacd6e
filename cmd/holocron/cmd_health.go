package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to required services",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			allOK := true

			// Check the SQLite catalog
			store, err := newCatalog()
			if err != nil {
				fmt.Printf("Catalog: FAIL (%v)\n", err)
				allOK = false
			} else {
				defer func() { _ = store.Close() }()
				if _, _, listErr := store.ListCharacters(ctx, nil, 1, ""); listErr != nil {
					fmt.Printf("Catalog: FAIL (%v)\n", listErr)
					allOK = false
				} else {
					fmt.Println("Catalog: OK")
				}
			}

			// Check Qdrant
			vectors, err := newVectorStore(logger)
			if err != nil {
				fmt.Printf("Qdrant: FAIL (%v)\n", err)
				allOK = false
			} else {
				defer func() { _ = vectors.Close() }()
				if err := vectors.EnsureReady(ctx); err != nil {
					fmt.Printf("Qdrant: FAIL (%v)\n", err)
					allOK = false
				} else {
					fmt.Println("Qdrant: OK")
				}
			}

			// Check the embedding provider
			emb := newEmbedder(logger)
			if _, err := emb.Embed(ctx, "health check"); err != nil {
				fmt.Printf("Embedding (%s): FAIL (%v)\n", cfg.Embedding.Provider, err)
				allOK = false
			} else {
				fmt.Printf("Embedding (%s): OK\n", cfg.Embedding.Provider)
			}

			// Check Claude API key
			if cfg.Anthropic.APIKey == "" {
				fmt.Println("Claude API: SKIP (no API key configured, biographies use fallback text)")
			} else {
				fmt.Println("Claude API: OK")
			}

			if !allOK {
				return fmt.Errorf("one or more health checks failed")
			}
			return nil
		},
	}
}
