package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"golang.org/x/sync/errgroup"
)

func reindexCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Re-upsert every stored character into the semantic index",
		Long: `Walks the local catalog and upserts every character into the vector index.
Characters whose indexed text is unchanged are skipped without calling the
embedding provider, so reindexing an up-to-date catalog is cheap.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("reindex: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			ix, err := newIndex(logger)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			defer func() { _ = ix.Close() }()

			if err := ix.EnsureReady(ctx); err != nil {
				return fmt.Errorf("reindex: preparing index: %w", err)
			}

			if workers <= 0 {
				workers = cfg.Seed.MaxWorkers
			}

			var indexed, failed int
			cursor := ""
			for {
				characters, nextCursor, listErr := store.ListCharacters(ctx, nil, 200, cursor)
				if listErr != nil {
					return fmt.Errorf("reindex: listing characters: %w", listErr)
				}

				g, gctx := errgroup.WithContext(ctx)
				g.SetLimit(workers)
				results := make([]error, len(characters))
				for i, ch := range characters {
					g.Go(func() error {
						results[i] = ix.Upsert(gctx, ch)
						return nil
					})
				}
				if waitErr := g.Wait(); waitErr != nil {
					return fmt.Errorf("reindex: %w", waitErr)
				}
				for i, upsertErr := range results {
					if upsertErr != nil {
						logger.Error("reindexing character", "character", characters[i].ID, "error", upsertErr)
						failed++
						continue
					}
					indexed++
				}

				if nextCursor == "" {
					break
				}
				cursor = nextCursor
			}

			fmt.Printf("Indexed: %d\nFailed:  %d\n", indexed, failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "indexing worker count (0 = config default)")
	return cmd
}
