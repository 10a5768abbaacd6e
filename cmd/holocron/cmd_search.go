package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/galaxyops/holocron/internal/catalog"
)

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search characters by semantic similarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			query := args[0]

			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("search: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			ix, err := newIndex(logger)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer func() { _ = ix.Close() }()

			results, err := ix.Search(ctx, query, limit)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			for i, r := range results {
				name := r.CharacterID
				if ch, getErr := store.GetCharacter(ctx, r.CharacterID); getErr == nil {
					name = ch.Name
					if ch.Biography != "" {
						name = fmt.Sprintf("%s — %s", ch.Name, truncate(ch.Biography, 100))
					}
				} else if !errors.Is(getErr, catalog.ErrNotFound) {
					logger.Warn("resolving search result", "character", r.CharacterID, "error", getErr)
				}
				fmt.Printf("[%d] (%.4f) %s\n", i+1, r.Score, name)
				fmt.Printf("    ID: %s\n", r.CharacterID)
			}

			if len(results) == 0 {
				fmt.Println("No results found.")
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "max results")
	return cmd
}
