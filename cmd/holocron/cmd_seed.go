package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/galaxyops/holocron/internal/biography"
	"github.com/galaxyops/holocron/internal/seed"
)

func seedCmd() *cobra.Command {
	var (
		limit     int
		skipBios  bool
		workers   int
		sourceURL string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fetch the character catalog, store it, and index every character",
		Long: `Downloads all character records from the configured catalog API, stores them
in the local catalog, generates missing biographies via Claude (unless
--skip-bios is set or no API key is configured), and upserts every character
into the semantic index. Re-running is safe: unchanged characters are not
re-embedded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("seed: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			ix, err := newIndex(logger)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			defer func() { _ = ix.Close() }()

			if err := ix.EnsureReady(ctx); err != nil {
				return fmt.Errorf("seed: preparing index: %w", err)
			}

			var gen *biography.Generator
			if !skipBios && cfg.Anthropic.APIKey != "" {
				gen = biography.NewGenerator(cfg.Anthropic.APIKey, cfg.Anthropic.Model, logger)
			} else if !skipBios {
				logger.Warn("no Anthropic API key configured, skipping biography generation")
			}

			if workers <= 0 {
				workers = cfg.Seed.MaxWorkers
			}
			if sourceURL == "" {
				sourceURL = cfg.Catalog.SourceURL
			}

			seeder := seed.NewSeeder(store, ix, gen, sourceURL, workers, logger)
			report, err := seeder.Run(ctx, limit)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}

			fmt.Printf("Fetched: %d\nStored:  %d\nIndexed: %d\nFailed:  %d\n",
				report.Fetched, report.Stored, report.Indexed, report.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max records to process (0 = all)")
	cmd.Flags().BoolVar(&skipBios, "skip-bios", false, "skip biography generation")
	cmd.Flags().IntVar(&workers, "workers", 0, "enrichment worker count (0 = config default)")
	cmd.Flags().StringVar(&sourceURL, "source", "", "override the catalog source URL")
	return cmd
}
