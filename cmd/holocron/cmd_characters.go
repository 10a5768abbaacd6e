package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/galaxyops/holocron/internal/catalog"
)

func charactersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "characters",
		Short: "Browse the character catalog",
	}

	cmd.AddCommand(
		charactersListCmd(),
		charactersGetCmd(),
	)
	return cmd
}

func charactersListCmd() *cobra.Command {
	var (
		limit  int
		search string
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List characters in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("characters list: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			var filter *catalog.CharacterFilter
			if search != "" {
				filter = &catalog.CharacterFilter{Search: search}
			}

			characters, nextCursor, err := store.ListCharacters(cmd.Context(), filter, limit, cursor)
			if err != nil {
				return fmt.Errorf("characters list: %w", err)
			}

			for _, ch := range characters {
				fmt.Printf("%s  %-24s %s\n", ch.ID, ch.Name, ch.Species)
			}
			if nextCursor != "" {
				fmt.Printf("\nNext page: --cursor %s\n", nextCursor)
			}
			if len(characters) == 0 {
				fmt.Println("No characters found.")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "max characters per page")
	cmd.Flags().StringVar(&search, "search", "", "filter by name substring")
	cmd.Flags().StringVar(&cursor, "cursor", "", "pagination cursor from a previous page")
	return cmd
}

func charactersGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [character-id]",
		Short: "Print a character as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("characters get: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			ch, err := store.GetCharacter(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("characters get: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ch)
		},
	}
	return cmd
}
