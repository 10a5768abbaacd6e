package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [character-id]",
		Short: "Print the good/evil alignment verdict for a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("classify: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			engine := newEngine(store, logger)
			verdict, err := engine.Classify(ctx, args[0])
			if err != nil {
				return fmt.Errorf("classify: %w", err)
			}

			ch, err := store.GetCharacter(ctx, args[0])
			if err != nil {
				return fmt.Errorf("classify: %w", err)
			}

			fmt.Printf("%s: %s\n", ch.Name, verdict)
			return nil
		},
	}
	return cmd
}
