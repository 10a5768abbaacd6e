package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func teamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage character teams",
	}

	cmd.AddCommand(
		teamCreateCmd(),
		teamListCmd(),
		teamShowCmd(),
		teamDeleteCmd(),
		teamAddCmd(),
		teamRemoveCmd(),
		teamStatsCmd(),
	)
	return cmd
}

func teamCreateCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("team create: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			created, err := newEngine(store, logger).Create(cmd.Context(), args[0], owner)
			if err != nil {
				return fmt.Errorf("team create: %w", err)
			}

			fmt.Printf("Created team %q\nID: %s\n", created.Name, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner identifier")
	return cmd
}

func teamListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("team list: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			teams, err := newEngine(store, logger).List(cmd.Context())
			if err != nil {
				return fmt.Errorf("team list: %w", err)
			}

			if len(teams) == 0 {
				fmt.Println("No teams.")
				return nil
			}
			for _, t := range teams {
				fmt.Printf("%s  %s (%d members)\n", t.ID, t.Name, len(t.MemberIDs))
			}
			return nil
		},
	}
	return cmd
}

func teamShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [team-id]",
		Short: "Show a team and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("team show: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			t, err := newEngine(store, logger).Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("team show: %w", err)
			}

			fmt.Printf("Team: %s\nID: %s\nMembers: %d\n", t.Name, t.ID, len(t.MemberIDs))
			for _, id := range t.MemberIDs {
				label := id
				if ch, getErr := store.GetCharacter(ctx, id); getErr == nil {
					label = fmt.Sprintf("%s (%s)", ch.Name, id)
				}
				fmt.Printf("  - %s\n", label)
			}
			return nil
		},
	}
	return cmd
}

func teamDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [team-id]",
		Short: "Delete a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("team delete: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := newEngine(store, logger).Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("team delete: %w", err)
			}

			fmt.Println("Deleted.")
			return nil
		},
	}
	return cmd
}

func teamAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [team-id] [character-id]",
		Short: "Add a character to a team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("team add: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			updated, err := newEngine(store, logger).AddMember(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("team add: %w", err)
			}

			fmt.Printf("Added. Team %q now has %d members.\n", updated.Name, len(updated.MemberIDs))
			return nil
		},
	}
	return cmd
}

func teamRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove [team-id] [character-id]",
		Short: "Remove a character from a team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("team remove: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			updated, err := newEngine(store, logger).RemoveMember(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("team remove: %w", err)
			}

			fmt.Printf("Removed. Team %q now has %d members.\n", updated.Name, len(updated.MemberIDs))
			return nil
		},
	}
	return cmd
}

func teamStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [team-id]",
		Short: "Show team composition statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("team stats: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			stats, err := newEngine(store, logger).Stats(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("team stats: %w", err)
			}

			fmt.Printf("Members: %d (full: %v)\n", stats.MemberCount, stats.IsFull)
			printDistribution("Species", stats.SpeciesDistribution)
			printDistribution("Homeworlds", stats.HomeworldDistribution)
			return nil
		},
	}
	return cmd
}

func printDistribution(label string, dist map[string]int) {
	if len(dist) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-20s %d\n", k, dist[k])
	}
}
