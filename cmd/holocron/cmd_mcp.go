package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	holomcp "github.com/galaxyops/holocron/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  search_characters   — semantic search over the character catalog
  classify_character  — good/evil alignment verdict for a character
  add_team_member     — add a character to a team (capacity and alignment checked)
  remove_team_member  — remove a character from a team
  team_stats          — team composition statistics

If Qdrant or the embedding provider are unavailable at startup the server
still starts; individual tool calls will return MCP error responses on failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			store, err := newCatalog()
			if err != nil {
				return fmt.Errorf("mcp: opening catalog: %w", err)
			}
			defer func() { _ = store.Close() }()

			ix, ixErr := newIndex(logger)
			if ixErr != nil {
				// Log to stderr and continue with a nil index.
				// Search calls will return per-call errors rather than crashing.
				logger.Error("mcp: failed to connect to vector store; search tool calls will fail",
					"error", ixErr)
			} else {
				defer func() { _ = ix.Close() }()
			}

			engine := newEngine(store, logger)
			srv := holomcp.NewServer(engine, ix, logger)

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: holocron MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
