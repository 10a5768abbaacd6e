// Package mcp implements the Model Context Protocol server for holocron.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/galaxyops/holocron/internal/index"
	"github.com/galaxyops/holocron/internal/team"
)

// defaultSearchLimit is the default number of results for search_characters.
const defaultSearchLimit = 10

// Server wraps an MCPServer with holocron dependencies.
type Server struct {
	mcp    *mcpserver.MCPServer
	teams  *team.Engine
	index  *index.Index
	logger *slog.Logger
}

// NewServer creates a new MCP server. If teams or ix are nil, the
// corresponding tool calls return an error response instead of panicking.
func NewServer(teams *team.Engine, ix *index.Index, logger *slog.Logger) *Server {
	s := &Server{
		teams:  teams,
		index:  ix,
		logger: logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"holocron",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildSearchTool(), s.handleSearch)
	mcpSrv.AddTool(buildClassifyTool(), s.handleClassify)
	mcpSrv.AddTool(buildAddMemberTool(), s.handleAddMember)
	mcpSrv.AddTool(buildRemoveMemberTool(), s.handleRemoveMember)
	mcpSrv.AddTool(buildTeamStatsTool(), s.handleTeamStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleSearch is the exported handler for the "search_characters" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSearch(ctx, req)
}

// HandleClassify is the exported handler for the "classify_character" tool.
func (s *Server) HandleClassify(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleClassify(ctx, req)
}

// HandleAddMember is the exported handler for the "add_team_member" tool.
func (s *Server) HandleAddMember(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAddMember(ctx, req)
}

// HandleRemoveMember is the exported handler for the "remove_team_member" tool.
func (s *Server) HandleRemoveMember(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRemoveMember(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// --- tool definitions ---

func buildSearchTool() mcpgo.Tool {
	return mcpgo.NewTool("search_characters",
		mcpgo.WithDescription("Semantic search over the character catalog. Returns character IDs with similarity scores."),
		mcpgo.WithString("query",
			mcpgo.Required(),
			mcpgo.Description("Free-text description of the character to find"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of results (default: 10)"),
		),
	)
}

func buildClassifyTool() mcpgo.Tool {
	return mcpgo.NewTool("classify_character",
		mcpgo.WithDescription("Return the good/evil alignment verdict for a character."),
		mcpgo.WithString("character_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the character to classify"),
		),
	)
}

func buildAddMemberTool() mcpgo.Tool {
	return mcpgo.NewTool("add_team_member",
		mcpgo.WithDescription("Add a character to a team. Fails if the team is full, the character is already a member, or the character is evil."),
		mcpgo.WithString("team_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the team"),
		),
		mcpgo.WithString("character_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the character to add"),
		),
	)
}

func buildRemoveMemberTool() mcpgo.Tool {
	return mcpgo.NewTool("remove_team_member",
		mcpgo.WithDescription("Remove a character from a team."),
		mcpgo.WithString("team_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the team"),
		),
		mcpgo.WithString("character_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the character to remove"),
		),
	)
}

func buildTeamStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("team_stats",
		mcpgo.WithDescription("Get team composition statistics: member count, capacity, species and homeworld distribution."),
		mcpgo.WithString("team_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the team"),
		),
	)
}

// --- tool handlers ---

func (s *Server) handleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.index == nil {
		return mcpgo.NewToolResultError("search index is unavailable"), nil
	}

	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcpgo.NewToolResultError("query is required and must not be empty"), nil
	}
	limit := int(req.GetFloat("limit", defaultSearchLimit))

	results, err := s.index.Search(ctx, query, limit)
	if err != nil {
		if errors.Is(err, index.ErrInvalidQuery) {
			return mcpgo.NewToolResultError("limit must be a positive integer"), nil
		}
		return mcpgo.NewToolResultErrorf("search failed: %s", err.Error()), nil
	}
	return toolResultJSON(results)
}

func (s *Server) handleClassify(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.teams == nil {
		return mcpgo.NewToolResultError("team engine is unavailable"), nil
	}

	characterID := req.GetString("character_id", "")
	if characterID == "" {
		return mcpgo.NewToolResultError("character_id is required"), nil
	}

	verdict, err := s.teams.Classify(ctx, characterID)
	if err != nil {
		return mcpgo.NewToolResultErrorf("classification failed: %s", err.Error()), nil
	}
	return toolResultJSON(map[string]string{
		"character_id": characterID,
		"alignment":    string(verdict),
	})
}

func (s *Server) handleAddMember(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.teams == nil {
		return mcpgo.NewToolResultError("team engine is unavailable"), nil
	}

	teamID := req.GetString("team_id", "")
	characterID := req.GetString("character_id", "")
	if teamID == "" || characterID == "" {
		return mcpgo.NewToolResultError("team_id and character_id are required"), nil
	}

	updated, err := s.teams.AddMember(ctx, teamID, characterID)
	if err != nil {
		return mcpgo.NewToolResultErrorf("add member failed: %s", err.Error()), nil
	}
	return toolResultJSON(updated)
}

func (s *Server) handleRemoveMember(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.teams == nil {
		return mcpgo.NewToolResultError("team engine is unavailable"), nil
	}

	teamID := req.GetString("team_id", "")
	characterID := req.GetString("character_id", "")
	if teamID == "" || characterID == "" {
		return mcpgo.NewToolResultError("team_id and character_id are required"), nil
	}

	updated, err := s.teams.RemoveMember(ctx, teamID, characterID)
	if err != nil {
		return mcpgo.NewToolResultErrorf("remove member failed: %s", err.Error()), nil
	}
	return toolResultJSON(updated)
}

func (s *Server) handleTeamStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.teams == nil {
		return mcpgo.NewToolResultError("team engine is unavailable"), nil
	}

	teamID := req.GetString("team_id", "")
	if teamID == "" {
		return mcpgo.NewToolResultError("team_id is required"), nil
	}

	stats, err := s.teams.Stats(ctx, teamID)
	if err != nil {
		return mcpgo.NewToolResultErrorf("stats failed: %s", err.Error()), nil
	}
	return toolResultJSON(stats)
}
