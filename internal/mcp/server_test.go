package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyops/holocron/internal/alignment"
	"github.com/galaxyops/holocron/internal/catalog"
	"github.com/galaxyops/holocron/internal/index"
	"github.com/galaxyops/holocron/internal/models"
	"github.com/galaxyops/holocron/internal/team"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 3)
	for i, r := range text {
		vec[i%3] += float32(r % 13)
	}
	return vec, nil
}

func (s stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (stubEmbedder) Dimension() int { return 3 }

func newMCPServer(t *testing.T) (*Server, catalog.Store, *index.Index) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := catalog.NewMemoryStore()
	ix := index.New(stubEmbedder{}, index.NewMemoryVectorStore(), time.Second, logger)
	cls := alignment.NewClassifier(nil, logger)
	engine := team.NewEngine(store, cls, logger)
	return NewServer(engine, ix, logger), store, ix
}

// makeReq builds a CallToolRequest with the given arguments.
func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

// textContent extracts the first TextContent string from a CallToolResult.
func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content item")
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func createTeam(t *testing.T, srv *Server) string {
	t.Helper()
	created, err := srv.teams.Create(context.Background(), "Heroes", "")
	require.NoError(t, err)
	return created.ID
}

func TestMCPSearch(t *testing.T) {
	srv, store, ix := newMCPServer(t)
	ctx := context.Background()

	ch := models.Character{ID: "luke", Name: "Luke Skywalker", Biography: "Jedi pilot from Tatooine."}
	require.NoError(t, store.PutCharacter(ctx, ch))
	require.NoError(t, ix.Upsert(ctx, ch))

	result, err := srv.HandleSearch(ctx, makeReq("search_characters", map[string]any{
		"query": "Jedi pilot from Tatooine.",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "search returned error: %s", textContent(t, result))

	var results []models.SearchResult
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "luke", results[0].CharacterID)
}

func TestMCPSearch_EmptyQuery(t *testing.T) {
	srv, _, _ := newMCPServer(t)

	result, err := srv.HandleSearch(context.Background(), makeReq("search_characters", map[string]any{
		"query": "   ",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPSearch_InvalidLimit(t *testing.T) {
	srv, _, _ := newMCPServer(t)

	result, err := srv.HandleSearch(context.Background(), makeReq("search_characters", map[string]any{
		"query": "jedi",
		"limit": -3,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "positive")
}

func TestMCPSearch_NilIndex(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := catalog.NewMemoryStore()
	cls := alignment.NewClassifier(nil, logger)
	srv := NewServer(team.NewEngine(store, cls, logger), nil, logger)

	result, err := srv.HandleSearch(context.Background(), makeReq("search_characters", map[string]any{
		"query": "jedi",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPClassify(t *testing.T) {
	srv, store, _ := newMCPServer(t)
	ctx := context.Background()

	require.NoError(t, store.PutCharacter(ctx, models.Character{ID: "vader", Name: "Darth Vader"}))

	result, err := srv.HandleClassify(ctx, makeReq("classify_character", map[string]any{
		"character_id": "vader",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "classify returned error: %s", textContent(t, result))

	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, "evil", out["alignment"])
	assert.Equal(t, "vader", out["character_id"])
}

func TestMCPClassify_MissingArg(t *testing.T) {
	srv, _, _ := newMCPServer(t)

	result, err := srv.HandleClassify(context.Background(), makeReq("classify_character", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPAddMember(t *testing.T) {
	srv, store, _ := newMCPServer(t)
	ctx := context.Background()

	require.NoError(t, store.PutCharacter(ctx, models.Character{ID: "luke", Name: "Luke Skywalker"}))
	teamID := createTeam(t, srv)

	result, err := srv.HandleAddMember(ctx, makeReq("add_team_member", map[string]any{
		"team_id":      teamID,
		"character_id": "luke",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "add returned error: %s", textContent(t, result))

	var updated models.Team
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &updated))
	assert.Equal(t, []string{"luke"}, updated.MemberIDs)
}

func TestMCPAddMember_EvilRejected(t *testing.T) {
	srv, store, _ := newMCPServer(t)
	ctx := context.Background()

	require.NoError(t, store.PutCharacter(ctx, models.Character{ID: "vader", Name: "Darth Vader"}))
	teamID := createTeam(t, srv)

	result, err := srv.HandleAddMember(ctx, makeReq("add_team_member", map[string]any{
		"team_id":      teamID,
		"character_id": "vader",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "evil")
}

func TestMCPRemoveMember(t *testing.T) {
	srv, store, _ := newMCPServer(t)
	ctx := context.Background()

	require.NoError(t, store.PutCharacter(ctx, models.Character{ID: "luke", Name: "Luke Skywalker"}))
	teamID := createTeam(t, srv)

	_, err := srv.HandleAddMember(ctx, makeReq("add_team_member", map[string]any{
		"team_id":      teamID,
		"character_id": "luke",
	}))
	require.NoError(t, err)

	result, err := srv.HandleRemoveMember(ctx, makeReq("remove_team_member", map[string]any{
		"team_id":      teamID,
		"character_id": "luke",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "remove returned error: %s", textContent(t, result))

	var updated models.Team
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &updated))
	assert.Empty(t, updated.MemberIDs)
}

func TestMCPRemoveMember_NotAMember(t *testing.T) {
	srv, store, _ := newMCPServer(t)
	ctx := context.Background()

	require.NoError(t, store.PutCharacter(ctx, models.Character{ID: "luke", Name: "Luke Skywalker"}))
	teamID := createTeam(t, srv)

	result, err := srv.HandleRemoveMember(ctx, makeReq("remove_team_member", map[string]any{
		"team_id":      teamID,
		"character_id": "luke",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPTeamStats(t *testing.T) {
	srv, store, _ := newMCPServer(t)
	ctx := context.Background()

	require.NoError(t, store.PutCharacter(ctx, models.Character{ID: "luke", Name: "Luke Skywalker", Species: "Human"}))
	teamID := createTeam(t, srv)

	_, err := srv.HandleAddMember(ctx, makeReq("add_team_member", map[string]any{
		"team_id":      teamID,
		"character_id": "luke",
	}))
	require.NoError(t, err)

	result, err := srv.handleTeamStats(ctx, makeReq("team_stats", map[string]any{
		"team_id": teamID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "stats returned error: %s", textContent(t, result))

	var stats models.TeamStats
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &stats))
	assert.Equal(t, 1, stats.MemberCount)
	assert.Equal(t, map[string]int{"Human": 1}, stats.SpeciesDistribution)
}
