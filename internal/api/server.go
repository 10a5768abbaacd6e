// Package api exposes the character, team, and search operations over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/galaxyops/holocron/internal/catalog"
	"github.com/galaxyops/holocron/internal/index"
	"github.com/galaxyops/holocron/internal/models"
	"github.com/galaxyops/holocron/internal/team"
)

// Server is an HTTP API server over the core components.
type Server struct {
	store     catalog.Store
	teams     *team.Engine
	index     *index.Index
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(store catalog.Store, teams *team.Engine, ix *index.Index, logger *slog.Logger, authToken string) *Server {
	return &Server{
		store:     store,
		teams:     teams,
		index:     ix,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check — no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /v1/characters", s.auth(s.handleListCharacters))
	mux.HandleFunc("GET /v1/characters/{id}", s.auth(s.handleGetCharacter))
	mux.HandleFunc("GET /v1/characters/{id}/alignment", s.auth(s.handleClassify))

	mux.HandleFunc("POST /v1/teams", s.auth(s.handleCreateTeam))
	mux.HandleFunc("GET /v1/teams", s.auth(s.handleListTeams))
	mux.HandleFunc("GET /v1/teams/{id}", s.auth(s.handleGetTeam))
	mux.HandleFunc("DELETE /v1/teams/{id}", s.auth(s.handleDeleteTeam))
	mux.HandleFunc("GET /v1/teams/{id}/stats", s.auth(s.handleTeamStats))
	mux.HandleFunc("POST /v1/teams/{id}/members", s.auth(s.handleAddMember))
	mux.HandleFunc("DELETE /v1/teams/{id}/members/{characterID}", s.auth(s.handleRemoveMember))

	mux.HandleFunc("POST /v1/search", s.auth(s.handleSearch))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listCharactersResponse is returned by GET /v1/characters.
type listCharactersResponse struct {
	Characters []models.Character `json:"characters"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var filter *catalog.CharacterFilter
	if search := r.URL.Query().Get("search"); search != "" {
		filter = &catalog.CharacterFilter{Search: search}
	}

	characters, nextCursor, err := s.store.ListCharacters(r.Context(), filter, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		s.logger.Error("listing characters", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list characters")
		return
	}

	s.writeJSON(w, http.StatusOK, listCharactersResponse{Characters: characters, NextCursor: nextCursor})
}

// characterResponse pairs a character with its derived alignment.
type characterResponse struct {
	models.Character
	Alignment models.Alignment `json:"alignment"`
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ch, err := s.store.GetCharacter(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err, "failed to get character")
		return
	}
	verdict, err := s.teams.Classify(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err, "failed to classify character")
		return
	}
	s.writeJSON(w, http.StatusOK, characterResponse{Character: *ch, Alignment: verdict})
}

// classifyResponse is returned by GET /v1/characters/{id}/alignment.
type classifyResponse struct {
	CharacterID string           `json:"character_id"`
	Alignment   models.Alignment `json:"alignment"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	verdict, err := s.teams.Classify(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err, "failed to classify character")
		return
	}
	s.writeJSON(w, http.StatusOK, classifyResponse{CharacterID: id, Alignment: verdict})
}

// createTeamRequest is the body accepted by POST /v1/teams.
type createTeamRequest struct {
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	created, err := s.teams.Create(r.Context(), req.Name, req.OwnerID)
	if err != nil {
		s.logger.Error("creating team", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create team")
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.teams.List(r.Context())
	if err != nil {
		s.logger.Error("listing teams", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list teams")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]models.Team{"teams": teams})
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	got, err := s.teams.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err, "failed to get team")
		return
	}
	s.writeJSON(w, http.StatusOK, got)
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := s.teams.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeDomainError(w, err, "failed to delete team")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleTeamStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.teams.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err, "failed to compute team stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// addMemberRequest is the body accepted by POST /v1/teams/{id}/members.
type addMemberRequest struct {
	CharacterID string `json:"character_id"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CharacterID == "" {
		s.writeError(w, http.StatusBadRequest, "character_id is required")
		return
	}

	updated, err := s.teams.AddMember(r.Context(), r.PathValue("id"), req.CharacterID)
	if err != nil {
		s.writeDomainError(w, err, "failed to add member")
		return
	}
	s.writeJSON(w, http.StatusCreated, updated)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	updated, err := s.teams.RemoveMember(r.Context(), r.PathValue("id"), r.PathValue("characterID"))
	if err != nil {
		s.writeDomainError(w, err, "failed to remove member")
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

// searchRequest is the body accepted by POST /v1/search.
type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// searchResponse is returned by POST /v1/search.
type searchResponse struct {
	Results []models.SearchResult `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit == 0 {
		req.Limit = 10
	}

	results, err := s.index.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.writeDomainError(w, err, "failed to search characters")
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	s.writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

// --- helpers ---

// writeDomainError maps core error taxonomy to HTTP status codes. Business
// rule rejections surface with their message so users see why a change was
// refused; unexpected errors are logged and masked.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, team.ErrMemberNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, team.ErrDuplicateMember),
		errors.Is(err, team.ErrCapacityExceeded),
		errors.Is(err, team.ErrEvilCharacterRejected):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, index.ErrInvalidQuery):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, index.ErrEmbeddingUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, "embedding service unavailable, retry later")
	default:
		s.logger.Error(fallbackMsg, "error", err)
		s.writeError(w, http.StatusInternalServerError, fallbackMsg)
	}
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
