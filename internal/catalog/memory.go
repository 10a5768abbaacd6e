package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/galaxyops/holocron/internal/models"
)

// MemoryStore is an in-memory implementation of Store used by tests and
// local development.
type MemoryStore struct {
	mu         sync.RWMutex
	characters map[string]models.Character
	teams      map[string]models.Team
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		characters: make(map[string]models.Character),
		teams:      make(map[string]models.Team),
	}
}

// PutCharacter inserts or replaces a character record.
func (m *MemoryStore) PutCharacter(_ context.Context, ch models.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters[ch.ID] = copyCharacter(ch)
	return nil
}

// GetCharacter retrieves a character by ID.
func (m *MemoryStore) GetCharacter(_ context.Context, id string) (*models.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.characters[id]
	if !ok {
		return nil, fmt.Errorf("character %s: %w", id, ErrNotFound)
	}
	out := copyCharacter(ch)
	return &out, nil
}

// ListCharacters returns matching characters ordered by ID with cursor pagination.
func (m *MemoryStore) ListCharacters(_ context.Context, filter *CharacterFilter, limit int, cursor string) ([]models.Character, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []models.Character
	for _, ch := range m.characters {
		if !matchesFilter(ch, filter) {
			continue
		}
		all = append(all, copyCharacter(ch))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if cursor != "" {
		idx := sort.Search(len(all), func(i int) bool { return all[i].ID > cursor })
		all = all[idx:]
	}

	var nextCursor string
	if limit > 0 && len(all) > limit {
		all = all[:limit]
		nextCursor = all[len(all)-1].ID
	}
	return all, nextCursor, nil
}

// DeleteCharacter removes a character by ID.
func (m *MemoryStore) DeleteCharacter(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.characters[id]; !ok {
		return fmt.Errorf("character %s: %w", id, ErrNotFound)
	}
	delete(m.characters, id)
	return nil
}

// CreateTeam inserts a new team.
func (m *MemoryStore) CreateTeam(_ context.Context, team models.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[team.ID]; ok {
		return fmt.Errorf("team %s already exists", team.ID)
	}
	m.teams[team.ID] = copyTeam(team)
	return nil
}

// GetTeam retrieves a team by ID.
func (m *MemoryStore) GetTeam(_ context.Context, id string) (*models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	team, ok := m.teams[id]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", id, ErrNotFound)
	}
	out := copyTeam(team)
	return &out, nil
}

// ListTeams returns all teams ordered by creation time descending.
func (m *MemoryStore) ListTeams(_ context.Context) ([]models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	teams := make([]models.Team, 0, len(m.teams))
	for _, t := range m.teams {
		teams = append(teams, copyTeam(t))
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].CreatedAt.Equal(teams[j].CreatedAt) {
			return teams[i].ID < teams[j].ID
		}
		return teams[i].CreatedAt.After(teams[j].CreatedAt)
	})
	return teams, nil
}

// UpdateTeam writes a team if its version still matches the stored one.
func (m *MemoryStore) UpdateTeam(_ context.Context, team models.Team) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.teams[team.ID]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", team.ID, ErrNotFound)
	}
	if stored.Version != team.Version {
		return nil, fmt.Errorf("team %s at version %d, have %d: %w", team.ID, stored.Version, team.Version, ErrVersionConflict)
	}
	team.Version++
	team.UpdatedAt = time.Now().UTC()
	m.teams[team.ID] = copyTeam(team)
	out := copyTeam(team)
	return &out, nil
}

// DeleteTeam removes a team entirely.
func (m *MemoryStore) DeleteTeam(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[id]; !ok {
		return fmt.Errorf("team %s: %w", id, ErrNotFound)
	}
	delete(m.teams, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

// --- helpers ---

func matchesFilter(ch models.Character, f *CharacterFilter) bool {
	if f == nil || f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	for _, field := range []string{ch.Name, ch.Species, ch.Homeworld} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// copyCharacter deep-copies slice fields to prevent external mutation of stored data.
func copyCharacter(ch models.Character) models.Character {
	if len(ch.Affiliations) > 0 {
		ch.Affiliations = append([]string(nil), ch.Affiliations...)
	}
	if len(ch.MasterIDs) > 0 {
		ch.MasterIDs = append([]string(nil), ch.MasterIDs...)
	}
	if ch.Height != nil {
		h := *ch.Height
		ch.Height = &h
	}
	if ch.Mass != nil {
		m := *ch.Mass
		ch.Mass = &m
	}
	return ch
}

func copyTeam(t models.Team) models.Team {
	if len(t.MemberIDs) > 0 {
		t.MemberIDs = append([]string(nil), t.MemberIDs...)
	}
	return t
}

var _ Store = (*MemoryStore)(nil)
