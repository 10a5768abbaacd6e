// Package catalog persists character and team records. Characters are the
// long-lived shared entities; teams reference them by ID only.
package catalog

import (
	"context"
	"errors"

	"github.com/galaxyops/holocron/internal/models"
)

// ErrNotFound is returned when the requested character or team does not exist.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict is returned by UpdateTeam when the team was modified
// since it was read. Callers re-read and retry.
var ErrVersionConflict = errors.New("team version conflict")

// CharacterFilter narrows ListCharacters results.
type CharacterFilter struct {
	// Search matches case-insensitively against name, species, and homeworld.
	Search string
}

// Store defines character and team persistence.
type Store interface {
	// PutCharacter inserts or replaces a character record.
	PutCharacter(ctx context.Context, ch models.Character) error

	// GetCharacter retrieves a character by ID.
	GetCharacter(ctx context.Context, id string) (*models.Character, error)

	// ListCharacters returns characters matching the filter, ordered by ID.
	// The cursor is opaque; pass "" for the first page. The returned cursor
	// is empty when no more results remain.
	ListCharacters(ctx context.Context, filter *CharacterFilter, limit int, cursor string) ([]models.Character, string, error)

	// DeleteCharacter removes a character by ID.
	DeleteCharacter(ctx context.Context, id string) error

	// CreateTeam inserts a new team.
	CreateTeam(ctx context.Context, team models.Team) error

	// GetTeam retrieves a team by ID.
	GetTeam(ctx context.Context, id string) (*models.Team, error)

	// ListTeams returns all teams ordered by creation time descending.
	ListTeams(ctx context.Context) ([]models.Team, error)

	// UpdateTeam writes a team read at team.Version. It fails with
	// ErrVersionConflict if the stored version differs, otherwise bumps the
	// version and returns the updated team.
	UpdateTeam(ctx context.Context, team models.Team) (*models.Team, error)

	// DeleteTeam removes a team entirely; no tombstone is kept.
	DeleteTeam(ctx context.Context, id string) error

	// Close cleans up resources.
	Close() error
}
