package models

import (
	"strings"
	"time"
)

// Alignment is the good/evil verdict derived for a character. It is never
// stored as an input field; it is recomputed from the character's name,
// affiliations, and master chain whenever those change.
type Alignment string

const (
	AlignmentGood Alignment = "good"
	AlignmentEvil Alignment = "evil"
)

// IsValid returns true if the alignment is recognized.
func (a Alignment) IsValid() bool {
	return a == AlignmentGood || a == AlignmentEvil
}

// Character is a catalog entry for one fictional character.
//
// MasterIDs are weak references: an entry may point at a character that no
// longer exists, in which case it is treated as having no master.
type Character struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Species      string    `json:"species,omitempty"`
	Homeworld    string    `json:"homeworld,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	Height       *float64  `json:"height,omitempty"`
	Mass         *float64  `json:"mass,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	Affiliations []string  `json:"affiliations,omitempty"`
	MasterIDs    []string  `json:"master_ids,omitempty"`
	Biography    string    `json:"biography,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EmbeddingText is the source text a character's search index entry is
// computed from: the biography when present, otherwise name plus
// affiliations so sparse records are still searchable.
func (c Character) EmbeddingText() string {
	if strings.TrimSpace(c.Biography) != "" {
		return c.Biography
	}
	parts := append([]string{c.Name}, c.Affiliations...)
	return strings.Join(parts, " ")
}

// SearchResult is one ranked hit from a semantic search: the character
// identifier and its cosine similarity to the query.
type SearchResult struct {
	CharacterID string  `json:"character_id"`
	Score       float64 `json:"score"`
}
