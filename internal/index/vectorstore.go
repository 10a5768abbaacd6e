package index

import (
	"context"
	"errors"

	"github.com/galaxyops/holocron/internal/models"
)

// ErrEntryNotFound is returned by Get when no entry exists for the character.
var ErrEntryNotFound = errors.New("index entry not found")

// Entry is one indexed character: its embedding vector plus the hash of the
// source text it was computed from. An entry is either absent or fully
// consistent with that text; there is no partially written state.
type Entry struct {
	CharacterID string
	Vector      []float32
	TextHash    string
}

// VectorStore persists index entries and ranks them by similarity to a
// query vector. Upsert replaces an existing entry atomically: readers see
// the old entry until the new one is fully written.
type VectorStore interface {
	// EnsureReady prepares backing storage (e.g. creates the collection).
	EnsureReady(ctx context.Context) error

	// Get retrieves the entry for a character, or ErrEntryNotFound.
	Get(ctx context.Context, characterID string) (*Entry, error)

	// Upsert atomically inserts or replaces the entry for a character.
	Upsert(ctx context.Context, entry Entry) error

	// Delete removes the entry for a character; absent entries are a no-op.
	Delete(ctx context.Context, characterID string) error

	// Search returns up to limit results ranked by cosine similarity
	// descending. Tie ordering across equal scores is backend-defined; the
	// index re-sorts for determinism.
	Search(ctx context.Context, vector []float32, limit int) ([]models.SearchResult, error)

	// Count returns the number of indexed entries.
	Count(ctx context.Context) (int, error)

	// Close cleans up resources.
	Close() error
}
