package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/galaxyops/holocron/internal/models"
)

// MemoryVectorStore is an in-memory VectorStore used by tests and local
// single-process deployments.
type MemoryVectorStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryVectorStore creates an empty in-memory vector store.
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{entries: make(map[string]Entry)}
}

// EnsureReady is a no-op for the in-memory store.
func (m *MemoryVectorStore) EnsureReady(_ context.Context) error { return nil }

// Get retrieves the entry for a character.
func (m *MemoryVectorStore) Get(_ context.Context, characterID string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[characterID]
	if !ok {
		return nil, fmt.Errorf("character %s: %w", characterID, ErrEntryNotFound)
	}
	out := copyEntry(e)
	return &out, nil
}

// Upsert replaces the entry for a character under the write lock, so a
// concurrent reader sees either the old or the new entry, never a mix.
func (m *MemoryVectorStore) Upsert(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.CharacterID] = copyEntry(entry)
	return nil
}

// Delete removes the entry for a character.
func (m *MemoryVectorStore) Delete(_ context.Context, characterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, characterID)
	return nil
}

// Search ranks all entries by cosine similarity to the query vector.
func (m *MemoryVectorStore) Search(_ context.Context, vector []float32, limit int) ([]models.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]models.SearchResult, 0, len(m.entries))
	for id, e := range m.entries {
		results = append(results, models.SearchResult{
			CharacterID: id,
			Score:       cosineSimilarity(vector, e.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CharacterID < results[j].CharacterID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of indexed entries.
func (m *MemoryVectorStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryVectorStore) Close() error { return nil }

// --- helpers ---

func copyEntry(e Entry) Entry {
	if len(e.Vector) > 0 {
		e.Vector = append([]float32(nil), e.Vector...)
	}
	return e
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ VectorStore = (*MemoryVectorStore)(nil)
