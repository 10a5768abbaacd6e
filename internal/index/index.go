// Package index implements semantic search over characters: it embeds
// character text via an external provider and ranks entries by cosine
// similarity to a query.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/galaxyops/holocron/internal/embedder"
	"github.com/galaxyops/holocron/internal/metrics"
	"github.com/galaxyops/holocron/internal/models"
)

// ErrInvalidQuery is returned by Search when the limit is not a positive integer.
var ErrInvalidQuery = errors.New("search limit must be a positive integer")

// ErrEmbeddingUnavailable is returned when the embedding provider fails or
// times out. Existing index entries are left untouched; callers may retry.
var ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

// DefaultEmbedTimeout bounds a single embedding call when no timeout is configured.
const DefaultEmbedTimeout = 30 * time.Second

// Index is the semantic search component. It is constructed at service
// start and torn down at shutdown; all mutation goes through Upsert and
// Delete.
type Index struct {
	emb     embedder.Embedder
	vectors VectorStore
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	inWrite map[string]*sync.Mutex // serializes upserts per character
}

// New creates an Index over the given embedder and vector store.
func New(emb embedder.Embedder, vectors VectorStore, timeout time.Duration, logger *slog.Logger) *Index {
	if timeout <= 0 {
		timeout = DefaultEmbedTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		emb:     emb,
		vectors: vectors,
		timeout: timeout,
		logger:  logger,
		inWrite: make(map[string]*sync.Mutex),
	}
}

// EnsureReady prepares the backing vector store.
func (ix *Index) EnsureReady(ctx context.Context) error {
	return ix.vectors.EnsureReady(ctx)
}

// Upsert indexes a character. If the current entry was computed from the
// same source text (by hash) the call is a no-op, so identical text costs
// exactly one embedding. On embedding failure the existing entry stays
// visible; nothing is half-written.
func (ix *Index) Upsert(ctx context.Context, ch models.Character) error {
	unlock := ix.lockCharacter(ch.ID)
	defer unlock()

	text := ch.EmbeddingText()
	hash := hashText(text)

	existing, err := ix.vectors.Get(ctx, ch.ID)
	if err != nil && !errors.Is(err, ErrEntryNotFound) {
		return fmt.Errorf("reading index entry for %s: %w", ch.ID, err)
	}
	if existing != nil && existing.TextHash == hash {
		metrics.Inc(metrics.EmbeddingsSkipped)
		ix.logger.Debug("index entry up to date", "character", ch.ID)
		return nil
	}

	vec, err := ix.embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding character %s: %w", ch.ID, err)
	}
	metrics.Inc(metrics.EmbeddingsComputed)

	if err := ix.vectors.Upsert(ctx, Entry{CharacterID: ch.ID, Vector: vec, TextHash: hash}); err != nil {
		return fmt.Errorf("storing index entry for %s: %w", ch.ID, err)
	}
	ix.logger.Debug("indexed character", "character", ch.ID, "dimension", len(vec))
	return nil
}

// Delete drops a character's index entry.
func (ix *Index) Delete(ctx context.Context, characterID string) error {
	unlock := ix.lockCharacter(characterID)
	defer unlock()
	return ix.vectors.Delete(ctx, characterID)
}

// Search embeds the query text and returns the top limit character IDs
// ranked by cosine similarity descending. Ties are broken by character ID
// ascending so an unchanged index always yields the same ordering.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit %d: %w", limit, ErrInvalidQuery)
	}

	vec, err := ix.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := ix.vectors.Search(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CharacterID < results[j].CharacterID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	metrics.Inc(metrics.SearchesTotal)
	return results, nil
}

// Count returns the number of indexed characters.
func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.vectors.Count(ctx)
}

// Close releases the backing vector store.
func (ix *Index) Close() error {
	return ix.vectors.Close()
}

// embed runs one provider call under the configured timeout. Any failure,
// including timeout, is reported as ErrEmbeddingUnavailable with the
// provider error attached.
func (ix *Index) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, ix.timeout)
	defer cancel()
	vec, err := ix.emb.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	return vec, nil
}

// lockCharacter serializes writes for one character ID. Writes for
// different characters proceed in parallel.
func (ix *Index) lockCharacter(id string) func() {
	ix.mu.Lock()
	lock, ok := ix.inWrite[id]
	if !ok {
		lock = &sync.Mutex{}
		ix.inWrite[id] = lock
	}
	ix.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
