package index

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyops/holocron/internal/models"
)

// fakeEmbedder returns a fixed-dimension vector derived from the text and
// counts calls, so tests can assert when embedding was skipped.
type fakeEmbedder struct {
	calls atomic.Int64
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	// A crude but deterministic text-to-vector mapping: character counts
	// in three buckets. Different texts land on different directions.
	vec := make([]float32, 3)
	for i, r := range text {
		vec[i%3] += float32(r % 13)
	}
	return vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

func testIndex(t *testing.T, emb *fakeEmbedder) *Index {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(emb, NewMemoryVectorStore(), time.Second, logger)
}

func TestIndex_UpsertSkipsUnchangedText(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := testIndex(t, emb)
	ctx := context.Background()

	ch := models.Character{ID: "luke", Name: "Luke Skywalker", Biography: "A farm boy from Tatooine."}

	require.NoError(t, ix.Upsert(ctx, ch))
	require.NoError(t, ix.Upsert(ctx, ch))

	assert.Equal(t, int64(1), emb.calls.Load(), "identical text must embed exactly once")

	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIndex_UpsertReembedsChangedText(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := testIndex(t, emb)
	ctx := context.Background()

	ch := models.Character{ID: "luke", Name: "Luke Skywalker", Biography: "A farm boy."}
	require.NoError(t, ix.Upsert(ctx, ch))

	ch.Biography = "A Jedi Knight."
	require.NoError(t, ix.Upsert(ctx, ch))

	assert.Equal(t, int64(2), emb.calls.Load())

	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "changed text replaces the entry, never duplicates it")
}

func TestIndex_UpsertEmbeddingFailureLeavesEntryIntact(t *testing.T) {
	emb := &fakeEmbedder{}
	store := NewMemoryVectorStore()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ix := New(emb, store, time.Second, logger)
	ctx := context.Background()

	ch := models.Character{ID: "luke", Name: "Luke Skywalker", Biography: "A farm boy."}
	require.NoError(t, ix.Upsert(ctx, ch))

	before, err := store.Get(ctx, "luke")
	require.NoError(t, err)

	emb.err = errors.New("provider down")
	ch.Biography = "A Jedi Knight."
	err = ix.Upsert(ctx, ch)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)

	after, getErr := store.Get(ctx, "luke")
	require.NoError(t, getErr)
	assert.Equal(t, before.TextHash, after.TextHash, "failed upsert must not touch the stored entry")
}

func TestIndex_UpsertFailureOnNewCharacter(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("provider down")}
	ix := testIndex(t, emb)
	ctx := context.Background()

	err := ix.Upsert(ctx, models.Character{ID: "luke", Name: "Luke Skywalker"})
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)

	count, countErr := ix.Count(ctx)
	require.NoError(t, countErr)
	assert.Equal(t, 0, count)
}

func TestIndex_SearchInvalidLimit(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := testIndex(t, emb)
	ctx := context.Background()

	for _, limit := range []int{0, -1, -100} {
		_, err := ix.Search(ctx, "anything", limit)
		assert.ErrorIs(t, err, ErrInvalidQuery, "limit %d", limit)
	}
	assert.Equal(t, int64(0), emb.calls.Load(), "invalid limits must be rejected before embedding")
}

func TestIndex_SearchEmbeddingFailure(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("provider down")}
	ix := testIndex(t, emb)

	_, err := ix.Search(context.Background(), "query", 5)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestIndex_SearchRanksAndLimits(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := testIndex(t, emb)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, models.Character{ID: "a", Name: "Luke Skywalker", Biography: "Jedi pilot from Tatooine."}))
	require.NoError(t, ix.Upsert(ctx, models.Character{ID: "b", Name: "Han Solo", Biography: "Smuggler captain of the Falcon."}))
	require.NoError(t, ix.Upsert(ctx, models.Character{ID: "c", Name: "Chewbacca", Biography: "Wookiee co-pilot and warrior."}))

	results, err := ix.Search(ctx, "Jedi pilot from Tatooine.", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Scores are sorted descending.
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	// An exact text match ranks first with perfect similarity.
	assert.Equal(t, "a", results[0].CharacterID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestIndex_SearchTieBreaksByID(t *testing.T) {
	emb := &fakeEmbedder{}
	store := NewMemoryVectorStore()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ix := New(emb, store, time.Second, logger)
	ctx := context.Background()

	// Identical vectors guarantee identical scores; order must then be by
	// character ID ascending on every run.
	vec := []float32{1, 2, 3}
	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.Upsert(ctx, Entry{CharacterID: id, Vector: vec, TextHash: id}))
	}

	for i := 0; i < 5; i++ {
		results, err := ix.Search(ctx, "query", 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "alpha", results[0].CharacterID)
		assert.Equal(t, "mid", results[1].CharacterID)
		assert.Equal(t, "zeta", results[2].CharacterID)
	}
}

func TestIndex_Delete(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := testIndex(t, emb)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, models.Character{ID: "luke", Name: "Luke Skywalker"}))
	require.NoError(t, ix.Delete(ctx, "luke"))

	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryVectorStore_GetMissing(t *testing.T) {
	store := NewMemoryVectorStore()
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
