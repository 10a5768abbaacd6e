package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyops/holocron/internal/models"
)

// storeImpls returns every Store implementation under test. The SQLite
// store gets a fresh database file per test.
func storeImpls(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func sampleCharacter(id string) models.Character {
	height := 1.72
	now := time.Now().UTC().Truncate(time.Millisecond)
	return models.Character{
		ID:           id,
		Name:         "Luke Skywalker",
		Species:      "Human",
		Homeworld:    "Tatooine",
		Gender:       "male",
		Height:       &height,
		Affiliations: []string{"Rebel Alliance", "Jedi Order"},
		MasterIDs:    []string{"obi-wan", "yoda"},
		Biography:    "A farm boy who became a Jedi Knight.",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestStore_CharacterRoundTrip(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sampleCharacter("luke")

			require.NoError(t, store.PutCharacter(ctx, want))

			got, err := store.GetCharacter(ctx, "luke")
			require.NoError(t, err)
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.Name, got.Name)
			assert.Equal(t, want.Species, got.Species)
			assert.Equal(t, want.Affiliations, got.Affiliations)
			assert.Equal(t, want.MasterIDs, got.MasterIDs)
			assert.Equal(t, want.Biography, got.Biography)
			require.NotNil(t, got.Height)
			assert.InDelta(t, *want.Height, *got.Height, 1e-9)
			assert.Nil(t, got.Mass)
		})
	}
}

func TestStore_PutCharacterReplaces(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ch := sampleCharacter("luke")
			require.NoError(t, store.PutCharacter(ctx, ch))

			ch.Name = "Luke Skywalker, Jedi Knight"
			ch.Biography = "Updated biography."
			require.NoError(t, store.PutCharacter(ctx, ch))

			got, err := store.GetCharacter(ctx, "luke")
			require.NoError(t, err)
			assert.Equal(t, "Luke Skywalker, Jedi Knight", got.Name)
			assert.Equal(t, "Updated biography.", got.Biography)
		})
	}
}

func TestStore_GetCharacterNotFound(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetCharacter(context.Background(), "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_DeleteCharacter(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.PutCharacter(ctx, sampleCharacter("luke")))
			require.NoError(t, store.DeleteCharacter(ctx, "luke"))

			_, err := store.GetCharacter(ctx, "luke")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.ErrorIs(t, store.DeleteCharacter(ctx, "luke"), ErrNotFound)
		})
	}
}

func TestStore_ListCharactersPagination(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				ch := sampleCharacter(fmt.Sprintf("char-%d", i))
				ch.Name = fmt.Sprintf("Character %d", i)
				require.NoError(t, store.PutCharacter(ctx, ch))
			}

			var seen []string
			cursor := ""
			for {
				page, next, err := store.ListCharacters(ctx, nil, 2, cursor)
				require.NoError(t, err)
				for _, ch := range page {
					seen = append(seen, ch.ID)
				}
				if next == "" {
					break
				}
				cursor = next
			}

			assert.Equal(t, []string{"char-0", "char-1", "char-2", "char-3", "char-4"}, seen)
		})
	}
}

func TestStore_ListCharactersSearch(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			luke := sampleCharacter("luke")
			require.NoError(t, store.PutCharacter(ctx, luke))

			chewie := sampleCharacter("chewie")
			chewie.Name = "Chewbacca"
			chewie.Species = "Wookiee"
			chewie.Homeworld = "Kashyyyk"
			require.NoError(t, store.PutCharacter(ctx, chewie))

			// Case-insensitive match against name.
			page, _, err := store.ListCharacters(ctx, &CharacterFilter{Search: "chewba"}, 10, "")
			require.NoError(t, err)
			require.Len(t, page, 1)
			assert.Equal(t, "chewie", page[0].ID)

			// Match against species.
			page, _, err = store.ListCharacters(ctx, &CharacterFilter{Search: "wookiee"}, 10, "")
			require.NoError(t, err)
			require.Len(t, page, 1)
			assert.Equal(t, "chewie", page[0].ID)

			// No match.
			page, _, err = store.ListCharacters(ctx, &CharacterFilter{Search: "hutt"}, 10, "")
			require.NoError(t, err)
			assert.Empty(t, page)
		})
	}
}

func TestStore_TeamLifecycle(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			team := models.Team{
				ID:        "team-1",
				Name:      "Rogue Squadron",
				OwnerID:   "owner-1",
				MemberIDs: []string{},
				CreatedAt: time.Now().UTC(),
			}
			require.NoError(t, store.CreateTeam(ctx, team))

			got, err := store.GetTeam(ctx, "team-1")
			require.NoError(t, err)
			assert.Equal(t, "Rogue Squadron", got.Name)
			assert.Equal(t, int64(0), got.Version)
			assert.Empty(t, got.MemberIDs)

			teams, err := store.ListTeams(ctx)
			require.NoError(t, err)
			require.Len(t, teams, 1)

			require.NoError(t, store.DeleteTeam(ctx, "team-1"))
			_, err = store.GetTeam(ctx, "team-1")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, store.DeleteTeam(ctx, "team-1"), ErrNotFound)
		})
	}
}

func TestStore_UpdateTeamBumpsVersion(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.CreateTeam(ctx, models.Team{ID: "team-1", Name: "Heroes", CreatedAt: time.Now().UTC()}))

			team, err := store.GetTeam(ctx, "team-1")
			require.NoError(t, err)

			team.MemberIDs = []string{"luke"}
			updated, err := store.UpdateTeam(ctx, *team)
			require.NoError(t, err)
			assert.Equal(t, int64(1), updated.Version)
			assert.Equal(t, []string{"luke"}, updated.MemberIDs)

			got, err := store.GetTeam(ctx, "team-1")
			require.NoError(t, err)
			assert.Equal(t, int64(1), got.Version)
		})
	}
}

func TestStore_UpdateTeamVersionConflict(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.CreateTeam(ctx, models.Team{ID: "team-1", Name: "Heroes", CreatedAt: time.Now().UTC()}))

			first, err := store.GetTeam(ctx, "team-1")
			require.NoError(t, err)
			second, err := store.GetTeam(ctx, "team-1")
			require.NoError(t, err)

			first.MemberIDs = []string{"luke"}
			_, err = store.UpdateTeam(ctx, *first)
			require.NoError(t, err)

			// The second writer still holds version 0; its write must fail.
			second.MemberIDs = []string{"leia"}
			_, err = store.UpdateTeam(ctx, *second)
			assert.ErrorIs(t, err, ErrVersionConflict)

			got, err := store.GetTeam(ctx, "team-1")
			require.NoError(t, err)
			assert.Equal(t, []string{"luke"}, got.MemberIDs)
		})
	}
}

func TestStore_UpdateTeamNotFound(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.UpdateTeam(context.Background(), models.Team{ID: "missing", Name: "Ghosts"})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_CreateTeamDuplicateID(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			team := models.Team{ID: "team-1", Name: "Heroes", CreatedAt: time.Now().UTC()}
			require.NoError(t, store.CreateTeam(ctx, team))
			assert.Error(t, store.CreateTeam(ctx, team))
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.PutCharacter(ctx, sampleCharacter("luke")))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.GetCharacter(ctx, "luke")
	require.NoError(t, err)
	assert.Equal(t, "Luke Skywalker", got.Name)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.Error(t, err)
}
