// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when expvar's handler is mounted in the serving binary.
package metrics

import "expvar"

// Operation counters.
var (
	SearchesTotal      = expvar.NewInt("holocron_searches_total")
	EmbeddingsComputed = expvar.NewInt("holocron_embeddings_computed_total")
	EmbeddingsSkipped  = expvar.NewInt("holocron_embeddings_skipped_total")
	MembersAdded       = expvar.NewInt("holocron_team_members_added_total")
	MembersRemoved     = expvar.NewInt("holocron_team_members_removed_total")
	EvilRejected       = expvar.NewInt("holocron_evil_rejections_total")
	CharactersSeeded   = expvar.NewInt("holocron_characters_seeded_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
