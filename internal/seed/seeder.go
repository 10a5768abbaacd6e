// Package seed bulk-populates the catalog and the semantic index from an
// external character catalog API.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/galaxyops/holocron/internal/biography"
	"github.com/galaxyops/holocron/internal/catalog"
	"github.com/galaxyops/holocron/internal/index"
	"github.com/galaxyops/holocron/internal/metrics"
	"github.com/galaxyops/holocron/internal/models"
)

const fetchTimeout = 30 * time.Second

// idNamespace makes character IDs deterministic per source record, so
// re-running the seeder updates records instead of duplicating them.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("holocron/catalog"))

// record is one entry in the external catalog's JSON response. The masters
// field appears as either a single string or a list of names.
type record struct {
	ID           json.Number     `json:"id"`
	Name         string          `json:"name"`
	Height       floatField      `json:"height"`
	Mass         floatField      `json:"mass"`
	Gender       string          `json:"gender"`
	Homeworld    string          `json:"homeworld"`
	Species      string          `json:"species"`
	Image        string          `json:"image"`
	Affiliations []string        `json:"affiliations"`
	Masters      flexibleStrings `json:"masters"`
}

// floatField tolerates numbers, numeric strings (including comma decimal
// separators), "unknown", and null in place of a number.
type floatField struct {
	Value *float64
}

func (f *floatField) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.Value = &n
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// null or a shape we don't recognize: leave unset.
		return nil
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || s == "unknown" {
		return nil
	}
	if parsed, err := strconv.ParseFloat(s, 64); err == nil {
		f.Value = &parsed
	}
	return nil
}

// flexibleStrings unmarshals either a JSON string or an array of strings.
type flexibleStrings []string

func (f *flexibleStrings) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if strings.TrimSpace(single) != "" {
			*f = []string{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*f = many
	return nil
}

// Report summarizes a seeding run.
type Report struct {
	Fetched int `json:"fetched"`
	Stored  int `json:"stored"`
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// Seeder fetches catalog records, stores them, optionally generates
// biographies, and indexes every character for semantic search.
type Seeder struct {
	store     catalog.Store
	index     *index.Index
	generator *biography.Generator // nil skips biography generation
	sourceURL string
	workers   int
	client    *http.Client
	logger    *slog.Logger
}

// NewSeeder creates a seeder. workers bounds enrichment concurrency to
// respect external rate limits; values below 1 collapse to 1.
func NewSeeder(store catalog.Store, ix *index.Index, gen *biography.Generator, sourceURL string, workers int, logger *slog.Logger) *Seeder {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		store:     store,
		index:     ix,
		generator: gen,
		sourceURL: sourceURL,
		workers:   workers,
		client:    &http.Client{Timeout: fetchTimeout},
		logger:    logger,
	}
}

// Run executes a full seeding pass. limit > 0 caps the number of records
// processed. Failures on individual characters are logged and counted, not
// fatal; only fetch errors abort the run.
func (s *Seeder) Run(ctx context.Context, limit int) (*Report, error) {
	records, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	report := &Report{Fetched: len(records)}
	s.logger.Info("fetched catalog records", "count", len(records), "source", s.sourceURL)

	// First pass: store base records and build the name map so master
	// name references can be rewritten as ID references.
	idsByName := make(map[string]string, len(records))
	for _, rec := range records {
		idsByName[rec.Name] = characterID(rec)
	}

	characters := make([]models.Character, 0, len(records))
	for _, rec := range records {
		ch := s.toCharacter(rec, idsByName)
		if err := s.store.PutCharacter(ctx, ch); err != nil {
			s.logger.Error("storing character", "name", rec.Name, "error", err)
			report.Failed++
			continue
		}
		report.Stored++
		characters = append(characters, ch)
	}

	// Second pass: biography generation and index upserts are the slow,
	// rate-limited calls; run them under a bounded worker pool.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, ch := range characters {
		g.Go(func() error {
			if err := s.enrich(gctx, ch); err != nil {
				s.logger.Error("enriching character", "character", ch.ID, "name", ch.Name, "error", err)
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			report.Indexed++
			mu.Unlock()
			metrics.Inc(metrics.CharactersSeeded)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	s.logger.Info("seeding complete", "stored", report.Stored, "indexed", report.Indexed, "failed", report.Failed)
	return report, nil
}

// fetch downloads the full record list from the source URL.
func (s *Seeder) fetch(ctx context.Context) ([]record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating catalog request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog from %s: %w", s.sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog API returned %d", resp.StatusCode)
	}

	var records []record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding catalog response: %w", err)
	}
	return records, nil
}

// enrich generates a biography when missing and upserts the index entry.
func (s *Seeder) enrich(ctx context.Context, ch models.Character) error {
	if s.generator != nil && ch.Biography == "" {
		bio, err := s.generator.Generate(ctx, ch)
		if err != nil {
			return fmt.Errorf("generating biography: %w", err)
		}
		ch.Biography = bio
		ch.UpdatedAt = time.Now().UTC()
		if err := s.store.PutCharacter(ctx, ch); err != nil {
			return fmt.Errorf("storing biography: %w", err)
		}
	}
	if err := s.index.Upsert(ctx, ch); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	return nil
}

// toCharacter converts an external record, rewriting master names to
// character IDs. Master names with no matching record are dropped; the
// classifier treats missing masters as no master anyway.
func (s *Seeder) toCharacter(rec record, idsByName map[string]string) models.Character {
	var masters []string
	for _, name := range rec.Masters {
		name = strings.TrimSpace(name)
		if id, ok := idsByName[name]; ok {
			masters = append(masters, id)
		}
	}

	now := time.Now().UTC()
	return models.Character{
		ID:           characterID(rec),
		Name:         rec.Name,
		Species:      rec.Species,
		Homeworld:    rec.Homeworld,
		Gender:       rec.Gender,
		Height:       rec.Height.Value,
		Mass:         rec.Mass.Value,
		ImageURL:     rec.Image,
		Affiliations: rec.Affiliations,
		MasterIDs:    masters,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func characterID(rec record) string {
	key := rec.ID.String()
	if key == "" {
		key = rec.Name
	}
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}
