// Package alignment derives a good/evil verdict for a character from its
// name, affiliations, and master chain. Classification is a pure function:
// given the same character and resolver it always returns the same verdict.
package alignment

import (
	"log/slog"
	"strings"

	"github.com/galaxyops/holocron/internal/models"
)

// evilNamePatterns match character names that mark a character evil outright.
var evilNamePatterns = []string{"darth", "sith"}

// DefaultEvilAffiliations is the built-in list of known-evil affiliations,
// matched case-insensitively as substrings.
var DefaultEvilAffiliations = []string{
	"Sith",
	"Galactic Empire",
	"First Order",
}

// Resolver looks up a character by ID during master-chain traversal.
// Returning nil means the reference is dangling and is treated as no master.
type Resolver func(id string) *models.Character

// Classifier evaluates the evil heuristics in precedence order:
// name patterns, then affiliations, then the master chain.
type Classifier struct {
	evilAffiliations []string
	logger           *slog.Logger
}

// NewClassifier creates a classifier with the given evil-affiliation list.
// An empty list falls back to DefaultEvilAffiliations.
func NewClassifier(evilAffiliations []string, logger *slog.Logger) *Classifier {
	if len(evilAffiliations) == 0 {
		evilAffiliations = DefaultEvilAffiliations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{evilAffiliations: evilAffiliations, logger: logger}
}

// Classify returns the verdict for a character. First matching rule wins:
//
//  1. Name contains "darth" or "sith" (any case) — evil.
//  2. Any affiliation matches the evil-affiliation list — evil.
//  3. Any resolvable master chain reaches an evil character — evil.
//  4. Otherwise — good.
//
// The chain walk is an iterative worklist with a visited set, so a master
// loop terminates and resolves to a non-evil verdict for that branch rather
// than surfacing an error.
func (c *Classifier) Classify(ch models.Character, resolve Resolver) models.Alignment {
	if c.isEvilRecord(ch) {
		return models.AlignmentEvil
	}
	if resolve == nil {
		return models.AlignmentGood
	}

	visited := map[string]bool{ch.ID: true}
	queue := append([]string(nil), ch.MasterIDs...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			c.logger.Debug("master chain cycle detected", "character", ch.ID, "at", id)
			continue
		}
		visited[id] = true

		master := resolve(id)
		if master == nil {
			// Dangling reference: treated as no master.
			continue
		}
		if c.isEvilRecord(*master) {
			return models.AlignmentEvil
		}
		queue = append(queue, master.MasterIDs...)
	}
	return models.AlignmentGood
}

// isEvilRecord applies the name and affiliation rules to a single record.
func (c *Classifier) isEvilRecord(ch models.Character) bool {
	name := strings.ToLower(ch.Name)
	for _, p := range evilNamePatterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	for _, affiliation := range ch.Affiliations {
		lower := strings.ToLower(affiliation)
		for _, evil := range c.evilAffiliations {
			if strings.Contains(lower, strings.ToLower(evil)) {
				return true
			}
		}
	}
	return false
}
