// Package team enforces the membership invariants of a team: at most five
// members, no duplicates, and no character classified evil at insertion
// time. Verdicts are checked when a member joins, not re-validated
// continuously.
package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/galaxyops/holocron/internal/alignment"
	"github.com/galaxyops/holocron/internal/catalog"
	"github.com/galaxyops/holocron/internal/metrics"
	"github.com/galaxyops/holocron/internal/models"
)

var (
	// ErrCapacityExceeded is returned when the team already has the maximum
	// number of members.
	ErrCapacityExceeded = fmt.Errorf("team is full (%d members max)", models.MaxTeamMembers)

	// ErrEvilCharacterRejected is returned when the candidate classifies as evil.
	ErrEvilCharacterRejected = errors.New("evil characters cannot join a team")

	// ErrDuplicateMember is returned when the character is already a member.
	ErrDuplicateMember = errors.New("character is already a member of the team")

	// ErrMemberNotFound is returned when removing a character that is not a member.
	ErrMemberNotFound = errors.New("character is not a member of the team")
)

// Engine mediates all team membership changes. Membership mutation for one
// team is applied under a per-team lock on top of the store's optimistic
// versioning, so two concurrent adds can never both observe four members
// and overshoot the cap.
type Engine struct {
	store      catalog.Store
	classifier *alignment.Classifier
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a team engine over the given store and classifier.
func NewEngine(store catalog.Store, classifier *alignment.Classifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      store,
		classifier: classifier,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Create makes a new empty team.
func (e *Engine) Create(ctx context.Context, name, ownerID string) (*models.Team, error) {
	now := time.Now().UTC()
	team := models.Team{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		MemberIDs: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateTeam(ctx, team); err != nil {
		return nil, fmt.Errorf("creating team: %w", err)
	}
	e.logger.Info("created team", "team", team.ID, "name", name)
	return &team, nil
}

// Get retrieves a team by ID.
func (e *Engine) Get(ctx context.Context, teamID string) (*models.Team, error) {
	return e.store.GetTeam(ctx, teamID)
}

// List returns all teams.
func (e *Engine) List(ctx context.Context) ([]models.Team, error) {
	return e.store.ListTeams(ctx)
}

// Delete removes a team entirely. There is no tombstone; the member list
// goes with it and character records are untouched.
func (e *Engine) Delete(ctx context.Context, teamID string) error {
	unlock := e.lockTeam(teamID)
	defer unlock()
	return e.store.DeleteTeam(ctx, teamID)
}

// AddMember appends a character to the team. Checks run cheapest first:
// duplicate, then capacity, then the alignment verdict.
func (e *Engine) AddMember(ctx context.Context, teamID, characterID string) (*models.Team, error) {
	unlock := e.lockTeam(teamID)
	defer unlock()

	team, err := e.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	ch, err := e.store.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}

	if team.HasMember(characterID) {
		return nil, fmt.Errorf("%s: %w", ch.Name, ErrDuplicateMember)
	}
	if team.IsFull() {
		return nil, ErrCapacityExceeded
	}
	if e.classifier.Classify(*ch, e.resolver(ctx)) == models.AlignmentEvil {
		metrics.Inc(metrics.EvilRejected)
		e.logger.Info("rejected evil candidate", "team", teamID, "character", characterID, "name", ch.Name)
		return nil, fmt.Errorf("%s: %w", ch.Name, ErrEvilCharacterRejected)
	}

	team.MemberIDs = append(team.MemberIDs, characterID)
	updated, err := e.store.UpdateTeam(ctx, *team)
	if err != nil {
		return nil, fmt.Errorf("adding member to team %s: %w", teamID, err)
	}

	metrics.Inc(metrics.MembersAdded)
	e.logger.Info("added team member", "team", teamID, "character", characterID, "members", len(updated.MemberIDs))
	return updated, nil
}

// RemoveMember drops a character from the team. No alignment check applies
// on removal.
func (e *Engine) RemoveMember(ctx context.Context, teamID, characterID string) (*models.Team, error) {
	unlock := e.lockTeam(teamID)
	defer unlock()

	team, err := e.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, id := range team.MemberIDs {
		if id == characterID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("character %s: %w", characterID, ErrMemberNotFound)
	}

	team.MemberIDs = append(team.MemberIDs[:idx], team.MemberIDs[idx+1:]...)
	updated, err := e.store.UpdateTeam(ctx, *team)
	if err != nil {
		return nil, fmt.Errorf("removing member from team %s: %w", teamID, err)
	}

	metrics.Inc(metrics.MembersRemoved)
	e.logger.Info("removed team member", "team", teamID, "character", characterID, "members", len(updated.MemberIDs))
	return updated, nil
}

// Classify returns the current verdict for a character by ID.
func (e *Engine) Classify(ctx context.Context, characterID string) (models.Alignment, error) {
	ch, err := e.store.GetCharacter(ctx, characterID)
	if err != nil {
		return "", err
	}
	return e.classifier.Classify(*ch, e.resolver(ctx)), nil
}

// Stats summarizes a team's composition. Members whose character record has
// gone missing still count toward MemberCount but not the distributions.
func (e *Engine) Stats(ctx context.Context, teamID string) (*models.TeamStats, error) {
	team, err := e.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	stats := &models.TeamStats{
		MemberCount:           len(team.MemberIDs),
		IsFull:                team.IsFull(),
		SpeciesDistribution:   make(map[string]int),
		HomeworldDistribution: make(map[string]int),
	}
	for _, id := range team.MemberIDs {
		ch, err := e.store.GetCharacter(ctx, id)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				continue
			}
			return nil, err
		}
		stats.SpeciesDistribution[orUnknown(ch.Species)]++
		stats.HomeworldDistribution[orUnknown(ch.Homeworld)]++
	}
	return stats, nil
}

// resolver adapts the store to the classifier's master lookup. A lookup
// failure reads as a dangling reference, never as an error.
func (e *Engine) resolver(ctx context.Context) alignment.Resolver {
	return func(id string) *models.Character {
		ch, err := e.store.GetCharacter(ctx, id)
		if err != nil {
			return nil
		}
		return ch
	}
}

// lockTeam serializes membership changes for one team ID.
func (e *Engine) lockTeam(id string) func() {
	e.mu.Lock()
	lock, ok := e.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[id] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
