package models

import "time"

// MaxTeamMembers is the hard cap on team size.
const MaxTeamMembers = 5

// Team is a user-curated roster of characters. Member IDs are ordered by
// insertion and reference shared Character records; the team owns only the
// membership list. Version is the optimistic concurrency token bumped on
// every successful update.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id,omitempty"`
	MemberIDs []string  `json:"member_ids"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasMember reports whether the character is already on the team.
func (t Team) HasMember(characterID string) bool {
	for _, id := range t.MemberIDs {
		if id == characterID {
			return true
		}
	}
	return false
}

// IsFull reports whether the team is at capacity.
func (t Team) IsFull() bool {
	return len(t.MemberIDs) >= MaxTeamMembers
}

// TeamStats summarizes a team's composition.
type TeamStats struct {
	MemberCount           int            `json:"member_count"`
	IsFull                bool           `json:"is_full"`
	SpeciesDistribution   map[string]int `json:"species_distribution"`
	HomeworldDistribution map[string]int `json:"homeworld_distribution"`
}
