// internal/models/team.go
// Team and arena domain models

package models

// TeamID is the short identifier (TLA) a team is known by throughout a
// competition. The empty string marks an intentionally empty slot (a bye).
type TeamID string

// NoTeam is the empty team slot. It is distinct from a disqualification:
// an empty slot never participated, a disqualified team did.
const NoTeam TeamID = ""

// ArenaID identifies one physical arena.
type ArenaID string

// MatchNumber numbers matches. A match number is shared by every arena
// playing in that slot; (number, arena) is unique.
type MatchNumber int

// Team represents one competing team as declared in teams.yaml
type Team struct {
	ID     TeamID `json:"id" yaml:"-"`
	Name   string `json:"name" yaml:"name"`
	Rookie bool   `json:"rookie,omitempty" yaml:"rookie"`

	// DroppedOutAfter is the last match the team takes part in, if the
	// team withdrew mid-competition. Nil means the team never dropped out.
	DroppedOutAfter *MatchNumber `json:"dropped_out_after,omitempty" yaml:"dropped_out_after"`
}

// IsStillAround reports whether the team participates in the given match.
// A dropped-out team still appears in every match up to and including
// DroppedOutAfter.
func (t *Team) IsStillAround(num MatchNumber) bool {
	return t.DroppedOutAfter == nil || num <= *t.DroppedOutAfter
}

// Arena represents one match arena as declared in arenas.yaml
type Arena struct {
	ID          ArenaID `json:"id" yaml:"-"`
	DisplayName string  `json:"display_name" yaml:"display_name"`
	Colour      *string `json:"colour,omitempty" yaml:"colour"`
}
