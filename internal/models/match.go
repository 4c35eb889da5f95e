// internal/models/match.go
// Match domain model shared by the schedule, league and knockout engines

package models

import "time"

// MatchType classifies a match by the period kind it is scheduled in
type MatchType string

const (
	MatchTypeLeague     MatchType = "league"
	MatchTypeKnockout   MatchType = "knockout"
	MatchTypeTiebreaker MatchType = "tiebreaker"
)

// Match represents one game in one arena. League matches come from the
// match plan; knockout and tiebreaker matches are constructed by the
// knockout scheduler. Once the competition is evaluated a Match is frozen.
type Match struct {
	Num         MatchNumber `json:"num"`
	Arena       ArenaID     `json:"arena"`
	Type        MatchType   `json:"type"`
	DisplayName string      `json:"display_name"`

	// Teams is the ordered team slots, always arena-capacity long.
	// NoTeam entries are byes.
	Teams []TeamID `json:"teams"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// UseResolvedRanking is set on knockout matches whose outcome must be
	// a strict ordering before progression; an internal tie spawns a
	// tiebreaker match instead of sharing a rank.
	UseResolvedRanking bool `json:"use_resolved_ranking,omitempty"`
}

// ParticipatingTeams returns the non-empty team slots in slot order.
func (m *Match) ParticipatingTeams() []TeamID {
	teams := make([]TeamID, 0, len(m.Teams))
	for _, t := range m.Teams {
		if t != NoTeam {
			teams = append(teams, t)
		}
	}
	return teams
}

// HasTeam reports whether the team occupies one of the match's slots.
func (m *Match) HasTeam(team TeamID) bool {
	for _, t := range m.Teams {
		if t == team {
			return true
		}
	}
	return false
}

// IsScheduled reports whether the schedule binder stamped a start time.
func (m *Match) IsScheduled() bool {
	return !m.StartTime.IsZero()
}

// InProgressAt reports whether the match is being played at the instant.
func (m *Match) InProgressAt(now time.Time) bool {
	return m.IsScheduled() && !now.Before(m.StartTime) && now.Before(m.EndTime)
}

// MatchSlot is the set of matches sharing one start time across arenas.
type MatchSlot struct {
	StartTime time.Time `json:"start_time"`
	Matches   []*Match  `json:"matches"`
}
