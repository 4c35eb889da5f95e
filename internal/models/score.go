// internal/models/score.go
// Scoresheet and league point models

package models

import "github.com/shopspring/decimal"

// Scoresheet is the per-match score report loaded from
// league/<arena>/<num>.yaml or knockout/<arena>/<num>.yaml. Only completed
// matches have one.
type Scoresheet struct {
	Arena ArenaID     `json:"arena"`
	Num   MatchNumber `json:"num"`

	// Teams lists the slots as recorded on the sheet, NoTeam for byes.
	Teams []TeamID `json:"teams"`

	// GamePoints is the raw per-team game score, as produced by the
	// scoring collaborator or materialised in the compstate.
	GamePoints map[TeamID]decimal.Decimal `json:"game_points"`

	Disqualified map[TeamID]bool `json:"disqualified,omitempty"`
	Present      map[TeamID]bool `json:"present,omitempty"`
}

// IsDisqualified reports whether the team was disqualified on this sheet.
func (s *Scoresheet) IsDisqualified(team TeamID) bool {
	return s.Disqualified[team]
}

// IsAbsent reports whether the team failed to turn up. A sheet with no
// presence information counts every listed team as present.
func (s *Scoresheet) IsAbsent(team TeamID) bool {
	if s.Present == nil {
		return false
	}
	return !s.Present[team]
}

// LeaguePoints is the normalised per-team points awarded for one match.
type LeaguePoints map[TeamID]decimal.Decimal
