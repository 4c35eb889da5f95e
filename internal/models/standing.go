// internal/models/standing.go
// League standing models

package models

import "github.com/shopspring/decimal"

// Standing is one rank group of the league table. Tied teams share a
// position; the group after a tie skips by the tie width ("1, 2, 2, 4").
type Standing struct {
	Position int             `json:"position"`
	Teams    []TeamID        `json:"teams"`
	Points   decimal.Decimal `json:"points"`
}

// TeamStats accumulates everything the tie-break chain may consult for
// one team across its completed league matches.
type TeamStats struct {
	Team TeamID `json:"team"`

	LeaguePoints decimal.Decimal `json:"league_points"`
	GamePoints   decimal.Decimal `json:"game_points"`

	// Wins counts matches the team finished first in outright.
	Wins int `json:"wins"`

	// LastPlaces counts matches the team finished in the last-place
	// group of, shared or not.
	LastPlaces int `json:"last_places"`

	Played int `json:"played"`
}
