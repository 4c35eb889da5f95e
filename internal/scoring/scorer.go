// internal/scoring/scorer.go
// Scoring collaborator contract. The per-game scoring logic lives outside
// the core (the compstate ships it as scoring/score.py); the core only
// ever talks to a Scorer.

package scoring

import (
	"fmt"
	"sort"

	"compcore/internal/models"

	"github.com/shopspring/decimal"
)

// Scorer turns a raw scoresheet into per-team game points. Both methods
// are pure: same sheet in, same result out.
type Scorer interface {
	// CalculateScores returns the game points per participating team.
	CalculateScores(sheet *models.Scoresheet) (map[models.TeamID]decimal.Decimal, error)

	// TeamsDisqualified returns the teams disqualified on the sheet.
	TeamsDisqualified(sheet *models.Scoresheet) ([]models.TeamID, error)
}

// GameScorer reads game points straight off the scoresheet. This is the
// default: compstates materialise the computed game scores under
// scores.game when the sheet is entered.
type GameScorer struct{}

// NewGameScorer creates the pass-through scorer.
func NewGameScorer() *GameScorer {
	return &GameScorer{}
}

// CalculateScores returns a copy of the sheet's game score map. Teams on
// the sheet with no recorded score default to zero.
func (s *GameScorer) CalculateScores(sheet *models.Scoresheet) (map[models.TeamID]decimal.Decimal, error) {
	scores := make(map[models.TeamID]decimal.Decimal, len(sheet.Teams))
	for _, team := range sheet.Teams {
		if team == models.NoTeam {
			continue
		}
		if points, ok := sheet.GamePoints[team]; ok {
			scores[team] = points
		} else {
			scores[team] = decimal.Zero
		}
	}
	return scores, nil
}

// TeamsDisqualified returns the sheet's disqualification list sorted by ID.
func (s *GameScorer) TeamsDisqualified(sheet *models.Scoresheet) ([]models.TeamID, error) {
	teams := make([]models.TeamID, 0, len(sheet.Disqualified))
	for team := range sheet.Disqualified {
		teams = append(teams, team)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i] < teams[j] })
	return teams, nil
}

// ValidateScores checks a scorer result against the sheet it was computed
// from: every scored team must be on the sheet and no sheet team may be
// missing. Violations surface as ScorerError.
func ValidateScores(sheet *models.Scoresheet, scores map[models.TeamID]decimal.Decimal) error {
	onSheet := make(map[models.TeamID]bool, len(sheet.Teams))
	for _, team := range sheet.Teams {
		if team != models.NoTeam {
			onSheet[team] = true
		}
	}

	for team := range scores {
		if !onSheet[team] {
			return &models.ScorerError{
				Team:   team,
				Reason: fmt.Sprintf("scored but not on the sheet for match %d", sheet.Num),
			}
		}
	}
	for team := range onSheet {
		if _, ok := scores[team]; !ok {
			return &models.ScorerError{
				Team:   team,
				Reason: fmt.Sprintf("on the sheet for match %d but not scored", sheet.Num),
			}
		}
	}
	return nil
}
