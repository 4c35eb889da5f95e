// internal/services/league_service.go
// League scorer: normalises raw game scores into league points and
// accumulates tie-aware standings.

package services

import (
	"fmt"
	"sort"

	"compcore/internal/models"
	"compcore/internal/scoring"

	"github.com/shopspring/decimal"
)

// TieBreaker is one link of the standings tie-break chain. Compare
// returns a positive value when a ranks ahead of b, negative when behind,
// zero when the criterion cannot separate them.
type TieBreaker struct {
	Name    string
	Compare func(a, b *models.TeamStats) int
}

// DefaultTieBreakers is the canonical chain applied after league points:
// fewer last places, more outright wins, higher raw game point sum.
// Competitions may supply their own chain.
func DefaultTieBreakers() []TieBreaker {
	return []TieBreaker{
		{
			Name: "last_places",
			Compare: func(a, b *models.TeamStats) int {
				return b.LastPlaces - a.LastPlaces
			},
		},
		{
			Name: "wins",
			Compare: func(a, b *models.TeamStats) int {
				return a.Wins - b.Wins
			},
		},
		{
			Name: "game_points",
			Compare: func(a, b *models.TeamStats) int {
				return a.GamePoints.Cmp(b.GamePoints)
			},
		},
	}
}

// LeagueService owns score normalisation and standings accumulation.
type LeagueService struct {
	scorer      scoring.Scorer
	tieBreakers []TieBreaker
}

// NewLeagueService creates a league scorer. A nil tie-break chain selects
// the default one.
func NewLeagueService(scorer scoring.Scorer, tieBreakers []TieBreaker) *LeagueService {
	if tieBreakers == nil {
		tieBreakers = DefaultTieBreakers()
	}
	return &LeagueService{scorer: scorer, tieBreakers: tieBreakers}
}

// MatchRanking is the ranked outcome of one scored match: rank groups
// best-first, with disqualified and absent teams excluded into a shared
// worst group.
type MatchRanking struct {
	Groups   [][]models.TeamID
	Excluded []models.TeamID
}

// matchEvaluation carries everything one scorer pass yields for a match.
type matchEvaluation struct {
	scores  map[models.TeamID]decimal.Decimal
	ranking *MatchRanking
}

// RankMatch ranks a match's participants by game points descending.
// Disqualified and absent teams share the worst group regardless of score.
func (s *LeagueService) RankMatch(match *models.Match, sheet *models.Scoresheet) (*MatchRanking, error) {
	eval, err := s.evaluate(match, sheet)
	if err != nil {
		return nil, err
	}
	return eval.ranking, nil
}

// evaluate runs the scoring collaborator once and ranks the outcome.
func (s *LeagueService) evaluate(match *models.Match, sheet *models.Scoresheet) (*matchEvaluation, error) {
	scores, err := s.scorer.CalculateScores(sheet)
	if err != nil {
		return nil, err
	}
	if err := scoring.ValidateScores(sheet, scores); err != nil {
		return nil, err
	}
	disqualified, err := s.scorer.TeamsDisqualified(sheet)
	if err != nil {
		return nil, err
	}
	dq := make(map[models.TeamID]bool, len(disqualified))
	for _, team := range disqualified {
		dq[team] = true
	}

	// The sheet must agree with the match about who played.
	if err := checkSheetTeams(match, sheet); err != nil {
		return nil, err
	}

	ranking := &MatchRanking{}
	var eligible []models.TeamID
	for _, team := range match.ParticipatingTeams() {
		if dq[team] || sheet.IsAbsent(team) {
			ranking.Excluded = append(ranking.Excluded, team)
			continue
		}
		eligible = append(eligible, team)
	}
	sort.Slice(ranking.Excluded, func(i, j int) bool { return ranking.Excluded[i] < ranking.Excluded[j] })

	sort.Slice(eligible, func(i, j int) bool {
		cmp := scores[eligible[i]].Cmp(scores[eligible[j]])
		if cmp != 0 {
			return cmp > 0
		}
		return eligible[i] < eligible[j]
	})

	for _, team := range eligible {
		if n := len(ranking.Groups); n > 0 {
			last := ranking.Groups[n-1]
			if scores[last[0]].Equal(scores[team]) {
				ranking.Groups[n-1] = append(last, team)
				continue
			}
		}
		ranking.Groups = append(ranking.Groups, []models.TeamID{team})
	}

	return &matchEvaluation{scores: scores, ranking: ranking}, nil
}

// PointsForMatch normalises a match's raw scores into league points.
// Points come from a fixed schedule keyed by participant count; tied
// teams share the average of the entries they span; disqualified and
// absent teams always receive zero.
func (s *LeagueService) PointsForMatch(match *models.Match, sheet *models.Scoresheet) (models.LeaguePoints, error) {
	eval, err := s.evaluate(match, sheet)
	if err != nil {
		return nil, err
	}
	return s.pointsFromRanking(match, eval.ranking), nil
}

func (s *LeagueService) pointsFromRanking(match *models.Match, ranking *MatchRanking) models.LeaguePoints {
	participants := len(match.ParticipatingTeams())
	points := make(models.LeaguePoints, participants)

	// Schedule entry for rank i (0-based) among n participants is n-i.
	rank := 0
	for _, group := range ranking.Groups {
		span := decimal.Zero
		for i := 0; i < len(group); i++ {
			span = span.Add(decimal.NewFromInt(int64(participants - rank - i)))
		}
		share := span.Div(decimal.NewFromInt(int64(len(group))))
		for _, team := range group {
			points[team] = share
		}
		rank += len(group)
	}
	for _, team := range ranking.Excluded {
		points[team] = decimal.Zero
	}

	return points
}

// ScoredMatch pairs a completed match with its scoresheet.
type ScoredMatch struct {
	Match *models.Match
	Sheet *models.Scoresheet
}

// Standings accumulates league standings over the completed league
// matches. Every declared team appears, including those yet to score.
func (s *LeagueService) Standings(teams []*models.Team, played []ScoredMatch) ([]models.Standing, map[models.TeamID]*models.TeamStats, error) {
	stats := make(map[models.TeamID]*models.TeamStats, len(teams))
	for _, team := range teams {
		stats[team.ID] = &models.TeamStats{
			Team:         team.ID,
			LeaguePoints: decimal.Zero,
			GamePoints:   decimal.Zero,
		}
	}

	for _, sm := range played {
		eval, err := s.evaluate(sm.Match, sm.Sheet)
		if err != nil {
			return nil, nil, err
		}
		points := s.pointsFromRanking(sm.Match, eval.ranking)
		ranking, scores := eval.ranking, eval.scores

		for team, share := range points {
			st, ok := stats[team]
			if !ok {
				return nil, nil, &models.ReferenceError{Kind: "team", Ref: string(team)}
			}
			st.LeaguePoints = st.LeaguePoints.Add(share)
			st.GamePoints = st.GamePoints.Add(scores[team])
			st.Played++
		}

		// Outright win: a top group of one.
		if len(ranking.Groups) > 0 && len(ranking.Groups[0]) == 1 {
			stats[ranking.Groups[0][0]].Wins++
		}
		for _, team := range lastPlaceGroup(ranking) {
			stats[team].LastPlaces++
		}
	}

	ordered := make([]*models.TeamStats, 0, len(stats))
	for _, st := range stats {
		ordered = append(ordered, st)
	}
	sort.Slice(ordered, func(i, j int) bool {
		cmp := s.CompareStats(ordered[i], ordered[j])
		if cmp != 0 {
			return cmp > 0
		}
		// Presentation-only fallback; never used for seeding.
		return ordered[i].Team < ordered[j].Team
	})

	var standings []models.Standing
	position := 1
	for _, st := range ordered {
		if n := len(standings); n > 0 {
			prev := standings[n-1]
			if s.CompareStats(stats[prev.Teams[0]], st) == 0 {
				standings[n-1].Teams = append(prev.Teams, st.Team)
				position++
				continue
			}
		}
		standings = append(standings, models.Standing{
			Position: position,
			Teams:    []models.TeamID{st.Team},
			Points:   st.LeaguePoints,
		})
		position++
	}

	return standings, stats, nil
}

// CompareStats applies league points then the tie-break chain. Zero means
// the chain cannot separate the teams; callers needing a strict order
// must arrange a tiebreaker match.
func (s *LeagueService) CompareStats(a, b *models.TeamStats) int {
	if cmp := a.LeaguePoints.Cmp(b.LeaguePoints); cmp != 0 {
		return cmp
	}
	for _, tb := range s.tieBreakers {
		if cmp := tb.Compare(a, b); cmp != 0 {
			return cmp
		}
	}
	return 0
}

// lastPlaceGroup picks the teams finishing last: the excluded group when
// present, otherwise the lowest-scoring rank group.
func lastPlaceGroup(ranking *MatchRanking) []models.TeamID {
	if len(ranking.Excluded) > 0 {
		return ranking.Excluded
	}
	if n := len(ranking.Groups); n > 0 {
		return ranking.Groups[n-1]
	}
	return nil
}

// checkSheetTeams verifies the sheet covers exactly the match's teams.
func checkSheetTeams(match *models.Match, sheet *models.Scoresheet) error {
	onSheet := make(map[models.TeamID]bool)
	for _, team := range sheet.Teams {
		if team != models.NoTeam {
			onSheet[team] = true
		}
	}
	participating := match.ParticipatingTeams()
	if len(onSheet) != len(participating) {
		return fmt.Errorf("scoresheet for match %d lists %d teams, match has %d",
			match.Num, len(onSheet), len(participating))
	}
	for _, team := range participating {
		if !onSheet[team] {
			return fmt.Errorf("scoresheet for match %d is missing team %s", match.Num, team)
		}
	}
	return nil
}
