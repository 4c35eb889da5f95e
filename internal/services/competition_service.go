// internal/services/competition_service.go
// Competition facade: composes the deserialiser, schedule binder, league
// scorer and knockout scheduler into one evaluated, immutable view of the
// competition. Every query is a pure function of the loaded state and an
// explicit `now`.

package services

import (
	"sort"
	"time"

	"compcore/internal/compstate"
	"compcore/internal/models"
	"compcore/internal/scoring"
)

// CompetitionService evaluates compstate directories.
type CompetitionService struct {
	scorer      scoring.Scorer
	tieBreakers []TieBreaker
}

// NewCompetitionService creates the facade. A nil tie-break chain selects
// the default one.
func NewCompetitionService(scorer scoring.Scorer, tieBreakers []TieBreaker) *CompetitionService {
	return &CompetitionService{scorer: scorer, tieBreakers: tieBreakers}
}

// Competition is one fully evaluated competition. It is immutable:
// re-evaluating the same compstate yields an identical value.
type Competition struct {
	Compstate *compstate.Compstate

	Teams  []*models.Team
	Arenas []*models.Arena

	// Matches is the full timetable in slot order: league first, then
	// knockout and tiebreakers.
	Matches        []*models.Match
	LeagueMatches  []*models.Match
	KnockoutRounds [][]*models.Match
	Tiebreakers    []*models.Match

	Standings []models.Standing
	Stats     map[models.TeamID]*models.TeamStats

	// PendingTies are orderings waiting on a scheduled tiebreaker match.
	PendingTies []*models.TieUnresolvedError

	LeagueComplete bool
	LeagueWinner   *models.TeamID
	KnockoutWinner *models.TeamID

	Awards []models.Award
}

// Load reads a compstate directory and evaluates it from scratch.
func (s *CompetitionService) Load(dir string) (*Competition, error) {
	cs, err := compstate.Load(dir)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(cs)
}

// Evaluate builds the competition model from already-parsed records.
func (s *CompetitionService) Evaluate(cs *compstate.Compstate) (*Competition, error) {
	comp := &Competition{
		Compstate: cs,
		Teams:     cs.Teams,
		Arenas:    cs.Arenas,
		Awards:    cs.Awards,
	}

	// League matches are working copies: the compstate records stay
	// pristine so a reload reproduces the same evaluation.
	comp.LeagueMatches = make([]*models.Match, len(cs.LeaguePlan))
	for i, planned := range cs.LeaguePlan {
		match := *planned
		match.Teams = append([]models.TeamID(nil), planned.Teams...)
		comp.LeagueMatches[i] = &match
	}
	s.blankDroppedTeams(cs, comp.LeagueMatches)

	scheduleSvc := NewScheduleService(cs.Schedule)
	if err := scheduleSvc.BindLeague(comp.LeagueMatches); err != nil {
		return nil, err
	}

	leagueSvc := NewLeagueService(s.scorer, s.tieBreakers)

	// A league match counts as played once its scoresheet exists.
	var played []ScoredMatch
	comp.LeagueComplete = true
	for _, match := range comp.LeagueMatches {
		sheet, ok := cs.Scoresheet(match.Num, match.Arena)
		if !ok {
			comp.LeagueComplete = false
			continue
		}
		played = append(played, ScoredMatch{Match: match, Sheet: sheet})
	}

	standings, stats, err := leagueSvc.Standings(cs.Teams, played)
	if err != nil {
		return nil, err
	}
	comp.Standings = standings
	comp.Stats = stats

	knockoutSvc := NewKnockoutService(leagueSvc, scheduleSvc)
	knockout, err := knockoutSvc.Build(KnockoutInput{
		Compstate:       cs,
		Standings:       standings,
		Stats:           stats,
		LeagueComplete:  comp.LeagueComplete,
		LeagueSlotCount: leagueSlotCount(comp.LeagueMatches),
		SheetFor:        cs.Scoresheet,
	})
	if err != nil {
		return nil, err
	}
	comp.KnockoutRounds = knockout.Rounds
	comp.Tiebreakers = knockout.Tiebreakers
	comp.PendingTies = knockout.PendingTies
	comp.KnockoutWinner = knockout.Winner
	s.blankDroppedTeams(cs, knockout.Matches)

	comp.Matches = make([]*models.Match, 0, len(comp.LeagueMatches)+len(knockout.Matches))
	comp.Matches = append(comp.Matches, comp.LeagueMatches...)
	comp.Matches = append(comp.Matches, knockout.Matches...)

	// The league champion is the unique team at position one.
	if comp.LeagueComplete && len(standings) > 0 && len(standings[0].Teams) == 1 {
		winner := standings[0].Teams[0]
		comp.LeagueWinner = &winner
	}

	return comp, nil
}

// blankDroppedTeams converts a dropped team's slots to byes in every
// match after its final appearance.
func (s *CompetitionService) blankDroppedTeams(cs *compstate.Compstate, matches []*models.Match) {
	for _, match := range matches {
		for i, id := range match.Teams {
			if id == models.NoTeam {
				continue
			}
			team, ok := cs.Team(id)
			if ok && !team.IsStillAround(match.Num) {
				match.Teams[i] = models.NoTeam
			}
		}
	}
}

// leagueSlotCount counts distinct league match numbers.
func leagueSlotCount(matches []*models.Match) int {
	if len(matches) == 0 {
		return 0
	}
	return int(matches[len(matches)-1].Num) + 1
}

// ---------------------------------------------------------------------------
// Queries

// CompetitionState answers "what is happening now?" in one value.
type CompetitionState struct {
	Time time.Time `json:"time"`

	CurrentMatches  []*models.Match `json:"current_matches"`
	UpcomingMatches []*models.Match `json:"upcoming_matches"`

	// DelayedBy is the cumulative delay in effect at the instant.
	DelayedBy time.Duration `json:"delayed_by"`

	Standings      []models.Standing           `json:"standings"`
	KnockoutRounds [][]*models.Match           `json:"knockout_rounds"`
	MissingScores  []*models.MissingScoreError `json:"missing_scores,omitempty"`
}

// StateAt evaluates the consistent view at an instant. The instant is an
// input, never read from a clock.
func (c *Competition) StateAt(now time.Time) *CompetitionState {
	state := &CompetitionState{
		Time:           now,
		Standings:      c.Standings,
		KnockoutRounds: c.KnockoutRounds,
		DelayedBy:      c.Compstate.Schedule.TotalDelayBefore(now),
	}

	for _, match := range c.Matches {
		switch {
		case match.InProgressAt(now):
			state.CurrentMatches = append(state.CurrentMatches, match)
		case match.IsScheduled() && match.StartTime.After(now):
			state.UpcomingMatches = append(state.UpcomingMatches, match)
		}
	}
	// Periods of different types may interleave; present both lists in
	// wall-clock order.
	sortByStart(state.CurrentMatches)
	sortByStart(state.UpcomingMatches)
	state.MissingScores = c.missingScores(now)

	return state
}

func sortByStart(matches []*models.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].StartTime.Equal(matches[j].StartTime) {
			return matches[i].StartTime.Before(matches[j].StartTime)
		}
		return matches[i].Arena < matches[j].Arena
	})
}

// MatchesAt returns the matches in progress at an instant.
func (c *Competition) MatchesAt(now time.Time) []*models.Match {
	var out []*models.Match
	for _, match := range c.Matches {
		if match.InProgressAt(now) {
			out = append(out, match)
		}
	}
	return out
}

// NextMatchSlot returns the earliest slot starting strictly after the
// instant, with every match sharing that start time.
func (c *Competition) NextMatchSlot(now time.Time) *models.MatchSlot {
	var slot *models.MatchSlot
	for _, match := range c.Matches {
		if !match.IsScheduled() || !match.StartTime.After(now) {
			continue
		}
		switch {
		case slot == nil || match.StartTime.Before(slot.StartTime):
			slot = &models.MatchSlot{StartTime: match.StartTime, Matches: []*models.Match{match}}
		case match.StartTime.Equal(slot.StartTime):
			slot.Matches = append(slot.Matches, match)
		}
	}
	return slot
}

// Schedule returns the full timetable in slot order.
func (c *Competition) Schedule() []*models.Match {
	return c.Matches
}

// MatchesByNumber returns every arena's match for one number.
func (c *Competition) MatchesByNumber(num models.MatchNumber) []*models.Match {
	var out []*models.Match
	for _, match := range c.Matches {
		if match.Num == num {
			out = append(out, match)
		}
	}
	return out
}

// PositionOf returns a team's league position, or zero for unknown teams.
func (c *Competition) PositionOf(team models.TeamID) int {
	for _, standing := range c.Standings {
		for _, t := range standing.Teams {
			if t == team {
				return standing.Position
			}
		}
	}
	return 0
}

// FinalMatch returns the knockout final, once the bracket exists.
func (c *Competition) FinalMatch() *models.Match {
	if n := len(c.KnockoutRounds); n > 0 && len(c.KnockoutRounds[n-1]) == 1 {
		return c.KnockoutRounds[n-1][0]
	}
	return nil
}

// missingScores lists matches whose scheduled end has passed with no
// scoresheet: degraded rather than fatal, but always surfaced.
func (c *Competition) missingScores(now time.Time) []*models.MissingScoreError {
	var out []*models.MissingScoreError
	for _, match := range c.Matches {
		if !match.IsScheduled() || match.EndTime.After(now) {
			continue
		}
		if _, ok := c.Compstate.Scoresheet(match.Num, match.Arena); !ok {
			out = append(out, &models.MissingScoreError{Num: match.Num, Arena: match.Arena})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Num != out[j].Num {
			return out[i].Num < out[j].Num
		}
		return out[i].Arena < out[j].Arena
	})
	return out
}
