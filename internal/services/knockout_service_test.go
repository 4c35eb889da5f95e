package services

import (
	"fmt"
	"testing"
	"time"

	"compcore/internal/compstate"
	"compcore/internal/models"
	"compcore/internal/scoring"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knockoutFixture builds a compstate with `teamCount` teams spread over a
// league plan, plus ample knockout slots in two arenas.
func knockoutFixture(t testing.TB, teamCount int) *compstate.Compstate {
	cs := &compstate.Compstate{
		TeamsPerArena: 4,
		Arenas: []*models.Arena{
			{ID: "A", DisplayName: "Arena A"},
			{ID: "B", DisplayName: "Arena B"},
		},
		Knockout:    &compstate.KnockoutPlan{Mode: compstate.KnockoutModeSeeded},
		Scoresheets: make(map[compstate.SheetKey]*models.Scoresheet),
	}

	for i := 1; i <= teamCount; i++ {
		cs.Teams = append(cs.Teams, &models.Team{ID: teamID(i), Name: fmt.Sprintf("Team %d", i)})
	}

	// One league row per four teams, single arena, contiguous numbers.
	num := 0
	for i := 0; i < teamCount; i += 4 {
		teams := make([]models.TeamID, 4)
		for j := range teams {
			if i+j < teamCount {
				teams[j] = teamID(i + j + 1)
			} else {
				teams[j] = models.NoTeam
			}
		}
		cs.LeaguePlan = append(cs.LeaguePlan, &models.Match{
			Num:   models.MatchNumber(num),
			Arena: "A",
			Type:  models.MatchTypeLeague,
			Teams: teams,
		})
		num++
	}

	cs.Schedule = &models.ScheduleConfig{
		MatchSlotLength: 300 * time.Second,
		InterMatchGap:   180 * time.Second,
		Periods: []models.MatchPeriod{{
			Description: "Knockouts",
			Type:        models.MatchTypeKnockout,
			Start:       mustTime(t, "2025-04-12T14:00:00+01:00"),
			PlannedEnd:  mustTime(t, "2025-04-12T16:00:00+01:00"),
			MaxEnd:      mustTime(t, "2025-04-12T16:00:00+01:00"),
		}},
	}

	return cs
}

func teamID(i int) models.TeamID {
	return models.TeamID(fmt.Sprintf("T%d", i))
}

// distinctStandings fabricates fully separated standings T1..Tn.
func distinctStandings(n int) ([]models.Standing, map[models.TeamID]*models.TeamStats) {
	var standings []models.Standing
	stats := make(map[models.TeamID]*models.TeamStats, n)
	for i := 1; i <= n; i++ {
		points := decimal.NewFromInt(int64(4 * (n - i + 1)))
		standings = append(standings, models.Standing{
			Position: i,
			Teams:    []models.TeamID{teamID(i)},
			Points:   points,
		})
		stats[teamID(i)] = &models.TeamStats{
			Team:         teamID(i),
			LeaguePoints: points,
			GamePoints:   points,
			Played:       1,
		}
	}
	return standings, stats
}

func buildKnockout(t testing.TB, cs *compstate.Compstate, standings []models.Standing, stats map[models.TeamID]*models.TeamStats, complete bool) (*KnockoutResult, error) {
	t.Helper()
	league := NewLeagueService(scoring.NewGameScorer(), nil)
	svc := NewKnockoutService(league, NewScheduleService(cs.Schedule))
	return svc.Build(KnockoutInput{
		Compstate:       cs,
		Standings:       standings,
		Stats:           stats,
		LeagueComplete:  complete,
		LeagueSlotCount: len(cs.LeaguePlan),
		SheetFor:        cs.Scoresheet,
	})
}

func addSheet(cs *compstate.Compstate, match *models.Match, game map[models.TeamID]float64) {
	sheet := &models.Scoresheet{
		Arena:      match.Arena,
		Num:        match.Num,
		Teams:      append([]models.TeamID(nil), match.Teams...),
		GamePoints: make(map[models.TeamID]decimal.Decimal, len(game)),
	}
	for team, points := range game {
		sheet.GamePoints[team] = decimal.NewFromFloat(points)
	}
	cs.Scoresheets[compstate.SheetKey{Num: match.Num, Arena: match.Arena}] = sheet
}

func TestSeededFirstRoundFoldPairing(t *testing.T) {
	cs := knockoutFixture(t, 8)
	standings, stats := distinctStandings(8)

	result, err := buildKnockout(t, cs, standings, stats, true)
	require.NoError(t, err)

	// Eight teams into two first-round matches of four, then a final.
	require.Len(t, result.Rounds, 2)
	require.Len(t, result.Rounds[0], 2)
	require.Len(t, result.Rounds[1], 1)
	assert.Empty(t, result.Tiebreakers)

	alpha, beta := result.Rounds[0][0], result.Rounds[0][1]
	assert.Equal(t, []models.TeamID{"T1", "T8", "T4", "T5"}, alpha.Teams)
	assert.Equal(t, []models.TeamID{"T2", "T7", "T3", "T6"}, beta.Teams)
	assert.Equal(t, models.ArenaID("A"), alpha.Arena)
	assert.Equal(t, models.ArenaID("B"), beta.Arena)

	// The two matches take the next two available knockout slots.
	assert.True(t, alpha.StartTime.Equal(mustTime(t, "2025-04-12T14:00:00+01:00")))
	assert.True(t, beta.StartTime.Equal(mustTime(t, "2025-04-12T14:08:00+01:00")))

	// Numbering continues from the league.
	assert.Equal(t, models.MatchNumber(2), alpha.Num)
	assert.Equal(t, models.MatchNumber(3), beta.Num)

	// The final exists but its teams are undecided.
	final := result.Rounds[1][0]
	assert.Equal(t, "Final", final.DisplayName)
	assert.Equal(t, []models.TeamID{"", "", "", ""}, final.Teams)
	assert.Nil(t, result.Winner)
}

func TestSeededProgressionAndWinner(t *testing.T) {
	cs := knockoutFixture(t, 8)
	standings, stats := distinctStandings(8)

	// Play the first round: top two of each predecessor advance.
	shape, err := buildKnockout(t, cs, standings, stats, true)
	require.NoError(t, err)
	addSheet(cs, shape.Rounds[0][0], map[models.TeamID]float64{"T1": 10, "T8": 8, "T4": 6, "T5": 4})
	addSheet(cs, shape.Rounds[0][1], map[models.TeamID]float64{"T2": 9, "T7": 7, "T3": 5, "T6": 3})

	result, err := buildKnockout(t, cs, standings, stats, true)
	require.NoError(t, err)

	final := result.Rounds[1][0]
	assert.Equal(t, []models.TeamID{"T1", "T8", "T2", "T7"}, final.Teams)
	assert.Nil(t, result.Winner)

	// Play the final.
	addSheet(cs, final, map[models.TeamID]float64{"T1": 4, "T8": 8, "T2": 6, "T7": 2})
	result, err = buildKnockout(t, cs, standings, stats, true)
	require.NoError(t, err)
	require.NotNil(t, result.Winner)
	assert.Equal(t, models.TeamID("T8"), *result.Winner)

	// Knockout closure: every slot filled from the seeded top eight.
	seeded := make(map[models.TeamID]bool)
	for i := 1; i <= 8; i++ {
		seeded[teamID(i)] = true
	}
	for _, round := range result.Rounds {
		for _, match := range round {
			for _, team := range match.Teams {
				require.NotEqual(t, models.NoTeam, team)
				assert.True(t, seeded[team])
			}
		}
	}
}

func TestSeedingBoundaryTieSpawnsTiebreaker(t *testing.T) {
	cs := knockoutFixture(t, 9)
	standings, stats := distinctStandings(7)

	// Places eight and nine are tied on every criterion.
	tiedPoints := decimal.NewFromInt(1)
	standings = append(standings, models.Standing{
		Position: 8,
		Teams:    []models.TeamID{"T8", "T9"},
		Points:   tiedPoints,
	})
	for _, id := range []models.TeamID{"T8", "T9"} {
		stats[id] = &models.TeamStats{Team: id, LeaguePoints: tiedPoints, GamePoints: tiedPoints, Played: 1}
	}

	// Without a tiebreaker result the seeding stays pending.
	result, err := buildKnockout(t, cs, standings, stats, true)
	require.NoError(t, err)
	require.Len(t, result.Tiebreakers, 1)

	tb := result.Tiebreakers[0]
	assert.Equal(t, models.MatchTypeTiebreaker, tb.Type)
	assert.ElementsMatch(t, []models.TeamID{"T8", "T9", "", ""}, tb.Teams)
	require.Len(t, result.PendingTies, 1)
	assert.ElementsMatch(t, []models.TeamID{"T8", "T9"}, result.PendingTies[0].Teams)
	// League numbers run 0..2, so the tiebreaker is match 3 in the
	// first knockout slot.
	assert.Equal(t, models.MatchNumber(3), tb.Num)
	assert.True(t, tb.StartTime.Equal(mustTime(t, "2025-04-12T14:00:00+01:00")))
	for _, match := range result.Rounds[0] {
		assert.Equal(t, []models.TeamID{"", "", "", ""}, match.Teams, "seeding must wait for the tiebreaker")
	}

	// Its winner takes seed eight.
	addSheet(cs, tb, map[models.TeamID]float64{"T8": 2, "T9": 5})
	result, err = buildKnockout(t, cs, standings, stats, true)
	require.NoError(t, err)
	require.Len(t, result.Tiebreakers, 1)
	assert.Empty(t, result.PendingTies)
	assert.Equal(t, []models.TeamID{"T1", "T9", "T4", "T5"}, result.Rounds[0][0].Teams)
	assert.Equal(t, []models.TeamID{"T2", "T7", "T3", "T6"}, result.Rounds[0][1].Teams)

	// The first round now sits behind the tiebreaker's slot.
	assert.True(t, result.Rounds[0][0].StartTime.Equal(mustTime(t, "2025-04-12T14:08:00+01:00")))
}

func TestProgressionTieSpawnsTiebreaker(t *testing.T) {
	cs := knockoutFixture(t, 8)
	standings, stats := distinctStandings(8)

	shape, err := buildKnockout(t, cs, standings, stats, true)
	require.NoError(t, err)

	// Second and third place tie in the first predecessor: the
	// advancement boundary is undecided.
	addSheet(cs, shape.Rounds[0][0], map[models.TeamID]float64{"T1": 10, "T8": 6, "T4": 6, "T5": 4})
	addSheet(cs, shape.Rounds[0][1], map[models.TeamID]float64{"T2": 9, "T7": 7, "T3": 5, "T6": 3})

	result, err := buildKnockout(t, cs, standings, stats, true)
	require.NoError(t, err)
	require.Len(t, result.Tiebreakers, 1)

	tb := result.Tiebreakers[0]
	assert.ElementsMatch(t, []models.TeamID{"T4", "T8", "", ""}, tb.Teams)

	// The unresolved half of the final stays empty; the other half is
	// already known.
	final := result.Rounds[1][0]
	assert.Equal(t, []models.TeamID{"", "", "T2", "T7"}, final.Teams)

	// Resolve the tiebreaker and progress.
	addSheet(cs, tb, map[models.TeamID]float64{"T4": 9, "T8": 1})
	result, err = buildKnockout(t, cs, standings, stats, true)
	require.NoError(t, err)
	final = result.Rounds[1][0]
	assert.Equal(t, []models.TeamID{"T1", "T4", "T2", "T7"}, final.Teams)
}

func TestSeededBracketBeforeLeagueCompletes(t *testing.T) {
	cs := knockoutFixture(t, 8)

	result, err := buildKnockout(t, cs, nil, nil, false)
	require.NoError(t, err)

	// The bracket shape exists so the timetable is complete, but no
	// team is placed and no tiebreaker is invented.
	require.Len(t, result.Rounds, 2)
	assert.Empty(t, result.Tiebreakers)
	for _, round := range result.Rounds {
		for _, match := range round {
			assert.True(t, match.IsScheduled())
			assert.Equal(t, []models.TeamID{"", "", "", ""}, match.Teams)
		}
	}
}

func TestStaticKnockoutPlan(t *testing.T) {
	cs := knockoutFixture(t, 8)
	winnerOf := func(num int, rank int) compstate.TeamSlotRef {
		n := models.MatchNumber(num)
		return compstate.TeamSlotRef{WinnerOf: &n, Rank: rank}
	}
	cs.Knockout = &compstate.KnockoutPlan{
		Mode: compstate.KnockoutModeStatic,
		Matches: []*compstate.StaticKnockoutMatch{
			{Num: 2, Arena: "A", Round: 0, Teams: []compstate.TeamSlotRef{
				{Seed: 1}, {Seed: 4}, {Seed: 2}, {Seed: 3},
			}},
			{Num: 3, Arena: "B", Round: 1, Teams: []compstate.TeamSlotRef{
				winnerOf(2, 1), winnerOf(2, 2), {Team: "T5"}, {},
			}},
		},
	}
	standings, stats := distinctStandings(8)

	result, err := buildKnockout(t, cs, standings, stats, true)
	require.NoError(t, err)

	require.Len(t, result.Rounds, 2)
	first := result.Rounds[0][0]
	assert.Equal(t, []models.TeamID{"T1", "T4", "T2", "T3"}, first.Teams)

	// Winner-of slots stay open until the source match is scored.
	second := result.Rounds[1][0]
	assert.Equal(t, []models.TeamID{"", "", "T5", ""}, second.Teams)

	addSheet(cs, first, map[models.TeamID]float64{"T1": 2, "T4": 8, "T2": 6, "T3": 4})
	result, err = buildKnockout(t, cs, standings, stats, true)
	require.NoError(t, err)
	assert.Equal(t, []models.TeamID{"T4", "T2", "T5", ""}, result.Rounds[1][0].Teams)
}

func TestStaticKnockoutMissingSeed(t *testing.T) {
	cs := knockoutFixture(t, 4)
	cs.Knockout = &compstate.KnockoutPlan{
		Mode: compstate.KnockoutModeStatic,
		Matches: []*compstate.StaticKnockoutMatch{
			{Num: 1, Arena: "A", Round: 0, Teams: []compstate.TeamSlotRef{
				{Seed: 1}, {Seed: 2}, {Seed: 3}, {Seed: 5},
			}},
		},
	}
	standings, stats := distinctStandings(4)

	_, err := buildKnockout(t, cs, standings, stats, true)
	require.Error(t, err)

	var refErr *models.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "seed", refErr.Kind)
}

func TestDeriveFirstRoundMatches(t *testing.T) {
	tests := []struct {
		teams, capacity, want int
	}{
		{8, 4, 2},
		{9, 4, 2},
		{16, 4, 4},
		{15, 4, 2},
		{4, 4, 1},
		{3, 4, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, deriveFirstRoundMatches(tt.teams, tt.capacity),
			"teams=%d capacity=%d", tt.teams, tt.capacity)
	}
}
