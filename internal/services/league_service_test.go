package services

import (
	"testing"

	"compcore/internal/models"
	"compcore/internal/scoring"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leagueMatch(num int, teams ...models.TeamID) *models.Match {
	return &models.Match{
		Num:   models.MatchNumber(num),
		Arena: "main",
		Type:  models.MatchTypeLeague,
		Teams: teams,
	}
}

func sheetFor(match *models.Match, game map[models.TeamID]float64, dq ...models.TeamID) *models.Scoresheet {
	sheet := &models.Scoresheet{
		Arena:      match.Arena,
		Num:        match.Num,
		Teams:      append([]models.TeamID(nil), match.Teams...),
		GamePoints: make(map[models.TeamID]decimal.Decimal, len(game)),
	}
	for team, points := range game {
		sheet.GamePoints[team] = decimal.NewFromFloat(points)
	}
	if len(dq) > 0 {
		sheet.Disqualified = make(map[models.TeamID]bool, len(dq))
		for _, team := range dq {
			sheet.Disqualified[team] = true
		}
	}
	return sheet
}

func assertPoints(t *testing.T, points models.LeaguePoints, want map[models.TeamID]string) {
	t.Helper()
	require.Len(t, points, len(want))
	for team, value := range want {
		require.Contains(t, points, team)
		assert.True(t, points[team].Equal(decimal.RequireFromString(value)),
			"team %s: got %s, want %s", team, points[team], value)
	}
}

func TestPointsForMatch(t *testing.T) {
	svc := NewLeagueService(scoring.NewGameScorer(), nil)

	tests := []struct {
		name string
		game map[models.TeamID]float64
		dq   []models.TeamID
		want map[models.TeamID]string
	}{
		{
			// B and C tie for second and share the average of the
			// second and third place entries: (3+2)/2.
			name: "four team normalisation with shared rank",
			game: map[models.TeamID]float64{"AAA": 10, "BBB": 8, "CCC": 8, "DDD": 2},
			want: map[models.TeamID]string{"AAA": "4", "BBB": "2.5", "CCC": "2.5", "DDD": "1"},
		},
		{
			name: "disqualified team scores zero and frees its rank",
			game: map[models.TeamID]float64{"AAA": 10, "BBB": 8, "CCC": 0, "DDD": 5},
			dq:   []models.TeamID{"DDD"},
			want: map[models.TeamID]string{"AAA": "4", "BBB": "3", "CCC": "2", "DDD": "0"},
		},
		{
			name: "all four tied share the whole schedule",
			game: map[models.TeamID]float64{"AAA": 3, "BBB": 3, "CCC": 3, "DDD": 3},
			want: map[models.TeamID]string{"AAA": "2.5", "BBB": "2.5", "CCC": "2.5", "DDD": "2.5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := leagueMatch(0, "AAA", "BBB", "CCC", "DDD")
			points, err := svc.PointsForMatch(match, sheetFor(match, tt.game, tt.dq...))
			require.NoError(t, err)
			assertPoints(t, points, tt.want)
		})
	}
}

func TestPointsForMatchWithBye(t *testing.T) {
	svc := NewLeagueService(scoring.NewGameScorer(), nil)

	// Three participants: the schedule is keyed by participant count,
	// not arena capacity.
	match := leagueMatch(0, "AAA", models.NoTeam, "BBB", "CCC")
	points, err := svc.PointsForMatch(match, sheetFor(match, map[models.TeamID]float64{
		"AAA": 6, "BBB": 4, "CCC": 2,
	}))
	require.NoError(t, err)
	assertPoints(t, points, map[models.TeamID]string{"AAA": "3", "BBB": "2", "CCC": "1"})
}

func TestPointsForMatchLeaguePointsSum(t *testing.T) {
	svc := NewLeagueService(scoring.NewGameScorer(), nil)

	match := leagueMatch(0, "AAA", "BBB", "CCC", "DDD")
	points, err := svc.PointsForMatch(match, sheetFor(match, map[models.TeamID]float64{
		"AAA": 9, "BBB": 9, "CCC": 1, "DDD": 4,
	}))
	require.NoError(t, err)

	total := decimal.Zero
	for _, share := range points {
		total = total.Add(share)
	}
	// 4+3+2+1 with no disqualifications.
	assert.True(t, total.Equal(decimal.NewFromInt(10)), "got %s", total)
}

func TestStandingsSharedPositions(t *testing.T) {
	svc := NewLeagueService(scoring.NewGameScorer(), nil)
	teams := []*models.Team{
		{ID: "AAA"}, {ID: "BBB"}, {ID: "CCC"}, {ID: "DDD"},
	}

	match := leagueMatch(0, "AAA", "BBB", "CCC", "DDD")
	played := []ScoredMatch{{
		Match: match,
		Sheet: sheetFor(match, map[models.TeamID]float64{"AAA": 10, "BBB": 8, "CCC": 8, "DDD": 2}),
	}}

	standings, stats, err := svc.Standings(teams, played)
	require.NoError(t, err)

	// Positions run 1, 2, 2, 4.
	require.Len(t, standings, 3)
	assert.Equal(t, 1, standings[0].Position)
	assert.Equal(t, []models.TeamID{"AAA"}, standings[0].Teams)
	assert.Equal(t, 2, standings[1].Position)
	assert.Equal(t, []models.TeamID{"BBB", "CCC"}, standings[1].Teams)
	assert.Equal(t, 4, standings[2].Position)
	assert.Equal(t, []models.TeamID{"DDD"}, standings[2].Teams)

	assert.Equal(t, 1, stats["AAA"].Wins)
	assert.Equal(t, 1, stats["DDD"].LastPlaces)
	assert.Equal(t, 0, stats["BBB"].LastPlaces)
}

func TestStandingsAccumulateAcrossMatches(t *testing.T) {
	svc := NewLeagueService(scoring.NewGameScorer(), nil)
	teams := []*models.Team{
		{ID: "AAA"}, {ID: "BBB"}, {ID: "CCC"}, {ID: "DDD"},
	}

	m0 := leagueMatch(0, "AAA", "BBB", "CCC", "DDD")
	m1 := leagueMatch(1, "AAA", "BBB", "CCC", "DDD")
	played := []ScoredMatch{
		{Match: m0, Sheet: sheetFor(m0, map[models.TeamID]float64{"AAA": 4, "BBB": 3, "CCC": 2, "DDD": 1})},
		{Match: m1, Sheet: sheetFor(m1, map[models.TeamID]float64{"BBB": 4, "AAA": 3, "DDD": 2, "CCC": 1})},
	}

	standings, stats, err := svc.Standings(teams, played)
	require.NoError(t, err)

	// A and B both hold 7 points, one win, no last places and 7 game
	// points: indistinguishable, so they share first.
	require.Len(t, standings, 2)
	assert.Equal(t, 1, standings[0].Position)
	assert.Equal(t, []models.TeamID{"AAA", "BBB"}, standings[0].Teams)
	assert.True(t, standings[0].Points.Equal(decimal.NewFromInt(7)))

	assert.Equal(t, 3, standings[1].Position)
	assert.Equal(t, []models.TeamID{"CCC", "DDD"}, standings[1].Teams)

	assert.Equal(t, 2, stats["AAA"].Played)
	assert.True(t, stats["AAA"].GamePoints.Equal(decimal.NewFromInt(7)))
}

func TestStandingsStability(t *testing.T) {
	svc := NewLeagueService(scoring.NewGameScorer(), nil)
	teams := []*models.Team{
		{ID: "AAA"}, {ID: "BBB"}, {ID: "CCC"}, {ID: "DDD"},
	}

	match := leagueMatch(0, "AAA", "BBB", "CCC", "DDD")
	played := []ScoredMatch{{
		Match: match,
		Sheet: sheetFor(match, map[models.TeamID]float64{"AAA": 1, "BBB": 5, "CCC": 9, "DDD": 7}),
	}}

	standings, _, err := svc.Standings(teams, played)
	require.NoError(t, err)

	// Strictly more points means a strictly better position.
	for i := 1; i < len(standings); i++ {
		assert.True(t, standings[i-1].Points.GreaterThan(standings[i].Points))
		assert.Less(t, standings[i-1].Position, standings[i].Position)
	}
}

func TestCompareStatsTieBreakChain(t *testing.T) {
	svc := NewLeagueService(scoring.NewGameScorer(), nil)

	base := func() *models.TeamStats {
		return &models.TeamStats{
			LeaguePoints: decimal.NewFromInt(10),
			GamePoints:   decimal.NewFromInt(40),
			Wins:         2,
			LastPlaces:   1,
		}
	}

	tests := []struct {
		name   string
		mutate func(worse *models.TeamStats)
	}{
		{"fewer league points lose", func(w *models.TeamStats) { w.LeaguePoints = decimal.NewFromInt(9) }},
		{"more last places lose", func(w *models.TeamStats) { w.LastPlaces = 2 }},
		{"fewer wins lose", func(w *models.TeamStats) { w.Wins = 1 }},
		{"fewer game points lose", func(w *models.TeamStats) { w.GamePoints = decimal.NewFromInt(39) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			better, worse := base(), base()
			tt.mutate(worse)
			assert.Positive(t, svc.CompareStats(better, worse))
			assert.Negative(t, svc.CompareStats(worse, better))
		})
	}

	assert.Zero(t, svc.CompareStats(base(), base()), "identical stats stay tied")
}

func TestRankMatchAbsentTeams(t *testing.T) {
	svc := NewLeagueService(scoring.NewGameScorer(), nil)

	match := leagueMatch(0, "AAA", "BBB", "CCC", "DDD")
	sheet := sheetFor(match, map[models.TeamID]float64{"AAA": 10, "BBB": 8, "CCC": 6, "DDD": 4})
	// DDD never turned up.
	sheet.Present = map[models.TeamID]bool{"AAA": true, "BBB": true, "CCC": true}

	ranking, err := svc.RankMatch(match, sheet)
	require.NoError(t, err)
	assert.Equal(t, [][]models.TeamID{{"AAA"}, {"BBB"}, {"CCC"}}, ranking.Groups)
	assert.Equal(t, []models.TeamID{"DDD"}, ranking.Excluded)
}
