package scoring

import (
	"testing"

	"compcore/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSheet() *models.Scoresheet {
	return &models.Scoresheet{
		Arena: "main",
		Num:   3,
		Teams: []models.TeamID{"AAA", "BBB", models.NoTeam, "CCC"},
		GamePoints: map[models.TeamID]decimal.Decimal{
			"AAA": decimal.NewFromInt(10),
			"BBB": decimal.NewFromInt(4),
		},
		Disqualified: map[models.TeamID]bool{"BBB": true},
	}
}

func TestGameScorerCalculateScores(t *testing.T) {
	scorer := NewGameScorer()

	scores, err := scorer.CalculateScores(testSheet())
	require.NoError(t, err)

	require.Len(t, scores, 3)
	assert.True(t, scores["AAA"].Equal(decimal.NewFromInt(10)))
	assert.True(t, scores["BBB"].Equal(decimal.NewFromInt(4)))
	// Teams on the sheet without a recorded score default to zero.
	assert.True(t, scores["CCC"].Equal(decimal.Zero))
}

func TestGameScorerTeamsDisqualified(t *testing.T) {
	scorer := NewGameScorer()

	teams, err := scorer.TeamsDisqualified(testSheet())
	require.NoError(t, err)
	assert.Equal(t, []models.TeamID{"BBB"}, teams)
}

func TestValidateScores(t *testing.T) {
	sheet := testSheet()

	valid := map[models.TeamID]decimal.Decimal{
		"AAA": decimal.NewFromInt(1),
		"BBB": decimal.NewFromInt(2),
		"CCC": decimal.NewFromInt(3),
	}
	require.NoError(t, ValidateScores(sheet, valid))

	t.Run("unknown team rejected", func(t *testing.T) {
		scores := map[models.TeamID]decimal.Decimal{
			"AAA": decimal.NewFromInt(1),
			"BBB": decimal.NewFromInt(2),
			"CCC": decimal.NewFromInt(3),
			"ZZZ": decimal.NewFromInt(4),
		}
		err := ValidateScores(sheet, scores)
		require.Error(t, err)
		var scorerErr *models.ScorerError
		require.ErrorAs(t, err, &scorerErr)
		assert.Equal(t, models.TeamID("ZZZ"), scorerErr.Team)
	})

	t.Run("missing team rejected", func(t *testing.T) {
		scores := map[models.TeamID]decimal.Decimal{
			"AAA": decimal.NewFromInt(1),
		}
		err := ValidateScores(sheet, scores)
		require.Error(t, err)
		var scorerErr *models.ScorerError
		require.ErrorAs(t, err, &scorerErr)
	})
}
