package services

import (
	"testing"

	"compcore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoArenaPlan(nums int) []*models.Match {
	var plan []*models.Match
	for num := 0; num < nums; num++ {
		for _, arena := range []models.ArenaID{"A", "B"} {
			plan = append(plan, &models.Match{
				Num:   models.MatchNumber(num),
				Arena: arena,
				Type:  models.MatchTypeLeague,
				Teams: []models.TeamID{"AAA", "BBB", "CCC", "DDD"},
			})
		}
	}
	return plan
}

func TestBindLeagueArenaSynchronised(t *testing.T) {
	cfg := testScheduleConfig(t, nil)
	svc := NewScheduleService(cfg)

	plan := twoArenaPlan(3)
	require.NoError(t, svc.BindLeague(plan))

	byNum := make(map[models.MatchNumber][]*models.Match)
	for _, match := range plan {
		byNum[match.Num] = append(byNum[match.Num], match)
		assert.True(t, match.IsScheduled())
		assert.True(t, match.EndTime.Equal(match.StartTime.Add(cfg.MatchSlotLength)))
	}

	// Every arena playing match k starts at the same instant.
	for num, matches := range byNum {
		for _, match := range matches[1:] {
			assert.True(t, match.StartTime.Equal(matches[0].StartTime),
				"match %d must start simultaneously in all arenas", num)
		}
	}

	// Successive numbers take successive slots.
	assert.True(t, byNum[0][0].StartTime.Equal(mustTime(t, "2025-04-12T10:00:00+01:00")))
	assert.True(t, byNum[1][0].StartTime.Equal(mustTime(t, "2025-04-12T10:08:00+01:00")))
	assert.True(t, byNum[2][0].StartTime.Equal(mustTime(t, "2025-04-12T10:16:00+01:00")))
}

func TestBindLeaguePlanExceedsPeriods(t *testing.T) {
	cfg := testScheduleConfig(t, nil)
	svc := NewScheduleService(cfg)

	// The single morning period holds seven slots; plan eight numbers.
	err := svc.BindLeague(twoArenaPlan(8))
	require.Error(t, err)

	var planErr *models.PlanExceedsPeriodsError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, models.MatchTypeLeague, planErr.Type)
	assert.Equal(t, 8, planErr.Planned)
	assert.Equal(t, 7, planErr.Scheduled)
}

func TestSlotTimesSpanPeriodsOfOneType(t *testing.T) {
	cfg := testScheduleConfig(t, nil)
	cfg.Periods = append(cfg.Periods, models.MatchPeriod{
		Description: "Knockouts",
		Type:        models.MatchTypeKnockout,
		Start:       mustTime(t, "2025-04-12T14:00:00+01:00"),
		PlannedEnd:  mustTime(t, "2025-04-12T14:30:00+01:00"),
		MaxEnd:      mustTime(t, "2025-04-12T14:40:00+01:00"),
	})
	svc := NewScheduleService(cfg)

	league := svc.SlotTimes(models.MatchTypeLeague)
	knockout := svc.SlotTimes(models.MatchTypeKnockout)

	assert.Len(t, league, 7)
	// 14:00..14:40 with a 480s stride and 300s slots: 14:00, 14:08,
	// 14:16, 14:24, 14:32.
	require.Len(t, knockout, 5)
	assert.True(t, knockout[0].Equal(mustTime(t, "2025-04-12T14:00:00+01:00")))
	assert.True(t, knockout[4].Equal(mustTime(t, "2025-04-12T14:32:00+01:00")))

	// Each type draws only on its own periods: every knockout slot comes
	// after the last league slot.
	for _, slot := range knockout {
		assert.True(t, slot.After(league[len(league)-1]))
	}
}
