package services

import (
	"testing"
	"time"

	"compcore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t testing.TB, value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func testScheduleConfig(t testing.TB, delays []models.Delay) *models.ScheduleConfig {
	return &models.ScheduleConfig{
		MatchSlotLength: 300 * time.Second,
		InterMatchGap:   180 * time.Second,
		Periods: []models.MatchPeriod{
			{
				Description: "League, morning",
				Type:        models.MatchTypeLeague,
				Start:       mustTime(t, "2025-04-12T10:00:00+01:00"),
				PlannedEnd:  mustTime(t, "2025-04-12T11:00:00+01:00"),
				MaxEnd:      mustTime(t, "2025-04-12T11:00:00+01:00"),
			},
		},
		Delays: delays,
	}
}

func TestMatchPeriodClockSlots(t *testing.T) {
	tests := []struct {
		name   string
		delays []models.Delay
		want   []string
	}{
		{
			name: "no delays",
			want: []string{
				"2025-04-12T10:00:00+01:00",
				"2025-04-12T10:08:00+01:00",
				"2025-04-12T10:16:00+01:00",
				"2025-04-12T10:24:00+01:00",
				"2025-04-12T10:32:00+01:00",
				"2025-04-12T10:40:00+01:00",
				"2025-04-12T10:48:00+01:00",
			},
		},
		{
			// The delay fires after the first slot started, so that slot
			// is frozen and every later one shifts by two minutes.
			name: "delay after first slot",
			delays: []models.Delay{
				{Time: mustTime(t, "2025-04-12T10:05:00+01:00"), Duration: 120 * time.Second},
			},
			want: []string{
				"2025-04-12T10:00:00+01:00",
				"2025-04-12T10:10:00+01:00",
				"2025-04-12T10:18:00+01:00",
				"2025-04-12T10:26:00+01:00",
				"2025-04-12T10:34:00+01:00",
				"2025-04-12T10:42:00+01:00",
				"2025-04-12T10:50:00+01:00",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testScheduleConfig(t, tt.delays)
			clock := NewMatchPeriodClock(cfg.Periods[0], cfg)

			slots := clock.Slots()
			require.Len(t, slots, len(tt.want))
			for i, want := range tt.want {
				assert.True(t, slots[i].Equal(mustTime(t, want)),
					"slot %d: got %s, want %s", i, slots[i], want)
			}
		})
	}
}

func TestMatchPeriodClockMonotonic(t *testing.T) {
	cfg := testScheduleConfig(t, []models.Delay{
		{Time: mustTime(t, "2025-04-12T10:20:00+01:00"), Duration: 90 * time.Second},
		{Time: mustTime(t, "2025-04-12T10:30:00+01:00"), Duration: 30 * time.Second},
	})
	clock := NewMatchPeriodClock(cfg.Periods[0], cfg)

	slots := clock.Slots()
	require.NotEmpty(t, slots)
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i].After(slots[i-1]), "slots must strictly increase")
	}
	for _, slot := range slots {
		assert.False(t, slot.Add(cfg.MatchSlotLength).After(cfg.Periods[0].MaxEnd),
			"every slot must finish by the period's maximal end")
	}
}

func TestMatchPeriodClockAdvanceOutOfTime(t *testing.T) {
	cfg := testScheduleConfig(t, nil)
	clock := NewMatchPeriodClock(cfg.Periods[0], cfg)

	for i := 0; i < 7; i++ {
		_, err := clock.Advance()
		require.NoError(t, err)
	}

	_, err := clock.Advance()
	require.Error(t, err)
	var outOfTime *models.OutOfTimeError
	require.ErrorAs(t, err, &outOfTime)
	assert.Equal(t, "League, morning", outOfTime.Period)
}

func TestMatchPeriodClockCurrentSlot(t *testing.T) {
	cfg := testScheduleConfig(t, nil)
	clock := NewMatchPeriodClock(cfg.Periods[0], cfg)

	// The 10:08 slot runs until 10:13.
	current := clock.CurrentSlot(mustTime(t, "2025-04-12T10:09:00+01:00"))
	require.NotNil(t, current)
	assert.True(t, current.Equal(mustTime(t, "2025-04-12T10:08:00+01:00")))

	// 10:14 falls in the inter-match gap.
	assert.Nil(t, clock.CurrentSlot(mustTime(t, "2025-04-12T10:14:00+01:00")))

	// Before the period starts there is no current slot.
	assert.Nil(t, clock.CurrentSlot(mustTime(t, "2025-04-12T09:00:00+01:00")))
}

func TestMatchPeriodClockDelayConservation(t *testing.T) {
	base := testScheduleConfig(t, nil)
	delayed := testScheduleConfig(t, []models.Delay{
		{Time: mustTime(t, "2025-04-12T10:20:00+01:00"), Duration: 60 * time.Second},
	})

	baseSlots := NewMatchPeriodClock(base.Periods[0], base).Slots()
	delayedSlots := NewMatchPeriodClock(delayed.Periods[0], delayed).Slots()

	trigger := mustTime(t, "2025-04-12T10:20:00+01:00")
	for i := range delayedSlots {
		if baseSlots[i].Before(trigger) {
			assert.True(t, delayedSlots[i].Equal(baseSlots[i]),
				"slot %d before the trigger must not move", i)
		} else {
			assert.True(t, delayedSlots[i].Equal(baseSlots[i].Add(60*time.Second)),
				"slot %d at or after the trigger must shift by the delay", i)
		}
	}
}
