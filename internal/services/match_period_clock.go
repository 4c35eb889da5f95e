// internal/services/match_period_clock.go
// MatchPeriodClock resolves one match period plus its delays into a
// monotonic sequence of slot start times.

package services

import (
	"time"

	"compcore/internal/models"
)

// MatchPeriodClock yields the slot start times of one period. Delays
// whose trigger time has been reached shift the cursor forward; a slot
// already emitted is frozen and never retroactively shifted.
type MatchPeriodClock struct {
	period     models.MatchPeriod
	slotLength time.Duration
	gap        time.Duration

	// delays holds the period's delays in time order; applied counts how
	// many have already shifted the cursor.
	delays  []models.Delay
	applied int

	cursor time.Time
}

// NewMatchPeriodClock creates a clock over one period, picking out the
// delays that trigger inside it. Delays belonging to other periods never
// touch this one.
func NewMatchPeriodClock(period models.MatchPeriod, cfg *models.ScheduleConfig) *MatchPeriodClock {
	return &MatchPeriodClock{
		period:     period,
		slotLength: cfg.MatchSlotLength,
		gap:        cfg.InterMatchGap,
		delays:     cfg.DelaysInPeriod(&period),
		cursor:     period.Start,
	}
}

// peek applies every delay whose trigger time the cursor has reached and
// returns the next slot start, or an OutOfTimeError when that slot would
// run past the period's maximal end.
func (c *MatchPeriodClock) peek() (time.Time, error) {
	// A delay shifts every slot scheduled at or after its trigger time,
	// so applying one may bring further delays into range.
	for c.applied < len(c.delays) && !c.delays[c.applied].Time.After(c.cursor) {
		c.cursor = c.cursor.Add(c.delays[c.applied].Duration)
		c.applied++
	}

	if c.cursor.Add(c.slotLength).After(c.period.MaxEnd) {
		return time.Time{}, &models.OutOfTimeError{Period: c.period.Description, Next: c.cursor}
	}
	return c.cursor, nil
}

// Advance emits the next slot start and moves the cursor past it.
func (c *MatchPeriodClock) Advance() (time.Time, error) {
	slot, err := c.peek()
	if err != nil {
		return time.Time{}, err
	}
	c.cursor = slot.Add(c.slotLength + c.gap)
	return slot, nil
}

// Slots returns every remaining slot start without disturbing the cursor.
func (c *MatchPeriodClock) Slots() []time.Time {
	clone := *c
	var slots []time.Time
	for {
		slot, err := clone.Advance()
		if err != nil {
			return slots
		}
		slots = append(slots, slot)
	}
}

// CurrentSlot returns the slot in progress at the instant, if any.
func (c *MatchPeriodClock) CurrentSlot(now time.Time) *time.Time {
	for _, slot := range c.Slots() {
		if !now.Before(slot) && now.Before(slot.Add(c.slotLength)) {
			s := slot
			return &s
		}
	}
	return nil
}
