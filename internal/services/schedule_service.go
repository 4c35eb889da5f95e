// internal/services/schedule_service.go
// Schedule binder: composes match periods, the match plan and the period
// clock into a concrete wall-clock timetable.

package services

import (
	"time"

	"compcore/internal/models"
)

// ScheduleService stamps start times onto planned matches and exposes the
// slot supply for each match type.
type ScheduleService struct {
	cfg *models.ScheduleConfig
}

// NewScheduleService creates a schedule binder over one timing config.
func NewScheduleService(cfg *models.ScheduleConfig) *ScheduleService {
	return &ScheduleService{cfg: cfg}
}

// SlotTimes returns every slot start available to the given match type,
// across all periods of that type in declared order.
func (s *ScheduleService) SlotTimes(matchType models.MatchType) []time.Time {
	var slots []time.Time
	for _, period := range s.cfg.Periods {
		if period.Type != matchType {
			continue
		}
		clock := NewMatchPeriodClock(period, s.cfg)
		slots = append(slots, clock.Slots()...)
	}
	return slots
}

// BindLeague assigns slot times to the league plan in arena-synchronised
// groups: every arena playing match number k starts at the same instant.
// An over-long plan fails with PlanExceedsPeriodsError.
func (s *ScheduleService) BindLeague(plan []*models.Match) error {
	groups := groupByNumber(plan)
	slots := s.SlotTimes(models.MatchTypeLeague)

	if len(groups) > len(slots) {
		return &models.PlanExceedsPeriodsError{
			Type:      models.MatchTypeLeague,
			Planned:   len(groups),
			Scheduled: len(slots),
		}
	}

	for i, group := range groups {
		for _, match := range group {
			match.StartTime = slots[i]
			match.EndTime = slots[i].Add(s.cfg.MatchSlotLength)
		}
	}
	return nil
}

// BindAt stamps a single match with one slot start.
func (s *ScheduleService) BindAt(match *models.Match, slot time.Time) {
	match.StartTime = slot
	match.EndTime = slot.Add(s.cfg.MatchSlotLength)
}

// SlotLength returns the fixed match slot length.
func (s *ScheduleService) SlotLength() time.Duration {
	return s.cfg.MatchSlotLength
}

// groupByNumber splits an already num-ordered match list into
// arena-synchronised groups, one per match number.
func groupByNumber(matches []*models.Match) [][]*models.Match {
	var groups [][]*models.Match
	for _, match := range matches {
		if n := len(groups); n > 0 && groups[n-1][0].Num == match.Num {
			groups[n-1] = append(groups[n-1], match)
			continue
		}
		groups = append(groups, []*models.Match{match})
	}
	return groups
}
