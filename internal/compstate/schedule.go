// internal/compstate/schedule.go
// Loader for schedule.yaml: slot timing, match periods and delays

package compstate

import (
	"fmt"
	"sort"
	"time"

	"compcore/internal/models"
)

type rawSchedule struct {
	MatchSlotLengthSeconds int `yaml:"match_slot_length_seconds"`
	MatchPeriodGapSeconds  int `yaml:"match_period_gap_seconds"`

	MatchPeriods []struct {
		Description string `yaml:"description"`
		StartTime   string `yaml:"start_time"`
		EndTime     string `yaml:"end_time"`
		MaxEndTime  string `yaml:"max_end_time"`
		Type        string `yaml:"type"`
	} `yaml:"match_periods"`

	Delays []struct {
		Time  string `yaml:"time"`
		Delay int    `yaml:"delay"`
	} `yaml:"delays"`

	// staging is host tooling configuration; the core ignores it.
	Staging map[string]interface{} `yaml:"staging"`
}

func (c *Compstate) loadSchedule() error {
	path := c.path("schedule.yaml")

	var raw rawSchedule
	if err := readYAML(path, &raw); err != nil {
		return err
	}

	if raw.MatchSlotLengthSeconds <= 0 {
		return &models.SchemaError{Path: path, Err: fmt.Errorf("match_slot_length_seconds must be positive")}
	}
	if raw.MatchPeriodGapSeconds < 0 {
		return &models.SchemaError{Path: path, Err: fmt.Errorf("match_period_gap_seconds must be non-negative")}
	}
	if len(raw.MatchPeriods) == 0 {
		return &models.SchemaError{Path: path, Err: fmt.Errorf("no match periods declared")}
	}

	cfg := &models.ScheduleConfig{
		MatchSlotLength: time.Duration(raw.MatchSlotLengthSeconds) * time.Second,
		InterMatchGap:   time.Duration(raw.MatchPeriodGapSeconds) * time.Second,
	}

	for i, p := range raw.MatchPeriods {
		where := fmt.Sprintf("match period %d", i)

		start, err := parseTimestamp(path, where+" start_time", p.StartTime)
		if err != nil {
			return err
		}
		end, err := parseTimestamp(path, where+" end_time", p.EndTime)
		if err != nil {
			return err
		}

		maxEnd := end
		if p.MaxEndTime != "" {
			maxEnd, err = parseTimestamp(path, where+" max_end_time", p.MaxEndTime)
			if err != nil {
				return err
			}
		}
		if maxEnd.Before(end) {
			return &models.SchemaError{Path: path, Err: fmt.Errorf("%s: max_end_time before end_time", where)}
		}
		if !end.After(start) {
			return &models.SchemaError{Path: path, Err: fmt.Errorf("%s: end_time not after start_time", where)}
		}

		periodType, err := parseMatchType(path, where, p.Type)
		if err != nil {
			return err
		}

		cfg.Periods = append(cfg.Periods, models.MatchPeriod{
			Description: p.Description,
			Type:        periodType,
			Start:       start,
			PlannedEnd:  end,
			MaxEnd:      maxEnd,
		})
	}

	// Periods are kept in declared order but must not run backwards.
	for i := 1; i < len(cfg.Periods); i++ {
		if cfg.Periods[i].Start.Before(cfg.Periods[i-1].Start) {
			return &models.SchemaError{Path: path, Err: fmt.Errorf("match periods out of order at index %d", i)}
		}
	}

	for i, d := range raw.Delays {
		at, err := parseTimestamp(path, fmt.Sprintf("delay %d", i), d.Time)
		if err != nil {
			return err
		}
		if d.Delay < 0 {
			return &models.SchemaError{Path: path, Err: fmt.Errorf("delay %d: negative duration", i)}
		}
		cfg.Delays = append(cfg.Delays, models.Delay{
			Time:     at,
			Duration: time.Duration(d.Delay) * time.Second,
		})
	}
	sort.SliceStable(cfg.Delays, func(i, j int) bool { return cfg.Delays[i].Time.Before(cfg.Delays[j].Time) })

	c.Schedule = cfg
	return nil
}

// parseTimestamp parses an ISO 8601 timestamp with explicit offset.
func parseTimestamp(path, where, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &models.SchemaError{Path: path, Err: fmt.Errorf("%s: missing timestamp", where)}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &models.SchemaError{Path: path, Err: fmt.Errorf("%s: %w", where, err)}
	}
	return t, nil
}

func parseMatchType(path, where, value string) (models.MatchType, error) {
	switch models.MatchType(value) {
	case models.MatchTypeLeague, models.MatchTypeKnockout:
		return models.MatchType(value), nil
	default:
		return "", &models.SchemaError{Path: path, Err: fmt.Errorf("%s: unknown period type %q", where, value)}
	}
}
