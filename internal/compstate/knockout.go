// internal/compstate/knockout.go
// Loader for knockout.yaml: either a static knockout match plan or the
// shape of a bracket to be seeded from league standings. A missing file
// means a seeded bracket with defaults.

package compstate

import (
	"fmt"
	"sort"

	"compcore/internal/models"
)

// KnockoutMode selects between the two scheduler variants.
type KnockoutMode string

const (
	KnockoutModeSeeded KnockoutMode = "seeded"
	KnockoutModeStatic KnockoutMode = "static"
)

// KnockoutPlan is the parsed knockout configuration.
type KnockoutPlan struct {
	Mode KnockoutMode

	// Matches is the explicit match list for the static variant,
	// ordered by match number.
	Matches []*StaticKnockoutMatch

	// FirstRoundMatches fixes the seeded bracket's first-round size.
	// Zero derives it from the number of eligible teams.
	FirstRoundMatches int
}

// StaticKnockoutMatch is one planned knockout match whose team slots may
// be placeholders resolved during evaluation.
type StaticKnockoutMatch struct {
	Num   models.MatchNumber
	Arena models.ArenaID
	Round int
	Teams []TeamSlotRef
}

// TeamSlotRef is one team slot of a static knockout match: a concrete
// team, a league seed, the ranked outcome of an earlier match, or empty.
type TeamSlotRef struct {
	Team models.TeamID

	// Seed references a league standing position (1-based).
	Seed int

	// WinnerOf references the match whose ranked outcome fills the slot;
	// Rank selects the position within that outcome (1-based, default 1).
	WinnerOf *models.MatchNumber
	Rank     int
}

// IsEmpty reports whether the slot is an intentional bye.
func (r TeamSlotRef) IsEmpty() bool {
	return r.Team == models.NoTeam && r.Seed == 0 && r.WinnerOf == nil
}

type rawKnockout struct {
	Mode              string `yaml:"mode"`
	FirstRoundMatches int    `yaml:"first_round_matches"`

	Matches map[int]struct {
		Arena string        `yaml:"arena"`
		Round int           `yaml:"round"`
		Teams []interface{} `yaml:"teams"`
	} `yaml:"matches"`
}

func (c *Compstate) loadKnockoutPlan() error {
	path := c.path("knockout.yaml")

	if !fileExists(path) {
		c.Knockout = &KnockoutPlan{Mode: KnockoutModeSeeded}
		return nil
	}

	var raw rawKnockout
	if err := readYAML(path, &raw); err != nil {
		return err
	}

	plan := &KnockoutPlan{FirstRoundMatches: raw.FirstRoundMatches}
	switch KnockoutMode(raw.Mode) {
	case KnockoutModeSeeded, "":
		plan.Mode = KnockoutModeSeeded
	case KnockoutModeStatic:
		plan.Mode = KnockoutModeStatic
	default:
		return &models.SchemaError{Path: path, Err: fmt.Errorf("unknown knockout mode %q", raw.Mode)}
	}

	if plan.Mode == KnockoutModeSeeded {
		if plan.FirstRoundMatches < 0 {
			return &models.SchemaError{Path: path, Err: fmt.Errorf("first_round_matches must be non-negative")}
		}
		c.Knockout = plan
		return nil
	}

	if len(raw.Matches) == 0 {
		return &models.SchemaError{Path: path, Err: fmt.Errorf("static knockout plan declares no matches")}
	}

	leagueMatches := 0
	if n := len(c.LeaguePlan); n > 0 {
		leagueMatches = int(c.LeaguePlan[n-1].Num) + 1
	}

	for num, entry := range raw.Matches {
		if num < leagueMatches {
			return &models.SchemaError{Path: path, Err: fmt.Errorf(
				"knockout match %d collides with the league number space (league ends at %d)", num, leagueMatches-1)}
		}
		arenaID := models.ArenaID(entry.Arena)
		if _, ok := c.arenaIndex[arenaID]; !ok {
			return &models.ReferenceError{Kind: "arena", Ref: entry.Arena, Path: path}
		}
		if entry.Round < 0 {
			return &models.SchemaError{Path: path, Err: fmt.Errorf("knockout match %d: negative round", num)}
		}
		if len(entry.Teams) != c.TeamsPerArena {
			return &models.SchemaError{Path: path, Err: fmt.Errorf(
				"knockout match %d: %d team slots, arena capacity is %d", num, len(entry.Teams), c.TeamsPerArena)}
		}

		match := &StaticKnockoutMatch{
			Num:   models.MatchNumber(num),
			Arena: arenaID,
			Round: entry.Round,
			Teams: make([]TeamSlotRef, len(entry.Teams)),
		}
		for i, slot := range entry.Teams {
			ref, err := c.parseSlotRef(path, num, slot)
			if err != nil {
				return err
			}
			match.Teams[i] = ref
		}
		plan.Matches = append(plan.Matches, match)
	}

	sort.Slice(plan.Matches, func(i, j int) bool { return plan.Matches[i].Num < plan.Matches[j].Num })

	c.Knockout = plan
	return nil
}

// parseSlotRef parses one static team slot: null, "ABC",
// {seed: N} or {winner_of: N, rank: R}.
func (c *Compstate) parseSlotRef(path string, num int, slot interface{}) (TeamSlotRef, error) {
	switch v := slot.(type) {
	case nil:
		return TeamSlotRef{}, nil

	case string:
		id := models.TeamID(v)
		if _, ok := c.teamIndex[id]; !ok {
			return TeamSlotRef{}, &models.ReferenceError{Kind: "team", Ref: v, Path: path}
		}
		return TeamSlotRef{Team: id}, nil

	case map[string]interface{}:
		if seed, ok := intField(v, "seed"); ok {
			if seed < 1 {
				return TeamSlotRef{}, &models.SchemaError{Path: path, Err: fmt.Errorf("knockout match %d: seed must be positive", num)}
			}
			return TeamSlotRef{Seed: seed}, nil
		}
		if source, ok := intField(v, "winner_of"); ok {
			rank := 1
			if r, ok := intField(v, "rank"); ok {
				rank = r
			}
			if rank < 1 {
				return TeamSlotRef{}, &models.SchemaError{Path: path, Err: fmt.Errorf("knockout match %d: rank must be positive", num)}
			}
			src := models.MatchNumber(source)
			return TeamSlotRef{WinnerOf: &src, Rank: rank}, nil
		}
		return TeamSlotRef{}, &models.SchemaError{Path: path, Err: fmt.Errorf("knockout match %d: unrecognised team slot %v", num, v)}

	default:
		return TeamSlotRef{}, &models.SchemaError{Path: path, Err: fmt.Errorf("knockout match %d: unrecognised team slot %T", num, slot)}
	}
}

func intField(m map[string]interface{}, key string) (int, bool) {
	value, ok := m[key]
	if !ok {
		return 0, false
	}
	n, ok := value.(int)
	return n, ok
}
