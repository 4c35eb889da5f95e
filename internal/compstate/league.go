// internal/compstate/league.go
// Loader for league.yaml: the static league match plan.
// Yields Match records without start times; the schedule binder stamps
// those later.

package compstate

import (
	"fmt"
	"sort"

	"compcore/internal/models"
)

type rawLeaguePlan struct {
	Matches map[int]map[string][]*string `yaml:"matches"`
}

func (c *Compstate) loadLeaguePlan() error {
	path := c.path("league.yaml")

	var raw rawLeaguePlan
	if err := readYAML(path, &raw); err != nil {
		return err
	}

	nums := make([]int, 0, len(raw.Matches))
	for num := range raw.Matches {
		if num < 0 {
			return &models.SchemaError{Path: path, Err: fmt.Errorf("negative match number %d", num)}
		}
		nums = append(nums, num)
	}
	sort.Ints(nums)

	// Match numbers must be contiguous from zero in emission order.
	for i, num := range nums {
		if num != i {
			return &models.SchemaError{Path: path, Err: fmt.Errorf("match numbers not contiguous: expected %d, found %d", i, num)}
		}
	}

	c.LeaguePlan = make([]*models.Match, 0, len(nums)*len(c.Arenas))
	for _, num := range nums {
		arenaRows := raw.Matches[num]

		// Arena iteration follows the canonical arena order; a plan may
		// emit fewer arena rows than there are arenas (no match in that
		// arena for this slot, not an empty match).
		for _, arena := range c.Arenas {
			row, ok := arenaRows[string(arena.ID)]
			if !ok {
				continue
			}
			match, err := c.planRowToMatch(path, num, arena.ID, row)
			if err != nil {
				return err
			}
			c.LeaguePlan = append(c.LeaguePlan, match)
		}

		// Reject rows naming arenas that were never declared.
		for arenaID := range arenaRows {
			if _, ok := c.arenaIndex[models.ArenaID(arenaID)]; !ok {
				return &models.ReferenceError{Kind: "arena", Ref: arenaID, Path: path}
			}
		}
	}

	return nil
}

// planRowToMatch validates one plan row and builds the unscheduled match.
func (c *Compstate) planRowToMatch(path string, num int, arena models.ArenaID, row []*string) (*models.Match, error) {
	if len(row) != c.TeamsPerArena {
		return nil, &models.SchemaError{Path: path, Err: fmt.Errorf(
			"match %d arena %s: %d team slots, arena capacity is %d", num, arena, len(row), c.TeamsPerArena)}
	}

	teams := make([]models.TeamID, len(row))
	for i, entry := range row {
		if entry == nil {
			teams[i] = models.NoTeam
			continue
		}
		id := models.TeamID(*entry)
		if _, ok := c.teamIndex[id]; !ok {
			return nil, &models.ReferenceError{Kind: "team", Ref: *entry, Path: path}
		}
		teams[i] = id
	}

	return &models.Match{
		Num:         models.MatchNumber(num),
		Arena:       arena,
		Type:        models.MatchTypeLeague,
		DisplayName: fmt.Sprintf("Match %d", num),
		Teams:       teams,
	}, nil
}
