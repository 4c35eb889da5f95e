// internal/compstate/teams.go
// Loader for teams.yaml

package compstate

import (
	"fmt"
	"sort"

	"compcore/internal/models"
)

type rawTeams struct {
	Teams map[string]struct {
		Name            string `yaml:"name"`
		Rookie          bool   `yaml:"rookie"`
		DroppedOutAfter *int   `yaml:"dropped_out_after"`
	} `yaml:"teams"`
}

func (c *Compstate) loadTeams() error {
	path := c.path("teams.yaml")

	var raw rawTeams
	if err := readYAML(path, &raw); err != nil {
		return err
	}

	if len(raw.Teams) == 0 {
		return &models.SchemaError{Path: path, Err: fmt.Errorf("no teams declared")}
	}

	c.Teams = make([]*models.Team, 0, len(raw.Teams))
	for id, entry := range raw.Teams {
		team := &models.Team{
			ID:     models.TeamID(id),
			Name:   entry.Name,
			Rookie: entry.Rookie,
		}
		if entry.DroppedOutAfter != nil {
			if *entry.DroppedOutAfter < 0 {
				return &models.SchemaError{Path: path, Err: fmt.Errorf("team %s: dropped_out_after must be non-negative", id)}
			}
			num := models.MatchNumber(*entry.DroppedOutAfter)
			team.DroppedOutAfter = &num
		}
		c.Teams = append(c.Teams, team)
		c.teamIndex[team.ID] = team
	}

	sort.Slice(c.Teams, func(i, j int) bool { return c.Teams[i].ID < c.Teams[j].ID })

	return nil
}
