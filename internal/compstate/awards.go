// internal/compstate/awards.go
// Loader for awards.yaml

package compstate

import (
	"fmt"
	"sort"

	"compcore/internal/models"
)

func (c *Compstate) loadAwards() error {
	path := c.path("awards.yaml")
	if !fileExists(path) {
		return nil
	}

	// Each award maps to a single team or a list of teams.
	var raw map[string]interface{}
	if err := readYAML(path, &raw); err != nil {
		return err
	}

	kinds := make([]string, 0, len(raw))
	for kind := range raw {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		teams, err := c.awardTeams(path, kind, raw[kind])
		if err != nil {
			return err
		}
		c.Awards = append(c.Awards, models.Award{
			Kind:  models.AwardKind(kind),
			Teams: teams,
		})
	}

	return nil
}

func (c *Compstate) awardTeams(path, kind string, value interface{}) ([]models.TeamID, error) {
	var names []string
	switch v := value.(type) {
	case string:
		names = []string{v}
	case []interface{}:
		for _, entry := range v {
			name, ok := entry.(string)
			if !ok {
				return nil, &models.SchemaError{Path: path, Err: fmt.Errorf("award %s: expected team id, got %T", kind, entry)}
			}
			names = append(names, name)
		}
	case nil:
		return nil, nil
	default:
		return nil, &models.SchemaError{Path: path, Err: fmt.Errorf("award %s: expected team id or list, got %T", kind, value)}
	}

	teams := make([]models.TeamID, 0, len(names))
	for _, name := range names {
		id := models.TeamID(name)
		if _, ok := c.teamIndex[id]; !ok {
			return nil, &models.ReferenceError{Kind: "team", Ref: name, Path: path}
		}
		teams = append(teams, id)
	}
	return teams, nil
}
