// internal/compstate/arenas.go
// Loader for arenas.yaml

package compstate

import (
	"fmt"
	"sort"

	"compcore/internal/models"
)

type rawArenas struct {
	Arenas map[string]struct {
		DisplayName string  `yaml:"display_name"`
		Colour      *string `yaml:"colour"`
	} `yaml:"arenas"`
	TeamsPerArena int `yaml:"teams_per_arena"`
}

func (c *Compstate) loadArenas() error {
	path := c.path("arenas.yaml")

	var raw rawArenas
	if err := readYAML(path, &raw); err != nil {
		return err
	}

	if len(raw.Arenas) == 0 {
		return &models.SchemaError{Path: path, Err: fmt.Errorf("no arenas declared")}
	}
	if raw.TeamsPerArena < 1 {
		return &models.SchemaError{Path: path, Err: fmt.Errorf("teams_per_arena must be positive, got %d", raw.TeamsPerArena)}
	}

	c.TeamsPerArena = raw.TeamsPerArena
	c.Arenas = make([]*models.Arena, 0, len(raw.Arenas))
	for id, entry := range raw.Arenas {
		name := entry.DisplayName
		if name == "" {
			name = id
		}
		arena := &models.Arena{
			ID:          models.ArenaID(id),
			DisplayName: name,
			Colour:      entry.Colour,
		}
		c.Arenas = append(c.Arenas, arena)
		c.arenaIndex[arena.ID] = arena
	}

	// YAML maps are unordered; arena order is canonicalised by ID.
	sort.Slice(c.Arenas, func(i, j int) bool { return c.Arenas[i].ID < c.Arenas[j].ID })

	return nil
}
