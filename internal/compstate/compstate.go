// internal/compstate/compstate.go
// Compstate deserialiser: reads the on-disk compstate directory into
// validated records. The directory is authoritative and read-only; every
// load re-reads it from scratch.

package compstate

import (
	"fmt"
	"os"
	"path/filepath"

	"compcore/internal/models"

	"gopkg.in/yaml.v3"
)

// Compstate holds the parsed and validated contents of one compstate
// directory. It is the input to competition evaluation and never mutated
// afterwards.
type Compstate struct {
	Dir string

	Arenas        []*models.Arena
	TeamsPerArena int

	// Teams is sorted by ID: alphabetical TeamID is the canonical
	// iteration order wherever ordering would otherwise be implicit.
	Teams []*models.Team

	LeaguePlan  []*models.Match
	Schedule    *models.ScheduleConfig
	Knockout    *KnockoutPlan
	Awards      []models.Award
	Scoresheets map[SheetKey]*models.Scoresheet

	teamIndex  map[models.TeamID]*models.Team
	arenaIndex map[models.ArenaID]*models.Arena
}

// SheetKey addresses one scoresheet. A match number is shared by every
// arena playing in that slot, so sheets are keyed by number and arena.
type SheetKey struct {
	Num   models.MatchNumber
	Arena models.ArenaID
}

// Load reads and validates a compstate directory. Optional files may be
// absent; malformed content aborts with a SchemaError naming the file.
func Load(dir string) (*Compstate, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &models.SchemaError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &models.SchemaError{Path: dir, Err: fmt.Errorf("not a directory")}
	}

	c := &Compstate{
		Dir:         dir,
		Scoresheets: make(map[SheetKey]*models.Scoresheet),
		teamIndex:   make(map[models.TeamID]*models.Team),
		arenaIndex:  make(map[models.ArenaID]*models.Arena),
	}

	// Leaves first: arenas and teams anchor every later reference check.
	if err := c.loadArenas(); err != nil {
		return nil, err
	}
	if err := c.loadTeams(); err != nil {
		return nil, err
	}
	if err := c.loadSchedule(); err != nil {
		return nil, err
	}
	if err := c.loadLeaguePlan(); err != nil {
		return nil, err
	}
	if err := c.loadKnockoutPlan(); err != nil {
		return nil, err
	}
	if err := c.loadScores(); err != nil {
		return nil, err
	}
	if err := c.loadAwards(); err != nil {
		return nil, err
	}

	return c, nil
}

// Team looks up a declared team by ID.
func (c *Compstate) Team(id models.TeamID) (*models.Team, bool) {
	t, ok := c.teamIndex[id]
	return t, ok
}

// Arena looks up a declared arena by ID.
func (c *Compstate) Arena(id models.ArenaID) (*models.Arena, bool) {
	a, ok := c.arenaIndex[id]
	return a, ok
}

// Scoresheet returns the score report for a match, if one exists yet.
func (c *Compstate) Scoresheet(num models.MatchNumber, arena models.ArenaID) (*models.Scoresheet, bool) {
	s, ok := c.Scoresheets[SheetKey{Num: num, Arena: arena}]
	return s, ok
}

// readYAML decodes one YAML file into dest, wrapping failures as schema
// errors carrying the offending path.
func readYAML(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &models.SchemaError{Path: path, Err: err}
	}
	if err := yaml.Unmarshal(data, dest); err != nil {
		return &models.SchemaError{Path: path, Err: err}
	}
	return nil
}

// fileExists reports whether an optional compstate file is present.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (c *Compstate) path(elem ...string) string {
	return filepath.Join(append([]string{c.Dir}, elem...)...)
}
