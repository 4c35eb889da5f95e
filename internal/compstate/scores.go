// internal/compstate/scores.go
// Loader for per-match scoresheets under league/<arena>/<num>.yaml and
// knockout/<arena>/<num>.yaml. Only completed matches have a sheet.

package compstate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"compcore/internal/models"

	"github.com/shopspring/decimal"
)

type rawScoresheet struct {
	Times map[string]interface{} `yaml:"times"`
	Teams []*string              `yaml:"teams"`

	Scores struct {
		Game         map[string]float64 `yaml:"game"`
		Disqualified []string           `yaml:"disqualified"`
		Present      *[]string          `yaml:"present"`
	} `yaml:"scores"`
}

func (c *Compstate) loadScores() error {
	for _, sub := range []string{"league", "knockout"} {
		root := c.path(sub)
		if !fileExists(root) {
			continue
		}
		if err := c.loadScoreDir(root); err != nil {
			return err
		}
	}
	return nil
}

// loadScoreDir walks one score directory: one subdirectory per arena, one
// YAML file per match number.
func (c *Compstate) loadScoreDir(root string) error {
	arenaDirs, err := os.ReadDir(root)
	if err != nil {
		return &models.SchemaError{Path: root, Err: err}
	}

	for _, arenaDir := range arenaDirs {
		if !arenaDir.IsDir() {
			continue
		}
		arenaID := models.ArenaID(arenaDir.Name())
		if _, ok := c.arenaIndex[arenaID]; !ok {
			return &models.ReferenceError{Kind: "arena", Ref: arenaDir.Name(), Path: root}
		}

		files, err := os.ReadDir(filepath.Join(root, arenaDir.Name()))
		if err != nil {
			return &models.SchemaError{Path: filepath.Join(root, arenaDir.Name()), Err: err}
		}

		for _, file := range files {
			name := file.Name()
			if file.IsDir() || !strings.HasSuffix(name, ".yaml") {
				continue
			}
			path := filepath.Join(root, arenaDir.Name(), name)

			num, err := strconv.Atoi(strings.TrimSuffix(name, ".yaml"))
			if err != nil || num < 0 {
				return &models.SchemaError{Path: path, Err: fmt.Errorf("scoresheet filename is not a match number")}
			}

			sheet, err := c.loadScoresheet(path, models.MatchNumber(num), arenaID)
			if err != nil {
				return err
			}
			c.Scoresheets[SheetKey{Num: sheet.Num, Arena: sheet.Arena}] = sheet
		}
	}

	return nil
}

func (c *Compstate) loadScoresheet(path string, num models.MatchNumber, arena models.ArenaID) (*models.Scoresheet, error) {
	var raw rawScoresheet
	if err := readYAML(path, &raw); err != nil {
		return nil, err
	}

	sheet := &models.Scoresheet{
		Arena:      arena,
		Num:        num,
		Teams:      make([]models.TeamID, len(raw.Teams)),
		GamePoints: make(map[models.TeamID]decimal.Decimal, len(raw.Scores.Game)),
	}

	onSheet := make(map[models.TeamID]bool)
	for i, entry := range raw.Teams {
		if entry == nil {
			sheet.Teams[i] = models.NoTeam
			continue
		}
		id := models.TeamID(*entry)
		if _, ok := c.teamIndex[id]; !ok {
			return nil, &models.ReferenceError{Kind: "team", Ref: *entry, Path: path}
		}
		sheet.Teams[i] = id
		onSheet[id] = true
	}

	// A team mentioned in the scores must be declared and on the sheet.
	requireOnSheet := func(name string) (models.TeamID, error) {
		id := models.TeamID(name)
		if _, ok := c.teamIndex[id]; !ok {
			return models.NoTeam, &models.ReferenceError{Kind: "team", Ref: name, Path: path}
		}
		if !onSheet[id] {
			return models.NoTeam, &models.ReferenceError{Kind: "team", Ref: name, Path: path}
		}
		return id, nil
	}

	for name, points := range raw.Scores.Game {
		id, err := requireOnSheet(name)
		if err != nil {
			return nil, err
		}
		sheet.GamePoints[id] = decimal.NewFromFloat(points)
	}

	if len(raw.Scores.Disqualified) > 0 {
		sheet.Disqualified = make(map[models.TeamID]bool, len(raw.Scores.Disqualified))
		for _, name := range raw.Scores.Disqualified {
			id, err := requireOnSheet(name)
			if err != nil {
				return nil, err
			}
			sheet.Disqualified[id] = true
		}
	}

	if raw.Scores.Present != nil {
		sheet.Present = make(map[models.TeamID]bool, len(*raw.Scores.Present))
		for _, name := range *raw.Scores.Present {
			id, err := requireOnSheet(name)
			if err != nil {
				return nil, err
			}
			sheet.Present[id] = true
		}
	}

	// A league sheet must agree with the plan about which arena the
	// match was played in.
	if err := c.checkSheetArena(path, sheet); err != nil {
		return nil, err
	}

	return sheet, nil
}

// checkSheetArena cross-checks a league scoresheet against the match plan.
func (c *Compstate) checkSheetArena(path string, sheet *models.Scoresheet) error {
	numExists := false
	for _, planned := range c.LeaguePlan {
		if planned.Num != sheet.Num {
			continue
		}
		numExists = true
		if planned.Arena == sheet.Arena {
			return nil
		}
	}
	if numExists {
		return &models.SchemaError{Path: path, Err: fmt.Errorf(
			"scoresheet arena %s does not match the plan for match %d", sheet.Arena, sheet.Num)}
	}
	// Knockout and tiebreaker numbers are allocated during evaluation;
	// nothing to cross-check at load time.
	return nil
}
