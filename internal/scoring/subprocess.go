// internal/scoring/subprocess.go
// Scorer implementation that shells out to the compstate's own scoring
// script (scoring/score.py or equivalent). The script receives the raw
// scoresheet as JSON on stdin and must answer with JSON on stdout:
//
//	{"scores": {"ABC": 10, "DEF": 8}, "disqualified": ["DEF"]}

package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"compcore/internal/models"

	"github.com/shopspring/decimal"
)

// SubprocessScorer runs an external command per scoresheet.
type SubprocessScorer struct {
	command []string
	timeout time.Duration
}

// NewSubprocessScorer creates a scorer invoking the given command line.
func NewSubprocessScorer(command []string, timeout time.Duration) (*SubprocessScorer, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("scorer command is empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SubprocessScorer{command: command, timeout: timeout}, nil
}

type subprocessInput struct {
	Arena        string             `json:"arena"`
	Num          int                `json:"num"`
	Teams        []string           `json:"teams"`
	Game         map[string]float64 `json:"game"`
	Disqualified []string           `json:"disqualified"`
	Present      []string           `json:"present,omitempty"`
}

type subprocessOutput struct {
	Scores       map[string]float64 `json:"scores"`
	Disqualified []string           `json:"disqualified"`
}

// CalculateScores invokes the script and validates its answer.
func (s *SubprocessScorer) CalculateScores(sheet *models.Scoresheet) (map[models.TeamID]decimal.Decimal, error) {
	out, err := s.run(sheet)
	if err != nil {
		return nil, err
	}

	scores := make(map[models.TeamID]decimal.Decimal, len(out.Scores))
	for name, points := range out.Scores {
		scores[models.TeamID(name)] = decimal.NewFromFloat(points)
	}
	if err := ValidateScores(sheet, scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// TeamsDisqualified invokes the script and returns its disqualification
// verdicts.
func (s *SubprocessScorer) TeamsDisqualified(sheet *models.Scoresheet) ([]models.TeamID, error) {
	out, err := s.run(sheet)
	if err != nil {
		return nil, err
	}

	seen := make(map[models.TeamID]bool, len(out.Disqualified))
	teams := make([]models.TeamID, 0, len(out.Disqualified))
	for _, name := range out.Disqualified {
		id := models.TeamID(name)
		if seen[id] {
			return nil, &models.ScorerError{Team: id, Reason: "duplicated in disqualification list"}
		}
		seen[id] = true
		teams = append(teams, id)
	}
	return teams, nil
}

func (s *SubprocessScorer) run(sheet *models.Scoresheet) (*subprocessOutput, error) {
	input := subprocessInput{
		Arena:        string(sheet.Arena),
		Num:          int(sheet.Num),
		Teams:        make([]string, len(sheet.Teams)),
		Game:         make(map[string]float64, len(sheet.GamePoints)),
		Disqualified: []string{},
	}
	for i, team := range sheet.Teams {
		input.Teams[i] = string(team)
	}
	for team, points := range sheet.GamePoints {
		value, _ := points.Float64()
		input.Game[string(team)] = value
	}
	for team := range sheet.Disqualified {
		input.Disqualified = append(input.Disqualified, string(team))
	}
	if sheet.Present != nil {
		input.Present = make([]string, 0, len(sheet.Present))
		for team := range sheet.Present {
			input.Present = append(input.Present, string(team))
		}
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, &models.ScorerError{Reason: fmt.Sprintf("encoding scoresheet: %v", err)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &models.ScorerError{Reason: fmt.Sprintf("scorer command failed: %v: %s", err, stderr.String())}
	}

	var out subprocessOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, &models.ScorerError{Reason: fmt.Sprintf("scorer produced invalid JSON: %v", err)}
	}
	return &out, nil
}
