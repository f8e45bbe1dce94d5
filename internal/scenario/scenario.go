// Package scenario provides the static decision scenarios, their catalogs and
// the store-backed scenario source with its built-in fallback.
package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/talgya/empire-sim/internal/metrics"
)

var (
	// ErrNotFound is returned when no scenario matches a lookup.
	ErrNotFound = errors.New("scenario not found")
	// ErrInvalidChoice is returned for a choice index outside the scenario's choices.
	ErrInvalidChoice = errors.New("invalid choice")
)

// DecisionType is the business area a scenario belongs to.
type DecisionType string

// Difficulty is a scenario's declared difficulty tier.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty maps a tier name to a Difficulty. Empty means medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case "", Medium:
		return Medium, nil
	case Easy:
		return Easy, nil
	case Hard:
		return Hard, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// Multiplier returns the score multiplier for the tier.
func (d Difficulty) Multiplier() float64 {
	switch d {
	case Easy:
		return 1.0
	case Hard:
		return 2.0
	default:
		return 1.5
	}
}

// Choice is one option of a scenario.
type Choice struct {
	ID     string         `json:"id" yaml:"id"`
	Text   string         `json:"text" yaml:"text"`
	Deltas metrics.Deltas `json:"consequences" yaml:"deltas"`
}

// Scenario is an immutable, author-defined decision point identified by title.
type Scenario struct {
	Title              string       `json:"title" yaml:"title"`
	Description        string       `json:"description" yaml:"description"`
	DecisionType       DecisionType `json:"decision_type" yaml:"decision_type"`
	Difficulty         Difficulty   `json:"difficulty,omitempty" yaml:"difficulty"`
	Situation          string       `json:"current_situation" yaml:"situation"`
	Choices            []Choice     `json:"choices" yaml:"choices"`
	LearningObjective  string       `json:"learning_objective" yaml:"learning_objective"`
	EducationalContent string       `json:"educational_content,omitempty" yaml:"educational_content"`
}

// Choice returns the choice at index, or ErrInvalidChoice when out of range.
func (s Scenario) Choice(index int) (Choice, error) {
	if index < 0 || index >= len(s.Choices) {
		return Choice{}, fmt.Errorf("%w: index %d, scenario %q has %d choices", ErrInvalidChoice, index, s.Title, len(s.Choices))
	}
	return s.Choices[index], nil
}

// Tier returns the canonical scenario difficulty. Empty or unrecognised
// values count as medium.
func (s Scenario) Tier() Difficulty {
	d, err := ParseDifficulty(string(s.Difficulty))
	if err != nil {
		return Medium
	}
	return d
}

// Challenge is a metric goal that awards xp and cash once reached.
type Challenge struct {
	Title        string             `json:"title" yaml:"title"`
	Description  string             `json:"description" yaml:"description"`
	Type         string             `json:"challenge_type" yaml:"type"`
	RewardXP     int                `json:"reward_xp" yaml:"reward_xp"`
	RewardCash   float64            `json:"reward_cash" yaml:"reward_cash"`
	Requirements map[string]float64 `json:"requirements" yaml:"requirements"`
}

// Met reports whether every requirement is at or above its target in s.
func (c Challenge) Met(s metrics.Snapshot) bool {
	if len(c.Requirements) == 0 {
		return false
	}
	for field, target := range c.Requirements {
		v, ok := s.Get(field)
		if !ok || v < target {
			return false
		}
	}
	return true
}
