package scenario

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/empire-sim/internal/metrics"
)

//go:embed catalogs/*.yaml
var builtinFS embed.FS

// Option is a selectable entity background (industry or country).
type Option struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Fact is a short piece of educational content.
type Fact struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// Trivia is a multiple-choice quiz question.
type Trivia struct {
	Question    string   `json:"question" yaml:"question"`
	Options     []string `json:"options" yaml:"options"`
	Answer      int      `json:"correct_answer" yaml:"answer"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

// Catalog is the static content of one ruleset.
type Catalog struct {
	Ruleset       string         `yaml:"ruleset"`
	Banner        string         `yaml:"banner"`
	DecisionTypes []DecisionType `yaml:"decision_types"`
	Options       []Option       `yaml:"options"`
	Scenarios     []Scenario     `yaml:"scenarios"`
	Challenges    []Challenge    `yaml:"challenges"`
	Facts         []Fact         `yaml:"facts"`
	Trivia        []Trivia       `yaml:"trivia"`
}

// Builtin returns the embedded catalog for a ruleset.
func Builtin(ruleset string) (*Catalog, error) {
	data, err := builtinFS.ReadFile("catalogs/" + ruleset + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no builtin catalog for ruleset %q: %w", ruleset, err)
	}
	return Parse(data)
}

// LoadFile parses a catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

// HasDecisionType reports whether t is one of the catalog's decision types.
func (c *Catalog) HasDecisionType(t DecisionType) bool {
	for _, dt := range c.DecisionTypes {
		if dt == t {
			return true
		}
	}
	return false
}

// Validate checks structural rules against the metric registry and rewrites
// each difficulty to its canonical tier. Delta fields the registry does not
// know are logged, not rejected.
func (c *Catalog) Validate(reg *metrics.Registry) error {
	if len(c.Scenarios) == 0 {
		return errors.New("catalog has no scenarios")
	}

	titles := make(map[string]bool, len(c.Scenarios))
	for i := range c.Scenarios {
		s := &c.Scenarios[i]
		if s.Title == "" {
			return errors.New("scenario with empty title")
		}
		if titles[s.Title] {
			return fmt.Errorf("scenario %q declared twice", s.Title)
		}
		titles[s.Title] = true

		if !c.HasDecisionType(s.DecisionType) {
			return fmt.Errorf("scenario %q: unknown decision type %q", s.Title, s.DecisionType)
		}
		tier, err := ParseDifficulty(string(s.Difficulty))
		if err != nil {
			return fmt.Errorf("scenario %q: %w", s.Title, err)
		}
		s.Difficulty = tier
		if len(s.Choices) == 0 {
			return fmt.Errorf("scenario %q has no choices", s.Title)
		}

		ids := make(map[string]bool, len(s.Choices))
		for _, ch := range s.Choices {
			if ch.ID == "" || ids[ch.ID] {
				return fmt.Errorf("scenario %q: missing or duplicate choice id %q", s.Title, ch.ID)
			}
			ids[ch.ID] = true

			for _, field := range reg.Unknown(ch.Deltas) {
				suggestion, _ := reg.Suggest(field)
				slog.Debug("catalog references unknown metric",
					"scenario", s.Title, "choice", ch.ID, "field", field, "suggestion", suggestion)
			}
		}
	}

	for _, ch := range c.Challenges {
		for field := range ch.Requirements {
			if !reg.Has(field) {
				return fmt.Errorf("challenge %q requires unknown metric %q", ch.Title, field)
			}
		}
	}

	return nil
}

// Get returns the scenario with the given title.
func (c *Catalog) Get(title string) (Scenario, error) {
	return find(c.Scenarios, title)
}

// Intner is the subset of *rand.Rand used for scenario selection.
type Intner interface {
	Intn(n int) int
}

// pick returns a random scenario of type filter (all types when empty).
// When nothing matches, the first scenario is returned.
func pick(scenarios []Scenario, rng Intner, filter DecisionType) (Scenario, error) {
	if len(scenarios) == 0 {
		return Scenario{}, ErrNotFound
	}
	candidates := scenarios
	if filter != "" {
		candidates = nil
		for _, s := range scenarios {
			if s.DecisionType == filter {
				candidates = append(candidates, s)
			}
		}
	}
	if len(candidates) == 0 {
		return scenarios[0], nil
	}
	return candidates[rng.Intn(len(candidates))], nil
}

func find(scenarios []Scenario, title string) (Scenario, error) {
	for _, s := range scenarios {
		if s.Title == title {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %q", ErrNotFound, title)
}
