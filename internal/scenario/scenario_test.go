package scenario

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/empire-sim/internal/metrics"
)

func TestBuiltinCatalogsValidate(t *testing.T) {
	cases := map[string]*metrics.Registry{
		"business": metrics.CompanyRegistry(),
		"global":   metrics.CountryRegistry(),
	}
	for ruleset, reg := range cases {
		t.Run(ruleset, func(t *testing.T) {
			cat, err := Builtin(ruleset)
			require.NoError(t, err)
			assert.Equal(t, ruleset, cat.Ruleset)
			require.NoError(t, cat.Validate(reg))

			for _, s := range cat.Scenarios {
				for _, ch := range s.Choices {
					assert.Empty(t, reg.Unknown(ch.Deltas), "%s/%s", s.Title, ch.ID)
				}
			}
		})
	}
}

func TestBuiltin_UnknownRuleset(t *testing.T) {
	_, err := Builtin("pirates")
	assert.Error(t, err)
}

func TestBuiltinBusinessMatchesSourceData(t *testing.T) {
	cat, err := Builtin("business")
	require.NoError(t, err)

	s, err := cat.Get("Raw Material Sourcing Decision")
	require.NoError(t, err)
	require.Len(t, s.Choices, 4)
	assert.Equal(t, "sustainable_fair", s.Choices[2].ID)
	assert.Equal(t, 2.5, s.Choices[2].Deltas["material_cost_per_unit"])
	assert.Equal(t, Medium, s.Tier())

	require.Len(t, cat.Challenges, 2)
	assert.Equal(t, 85.0, cat.Challenges[0].Requirements["efficiency"])
	assert.Len(t, cat.Options, 6)
}

func TestScenario_Choice(t *testing.T) {
	s := Scenario{Title: "t", Choices: []Choice{{ID: "a"}, {ID: "b"}, {ID: "c"}}}

	ch, err := s.Choice(2)
	require.NoError(t, err)
	assert.Equal(t, "c", ch.ID)

	for _, idx := range []int{3, 7, -1} {
		_, err := s.Choice(idx)
		assert.True(t, errors.Is(err, ErrInvalidChoice), "index %d", idx)
	}
}

func TestParseDifficulty(t *testing.T) {
	cases := []struct {
		in   string
		want Difficulty
		mult float64
	}{
		{"", Medium, 1.5},
		{"easy", Easy, 1.0},
		{"MEDIUM", Medium, 1.5},
		{" hard ", Hard, 2.0},
	}
	for _, tc := range cases {
		got, err := ParseDifficulty(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.mult, got.Multiplier())
	}

	_, err := ParseDifficulty("nightmare")
	assert.Error(t, err)
}

func TestChallenge_Met(t *testing.T) {
	c := Challenge{Requirements: map[string]float64{"efficiency": 85}}

	assert.False(t, c.Met(metrics.Snapshot{"business": {"efficiency": 84.9}}))
	assert.True(t, c.Met(metrics.Snapshot{"business": {"efficiency": 85}}))
	assert.False(t, Challenge{}.Met(metrics.Snapshot{}))
}

func TestValidate_Rejects(t *testing.T) {
	reg := metrics.CompanyRegistry()
	base := func() *Catalog {
		return &Catalog{
			DecisionTypes: []DecisionType{"finance"},
			Scenarios: []Scenario{{
				Title:        "One",
				DecisionType: "finance",
				Choices:      []Choice{{ID: "a", Deltas: metrics.Deltas{"cash": 1}}},
			}},
		}
	}

	require.NoError(t, base().Validate(reg))

	cases := map[string]func(c *Catalog){
		"no scenarios":     func(c *Catalog) { c.Scenarios = nil },
		"duplicate title":  func(c *Catalog) { c.Scenarios = append(c.Scenarios, c.Scenarios[0]) },
		"unknown type":     func(c *Catalog) { c.Scenarios[0].DecisionType = "pirates" },
		"bad difficulty":   func(c *Catalog) { c.Scenarios[0].Difficulty = "brutal" },
		"no choices":       func(c *Catalog) { c.Scenarios[0].Choices = nil },
		"duplicate choice": func(c *Catalog) { c.Scenarios[0].Choices = append(c.Scenarios[0].Choices, Choice{ID: "a"}) },
		"challenge field": func(c *Catalog) {
			c.Challenges = []Challenge{{Title: "x", Requirements: map[string]float64{"mana": 1}}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			assert.Error(t, c.Validate(reg))
		})
	}
}

func TestValidate_UnknownDeltaFieldIsNotAnError(t *testing.T) {
	c := &Catalog{
		DecisionTypes: []DecisionType{"finance"},
		Scenarios: []Scenario{{
			Title:        "Typo",
			DecisionType: "finance",
			Choices:      []Choice{{ID: "a", Deltas: metrics.Deltas{"csah": 1}}},
		}},
	}
	assert.NoError(t, c.Validate(metrics.CompanyRegistry()))
}

func TestValidate_CanonicalisesDifficulty(t *testing.T) {
	cat, err := Parse([]byte(`
decision_types: [trade]
scenarios:
  - title: Tariff War
    decision_type: trade
    difficulty: " Hard "
    choices:
      - id: retaliate
        deltas: {trade_balance: -5}
  - title: Port Upgrade
    decision_type: trade
    choices:
      - id: build
        deltas: {trade_balance: 4}
`))
	require.NoError(t, err)
	require.NoError(t, cat.Validate(metrics.CountryRegistry()))

	assert.Equal(t, Hard, cat.Scenarios[0].Difficulty)
	assert.Equal(t, 2.0, cat.Scenarios[0].Tier().Multiplier())
	assert.Equal(t, Medium, cat.Scenarios[1].Difficulty)
}

func TestScenario_TierIgnoresCase(t *testing.T) {
	assert.Equal(t, Hard, Scenario{Difficulty: "HARD"}.Tier())
	assert.Equal(t, Easy, Scenario{Difficulty: "Easy"}.Tier())
	assert.Equal(t, Medium, Scenario{Difficulty: "brutal"}.Tier())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte(`
ruleset: business
decision_types: [finance]
scenarios:
  - title: Loan Offer
    decision_type: finance
    difficulty: hard
    choices:
      - id: accept
        text: Accept the loan
        deltas: {cash: 50000, profit_margin: -2}
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cat, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, cat.Scenarios, 1)
	assert.Equal(t, Hard, cat.Scenarios[0].Tier())
	assert.Equal(t, 50000.0, cat.Scenarios[0].Choices[0].Deltas["cash"])

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type fakeStore struct {
	list []Scenario
	err  error
}

func (f fakeStore) ListScenarios(context.Context) ([]Scenario, error) {
	return f.list, f.err
}

func TestSource_FallsBackWhenStoreEmpty(t *testing.T) {
	cat, err := Builtin("business")
	require.NoError(t, err)
	src := NewSource(fakeStore{}, cat, rand.New(rand.NewSource(1)))

	s, err := src.Get(context.Background(), "Marketing Campaign Strategy")
	require.NoError(t, err)
	assert.Equal(t, DecisionType("marketing"), s.DecisionType)

	n, err := src.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(cat.Scenarios), n)
}

func TestSource_PrefersStoreContents(t *testing.T) {
	cat, err := Builtin("business")
	require.NoError(t, err)
	stored := []Scenario{{Title: "Stored", DecisionType: "finance", Choices: []Choice{{ID: "x"}}}}
	src := NewSource(fakeStore{list: stored}, cat, rand.New(rand.NewSource(1)))

	s, err := src.Random(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Stored", s.Title)

	_, err = src.Get(context.Background(), "Marketing Campaign Strategy")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSource_StoreError(t *testing.T) {
	cat, err := Builtin("business")
	require.NoError(t, err)
	src := NewSource(fakeStore{err: errors.New("boom")}, cat, rand.New(rand.NewSource(1)))

	_, err = src.Random(context.Background(), "")
	assert.Error(t, err)
}

func TestSource_RandomFilter(t *testing.T) {
	cat, err := Builtin("global")
	require.NoError(t, err)
	src := NewSource(nil, cat, rand.New(rand.NewSource(3)))

	for _, dt := range cat.DecisionTypes {
		s, err := src.Random(context.Background(), dt)
		require.NoError(t, err)
		assert.Equal(t, dt, s.DecisionType)
	}
}

func TestSource_RandomFilterWithoutMatchReturnsFirst(t *testing.T) {
	cat := &Catalog{Scenarios: []Scenario{{Title: "First", DecisionType: "a"}, {Title: "Second", DecisionType: "a"}}}
	src := NewSource(nil, cat, rand.New(rand.NewSource(3)))

	s, err := src.Random(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "First", s.Title)
}
