package engine

import (
	"fmt"

	"github.com/talgya/empire-sim/internal/economy"
	"github.com/talgya/empire-sim/internal/metrics"
	"github.com/talgya/empire-sim/internal/progression"
	"github.com/talgya/empire-sim/internal/scoring"
)

// Ruleset bundles the registry, formulas and policies of one game variant.
type Ruleset struct {
	Name        string
	EntityKind  string
	CashField   string // Field credited by challenge cash rewards
	Registry    *metrics.Registry
	Scoring     scoring.Options
	Progression progression.Rules
	Reporter    economy.Reporter
}

// BusinessRuleset is the single-company variant: 0–100 success scores with a
// financial-health term and threshold levelling.
func BusinessRuleset() Ruleset {
	return Ruleset{
		Name:       "business",
		EntityKind: "company",
		CashField:  "cash",
		Registry:   metrics.CompanyRegistry(),
		Scoring: scoring.Options{
			Base:            scoring.DefaultBase,
			FinancialHealth: true,
			Max:             100,
		},
		Progression: progression.Rules{
			XP:               progression.XPDerived,
			Level:            progression.Threshold,
			SuccessThreshold: 70,
			Achievements: []progression.AchievementRule{
				{Tag: "Business Rookie", Count: 10},
				{Tag: "Supply Chain Savvy", DecisionType: "materials", Count: 3},
				{Tag: "Marketing Maven", DecisionType: "marketing", Count: 3},
				{Tag: "Seasoned Executive", Count: 50},
			},
		},
		Reporter: economy.MonthlyReport{},
	}
}

// GlobalRuleset is the country variant: balance bonus and difficulty
// multiplier in the score, a level every five decisions.
func GlobalRuleset() Ruleset {
	reg := metrics.CountryRegistry()
	return Ruleset{
		Name:       "global",
		EntityKind: "country",
		CashField:  "treasury",
		Registry:   reg,
		Scoring: scoring.Options{
			Base:            scoring.DefaultBase,
			BalanceBonus:    true,
			TrackDifficulty: true,
		},
		Progression: progression.Rules{
			XP:               progression.XPScore,
			Level:            progression.FixedInterval,
			LevelInterval:    5,
			SuccessThreshold: 70,
			Achievements: []progression.AchievementRule{
				{Tag: "Global Leader", Count: 25},
				{Tag: "Trade Negotiator", DecisionType: "trade", Count: 3},
				{Tag: "Cultural Diplomat", DecisionType: "cultural", Count: 3},
				{Tag: "Green Champion", DecisionType: "environmental", Count: 3},
				{Tag: "Investment Magnet", DecisionType: "business", Count: 3},
				{Tag: "Industrial Titan", DecisionType: "manufacturing", Count: 3},
				{Tag: "Logistics Expert", DecisionType: "logistics", Count: 3},
				{Tag: "People First", DecisionType: "human_resources", Count: 3},
				{Tag: "Brand Ambassador", DecisionType: "marketing", Count: 3},
				{Tag: "Bold Strategist", Difficulty: "hard", Count: 5},
			},
		},
		Reporter: economy.IndexReport{Registry: reg},
	}
}

// RulesetByName returns the named built-in ruleset.
func RulesetByName(name string) (Ruleset, error) {
	switch name {
	case "business":
		return BusinessRuleset(), nil
	case "global":
		return GlobalRuleset(), nil
	}
	return Ruleset{}, fmt.Errorf("unknown ruleset %q", name)
}

// WithLevelPolicy returns a copy of the ruleset using a different level policy.
func (r Ruleset) WithLevelPolicy(p progression.LevelPolicy) Ruleset {
	r.Progression.Level = p
	if p == progression.FixedInterval && r.Progression.LevelInterval <= 0 {
		r.Progression.LevelInterval = 5
	}
	return r
}
