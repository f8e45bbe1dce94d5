// Package scoring turns an applied delta map into a single decision score.
package scoring

import (
	"math"

	"github.com/talgya/empire-sim/internal/metrics"
	"github.com/talgya/empire-sim/internal/scenario"
)

// DefaultBase is the fixed credit every decision starts from.
const DefaultBase = 10

// Financial health normalizes the prior cash position to this amount.
const financialHealthScale = 100000.0

// Options selects which terms of the formula are active.
type Options struct {
	Base            float64 `json:"base"`
	BalanceBonus    bool    `json:"balance_bonus"`    // +2 per non-zero delta
	TrackDifficulty bool    `json:"track_difficulty"` // Multiply by the scenario tier
	FinancialHealth bool    `json:"financial_health"` // +prior/100000 × 10
	Max             int     `json:"max,omitempty"`    // Upper clamp; 0 = unbounded
}

// Breakdown exposes the intermediate terms of a score.
type Breakdown struct {
	Positive   float64 `json:"positive"`
	Negative   float64 `json:"negative"`
	Balance    float64 `json:"balance_bonus"`
	Health     float64 `json:"financial_health"`
	Multiplier float64 `json:"multiplier"`
	Raw        float64 `json:"raw"`
	Score      int     `json:"score"`
}

// Score computes the reward for a decision. prior is the optional prior
// financial state (cash) used by the financial-health term.
func Score(d metrics.Deltas, opts Options, difficulty scenario.Difficulty, prior *float64) int {
	return Explain(d, opts, difficulty, prior).Score
}

// Explain computes the score and returns every term that went into it.
func Explain(d metrics.Deltas, opts Options, difficulty scenario.Difficulty, prior *float64) Breakdown {
	var b Breakdown
	touched := 0
	for _, v := range d {
		if !finite(v) {
			continue
		}
		if v > 0 {
			b.Positive += v
		} else {
			b.Negative += v
		}
		if v != 0 {
			touched++
		}
	}

	if opts.BalanceBonus {
		b.Balance = 2 * float64(touched)
	}
	if opts.FinancialHealth && prior != nil && finite(*prior) {
		b.Health = *prior / financialHealthScale * 10
	}

	b.Raw = opts.Base + b.Positive - math.Abs(b.Negative) + b.Balance + b.Health

	b.Multiplier = 1
	if opts.TrackDifficulty {
		if difficulty == "" {
			difficulty = scenario.Medium
		}
		b.Multiplier = difficulty.Multiplier()
	}

	b.Score = clamp(b.Raw*b.Multiplier, opts.Max)
	return b
}

func clamp(v float64, max int) int {
	if !finite(v) {
		if v > 0 && max > 0 {
			return max
		}
		return 1
	}
	// Clamp before converting so huge deltas cannot overflow int.
	if max > 0 && v > float64(max) {
		return max
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
