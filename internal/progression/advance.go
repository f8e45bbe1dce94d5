package progression

import (
	"fmt"
	"strings"
)

// LevelPolicy selects how levels are earned.
type LevelPolicy string

const (
	// Threshold levels up whenever experience reaches level × 100.
	Threshold LevelPolicy = "threshold"
	// FixedInterval levels up every LevelInterval decisions regardless of score.
	FixedInterval LevelPolicy = "fixed_interval"
)

// ParseLevelPolicy maps a policy name to a LevelPolicy.
func ParseLevelPolicy(s string) (LevelPolicy, error) {
	switch p := LevelPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case Threshold, FixedInterval:
		return p, nil
	}
	return "", fmt.Errorf("unknown level policy %q", s)
}

// XPPolicy selects how a score converts to experience.
type XPPolicy string

const (
	// XPScore grants the score itself as experience.
	XPScore XPPolicy = "score"
	// XPDerived grants score/10 + 10.
	XPDerived XPPolicy = "derived"
)

// AchievementRule unlocks Tag once the matching decision counter reaches Count.
// Empty DecisionType and Difficulty match every decision.
type AchievementRule struct {
	Tag          string `json:"tag"`
	DecisionType string `json:"decision_type,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
	Count        int    `json:"count"`
}

// Rules configures the tracker.
type Rules struct {
	XP               XPPolicy          `json:"xp_policy"`
	Level            LevelPolicy       `json:"level_policy"`
	LevelInterval    int               `json:"level_interval,omitempty"` // FixedInterval only
	SuccessThreshold int               `json:"success_threshold"`        // Score must exceed this
	Achievements     []AchievementRule `json:"achievements"`
}

// Progress reports what one Advance call changed.
type Progress struct {
	XPGained int      `json:"xp_gained"`
	LevelUp  bool     `json:"level_up"`
	Success  bool     `json:"success"`
	Unlocked []string `json:"unlocked_achievements"`
}

// XPFor converts a score to experience under the policy.
func (r Rules) XPFor(score int) int {
	if r.XP == XPDerived {
		return score/10 + 10
	}
	return score
}

// Advance records one scored decision on a copy of p.
func Advance(p Player, scoreGained int, decisionType, difficulty string, r Rules) (Player, Progress) {
	next := p.Clone()
	if next.Level < 1 {
		next.Level = 1
	}
	startLevel := next.Level

	xp := r.XPFor(scoreGained)
	next.Experience += xp
	next.ExperienceByType[decisionType] += xp
	next.TotalDecisions++
	next.DecisionsByType[decisionType]++
	if difficulty != "" {
		next.DecisionsByDifficulty[difficulty]++
	}

	success := scoreGained > r.SuccessThreshold
	if success {
		next.SuccessfulDecisions++
	}

	next.Level = r.levelFor(next)

	return next, Progress{
		XPGained: xp,
		LevelUp:  next.Level > startLevel,
		Success:  success,
		Unlocked: r.unlock(&next),
	}
}

// AwardChallenge credits a completed challenge once. The second return is
// false when the challenge had already been awarded.
func AwardChallenge(p Player, title string, xp int, r Rules) (Player, bool) {
	if p.HasChallenge(title) {
		return p, false
	}
	next := p.Clone()
	next.CompletedChallenges = append(next.CompletedChallenges, title)
	next.Experience += xp
	next.Level = r.levelFor(next)
	return next, true
}

func (r Rules) levelFor(p Player) int {
	switch r.Level {
	case FixedInterval:
		interval := r.LevelInterval
		if interval <= 0 {
			interval = 5
		}
		return max(p.Level, 1+p.TotalDecisions/interval)
	default:
		level := max(p.Level, 1)
		for p.Experience >= level*100 {
			level++
		}
		return level
	}
}

func (r Rules) unlock(p *Player) []string {
	var unlocked []string
	for _, rule := range r.Achievements {
		if rule.Count <= 0 || p.HasAchievement(rule.Tag) {
			continue
		}
		if counterFor(*p, rule) >= rule.Count {
			p.Achievements = append(p.Achievements, rule.Tag)
			unlocked = append(unlocked, rule.Tag)
		}
	}
	return unlocked
}

func counterFor(p Player, rule AchievementRule) int {
	switch {
	case rule.DecisionType != "":
		return p.DecisionsByType[rule.DecisionType]
	case rule.Difficulty != "":
		return p.DecisionsByDifficulty[rule.Difficulty]
	default:
		return p.TotalDecisions
	}
}
