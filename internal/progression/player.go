// Package progression tracks player experience, levels and achievements.
package progression

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Player is the mutable progression aggregate of one player.
type Player struct {
	ID                    string         `json:"id" db:"id"`
	Name                  string         `json:"name" db:"name"`
	EntityID              string         `json:"entity_id" db:"entity_id"`
	Level                 int            `json:"level" db:"level"`
	Experience            int            `json:"experience_points" db:"experience"`
	TotalDecisions        int            `json:"total_decisions" db:"total_decisions"`
	SuccessfulDecisions   int            `json:"successful_decisions" db:"successful_decisions"`
	DecisionsByType       map[string]int `json:"decisions_by_type" db:"-"`
	DecisionsByDifficulty map[string]int `json:"decisions_by_difficulty" db:"-"`
	ExperienceByType      map[string]int `json:"experience_by_category" db:"-"`
	Achievements          []string       `json:"achievements" db:"-"` // Set semantics; order irrelevant
	CompletedChallenges   []string       `json:"completed_challenges" db:"-"`
	CreatedAt             time.Time      `json:"created_at" db:"created_at"`
}

// NewPlayer returns a level-1 player with zeroed counters.
func NewPlayer(name, entityID string, now time.Time) Player {
	return Player{
		ID:                    uuid.New().String(),
		Name:                  name,
		EntityID:              entityID,
		Level:                 1,
		DecisionsByType:       map[string]int{},
		DecisionsByDifficulty: map[string]int{},
		ExperienceByType:      map[string]int{},
		Achievements:          []string{},
		CompletedChallenges:   []string{},
		CreatedAt:             now.UTC(),
	}
}

// Clone returns a deep copy.
func (p Player) Clone() Player {
	cp := p
	cp.DecisionsByType = cloneCounts(p.DecisionsByType)
	cp.DecisionsByDifficulty = cloneCounts(p.DecisionsByDifficulty)
	cp.ExperienceByType = cloneCounts(p.ExperienceByType)
	cp.Achievements = append([]string{}, p.Achievements...)
	cp.CompletedChallenges = append([]string{}, p.CompletedChallenges...)
	return cp
}

// HasAchievement reports whether tag is unlocked.
func (p Player) HasAchievement(tag string) bool {
	return slices.Contains(p.Achievements, tag)
}

// HasChallenge reports whether the challenge was already completed.
func (p Player) HasChallenge(title string) bool {
	return slices.Contains(p.CompletedChallenges, title)
}

// SuccessRate returns successful decisions as a percentage of all decisions.
func (p Player) SuccessRate() float64 {
	return float64(p.SuccessfulDecisions) / float64(max(1, p.TotalDecisions)) * 100
}

func (p Player) String() string {
	return fmt.Sprintf("%s (level %d, %d xp)", p.Name, p.Level, p.Experience)
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
