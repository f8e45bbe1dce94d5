package engine

import (
	"context"
	"fmt"
	"sort"
)

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	PlayerID    string  `json:"player_id"`
	PlayerName  string  `json:"player_name"`
	EntityName  string  `json:"entity_name"`
	Sector      string  `json:"sector"`
	Level       int     `json:"level"`
	Experience  int     `json:"experience_points"`
	Decisions   int     `json:"total_decisions"`
	SuccessRate float64 `json:"success_rate"`
	Headline    float64 `json:"headline"`
}

const defaultLeaderboardSize = 10

// Leaderboard returns the top n players by experience. n <= 0 uses the
// default size.
func (e *Engine) Leaderboard(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if n <= 0 {
		n = defaultLeaderboardSize
	}
	players, err := e.store.TopPlayers(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("top players: %w", err)
	}

	headline := e.rules.Reporter.Headline()
	out := make([]LeaderboardEntry, 0, len(players))
	for i, p := range players {
		entry := LeaderboardEntry{
			Rank:        i + 1,
			PlayerID:    p.ID,
			PlayerName:  p.Name,
			Level:       p.Level,
			Experience:  p.Experience,
			Decisions:   p.TotalDecisions,
			SuccessRate: p.SuccessRate(),
		}
		ent, err := e.store.GetEntity(ctx, p.EntityID)
		if err != nil {
			e.log.Warn("leaderboard entity missing", "player", p.ID, "entity", p.EntityID, "error", err)
			out = append(out, entry)
			continue
		}
		snap := e.rules.Registry.Normalize(ent.Metrics)
		entry.EntityName = ent.Name
		entry.Sector = ent.Sector
		entry.Headline = e.rules.Reporter.Report(ent.ID, p.TotalDecisions, snap)[headline]
		out = append(out, entry)
	}
	return out, nil
}

// TypeStats summarizes one decision type for a player.
type TypeStats struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
	BestScore    int     `json:"best_score"`
}

// Analytics is the per-player learning summary.
type Analytics struct {
	PlayerID             string               `json:"player_id"`
	Level                int                  `json:"level"`
	Experience           int                  `json:"experience_points"`
	TotalDecisions       int                  `json:"total_decisions"`
	SuccessfulDecisions  int                  `json:"successful_decisions"`
	SuccessRate          float64              `json:"success_rate"`
	AverageScore         float64              `json:"average_score"`
	DecisionBreakdown    map[string]TypeStats `json:"decision_breakdown"`
	DifficultyBreakdown  map[string]int       `json:"difficulty_breakdown"`
	ExperienceByCategory map[string]int       `json:"experience_by_category"`
	Achievements         []string             `json:"achievements"`
	CompletedChallenges  []string             `json:"completed_challenges"`
	RecentDecisions      []DecisionRecord     `json:"recent_decisions"`
}

const recentDecisions = 5

// Analytics aggregates the player's decision log.
func (e *Engine) Analytics(ctx context.Context, playerID string) (Analytics, error) {
	p, err := e.store.GetPlayer(ctx, playerID)
	if err != nil {
		return Analytics{}, fmt.Errorf("get player %s: %w", playerID, err)
	}
	recs, err := e.store.PlayerDecisions(ctx, playerID)
	if err != nil {
		return Analytics{}, fmt.Errorf("player decisions: %w", err)
	}

	a := Analytics{
		PlayerID:             p.ID,
		Level:                p.Level,
		Experience:           p.Experience,
		TotalDecisions:       p.TotalDecisions,
		SuccessfulDecisions:  p.SuccessfulDecisions,
		SuccessRate:          p.SuccessRate(),
		DecisionBreakdown:    make(map[string]TypeStats),
		DifficultyBreakdown:  make(map[string]int, len(p.DecisionsByDifficulty)),
		ExperienceByCategory: make(map[string]int, len(p.ExperienceByType)),
		Achievements:         append([]string{}, p.Achievements...),
		CompletedChallenges:  append([]string{}, p.CompletedChallenges...),
	}
	for k, v := range p.DecisionsByDifficulty {
		a.DifficultyBreakdown[k] = v
	}
	for k, v := range p.ExperienceByType {
		a.ExperienceByCategory[k] = v
	}

	totals := make(map[string]int)
	var sum int
	for _, r := range recs {
		st := a.DecisionBreakdown[r.DecisionType]
		if st.Count == 0 || r.Score > st.BestScore {
			st.BestScore = r.Score
		}
		st.Count++
		totals[r.DecisionType] += r.Score
		a.DecisionBreakdown[r.DecisionType] = st
		sum += r.Score
	}
	for t, st := range a.DecisionBreakdown {
		st.AverageScore = float64(totals[t]) / float64(st.Count)
		a.DecisionBreakdown[t] = st
	}
	if len(recs) > 0 {
		a.AverageScore = float64(sum) / float64(len(recs))
	}

	sorted := append([]DecisionRecord{}, recs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	if len(sorted) > recentDecisions {
		sorted = sorted[:recentDecisions]
	}
	a.RecentDecisions = sorted
	return a, nil
}
