package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/empire-sim/internal/economy"
	"github.com/talgya/empire-sim/internal/metrics"
	"github.com/talgya/empire-sim/internal/progression"
	"github.com/talgya/empire-sim/internal/scoring"
)

// Outcome is the result of one completed decision cycle.
type Outcome struct {
	Record             DecisionRecord                `json:"decision"`
	Score              int                           `json:"score"`
	Breakdown          scoring.Breakdown             `json:"score_breakdown"`
	Progress           progression.Progress          `json:"progress"`
	Player             progression.Player            `json:"player"`
	Entity             Entity                        `json:"entity"`
	UpdatedIndicators  map[string]map[string]float64 `json:"updated_indicators"`
	Report             map[string]float64            `json:"monthly_report"`
	CompletedChallenge []string                      `json:"completed_challenges"`
	LearningObjective  string                        `json:"learning_objective"`
	EducationalContent string                        `json:"educational_content,omitempty"`
	Summary            string                        `json:"summary"`
}

// Decide runs one full decision cycle. An out-of-range choice index aborts
// before anything is applied or stored.
func (e *Engine) Decide(ctx context.Context, playerID, scenarioTitle string, choiceIndex int) (Outcome, error) {
	stage := func(s Stage) {
		e.log.Debug("decision stage", "player", playerID, "scenario", scenarioTitle, "stage", s)
	}
	stage(StageAwaitingChoice)

	player, entity, err := e.load(ctx, playerID)
	if err != nil {
		return Outcome{}, err
	}
	sc, err := e.scenarios.Get(ctx, scenarioTitle)
	if err != nil {
		return Outcome{}, fmt.Errorf("get scenario: %w", err)
	}
	choice, err := sc.Choice(choiceIndex)
	if err != nil {
		return Outcome{}, err
	}
	stage(StageChoiceSubmitted)

	updated := e.rules.Registry.Apply(entity.Metrics, choice.Deltas)
	stage(StageConsequencesApplied)

	var prior *float64
	if e.rules.Scoring.FinancialHealth {
		cash := e.snapshotCash(updated)
		prior = &cash
	}
	breakdown := scoring.Explain(choice.Deltas, e.rules.Scoring, sc.Tier(), prior)
	stage(StageScored)

	nextPlayer, progress := progression.Advance(player, breakdown.Score, string(sc.DecisionType), string(sc.Tier()), e.rules.Progression)
	updated, nextPlayer, completed := e.awardChallenges(updated, nextPlayer)
	if nextPlayer.Level > player.Level {
		progress.LevelUp = true
	}
	stage(StageProgressionUpdated)

	now := e.now().UTC()
	rec := DecisionRecord{
		ID:            uuid.New().String(),
		PlayerID:      player.ID,
		DecisionType:  string(sc.DecisionType),
		ScenarioTitle: sc.Title,
		ChoiceID:      choice.ID,
		ChoiceText:    choice.Text,
		Difficulty:    string(sc.Tier()),
		Deltas:        e.rules.Registry.Known(choice.Deltas),
		Score:         breakdown.Score,
		CreatedAt:     now,
	}

	entity.Metrics = updated
	if err := e.store.SaveDecision(ctx, entity, nextPlayer, rec); err != nil {
		return Outcome{}, fmt.Errorf("save decision: %w", err)
	}
	stage(StagePersisted)

	summary := fmt.Sprintf("%s chose %q: score %d, %s now %s",
		nextPlayer.Name, choice.ID, breakdown.Score, e.rules.CashField,
		economy.FormatCash(e.snapshotCash(updated)))

	e.log.Info("decision made",
		"player", player.ID,
		"scenario", sc.Title,
		"choice", choice.ID,
		"score", breakdown.Score,
		"raw", economy.FormatAmount(breakdown.Raw),
		"xp", progress.XPGained,
		"level", nextPlayer.Level,
		"level_up", progress.LevelUp,
		"unlocked", progress.Unlocked,
	)

	return Outcome{
		Record:             rec,
		Score:              breakdown.Score,
		Breakdown:          breakdown,
		Progress:           progress,
		Player:             nextPlayer,
		Entity:             entity,
		UpdatedIndicators:  touched(e.rules.Registry, updated, choice.Deltas),
		Report:             e.rules.Reporter.Report(entity.ID, nextPlayer.TotalDecisions, updated),
		CompletedChallenge: completed,
		LearningObjective:  sc.LearningObjective,
		EducationalContent: sc.EducationalContent,
		Summary:            summary,
	}, nil
}

// awardChallenges credits every challenge the new snapshot satisfies that the
// player has not completed yet.
func (e *Engine) awardChallenges(s metrics.Snapshot, p progression.Player) (metrics.Snapshot, progression.Player, []string) {
	var completed []string
	for _, c := range e.scenarios.Catalog().Challenges {
		if p.HasChallenge(c.Title) || !c.Met(s) {
			continue
		}
		var ok bool
		p, ok = progression.AwardChallenge(p, c.Title, c.RewardXP, e.rules.Progression)
		if !ok {
			continue
		}
		if c.RewardCash != 0 {
			s = e.rules.Registry.Apply(s, metrics.Deltas{e.rules.CashField: c.RewardCash})
		}
		completed = append(completed, c.Title)
		e.log.Info("challenge completed", "player", p.ID, "challenge", c.Title, "reward_xp", c.RewardXP,
			"reward_cash", economy.FormatCash(c.RewardCash))
	}
	return s, p, completed
}

// touched returns the categories of s that own at least one delta field.
func touched(reg *metrics.Registry, s metrics.Snapshot, d metrics.Deltas) map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for _, cat := range reg.Touched(d) {
		fields := make(map[string]float64, len(s[cat]))
		for k, v := range s[cat] {
			fields[k] = v
		}
		out[cat] = fields
	}
	return out
}
