package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/empire-sim/internal/metrics"
	"github.com/talgya/empire-sim/internal/progression"
	"github.com/talgya/empire-sim/internal/scenario"
)

// Engine holds the store handles, scenario source and ruleset for one game.
type Engine struct {
	rules     Ruleset
	store     Store
	scenarios *scenario.Source
	now       func() time.Time
	log       *slog.Logger

	unknownFields atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an Engine.
func New(rules Ruleset, store Store, scenarios *scenario.Source, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		scenarios: scenarios,
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	rules.Registry = rules.Registry.WithUnknownFieldHook(e.onUnknownField)
	e.rules = rules
	return e
}

// Rules returns the active ruleset.
func (e *Engine) Rules() Ruleset {
	return e.rules
}

// Scenarios returns the scenario source.
func (e *Engine) Scenarios() *scenario.Source {
	return e.scenarios
}

// UnknownFieldCount returns how many delta fields were skipped because the
// registry did not know them.
func (e *Engine) UnknownFieldCount() int64 {
	return e.unknownFields.Load()
}

func (e *Engine) onUnknownField(field, suggestion string) {
	e.unknownFields.Add(1)
	e.log.Debug("ignoring unknown metric in deltas", "field", field, "suggestion", suggestion, "ruleset", e.rules.Name)
}

// StartGame creates an entity with default metrics and its player.
func (e *Engine) StartGame(ctx context.Context, playerName, entityName, sector string) (progression.Player, Entity, error) {
	playerName = strings.TrimSpace(playerName)
	entityName = strings.TrimSpace(entityName)
	if playerName == "" || entityName == "" {
		return progression.Player{}, Entity{}, fmt.Errorf("%w: player and %s names are required", ErrInvalidInput, e.rules.EntityKind)
	}

	now := e.now().UTC()
	entity := Entity{
		ID:        uuid.New().String(),
		Kind:      e.rules.EntityKind,
		Name:      entityName,
		Sector:    strings.TrimSpace(sector),
		Metrics:   e.rules.Registry.Defaults(),
		CreatedAt: now,
	}
	player := progression.NewPlayer(playerName, entity.ID, now)

	if err := e.store.CreateGame(ctx, entity, player); err != nil {
		return progression.Player{}, Entity{}, fmt.Errorf("create game: %w", err)
	}

	e.log.Info("game started", "player", player.ID, "name", playerName, e.rules.EntityKind, entityName, "sector", entity.Sector)
	return player, entity, nil
}

// ChallengeStatus pairs a challenge with whether the player completed it.
type ChallengeStatus struct {
	scenario.Challenge
	Completed bool `json:"completed"`
}

// State is everything the client needs to render a turn.
type State struct {
	Player          progression.Player `json:"player"`
	Entity          Entity             `json:"entity"`
	CurrentScenario *scenario.Scenario `json:"current_scenario"`
	Report          map[string]float64 `json:"monthly_report"`
	Challenges      []ChallengeStatus  `json:"available_challenges"`
}

// GameState loads the player's current state and draws a scenario.
func (e *Engine) GameState(ctx context.Context, playerID string) (State, error) {
	player, entity, err := e.load(ctx, playerID)
	if err != nil {
		return State{}, err
	}

	sc, err := e.scenarios.Random(ctx, "")
	if err != nil {
		return State{}, fmt.Errorf("draw scenario: %w", err)
	}

	return State{
		Player:          player,
		Entity:          entity,
		CurrentScenario: &sc,
		Report:          e.rules.Reporter.Report(entity.ID, player.TotalDecisions, entity.Metrics),
		Challenges:      e.challenges(player),
	}, nil
}

// RandomScenario draws a scenario of the given decision type.
func (e *Engine) RandomScenario(ctx context.Context, t scenario.DecisionType) (scenario.Scenario, error) {
	if !e.scenarios.Catalog().HasDecisionType(t) {
		return scenario.Scenario{}, fmt.Errorf("%w: unknown decision type %q", ErrInvalidInput, t)
	}
	return e.scenarios.Random(ctx, t)
}

func (e *Engine) challenges(p progression.Player) []ChallengeStatus {
	list := e.scenarios.Catalog().Challenges
	out := make([]ChallengeStatus, 0, len(list))
	for _, c := range list {
		out = append(out, ChallengeStatus{Challenge: c, Completed: p.HasChallenge(c.Title)})
	}
	return out
}

func (e *Engine) load(ctx context.Context, playerID string) (progression.Player, Entity, error) {
	player, err := e.store.GetPlayer(ctx, playerID)
	if err != nil {
		return progression.Player{}, Entity{}, fmt.Errorf("get player %s: %w", playerID, err)
	}
	entity, err := e.store.GetEntity(ctx, player.EntityID)
	if err != nil {
		return progression.Player{}, Entity{}, fmt.Errorf("get %s %s: %w", e.rules.EntityKind, player.EntityID, err)
	}
	entity.Metrics = e.rules.Registry.Normalize(entity.Metrics)
	return player, entity, nil
}

// snapshotCash returns the ruleset's cash field from s.
func (e *Engine) snapshotCash(s metrics.Snapshot) float64 {
	v, _ := s.Get(e.rules.CashField)
	return v
}
