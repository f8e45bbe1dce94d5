// Package engine runs the decision cycle: it loads a player and their entity,
// applies the chosen consequences, scores them, advances progression and
// hands the result to the store.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/talgya/empire-sim/internal/metrics"
	"github.com/talgya/empire-sim/internal/progression"
)

var (
	// ErrNotFound is returned (wrapped) when a player or entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)

// Entity is the company or country a player runs.
type Entity struct {
	ID        string           `json:"id"`
	Kind      string           `json:"kind"` // "company" | "country"
	Name      string           `json:"name"`
	Sector    string           `json:"sector"` // Industry or home country
	Metrics   metrics.Snapshot `json:"metrics"`
	CreatedAt time.Time        `json:"created_at"`
}

// DecisionRecord is the immutable log entry written once per decision.
// Deltas holds only the registered, finite deltas that were applied.
type DecisionRecord struct {
	ID            string         `json:"id"`
	PlayerID      string         `json:"player_id"`
	DecisionType  string         `json:"decision_type"`
	ScenarioTitle string         `json:"scenario_title"`
	ChoiceID      string         `json:"choice_id"`
	ChoiceText    string         `json:"choice_made"`
	Difficulty    string         `json:"difficulty"`
	Deltas        metrics.Deltas `json:"consequences"`
	Score         int            `json:"score"`
	CreatedAt     time.Time      `json:"timestamp"`
}

// Store is the persistence boundary. Saves replace whole records; concurrent
// decisions for the same player resolve as last write wins.
type Store interface {
	CreateGame(ctx context.Context, e Entity, p progression.Player) error
	GetEntity(ctx context.Context, id string) (Entity, error)
	GetPlayer(ctx context.Context, id string) (progression.Player, error)
	SaveDecision(ctx context.Context, e Entity, p progression.Player, rec DecisionRecord) error
	TopPlayers(ctx context.Context, limit int) ([]progression.Player, error)
	PlayerDecisions(ctx context.Context, playerID string) ([]DecisionRecord, error)
}

// Stage is a step of the decision cycle.
type Stage string

const (
	StageAwaitingChoice      Stage = "awaiting_choice"
	StageChoiceSubmitted     Stage = "choice_submitted"
	StageConsequencesApplied Stage = "consequences_applied"
	StageScored              Stage = "scored"
	StageProgressionUpdated  Stage = "progression_updated"
	StagePersisted           Stage = "persisted"
)
