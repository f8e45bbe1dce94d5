package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/talgya/empire-sim/internal/engine"
	"github.com/talgya/empire-sim/internal/metrics"
	"github.com/talgya/empire-sim/internal/progression"
	"github.com/talgya/empire-sim/internal/scenario"
)

// Memory is an in-process store with the same semantics as DB. Values are
// copied on the way in and out so callers never share maps with the store.
type Memory struct {
	mu        sync.RWMutex
	entities  map[string]engine.Entity
	players   map[string]progression.Player
	decisions map[string][]engine.DecisionRecord
	scenarios []scenario.Scenario
	meta      map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entities:  make(map[string]engine.Entity),
		players:   make(map[string]progression.Player),
		decisions: make(map[string][]engine.DecisionRecord),
		meta:      make(map[string]string),
	}
}

// CreateGame inserts a new entity and its player.
func (m *Memory) CreateGame(_ context.Context, e engine.Entity, p progression.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entities[e.ID]; ok {
		return fmt.Errorf("entity %s already exists", e.ID)
	}
	if _, ok := m.players[p.ID]; ok {
		return fmt.Errorf("player %s already exists", p.ID)
	}
	m.entities[e.ID] = copyEntity(e)
	m.players[p.ID] = p.Clone()
	return nil
}

// GetEntity loads one entity.
func (m *Memory) GetEntity(_ context.Context, id string) (engine.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entities[id]
	if !ok {
		return engine.Entity{}, fmt.Errorf("entity %s: %w", id, engine.ErrNotFound)
	}
	return copyEntity(e), nil
}

// GetPlayer loads one player.
func (m *Memory) GetPlayer(_ context.Context, id string) (progression.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.players[id]
	if !ok {
		return progression.Player{}, fmt.Errorf("player %s: %w", id, engine.ErrNotFound)
	}
	return p.Clone(), nil
}

// SaveDecision replaces the entity and player and appends rec.
func (m *Memory) SaveDecision(_ context.Context, e engine.Entity, p progression.Player, rec engine.DecisionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entities[e.ID]; !ok {
		return fmt.Errorf("entity %s: %w", e.ID, engine.ErrNotFound)
	}
	m.entities[e.ID] = copyEntity(e)
	m.players[p.ID] = p.Clone()
	rec.Deltas = copyDeltas(rec.Deltas)
	m.decisions[rec.PlayerID] = append(m.decisions[rec.PlayerID], rec)
	return nil
}

// TopPlayers returns up to limit players by descending experience.
func (m *Memory) TopPlayers(_ context.Context, limit int) ([]progression.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]progression.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Experience != out[j].Experience {
			return out[i].Experience > out[j].Experience
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PlayerDecisions returns the player's decision log, oldest first.
func (m *Memory) PlayerDecisions(_ context.Context, playerID string) ([]engine.DecisionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.decisions[playerID]
	out := make([]engine.DecisionRecord, len(src))
	for i, r := range src {
		r.Deltas = copyDeltas(r.Deltas)
		out[i] = r
	}
	return out, nil
}

// ListScenarios returns stored scenarios.
func (m *Memory) ListScenarios(context.Context) ([]scenario.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]scenario.Scenario(nil), m.scenarios...), nil
}

// SeedScenarios stores list when no scenarios are present.
func (m *Memory) SeedScenarios(_ context.Context, list []scenario.Scenario) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.scenarios) > 0 {
		return 0, nil
	}
	m.scenarios = append([]scenario.Scenario(nil), list...)
	return len(list), nil
}

// SaveMeta stores a key-value pair.
func (m *Memory) SaveMeta(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = value
	return nil
}

// GetMeta retrieves a metadata value.
func (m *Memory) GetMeta(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.meta[key]
	if !ok {
		return "", fmt.Errorf("meta %s: %w", key, engine.ErrNotFound)
	}
	return v, nil
}

func copyEntity(e engine.Entity) engine.Entity {
	if e.Metrics == nil {
		e.Metrics = metrics.Snapshot{}
	} else {
		e.Metrics = e.Metrics.Clone()
	}
	return e
}

func copyDeltas(d metrics.Deltas) metrics.Deltas {
	if d == nil {
		return nil
	}
	out := make(metrics.Deltas, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
