package persistence

import (
	"context"

	"github.com/talgya/empire-sim/internal/engine"
	"github.com/talgya/empire-sim/internal/scenario"
)

// Store is the full storage surface used by the server.
type Store interface {
	engine.Store
	scenario.Store
	SeedScenarios(ctx context.Context, list []scenario.Scenario) (int, error)
	SaveMeta(ctx context.Context, key, value string) error
	GetMeta(ctx context.Context, key string) (string, error)
	Close() error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*Memory)(nil)
)

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
