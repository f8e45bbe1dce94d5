package scenario

import (
	"context"
	"fmt"
	"log/slog"
)

// Store lists scenario definitions held by an external store.
type Store interface {
	ListScenarios(ctx context.Context) ([]Scenario, error)
}

// Source resolves scenarios from a store, falling back to the built-in
// catalog whenever the store holds none.
type Source struct {
	store   Store
	builtin *Catalog
	rng     Intner
}

// NewSource creates a Source. store may be nil, in which case only the
// built-in catalog is used.
func NewSource(store Store, builtin *Catalog, rng Intner) *Source {
	return &Source{store: store, builtin: builtin, rng: rng}
}

// Catalog returns the built-in catalog backing the fallback.
func (s *Source) Catalog() *Catalog {
	return s.builtin
}

func (s *Source) scenarios(ctx context.Context) ([]Scenario, error) {
	if s.store == nil {
		return s.builtin.Scenarios, nil
	}
	list, err := s.store.ListScenarios(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	if len(list) == 0 {
		slog.Debug("scenario store empty, using builtin catalog", "ruleset", s.builtin.Ruleset)
		return s.builtin.Scenarios, nil
	}
	return list, nil
}

// Get returns the scenario with the given title.
func (s *Source) Get(ctx context.Context, title string) (Scenario, error) {
	list, err := s.scenarios(ctx)
	if err != nil {
		return Scenario{}, err
	}
	return find(list, title)
}

// Random returns a random scenario, optionally restricted to one decision type.
func (s *Source) Random(ctx context.Context, filter DecisionType) (Scenario, error) {
	list, err := s.scenarios(ctx)
	if err != nil {
		return Scenario{}, err
	}
	return pick(list, s.rng, filter)
}

// Count returns the number of scenarios currently resolvable.
func (s *Source) Count(ctx context.Context) (int, error) {
	list, err := s.scenarios(ctx)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}
