// Command empiresim serves the educational empire-building game over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/talgya/empire-sim/internal/api"
	"github.com/talgya/empire-sim/internal/config"
	"github.com/talgya/empire-sim/internal/engine"
	"github.com/talgya/empire-sim/internal/entropy"
	"github.com/talgya/empire-sim/internal/persistence"
	"github.com/talgya/empire-sim/internal/progression"
	"github.com/talgya/empire-sim/internal/scenario"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		slog.Error("empiresim exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	// ── Ruleset ───────────────────────────────────────────────────────
	rules, err := engine.RulesetByName(cfg.Ruleset)
	if err != nil {
		return err
	}
	if cfg.LevelPolicy != "" {
		policy, err := progression.ParseLevelPolicy(cfg.LevelPolicy)
		if err != nil {
			return err
		}
		rules = rules.WithLevelPolicy(policy)
	}

	// ── Catalog ───────────────────────────────────────────────────────
	var catalog *scenario.Catalog
	if cfg.CatalogFile != "" {
		catalog, err = scenario.LoadFile(cfg.CatalogFile)
	} else {
		catalog, err = scenario.Builtin(cfg.Ruleset)
	}
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if err := catalog.Validate(rules.Registry); err != nil {
		return fmt.Errorf("validate catalog: %w", err)
	}
	slog.Info("catalog loaded", "ruleset", rules.Name, "scenarios", len(catalog.Scenarios),
		"challenges", len(catalog.Challenges), "file", cfg.CatalogFile)

	// ── Store ─────────────────────────────────────────────────────────
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := checkRuleset(ctx, store, rules.Name); err != nil {
		return err
	}
	if _, err := store.SeedScenarios(ctx, catalog.Scenarios); err != nil {
		return fmt.Errorf("seed scenarios: %w", err)
	}

	// ── Engine ────────────────────────────────────────────────────────
	rng := entropy.New(cfg.Seed)
	slog.Info("scenario rng seeded", "seed", rng.Seed())
	eng := engine.New(rules, store, scenario.NewSource(store, catalog, rng))

	srv := &api.Server{
		Eng:          eng,
		Addr:         cfg.Addr(),
		CORSOrigins:  cfg.CORSOrigins,
		DecisionRate: cfg.DecisionRate,
	}
	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	slog.Info("shutdown complete", "unknown_fields", eng.UnknownFieldCount())
	return nil
}

func openStore(cfg config.Config) (persistence.Store, error) {
	if cfg.Store == "memory" {
		slog.Info("using in-memory store")
		return persistence.NewMemory(), nil
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", cfg.DBPath)
	return db, nil
}

// checkRuleset refuses to reuse a database created under another ruleset,
// since stored metric snapshots belong to that ruleset's registry.
func checkRuleset(ctx context.Context, store persistence.Store, name string) error {
	stored, err := store.GetMeta(ctx, "ruleset")
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return store.SaveMeta(ctx, "ruleset", name)
	case err != nil:
		return fmt.Errorf("read ruleset meta: %w", err)
	case stored != name:
		return fmt.Errorf("store was created for ruleset %q, configured %q", stored, name)
	}
	return nil
}
