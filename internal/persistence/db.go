// Package persistence provides SQLite and in-memory storage for entities,
// players, decision logs and scenario definitions.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/empire-sim/internal/engine"
	"github.com/talgya/empire-sim/internal/metrics"
	"github.com/talgya/empire-sim/internal/progression"
	"github.com/talgya/empire-sim/internal/scenario"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows a single writer; one connection keeps transactions serialized.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		sector TEXT NOT NULL,
		metrics_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		entity_id TEXT NOT NULL REFERENCES entities(id),
		level INTEGER NOT NULL,
		experience INTEGER NOT NULL,
		total_decisions INTEGER NOT NULL,
		successful_decisions INTEGER NOT NULL,
		by_type_json TEXT NOT NULL,
		by_difficulty_json TEXT NOT NULL,
		xp_by_type_json TEXT NOT NULL,
		achievements_json TEXT NOT NULL,
		challenges_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		player_id TEXT NOT NULL REFERENCES players(id),
		decision_type TEXT NOT NULL,
		scenario_title TEXT NOT NULL,
		choice_id TEXT NOT NULL,
		choice_text TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		deltas_json TEXT NOT NULL,
		score INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scenarios (
		title TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		decision_type TEXT NOT NULL,
		body_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_player ON decisions(player_id);
	CREATE INDEX IF NOT EXISTS idx_players_experience ON players(experience DESC);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type entityRow struct {
	ID          string `db:"id"`
	Kind        string `db:"kind"`
	Name        string `db:"name"`
	Sector      string `db:"sector"`
	MetricsJSON string `db:"metrics_json"`
	CreatedAt   string `db:"created_at"`
}

type playerRow struct {
	ID                  string `db:"id"`
	Name                string `db:"name"`
	EntityID            string `db:"entity_id"`
	Level               int    `db:"level"`
	Experience          int    `db:"experience"`
	TotalDecisions      int    `db:"total_decisions"`
	SuccessfulDecisions int    `db:"successful_decisions"`
	ByTypeJSON          string `db:"by_type_json"`
	ByDifficultyJSON    string `db:"by_difficulty_json"`
	XPByTypeJSON        string `db:"xp_by_type_json"`
	AchievementsJSON    string `db:"achievements_json"`
	ChallengesJSON      string `db:"challenges_json"`
	CreatedAt           string `db:"created_at"`
}

type decisionRow struct {
	ID            string `db:"id"`
	PlayerID      string `db:"player_id"`
	DecisionType  string `db:"decision_type"`
	ScenarioTitle string `db:"scenario_title"`
	ChoiceID      string `db:"choice_id"`
	ChoiceText    string `db:"choice_text"`
	Difficulty    string `db:"difficulty"`
	DeltasJSON    string `db:"deltas_json"`
	Score         int    `db:"score"`
	CreatedAt     string `db:"created_at"`
}

const playerColumns = `id, name, entity_id, level, experience, total_decisions, successful_decisions,
	by_type_json, by_difficulty_json, xp_by_type_json, achievements_json, challenges_json, created_at`

const decisionColumns = `id, player_id, decision_type, scenario_title, choice_id, choice_text,
	difficulty, deltas_json, score, created_at`

// CreateGame inserts a new entity and its player together.
func (db *DB) CreateGame(ctx context.Context, e engine.Entity, p progression.Player) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertEntity(ctx, tx, e); err != nil {
		return fmt.Errorf("insert entity %s: %w", e.ID, err)
	}
	if err := upsertPlayer(ctx, tx, p); err != nil {
		return fmt.Errorf("insert player %s: %w", p.ID, err)
	}
	return tx.Commit()
}

// GetEntity loads one entity.
func (db *DB) GetEntity(ctx context.Context, id string) (engine.Entity, error) {
	var row entityRow
	err := db.conn.GetContext(ctx, &row,
		"SELECT id, kind, name, sector, metrics_json, created_at FROM entities WHERE id = ?", id)
	if err != nil {
		return engine.Entity{}, notFound("entity", id, err)
	}
	return row.entity()
}

// GetPlayer loads one player.
func (db *DB) GetPlayer(ctx context.Context, id string) (progression.Player, error) {
	var row playerRow
	err := db.conn.GetContext(ctx, &row, "SELECT "+playerColumns+" FROM players WHERE id = ?", id)
	if err != nil {
		return progression.Player{}, notFound("player", id, err)
	}
	return row.player()
}

// SaveDecision replaces the entity and player rows and appends the decision
// record in one transaction.
func (db *DB) SaveDecision(ctx context.Context, e engine.Entity, p progression.Player, rec engine.DecisionRecord) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	metricsJSON, err := json.Marshal(e.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	res, err := tx.ExecContext(ctx, "UPDATE entities SET metrics_json = ? WHERE id = ?", string(metricsJSON), e.ID)
	if err != nil {
		return fmt.Errorf("update entity %s: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("entity", e.ID, sql.ErrNoRows)
	}
	if err := upsertPlayer(ctx, tx, p); err != nil {
		return fmt.Errorf("update player %s: %w", p.ID, err)
	}

	deltasJSON, err := json.Marshal(rec.Deltas)
	if err != nil {
		return fmt.Errorf("encode deltas: %w", err)
	}
	_, err = tx.ExecContext(ctx, "INSERT INTO decisions ("+decisionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rec.ID, rec.PlayerID, rec.DecisionType, rec.ScenarioTitle, rec.ChoiceID, rec.ChoiceText,
		rec.Difficulty, string(deltasJSON), rec.Score, formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert decision %s: %w", rec.ID, err)
	}

	return tx.Commit()
}

// TopPlayers returns up to limit players by descending experience.
func (db *DB) TopPlayers(ctx context.Context, limit int) ([]progression.Player, error) {
	var rows []playerRow
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT "+playerColumns+" FROM players ORDER BY experience DESC, created_at ASC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	out := make([]progression.Player, 0, len(rows))
	for _, r := range rows {
		p, err := r.player()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// PlayerDecisions returns the player's decision log, oldest first.
func (db *DB) PlayerDecisions(ctx context.Context, playerID string) ([]engine.DecisionRecord, error) {
	var rows []decisionRow
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT "+decisionColumns+" FROM decisions WHERE player_id = ? ORDER BY created_at ASC, rowid ASC", playerID)
	if err != nil {
		return nil, err
	}
	out := make([]engine.DecisionRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListScenarios returns stored scenarios in catalog order.
func (db *DB) ListScenarios(ctx context.Context) ([]scenario.Scenario, error) {
	var bodies []string
	if err := db.conn.SelectContext(ctx, &bodies, "SELECT body_json FROM scenarios ORDER BY position ASC"); err != nil {
		return nil, err
	}
	out := make([]scenario.Scenario, 0, len(bodies))
	for _, b := range bodies {
		var s scenario.Scenario
		if err := json.Unmarshal([]byte(b), &s); err != nil {
			return nil, fmt.Errorf("decode scenario: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// SeedScenarios inserts list when the scenarios table is empty and reports
// how many rows were written.
func (db *DB) SeedScenarios(ctx context.Context, list []scenario.Scenario) (int, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM scenarios"); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	stmt, err := tx.PreparexContext(ctx,
		"INSERT INTO scenarios (title, position, decision_type, body_json) VALUES (?, ?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, s := range list {
		body, err := json.Marshal(s)
		if err != nil {
			return 0, fmt.Errorf("encode scenario %q: %w", s.Title, err)
		}
		if _, err := stmt.ExecContext(ctx, s.Title, i, string(s.DecisionType), string(body)); err != nil {
			return 0, fmt.Errorf("insert scenario %q: %w", s.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	slog.Info("seeded scenarios", "count", len(list))
	return len(list), nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx, "INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	if err := db.conn.GetContext(ctx, &value, "SELECT value FROM meta WHERE key = ?", key); err != nil {
		return "", notFound("meta", key, err)
	}
	return value, nil
}

func insertEntity(ctx context.Context, tx *sqlx.Tx, e engine.Entity) error {
	metricsJSON, err := json.Marshal(e.Metrics)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO entities (id, kind, name, sector, metrics_json, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		e.ID, e.Kind, e.Name, e.Sector, string(metricsJSON), formatTime(e.CreatedAt))
	return err
}

func upsertPlayer(ctx context.Context, tx *sqlx.Tx, p progression.Player) error {
	var enc jsonEncoder
	byType := enc.text(p.DecisionsByType)
	byDifficulty := enc.text(p.DecisionsByDifficulty)
	xpByType := enc.text(p.ExperienceByType)
	achievements := enc.text(p.Achievements)
	challenges := enc.text(p.CompletedChallenges)
	if enc.err != nil {
		return enc.err
	}
	_, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO players ("+playerColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Name, p.EntityID, p.Level, p.Experience, p.TotalDecisions, p.SuccessfulDecisions,
		byType, byDifficulty, xpByType, achievements, challenges, formatTime(p.CreatedAt),
	)
	return err
}

func (r entityRow) entity() (engine.Entity, error) {
	e := engine.Entity{ID: r.ID, Kind: r.Kind, Name: r.Name, Sector: r.Sector}
	var err error
	if e.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return engine.Entity{}, err
	}
	if err := json.Unmarshal([]byte(r.MetricsJSON), &e.Metrics); err != nil {
		return engine.Entity{}, fmt.Errorf("decode metrics of %s: %w", r.ID, err)
	}
	if e.Metrics == nil {
		e.Metrics = metrics.Snapshot{}
	}
	return e, nil
}

func (r playerRow) player() (progression.Player, error) {
	p := progression.Player{
		ID:                  r.ID,
		Name:                r.Name,
		EntityID:            r.EntityID,
		Level:               r.Level,
		Experience:          r.Experience,
		TotalDecisions:      r.TotalDecisions,
		SuccessfulDecisions: r.SuccessfulDecisions,
	}
	var err error
	if p.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return progression.Player{}, err
	}
	for _, f := range []struct {
		src string
		dst any
	}{
		{r.ByTypeJSON, &p.DecisionsByType},
		{r.ByDifficultyJSON, &p.DecisionsByDifficulty},
		{r.XPByTypeJSON, &p.ExperienceByType},
		{r.AchievementsJSON, &p.Achievements},
		{r.ChallengesJSON, &p.CompletedChallenges},
	} {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return progression.Player{}, fmt.Errorf("decode player %s: %w", r.ID, err)
		}
	}
	return p.Clone(), nil
}

func (r decisionRow) record() (engine.DecisionRecord, error) {
	rec := engine.DecisionRecord{
		ID:            r.ID,
		PlayerID:      r.PlayerID,
		DecisionType:  r.DecisionType,
		ScenarioTitle: r.ScenarioTitle,
		ChoiceID:      r.ChoiceID,
		ChoiceText:    r.ChoiceText,
		Difficulty:    r.Difficulty,
		Score:         r.Score,
	}
	var err error
	if rec.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return engine.DecisionRecord{}, err
	}
	if err := json.Unmarshal([]byte(r.DeltasJSON), &rec.Deltas); err != nil {
		return engine.DecisionRecord{}, fmt.Errorf("decode deltas of %s: %w", r.ID, err)
	}
	return rec, nil
}

// jsonEncoder keeps the first marshal error across several fields.
type jsonEncoder struct{ err error }

func (j *jsonEncoder) text(v any) string {
	if j.err != nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		j.err = err
		return ""
	}
	return string(b)
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// notFound maps sql.ErrNoRows to engine.ErrNotFound, keeping both in the chain.
func notFound(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w: %w", kind, id, engine.ErrNotFound, err)
	}
	return err
}
