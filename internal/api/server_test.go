package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/empire-sim/internal/engine"
	"github.com/talgya/empire-sim/internal/persistence"
	"github.com/talgya/empire-sim/internal/scenario"
)

func newTestServer(t *testing.T, ruleset string, rate int) *httptest.Server {
	t.Helper()
	rules, err := engine.RulesetByName(ruleset)
	require.NoError(t, err)
	cat, err := scenario.Builtin(ruleset)
	require.NoError(t, err)

	store := persistence.NewMemory()
	src := scenario.NewSource(store, cat, rand.New(rand.NewSource(3)))
	eng := engine.New(rules, store, src, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	s := &Server{Eng: eng, CORSOrigins: []string{"http://localhost:3000"}, DecisionRate: rate}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createCompany(t *testing.T, base string) string {
	t.Helper()
	resp := postJSON(t, base+"/api/company", map[string]string{
		"player_name": "Ada", "company_name": "Acme", "industry": "Technology",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[map[string]any](t, resp)
	id, _ := p["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "Ada", p["name"])
	assert.EqualValues(t, 1, p["level"])
	return id
}

func TestRootAndStatus(t *testing.T) {
	ts := newTestServer(t, "business", 0)

	resp, err := http.Get(ts.URL + "/api/")
	require.NoError(t, err)
	root := decode[map[string]string](t, resp)
	assert.Equal(t, "Business Empire - Educational Business Simulation API", root["message"])

	resp, err = http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	st := decode[map[string]any](t, resp)
	assert.Equal(t, "business", st["ruleset"])
	assert.EqualValues(t, 6, st["scenarios"])
	assert.EqualValues(t, 0, st["unknown_fields"])
}

func TestIndustries(t *testing.T) {
	ts := newTestServer(t, "business", 0)

	resp, err := http.Get(ts.URL + "/api/industries")
	require.NoError(t, err)
	list := decode[[]scenario.Option](t, resp)
	assert.Len(t, list, 6)

	resp, err = http.Get(ts.URL + "/api/countries")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateCompany_Validation(t *testing.T) {
	ts := newTestServer(t, "business", 0)

	resp := postJSON(t, ts.URL+"/api/company", map[string]string{"player_name": "", "company_name": "Acme"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.NotEmpty(t, body["detail"])

	resp, err := http.Post(ts.URL+"/api/company", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGameStateAndDecision(t *testing.T) {
	ts := newTestServer(t, "business", 0)
	id := createCompany(t, ts.URL)

	resp, err := http.Get(ts.URL + "/api/game-state/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[map[string]any](t, resp)
	assert.Contains(t, st, "company")
	assert.Contains(t, st, "monthly_report")
	sc, ok := st["current_scenario"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, sc["title"])
	assert.NotEmpty(t, sc["choices"])

	resp = postJSON(t, ts.URL+"/api/decision", map[string]any{
		"player_id": id, "scenario_id": "Raw Material Sourcing Decision", "choice_index": 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[map[string]any](t, resp)
	assert.Equal(t, true, out["success"])
	// 10 base + 38 positive - 8 negative + 10 financial health
	assert.EqualValues(t, 50, out["score"])
	assert.EqualValues(t, 15, out["xp_gained"])
	assert.Equal(t, false, out["level_up"])
	assert.Equal(t, "Understanding supply chain decisions and their impact on cost, quality, and brand reputation.", out["learning_objective"])
	indicators, ok := out["updated_indicators"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, indicators, "production")
	assert.Contains(t, indicators, "business")
	assert.Contains(t, indicators, "marketing")
	assert.NotContains(t, indicators, "workforce")
	assert.Contains(t, out, "monthly_report")
	assert.Contains(t, out, "consequences")
}

func TestDecision_Errors(t *testing.T) {
	ts := newTestServer(t, "business", 0)
	id := createCompany(t, ts.URL)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		detail string
	}{
		{"invalid choice", map[string]any{"player_id": id, "scenario_id": "Raw Material Sourcing Decision", "choice_index": 4}, http.StatusBadRequest, "Invalid choice"},
		{"negative choice", map[string]any{"player_id": id, "scenario_id": "Raw Material Sourcing Decision", "choice_index": -1}, http.StatusBadRequest, "Invalid choice"},
		{"missing choice", map[string]any{"player_id": id, "scenario_id": "Raw Material Sourcing Decision"}, http.StatusBadRequest, "choice_index required"},
		{"unknown player", map[string]any{"player_id": "nobody", "scenario_id": "Raw Material Sourcing Decision", "choice_index": 0}, http.StatusNotFound, "Player not found"},
		{"unknown scenario", map[string]any{"player_id": id, "scenario_id": "Moon Base", "choice_index": 0}, http.StatusNotFound, "Scenario not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/decision", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[map[string]string](t, resp)
			assert.Equal(t, tt.detail, body["detail"])
		})
	}

	resp, err := http.Get(ts.URL + "/api/analytics/" + id)
	require.NoError(t, err)
	a := decode[map[string]any](t, resp)
	assert.EqualValues(t, 0, a["total_decisions"])
}

func TestScenarioByType(t *testing.T) {
	ts := newTestServer(t, "business", 0)

	resp, err := http.Get(ts.URL + "/api/scenarios/marketing")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sc := decode[scenario.Scenario](t, resp)
	assert.Equal(t, scenario.DecisionType("marketing"), sc.DecisionType)

	resp, err = http.Get(ts.URL + "/api/scenarios/espionage")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLeaderboardAndAnalytics(t *testing.T) {
	ts := newTestServer(t, "business", 0)
	id := createCompany(t, ts.URL)

	resp := postJSON(t, ts.URL+"/api/decision", map[string]any{
		"player_id": id, "scenario_id": "Marketing Campaign Strategy", "choice_index": 0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/leaderboard")
	require.NoError(t, err)
	board := decode[[]map[string]any](t, resp)
	require.Len(t, board, 1)
	assert.Equal(t, "Ada", board[0]["player_name"])
	assert.Equal(t, "Acme", board[0]["company_name"])
	assert.Equal(t, "Technology", board[0]["industry"])
	assert.Contains(t, board[0], "monthly_revenue")

	resp, err = http.Get(ts.URL + "/api/leaderboard?limit=x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/analytics/" + id)
	require.NoError(t, err)
	a := decode[map[string]any](t, resp)
	assert.EqualValues(t, 1, a["total_decisions"])
	assert.Contains(t, a, "decision_breakdown")
	assert.Contains(t, a, "experience_by_category")

	resp, err = http.Get(ts.URL + "/api/analytics/nobody")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGlobalRuleset_Routes(t *testing.T) {
	ts := newTestServer(t, "global", 0)

	resp, err := http.Get(ts.URL + "/api/countries")
	require.NoError(t, err)
	countries := decode[[]scenario.Option](t, resp)
	assert.NotEmpty(t, countries)

	resp = postJSON(t, ts.URL+"/api/player", map[string]string{"name": "Lin", "country_name": countries[0].Name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[map[string]any](t, resp)
	id := p["id"].(string)

	resp, err = http.Get(ts.URL + "/api/game-state/" + id)
	require.NoError(t, err)
	st := decode[map[string]any](t, resp)
	assert.Contains(t, st, "country")

	resp, err = http.Get(ts.URL + "/api/scenarios/manufacturing")
	require.NoError(t, err)
	sc := decode[scenario.Scenario](t, resp)

	resp = postJSON(t, ts.URL+"/api/decision", map[string]any{"player_id": id, "scenario_id": sc.Title, "choice_index": 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[map[string]any](t, resp)
	assert.Contains(t, out, "score_gained")
	assert.Contains(t, out, "educational_content")
	assert.Contains(t, out["updated_indicators"], "manufacturing")

	for _, kind := range []string{"facts", "trivia"} {
		resp, err = http.Get(ts.URL + "/api/educational-content/" + kind)
		require.NoError(t, err)
		list := decode[[]map[string]any](t, resp)
		assert.NotEmpty(t, list, kind)
	}

	resp, err = http.Get(ts.URL + "/api/educational-content/poems")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/challenges")
	require.NoError(t, err)
	challenges := decode[[]scenario.Challenge](t, resp)
	assert.Len(t, challenges, 2)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, "business", 0)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/decision", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, ts.URL+"/api/", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	h := corsMiddleware([]string{"*"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/api/", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://anywhere.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDecision_RateLimited(t *testing.T) {
	ts := newTestServer(t, "business", 2)
	id := createCompany(t, ts.URL)

	body := map[string]any{"player_id": id, "scenario_id": "Shipping Method Selection", "choice_index": 1}
	for i := 0; i < 2; i++ {
		resp := postJSON(t, ts.URL+"/api/decision", body)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := postJSON(t, ts.URL+"/api/decision", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	out := decode[map[string]string](t, resp)
	assert.Equal(t, "rate limit exceeded", out["detail"])
}

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.Equal(t, 61, rl.RetryAfter("10.0.0.1"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))

	now = now.Add(3 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.buckets)
}

func TestClientAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/decision", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, "192.0.2.7", clientAddr(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientAddr(req))

	req = httptest.NewRequest(http.MethodPost, "/api/decision", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientAddr(req))
}
