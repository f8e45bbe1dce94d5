package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/talgya/empire-sim/internal/scenario"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"message": s.Eng.Scenarios().Catalog().Banner})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.Eng.Scenarios().Count(r.Context())
	if err != nil {
		writeEngineError(w, err, "")
		return
	}
	rules := s.Eng.Rules()
	writeJSON(w, map[string]any{
		"ruleset":        rules.Name,
		"entity_kind":    rules.EntityKind,
		"metric_fields":  rules.Registry.Len(),
		"scenarios":      count,
		"level_policy":   rules.Progression.Level,
		"unknown_fields": s.Eng.UnknownFieldCount(),
		"decision_rate":  s.DecisionRate,
		"decision_types": s.Eng.Scenarios().Catalog().DecisionTypes,
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	opts := s.Eng.Scenarios().Catalog().Options
	if opts == nil {
		opts = []scenario.Option{}
	}
	writeJSON(w, opts)
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerName  string `json:"player_name"`
		CompanyName string `json:"company_name"`
		Industry    string `json:"industry"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	s.startGame(w, r, req.PlayerName, req.CompanyName, req.Industry)
}

// handleCreateCountry starts a country game. The player governs the named
// country, which is also recorded as its home sector.
func (s *Server) handleCreateCountry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		CountryName string `json:"country_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	s.startGame(w, r, req.Name, req.CountryName, req.CountryName)
}

func (s *Server) startGame(w http.ResponseWriter, r *http.Request, playerName, entityName, sector string) {
	p, _, err := s.Eng.StartGame(r.Context(), playerName, entityName, sector)
	if err != nil {
		writeEngineError(w, err, "")
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	st, err := s.Eng.GameState(r.Context(), r.PathValue("player_id"))
	if err != nil {
		writeEngineError(w, err, "Player not found")
		return
	}
	writeJSON(w, map[string]any{
		"player":                 st.Player,
		s.Eng.Rules().EntityKind: st.Entity,
		"current_scenario":       st.CurrentScenario,
		"monthly_report":         st.Report,
		"available_challenges":   st.Challenges,
	})
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID    string `json:"player_id"`
		ScenarioID  string `json:"scenario_id"`
		ChoiceIndex *int   `json:"choice_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ChoiceIndex == nil {
		writeError(w, http.StatusBadRequest, "choice_index required")
		return
	}

	out, err := s.Eng.Decide(r.Context(), req.PlayerID, req.ScenarioID, *req.ChoiceIndex)
	if err != nil {
		writeEngineError(w, err, "Player not found")
		return
	}

	unlocked := out.Progress.Unlocked
	if unlocked == nil {
		unlocked = []string{}
	}
	completed := out.CompletedChallenge
	if completed == nil {
		completed = []string{}
	}
	writeJSON(w, map[string]any{
		"success":               true,
		"score":                 out.Score,
		"success_score":         out.Score,
		"score_gained":          out.Score,
		"score_breakdown":       out.Breakdown,
		"xp_gained":             out.Progress.XPGained,
		"level_up":              out.Progress.LevelUp,
		"successful":            out.Progress.Success,
		"consequences":          out.Record.Deltas,
		"metrics":               out.Entity.Metrics,
		"updated_indicators":    out.UpdatedIndicators,
		"monthly_report":        out.Report,
		"learning_objective":    out.LearningObjective,
		"educational_content":   out.EducationalContent,
		"unlocked_achievements": unlocked,
		"completed_challenges":  completed,
		"player":                out.Player,
		"summary":               out.Summary,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	n := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		n = parsed
	}

	board, err := s.Eng.Leaderboard(r.Context(), n)
	if err != nil {
		writeEngineError(w, err, "")
		return
	}

	kind := s.Eng.Rules().EntityKind
	sectorKey := "industry"
	if kind == "country" {
		sectorKey = "home_country"
	}
	headline := s.Eng.Rules().Reporter.Headline()

	out := make([]map[string]any, 0, len(board))
	for _, e := range board {
		out = append(out, map[string]any{
			"rank":              e.Rank,
			"player_id":         e.PlayerID,
			"player_name":       e.PlayerName,
			kind + "_name":      e.EntityName,
			sectorKey:           e.Sector,
			"level":             e.Level,
			"experience_points": e.Experience,
			"total_decisions":   e.Decisions,
			headline:            e.Headline,
			"success_rate":      e.SuccessRate,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.Eng.RandomScenario(r.Context(), scenario.DecisionType(r.PathValue("decision_type")))
	if err != nil {
		writeEngineError(w, err, "")
		return
	}
	writeJSON(w, sc)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.Eng.Analytics(r.Context(), r.PathValue("player_id"))
	if err != nil {
		writeEngineError(w, err, "Player not found")
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	list := s.Eng.Scenarios().Catalog().Challenges
	if list == nil {
		list = []scenario.Challenge{}
	}
	writeJSON(w, list)
}

func (s *Server) handleEducationalContent(w http.ResponseWriter, r *http.Request) {
	cat := s.Eng.Scenarios().Catalog()
	switch r.PathValue("kind") {
	case "facts":
		facts := cat.Facts
		if facts == nil {
			facts = []scenario.Fact{}
		}
		writeJSON(w, facts)
	case "trivia":
		trivia := cat.Trivia
		if trivia == nil {
			trivia = []scenario.Trivia{}
		}
		writeJSON(w, trivia)
	default:
		writeError(w, http.StatusNotFound, "Content type not found")
	}
}
