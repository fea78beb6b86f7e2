package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/domain"
)

// Handler exposes the progression pipeline over JSON endpoints. Identity is
// taken from X-User-Id / X-Display-Name / X-User-Email headers, standing in
// for the hosted identity service that fronts this core; requests without a
// user ID are anonymous and get their score without persistence.
type Handler struct {
	service    *app.ProgressionService
	board      app.LeaderboardReader
	boardLimit int
}

func NewHandler(service *app.ProgressionService, board app.LeaderboardReader, boardLimit int) *Handler {
	return &Handler{service: service, board: board, boardLimit: boardLimit}
}

// Routes wires the handler into a mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/attempts", h.handleSubmitAttempt)
	mux.HandleFunc("/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/profile", h.handleProfile)
	return mux
}

type attemptRequest struct {
	AttemptID        string            `json:"attemptId"`
	Topic            string            `json:"topic"`
	TimeSpentSeconds int               `json:"timeSpentSeconds"`
	Questions        []domain.Question `json:"questions"`
	Answers          map[int]int       `json:"answers"`
}

type attemptResponse struct {
	Score        domain.ScoreResult `json:"score"`
	TimeSpent    string             `json:"timeSpent"`
	PointsEarned int                `json:"pointsEarned,omitempty"`
	XPEarned     int                `json:"xpEarned,omitempty"`
	Level        int                `json:"level,omitempty"`
	LeveledUp    bool               `json:"leveledUp,omitempty"`
	NewBadges    []domain.Badge     `json:"newBadges,omitempty"`
	Saved        bool               `json:"saved"`
	AlreadySaved bool               `json:"alreadySaved,omitempty"`
	Warning      string             `json:"warning,omitempty"`
}

func (h *Handler) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req attemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AttemptID == "" {
		http.Error(w, "missing attemptId", http.StatusBadRequest)
		return
	}

	user := userFromHeaders(r)
	outcome, err := h.service.SaveResult(r.Context(), user, domain.Attempt{
		ID:               req.AttemptID,
		Topic:            req.Topic,
		Questions:        req.Questions,
		Answers:          req.Answers,
		TimeSpentSeconds: req.TimeSpentSeconds,
	})
	if errors.Is(err, domain.ErrEmptyQuestionSet) || errors.Is(err, domain.ErrMalformedAnswers) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := attemptResponse{
		Score:        outcome.Score,
		TimeSpent:    domain.FormatDuration(req.TimeSpentSeconds),
		NewBadges:    outcome.NewBadges,
		Saved:        outcome.Saved,
		AlreadySaved: outcome.AlreadySaved,
	}
	if outcome.Rewards != nil {
		resp.PointsEarned = outcome.Rewards.PointsEarned
		resp.XPEarned = outcome.Rewards.XPEarned
		resp.Level = outcome.Rewards.NewLevel
		resp.LeveledUp = outcome.Rewards.LeveledUp
	}
	if err != nil {
		// The score still stands; persistence is retryable.
		log.Printf("save attempt %s: %v", req.AttemptID, err)
		resp.Warning = "result could not be saved, retry later"
	}
	writeJSON(w, resp)
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := h.boardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	rows, err := app.Leaderboard(r.Context(), h.board, r.URL.Query().Get("topic"), limit)
	if err != nil {
		log.Printf("leaderboard query: %v", err)
		http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, rows)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user := userFromHeaders(r)
	if user == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	profile, err := h.service.LoadProfile(r.Context(), user.ID)
	if err != nil {
		log.Printf("load profile %s: %v", user.ID, err)
		http.Error(w, "profile unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, profile)
}

func userFromHeaders(r *http.Request) *domain.User {
	id := r.Header.Get("X-User-Id")
	if id == "" {
		return nil
	}
	return &domain.User{
		ID:          id,
		DisplayName: r.Header.Get("X-Display-Name"),
		Email:       r.Header.Get("X-User-Email"),
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
