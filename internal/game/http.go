package game

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/livequiz/pkg/http/errors"
	"github.com/gokatarajesh/livequiz/pkg/http/ws"
)

// HTTPHandlers provides REST endpoints for session setup and lookup.
type HTTPHandlers struct {
	machine *Machine
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for session endpoints.
func NewHTTPHandlers(machine *Machine, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		machine: machine,
		logger:  logger.With().Str("component", "game_http").Logger(),
	}
}

// Register mounts the session routes.
func (h *HTTPHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sessions", h.CreateSession)
	mux.HandleFunc("GET /v1/sessions/{pin}", h.GetByPin)
	mux.HandleFunc("GET /v1/sessions/{id}/leaderboard", h.GetLeaderboard)
	mux.HandleFunc("GET /v1/sessions/{id}/summary", h.GetSummary)
}

// CreateSessionRequest is the body of POST /v1/sessions.
type CreateSessionRequest struct {
	QuizID                  string `json:"quiz_id"`
	QuestionDurationSeconds int    `json:"question_duration_seconds"`
}

// CreateSessionResponse is returned to the host.
type CreateSessionResponse struct {
	SessionID               string `json:"session_id"`
	PIN                     string `json:"pin"`
	Title                   string `json:"title"`
	TotalQuestions          int    `json:"total_questions"`
	QuestionDurationSeconds int    `json:"question_duration_seconds"`
	HostToken               string `json:"host_token,omitempty"`
}

// SessionResponse describes a session to a prospective player.
type SessionResponse struct {
	SessionID      string `json:"session_id"`
	PIN            string `json:"pin"`
	Title          string `json:"title"`
	Phase          string `json:"phase"`
	QuestionIndex  int    `json:"question_index"`
	TotalQuestions int    `json:"total_questions"`
	Players        int    `json:"players"`
}

// LeaderboardResponse is returned by GET /v1/sessions/{id}/leaderboard.
type LeaderboardResponse struct {
	SessionID   string                `json:"session_id"`
	Leaderboard []ws.LeaderboardEntry `json:"leaderboard"`
}

// CreateSession handles POST /v1/sessions
func (h *HTTPHandlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.QuizID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "quiz_id is required", "quiz_id")
		return
	}

	created, err := h.machine.CreateSession(r.Context(), req.QuizID, req.QuestionDurationSeconds)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "Quiz not found")
		case errors.Is(err, ErrInvalidInput):
			httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
		default:
			h.logger.Error().Err(err).Str("quiz_id", req.QuizID).Msg("failed to create session")
			httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSessionCreationFailed, "Failed to create session")
		}
		return
	}

	s := created.Session
	httperrors.RespondJSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID:               s.ID,
		PIN:                     s.PIN,
		Title:                   s.Title,
		TotalQuestions:          s.TotalQuestions(),
		QuestionDurationSeconds: int(s.QuestionDuration / time.Second),
		HostToken:               created.HostToken,
	})
}

// GetByPin handles GET /v1/sessions/{pin}
func (h *HTTPHandlers) GetByPin(w http.ResponseWriter, r *http.Request) {
	s, err := h.machine.SessionByPin(r.PathValue("pin"))
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, SessionResponse{
		SessionID:      s.ID,
		PIN:            s.PIN,
		Title:          s.Title,
		Phase:          string(s.Phase),
		QuestionIndex:  s.QuestionIndex,
		TotalQuestions: s.TotalQuestions(),
		Players:        s.ActivePlayers(),
	})
}

// GetLeaderboard handles GET /v1/sessions/{id}/leaderboard
func (h *HTTPHandlers) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	board, err := h.machine.Leaderboard(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
			return
		}
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to load leaderboard")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeLeaderboardFetchFailed, "Failed to load leaderboard")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, LeaderboardResponse{SessionID: sessionID, Leaderboard: board})
}

// GetSummary handles GET /v1/sessions/{id}/summary
func (h *HTTPHandlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	summary, err := h.machine.Summary(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
			return
		}
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to load summary")
		httperrors.RespondInternalError(w, "Failed to load summary")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, summary)
}
