package gamification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spellbuddy/backend/internal/exercise"
	"github.com/spellbuddy/backend/internal/logger"
	"github.com/spellbuddy/backend/internal/middleware"
	"github.com/spellbuddy/backend/internal/models"
)

// Explainer writes feedback for misspelled words.
type Explainer interface {
	Explain(ctx context.Context, mistakes []models.WordAttempt) (string, error)
}

type Handler struct {
	service *Service
	coach   Explainer
	log     *logger.Logger
}

// NewHandler builds the HTTP adapter. coach may be nil.
func NewHandler(service *Service, coach Explainer, log *logger.Logger) *Handler {
	return &Handler{service: service, coach: coach, log: log.With("handler", "gamification")}
}

// ── Progress ────────────────────────────────────────────

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.GetProgress(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "Failed to get progress")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) TouchActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.TouchActivity(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "Failed to update streak")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Exercises ───────────────────────────────────────────

func (h *Handler) CompleteExercise(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.CompleteExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if len(req.Words) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "words is required"})
		return
	}

	difficulty, ok := exercise.ParseDifficulty(string(req.Difficulty))
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Unknown difficulty"})
		return
	}

	graded := exercise.Grade(req.Words)
	if graded.Total() == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "No word has an expected spelling"})
		return
	}

	outcome, err := h.service.CompleteExercise(r.Context(), userID, ExerciseCompletion{
		ExerciseResult: ExerciseResult{Correct: graded.Correct, Incorrect: graded.Incorrect},
		Difficulty:     difficulty,
		ChallengeKey:   req.ChallengeKey,
	})
	if err != nil {
		h.writeError(w, err, "Failed to complete exercise")
		return
	}

	resp := models.ExerciseCompleteResponse{
		CorrectWords:         graded.Correct,
		IncorrectWords:       graded.Incorrect,
		Perfect:              outcome.Perfect,
		XPAwarded:            outcome.XPAwarded,
		Level:                outcome.Level,
		Streak:               outcome.Streak,
		AchievementsUnlocked: outcome.Unlocked,
	}

	if h.coach != nil && len(graded.Mistakes) > 0 {
		text, err := h.coach.Explain(r.Context(), graded.Mistakes)
		if err != nil {
			h.log.Warn("Feedback failed", "user_id", userID, "error", err)
		} else {
			resp.Feedback = text
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Achievements ────────────────────────────────────────

func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.ListAchievements(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "Failed to list achievements")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) MarkAchievementsSeen(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.MarkSeenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.MarkAchievementsSeen(r.Context(), userID, req.AchievementIDs); err != nil {
		h.writeError(w, err, "Failed to mark achievements seen")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ── Helpers ─────────────────────────────────────────────

// writeError maps engine errors to status codes. Anything unexpected is
// logged and answered with msg.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: verr.Error()})
	default:
		h.log.Error(msg, "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
