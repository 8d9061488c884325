package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/spellbuddy/backend/internal/models"
)

// TokenParser validates a bearer token and returns the user id it carries.
type TokenParser interface {
	Parse(token string) (int64, error)
}

// Auth rejects requests without a valid bearer token and stores the user id
// in the request context.
func Auth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				unauthorized(w, "Authentication required")
				return
			}

			userID, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg})
}
