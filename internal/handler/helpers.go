package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

type contextKey string

const buyerIDKey contextKey = "buyer_id"

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

// respondWithError sends a JSON error payload.
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = fmt.Sprintf("failed on the '%s' rule", fieldErr.Tag())
	}
	return details
}

// BuyerIDMiddleware reads the authenticated user id set by the upstream auth
// proxy. Session mechanics live outside this service; the id is threaded
// explicitly from here down.
func BuyerIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid X-User-ID header")
			return
		}
		ctx := context.WithValue(r.Context(), buyerIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// buyerIDFrom returns the authenticated user id, or false when the request
// carried none.
func buyerIDFrom(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(buyerIDKey).(int64)
	return id, ok
}

func requireBuyer(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := buyerIDFrom(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return 0, false
	}
	return id, true
}
