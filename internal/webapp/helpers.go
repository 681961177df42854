package webapp

import (
	"encoding/json"
	"errors"
	"net/http"

	"pdf-quiz/internal/hooks"
	"pdf-quiz/internal/validation"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

// writeHookError maps hook and validation failures onto HTTP statuses. Their
// messages are already safe to show.
func writeHookError(w http.ResponseWriter, err error) {
	var (
		failure  *hooks.Failure
		fieldErr *validation.FieldError
	)
	switch {
	case errors.Is(err, hooks.ErrAlreadyAnswered):
		writeError(w, http.StatusConflict, hooks.UserMessage(err, "question already answered"))
	case errors.As(err, &fieldErr):
		writeError(w, http.StatusBadRequest, fieldErr.Message)
	case errors.As(err, &failure) && failure.Cause == nil:
		writeError(w, http.StatusUnprocessableEntity, failure.Message)
	case errors.As(err, &failure):
		writeError(w, http.StatusBadGateway, failure.Message)
	default:
		writeError(w, http.StatusInternalServerError, "request failed")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(target)
}
