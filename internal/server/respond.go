package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"design-assistant/internal/auth"
	"design-assistant/internal/design"
	"design-assistant/internal/genai"
	"design-assistant/internal/search"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps domain sentinels onto HTTP statuses. Unknown errors are
// opaque 500s; the details stay in the server log.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, design.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found", Code: "USER_NOT_FOUND"})
	case errors.Is(err, design.ErrDesignNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "design not found", Code: "DESIGN_NOT_FOUND"})
	case errors.Is(err, design.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "design belongs to another user", Code: "DESIGN_FORBIDDEN"})
	case errors.Is(err, design.ErrInvalidResult):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Code: "INVALID_GENERATION_RESULT"})
	case errors.Is(err, genai.ErrBackend):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Code: "GENERATION_BACKEND_ERROR"})
	case errors.Is(err, auth.ErrEmailExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "email already registered", Code: "EMAIL_ALREADY_EXISTS"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials", Code: "INVALID_CREDENTIALS"})
	case errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token", Code: "INVALID_TOKEN"})
	case errors.Is(err, search.ErrSearchFailed):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "search unavailable", Code: "SEARCH_QUERY_FAILED"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
