package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"preisradar/internal/repository"
)

type ErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string) {
	var b ErrorBody
	b.Error.Code = code
	b.Error.Message = msg
	WriteJSON(w, status, b)
}

// WriteRepoError maps repository sentinels to 404/400. It returns false for
// any other error so the caller can log it.
func WriteRepoError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "no data for product")
	case errors.Is(err, repository.ErrInvalidSlug):
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid product slug")
	default:
		return false
	}
	return true
}
