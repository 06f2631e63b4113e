package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/prostock/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognised is
// logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrScan):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrConflict):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrValidation):
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

// pathID parses a numeric path wildcard, writing a 400 when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// actor names the authenticated operator for log lines.
func actor(r *http.Request) string {
	if c := GetClaims(r.Context()); c != nil {
		return c.Username
	}
	return ""
}
