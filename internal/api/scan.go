package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/prostock/internal/lifecycle"
)

// ScanHandler serves the scanner station.
type ScanHandler struct {
	Engine *lifecycle.Engine
}

type scanRequest struct {
	Code string `json:"code"`
}

// Resolve handles GET /api/scan?code=.
func (h *ScanHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	e, err := h.Engine.Lookup(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, e)
}

// Toggle handles POST /api/scan: whatever was scanned goes out if it was in,
// and in if it was out.
func (h *ScanHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Engine.ScanToggle(r.Context(), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("scan toggled", "user", actor(r), "equipment", e.ID, "status", e.Status, "quantity", e.Quantity)
	jsonResponse(w, http.StatusOK, e)
}
